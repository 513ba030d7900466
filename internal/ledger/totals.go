package ledger

import (
	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/store"
)

// AggregateCategoryTotals sums a category's subcategories. Itemized
// subcategories always count their records and record prices; manual ones
// count*price. A manual price of 0 still sets HasPrice.
func AggregateCategoryTotals(c domain.SoldCategory) domain.CategoryTotals {
	var totals domain.CategoryTotals
	for _, sub := range c.Subcategories {
		switch v := volumeOf(sub).(type) {
		case domain.Itemized:
			totals.TotalSold += len(v.Records)
			for _, r := range v.Records {
				totals.TotalMade += r.Price
			}
			if len(v.Records) > 0 {
				totals.HasPrice = true
			}
		case domain.Manual:
			totals.TotalSold += v.Count
			if v.Price != nil {
				totals.TotalMade += float64(v.Count) * *v.Price
				totals.HasPrice = true
			}
		}
	}
	return totals
}

func (l *Ledger) PeriodTotals(periodID string) (domain.PeriodTotals, error) {
	idx := l.periodIndex(periodID)
	if idx < 0 {
		return domain.PeriodTotals{}, store.Missing("period", periodID)
	}
	out := domain.PeriodTotals{
		PeriodID:   periodID,
		Categories: make(map[string]domain.CategoryTotals, len(l.periods[idx].Categories)),
	}
	for _, c := range l.periods[idx].Categories {
		totals := AggregateCategoryTotals(c)
		out.Categories[c.ID] = totals
		out.Total.TotalSold += totals.TotalSold
		out.Total.TotalMade += totals.TotalMade
		out.Total.HasPrice = out.Total.HasPrice || totals.HasPrice
	}
	return out, nil
}
