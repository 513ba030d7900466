package ledger

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/store"
)

// exportRow is one CSV line: a record, or a manual subcategory summary
// when the subcategory has no records.
type exportRow struct {
	Period      string `csv:"period"`
	Category    string `csv:"category"`
	Subcategory string `csv:"subcategory"`
	RecordID    string `csv:"record_id"`
	Label       string `csv:"label"`
	Count       int    `csv:"count"`
	Price       string `csv:"price"`
	Revenue     string `csv:"revenue"`
	SoldAt      string `csv:"sold_at"`
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func (l *Ledger) ExportCSV(w io.Writer, periodID string) error {
	idx := l.periodIndex(periodID)
	if idx < 0 {
		return store.Missing("period", periodID)
	}
	period := l.periods[idx]

	rows := []exportRow{}
	for _, c := range period.Categories {
		for _, sub := range c.Subcategories {
			base := exportRow{Period: period.Name, Category: c.Name, Subcategory: sub.Name}
			switch v := volumeOf(sub).(type) {
			case domain.Itemized:
				for _, r := range v.Records {
					row := base
					row.RecordID = r.ID
					row.Label = r.Label
					row.Count = 1
					row.Price = money(r.Price)
					row.Revenue = money(r.Price)
					row.SoldAt = r.CreatedAt.Format("2006-01-02")
					rows = append(rows, row)
				}
			case domain.Manual:
				row := base
				row.Count = v.Count
				if v.Price != nil {
					row.Price = money(*v.Price)
					row.Revenue = money(float64(v.Count) * *v.Price)
				}
				rows = append(rows, row)
			}
		}
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("export period %s: %w", periodID, err)
	}
	return nil
}
