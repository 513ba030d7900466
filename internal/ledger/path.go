package ledger

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/store"
	"resaletracker/backend/internal/xid"
)

// EnsurePath resolves a period/category/subcategory path, creating the
// levels named but not found. All lookups and validation happen before
// anything is created, and created levels are saved together.
// An empty period falls back to the current period.
func (l *Ledger) EnsurePath(ctx context.Context, path domain.SalePath) (domain.PathRef, error) {
	var ref domain.PathRef

	pi := -1
	periodName := strings.TrimSpace(path.PeriodName)
	switch {
	case path.PeriodID != "":
		if pi = l.periodIndex(path.PeriodID); pi < 0 {
			return ref, store.Missing("period", path.PeriodID)
		}
	case periodName != "":
		pi = l.periodByName(periodName)
	default:
		if pi = l.currentIndex(); pi < 0 {
			return ref, store.Invalid("no period exists; name one to create it")
		}
	}

	ci := -1
	categoryName := strings.TrimSpace(path.CategoryName)
	switch {
	case path.CategoryID != "":
		at, ok := l.locateCategory(path.CategoryID)
		if !ok || at.period != pi {
			return ref, store.Missing("category", path.CategoryID)
		}
		ci = at.category
	case categoryName != "":
		if pi >= 0 {
			ci = categoryByName(l.periods[pi].Categories, categoryName)
		}
	default:
		return ref, store.Invalid("a sold category is required")
	}

	si := -1
	subcategoryName := strings.TrimSpace(path.SubcategoryName)
	switch {
	case path.SubcategoryID != "":
		at, ok := l.locateSubcategory(path.SubcategoryID)
		if !ok || at.period != pi || at.category != ci {
			return ref, store.Missing("subcategory", path.SubcategoryID)
		}
		si = at.subcategory
	case subcategoryName != "":
		if ci >= 0 {
			si = subcategoryByName(l.periods[pi].Categories[ci].Subcategories, subcategoryName)
		}
	default:
		return ref, store.Invalid("a subcategory is required")
	}

	restore := l.snapshot()
	now := l.now()
	if pi < 0 {
		l.addPeriod(periodName, "")
		pi = len(l.periods) - 1
		ref.CreatedPeriod = true
	}
	if ci < 0 {
		l.periods[pi].Categories = append(l.periods[pi].Categories, domain.SoldCategory{
			ID:            xid.New("scat"),
			Name:          categoryName,
			Subcategories: []domain.Subcategory{},
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		ci = len(l.periods[pi].Categories) - 1
		ref.CreatedCategory = true
	}
	if si < 0 {
		cat := &l.periods[pi].Categories[ci]
		cat.Subcategories = append(cat.Subcategories, domain.Subcategory{
			ID:        xid.New("sub"),
			Name:      subcategoryName,
			Volume:    domain.Manual{},
			CreatedAt: now,
			UpdatedAt: now,
		})
		si = len(cat.Subcategories) - 1
		ref.CreatedSubcategory = true
	}

	ref.PeriodID = l.periods[pi].ID
	ref.CategoryID = l.periods[pi].Categories[ci].ID
	ref.SubcategoryID = l.periods[pi].Categories[ci].Subcategories[si].ID

	if !ref.CreatedPeriod && !ref.CreatedCategory && !ref.CreatedSubcategory {
		return ref, nil
	}
	l.touch(locator{period: pi, category: ci, subcategory: si})
	if err := l.commit(ctx, restore); err != nil {
		return domain.PathRef{}, err
	}
	return ref, nil
}

// RemovePath undoes EnsurePath: it removes the levels ref created, deepest
// first, as long as they are still empty.
func (l *Ledger) RemovePath(ctx context.Context, ref domain.PathRef) error {
	restore := l.snapshot()
	changed := false

	if ref.CreatedSubcategory {
		if at, ok := l.locateSubcategory(ref.SubcategoryID); ok && l.subcategory(at).Count() == 0 {
			l.removeSubcategoryAt(at)
			changed = true
		}
	}
	if ref.CreatedCategory {
		if at, ok := l.locateCategory(ref.CategoryID); ok && len(l.category(at).Subcategories) == 0 {
			l.removeCategoryAt(at)
			changed = true
		}
	}
	if ref.CreatedPeriod {
		if idx := l.periodIndex(ref.PeriodID); idx >= 0 && len(l.periods[idx].Categories) == 0 {
			l.removePeriodAt(idx)
			changed = true
		}
	}

	if !changed {
		return nil
	}
	if err := l.commit(ctx, restore); err != nil {
		return err
	}
	l.logger.Info("sale path removed", zap.String("period_id", ref.PeriodID), zap.String("subcategory_id", ref.SubcategoryID))
	return nil
}

func (l *Ledger) periodByName(name string) int {
	for i, p := range l.periods {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}

func categoryByName(categories []domain.SoldCategory, name string) int {
	for i, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

func subcategoryByName(subcategories []domain.Subcategory, name string) int {
	for i, s := range subcategories {
		if strings.EqualFold(s.Name, name) {
			return i
		}
	}
	return -1
}
