package ledger

import (
	"context"
	"strings"
	"time"

	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/store"
	"resaletracker/backend/internal/xid"
)

// NormalizeRow turns an upsert row into a subcategory. A row carrying
// items is itemized: count becomes len(items) and price is dropped.
// Otherwise count and price are taken as given, count defaulting to 0
// and price to nil. Create and edit both go through here.
func NormalizeRow(row domain.SubcategoryRow, previous *domain.Subcategory, now time.Time) (domain.Subcategory, error) {
	name := strings.TrimSpace(row.Name)
	if name == "" {
		return domain.Subcategory{}, store.Invalid("subcategory name is required")
	}

	sub := domain.Subcategory{
		ID:        row.ID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if sub.ID == "" {
		sub.ID = xid.New("sub")
	}
	if previous != nil {
		sub.CreatedAt = previous.CreatedAt
	}

	if len(row.Items) > 0 {
		items := make([]domain.SoldRecord, 0, len(row.Items))
		for _, item := range row.Items {
			if item.Price < 0 {
				return domain.Subcategory{}, store.Invalid("record %q has a negative price", item.Label)
			}
			if item.ID == "" {
				item.ID = xid.New("rec")
			}
			if item.CreatedAt.IsZero() {
				item.CreatedAt = now
			}
			if item.UpdatedAt.IsZero() {
				item.UpdatedAt = now
			}
			items = append(items, item)
		}
		sub.Volume = domain.Itemized{Records: items}
		return sub, nil
	}

	count := 0
	if row.Count != nil {
		count = *row.Count
	}
	if count < 0 {
		return domain.Subcategory{}, store.Invalid("subcategory %q has a negative count", name)
	}
	if row.Price != nil && *row.Price < 0 {
		return domain.Subcategory{}, store.Invalid("subcategory %q has a negative price", name)
	}
	sub.Volume = domain.Manual{Count: count, Price: row.Price}
	return sub, nil
}

// UpsertCategory creates or edits a sold category and replaces its whole
// subcategory list with rows.
func (l *Ledger) UpsertCategory(ctx context.Context, periodID string, in domain.SoldCategoryInput, rows []domain.SubcategoryRow) (domain.SoldCategory, error) {
	pi := l.periodIndex(periodID)
	if pi < 0 {
		return domain.SoldCategory{}, store.Missing("period", periodID)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.SoldCategory{}, store.Invalid("category name is required")
	}

	ci := -1
	if in.ID != "" {
		at, ok := l.locateCategory(in.ID)
		if !ok || at.period != pi {
			return domain.SoldCategory{}, store.Missing("category", in.ID)
		}
		ci = at.category
	}
	for i, c := range l.periods[pi].Categories {
		if i != ci && strings.EqualFold(c.Name, name) {
			return domain.SoldCategory{}, store.Invalid("category %q already exists in this period", name)
		}
	}

	now := l.now()
	previous := map[string]*domain.Subcategory{}
	if ci >= 0 {
		for i := range l.periods[pi].Categories[ci].Subcategories {
			sub := &l.periods[pi].Categories[ci].Subcategories[i]
			previous[sub.ID] = sub
		}
	}

	subcategories := make([]domain.Subcategory, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	seenRecords := map[string]struct{}{}
	for _, row := range rows {
		if row.ID != "" && previous[row.ID] == nil {
			if _, elsewhere := l.locateSubcategory(row.ID); elsewhere {
				return domain.SoldCategory{}, store.Invalid("subcategory %q belongs to another category", row.ID)
			}
		}
		sub, err := NormalizeRow(row, previous[row.ID], now)
		if err != nil {
			return domain.SoldCategory{}, err
		}
		if _, dup := seen[sub.ID]; dup {
			return domain.SoldCategory{}, store.Invalid("subcategory %q appears twice", sub.ID)
		}
		seen[sub.ID] = struct{}{}
		for _, r := range sub.Items() {
			if _, dup := seenRecords[r.ID]; dup {
				return domain.SoldCategory{}, store.Invalid("record %q appears twice", r.ID)
			}
			seenRecords[r.ID] = struct{}{}
			if !l.ownsRecord(pi, ci, r.ID) {
				return domain.SoldCategory{}, store.Invalid("record %q belongs to another subcategory", r.ID)
			}
		}
		subcategories = append(subcategories, sub)
	}

	restore := l.snapshot()
	if ci < 0 {
		l.periods[pi].Categories = append(l.periods[pi].Categories, domain.SoldCategory{
			ID:        xid.New("scat"),
			CreatedAt: now,
		})
		ci = len(l.periods[pi].Categories) - 1
	}
	cat := &l.periods[pi].Categories[ci]
	cat.Name = name
	cat.Description = strings.TrimSpace(in.Description)
	cat.Subcategories = subcategories
	l.touch(locator{period: pi, category: ci, subcategory: -1})

	saved := cat.Clone()
	if err := l.commit(ctx, restore); err != nil {
		return domain.SoldCategory{}, err
	}
	return saved, nil
}

// ownsRecord reports whether recordID is new or already lives in the
// category at (period, category). category is -1 for a new category.
func (l *Ledger) ownsRecord(period int, category int, recordID string) bool {
	at, found := l.locateRecord(recordID)
	if !found {
		return true
	}
	return category >= 0 && at.period == period && at.category == category
}

func (l *Ledger) DeleteCategory(ctx context.Context, categoryID string) error {
	at, ok := l.locateCategory(categoryID)
	if !ok {
		return store.Missing("category", categoryID)
	}
	restore := l.snapshot()
	l.removeCategoryAt(at)
	return l.commit(ctx, restore)
}

func (l *Ledger) removeCategoryAt(at locator) {
	p := &l.periods[at.period]
	categories := make([]domain.SoldCategory, 0, len(p.Categories)-1)
	categories = append(categories, p.Categories[:at.category]...)
	p.Categories = append(categories, p.Categories[at.category+1:]...)
	p.UpdatedAt = l.now()
}

func (l *Ledger) removeSubcategoryAt(at locator) {
	c := l.category(at)
	subs := make([]domain.Subcategory, 0, len(c.Subcategories)-1)
	subs = append(subs, c.Subcategories[:at.subcategory]...)
	c.Subcategories = append(subs, c.Subcategories[at.subcategory+1:]...)
	l.touch(locator{period: at.period, category: at.category, subcategory: -1})
}

// MoveCategory moves a sold category to another period. If that period
// already has a category with the same name, subcategories are merged
// into it by name.
func (l *Ledger) MoveCategory(ctx context.Context, categoryID string, toPeriodID string) (domain.SoldCategory, error) {
	at, ok := l.locateCategory(categoryID)
	if !ok {
		return domain.SoldCategory{}, store.Missing("category", categoryID)
	}
	to := l.periodIndex(toPeriodID)
	if to < 0 {
		return domain.SoldCategory{}, store.Missing("period", toPeriodID)
	}
	if to == at.period {
		return domain.SoldCategory{}, store.Invalid("category is already in period %q", toPeriodID)
	}

	restore := l.snapshot()
	moving := l.category(at).Clone()
	l.removeCategoryAt(at)

	target := -1
	for i, c := range l.periods[to].Categories {
		if strings.EqualFold(c.Name, moving.Name) {
			target = i
			break
		}
	}

	if target < 0 {
		l.periods[to].Categories = append(l.periods[to].Categories, moving)
		target = len(l.periods[to].Categories) - 1
	} else {
		dest := &l.periods[to].Categories[target]
		for _, sub := range moving.Subcategories {
			merged := false
			for i := range dest.Subcategories {
				if !strings.EqualFold(dest.Subcategories[i].Name, sub.Name) {
					continue
				}
				volume, err := mergeVolumes(dest.Subcategories[i], sub)
				if err != nil {
					restore()
					return domain.SoldCategory{}, err
				}
				dest.Subcategories[i].Volume = volume
				merged = true
				break
			}
			if !merged {
				dest.Subcategories = append(dest.Subcategories, sub)
			}
		}
	}
	l.touch(locator{period: to, category: target, subcategory: -1})

	saved := l.periods[to].Categories[target].Clone()
	if err := l.commit(ctx, restore); err != nil {
		return domain.SoldCategory{}, err
	}
	return saved, nil
}
