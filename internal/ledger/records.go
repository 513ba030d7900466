package ledger

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/store"
	"resaletracker/backend/internal/xid"
)

func volumeOf(s domain.Subcategory) domain.Volume {
	if s.Volume == nil {
		return domain.Manual{}
	}
	return s.Volume
}

// acceptsRecords reports whether items may be appended to s. A manual
// subcategory that already counts sales would lose them on conversion.
func acceptsRecords(s domain.Subcategory) error {
	if v, ok := volumeOf(s).(domain.Manual); ok && v.Count > 0 {
		return store.Invalid("subcategory %q holds a manual count of %d and cannot take itemized records", s.Name, v.Count)
	}
	return nil
}

func validPrice(price *float64) (float64, error) {
	if price == nil {
		return 0, store.Invalid("record price is required")
	}
	if *price < 0 {
		return 0, store.Invalid("record price must not be negative")
	}
	return *price, nil
}

// AddSoldRecord appends a record to the subcategory. When SourceID is set
// the record id encodes it, and a record with the same label, price and
// source already present is returned together with store.ErrAlreadyRecorded.
func (l *Ledger) AddSoldRecord(ctx context.Context, subcategoryID string, in domain.SoldRecordInput) (domain.SoldRecord, error) {
	at, ok := l.locateSubcategory(subcategoryID)
	if !ok {
		return domain.SoldRecord{}, store.Missing("subcategory", subcategoryID)
	}
	price, err := validPrice(in.Price)
	if err != nil {
		return domain.SoldRecord{}, err
	}
	label := strings.TrimSpace(in.Label)
	sub := l.subcategory(at)

	if in.SourceID != "" {
		for _, existing := range sub.Items() {
			if existing.Label == label && existing.Price == price && xid.Encodes(existing.ID, "rec", in.SourceID) {
				return existing, store.ErrAlreadyRecorded
			}
		}
	}
	if err := acceptsRecords(*sub); err != nil {
		return domain.SoldRecord{}, err
	}

	now := l.now()
	record := domain.SoldRecord{
		ID:        xid.New("rec"),
		Label:     label,
		Price:     price,
		PhotoRef:  strings.TrimSpace(in.PhotoRef),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.SourceID != "" {
		record.ID = xid.NewFor("rec", in.SourceID)
	}

	restore := l.snapshot()
	*sub = sub.WithRecords(append(append([]domain.SoldRecord(nil), sub.Items()...), record))
	l.touch(at)
	if err := l.commit(ctx, restore); err != nil {
		return domain.SoldRecord{}, err
	}
	return record, nil
}

func (l *Ledger) UpdateSoldRecord(ctx context.Context, recordID string, in domain.SoldRecordInput) (domain.SoldRecord, error) {
	at, ok := l.locateRecord(recordID)
	if !ok {
		return domain.SoldRecord{}, store.Missing("record", recordID)
	}
	price, err := validPrice(in.Price)
	if err != nil {
		return domain.SoldRecord{}, err
	}

	restore := l.snapshot()
	sub := l.subcategory(at)
	items := append([]domain.SoldRecord(nil), sub.Items()...)
	items[at.record].Label = strings.TrimSpace(in.Label)
	items[at.record].Price = price
	items[at.record].PhotoRef = strings.TrimSpace(in.PhotoRef)
	items[at.record].UpdatedAt = l.now()
	*sub = sub.WithRecords(items)
	l.touch(at)

	updated := items[at.record]
	if err := l.commit(ctx, restore); err != nil {
		return domain.SoldRecord{}, err
	}
	return updated, nil
}

// DeleteSoldRecord removes a record. A subcategory left without records
// becomes an empty manual subcategory.
func (l *Ledger) DeleteSoldRecord(ctx context.Context, recordID string) error {
	at, ok := l.locateRecord(recordID)
	if !ok {
		return store.Missing("record", recordID)
	}
	restore := l.snapshot()
	l.takeRecord(at)
	l.touch(at)
	return l.commit(ctx, restore)
}

func (l *Ledger) takeRecord(at locator) domain.SoldRecord {
	sub := l.subcategory(at)
	items := sub.Items()
	record := items[at.record]
	rest := make([]domain.SoldRecord, 0, len(items)-1)
	rest = append(rest, items[:at.record]...)
	rest = append(rest, items[at.record+1:]...)
	*sub = sub.WithRecords(rest)
	return record
}

// MoveRecord moves a record to another subcategory of the same period,
// keeping its id. With req.Create set the destination is created on the
// fly; if that fails the source removal is undone and nothing is saved.
func (l *Ledger) MoveRecord(ctx context.Context, recordID string, req domain.MoveRecordRequest) (domain.Subcategory, error) {
	from, ok := l.locateRecord(recordID)
	if !ok {
		return domain.Subcategory{}, store.Missing("record", recordID)
	}
	if req.FromSubcategoryID != "" && l.subcategory(from).ID != req.FromSubcategoryID {
		return domain.Subcategory{}, store.Invalid("record %q is not in subcategory %q", recordID, req.FromSubcategoryID)
	}

	var to locator
	switch {
	case req.ToSubcategoryID != "":
		to, ok = l.locateSubcategory(req.ToSubcategoryID)
		if !ok {
			return domain.Subcategory{}, store.Missing("subcategory", req.ToSubcategoryID)
		}
		if to.period != from.period {
			return domain.Subcategory{}, store.Invalid("records can only move within one period")
		}
		if to.category == from.category && to.subcategory == from.subcategory {
			return domain.Subcategory{}, store.Invalid("record %q is already in subcategory %q", recordID, req.ToSubcategoryID)
		}
		if err := acceptsRecords(*l.subcategory(to)); err != nil {
			return domain.Subcategory{}, err
		}
	case req.Create != nil:
	default:
		return domain.Subcategory{}, store.Invalid("a destination subcategory is required")
	}

	restore := l.snapshot()
	record := l.takeRecord(from)
	record.UpdatedAt = l.now()
	l.touch(from)

	if req.Create != nil && req.ToSubcategoryID == "" {
		created, err := l.createSubcategory(from.period, *req.Create)
		if err != nil {
			restore()
			return domain.Subcategory{}, err
		}
		to = created
	}

	dest := l.subcategory(to)
	*dest = dest.WithRecords(append(append([]domain.SoldRecord(nil), dest.Items()...), record))
	l.touch(to)

	moved := dest.Clone()
	if err := l.commit(ctx, restore); err != nil {
		return domain.Subcategory{}, err
	}
	l.logger.Info("record moved", zap.String("record_id", recordID), zap.String("to", moved.ID))
	return moved, nil
}

// createSubcategory appends an empty subcategory to a category of the
// given period.
func (l *Ledger) createSubcategory(period int, in domain.NewSubcategory) (locator, error) {
	at, ok := l.locateCategory(in.CategoryID)
	if !ok {
		return locator{}, store.Missing("category", in.CategoryID)
	}
	if at.period != period {
		return locator{}, store.Invalid("category %q belongs to another period", in.CategoryID)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return locator{}, store.Invalid("subcategory name is required")
	}
	cat := l.category(at)
	for _, s := range cat.Subcategories {
		if strings.EqualFold(s.Name, name) {
			return locator{}, store.Invalid("subcategory %q already exists", name)
		}
	}

	now := l.now()
	cat.Subcategories = append(cat.Subcategories, domain.Subcategory{
		ID:        xid.New("sub"),
		Name:      name,
		Volume:    domain.Manual{},
		CreatedAt: now,
		UpdatedAt: now,
	})
	at.subcategory = len(cat.Subcategories) - 1
	return at, nil
}

// MergeSubcategories folds the source subcategory into the destination
// and removes the source. Both must be in the same period.
func (l *Ledger) MergeSubcategories(ctx context.Context, fromID string, toID string) (domain.Subcategory, error) {
	if fromID == toID {
		return domain.Subcategory{}, store.Invalid("cannot merge a subcategory into itself")
	}
	from, ok := l.locateSubcategory(fromID)
	if !ok {
		return domain.Subcategory{}, store.Missing("subcategory", fromID)
	}
	to, ok := l.locateSubcategory(toID)
	if !ok {
		return domain.Subcategory{}, store.Missing("subcategory", toID)
	}
	if from.period != to.period {
		return domain.Subcategory{}, store.Invalid("subcategories can only merge within one period")
	}
	volume, err := mergeVolumes(*l.subcategory(to), *l.subcategory(from))
	if err != nil {
		return domain.Subcategory{}, err
	}

	restore := l.snapshot()
	dest := l.subcategory(to)
	dest.Volume = volume
	l.touch(to)
	merged := dest.Clone()
	l.removeSubcategoryAt(from)

	if err := l.commit(ctx, restore); err != nil {
		return domain.Subcategory{}, err
	}
	return merged, nil
}

// mergeVolumes combines src into dest. Records concatenate; manual counts
// add up with dest's price winning. Mixing a non-empty manual count with
// records, or two different manual prices, is rejected.
func mergeVolumes(dest domain.Subcategory, src domain.Subcategory) (domain.Volume, error) {
	switch s := volumeOf(src).(type) {
	case domain.Itemized:
		switch d := volumeOf(dest).(type) {
		case domain.Itemized:
			records := append(append([]domain.SoldRecord(nil), d.Records...), s.Records...)
			return domain.NewVolume(records, 0, nil), nil
		case domain.Manual:
			if d.Count > 0 {
				return nil, store.Invalid("cannot merge records into %q, which holds a manual count", dest.Name)
			}
			return domain.NewVolume(append([]domain.SoldRecord(nil), s.Records...), 0, nil), nil
		}
	case domain.Manual:
		switch d := volumeOf(dest).(type) {
		case domain.Itemized:
			if s.Count > 0 {
				return nil, store.Invalid("cannot merge the manual count of %q into itemized %q", src.Name, dest.Name)
			}
			return d, nil
		case domain.Manual:
			price := d.Price
			switch {
			case price == nil:
				price = s.Price
			case s.Price != nil && *s.Price != *price:
				return nil, store.Invalid("%q and %q have different manual prices", src.Name, dest.Name)
			}
			return domain.Manual{Count: d.Count + s.Count, Price: price}, nil
		}
	}
	return volumeOf(dest), nil
}
