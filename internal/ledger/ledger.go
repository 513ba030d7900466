// Package ledger keeps the sold-items hierarchy of a store:
// Period -> SoldCategory -> Subcategory -> SoldRecord.
package ledger

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/store"
	"resaletracker/backend/internal/xid"
)

// Ledger holds one store's ledger document in memory. Mutations are
// persisted before returning and rolled back in memory when the save
// fails.
type Ledger struct {
	docs   store.Documents
	key    string
	logger *zap.Logger
	now    func() time.Time

	periods         []domain.Period
	currentPeriodID *string
}

func New(docs store.Documents, key string, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		docs:   docs,
		key:    key,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

func (l *Ledger) Key() string {
	return l.key
}

func (l *Ledger) Load(ctx context.Context) error {
	var doc domain.LedgerDocument
	if _, err := l.docs.Load(ctx, l.key, &doc); err != nil {
		return err
	}
	l.periods = doc.Periods
	l.currentPeriodID = doc.CurrentPeriodID
	return nil
}

func (l *Ledger) document() domain.LedgerDocument {
	periods := l.periods
	if periods == nil {
		periods = []domain.Period{}
	}
	return domain.LedgerDocument{Periods: periods, CurrentPeriodID: l.currentPeriodID}
}

func (l *Ledger) snapshot() func() {
	periods := make([]domain.Period, len(l.periods))
	for i, p := range l.periods {
		periods[i] = p.Clone()
	}
	var current *string
	if l.currentPeriodID != nil {
		id := *l.currentPeriodID
		current = &id
	}
	return func() {
		l.periods = periods
		l.currentPeriodID = current
	}
}

func (l *Ledger) commit(ctx context.Context, restore func()) error {
	if err := l.docs.Save(ctx, l.key, l.document()); err != nil {
		restore()
		l.logger.Warn("ledger save failed, rolled back", zap.String("key", l.key), zap.Error(err))
		return err
	}
	return nil
}

func (l *Ledger) Periods() []domain.Period {
	out := make([]domain.Period, len(l.periods))
	for i, p := range l.periods {
		out[i] = p.Clone()
	}
	return out
}

func (l *Ledger) Period(id string) (domain.Period, bool) {
	idx := l.periodIndex(id)
	if idx < 0 {
		return domain.Period{}, false
	}
	return l.periods[idx].Clone(), true
}

// CurrentPeriod resolves the current-period pointer, falling back to the
// first period when the pointer is missing or stale.
func (l *Ledger) CurrentPeriod() (domain.Period, bool) {
	idx := l.currentIndex()
	if idx < 0 {
		return domain.Period{}, false
	}
	return l.periods[idx].Clone(), true
}

func (l *Ledger) currentIndex() int {
	if l.currentPeriodID != nil {
		if idx := l.periodIndex(*l.currentPeriodID); idx >= 0 {
			return idx
		}
	}
	if len(l.periods) > 0 {
		return 0
	}
	return -1
}

func (l *Ledger) setCurrent(id string) {
	l.currentPeriodID = &id
}

func (l *Ledger) CreatePeriod(ctx context.Context, in domain.PeriodInput) (domain.Period, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Period{}, store.Invalid("period name is required")
	}

	restore := l.snapshot()
	period := l.addPeriod(name, strings.TrimSpace(in.Description))
	if in.MakeCurrent {
		l.setCurrent(period.ID)
	}
	if err := l.commit(ctx, restore); err != nil {
		return domain.Period{}, err
	}
	return period, nil
}

func (l *Ledger) addPeriod(name string, description string) domain.Period {
	now := l.now()
	period := domain.Period{
		ID:          xid.New("per"),
		Name:        name,
		Description: description,
		Categories:  []domain.SoldCategory{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	l.periods = append(l.periods, period)
	if l.currentPeriodID == nil || l.periodIndex(*l.currentPeriodID) < 0 {
		l.setCurrent(l.periods[l.currentIndex()].ID)
	}
	return period
}

func (l *Ledger) UpdatePeriod(ctx context.Context, id string, in domain.PeriodInput) (domain.Period, error) {
	idx := l.periodIndex(id)
	if idx < 0 {
		return domain.Period{}, store.Missing("period", id)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Period{}, store.Invalid("period name is required")
	}

	restore := l.snapshot()
	l.periods[idx].Name = name
	l.periods[idx].Description = strings.TrimSpace(in.Description)
	l.periods[idx].UpdatedAt = l.now()
	if in.MakeCurrent {
		l.setCurrent(id)
	}
	if err := l.commit(ctx, restore); err != nil {
		return domain.Period{}, err
	}
	return l.periods[idx].Clone(), nil
}

func (l *Ledger) SetCurrentPeriod(ctx context.Context, id string) error {
	if l.periodIndex(id) < 0 {
		return store.Missing("period", id)
	}
	restore := l.snapshot()
	l.setCurrent(id)
	return l.commit(ctx, restore)
}

// RemovePeriod deletes a period. When it was current, the period that
// slides into its index becomes current, or the new last period when the
// removed one was last, or none when no periods remain.
func (l *Ledger) RemovePeriod(ctx context.Context, id string) error {
	idx := l.periodIndex(id)
	if idx < 0 {
		return store.Missing("period", id)
	}
	restore := l.snapshot()
	l.removePeriodAt(idx)
	return l.commit(ctx, restore)
}

func (l *Ledger) removePeriodAt(idx int) {
	wasCurrent := l.currentIndex() == idx
	periods := make([]domain.Period, 0, len(l.periods)-1)
	periods = append(periods, l.periods[:idx]...)
	l.periods = append(periods, l.periods[idx+1:]...)

	if !wasCurrent {
		return
	}
	if len(l.periods) == 0 {
		l.currentPeriodID = nil
		return
	}
	next := idx
	if next >= len(l.periods) {
		next = len(l.periods) - 1
	}
	l.setCurrent(l.periods[next].ID)
}

func (l *Ledger) periodIndex(id string) int {
	for i, p := range l.periods {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// locator indexes into periods -> categories -> subcategories -> items.
type locator struct {
	period, category, subcategory, record int
}

func (l *Ledger) locateCategory(id string) (locator, bool) {
	for pi, p := range l.periods {
		for ci, c := range p.Categories {
			if c.ID == id {
				return locator{period: pi, category: ci, subcategory: -1, record: -1}, true
			}
		}
	}
	return locator{}, false
}

func (l *Ledger) locateSubcategory(id string) (locator, bool) {
	for pi, p := range l.periods {
		for ci, c := range p.Categories {
			for si, s := range c.Subcategories {
				if s.ID == id {
					return locator{period: pi, category: ci, subcategory: si, record: -1}, true
				}
			}
		}
	}
	return locator{}, false
}

func (l *Ledger) locateRecord(id string) (locator, bool) {
	for pi, p := range l.periods {
		for ci, c := range p.Categories {
			for si, s := range c.Subcategories {
				for ri, r := range s.Items() {
					if r.ID == id {
						return locator{period: pi, category: ci, subcategory: si, record: ri}, true
					}
				}
			}
		}
	}
	return locator{}, false
}

func (l *Ledger) category(at locator) *domain.SoldCategory {
	return &l.periods[at.period].Categories[at.category]
}

func (l *Ledger) subcategory(at locator) *domain.Subcategory {
	return &l.periods[at.period].Categories[at.category].Subcategories[at.subcategory]
}

// touch stamps updatedAt on the subcategory at loc and on its owners.
func (l *Ledger) touch(at locator) {
	now := l.now()
	l.periods[at.period].UpdatedAt = now
	if at.category >= 0 {
		l.category(at).UpdatedAt = now
	}
	if at.subcategory >= 0 {
		l.subcategory(at).UpdatedAt = now
	}
}
