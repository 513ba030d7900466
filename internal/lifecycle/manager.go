// Package lifecycle owns listing categories and listings and applies the
// create, edit, end, sell and delete transitions to them.
package lifecycle

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/recommendation"
	"resaletracker/backend/internal/store"
	"resaletracker/backend/internal/xid"
)

// Manager holds one store's listings document in memory. Every mutation
// is persisted before returning; a failed save restores the previous
// in-memory state.
type Manager struct {
	docs      store.Documents
	key       string
	suggester *recommendation.Engine
	logger    *zap.Logger
	now       func() time.Time

	categories []domain.Category
	listings   []domain.Listing
}

func New(docs store.Documents, key string, suggester *recommendation.Engine, logger *zap.Logger) *Manager {
	if suggester == nil {
		suggester = recommendation.NewEngine(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		docs:      docs,
		key:       key,
		suggester: suggester,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces the time source used for every state derivation.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

func (m *Manager) Key() string {
	return m.key
}

func (m *Manager) Load(ctx context.Context) error {
	var doc domain.ListingsDocument
	if _, err := m.docs.Load(ctx, m.key, &doc); err != nil {
		return err
	}
	m.categories = doc.Categories
	m.listings = doc.Items
	return nil
}

func (m *Manager) document() domain.ListingsDocument {
	doc := domain.ListingsDocument{
		Categories: m.categories,
		Items:      m.listings,
	}
	if doc.Categories == nil {
		doc.Categories = []domain.Category{}
	}
	if doc.Items == nil {
		doc.Items = []domain.Listing{}
	}
	return doc
}

// commit persists the current state or reverts to the snapshot taken
// before the mutation.
func (m *Manager) commit(ctx context.Context, restore func()) error {
	if err := m.docs.Save(ctx, m.key, m.document()); err != nil {
		restore()
		m.logger.Warn("listings save failed, rolled back", zap.String("key", m.key), zap.Error(err))
		return err
	}
	return nil
}

func (m *Manager) snapshot() func() {
	categories := append([]domain.Category(nil), m.categories...)
	listings := append([]domain.Listing(nil), m.listings...)
	return func() {
		m.categories = categories
		m.listings = listings
	}
}

func (m *Manager) Categories() []domain.Category {
	return append([]domain.Category(nil), m.categories...)
}

func (m *Manager) Category(id string) (domain.Category, bool) {
	idx := m.categoryIndex(id)
	if idx < 0 {
		return domain.Category{}, false
	}
	return m.categories[idx], true
}

func (m *Manager) categoryIndex(id string) int {
	for i, c := range m.categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) categoryByName(name string) (domain.Category, bool) {
	for _, c := range m.categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return domain.Category{}, false
}

func normalizeCategory(in domain.CategoryInput) (domain.CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, store.Invalid("category name is required")
	}
	if in.AverageDays < 0 {
		return in, store.Invalid("average days must not be negative")
	}
	return in, nil
}

func (m *Manager) CreateCategory(ctx context.Context, in domain.CategoryInput) (domain.Category, error) {
	in, err := normalizeCategory(in)
	if err != nil {
		return domain.Category{}, err
	}
	if _, exists := m.categoryByName(in.Name); exists {
		return domain.Category{}, store.Invalid("category %q already exists", in.Name)
	}

	category := domain.Category{
		ID:          xid.New("cat"),
		Name:        in.Name,
		Description: in.Description,
		AverageDays: in.AverageDays,
	}
	restore := m.snapshot()
	m.categories = append(m.categories, category)
	if err := m.commit(ctx, restore); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

func (m *Manager) UpdateCategory(ctx context.Context, id string, in domain.CategoryInput) (domain.Category, error) {
	idx := m.categoryIndex(id)
	if idx < 0 {
		return domain.Category{}, store.Missing("category", id)
	}
	in, err := normalizeCategory(in)
	if err != nil {
		return domain.Category{}, err
	}
	if other, exists := m.categoryByName(in.Name); exists && other.ID != id {
		return domain.Category{}, store.Invalid("category %q already exists", in.Name)
	}

	restore := m.snapshot()
	m.categories[idx].Name = in.Name
	m.categories[idx].Description = in.Description
	m.categories[idx].AverageDays = in.AverageDays
	if err := m.commit(ctx, restore); err != nil {
		return domain.Category{}, err
	}
	return m.categories[idx], nil
}

// DeleteCategory removes the category and every listing in it.
func (m *Manager) DeleteCategory(ctx context.Context, id string) (int, error) {
	idx := m.categoryIndex(id)
	if idx < 0 {
		return 0, store.Missing("category", id)
	}

	restore := m.snapshot()
	categories := make([]domain.Category, 0, len(m.categories)-1)
	categories = append(categories, m.categories[:idx]...)
	m.categories = append(categories, m.categories[idx+1:]...)

	kept := make([]domain.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		if l.CategoryID != id {
			kept = append(kept, l)
		}
	}
	removed := len(m.listings) - len(kept)
	m.listings = kept

	if err := m.commit(ctx, restore); err != nil {
		return 0, err
	}
	return removed, nil
}

// SuggestEndDate proposes an end date for a new listing in the category.
func (m *Manager) SuggestEndDate(categoryID string, dateAdded time.Time) (domain.EndDateSuggestion, error) {
	category, ok := m.Category(categoryID)
	if !ok {
		return domain.EndDateSuggestion{}, store.Missing("category", categoryID)
	}
	if dateAdded.IsZero() {
		dateAdded = m.now()
	}
	return m.suggester.Suggest(category, m.listings, StartOfDay(dateAdded)), nil
}
