package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/store"
	"resaletracker/backend/internal/xid"
)

type ListingFilter struct {
	CategoryID string
	State      domain.ListingState
}

func (m *Manager) Listing(id string) (domain.Listing, bool) {
	idx := m.listingIndex(id)
	if idx < 0 {
		return domain.Listing{}, false
	}
	return m.listings[idx], true
}

func (m *Manager) View(id string) (domain.ListingView, error) {
	l, ok := m.Listing(id)
	if !ok {
		return domain.ListingView{}, store.Missing("listing", id)
	}
	return View(l, m.now()), nil
}

// Listings derives every listing's state against the current time.
func (m *Manager) Listings(filter ListingFilter) []domain.ListingView {
	now := m.now()
	views := make([]domain.ListingView, 0, len(m.listings))
	for _, l := range m.listings {
		if filter.CategoryID != "" && l.CategoryID != filter.CategoryID {
			continue
		}
		view := View(l, now)
		if filter.State != "" && view.State != filter.State {
			continue
		}
		views = append(views, view)
	}
	return views
}

func (m *Manager) Summary() domain.ListingSummary {
	now := m.now()
	var summary domain.ListingSummary
	for _, l := range m.listings {
		summary.Total++
		switch DeriveState(l, now) {
		case domain.ListingStateActive:
			summary.Active++
		case domain.ListingStateEndedManual:
			summary.EndedManual++
		case domain.ListingStateEndedExpired:
			summary.EndedExpired++
		case domain.ListingStateSold:
			summary.Sold++
		}
	}
	return summary
}

func (m *Manager) listingIndex(id string) int {
	for i, l := range m.listings {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// resolvedInput is a validated ListingInput. categoryID is empty when
// newCategory must be created first.
type resolvedInput struct {
	domain.ListingInput
	categoryID  string
	newCategory string
	duration    int
}

func (m *Manager) resolve(in domain.ListingInput) (resolvedInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Note = strings.TrimSpace(in.Note)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	in.CategoryName = strings.TrimSpace(in.CategoryName)

	if in.Name == "" {
		return resolvedInput{}, store.Invalid("listing name is required")
	}
	if in.DateAdded.IsZero() {
		return resolvedInput{}, store.Invalid("date added is required")
	}
	if in.EndDate.IsZero() {
		return resolvedInput{}, store.Invalid("end date is required")
	}
	in.DateAdded = StartOfDay(in.DateAdded)
	in.EndDate = StartOfDay(in.EndDate)
	if in.EndDate.Before(in.DateAdded) {
		return resolvedInput{}, store.Invalid("end date %s is before date added %s", in.EndDate.Format(time.DateOnly), in.DateAdded.Format(time.DateOnly))
	}

	out := resolvedInput{ListingInput: in, duration: DurationDays(in.DateAdded, in.EndDate)}
	switch {
	case in.CategoryID != "":
		if _, ok := m.Category(in.CategoryID); !ok {
			return resolvedInput{}, store.Missing("category", in.CategoryID)
		}
		out.categoryID = in.CategoryID
	case in.CategoryName != "":
		if existing, ok := m.categoryByName(in.CategoryName); ok {
			out.categoryID = existing.ID
		} else {
			out.newCategory = in.CategoryName
		}
	default:
		return resolvedInput{}, store.Invalid("category is required")
	}
	return out, nil
}

// duplicateOf finds an active listing in the category with the same name.
func (m *Manager) duplicateOf(categoryID string, name string, excludeID string) (domain.Listing, bool) {
	if categoryID == "" {
		return domain.Listing{}, false
	}
	now := m.now()
	for _, l := range m.listings {
		if l.ID == excludeID || l.CategoryID != categoryID {
			continue
		}
		if strings.EqualFold(l.Name, name) && !IsEnded(l, now) {
			return l, true
		}
	}
	return domain.Listing{}, false
}

func (m *Manager) checkDuplicate(in resolvedInput, excludeID string) error {
	if in.Confirmed {
		return nil
	}
	if existing, dup := m.duplicateOf(in.categoryID, in.Name, excludeID); dup {
		return &store.DuplicateError{ExistingID: existing.ID, Name: in.Name}
	}
	return nil
}

// ensureCategory creates the category named in the input, persisting it
// before the listing that references it is touched.
func (m *Manager) ensureCategory(ctx context.Context, in *resolvedInput) error {
	if in.newCategory == "" {
		return nil
	}
	category, err := m.CreateCategory(ctx, domain.CategoryInput{Name: in.newCategory, AverageDays: in.duration})
	if err != nil {
		return fmt.Errorf("create category %q: %w", in.newCategory, err)
	}
	in.categoryID = category.ID
	in.newCategory = ""
	return nil
}

// CreateListing adds a new active listing. A name clash with an active
// listing in the same category returns a *store.DuplicateError and
// changes nothing unless the input is Confirmed.
func (m *Manager) CreateListing(ctx context.Context, in domain.ListingInput) (domain.Listing, error) {
	resolved, err := m.resolve(in)
	if err != nil {
		return domain.Listing{}, err
	}
	if err := m.checkDuplicate(resolved, ""); err != nil {
		return domain.Listing{}, err
	}
	if err := m.ensureCategory(ctx, &resolved); err != nil {
		return domain.Listing{}, err
	}

	listing := domain.Listing{
		ID:          xid.New("lst"),
		CategoryID:  resolved.categoryID,
		Name:        resolved.Name,
		Description: resolved.Description,
		Note:        resolved.Note,
		PhotoRef:    resolved.PhotoRef,
		DateAdded:   resolved.DateAdded,
		Duration:    resolved.duration,
	}

	restore := m.snapshot()
	m.listings = append(m.listings, listing)
	if err := m.commit(ctx, restore); err != nil {
		return domain.Listing{}, err
	}
	m.logger.Info("listing created", zap.String("listing_id", listing.ID), zap.Int("duration", listing.Duration))
	return listing, nil
}

// EditListing replaces the editable fields and recomputes the duration.
// A manually ended, unsold listing whose new end date lies in the future
// is resurrected: the manual end is cleared and Resurrected is reported.
func (m *Manager) EditListing(ctx context.Context, id string, in domain.ListingInput) (domain.ListingEditResult, error) {
	idx := m.listingIndex(id)
	if idx < 0 {
		return domain.ListingEditResult{}, store.Missing("listing", id)
	}
	resolved, err := m.resolve(in)
	if err != nil {
		return domain.ListingEditResult{}, err
	}
	if err := m.checkDuplicate(resolved, id); err != nil {
		return domain.ListingEditResult{}, err
	}
	if err := m.ensureCategory(ctx, &resolved); err != nil {
		return domain.ListingEditResult{}, err
	}

	updated := m.listings[idx]
	updated.CategoryID = resolved.categoryID
	updated.Name = resolved.Name
	updated.Description = resolved.Description
	updated.Note = resolved.Note
	updated.PhotoRef = resolved.PhotoRef
	updated.DateAdded = resolved.DateAdded
	updated.Duration = resolved.duration

	result := domain.ListingEditResult{}
	if updated.ManuallyEnded && updated.SoldDate == nil && DaysLeft(updated, m.now()) > 0 {
		updated.ManuallyEnded = false
		updated.EndedDate = nil
		result.Resurrected = true
	}

	restore := m.snapshot()
	m.listings[idx] = updated
	if err := m.commit(ctx, restore); err != nil {
		return domain.ListingEditResult{}, err
	}
	if result.Resurrected {
		m.logger.Info("listing resurrected", zap.String("listing_id", id))
	}
	result.Listing = updated
	return result, nil
}

// EndListing ends a listing by hand. Ending an already ended listing
// returns it unchanged.
func (m *Manager) EndListing(ctx context.Context, id string) (domain.Listing, error) {
	idx := m.listingIndex(id)
	if idx < 0 {
		return domain.Listing{}, store.Missing("listing", id)
	}
	now := m.now()
	if IsEnded(m.listings[idx], now) {
		return m.listings[idx], nil
	}

	today := StartOfDay(now)
	restore := m.snapshot()
	m.listings[idx].ManuallyEnded = true
	m.listings[idx].EndedDate = &today
	if err := m.commit(ctx, restore); err != nil {
		return domain.Listing{}, err
	}
	return m.listings[idx], nil
}

func (m *Manager) DeleteListing(ctx context.Context, id string) error {
	idx := m.listingIndex(id)
	if idx < 0 {
		return store.Missing("listing", id)
	}

	restore := m.snapshot()
	listings := make([]domain.Listing, 0, len(m.listings)-1)
	listings = append(listings, m.listings[:idx]...)
	m.listings = append(listings, m.listings[idx+1:]...)
	return m.commit(ctx, restore)
}

// Sellable returns the listing if it exists and has not been sold.
func (m *Manager) Sellable(id string) (domain.Listing, error) {
	l, ok := m.Listing(id)
	if !ok {
		return domain.Listing{}, store.Missing("listing", id)
	}
	if l.SoldDate != nil {
		return domain.Listing{}, store.Invalid("listing %q is already sold", id)
	}
	return l, nil
}

// MarkSold stamps the sale onto the listing. manuallyEnded is set as well
// so filters that predate soldDate keep treating it as ended.
func (m *Manager) MarkSold(ctx context.Context, id string, price float64) (domain.Listing, error) {
	if _, err := m.Sellable(id); err != nil {
		return domain.Listing{}, err
	}
	idx := m.listingIndex(id)
	today := StartOfDay(m.now())

	restore := m.snapshot()
	l := m.listings[idx]
	l.ManuallyEnded = true
	if l.EndedDate == nil {
		l.EndedDate = &today
	}
	l.SoldDate = &today
	l.SoldPrice = &price
	m.listings[idx] = l
	if err := m.commit(ctx, restore); err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}
