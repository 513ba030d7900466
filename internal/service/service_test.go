package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/ledger"
	"resaletracker/backend/internal/lifecycle"
	"resaletracker/backend/internal/recommendation"
	"resaletracker/backend/internal/registry"
	"resaletracker/backend/internal/store"
	"resaletracker/backend/internal/store/memory"
)

// scriptedStorage fails one chosen save of the ledger document.
type scriptedStorage struct {
	*store.Synchronizer
	ledgerSaves  int
	failLedgerAt int
}

func (s *scriptedStorage) Save(ctx context.Context, key string, value any) error {
	if strings.HasPrefix(key, registry.KindLedger+"_") {
		s.ledgerSaves++
		if s.ledgerSaves == s.failLedgerAt {
			return errors.New("ledger write refused")
		}
	}
	return s.Synchronizer.Save(ctx, key, value)
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func priced(v float64) *float64 {
	return &v
}

func newTestService(t *testing.T) (*Service, *memory.Store, *scriptedStorage) {
	t.Helper()
	local := memory.New(0)
	storage := &scriptedStorage{Synchronizer: store.NewSynchronizer(local, nil, 0, nil)}
	svc := New(storage, recommendation.NewEngine(30), "Main", nil)
	svc.SetClock(func() time.Time { return day("2024-01-15") })
	if _, err := svc.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	return svc, local, storage
}

func createCameraListing(t *testing.T, svc *Service) domain.Listing {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Listings().CreateCategory(ctx, domain.CategoryInput{Name: "Cameras", AverageDays: 30}); err != nil {
		t.Fatalf("create category: %v", err)
	}
	listing, err := svc.Listings().CreateListing(ctx, domain.ListingInput{
		CategoryName: "Cameras",
		Name:         "Canon AE-1",
		PhotoRef:     "photos/ae1.jpg",
		DateAdded:    day("2024-01-01"),
		EndDate:      day("2024-01-31"),
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return listing
}

var newPath = domain.SalePath{PeriodName: "Q1 2024", CategoryName: "Cameras", SubcategoryName: "Film SLR"}

func TestOpenCreatesDefaultStore(t *testing.T) {
	svc, local, _ := newTestService(t)

	current, ok := svc.CurrentStore()
	if !ok || current.Name != "Main" || current.ID != registry.HashID("Main") {
		t.Fatalf("unexpected current store: %+v", current)
	}
	if svc.Listings().Key() != "listings_"+current.ID || svc.Ledger().Key() != "ledger_"+current.ID {
		t.Fatalf("unexpected document keys: %s %s", svc.Listings().Key(), svc.Ledger().Key())
	}
	keys := strings.Join(local.Keys(), ",")
	if !strings.Contains(keys, registry.StoresKey) || !strings.Contains(keys, registry.CurrentStoreKey) {
		t.Fatalf("expected registry documents persisted, got %s", keys)
	}
}

func TestSellListingIntoNewPath(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	listing := createCameraListing(t, svc)

	result, err := svc.SellListing(ctx, listing.ID, domain.SaleRequest{Path: newPath, Price: priced(49.99)})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if result.Warning != "" {
		t.Fatalf("unexpected warning: %s", result.Warning)
	}
	if !result.Path.CreatedPeriod || !result.Path.CreatedCategory || !result.Path.CreatedSubcategory {
		t.Fatalf("expected the whole path created, got %+v", result.Path)
	}
	if result.Record.Label != "Canon AE-1" || result.Record.PhotoRef != "photos/ae1.jpg" || result.Record.Price != 49.99 {
		t.Fatalf("unexpected record: %+v", result.Record)
	}

	view, err := svc.Listings().View(listing.ID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.State != domain.ListingStateSold || !view.ManuallyEnded || view.SoldPrice == nil || *view.SoldPrice != 49.99 {
		t.Fatalf("expected sold listing, got %+v", view)
	}

	period, ok := svc.Ledger().Period(result.Path.PeriodID)
	if !ok {
		t.Fatalf("expected period %s", result.Path.PeriodID)
	}
	category := period.Categories[0]
	if category.Subcategories[0].Count() != 1 {
		t.Fatalf("expected count 1, got %d", category.Subcategories[0].Count())
	}
	if totals := ledger.AggregateCategoryTotals(category); totals.TotalMade != 49.99 {
		t.Fatalf("expected totalMade 49.99, got %v", totals.TotalMade)
	}

	if _, err := svc.SellListing(ctx, listing.ID, domain.SaleRequest{Path: newPath, Price: priced(10)}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected second sale rejected, got %v", err)
	}
}

func TestSellListingWarnsWhenListingSaveFails(t *testing.T) {
	ctx := context.Background()
	svc, local, _ := newTestService(t)
	listing := createCameraListing(t, svc)

	local.FailWrites(registry.KindListings+"_", errors.New("quota"))
	result, err := svc.SellListing(ctx, listing.ID, domain.SaleRequest{Path: newPath, Price: priced(49.99)})
	if err != nil {
		t.Fatalf("expected no hard failure, got %v", err)
	}
	if result.Warning != StaleListingWarning {
		t.Fatalf("expected stale listing warning, got %q", result.Warning)
	}
	if period, _ := svc.Ledger().Period(result.Path.PeriodID); period.Categories[0].Subcategories[0].Count() != 1 {
		t.Fatalf("expected ledger record kept")
	}
	if view, _ := svc.Listings().View(listing.ID); view.State == domain.ListingStateSold {
		t.Fatalf("expected listing left unsold in memory after failed save")
	}

	// retrying stamps the listing without recording the sale twice
	local.FailWrites("", nil)
	retry, err := svc.SellListing(ctx, listing.ID, domain.SaleRequest{Path: newPath, Price: priced(49.99)})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retry.Warning != "" || retry.Record.ID != result.Record.ID {
		t.Fatalf("expected retry to reuse record %s, got %+v", result.Record.ID, retry)
	}
	if period, _ := svc.Ledger().Period(result.Path.PeriodID); period.Categories[0].Subcategories[0].Count() != 1 {
		t.Fatalf("expected a single ledger record after retry")
	}
	if view, _ := svc.Listings().View(listing.ID); view.State != domain.ListingStateSold {
		t.Fatalf("expected listing sold after retry, got %s", view.State)
	}
}

func TestSellListingCompensatesCreatedPath(t *testing.T) {
	ctx := context.Background()
	svc, _, storage := newTestService(t)
	listing := createCameraListing(t, svc)

	// the path save succeeds, the record save fails
	storage.failLedgerAt = storage.ledgerSaves + 2
	if _, err := svc.SellListing(ctx, listing.ID, domain.SaleRequest{Path: newPath, Price: priced(49.99)}); err == nil {
		t.Fatalf("expected sale to fail")
	}
	if periods := svc.Ledger().Periods(); len(periods) != 0 {
		t.Fatalf("expected created path removed, got %d periods", len(periods))
	}
	if view, _ := svc.Listings().View(listing.ID); view.SoldDate != nil {
		t.Fatalf("expected listing untouched")
	}
}

func TestSellListingRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	listing := createCameraListing(t, svc)

	if _, err := svc.SellListing(ctx, "lst-missing", domain.SaleRequest{Path: newPath, Price: priced(1)}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.SellListing(ctx, listing.ID, domain.SaleRequest{Path: newPath, Price: priced(-1)}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.SellListing(ctx, listing.ID, domain.SaleRequest{Path: newPath}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for missing price, got %v", err)
	}
	if view, _ := svc.Listings().View(listing.ID); view.SoldDate != nil {
		t.Fatalf("expected listing left unsold without a price")
	}
	if _, err := svc.SellListing(ctx, listing.ID, domain.SaleRequest{Path: domain.SalePath{PeriodName: "Q1"}, Price: priced(1)}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for incomplete path, got %v", err)
	}
	if periods := svc.Ledger().Periods(); len(periods) != 0 {
		t.Fatalf("expected nothing created, got %d periods", len(periods))
	}
}

func TestSwitchStoreLoadsItsDocuments(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	createCameraListing(t, svc)
	main, _ := svc.CurrentStore()

	second, err := svc.CreateStore(ctx, "Flea Market")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if _, err := svc.SwitchStore(ctx, second.ID); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if got := len(svc.Listings().Listings(lifecycle.ListingFilter{})); got != 0 {
		t.Fatalf("expected empty store, got %d listings", got)
	}

	if err := svc.RemoveStore(ctx, second.ID); err != nil {
		t.Fatalf("remove store: %v", err)
	}
	current, _ := svc.CurrentStore()
	if current.ID != main.ID {
		t.Fatalf("expected fallback to %s, got %s", main.ID, current.ID)
	}
	if got := len(svc.Listings().Listings(lifecycle.ListingFilter{})); got != 1 {
		t.Fatalf("expected main store listings reloaded, got %d", got)
	}
}
