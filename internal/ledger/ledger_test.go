package ledger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/store"
	"resaletracker/backend/internal/store/memory"
)

func newTestLedger(t *testing.T) (*Ledger, *memory.Store) {
	t.Helper()
	local := memory.New(0)
	sync := store.NewSynchronizer(local, nil, 0, nil)
	l := New(sync, "ledger_test", nil)
	l.SetClock(func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) })
	return l, local
}

func price(v float64) *float64 {
	return &v
}

func count(v int) *int {
	return &v
}

func mustPeriod(t *testing.T, l *Ledger, name string) domain.Period {
	t.Helper()
	p, err := l.CreatePeriod(context.Background(), domain.PeriodInput{Name: name})
	if err != nil {
		t.Fatalf("create period %s: %v", name, err)
	}
	return p
}

func TestItemizedRowOverridesManualFields(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	period := mustPeriod(t, l, "Q1 2025")

	cat, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Lenses"}, []domain.SubcategoryRow{
		{
			Name:  "Primes",
			Count: count(9),
			Price: price(100),
			Items: []domain.SoldRecord{{Label: "50mm", Price: 5}, {Label: "35mm", Price: 7}},
		},
	})
	if err != nil {
		t.Fatalf("upsert category: %v", err)
	}

	sub := cat.Subcategories[0]
	if sub.Count() != 2 {
		t.Fatalf("expected count 2 from items, got %d", sub.Count())
	}
	if sub.UnitPrice() != nil {
		t.Fatalf("expected manual price dropped, got %v", *sub.UnitPrice())
	}
	totals := AggregateCategoryTotals(cat)
	if totals.TotalSold != 2 || totals.TotalMade != 12 || !totals.HasPrice {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestManualRowDefaultsAndZeroPrice(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	period := mustPeriod(t, l, "Q1 2025")

	cat, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Bags"}, []domain.SubcategoryRow{
		{Name: "Totes"},
		{Name: "Freebies", Count: count(3), Price: price(0)},
	})
	if err != nil {
		t.Fatalf("upsert category: %v", err)
	}
	if cat.Subcategories[0].Count() != 0 || cat.Subcategories[0].UnitPrice() != nil {
		t.Fatalf("expected count 0 and nil price defaults, got %+v", cat.Subcategories[0])
	}

	totals := AggregateCategoryTotals(cat)
	if totals.TotalSold != 3 || totals.TotalMade != 0 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	if !totals.HasPrice {
		t.Fatalf("expected a manual price of 0 to count as a price")
	}

	noPrice := AggregateCategoryTotals(domain.SoldCategory{Subcategories: cat.Subcategories[:1]})
	if noPrice.HasPrice {
		t.Fatalf("expected no price signal for an empty manual row")
	}
}

func TestUpsertEditKeepsNormalization(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	period := mustPeriod(t, l, "Q1 2025")

	cat, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Bags"}, []domain.SubcategoryRow{
		{Name: "Totes", Count: count(2), Price: price(10)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	subID := cat.Subcategories[0].ID

	edited, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{ID: cat.ID, Name: "Bags"}, []domain.SubcategoryRow{
		{ID: subID, Name: "Totes", Count: count(4), Price: price(10), Items: []domain.SoldRecord{{Label: "canvas", Price: 8}}},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(edited.Subcategories) != 1 || edited.Subcategories[0].ID != subID {
		t.Fatalf("expected subcategory id kept, got %+v", edited.Subcategories)
	}
	if edited.Subcategories[0].Count() != 1 || edited.Subcategories[0].UnitPrice() != nil {
		t.Fatalf("expected itemized normalization on edit, got %+v", edited.Subcategories[0])
	}
}

func TestAddSoldRecordValidatesAndGuardsSource(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	period := mustPeriod(t, l, "Q1 2025")
	cat, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Cameras"}, []domain.SubcategoryRow{{Name: "Film"}})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	subID := cat.Subcategories[0].ID

	if _, err := l.AddSoldRecord(ctx, subID, domain.SoldRecordInput{Label: "AE-1"}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for missing price, got %v", err)
	}
	if _, err := l.AddSoldRecord(ctx, subID, domain.SoldRecordInput{Label: "AE-1", Price: price(-1)}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}

	first, err := l.AddSoldRecord(ctx, subID, domain.SoldRecordInput{Label: "AE-1", Price: price(80), SourceID: "lst-1"})
	if err != nil {
		t.Fatalf("add record: %v", err)
	}
	again, err := l.AddSoldRecord(ctx, subID, domain.SoldRecordInput{Label: "AE-1", Price: price(80), SourceID: "lst-1"})
	if !errors.Is(err, store.ErrAlreadyRecorded) {
		t.Fatalf("expected already recorded, got %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("expected existing record returned, got %s", again.ID)
	}

	// same label and price from another listing is a separate sale
	if _, err := l.AddSoldRecord(ctx, subID, domain.SoldRecordInput{Label: "AE-1", Price: price(80), SourceID: "lst-2"}); err != nil {
		t.Fatalf("add second listing: %v", err)
	}
	period, _ = l.Period(period.ID)
	if got := period.Categories[0].Subcategories[0].Count(); got != 2 {
		t.Fatalf("expected count 2, got %d", got)
	}
}

func TestAddSoldRecordRejectsManualCount(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	period := mustPeriod(t, l, "Q1 2025")
	cat, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Bags"}, []domain.SubcategoryRow{
		{Name: "Totes", Count: count(3), Price: price(10)},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := l.AddSoldRecord(ctx, cat.Subcategories[0].ID, domain.SoldRecordInput{Price: price(5)}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func periodCount(p domain.Period) int {
	total := 0
	for _, c := range p.Categories {
		for _, s := range c.Subcategories {
			total += s.Count()
		}
	}
	return total
}

func TestMoveRecordConservesCount(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	period := mustPeriod(t, l, "Q1 2025")
	cat, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Cameras"}, []domain.SubcategoryRow{
		{Name: "Film", Items: []domain.SoldRecord{{Label: "AE-1", Price: 80}, {Label: "K1000", Price: 60}}},
		{Name: "Digital"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	from, to := cat.Subcategories[0], cat.Subcategories[1]
	recordID := from.Items()[1].ID

	before, _ := l.Period(period.ID)
	dest, err := l.MoveRecord(ctx, recordID, domain.MoveRecordRequest{FromSubcategoryID: from.ID, ToSubcategoryID: to.ID})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	after, _ := l.Period(period.ID)

	if periodCount(before) != periodCount(after) {
		t.Fatalf("expected count conserved, before %d after %d", periodCount(before), periodCount(after))
	}
	if dest.Count() != 1 || dest.Items()[0].ID != recordID {
		t.Fatalf("expected destination to hold the moved record, got %+v", dest)
	}
	if got := after.Categories[0].Subcategories[0].Count(); got != 1 {
		t.Fatalf("expected source to lose one record, got %d", got)
	}
}

func TestMoveRecordCreatesDestination(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	period := mustPeriod(t, l, "Q1 2025")
	cat, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Cameras"}, []domain.SubcategoryRow{
		{Name: "Film", Items: []domain.SoldRecord{{Label: "AE-1", Price: 80}}},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	recordID := cat.Subcategories[0].Items()[0].ID

	dest, err := l.MoveRecord(ctx, recordID, domain.MoveRecordRequest{
		Create: &domain.NewSubcategory{CategoryID: cat.ID, Name: "Rangefinders"},
	})
	if err != nil {
		t.Fatalf("move with create: %v", err)
	}
	if dest.Name != "Rangefinders" || dest.Count() != 1 || dest.Items()[0].ID != recordID {
		t.Fatalf("unexpected destination: %+v", dest)
	}
	after, _ := l.Period(period.ID)
	if src := after.Categories[0].Subcategories[0]; src.Count() != 0 || src.IsItemized() {
		t.Fatalf("expected source emptied back to manual, got %+v", src)
	}
}

func TestMoveRecordRollsBackWhenCreationFails(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	period := mustPeriod(t, l, "Q1 2025")
	cat, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Cameras"}, []domain.SubcategoryRow{
		{Name: "Film", Items: []domain.SoldRecord{{Label: "AE-1", Price: 80}}},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	recordID := cat.Subcategories[0].Items()[0].ID

	// a name clash makes on-the-fly creation fail after the source removal
	_, err = l.MoveRecord(ctx, recordID, domain.MoveRecordRequest{
		Create: &domain.NewSubcategory{CategoryID: cat.ID, Name: "film"},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	after, _ := l.Period(period.ID)
	if len(after.Categories[0].Subcategories) != 1 {
		t.Fatalf("expected no subcategory created, got %d", len(after.Categories[0].Subcategories))
	}
	if items := after.Categories[0].Subcategories[0].Items(); len(items) != 1 || items[0].ID != recordID {
		t.Fatalf("expected record restored in source, got %+v", items)
	}
}

func TestMoveRecordRollsBackWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	l, local := newTestLedger(t)
	period := mustPeriod(t, l, "Q1 2025")
	cat, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Cameras"}, []domain.SubcategoryRow{
		{Name: "Film", Items: []domain.SoldRecord{{Label: "AE-1", Price: 80}}},
		{Name: "Digital"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	recordID := cat.Subcategories[0].Items()[0].ID

	local.FailWrites("ledger_", errors.New("disk full"))
	if _, err := l.MoveRecord(ctx, recordID, domain.MoveRecordRequest{ToSubcategoryID: cat.Subcategories[1].ID}); err == nil {
		t.Fatalf("expected save failure")
	}
	after, _ := l.Period(period.ID)
	if after.Categories[0].Subcategories[0].Count() != 1 || after.Categories[0].Subcategories[1].Count() != 0 {
		t.Fatalf("expected move rolled back, got %+v", after.Categories[0].Subcategories)
	}
}

func TestMergeSubcategories(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	period := mustPeriod(t, l, "Q1 2025")
	cat, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Bags"}, []domain.SubcategoryRow{
		{Name: "Totes", Count: count(2), Price: price(10)},
		{Name: "Tote bags", Count: count(3)},
		{Name: "Clutches", Count: count(1), Price: price(12)},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	totes, toteBags, clutches := cat.Subcategories[0], cat.Subcategories[1], cat.Subcategories[2]

	merged, err := l.MergeSubcategories(ctx, toteBags.ID, totes.ID)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.Count() != 5 || merged.UnitPrice() == nil || *merged.UnitPrice() != 10 {
		t.Fatalf("unexpected merge result: count %d price %v", merged.Count(), merged.UnitPrice())
	}
	if _, err := l.MergeSubcategories(ctx, clutches.ID, totes.ID); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected conflicting prices rejected, got %v", err)
	}

	after, _ := l.Period(period.ID)
	if len(after.Categories[0].Subcategories) != 2 {
		t.Fatalf("expected merged source removed, got %d subcategories", len(after.Categories[0].Subcategories))
	}
}

func TestMoveCategoryMergesByName(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	q1 := mustPeriod(t, l, "Q1 2025")
	q2 := mustPeriod(t, l, "Q2 2025")

	moving, err := l.UpsertCategory(ctx, q1.ID, domain.SoldCategoryInput{Name: "Cameras"}, []domain.SubcategoryRow{
		{Name: "Film", Items: []domain.SoldRecord{{Label: "AE-1", Price: 80}}},
		{Name: "Digital", Count: count(1), Price: price(200)},
	})
	if err != nil {
		t.Fatalf("upsert q1: %v", err)
	}
	if _, err := l.UpsertCategory(ctx, q2.ID, domain.SoldCategoryInput{Name: "cameras"}, []domain.SubcategoryRow{
		{Name: "Film", Items: []domain.SoldRecord{{Label: "K1000", Price: 60}}},
	}); err != nil {
		t.Fatalf("upsert q2: %v", err)
	}

	moved, err := l.MoveCategory(ctx, moving.ID, q2.ID)
	if err != nil {
		t.Fatalf("move category: %v", err)
	}
	if len(moved.Subcategories) != 2 || moved.Subcategories[0].Count() != 2 {
		t.Fatalf("unexpected merged category: %+v", moved.Subcategories)
	}
	if p, _ := l.Period(q1.ID); len(p.Categories) != 0 {
		t.Fatalf("expected category removed from source period")
	}
	totals, err := l.PeriodTotals(q2.ID)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Total.TotalSold != 3 || totals.Total.TotalMade != 340 {
		t.Fatalf("unexpected period totals: %+v", totals.Total)
	}
}

func TestRemovePeriodMovesCurrentPointer(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	a := mustPeriod(t, l, "A")
	b := mustPeriod(t, l, "B")
	c := mustPeriod(t, l, "C")

	if current, _ := l.CurrentPeriod(); current.ID != a.ID {
		t.Fatalf("expected first period current, got %s", current.Name)
	}
	if err := l.SetCurrentPeriod(ctx, b.ID); err != nil {
		t.Fatalf("set current: %v", err)
	}
	if err := l.RemovePeriod(ctx, b.ID); err != nil {
		t.Fatalf("remove b: %v", err)
	}
	if current, _ := l.CurrentPeriod(); current.ID != c.ID {
		t.Fatalf("expected next period current, got %s", current.Name)
	}
	if err := l.RemovePeriod(ctx, c.ID); err != nil {
		t.Fatalf("remove c: %v", err)
	}
	if current, _ := l.CurrentPeriod(); current.ID != a.ID {
		t.Fatalf("expected new last period current, got %s", current.Name)
	}
	if err := l.RemovePeriod(ctx, a.ID); err != nil {
		t.Fatalf("remove a: %v", err)
	}
	if _, ok := l.CurrentPeriod(); ok {
		t.Fatalf("expected no current period")
	}
	if l.document().CurrentPeriodID != nil {
		t.Fatalf("expected current pointer cleared")
	}
}

func TestStaleCurrentPointerFallsBackToFirst(t *testing.T) {
	l, _ := newTestLedger(t)
	first := mustPeriod(t, l, "A")
	mustPeriod(t, l, "B")
	l.setCurrent("per-gone")

	current, ok := l.CurrentPeriod()
	if !ok || current.ID != first.ID {
		t.Fatalf("expected fallback to first period, got %+v", current)
	}
}

func TestEnsurePathCreatesAndRemovePathUndoes(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	ref, err := l.EnsurePath(ctx, domain.SalePath{PeriodName: "Q1 2025", CategoryName: "Cameras", SubcategoryName: "Film"})
	if err != nil {
		t.Fatalf("ensure path: %v", err)
	}
	if !ref.CreatedPeriod || !ref.CreatedCategory || !ref.CreatedSubcategory {
		t.Fatalf("expected every level created, got %+v", ref)
	}

	again, err := l.EnsurePath(ctx, domain.SalePath{PeriodName: "q1 2025", CategoryName: "cameras", SubcategoryName: "film"})
	if err != nil {
		t.Fatalf("ensure existing path: %v", err)
	}
	if again.SubcategoryID != ref.SubcategoryID || again.CreatedPeriod || again.CreatedCategory || again.CreatedSubcategory {
		t.Fatalf("expected existing path resolved, got %+v", again)
	}

	if err := l.RemovePath(ctx, ref); err != nil {
		t.Fatalf("remove path: %v", err)
	}
	if len(l.Periods()) != 0 {
		t.Fatalf("expected created period removed, got %d", len(l.Periods()))
	}
}

func TestRemovePathKeepsLevelsWithData(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	ref, err := l.EnsurePath(ctx, domain.SalePath{PeriodName: "Q1 2025", CategoryName: "Cameras", SubcategoryName: "Film"})
	if err != nil {
		t.Fatalf("ensure path: %v", err)
	}
	if _, err := l.AddSoldRecord(ctx, ref.SubcategoryID, domain.SoldRecordInput{Label: "AE-1", Price: price(80)}); err != nil {
		t.Fatalf("add record: %v", err)
	}
	if err := l.RemovePath(ctx, ref); err != nil {
		t.Fatalf("remove path: %v", err)
	}
	if p, ok := l.Period(ref.PeriodID); !ok || periodCount(p) != 1 {
		t.Fatalf("expected non-empty path kept")
	}
}

func TestReloadReadsPersistedLedger(t *testing.T) {
	ctx := context.Background()
	l, local := newTestLedger(t)
	period := mustPeriod(t, l, "Q1 2025")
	if _, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Cameras"}, []domain.SubcategoryRow{
		{Name: "Film", Items: []domain.SoldRecord{{Label: "AE-1", Price: 49.99}}},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	reloaded := New(store.NewSynchronizer(local, nil, 0, nil), "ledger_test", nil)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	current, ok := reloaded.CurrentPeriod()
	if !ok || current.ID != period.ID {
		t.Fatalf("expected current period persisted, got %+v", current)
	}
	totals := AggregateCategoryTotals(current.Categories[0])
	if totals.TotalSold != 1 || totals.TotalMade != 49.99 {
		t.Fatalf("unexpected totals after reload: %+v", totals)
	}
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	period := mustPeriod(t, l, "Q1 2025")
	if _, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Cameras"}, []domain.SubcategoryRow{
		{Name: "Film", Items: []domain.SoldRecord{{Label: "AE-1", Price: 80}}},
		{Name: "Bulk", Count: count(3), Price: price(2.5)},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var buf bytes.Buffer
	if err := l.ExportCSV(&buf, period.ID); err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "period,category,subcategory") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[2], "Bulk") || !strings.Contains(lines[2], "7.50") {
		t.Fatalf("expected manual summary row with revenue, got %s", lines[2])
	}

	if err := l.ExportCSV(&buf, "per-missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpsertRejectsRecordsOwnedElsewhere(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	period := mustPeriod(t, l, "Q1 2025")

	lenses, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Lenses"}, []domain.SubcategoryRow{
		{Name: "Primes", Items: []domain.SoldRecord{{Label: "50mm", Price: 5}}},
	})
	if err != nil {
		t.Fatalf("upsert lenses: %v", err)
	}
	taken := lenses.Subcategories[0].Items()[0]

	_, err = l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Bodies"}, []domain.SubcategoryRow{
		{Name: "Film", Items: []domain.SoldRecord{taken}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected record from another category rejected, got %v", err)
	}
	if _, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{Name: "Bodies"}, []domain.SubcategoryRow{
		{Name: "Film", ID: lenses.Subcategories[0].ID},
	}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected subcategory from another category rejected, got %v", err)
	}
	current, _ := l.Period(period.ID)
	if len(current.Categories) != 1 {
		t.Fatalf("expected nothing created, got %d categories", len(current.Categories))
	}

	_, err = l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{ID: lenses.ID, Name: "Lenses"}, []domain.SubcategoryRow{
		{Name: "Primes", Items: []domain.SoldRecord{taken}},
		{Name: "Zooms", Items: []domain.SoldRecord{taken}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected record listed twice rejected, got %v", err)
	}

	// a record may move between subcategories of its own category
	moved, err := l.UpsertCategory(ctx, period.ID, domain.SoldCategoryInput{ID: lenses.ID, Name: "Lenses"}, []domain.SubcategoryRow{
		{ID: lenses.Subcategories[0].ID, Name: "Primes"},
		{Name: "Zooms", Items: []domain.SoldRecord{taken}},
	})
	if err != nil {
		t.Fatalf("move within category: %v", err)
	}
	if moved.Subcategories[0].Count() != 0 || moved.Subcategories[1].Items()[0].ID != taken.ID {
		t.Fatalf("expected record moved to Zooms, got %+v", moved.Subcategories)
	}
}
