package recommendation

import (
	"math"
	"time"

	"resaletracker/backend/internal/domain"
)

const (
	SourceCategory = "category_average"
	SourceHistory  = "sell_history"
	SourceDefault  = "default"
)

// Engine suggests how long a new listing should run.
type Engine struct {
	defaultDays int
	minSamples  int
}

func NewEngine(defaultDays int) *Engine {
	if defaultDays < 1 {
		defaultDays = 30
	}
	return &Engine{
		defaultDays: defaultDays,
		minSamples:  1,
	}
}

// SuggestDays prefers the category's configured average, then the mean
// time-to-sell of the category's sold listings, then the default.
func (e *Engine) SuggestDays(category domain.Category, history []domain.Listing) (int, string) {
	if category.AverageDays > 0 {
		return category.AverageDays, SourceCategory
	}
	if days, ok := e.ObservedAverage(category.ID, history); ok {
		return days, SourceHistory
	}
	return e.defaultDays, SourceDefault
}

// ObservedAverage is the rounded mean days between listing and sale for
// sold listings in categoryID.
func (e *Engine) ObservedAverage(categoryID string, history []domain.Listing) (int, bool) {
	total, samples := 0.0, 0
	for _, l := range history {
		if l.CategoryID != categoryID || l.SoldDate == nil {
			continue
		}
		days := l.SoldDate.Sub(l.DateAdded).Hours() / 24
		if days < 0 {
			continue
		}
		total += days
		samples++
	}
	if samples < e.minSamples {
		return 0, false
	}
	days := int(math.Round(total / float64(samples)))
	if days < 1 {
		days = 1
	}
	return days, true
}

func (e *Engine) Suggest(category domain.Category, history []domain.Listing, dateAdded time.Time) domain.EndDateSuggestion {
	days, source := e.SuggestDays(category, history)
	return domain.EndDateSuggestion{
		CategoryID: category.ID,
		EndDate:    dateAdded.AddDate(0, 0, days),
		Days:       days,
		Source:     source,
	}
}
