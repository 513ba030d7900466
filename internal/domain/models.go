package domain

import "time"

type Store struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AverageDays int    `json:"averageDays"`
}

type Listing struct {
	ID            string     `json:"id"`
	CategoryID    string     `json:"categoryId"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Note          string     `json:"note"`
	PhotoRef      string     `json:"photoRef"`
	DateAdded     time.Time  `json:"dateAdded"`
	Duration      int        `json:"duration"`
	ManuallyEnded bool       `json:"manuallyEnded"`
	EndedDate     *time.Time `json:"endedDate"`
	SoldDate      *time.Time `json:"soldDate"`
	SoldPrice     *float64   `json:"soldPrice"`
}

// EndDate is the calendar day the listing stops being active.
func (l Listing) EndDate() time.Time {
	return l.DateAdded.AddDate(0, 0, l.Duration)
}

type ListingState string

const (
	ListingStateActive       ListingState = "active"
	ListingStateEndedManual  ListingState = "ended_manual"
	ListingStateEndedExpired ListingState = "ended_expired"
	ListingStateSold         ListingState = "sold"
)

// ListingsDocument is the persisted shape of listings_<storeId>.
type ListingsDocument struct {
	Categories []Category `json:"categories"`
	Items      []Listing  `json:"items"`
}

type ListingView struct {
	Listing
	State    ListingState `json:"state"`
	DaysLeft int          `json:"daysLeft"`
	Ended    bool         `json:"ended"`
}

type ListingSummary struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	EndedManual  int `json:"endedManual"`
	EndedExpired int `json:"endedExpired"`
	Sold         int `json:"sold"`
}

type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AverageDays int    `json:"averageDays"`
}

// ListingInput carries the editable listing fields. CategoryName is used
// only when CategoryID is empty and creates the category on the fly.
type ListingInput struct {
	CategoryID   string    `json:"categoryId"`
	CategoryName string    `json:"categoryName"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Note         string    `json:"note"`
	PhotoRef     string    `json:"photoRef"`
	DateAdded    time.Time `json:"dateAdded"`
	EndDate      time.Time `json:"endDate"`
	Confirmed    bool      `json:"confirmed"`
}

type ListingEditResult struct {
	Listing     Listing `json:"listing"`
	Resurrected bool    `json:"resurrected"`
}

type EndDateSuggestion struct {
	CategoryID string    `json:"categoryId"`
	EndDate    time.Time `json:"endDate"`
	Days       int       `json:"days"`
	Source     string    `json:"source"`
}
