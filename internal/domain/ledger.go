package domain

import (
	"encoding/json"
	"time"
)

type Period struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Categories  []SoldCategory `json:"categories"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type SoldCategory struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Subcategories []Subcategory `json:"subcategories"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type SoldRecord struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Price     float64   `json:"price"`
	PhotoRef  string    `json:"photoRef"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Volume is how a subcategory records what it sold: either Itemized
// records or a Manual count/price summary. Never both.
type Volume interface {
	isVolume()
}

type Itemized struct {
	Records []SoldRecord
}

type Manual struct {
	Count int
	Price *float64
}

func (Itemized) isVolume() {}
func (Manual) isVolume()   {}

// Subcategory holds its volume as a tagged variant. The flat
// {count, price, items} shape only exists at the JSON boundary.
type Subcategory struct {
	ID        string
	Name      string
	Volume    Volume
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewVolume picks the representation: any records make it itemized and
// the manual count/price are dropped.
func NewVolume(records []SoldRecord, count int, price *float64) Volume {
	if len(records) > 0 {
		return Itemized{Records: records}
	}
	if count < 0 {
		count = 0
	}
	return Manual{Count: count, Price: price}
}

func (s Subcategory) IsItemized() bool {
	v, ok := s.Volume.(Itemized)
	return ok && len(v.Records) > 0
}

func (s Subcategory) Items() []SoldRecord {
	if v, ok := s.Volume.(Itemized); ok {
		return v.Records
	}
	return nil
}

func (s Subcategory) Count() int {
	switch v := s.Volume.(type) {
	case Itemized:
		return len(v.Records)
	case Manual:
		return v.Count
	}
	return 0
}

// UnitPrice is the manual price; always nil for itemized subcategories.
func (s Subcategory) UnitPrice() *float64 {
	if v, ok := s.Volume.(Manual); ok {
		return v.Price
	}
	return nil
}

// WithRecords replaces the records, collapsing to an empty manual
// summary when none remain.
func (s Subcategory) WithRecords(records []SoldRecord) Subcategory {
	s.Volume = NewVolume(records, 0, nil)
	return s
}

type subcategoryJSON struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Count     int          `json:"count"`
	Price     *float64     `json:"price"`
	Items     []SoldRecord `json:"items"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (s Subcategory) MarshalJSON() ([]byte, error) {
	items := s.Items()
	if items == nil {
		items = []SoldRecord{}
	}
	return json.Marshal(subcategoryJSON{
		ID:        s.ID,
		Name:      s.Name,
		Count:     s.Count(),
		Price:     s.UnitPrice(),
		Items:     items,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	})
}

func (s *Subcategory) UnmarshalJSON(data []byte) error {
	var raw subcategoryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Subcategory{
		ID:        raw.ID,
		Name:      raw.Name,
		Volume:    NewVolume(raw.Items, raw.Count, raw.Price),
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}
	return nil
}

func (s Subcategory) Clone() Subcategory {
	out := s
	switch v := s.Volume.(type) {
	case Itemized:
		out.Volume = Itemized{Records: append([]SoldRecord(nil), v.Records...)}
	case Manual:
		if v.Price != nil {
			p := *v.Price
			v.Price = &p
		}
		out.Volume = v
	default:
		out.Volume = Manual{}
	}
	return out
}

func (c SoldCategory) Clone() SoldCategory {
	out := c
	out.Subcategories = make([]Subcategory, len(c.Subcategories))
	for i, sub := range c.Subcategories {
		out.Subcategories[i] = sub.Clone()
	}
	return out
}

func (p Period) Clone() Period {
	out := p
	out.Categories = make([]SoldCategory, len(p.Categories))
	for i, cat := range p.Categories {
		out.Categories[i] = cat.Clone()
	}
	return out
}

// LedgerDocument is the persisted shape of ledger_<storeId>.
type LedgerDocument struct {
	Periods         []Period `json:"periods"`
	CurrentPeriodID *string  `json:"currentPeriodId"`
}

type CategoryTotals struct {
	TotalSold int     `json:"totalSold"`
	TotalMade float64 `json:"totalMade"`
	HasPrice  bool    `json:"hasPrice"`
}

type PeriodTotals struct {
	PeriodID   string                    `json:"periodId"`
	Categories map[string]CategoryTotals `json:"categories"`
	Total      CategoryTotals            `json:"total"`
}

type PeriodInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MakeCurrent bool   `json:"makeCurrent"`
}

type SoldCategoryInput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SubcategoryRow is one row of an upsert. A non-empty Items payload makes
// the row itemized and Count/Price are ignored.
type SubcategoryRow struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Count *int         `json:"count"`
	Price *float64     `json:"price"`
	Items []SoldRecord `json:"items"`
}

type SoldRecordInput struct {
	Label    string   `json:"label"`
	Price    *float64 `json:"price"`
	PhotoRef string   `json:"photoRef"`
	// SourceID is the listing the record was sold from, if any. It is
	// encoded into the record id.
	SourceID string `json:"sourceId"`
}

// NewSubcategory asks a move to create the destination on the fly.
type NewSubcategory struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
}

type MoveRecordRequest struct {
	FromSubcategoryID string          `json:"fromSubcategoryId"`
	ToSubcategoryID   string          `json:"toSubcategoryId"`
	Create            *NewSubcategory `json:"create,omitempty"`
}

// SalePath names where a sale lands. Each level is either an existing id
// or a name to create.
type SalePath struct {
	PeriodID        string `json:"periodId"`
	PeriodName      string `json:"periodName"`
	CategoryID      string `json:"categoryId"`
	CategoryName    string `json:"categoryName"`
	SubcategoryID   string `json:"subcategoryId"`
	SubcategoryName string `json:"subcategoryName"`
}

// PathRef is a resolved SalePath plus which levels were created.
type PathRef struct {
	PeriodID           string `json:"periodId"`
	CategoryID         string `json:"categoryId"`
	SubcategoryID      string `json:"subcategoryId"`
	CreatedPeriod      bool   `json:"createdPeriod"`
	CreatedCategory    bool   `json:"createdCategory"`
	CreatedSubcategory bool   `json:"createdSubcategory"`
}

// SaleRequest carries the price as a pointer so a missing price is told
// apart from a sale at 0.
type SaleRequest struct {
	Path  SalePath `json:"path"`
	Price *float64 `json:"price"`
}

type SaleResult struct {
	Listing Listing    `json:"listing"`
	Record  SoldRecord `json:"record"`
	Path    PathRef    `json:"path"`
	// Warning is set when the sale was recorded in the ledger but the
	// listing could not be stamped.
	Warning string `json:"warning,omitempty"`
}
