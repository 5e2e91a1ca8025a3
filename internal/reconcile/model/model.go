package model

import (
	"fmt"
	"time"
)

// Item is one listing as the comparator sees it: a title, a price and the
// attributes derived from the title.
type Item struct {
	Name     string  `json:"name"`
	Source   string  `json:"source,omitempty"`
	Brand    string  `json:"brand,omitempty"`
	Price    float64 `json:"price"`
	Capacity *int    `json:"capacity,omitempty"` // BTU, nil when the title names none
	Inverter bool    `json:"inverter"`
}

// ComparisonRecord is one matched pair. Field names are the export contract.
type ComparisonRecord struct {
	Producto    string  `json:"producto"`
	PriceA      float64 `json:"price_a"`
	PriceB      float64 `json:"price_b"`
	DiffPercent float64 `json:"diff_percent"`
}

// LinkedPrice is a listing linked to a canonical product with its latest
// observed price; Price is nil when nothing was observed yet.
type LinkedPrice struct {
	CanonicalID   int64    `db:"canonical_id"`
	CanonicalName string   `db:"canonical_name"`
	ListingID     int64    `db:"listing_id"`
	Source        string   `db:"source"`
	Title         string   `db:"title"`
	Price         *float64 `db:"price"`
}

// LinkedComparison is a ComparisonRecord for a pair already matched in the
// ledger: PriceA comes from the canonical source, PriceB from Source.
type LinkedComparison struct {
	ComparisonRecord
	CanonicalID int64  `json:"canonical_id"`
	ListingID   int64  `json:"listing_id"`
	Source      string `json:"source"`
	Title       string `json:"title"`
}

type CompareStats struct {
	Compared  int `json:"compared"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
	Cheaper   int `json:"cheaper"` // B below A
	Pricier   int `json:"pricier"` // B above A
}

type CompareReport struct {
	Records   []ComparisonRecord `json:"records"`
	Stats     CompareStats       `json:"stats"`
	Threshold int                `json:"threshold"`
}

// Mapping names the columns of an uploaded table.
type Mapping struct {
	NameKey   string // title column
	PriceKey  string // price column
	BrandKey  string // brand column (optional)
	HeaderRow int    // header row (1-based)
}

type CanonicalProduct struct {
	ID        int64     `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	Brand     *string   `json:"brand"      db:"brand"`
	Capacity  *int      `json:"capacity"   db:"capacity"`
	Inverter  bool      `json:"inverter"   db:"inverter"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type SourceListing struct {
	ID          int64     `json:"id"           db:"id"`
	Source      string    `json:"source"       db:"source"`
	Title       string    `json:"title"        db:"title"`
	Capacity    *int      `json:"capacity"     db:"capacity"`
	Inverter    bool      `json:"inverter"     db:"inverter"`
	CanonicalID *int64    `json:"canonical_id" db:"canonical_id"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}

func (l SourceListing) Resolved() bool { return l.CanonicalID != nil }

type PendingSuggestion struct {
	ID          int64     `json:"id"           db:"id"`
	ListingID   int64     `json:"listing_id"   db:"listing_id"`
	CanonicalID int64     `json:"canonical_id" db:"canonical_id"`
	Score       int       `json:"score"        db:"score"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}

// SuggestionView is a pending suggestion joined with what a reviewer needs to see.
type SuggestionView struct {
	PendingSuggestion
	Source        string `json:"source"         db:"source"`
	Title         string `json:"title"          db:"title"`
	CanonicalName string `json:"canonical_name" db:"canonical_name"`
}

type PriceObservation struct {
	ID         int64     `json:"id"          db:"id"`
	ListingID  int64     `json:"listing_id"  db:"listing_id"`
	Price      float64   `json:"price"       db:"price"`
	InStock    bool      `json:"in_stock"    db:"in_stock"`
	ObservedAt time.Time `json:"observed_at" db:"observed_at"`
}

// Outcome classifies one resolution attempt.
type Outcome string

const (
	AutoMatched         Outcome = "AUTO_MATCHED"
	RequiresHumanReview Outcome = "REQUIRES_HUMAN_REVIEW"
	NoMatch             Outcome = "NO_MATCH"
)

// Decision is the resolver's verdict for one listing.
type Decision struct {
	Outcome   Outcome           `json:"outcome"`
	Canonical *CanonicalProduct `json:"canonical,omitempty"` // best candidate, also set on NO_MATCH below the floor
	Score     int               `json:"score"`
	Reason    string            `json:"reason,omitempty"`
}

// Thresholds drive the resolver. AutoAccept == MinFloor is single-threshold mode.
type Thresholds struct {
	AutoAccept int `json:"auto_accept"`
	MinFloor   int `json:"min_floor"`
}

func (t Thresholds) Validate() error {
	if t.MinFloor < 0 || t.AutoAccept > 100 || t.MinFloor > t.AutoAccept {
		return fmt.Errorf("invalid thresholds: need 0 <= floor (%d) <= auto-accept (%d) <= 100", t.MinFloor, t.AutoAccept)
	}
	return nil
}

// RawListing is one record handed over by the scraping collaborator.
type RawListing struct {
	Source  string `json:"source"   validate:"required,max=64"`
	Title   string `json:"title"    validate:"required,max=512"`
	Price   Price  `json:"price"`
	InStock *bool  `json:"in_stock"`
	Brand   string `json:"brand,omitempty"`
}

// Stock defaults to true when the collaborator did not say.
func (r RawListing) Stock() bool {
	if r.InStock == nil {
		return true
	}
	return *r.InStock
}

// Price is a scraped price: a JSON number or the raw price text. Valid is
// false when the text could not be parsed.
type Price struct {
	Value float64
	Valid bool
}

// Positive reports whether the price can seed a canonical product.
func (p Price) Positive() bool { return p.Valid && p.Value > 0 }

type IngestSummary struct {
	RunID        string `json:"run_id"`
	Listings     int    `json:"listings"`
	NewListings  int    `json:"new_listings"`
	NewCanonical int    `json:"new_canonical"`
	Prices       int    `json:"prices"`
	AutoMatched  int    `json:"auto_matched"`
	Review       int    `json:"review"`
	NoMatch      int    `json:"no_match"`
}
