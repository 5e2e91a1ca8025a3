package ledger

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"price-recon/internal/reconcile/model"
)

const (
	canonicalCols = `id, name, brand, capacity, inverter, created_at`
	listingCols   = `id, source, title, capacity, inverter, canonical_id, created_at`
	priceCols     = `id, listing_id, price, in_stock, observed_at`
)

func getListingByKey(ctx context.Context, q sqlx.ExtContext, source, title string) (model.SourceListing, error) {
	var l model.SourceListing
	query := q.Rebind(`SELECT ` + listingCols + ` FROM source_listings WHERE source = ? AND title = ?`)
	if err := sqlx.GetContext(ctx, q, &l, query, source, title); err != nil {
		return l, notFound(err, "listing %s/%q", source, title)
	}
	return l, nil
}

func getListing(ctx context.Context, q sqlx.ExtContext, id int64) (model.SourceListing, error) {
	var l model.SourceListing
	query := q.Rebind(`SELECT ` + listingCols + ` FROM source_listings WHERE id = ?`)
	if err := sqlx.GetContext(ctx, q, &l, query, id); err != nil {
		return l, notFound(err, "listing %d", id)
	}
	return l, nil
}

func getCanonical(ctx context.Context, q sqlx.ExtContext, id int64) (model.CanonicalProduct, error) {
	var c model.CanonicalProduct
	query := q.Rebind(`SELECT ` + canonicalCols + ` FROM canonical_products WHERE id = ?`)
	if err := sqlx.GetContext(ctx, q, &c, query, id); err != nil {
		return c, notFound(err, "canonical product %d", id)
	}
	return c, nil
}

// canonicalByCapacity is ordered by id: the resolver's tie-break depends on it.
func canonicalByCapacity(ctx context.Context, q sqlx.ExtContext, capacity int) ([]model.CanonicalProduct, error) {
	out := []model.CanonicalProduct{}
	query := q.Rebind(`SELECT ` + canonicalCols + ` FROM canonical_products WHERE capacity = ? ORDER BY id`)
	if err := sqlx.SelectContext(ctx, q, &out, query, capacity); err != nil {
		return nil, fmt.Errorf("canonical products with capacity %d: %w", capacity, err)
	}
	return out, nil
}

// unresolvedListings returns unlinked listings, all sources when source is empty.
func unresolvedListings(ctx context.Context, q sqlx.ExtContext, source string) ([]model.SourceListing, error) {
	out := []model.SourceListing{}
	query := q.Rebind(`SELECT ` + listingCols + ` FROM source_listings
		WHERE canonical_id IS NULL AND (? = '' OR source = ?) ORDER BY id`)
	if err := sqlx.SelectContext(ctx, q, &out, query, source, source); err != nil {
		return nil, fmt.Errorf("unresolved listings: %w", err)
	}
	return out, nil
}

// ===== read side of the Store =====

func (s *Store) ListCanonical(ctx context.Context) ([]model.CanonicalProduct, error) {
	out := []model.CanonicalProduct{}
	if err := s.db.SelectContext(ctx, &out, `SELECT `+canonicalCols+` FROM canonical_products ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list canonical products: %w", err)
	}
	return out, nil
}

func (s *Store) UnresolvedListings(ctx context.Context, source string) ([]model.SourceListing, error) {
	return unresolvedListings(ctx, s.db, source)
}

func (s *Store) GetListing(ctx context.Context, id int64) (model.SourceListing, error) {
	return getListing(ctx, s.db, id)
}

// ListSuggestions returns pending suggestions, best scores first.
func (s *Store) ListSuggestions(ctx context.Context) ([]model.SuggestionView, error) {
	out := []model.SuggestionView{}
	const q = `SELECT p.id, p.listing_id, p.canonical_id, p.score, p.created_at,
			l.source, l.title, c.name AS canonical_name
		FROM pending_suggestions p
		JOIN source_listings l ON l.id = p.listing_id
		JOIN canonical_products c ON c.id = p.canonical_id
		ORDER BY p.score DESC, p.id`
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	return out, nil
}

// PriceHistory returns observations for a listing, oldest first.
func (s *Store) PriceHistory(ctx context.Context, listingID int64) ([]model.PriceObservation, error) {
	if _, err := getListing(ctx, s.db, listingID); err != nil {
		return nil, err
	}
	out := []model.PriceObservation{}
	q := s.db.Rebind(`SELECT ` + priceCols + ` FROM price_observations WHERE listing_id = ? ORDER BY observed_at, id`)
	if err := s.db.SelectContext(ctx, &out, q, listingID); err != nil {
		return nil, fmt.Errorf("price history of listing %d: %w", listingID, err)
	}
	return out, nil
}

// LinkedPrices returns every linked listing with its latest price, grouped
// by canonical product and ordered by listing id inside a group.
func (s *Store) LinkedPrices(ctx context.Context) ([]model.LinkedPrice, error) {
	out := []model.LinkedPrice{}
	const q = `SELECT c.id AS canonical_id, c.name AS canonical_name,
			l.id AS listing_id, l.source, l.title,
			(SELECT p.price FROM price_observations p
				WHERE p.listing_id = l.id
				ORDER BY p.observed_at DESC, p.id DESC LIMIT 1) AS price
		FROM canonical_products c
		JOIN source_listings l ON l.canonical_id = c.id
		ORDER BY c.id, l.id`
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("linked prices: %w", err)
	}
	return out, nil
}
