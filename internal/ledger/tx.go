package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"price-recon/internal/reconcile/model"
	"price-recon/internal/reconcile/service"
)

// Tx is the write side of the ledger, valid until WithTx returns.
type Tx struct {
	tx  *sqlx.Tx
	now func() time.Time
}

// GetOrCreateListing returns the listing for (source, title), creating it
// with derived attributes when it does not exist yet. created reports which.
func (t *Tx) GetOrCreateListing(ctx context.Context, source, title string) (l model.SourceListing, created bool, err error) {
	l, err = getListingByKey(ctx, t.tx, source, title)
	if err == nil {
		return l, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.SourceListing{}, false, err
	}

	l = model.SourceListing{
		Source:    source,
		Title:     title,
		Capacity:  service.ExtractCapacity(title),
		Inverter:  service.IsInverter(title),
		CreatedAt: t.now(),
	}
	q := t.tx.Rebind(`INSERT INTO source_listings (source, title, capacity, inverter, created_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	if err := t.tx.QueryRowxContext(ctx, q, l.Source, l.Title, l.Capacity, l.Inverter, l.CreatedAt).Scan(&l.ID); err != nil {
		return model.SourceListing{}, false, fmt.Errorf("insert listing %s/%q: %w", source, title, err)
	}
	return l, true, nil
}

func (t *Tx) CreateCanonical(ctx context.Context, c model.CanonicalProduct) (model.CanonicalProduct, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = t.now()
	}
	q := t.tx.Rebind(`INSERT INTO canonical_products (name, brand, capacity, inverter, created_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	if err := t.tx.QueryRowxContext(ctx, q, c.Name, c.Brand, c.Capacity, c.Inverter, c.CreatedAt).Scan(&c.ID); err != nil {
		return model.CanonicalProduct{}, fmt.Errorf("insert canonical %q: %w", c.Name, err)
	}
	return c, nil
}

func (t *Tx) AppendPrice(ctx context.Context, p model.PriceObservation) (model.PriceObservation, error) {
	if p.ObservedAt.IsZero() {
		p.ObservedAt = t.now()
	}
	q := t.tx.Rebind(`INSERT INTO price_observations (listing_id, price, in_stock, observed_at)
		VALUES (?, ?, ?, ?) RETURNING id`)
	if err := t.tx.QueryRowxContext(ctx, q, p.ListingID, p.Price, p.InStock, p.ObservedAt).Scan(&p.ID); err != nil {
		return model.PriceObservation{}, fmt.Errorf("insert price for listing %d: %w", p.ListingID, err)
	}
	return p, nil
}

// ReplaceSuggestion drops whatever the listing had pending and stores s.
func (t *Tx) ReplaceSuggestion(ctx context.Context, s model.PendingSuggestion) (model.PendingSuggestion, error) {
	if _, err := t.tx.ExecContext(ctx, t.tx.Rebind(`DELETE FROM pending_suggestions WHERE listing_id = ?`), s.ListingID); err != nil {
		return model.PendingSuggestion{}, fmt.Errorf("clear suggestion for listing %d: %w", s.ListingID, err)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = t.now()
	}
	q := t.tx.Rebind(`INSERT INTO pending_suggestions (listing_id, canonical_id, score, created_at)
		VALUES (?, ?, ?, ?) RETURNING id`)
	if err := t.tx.QueryRowxContext(ctx, q, s.ListingID, s.CanonicalID, s.Score, s.CreatedAt).Scan(&s.ID); err != nil {
		return model.PendingSuggestion{}, fmt.Errorf("insert suggestion for listing %d: %w", s.ListingID, err)
	}
	return s, nil
}

// SetCanonicalLink links the listing and drops its pending suggestion.
func (t *Tx) SetCanonicalLink(ctx context.Context, listingID, canonicalID int64) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`UPDATE source_listings SET canonical_id = ? WHERE id = ?`), canonicalID, listingID)
	if err != nil {
		return fmt.Errorf("link listing %d: %w", listingID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("listing %d: %w", listingID, ErrNotFound)
	}
	if _, err := t.tx.ExecContext(ctx, t.tx.Rebind(`DELETE FROM pending_suggestions WHERE listing_id = ?`), listingID); err != nil {
		return fmt.Errorf("clear suggestion for listing %d: %w", listingID, err)
	}
	return nil
}

func (t *Tx) CanonicalByCapacity(ctx context.Context, capacity int) ([]model.CanonicalProduct, error) {
	return canonicalByCapacity(ctx, t.tx, capacity)
}

func (t *Tx) UnresolvedListings(ctx context.Context, source string) ([]model.SourceListing, error) {
	return unresolvedListings(ctx, t.tx, source)
}

func (t *Tx) GetListing(ctx context.Context, id int64) (model.SourceListing, error) {
	return getListing(ctx, t.tx, id)
}

func (t *Tx) GetCanonical(ctx context.Context, id int64) (model.CanonicalProduct, error) {
	return getCanonical(ctx, t.tx, id)
}

func (t *Tx) GetSuggestion(ctx context.Context, id int64) (model.PendingSuggestion, error) {
	var s model.PendingSuggestion
	q := t.tx.Rebind(`SELECT id, listing_id, canonical_id, score, created_at FROM pending_suggestions WHERE id = ?`)
	if err := sqlx.GetContext(ctx, t.tx, &s, q, id); err != nil {
		return s, notFound(err, "suggestion %d", id)
	}
	return s, nil
}

func (t *Tx) DeleteSuggestion(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`DELETE FROM pending_suggestions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete suggestion %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("suggestion %d: %w", id, ErrNotFound)
	}
	return nil
}

// notFound maps sql.ErrNoRows onto ErrNotFound and wraps anything else.
func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
