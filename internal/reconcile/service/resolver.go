package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"price-recon/internal/reconcile/model"
)

// Staging defaults.
const (
	DefaultAutoAccept = 85
	DefaultMinFloor   = 35
)

// Ledger is the part of the mapping ledger the resolver reads and writes.
type Ledger interface {
	CanonicalByCapacity(ctx context.Context, capacity int) ([]model.CanonicalProduct, error)
	SetCanonicalLink(ctx context.Context, listingID, canonicalID int64) error
	ReplaceSuggestion(ctx context.Context, s model.PendingSuggestion) (model.PendingSuggestion, error)
}

// SingleThreshold accepts at t and rejects below it, with no review band.
func SingleThreshold(t int) model.Thresholds {
	return model.Thresholds{AutoAccept: t, MinFloor: t}
}

// DualThreshold stages scores in [floor, auto) for human review.
func DualThreshold(floor, auto int) model.Thresholds {
	return model.Thresholds{AutoAccept: auto, MinFloor: floor}
}

func ValidateThresholds(th model.Thresholds) error { return th.Validate() }

// Resolver links unresolved source listings to canonical products.
type Resolver struct {
	th  model.Thresholds
	log zerolog.Logger
}

func NewResolver(th model.Thresholds, logger zerolog.Logger) (*Resolver, error) {
	if err := ValidateThresholds(th); err != nil {
		return nil, err
	}
	return &Resolver{th: th, log: logger.With().Str("component", "resolver").Logger()}, nil
}

func (r *Resolver) Thresholds() model.Thresholds { return r.th }

// Decide classifies listing against pool. Only candidates with the listing's
// capacity are scored; the first of equally scored candidates wins, so pool
// order must be stable (the ledger returns it by canonical id).
func (r *Resolver) Decide(listing model.SourceListing, pool []model.CanonicalProduct) model.Decision {
	if listing.Capacity == nil {
		return model.Decision{Outcome: model.NoMatch, Reason: "capacity unknown"}
	}

	var (
		best      *model.CanonicalProduct
		bestScore = -1
	)
	for i := range pool {
		c := &pool[i]
		if c.Capacity == nil || *c.Capacity != *listing.Capacity {
			continue
		}
		if s := Score(listing.Title, c.Name); s > bestScore {
			best, bestScore = c, s
		}
	}
	if best == nil {
		return model.Decision{Outcome: model.NoMatch, Reason: "no candidate with same capacity"}
	}

	cand := *best
	switch {
	case bestScore >= r.th.AutoAccept:
		return model.Decision{Outcome: model.AutoMatched, Canonical: &cand, Score: bestScore}
	case bestScore >= r.th.MinFloor:
		return model.Decision{Outcome: model.RequiresHumanReview, Canonical: &cand, Score: bestScore}
	default:
		return model.Decision{Outcome: model.NoMatch, Canonical: &cand, Score: bestScore, Reason: "below floor"}
	}
}

// Apply writes a decision to the ledger. NO_MATCH writes nothing.
func (r *Resolver) Apply(ctx context.Context, led Ledger, listing model.SourceListing, d model.Decision) error {
	switch d.Outcome {
	case model.AutoMatched:
		if err := led.SetCanonicalLink(ctx, listing.ID, d.Canonical.ID); err != nil {
			return fmt.Errorf("link listing %d: %w", listing.ID, err)
		}
	case model.RequiresHumanReview:
		_, err := led.ReplaceSuggestion(ctx, model.PendingSuggestion{
			ListingID:   listing.ID,
			CanonicalID: d.Canonical.ID,
			Score:       d.Score,
		})
		if err != nil {
			return fmt.Errorf("suggest for listing %d: %w", listing.ID, err)
		}
	}

	ev := r.log.Debug()
	if d.Outcome == model.AutoMatched {
		ev = r.log.Info()
	}
	ev = ev.Int64("listing", listing.ID).Str("title", listing.Title).Str("outcome", string(d.Outcome)).Int("score", d.Score)
	if d.Canonical != nil {
		ev = ev.Int64("canonical", d.Canonical.ID)
	}
	ev.Msg("resolved")
	return nil
}

// Resolve loads the capacity pool for listing, decides and applies.
// Already linked listings are left alone.
func (r *Resolver) Resolve(ctx context.Context, led Ledger, listing model.SourceListing) (model.Decision, error) {
	if listing.Resolved() {
		return model.Decision{Outcome: model.NoMatch, Reason: "already linked"}, nil
	}
	var pool []model.CanonicalProduct
	if listing.Capacity != nil {
		var err error
		pool, err = led.CanonicalByCapacity(ctx, *listing.Capacity)
		if err != nil {
			return model.Decision{}, fmt.Errorf("load candidates: %w", err)
		}
	}
	d := r.Decide(listing, pool)
	if err := r.Apply(ctx, led, listing, d); err != nil {
		return model.Decision{}, err
	}
	return d, nil
}
