// Package ingest runs staging passes: raw listings in, ledger links and
// review suggestions out.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"price-recon/internal/ledger"
	"price-recon/internal/reconcile/model"
	"price-recon/internal/reconcile/service"
)

var ErrInvalid = errors.New("invalid listing")

const DefaultCanonicalSource = "visuar"

type Options struct {
	CanonicalSource string
	Workers         int
}

// Pipeline serializes staging runs against one ledger.
type Pipeline struct {
	mu        sync.Mutex
	store     *ledger.Store
	resolver  *service.Resolver
	canonical string
	workers   int
	validate  *validator.Validate
	log       zerolog.Logger
}

func New(store *ledger.Store, resolver *service.Resolver, opts Options, logger zerolog.Logger) *Pipeline {
	if opts.CanonicalSource == "" {
		opts.CanonicalSource = DefaultCanonicalSource
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		store:     store,
		resolver:  resolver,
		canonical: opts.CanonicalSource,
		workers:   opts.Workers,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		log:       logger.With().Str("component", "ingest").Logger(),
	}
}

func (p *Pipeline) CanonicalSource() string { return p.canonical }

// Run stages one batch inside a single ledger transaction. Listings from
// the canonical source are stored first so competitors resolve against
// the products they introduce. Any failure rolls the whole batch back.
func (p *Pipeline) Run(ctx context.Context, raw []model.RawListing) (model.IngestSummary, error) {
	batch, err := p.clean(raw)
	if err != nil {
		return model.IngestSummary{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	sum := model.IngestSummary{RunID: uuid.NewString(), Listings: len(batch)}
	log := p.log.With().Str("run", sum.RunID).Logger()
	log.Info().Int("listings", len(batch)).Str("canonical_source", p.canonical).Msg("ingest started")
	start := time.Now()

	var primary, rest []model.RawListing
	for _, r := range batch {
		if r.Source == p.canonical {
			primary = append(primary, r)
		} else {
			rest = append(rest, r)
		}
	}

	err = p.store.WithTx(ctx, func(ctx context.Context, tx *ledger.Tx) error {
		for _, r := range primary {
			l, err := p.stage(ctx, tx, r, &sum)
			if err != nil {
				return err
			}
			if l.Resolved() || !r.Price.Positive() {
				continue
			}
			c, err := tx.CreateCanonical(ctx, model.CanonicalProduct{
				Name:     l.Title,
				Brand:    brandOf(r),
				Capacity: l.Capacity,
				Inverter: l.Inverter,
			})
			if err != nil {
				return err
			}
			if err := tx.SetCanonicalLink(ctx, l.ID, c.ID); err != nil {
				return err
			}
			sum.NewCanonical++
		}

		var pending []model.SourceListing
		seen := make(map[int64]bool)
		for _, r := range rest {
			l, err := p.stage(ctx, tx, r, &sum)
			if err != nil {
				return err
			}
			if !l.Resolved() && !seen[l.ID] {
				seen[l.ID] = true
				pending = append(pending, l)
			}
		}
		return p.resolveAll(ctx, tx, pending, &sum)
	})
	if err != nil {
		log.Error().Err(err).Msg("ingest rolled back")
		return model.IngestSummary{}, fmt.Errorf("ingest run %s: %w", sum.RunID, err)
	}

	log.Info().
		Int("new_listings", sum.NewListings).
		Int("new_canonical", sum.NewCanonical).
		Int("prices", sum.Prices).
		Int("auto_matched", sum.AutoMatched).
		Int("review", sum.Review).
		Int("no_match", sum.NoMatch).
		Dur("took", time.Since(start)).
		Msg("ingest finished")
	return sum, nil
}

// Reresolve retries every unresolved competitor listing against the
// current canonical catalogue.
func (p *Pipeline) Reresolve(ctx context.Context) (model.IngestSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sum := model.IngestSummary{RunID: uuid.NewString()}
	log := p.log.With().Str("run", sum.RunID).Logger()

	err := p.store.WithTx(ctx, func(ctx context.Context, tx *ledger.Tx) error {
		all, err := tx.UnresolvedListings(ctx, "")
		if err != nil {
			return err
		}
		pending := all[:0]
		for _, l := range all {
			if l.Source != p.canonical {
				pending = append(pending, l)
			}
		}
		sum.Listings = len(pending)
		return p.resolveAll(ctx, tx, pending, &sum)
	})
	if err != nil {
		log.Error().Err(err).Msg("re-resolve rolled back")
		return model.IngestSummary{}, fmt.Errorf("re-resolve %s: %w", sum.RunID, err)
	}
	log.Info().
		Int("listings", sum.Listings).
		Int("auto_matched", sum.AutoMatched).
		Int("review", sum.Review).
		Int("no_match", sum.NoMatch).
		Msg("re-resolve finished")
	return sum, nil
}

// stage upserts the listing and records its price when one was given.
func (p *Pipeline) stage(ctx context.Context, tx *ledger.Tx, r model.RawListing, sum *model.IngestSummary) (model.SourceListing, error) {
	l, created, err := tx.GetOrCreateListing(ctx, r.Source, r.Title)
	if err != nil {
		return model.SourceListing{}, err
	}
	if created {
		sum.NewListings++
	}
	if r.Price.Valid {
		if _, err := tx.AppendPrice(ctx, model.PriceObservation{
			ListingID: l.ID,
			Price:     r.Price.Value,
			InStock:   r.Stock(),
		}); err != nil {
			return model.SourceListing{}, err
		}
		sum.Prices++
	}
	return l, nil
}

// resolveAll loads capacity pools once, scores listings in parallel and
// applies the decisions in input order.
func (p *Pipeline) resolveAll(ctx context.Context, tx *ledger.Tx, listings []model.SourceListing, sum *model.IngestSummary) error {
	pools := make(map[int][]model.CanonicalProduct)
	for _, l := range listings {
		if l.Capacity == nil {
			continue
		}
		if _, ok := pools[*l.Capacity]; ok {
			continue
		}
		pool, err := tx.CanonicalByCapacity(ctx, *l.Capacity)
		if err != nil {
			return err
		}
		pools[*l.Capacity] = pool
	}

	decisions := make([]model.Decision, len(listings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, l := range listings {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var pool []model.CanonicalProduct
			if l.Capacity != nil {
				pool = pools[*l.Capacity]
			}
			decisions[i] = p.resolver.Decide(l, pool)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, l := range listings {
		d := decisions[i]
		if err := p.resolver.Apply(ctx, tx, l, d); err != nil {
			return err
		}
		switch d.Outcome {
		case model.AutoMatched:
			sum.AutoMatched++
		case model.RequiresHumanReview:
			sum.Review++
		default:
			sum.NoMatch++
		}
	}
	return nil
}

// clean trims text fields and validates every record before anything is written.
func (p *Pipeline) clean(raw []model.RawListing) ([]model.RawListing, error) {
	out := make([]model.RawListing, len(raw))
	for i, r := range raw {
		r.Source = strings.TrimSpace(r.Source)
		r.Title = strings.TrimSpace(r.Title)
		r.Brand = strings.TrimSpace(r.Brand)
		if err := p.validate.Struct(r); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalid, i, err)
		}
		out[i] = r
	}
	return out, nil
}

func brandOf(r model.RawListing) *string {
	if r.Brand == "" {
		return nil
	}
	b := r.Brand
	return &b
}
