package ingest

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-recon/internal/ledger"
	"price-recon/internal/reconcile/model"
	"price-recon/internal/reconcile/service"
)

func newPipeline(t *testing.T, workers int) (*Pipeline, *ledger.Store) {
	t.Helper()
	store, err := ledger.Open(context.Background(), ledger.DriverSQLite, ":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	res, err := service.NewResolver(service.DualThreshold(35, 85), zerolog.Nop())
	require.NoError(t, err)
	return New(store, res, Options{CanonicalSource: "visuar", Workers: workers}, zerolog.Nop()), store
}

func raw(source, title string, price float64) model.RawListing {
	return model.RawListing{Source: source, Title: title, Price: model.Price{Value: price, Valid: true}}
}

// competitors first on purpose: canonical listings are staged before them anyway
func stagingBatch() []model.RawListing {
	return []model.RawListing{
		raw("bristol", "AIRE SPLIT SAMSUNG 12000BTU INVERTER", 3300000),
		raw("bristol", "AA SAMSUNG INV 12K", 3250000),
		raw("gonzalez", "Deshumidificador 12K", 1900000),
		raw("gonzalez", "Ventilador de pie Tokyo", 250000),
		raw("visuar", "Split Samsung 12000 BTU Inverter", 3500000),
		raw("visuar", "Split Samsung 18000 BTU Inverter", 4800000),
		raw("visuar", "Split LG Dual Inverter 12000 BTU", 3400000),
	}
}

func TestRun_StagesBatch(t *testing.T) {
	for _, workers := range []int{1, 4} {
		p, store := newPipeline(t, workers)
		ctx := context.Background()

		sum, err := p.Run(ctx, stagingBatch())
		require.NoError(t, err)
		assert.NotEmpty(t, sum.RunID)
		assert.Equal(t, 7, sum.Listings)
		assert.Equal(t, 7, sum.NewListings)
		assert.Equal(t, 3, sum.NewCanonical)
		assert.Equal(t, 7, sum.Prices)
		assert.Equal(t, 1, sum.AutoMatched)
		assert.Equal(t, 1, sum.Review)
		assert.Equal(t, 2, sum.NoMatch)

		canon, err := store.ListCanonical(ctx)
		require.NoError(t, err)
		require.Len(t, canon, 3)
		assert.Equal(t, "Split Samsung 12000 BTU Inverter", canon[0].Name)

		sugs, err := store.ListSuggestions(ctx)
		require.NoError(t, err)
		require.Len(t, sugs, 1)
		assert.Equal(t, "AA SAMSUNG INV 12K", sugs[0].Title)
		assert.Equal(t, canon[0].ID, sugs[0].CanonicalID)
		assert.Equal(t, 60, sugs[0].Score)

		unresolved, err := store.UnresolvedListings(ctx, "")
		require.NoError(t, err)
		titles := make([]string, 0, len(unresolved))
		for _, l := range unresolved {
			titles = append(titles, l.Title)
		}
		assert.ElementsMatch(t, []string{"AA SAMSUNG INV 12K", "Deshumidificador 12K", "Ventilador de pie Tokyo"}, titles)
	}
}

func TestRun_RepeatedBatchIsIdempotent(t *testing.T) {
	p, store := newPipeline(t, 2)
	ctx := context.Background()

	_, err := p.Run(ctx, stagingBatch())
	require.NoError(t, err)
	sum, err := p.Run(ctx, stagingBatch())
	require.NoError(t, err)

	assert.Equal(t, 0, sum.NewListings)
	assert.Equal(t, 0, sum.NewCanonical)
	assert.Equal(t, 7, sum.Prices)
	assert.Equal(t, 0, sum.AutoMatched)
	assert.Equal(t, 1, sum.Review)
	assert.Equal(t, 2, sum.NoMatch)

	canon, err := store.ListCanonical(ctx)
	require.NoError(t, err)
	assert.Len(t, canon, 3)

	sugs, err := store.ListSuggestions(ctx)
	require.NoError(t, err)
	assert.Len(t, sugs, 1)

	listings, err := store.UnresolvedListings(ctx, "bristol")
	require.NoError(t, err)
	require.Len(t, listings, 1)
	hist, err := store.PriceHistory(ctx, listings[0].ID)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestRun_MalformedPriceIsAbsent(t *testing.T) {
	p, store := newPipeline(t, 1)
	ctx := context.Background()

	sum, err := p.Run(ctx, []model.RawListing{
		{Source: "visuar", Title: "Split Midea 9000 BTU", Price: model.Price{}},
		raw("visuar", "Split Midea 24000 BTU", 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.NewListings)
	assert.Equal(t, 0, sum.NewCanonical)
	assert.Equal(t, 1, sum.Prices)

	canon, err := store.ListCanonical(ctx)
	require.NoError(t, err)
	assert.Empty(t, canon)
}

func TestRun_InvalidRecordRejectsBatch(t *testing.T) {
	p, store := newPipeline(t, 1)
	ctx := context.Background()

	_, err := p.Run(ctx, []model.RawListing{
		raw("bristol", "Split A 12000 BTU", 100),
		raw("bristol", "   ", 100),
	})
	require.ErrorIs(t, err, ErrInvalid)

	unresolved, err := store.UnresolvedListings(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, unresolved)
}

func TestRun_PersistenceFailureRollsBack(t *testing.T) {
	p, store := newPipeline(t, 2)
	ctx := context.Background()

	_, err := store.DB().ExecContext(ctx, `CREATE TRIGGER reject_poison BEFORE INSERT ON source_listings
		WHEN NEW.title = 'poison' BEGIN SELECT RAISE(ABORT, 'poisoned listing'); END`)
	require.NoError(t, err)

	_, err = p.Run(ctx, []model.RawListing{
		raw("visuar", "Split Samsung 12000 BTU Inverter", 3500000),
		raw("bristol", "Split A 12000 BTU", 100),
		raw("bristol", "poison", 100),
		raw("bristol", "Split C 12000 BTU", 100),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poisoned listing")

	canon, err := store.ListCanonical(ctx)
	require.NoError(t, err)
	assert.Empty(t, canon)

	unresolved, err := store.UnresolvedListings(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, unresolved)
}

func TestReresolve_PicksUpNewCanonical(t *testing.T) {
	p, store := newPipeline(t, 2)
	ctx := context.Background()

	sum, err := p.Run(ctx, []model.RawListing{raw("bristol", "SPLIT MIDEA 9000 BTU INVERTER", 2100000)})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.NoMatch)

	// canonical-only batch: no competitor listings to resolve in this run
	sum, err = p.Run(ctx, []model.RawListing{
		raw("visuar", "Split Midea 9000 BTU Inverter", 2200000),
		{Source: "visuar", Title: "Split Midea 30000 BTU", Price: model.Price{}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.NewCanonical)
	assert.Equal(t, 0, sum.AutoMatched+sum.Review+sum.NoMatch)

	sum, err = p.Reresolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Listings)
	assert.Equal(t, 1, sum.AutoMatched)

	unresolved, err := store.UnresolvedListings(ctx, "bristol")
	require.NoError(t, err)
	assert.Empty(t, unresolved)

	// the unpriced canonical-source listing is left for review, not resolved
	left, err := store.UnresolvedListings(ctx, "visuar")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "Split Midea 30000 BTU", left[0].Title)
}

func TestRun_DefaultsCanonicalSource(t *testing.T) {
	res, err := service.NewResolver(service.SingleThreshold(90), zerolog.Nop())
	require.NoError(t, err)
	p := New(nil, res, Options{}, zerolog.Nop())
	assert.Equal(t, DefaultCanonicalSource, p.CanonicalSource())
	assert.Equal(t, 1, p.workers)
}
