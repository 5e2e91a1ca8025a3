package service

import (
	"math"

	"github.com/rs/zerolog"

	"price-recon/internal/reconcile/model"
)

const DefaultCompareThreshold = 90

// Comparator pairs every reference item (side A) with its best counterpart
// on side B and reports the price delta.
type Comparator struct {
	Threshold int // a pair must score strictly above it
	log       zerolog.Logger
}

func NewComparator(threshold int, logger zerolog.Logger) *Comparator {
	return &Comparator{
		Threshold: threshold,
		log:       logger.With().Str("component", "comparator").Logger(),
	}
}

// Compare expects items with derived attributes already set (see Prepare).
// Items of A without a qualifying match produce no record. Output follows A.
func (c *Comparator) Compare(a, b []model.Item) []model.ComparisonRecord {
	c.log.Info().Int("a", len(a)).Int("b", len(b)).Int("threshold", c.Threshold).Msg("compare start")

	idxB := buildCapacityIndex(b)
	rows := make([]model.ComparisonRecord, 0, len(a))

	for _, ar := range a {
		// capacity is a pre-filter: unknown or different capacity never pairs
		cands := idxB.candidates(ar.Capacity)
		best, score := bestByScore(ar.Name, cands, func(i int) string { return b[i].Name })
		if best < 0 || score <= c.Threshold {
			continue
		}
		matched := b[best]
		c.log.Debug().
			Str("a", ar.Name).
			Str("b", matched.Name).
			Int("score", score).
			Msg("match found")

		rows = append(rows, model.ComparisonRecord{
			Producto:    ar.Name,
			PriceA:      ar.Price,
			PriceB:      matched.Price,
			DiffPercent: DiffPercent(ar.Price, matched.Price),
		})
	}

	c.log.Info().Int("matched", len(rows)).Msg("compare done")
	return rows
}

// Report runs Compare and adds summary counts.
func (c *Comparator) Report(a, b []model.Item) model.CompareReport {
	rows := c.Compare(a, b)
	st := model.CompareStats{
		Compared:  len(a),
		Matched:   len(rows),
		Unmatched: len(a) - len(rows),
	}
	for _, r := range rows {
		switch {
		case r.DiffPercent < 0:
			st.Cheaper++
		case r.DiffPercent > 0:
			st.Pricier++
		}
	}
	return model.CompareReport{Records: rows, Stats: st, Threshold: c.Threshold}
}

// DiffPercent is (matched-reference)/reference*100 rounded to two decimals;
// 0 when the reference price is not positive.
func DiffPercent(reference, matched float64) float64 {
	if reference <= 0 || math.IsNaN(reference) || math.IsNaN(matched) {
		return 0
	}
	return round2((matched - reference) / reference * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LinkedReport compares every priced competitor listing with the canonical
// source listing linked to the same product. The first canonical source row
// of a product is its reference; a product without one compares against 0.
func LinkedReport(rows []model.LinkedPrice, canonicalSource string) []model.LinkedComparison {
	ref := make(map[int64]float64)
	for _, r := range rows {
		if r.Source != canonicalSource {
			continue
		}
		if _, ok := ref[r.CanonicalID]; ok {
			continue
		}
		ref[r.CanonicalID] = 0
		if r.Price != nil {
			ref[r.CanonicalID] = *r.Price
		}
	}

	out := make([]model.LinkedComparison, 0, len(rows))
	for _, r := range rows {
		if r.Source == canonicalSource || r.Price == nil {
			continue
		}
		pa := ref[r.CanonicalID]
		out = append(out, model.LinkedComparison{
			ComparisonRecord: model.ComparisonRecord{
				Producto:    r.CanonicalName,
				PriceA:      pa,
				PriceB:      *r.Price,
				DiffPercent: DiffPercent(pa, *r.Price),
			},
			CanonicalID: r.CanonicalID,
			ListingID:   r.ListingID,
			Source:      r.Source,
			Title:       r.Title,
		})
	}
	return out
}
