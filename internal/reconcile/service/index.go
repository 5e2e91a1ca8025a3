package service

import "price-recon/internal/reconcile/model"

// capacityIndex groups comparator items by capacity, keeping input order
// inside every bucket so the first-encountered tie-break holds.
type capacityIndex struct {
	byCapacity map[int][]int // capacity -> positions in items
}

func buildCapacityIndex(items []model.Item) *capacityIndex {
	idx := &capacityIndex{byCapacity: make(map[int][]int)}
	for i, it := range items {
		if it.Capacity == nil {
			continue
		}
		idx.byCapacity[*it.Capacity] = append(idx.byCapacity[*it.Capacity], i)
	}
	return idx
}

func (idx *capacityIndex) candidates(capacity *int) []int {
	if capacity == nil {
		return nil
	}
	return idx.byCapacity[*capacity]
}

// bestByScore returns the position of the strictly highest score among
// candidates and that score. Ties keep the earlier candidate. -1 when empty.
func bestByScore(title string, cands []int, name func(int) string) (int, int) {
	best, bestScore := -1, -1
	for _, c := range cands {
		if s := Score(title, name(c)); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, bestScore
}
