package service

import (
	"math"
	"sort"
	"strings"
)

// Score is the token-set similarity of two titles in [0..100]: word order,
// punctuation, case and repeated words do not matter, and a title that only
// adds words to another one still scores 100.
func Score(a, b string) int {
	fa, fb := fold(a), fold(b)
	if fa == fb {
		return 100
	}
	if fa == "" || fb == "" {
		return 0
	}

	inter, onlyA, onlyB := splitTokens(tokenSet(fa), tokenSet(fb))
	if len(inter) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	t0 := strings.Join(inter, " ")
	t1 := strings.TrimSpace(t0 + " " + strings.Join(onlyA, " "))
	t2 := strings.TrimSpace(t0 + " " + strings.Join(onlyB, " "))

	best := indelRatio(t1, t2)
	if t0 != "" {
		best = max(best, indelRatio(t0, t1), indelRatio(t0, t2))
	}
	// ties go to the even score
	return int(math.RoundToEven(best * 100))
}

func tokenSet(s string) map[string]struct{} {
	m := make(map[string]struct{})
	for _, t := range strings.Fields(s) {
		m[t] = struct{}{}
	}
	return m
}

// splitTokens returns the sorted intersection and the sorted differences.
func splitTokens(a, b map[string]struct{}) (inter, onlyA, onlyB []string) {
	for t := range a {
		if _, ok := b[t]; ok {
			inter = append(inter, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range b {
		if _, ok := a[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)
	return inter, onlyA, onlyB
}
