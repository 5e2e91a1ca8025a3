package fileio

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var reNonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normHeaderKey folds a column name: lower case, no accents, single spaces.
func normHeaderKey(s string) string {
	s = strings.ToLower(normalizeCell(s))
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(reNonWord.ReplaceAllString(s, " ")), " ")
}

// ResolveKey finds the header in rec that best matches want. want may list
// alternatives separated by "|" ("Descripción|Producto|Nombre"). Exact
// names win, then folded equality, then the longest containment either way.
// Returns "" when nothing matches.
func ResolveKey(rec map[string]string, want string) string {
	want = strings.TrimSpace(want)
	if want == "" {
		return ""
	}
	alts := strings.Split(want, "|")
	for i := range alts {
		alts[i] = strings.TrimSpace(alts[i])
	}
	for _, a := range alts {
		if _, ok := rec[a]; ok {
			return a
		}
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	folded := make([]string, 0, len(alts))
	for _, a := range alts {
		if n := normHeaderKey(a); n != "" {
			folded = append(folded, n)
		}
	}

	bestKey, bestScore := "", 0
	for _, k := range keys {
		nk := normHeaderKey(k)
		if nk == "" {
			continue
		}
		score := 0
		for _, n := range folded {
			if nk == n {
				return k
			}
			if strings.Contains(nk, n) || strings.Contains(n, nk) {
				score = max(score, min(len(n), len(nk)))
			}
		}
		if score > bestScore {
			bestScore, bestKey = score, k
		}
	}
	return bestKey
}
