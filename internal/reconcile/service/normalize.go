package service

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"price-recon/internal/reconcile/model"
)

// 18.000 → 18000 (dot as thousands separator)
var reGroupDot = regexp.MustCompile(`(\d)\.(\d{3})`)

// number + capacity marker: "12k", "12 K", "18000btu", "9 BTU"
var reCapacity = regexp.MustCompile(`(\d{1,5})\s*(k|btu)`)

// standard split capacities written without a marker
var reStandardCapacity = regexp.MustCompile(`\b(9000|12000|18000|24000|30000|36000|60000)\b`)

var reInverter = regexp.MustCompile(`(?i)inverter|\binv\b`)

// values at or below this are thousands of BTU ("12 BTU" means 12000)
const thousandsCeiling = 60

// ExtractCapacity returns the cooling capacity in BTU named by title, or nil.
func ExtractCapacity(title string) *int {
	s := ungroupDots(strings.ToLower(title))

	if m := reCapacity.FindStringSubmatch(s); m != nil {
		v, err := strconv.Atoi(m[1])
		if err == nil {
			if m[2] == "k" || v <= thousandsCeiling {
				v *= 1000
			}
			return &v
		}
	}

	if m := reStandardCapacity.FindStringSubmatch(s); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return &v
		}
	}
	return nil
}

// IsInverter reports whether the title advertises inverter technology.
func IsInverter(title string) bool {
	return reInverter.MatchString(title)
}

// Prepare fills derived attributes of comparator items in place.
func Prepare(items []model.Item) {
	for i := range items {
		items[i].Capacity = ExtractCapacity(items[i].Name)
		items[i].Inverter = IsInverter(items[i].Name)
	}
}

// 3.500.000 needs two passes: matches do not overlap
func ungroupDots(s string) string {
	prev := ""
	for s != prev {
		prev = s
		s = reGroupDot.ReplaceAllString(s, "$1$2")
	}
	return s
}

// ===== scoring text =====

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lower-cases, drops diacritics and turns every non letter/digit into a space.
func fold(s string) string {
	if s == "" {
		return ""
	}
	if out, _, err := transform.String(foldAccents, s); err == nil {
		s = out
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return collapseSpaces(s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
