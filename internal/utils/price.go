package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	rxKeepNums  = regexp.MustCompile(`[^\d\.,\-]`)
	rxGrouped   = regexp.MustCompile(`^-?\d{1,3}([.,]\d{3})+$`)  // 3.500.000, 1,299,000
	rxDecimalAt = regexp.MustCompile(`^-?[\d.,]*\d[.,]\d{1,2}$`) // 1299.5, 1.299,90
)

// ParsePrice parses scraped price text: "Gs. 3.500.000", "₲ 1.299.000",
// "1 234,50", "2500000". Guaraní prices group thousands with dots, so a
// separator followed by exactly three digits is grouping, never decimal.
// Returns false for text without digits or for negative amounts.
func ParsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// NBSP/NNBSP and plain spaces inside the number
	repl := strings.NewReplacer("\u00A0", "", "\u202F", "", " ", "", "\t", "")
	s = rxKeepNums.ReplaceAllString(repl.Replace(s), "")
	s = strings.Trim(s, ".,")
	if s == "" || s == "-" {
		return 0, false
	}

	switch {
	case rxGrouped.MatchString(s):
		s = strings.NewReplacer(".", "", ",", "").Replace(s)
	case rxDecimalAt.MatchString(s):
		i := strings.LastIndexAny(s, ".,")
		s = strings.NewReplacer(".", "", ",", "").Replace(s[:i]) + "." + s[i+1:]
	default:
		s = strings.NewReplacer(".", "", ",", "").Replace(s)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}
