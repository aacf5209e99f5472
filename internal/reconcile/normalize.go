package reconcile

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	foldCaser = cases.Fold()

	// numberUnitRe matches a digit glued to a unit letter, e.g. "1270mm".
	numberUnitRe = regexp.MustCompile(`(\d)([a-zA-Zµ°])`)
	// decimalCommaRe matches a decimal comma between digits, e.g. "1,5".
	decimalCommaRe = regexp.MustCompile(`(\d),(\d)`)
	wsRe           = regexp.MustCompile(`\s+`)
)

// normalizeValue canonicalizes a claimed value so that trivially equivalent
// spellings compare equal: case folding, Unicode compatibility
// normalization, whitespace collapsing, decimal-comma unification, and a
// single space between a number and its unit ("1270mm" ≡ "1270 mm").
func normalizeValue(s string) string {
	s = norm.NFKC.String(s)
	s = foldCaser.String(s)
	s = decimalCommaRe.ReplaceAllString(s, "$1.$2")
	s = numberUnitRe.ReplaceAllString(s, "$1 $2")
	s = wsRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// normalizeName canonicalizes a property name for claim grouping.
func normalizeName(s string) string {
	return strings.TrimSpace(foldCaser.String(norm.NFKC.String(s)))
}
