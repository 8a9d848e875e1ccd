package product

import (
	"fmt"
	"strconv"
	"strings"
)

// GTINWidth is the canonical number of digits of a GTIN.
const GTINWidth = 13

var gtinSeparators = strings.NewReplacer(" ", "", "-", "", "_", "")

// NormalizeGTIN canonicalizes a raw barcode into a zero-padded 13-digit
// string. Spaces, hyphens and underscores are ignored, as is one leading
// plus sign. It reports false for blank input or anything that is not a
// base-10 number; numbers wider than 13 digits are rendered in full.
func NormalizeGTIN(raw string) (string, bool) {
	s := strings.TrimPrefix(gtinSeparators.Replace(strings.TrimSpace(raw)), "+")
	if s == "" {
		return "", false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%0*d", GTINWidth, n), true
}
