package record

import (
	"strconv"
	"strings"
	"unicode"
)

// CanonicalGeoID normalizes a raw geographic code to its canonical form.
// Non-digit characters are stripped and the remainder is re-parsed as an
// integer, so "'004", "4" and "M49:004" all yield "4". Returns false when the
// input carries no digits.
func CanonicalGeoID(raw string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return "", false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}

// GeoIDNumber returns the integer value of a canonical GeoIdentifier.
func GeoIDNumber(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
