package shared

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText trims surrounding space and applies Unicode NFC so that
// visually identical names compare equal in unique indexes.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizeOptional applies NormalizeText to a nullable value. Blank values
// collapse to nil.
func NormalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := NormalizeText(*s)
	if v == "" {
		return nil
	}
	return &v
}
