package utils

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// strips spaces, collapses inner whitespace, NFC-normalizes so the same title
// typed on two devices compares equal
func CleanupString(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}
