package util

import "strings"

// NormalizeSymbol is the stored form of a ticker: trimmed and upper case.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
