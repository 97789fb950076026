package domain

import (
	"regexp"
	"strings"
)

const (
	pairSeparator    = "-"
	storageSeparator = "/"
)

var pairPattern = regexp.MustCompile(`^[A-Z]{3}-[A-Z]{3}$`)

// IsValidPair reports whether candidate is exactly three uppercase letters,
// a hyphen and three uppercase letters.
func IsValidPair(candidate string) bool {
	return pairPattern.MatchString(candidate)
}

// ToStorageKey converts a hyphenated pair into the canonical slash form.
// Callers must validate the pair first.
func ToStorageKey(candidate string) string {
	return strings.ReplaceAll(candidate, pairSeparator, storageSeparator)
}

// JoinPair joins base and quote codes into the hyphenated form.
func JoinPair(base, quote string) string {
	return base + pairSeparator + quote
}

// SplitPair splits a canonical or hyphenated pair into its currency codes.
func SplitPair(pair string) (base string, quote string, ok bool) {
	if b, q, found := strings.Cut(pair, storageSeparator); found {
		return b, q, b != "" && q != ""
	}
	if b, q, found := strings.Cut(pair, pairSeparator); found {
		return b, q, b != "" && q != ""
	}
	return "", "", false
}
