package domain

import (
	"strings"
	"unicode"
)

type City struct {
	Slug          string
	Name          string
	State         string
	StoreCount    int     // recomputed from stores on every store mutation
	AverageRating float64 // mean of store ratings, one decimal
	ImageURL      string
	TimeZone      string // IANA name; empty falls back to the service default
}

// Slugify lowercases s and joins alphanumeric runs with single dashes:
// "Los Angeles" -> "los-angeles".
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func foldKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
