package listing

import (
	"fmt"
	"strings"
)

type Unit string

const (
	Kilometers Unit = "km"
	Miles      Unit = "mi"
)

const kmPerMile = 1.609344

// ParseUnit defaults to kilometers.
func ParseUnit(s string) Unit {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mi", "mile", "miles":
		return Miles
	}
	return Kilometers
}

// FormatDistance renders km as "2.3 km away" or, for Miles, "1.4 mi away".
func FormatDistance(km float64, u Unit) string {
	if u == Miles {
		return fmt.Sprintf("%.1f mi away", km/kmPerMile)
	}
	return fmt.Sprintf("%.1f km away", km)
}
