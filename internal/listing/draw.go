package listing

import (
	"math"
	"math/rand/v2"
	"strconv"
)

// Draw is the single random value r in [0,1) taken when a listing page is
// first loaded. Clients echo it back on filter changes so the featured
// sponsor stays put for the rest of that page view.
type Draw float64

// NewDraw takes one value from src, or from the global source when src is nil.
func NewDraw(src *rand.Rand) Draw {
	if src == nil {
		return Draw(rand.Float64())
	}
	return Draw(src.Float64())
}

// ParseDraw accepts a previously issued draw. ok is false for anything
// outside [0,1) so the caller can issue a fresh one.
func ParseDraw(raw string) (Draw, bool) {
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f >= 1 {
		return 0, false
	}
	return Draw(f), true
}

func (d Draw) String() string { return strconv.FormatFloat(float64(d), 'f', -1, 64) }

// Pick returns floor(d*n). With one candidate it is always index 0; with none
// there is nothing to feature.
func (d Draw) Pick(n int) (int, bool) {
	switch {
	case n <= 0:
		return 0, false
	case n == 1:
		return 0, true
	}
	i := int(math.Floor(float64(d) * float64(n)))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i, true
}
