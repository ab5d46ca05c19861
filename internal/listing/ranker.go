// Package listing orders the stores of one city for display: filters, distance
// or open/rating ordering, and a single featured sponsor.
package listing

import (
	"sort"

	"vapefinder/internal/domain"
)

type Filters struct {
	OpenNowOnly bool
	Brands      []string // empty means no brand filter
}

// Active reports whether any filter is set.
func (f Filters) Active() bool { return f.OpenNowOnly || len(domain.BrandSet(f.Brands)) > 0 }

type Item struct {
	Store         domain.Store
	DistanceKm    *float64 // nil when no visitor location or store coordinates
	DistanceLabel string
	Featured      bool
}

type Result struct {
	Items    []Item
	Featured *Item
	// Total is the number of stores before filtering.
	Total int
	// Empty is set when filters removed every store. A city without stores
	// is reported upstream as not found instead.
	Empty bool
	// Filtered is set when any filter was applied, so callers can offer to clear them.
	Filtered bool
	Draw     Draw
}

type Options struct {
	Filters  Filters
	Location *domain.Coords // nil: pending, denied, errored or unsupported
	Unit     Unit
	Draw     Draw
}

// Rank filters and orders stores. It never fails.
func Rank(stores []domain.Store, opt Options) Result {
	res := Result{Total: len(stores), Draw: opt.Draw, Filtered: opt.Filters.Active()}

	filtered := filter(stores, opt.Filters)
	if len(filtered) == 0 {
		res.Empty = true
		res.Items = []Item{}
		return res
	}

	var sponsored, organic []Item
	for _, s := range filtered {
		it := Item{Store: s}
		if opt.Location != nil && s.Coords != nil {
			d := domain.Distance(*opt.Location, *s.Coords)
			it.DistanceKm = &d
			it.DistanceLabel = FormatDistance(d, opt.Unit)
		}
		if s.IsSponsored {
			sponsored = append(sponsored, it)
		} else {
			organic = append(organic, it)
		}
	}

	if opt.Location != nil {
		sort.SliceStable(organic, byDistance(organic))
	} else {
		sort.SliceStable(organic, byOpenThenRating(organic))
	}

	res.Items = make([]Item, 0, len(organic)+1)
	if i, ok := opt.Draw.Pick(len(sponsored)); ok {
		f := sponsored[i]
		f.Featured = true
		res.Featured = &f
		res.Items = append(res.Items, f)
	}
	res.Items = append(res.Items, organic...)
	return res
}

func filter(stores []domain.Store, f Filters) []domain.Store {
	brands := domain.BrandSet(f.Brands)
	out := make([]domain.Store, 0, len(stores))
	for _, s := range stores {
		if f.OpenNowOnly && !s.IsOpen {
			continue
		}
		if len(brands) > 0 && !s.CarriesAny(brands) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// undefined distance sorts last
func byDistance(items []Item) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := items[i].DistanceKm, items[j].DistanceKm
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a < *b
	}
}

func byOpenThenRating(items []Item) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := items[i].Store, items[j].Store
		if a.IsOpen != b.IsOpen {
			return a.IsOpen
		}
		return a.Rating > b.Rating
	}
}
