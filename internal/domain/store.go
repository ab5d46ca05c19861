package domain

import "time"

type Store struct {
	ID               string
	Slug             string
	Name             string
	Address          string
	City             string
	State            string
	ZipCode          string
	Phone            string
	Coords           *Coords // nil when the address was never geocoded
	Rating           float64
	SubRatings       SubRatings
	ReviewCount      int
	IsOpen           bool
	Hours            WeeklyHours
	Brands           []Link
	FeaturedProducts []Link
	Photos           []string
	ImageURL         string
	Description      string
	Facebook         string
	Website          string
	IsSponsored      bool
	HasCoupons       bool
	Reviews          []Review
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type SubRatings struct {
	Service   float64 `json:"service"`
	Inventory float64 `json:"inventory"`
	Pricing   float64 `json:"pricing"`
}

// Link is a named item with an optional external URL (brands, featured products).
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// CarriesAny reports whether the store stocks at least one of the given brand
// names. Matching is case-insensitive.
func (s Store) CarriesAny(brands map[string]struct{}) bool {
	for _, b := range s.Brands {
		if _, ok := brands[foldKey(b.Name)]; ok {
			return true
		}
	}
	return false
}

// BrandSet builds the lookup used by CarriesAny. Blank names are skipped.
func BrandSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if k := foldKey(n); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

type StoresQuery struct {
	City    string // display name, matched against Store.City
	Keyword string
	Limit   int
}
