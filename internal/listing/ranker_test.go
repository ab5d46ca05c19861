package listing_test

import (
	"math/rand/v2"
	"testing"

	"vapefinder/internal/domain"
	"vapefinder/internal/listing"
)

func store(id string, open bool, rating float64, sponsored bool, brands ...string) domain.Store {
	s := domain.Store{ID: id, Name: id, IsOpen: open, Rating: rating, IsSponsored: sponsored}
	for _, b := range brands {
		s.Brands = append(s.Brands, domain.Link{Name: b})
	}
	return s
}

func at(s domain.Store, lat, lng float64) domain.Store {
	s.Coords = &domain.Coords{Lat: lat, Lng: lng}
	return s
}

func ids(items []listing.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Store.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRank_SponsorFirstThenOpenThenRating(t *testing.T) {
	stores := []domain.Store{
		store("S1", true, 4.8, false),
		store("S2", false, 4.9, false),
		store("S3", true, 3.0, true),
	}
	res := listing.Rank(stores, listing.Options{})

	if got := ids(res.Items); !equal(got, []string{"S3", "S1", "S2"}) {
		t.Fatalf("unexpected order: %v", got)
	}
	if res.Featured == nil || res.Featured.Store.ID != "S3" || !res.Items[0].Featured {
		t.Fatalf("expected S3 featured, got %+v", res.Featured)
	}
	if res.Empty || res.Total != 3 {
		t.Fatalf("unexpected result meta: empty=%v total=%d", res.Empty, res.Total)
	}
}

func TestRank_NoLocationOrdering(t *testing.T) {
	stores := []domain.Store{
		store("a", false, 4.0, false),
		store("b", true, 3.5, false),
		store("c", true, 4.6, false),
		store("d", false, 4.9, false),
		store("e", true, 4.6, false),
	}
	res := listing.Rank(stores, listing.Options{})
	got := ids(res.Items)
	if !equal(got, []string{"c", "e", "b", "d", "a"}) {
		t.Fatalf("unexpected order: %v", got)
	}

	seenClosed := false
	for i, it := range res.Items {
		if !it.Store.IsOpen {
			seenClosed = true
		} else if seenClosed {
			t.Fatalf("open store after closed at %d", i)
		}
		if i > 0 && it.Store.IsOpen == res.Items[i-1].Store.IsOpen && it.Store.Rating > res.Items[i-1].Store.Rating {
			t.Fatalf("rating increases within group at %d", i)
		}
		if it.DistanceKm != nil {
			t.Fatalf("distance must be undefined without a location")
		}
	}
}

func TestRank_WithLocationSortsByDistance(t *testing.T) {
	visitor := domain.Coords{Lat: 34.0522, Lng: -118.2437}
	stores := []domain.Store{
		at(store("far", true, 5, false), 34.20, -118.50),
		store("nocoords", true, 5, false),
		at(store("here", false, 1, false), 34.0522, -118.2437),
		at(store("near", false, 2, false), 34.06, -118.25),
	}
	res := listing.Rank(stores, listing.Options{Location: &visitor, Unit: listing.Kilometers})

	if got := ids(res.Items); !equal(got, []string{"here", "near", "far", "nocoords"}) {
		t.Fatalf("unexpected order: %v", got)
	}
	if d := res.Items[0].DistanceKm; d == nil || *d != 0 {
		t.Fatalf("coincident point should sort first with 0 km, got %v", d)
	}
	if res.Items[0].DistanceLabel != "0.0 km away" {
		t.Fatalf("unexpected label %q", res.Items[0].DistanceLabel)
	}
	var last float64
	for _, it := range res.Items {
		if it.DistanceKm == nil {
			continue
		}
		if *it.DistanceKm < last {
			t.Fatalf("distance decreased: %v < %v", *it.DistanceKm, last)
		}
		last = *it.DistanceKm
	}
}

func TestRank_OpenNowFilter(t *testing.T) {
	stores := []domain.Store{
		store("a", true, 4, false),
		store("b", false, 5, false),
		store("c", false, 5, true),
	}
	res := listing.Rank(stores, listing.Options{Filters: listing.Filters{OpenNowOnly: true}})
	for _, it := range res.Items {
		if !it.Store.IsOpen {
			t.Fatalf("closed store %s returned with openNowOnly", it.Store.ID)
		}
	}
	if res.Featured != nil {
		t.Fatalf("closed sponsor must be filtered out")
	}
}

func TestRank_BrandFilter(t *testing.T) {
	stores := []domain.Store{
		store("a", true, 4, false, "Juul", "SMOK"),
		store("b", true, 4, false, "Pax"),
		store("c", true, 4, false),
		store("d", true, 4, true, "smok"),
	}
	res := listing.Rank(stores, listing.Options{Filters: listing.Filters{Brands: []string{"SMOK", "Vuse"}}})
	if got := ids(res.Items); !equal(got, []string{"d", "a"}) {
		t.Fatalf("unexpected stores: %v", got)
	}
}

func TestRank_EmptyAfterFilters(t *testing.T) {
	stores := []domain.Store{store("a", false, 4, false)}
	res := listing.Rank(stores, listing.Options{Filters: listing.Filters{OpenNowOnly: true}})
	if !res.Empty || !res.Filtered || len(res.Items) != 0 || res.Total != 1 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestRank_FilteredFlag(t *testing.T) {
	stores := []domain.Store{store("a", true, 4, false, "Juul")}
	if res := listing.Rank(stores, listing.Options{}); res.Filtered {
		t.Fatalf("no filters set but Filtered is true")
	}
	// blank brand names do not count as a filter
	if res := listing.Rank(stores, listing.Options{Filters: listing.Filters{Brands: []string{" "}}}); res.Filtered {
		t.Fatalf("blank brand treated as a filter")
	}
	res := listing.Rank(stores, listing.Options{Filters: listing.Filters{Brands: []string{"juul"}}})
	if !res.Filtered || res.Empty {
		t.Fatalf("brand filter: %+v", res)
	}
}

func TestRank_SameDrawSameSponsor(t *testing.T) {
	stores := []domain.Store{
		store("s1", true, 4, true, "Juul"),
		store("s2", true, 4, true, "Juul"),
		store("s3", true, 4, true, "Juul"),
		store("o", false, 4, false, "Juul"),
	}
	d := listing.Draw(0.5)
	first := listing.Rank(stores, listing.Options{Draw: d})
	for i := 0; i < 10; i++ {
		opt := listing.Options{Draw: d, Filters: listing.Filters{Brands: []string{"juul"}}}
		again := listing.Rank(stores, opt)
		if again.Featured == nil || again.Featured.Store.ID != first.Featured.Store.ID {
			t.Fatalf("sponsor changed within the same draw")
		}
	}
	if first.Featured.Store.ID != "s2" {
		t.Fatalf("floor(0.5*3)=1 should pick s2, got %s", first.Featured.Store.ID)
	}
	// non-featured sponsors are not listed organically
	if got := ids(first.Items); !equal(got, []string{"s2", "o"}) {
		t.Fatalf("unexpected items: %v", got)
	}
}

func TestRank_FreshDrawsAreRoughlyUniform(t *testing.T) {
	stores := []domain.Store{
		store("s1", true, 4, true),
		store("s2", true, 4, true),
		store("s3", true, 4, true),
		store("s4", true, 4, true),
	}
	src := rand.New(rand.NewPCG(1, 2))
	counts := map[string]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		res := listing.Rank(stores, listing.Options{Draw: listing.NewDraw(src)})
		counts[res.Featured.Store.ID]++
	}
	for id, c := range counts {
		if c < n/4-n/20 || c > n/4+n/20 {
			t.Fatalf("sponsor %s picked %d/%d times", id, c, n)
		}
	}
	if len(counts) != 4 {
		t.Fatalf("expected every sponsor to be picked, got %v", counts)
	}
}

func TestDrawPick(t *testing.T) {
	if _, ok := listing.Draw(0.3).Pick(0); ok {
		t.Fatalf("nothing to pick from")
	}
	if i, ok := listing.Draw(0.99).Pick(1); !ok || i != 0 {
		t.Fatalf("single sponsor always featured")
	}
	if i, _ := listing.Draw(0.999999).Pick(3); i != 2 {
		t.Fatalf("got %d", i)
	}
}

func TestParseDraw(t *testing.T) {
	for _, raw := range []string{"", "1", "-0.1", "abc", "NaN"} {
		if _, ok := listing.ParseDraw(raw); ok {
			t.Fatalf("%q should be rejected", raw)
		}
	}
	d, ok := listing.ParseDraw("0.25")
	if !ok || d != 0.25 || d.String() != "0.25" {
		t.Fatalf("got %v %v", d, ok)
	}
}

func TestFormatDistance(t *testing.T) {
	if got := listing.FormatDistance(2.34, listing.Kilometers); got != "2.3 km away" {
		t.Fatalf("got %q", got)
	}
	if got := listing.FormatDistance(0.64, listing.ParseUnit("mi")); got != "0.4 mi away" {
		t.Fatalf("got %q", got)
	}
}
