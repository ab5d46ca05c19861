package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"vapefinder/internal/app"
	"vapefinder/internal/app/apptest"
	"vapefinder/internal/domain"
)

type fakeGeocoder struct {
	coords domain.Coords
	err    error
	calls  []string
}

func (g *fakeGeocoder) Geocode(ctx context.Context, address string) (domain.Coords, error) {
	g.calls = append(g.calls, address)
	return g.coords, g.err
}

func boolp(b bool) *bool { return &b }

// cache is an interface so a literal nil stays an untyped nil
func newAdmin(repo *apptest.Repo, cache domain.Cache, geo domain.Geocoder) *app.AdminService {
	return app.NewAdminService(repo, cache, geo, fixed(monNoon))
}

func TestAdminService_WritesWithoutCache(t *testing.T) {
	repo := seeded()
	a := app.NewAdminService(repo, nil, nil, fixed(monNoon))
	ctx := context.Background()

	st, err := a.CreateStore(ctx, app.StoreInput{Name: "Echo", Address: "5 Main", City: "Los Angeles"})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	if _, err := a.UpdateStore(ctx, st.ID, app.StoreInput{Name: "Echo", Address: "6 Main", City: "Los Angeles"}); err != nil {
		t.Fatalf("UpdateStore: %v", err)
	}
	r, err := a.SubmitReview(ctx, app.ReviewInput{StoreID: st.ID, UserName: "Kim", Rating: 4, Content: "ok"})
	if err != nil {
		t.Fatalf("SubmitReview: %v", err)
	}
	if _, err := a.ApproveReview(ctx, r.ID); err != nil {
		t.Fatalf("ApproveReview: %v", err)
	}
	if err := a.DeleteStore(ctx, st.ID); err != nil {
		t.Fatalf("DeleteStore: %v", err)
	}
	if _, err := a.ToggleBanner(ctx, "list"); err != nil {
		t.Fatalf("ToggleBanner: %v", err)
	}
	if err := a.DeleteCity(ctx, "newark"); err != nil {
		t.Fatalf("DeleteCity: %v", err)
	}
}

func TestCreateStore_NormalizesAndGeocodes(t *testing.T) {
	repo := seeded()
	cache := apptest.NewCache()
	geo := &fakeGeocoder{coords: domain.Coords{Lat: 34.09, Lng: -118.32}}
	a := newAdmin(repo, cache, geo)
	q := app.NewQueryService(repo, cache, time.Minute, fixed(monNoon), time.UTC)
	ctx := context.Background()

	// warm the listing cache so the create must invalidate it
	if _, err := q.CityListing(ctx, app.ListingQuery{CitySlug: "los-angeles"}); err != nil {
		t.Fatalf("warm: %v", err)
	}

	st, err := a.CreateStore(ctx, app.StoreInput{
		Name:    "  Cloud 9 Vape Lounge ",
		Address: "1234 Sunset Blvd",
		City:    "los angeles",
		ZipCode: "90028",
		Phone:   "(323) 555-0123",
		Rating:  4.8,
		Hours:   domain.WeeklyHours{"Monday": {Open: "10:00", Close: "21:00"}},
		Brands:  []domain.Link{{Name: "Juul"}, {Name: "juul"}, {Name: " "}},
	})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	if st.ID == "" || st.Slug != "cloud-9-vape-lounge" || st.City != "Los Angeles" || st.State != "CA" {
		t.Fatalf("unexpected store: %+v", st)
	}
	if st.Phone != "+13235550123" {
		t.Fatalf("phone = %q", st.Phone)
	}
	if st.Coords == nil || len(geo.calls) != 1 || geo.calls[0] != "1234 Sunset Blvd, Los Angeles, CA 90028" {
		t.Fatalf("geocode calls %v coords %v", geo.calls, st.Coords)
	}
	if len(st.Brands) != 1 {
		t.Fatalf("brands not deduplicated: %+v", st.Brands)
	}
	if _, ok := st.Hours["monday"]; !ok {
		t.Fatalf("hours not normalized: %v", st.Hours)
	}
	if c := repo.Cities["los-angeles"]; c.StoreCount != 5 {
		t.Fatalf("store count = %d", c.StoreCount)
	}

	page, err := q.CityListing(ctx, app.ListingQuery{CitySlug: "los-angeles"})
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if page.Total != 5 {
		t.Fatalf("listing served stale cache: total %d", page.Total)
	}
}

func TestCreateStore_GeocodeFailureStillCreates(t *testing.T) {
	repo := seeded()
	a := newAdmin(repo, nil, &fakeGeocoder{err: domain.ErrNotFound})

	st, err := a.CreateStore(context.Background(), app.StoreInput{Name: "Nowhere", Address: "1 Unknown Rd", City: "Los Angeles"})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	if st.Coords != nil {
		t.Fatalf("expected no coordinates")
	}
}

func TestCreateStore_Validation(t *testing.T) {
	a := newAdmin(seeded(), nil, nil)
	ctx := context.Background()
	base := app.StoreInput{Name: "X", Address: "1 Main", City: "Los Angeles"}

	cases := map[string]func(in *app.StoreInput){
		"name":        func(in *app.StoreInput) { in.Name = " " },
		"city":        func(in *app.StoreInput) { in.City = "Atlantis" },
		"rating":      func(in *app.StoreInput) { in.Rating = 5.5 },
		"subRatings":  func(in *app.StoreInput) { in.SubRatings.Pricing = -1 },
		"hours":       func(in *app.StoreInput) { in.Hours = domain.WeeklyHours{"monday": {Open: "9am", Close: "5pm"}} },
		"phone":       func(in *app.StoreInput) { in.Phone = "12" },
		"coordinates": func(in *app.StoreInput) { in.Coords = &domain.Coords{Lat: 91} },
		"website":     func(in *app.StoreInput) { in.Website = "ftp://x" },
	}
	for name, mutate := range cases {
		in := base
		mutate(&in)
		if _, err := a.CreateStore(ctx, in); !errors.Is(err, domain.ErrInvalid) {
			t.Fatalf("%s: want ErrInvalid, got %v", name, err)
		}
	}
}

func TestCreateStore_DuplicateSlug(t *testing.T) {
	a := newAdmin(seeded(), nil, nil)
	_, err := a.CreateStore(context.Background(), app.StoreInput{Name: "Alpha", Address: "9 Main", City: "Los Angeles"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestUpdateAndDeleteStore(t *testing.T) {
	repo := seeded()
	a := newAdmin(repo, nil, nil)
	ctx := context.Background()

	st, err := a.UpdateStore(ctx, "a", app.StoreInput{Name: "Alpha", Address: "1 Main", City: "New York", Rating: 4})
	if err != nil {
		t.Fatalf("UpdateStore: %v", err)
	}
	if st.City != "New York" || st.State != "NY" {
		t.Fatalf("move failed: %+v", st)
	}
	if repo.Cities["los-angeles"].StoreCount != 3 || repo.Cities["new-york"].StoreCount != 2 {
		t.Fatalf("aggregates not refreshed for both cities: %+v %+v", repo.Cities["los-angeles"], repo.Cities["new-york"])
	}

	if err := a.DeleteStore(ctx, "a"); err != nil {
		t.Fatalf("DeleteStore: %v", err)
	}
	if repo.Cities["new-york"].StoreCount != 1 {
		t.Fatalf("delete did not refresh aggregates")
	}
	if err := a.DeleteStore(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := a.UpdateStore(ctx, "zzz", app.StoreInput{Name: "Z", Address: "1", City: "New York"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
}

func TestCities(t *testing.T) {
	repo := seeded()
	cache := apptest.NewCache()
	a := newAdmin(repo, cache, nil)
	ctx := context.Background()

	c, err := a.CreateCity(ctx, app.CityInput{Name: "San Diego", State: "ca", TimeZone: "America/Los_Angeles"})
	if err != nil {
		t.Fatalf("CreateCity: %v", err)
	}
	if c.Slug != "san-diego" || c.State != "CA" || c.StoreCount != 0 {
		t.Fatalf("unexpected city: %+v", c)
	}
	if _, err := a.CreateCity(ctx, app.CityInput{Name: "San Diego", State: "CA"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate: %v", err)
	}
	if _, err := a.CreateCity(ctx, app.CityInput{Name: "Mars", State: "XX", TimeZone: "Mars/Olympus"}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("bad zone: %v", err)
	}
	if _, err := a.UpdateCity(ctx, "los-angeles", app.CityInput{Name: "LA", State: "CA"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("rename with stores: %v", err)
	}
	if err := a.DeleteCity(ctx, "los-angeles"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("delete with stores: %v", err)
	}
	if err := a.DeleteCity(ctx, "newark"); err != nil {
		t.Fatalf("DeleteCity: %v", err)
	}
	if len(cache.Dels) == 0 {
		t.Fatalf("expected cache invalidation")
	}
}

func TestReviewModeration(t *testing.T) {
	repo := seeded()
	cache := apptest.NewCache()
	a := newAdmin(repo, cache, nil)
	q := app.NewQueryService(repo, cache, time.Minute, fixed(monNoon), time.UTC)
	ctx := context.Background()

	r1, err := a.SubmitReview(ctx, app.ReviewInput{StoreID: "a", UserName: "Ana", Rating: 3, Content: "fine",
		SubRatings: domain.SubRatings{Service: 3, Inventory: 3, Pricing: 3}})
	if err != nil {
		t.Fatalf("SubmitReview: %v", err)
	}
	if r1.Status != domain.ReviewPending || !r1.Date.Equal(day("2025-01-06")) {
		t.Fatalf("unexpected review: %+v", r1)
	}
	r2, _ := a.SubmitReview(ctx, app.ReviewInput{StoreID: "a", UserName: "Ben", Rating: 5, Content: "great",
		SubRatings: domain.SubRatings{Service: 5, Inventory: 5, Pricing: 4}})

	page, _ := q.GetStore(ctx, "los-angeles", "alpha")
	if len(page.Store.Reviews) != 0 {
		t.Fatalf("pending reviews must not be public")
	}

	if _, err := a.ApproveReview(ctx, r1.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := a.ApproveReview(ctx, r2.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	st := repo.Stores["a"]
	if st.ReviewCount != 2 || st.Rating != 4 || st.SubRatings.Pricing != 3.5 {
		t.Fatalf("rating not recomputed: %+v", st)
	}
	page, _ = q.GetStore(ctx, "los-angeles", "alpha")
	if len(page.Store.Reviews) != 2 {
		t.Fatalf("approved reviews not visible: %d", len(page.Store.Reviews))
	}

	if _, err := a.RejectReview(ctx, r2.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if repo.Stores["a"].Rating != 3 || repo.Stores["a"].ReviewCount != 1 {
		t.Fatalf("reject did not re-rate: %+v", repo.Stores["a"])
	}
	if err := a.DeleteReview(ctx, r1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if repo.Stores["a"].ReviewCount != 0 {
		t.Fatalf("delete did not re-rate")
	}

	list, err := a.ListReviews(ctx, domain.ReviewsQuery{Search: "alpha"})
	if err != nil || len(list) != 1 || list[0].StoreName != "Alpha" {
		t.Fatalf("ListReviews: %+v %v", list, err)
	}
	if _, err := a.ListReviews(ctx, domain.ReviewsQuery{Status: "spam"}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("bad status: %v", err)
	}
}

func TestSubmitReview_Validation(t *testing.T) {
	a := newAdmin(seeded(), nil, nil)
	ctx := context.Background()

	if _, err := a.SubmitReview(ctx, app.ReviewInput{StoreID: "a", UserName: "Ana", Rating: 0, Content: "x"}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("zero rating: %v", err)
	}
	if _, err := a.SubmitReview(ctx, app.ReviewInput{StoreID: "a", UserName: "Ana", Rating: 4}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("empty content: %v", err)
	}
	if _, err := a.SubmitReview(ctx, app.ReviewInput{StoreID: "missing", UserName: "Ana", Rating: 4, Content: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown store: %v", err)
	}
}

func TestBannersAndCounters(t *testing.T) {
	repo := seeded()
	a := newAdmin(repo, apptest.NewCache(), nil)
	ctx := context.Background()

	if _, err := a.CreateBanner(ctx, app.BannerInput{Name: "x", Type: domain.ListBanner, ImageURL: "https://i", TargetURL: "https://t",
		StartDate: "2025-02-01", EndDate: "2025-01-01"}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("end before start: %v", err)
	}
	if _, err := a.CreateBanner(ctx, app.BannerInput{Name: "x", Type: "popup", ImageURL: "https://i", TargetURL: "https://t",
		StartDate: "2025-01-01", EndDate: "2025-02-01"}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("bad type: %v", err)
	}

	b, err := a.CreateBanner(ctx, app.BannerInput{Name: "Juul Promo", Type: domain.ListBanner, ImageURL: "https://i", TargetURL: "https://juul.com",
		StartDate: "2025-01-01", EndDate: "2025-12-31"})
	if err != nil {
		t.Fatalf("CreateBanner: %v", err)
	}
	if !b.IsActive {
		t.Fatalf("new banners default to active")
	}
	for i := 0; i < 4; i++ {
		if err := a.RecordImpression(ctx, app.PlacementBanner, b.ID); err != nil {
			t.Fatalf("impression: %v", err)
		}
	}
	if err := a.RecordClick(ctx, app.PlacementBanner, b.ID); err != nil {
		t.Fatalf("click: %v", err)
	}
	if err := a.RecordClick(ctx, app.PlacementSponsorship, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown sponsorship: %v", err)
	}
	if err := a.RecordClick(ctx, "popups", b.ID); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("unknown placement: %v", err)
	}

	upd, err := a.UpdateBanner(ctx, b.ID, app.BannerInput{Name: "Juul Promo 2", Type: domain.ListBanner, ImageURL: "https://i", TargetURL: "https://juul.com",
		IsActive: boolp(false), StartDate: "2025-01-01", EndDate: "2025-12-31"})
	if err != nil {
		t.Fatalf("UpdateBanner: %v", err)
	}
	if upd.Impressions != 4 || upd.Clicks != 1 || upd.IsActive {
		t.Fatalf("update lost counters or flag: %+v", upd)
	}
	tog, err := a.ToggleBanner(ctx, b.ID)
	if err != nil || !tog.IsActive {
		t.Fatalf("toggle: %+v %v", tog, err)
	}
	if err := a.DeleteBanner(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestSponsorships(t *testing.T) {
	repo := seeded()
	a := newAdmin(repo, apptest.NewCache(), nil)
	ctx := context.Background()

	if _, err := a.CreateSponsorship(ctx, app.SponsorshipInput{StoreID: "ghost", StartDate: "2025-01-01", EndDate: "2025-01-02"}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("unknown store: %v", err)
	}
	p, err := a.CreateSponsorship(ctx, app.SponsorshipInput{StoreID: "b", StartDate: "2025-01-01", EndDate: "2025-03-31"})
	if err != nil {
		t.Fatalf("CreateSponsorship: %v", err)
	}
	if p.StoreName != "Bravo" || p.StoreCity != "Los Angeles" {
		t.Fatalf("store not joined: %+v", p)
	}
	tog, err := a.ToggleSponsorship(ctx, p.ID)
	if err != nil || tog.IsActive {
		t.Fatalf("toggle: %+v %v", tog, err)
	}
	if err := a.DeleteSponsorship(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestSocialGroups(t *testing.T) {
	a := newAdmin(seeded(), apptest.NewCache(), nil)
	ctx := context.Background()

	if _, err := a.CreateSocialGroup(ctx, app.SocialGroupInput{Name: "x", Platform: "myspace", URL: "https://x"}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("bad platform: %v", err)
	}
	if _, err := a.CreateSocialGroup(ctx, app.SocialGroupInput{Name: "x", Platform: domain.Telegram, URL: "https://x", MemberCount: -1}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("negative members: %v", err)
	}
	g, err := a.CreateSocialGroup(ctx, app.SocialGroupInput{Name: "Vape Enthusiasts", Platform: "Telegram", URL: "https://t.me/example", MemberCount: 3400})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.Platform != domain.Telegram || !g.IsActive {
		t.Fatalf("unexpected group: %+v", g)
	}
	tog, err := a.ToggleSocialGroup(ctx, g.ID)
	if err != nil || tog.IsActive {
		t.Fatalf("toggle: %+v %v", tog, err)
	}
	if _, err := a.UpdateSocialGroup(ctx, "nope", app.SocialGroupInput{Name: "x", Platform: domain.Telegram, URL: "https://x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
}

func TestDashboard(t *testing.T) {
	repo := seeded()
	a := newAdmin(repo, nil, nil)
	ctx := context.Background()

	d, err := a.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.CTR != "—" {
		t.Fatalf("CTR without impressions = %q", d.CTR)
	}
	if d.Stores != 5 || d.Cities != 3 || d.SponsoredStores != 1 || d.ActiveSponsorships != 1 || d.TotalSponsorships != 2 {
		t.Fatalf("totals: %+v", d)
	}
	if d.ActiveBanners != 2 || d.TotalBanners != 3 {
		t.Fatalf("banners: %+v", d)
	}

	b := repo.Banners["list"]
	b.Impressions, b.Clicks = 15420, 892
	repo.Banners["list"] = b
	d, _ = a.Dashboard(ctx)
	if d.Impressions != 15420 || d.Clicks != 892 || d.CTR != "5.78%" {
		t.Fatalf("ctr: %+v", d)
	}
}
