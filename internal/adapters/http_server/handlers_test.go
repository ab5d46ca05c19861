package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vapefinder/internal/app"
	"vapefinder/internal/app/apptest"
	"vapefinder/internal/domain"
	"vapefinder/internal/shared"
)

// 2025-01-06 is a Monday
var monNoon = time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	d, _ := time.Parse(time.DateOnly, s)
	return d
}

func fixture() *apptest.Repo {
	r := apptest.NewRepo()
	r.Cities["los-angeles"] = domain.City{Slug: "los-angeles", Name: "Los Angeles", State: "CA", StoreCount: 2}
	r.Stores["a"] = domain.Store{ID: "a", Slug: "alpha", Name: "Alpha", City: "Los Angeles", State: "CA",
		Rating: 4, IsOpen: true, Coords: &domain.Coords{Lat: 34.05, Lng: -118.25},
		Brands: []domain.Link{{Name: "SMOK"}}}
	r.Stores["b"] = domain.Store{ID: "b", Slug: "bravo", Name: "Bravo", City: "Los Angeles", State: "CA",
		Rating: 5, Brands: []domain.Link{{Name: "Juul"}}}
	r.Sponsorships["p"] = domain.Sponsorship{ID: "p", StoreID: "b",
		Window: domain.Window{IsActive: true, StartDate: day("2025-01-01"), EndDate: day("2025-01-31")}}
	r.Banners["list"] = domain.BannerAd{ID: "list", Name: "Juul promo", Type: domain.ListBanner,
		ImageURL: "https://img.example/juul.png", TargetURL: "https://juul.com",
		Window:   domain.Window{IsActive: true, StartDate: day("2025-01-01"), EndDate: day("2025-12-31")},
		Counters: domain.Counters{Impressions: 10, Clicks: 1}}
	return r
}

func newTestServer(t *testing.T, repo *apptest.Repo, limit shared.RateLimit) *httptest.Server {
	t.Helper()
	now := func() time.Time { return monNoon }
	cache := apptest.NewCache()
	h := &Handlers{
		Q:           app.NewQueryService(repo, cache, time.Minute, now, time.UTC),
		A:           app.NewAdminService(repo, cache, nil, now),
		ReviewLimit: limit,
		Now:         now,
	}
	s := New()
	s.MountHandlers(h)
	ts := httptest.NewServer(s.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string, hdr map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestCityListing_DrawEchoAndETag(t *testing.T) {
	ts := newTestServer(t, fixture(), shared.RateLimit{})

	res := do(t, http.MethodGet, ts.URL+"/v1/cities/los-angeles/stores?draw=0.25", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	etag := res.Header.Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("missing weak etag: %q", etag)
	}
	body := decode[listingDTO](t, res)
	if body.Draw != "0.25" || body.Filtered {
		t.Fatalf("draw = %q filtersActive = %v", body.Draw, body.Filtered)
	}
	// b is the only active sponsor and leads the list
	if len(body.Stores) != 2 || body.Stores[0].ID != "b" || !body.Stores[0].Featured || body.Featured == nil {
		t.Fatalf("stores = %+v", body.Stores)
	}
	if body.Total != 2 || len(body.Banners) != 1 || body.Banners[0].TargetURL != "https://juul.com" {
		t.Fatalf("unexpected page: %+v", body)
	}

	res = do(t, http.MethodGet, ts.URL+"/v1/cities/los-angeles/stores?draw=0.25", "", map[string]string{"If-None-Match": etag})
	if res.StatusCode != http.StatusNotModified {
		t.Fatalf("want 304, got %d", res.StatusCode)
	}
}

func TestCityListing_FreshDrawWhenMissing(t *testing.T) {
	ts := newTestServer(t, fixture(), shared.RateLimit{})

	res := do(t, http.MethodGet, ts.URL+"/v1/cities/los-angeles/stores?draw=7", "", nil)
	body := decode[listingDTO](t, res)
	if body.Draw == "" || body.Draw == "7" {
		t.Fatalf("expected a fresh draw, got %q", body.Draw)
	}
}

func TestCityListing_FiltersAndLocation(t *testing.T) {
	ts := newTestServer(t, fixture(), shared.RateLimit{})

	res := do(t, http.MethodGet, ts.URL+"/v1/cities/los-angeles/stores?brand=smok&lat=34.05&lng=-118.25&unit=km", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	body := decode[listingDTO](t, res)
	if len(body.Stores) != 1 || body.Stores[0].ID != "a" || !body.Filtered {
		t.Fatalf("stores = %+v filtersActive = %v", body.Stores, body.Filtered)
	}
	if body.Stores[0].DistanceKm == nil || *body.Stores[0].DistanceKm != 0 {
		t.Fatalf("distance = %v", body.Stores[0].DistanceKm)
	}

	res = do(t, http.MethodGet, ts.URL+"/v1/cities/los-angeles/stores?brand=nope", "", nil)
	if body := decode[listingDTO](t, res); !body.Empty || len(body.Stores) != 0 {
		t.Fatalf("expected empty listing, got %+v", body)
	}
}

func TestCityListing_BadParams(t *testing.T) {
	ts := newTestServer(t, fixture(), shared.RateLimit{})

	for _, q := range []string{"lat=91&lng=0", "lat=0&lng=-181", "openNow=maybe"} {
		res := do(t, http.MethodGet, ts.URL+"/v1/cities/los-angeles/stores?"+q, "", nil)
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status %d", q, res.StatusCode)
		}
		if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
			t.Fatalf("%s: content-type %q", q, ct)
		}
	}
}

func TestCityListing_IncompleteLocationIgnored(t *testing.T) {
	ts := newTestServer(t, fixture(), shared.RateLimit{})

	for _, q := range []string{"lat=34", "lng=-118", "lat=x&lng=1", "lat=NaN&lng=", "lat=&lng="} {
		res := do(t, http.MethodGet, ts.URL+"/v1/cities/los-angeles/stores?"+q, "", nil)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", q, res.StatusCode)
		}
		body := decode[listingDTO](t, res)
		if len(body.Stores) != 2 {
			t.Fatalf("%s: stores = %+v", q, body.Stores)
		}
		for _, s := range body.Stores {
			if s.DistanceKm != nil {
				t.Fatalf("%s: distance computed without a location: %+v", q, s)
			}
		}
	}
}

func TestNotFoundProblems(t *testing.T) {
	ts := newTestServer(t, fixture(), shared.RateLimit{})

	for _, path := range []string{"/v1/cities/atlantis", "/v1/cities/atlantis/stores", "/v1/cities/los-angeles/stores/nope", "/v1/nothing"} {
		res := do(t, http.MethodGet, ts.URL+path, "", nil)
		if res.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: status %d", path, res.StatusCode)
		}
		p := decode[problem](t, res)
		if p.Status != http.StatusNotFound || p.Type != "about:blank" {
			t.Fatalf("%s: problem %+v", path, p)
		}
	}

	res := do(t, http.MethodDelete, ts.URL+"/v1/brands", "", nil)
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("want 405, got %d", res.StatusCode)
	}
}

func TestGetStorePage(t *testing.T) {
	ts := newTestServer(t, fixture(), shared.RateLimit{})

	res := do(t, http.MethodGet, ts.URL+"/v1/cities/los-angeles/stores/bravo", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	body := decode[storePageDTO](t, res)
	if body.Store.ID != "b" || !body.Store.IsSponsored || body.City.Slug != "los-angeles" {
		t.Fatalf("page = %+v", body)
	}
	if body.Reviews == nil || body.Store.Photos == nil {
		t.Fatalf("collections must encode as [] not null")
	}
}

func TestSubmitReview_RateLimited(t *testing.T) {
	repo := fixture()
	ts := newTestServer(t, repo, shared.RateLimit{Requests: 1, Interval: time.Minute})
	review := `{"userName":"Sam","rating":4,"content":"Great staff"}`

	res := do(t, http.MethodPost, ts.URL+"/v1/stores/a/reviews", review, nil)
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("status %d", res.StatusCode)
	}
	got := decode[reviewDTO](t, res)
	if got.Status != "pending" || got.StoreID != "a" || got.Date != "2025-01-06" {
		t.Fatalf("review = %+v", got)
	}

	res = do(t, http.MethodPost, ts.URL+"/v1/stores/a/reviews", review, nil)
	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", res.StatusCode)
	}
	if res.Header.Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
	if n := len(repo.Reviews); n != 1 {
		t.Fatalf("reviews stored = %d", n)
	}
}

func TestSubmitReview_Invalid(t *testing.T) {
	ts := newTestServer(t, fixture(), shared.RateLimit{})

	cases := map[string]struct {
		path, body string
		want       int
	}{
		"rating":        {"/v1/stores/a/reviews", `{"userName":"Sam","rating":9,"content":"x"}`, http.StatusBadRequest},
		"unknown field": {"/v1/stores/a/reviews", `{"userName":"Sam","rating":4,"content":"x","extra":1}`, http.StatusBadRequest},
		"malformed":     {"/v1/stores/a/reviews", `{`, http.StatusBadRequest},
		"store":         {"/v1/stores/zzz/reviews", `{"userName":"Sam","rating":4,"content":"x"}`, http.StatusNotFound},
	}
	for name, tc := range cases {
		res := do(t, http.MethodPost, ts.URL+tc.path, tc.body, nil)
		if res.StatusCode != tc.want {
			t.Fatalf("%s: status %d, want %d", name, res.StatusCode, tc.want)
		}
	}
}

func TestStoreSubmission_Flow(t *testing.T) {
	repo := fixture()
	ts := newTestServer(t, repo, shared.RateLimit{})

	form := `{"storeName":"Golf Vapor","ownerName":"Lee","email":"lee@golf.example","phone":"323-555-0142",
		"address":"9 Vine St","city":"Los Angeles","zipCode":"90038","description":"Family owned"}`
	res := do(t, http.MethodPost, ts.URL+"/v1/stores/submissions", form, nil)
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status %d", res.StatusCode)
	}
	sub := decode[submissionDTO](t, res)
	if sub.ID == "" || sub.Status != "pending" || sub.Phone != "+13235550142" || sub.SubmittedAt != "2025-01-06T12:00:00Z" {
		t.Fatalf("submission = %+v", sub)
	}

	if res := do(t, http.MethodPost, ts.URL+"/v1/stores/submissions", `{"storeName":"x","email":"nope"}`, nil); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid form status %d", res.StatusCode)
	}

	res = do(t, http.MethodGet, ts.URL+"/v1/admin/submissions?status=pending", "", nil)
	if list := decode[itemsResponse[submissionDTO]](t, res); len(list.Items) != 1 || list.Items[0].ID != sub.ID {
		t.Fatalf("pending = %+v", list.Items)
	}

	res = do(t, http.MethodPost, ts.URL+"/v1/admin/submissions/"+sub.ID+"/approve", "", nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("approve status %d", res.StatusCode)
	}
	st := decode[storeDTO](t, res)
	if st.Slug != "golf-vapor" || st.City != "Los Angeles" {
		t.Fatalf("store = %+v", st)
	}

	// the new store shows up in the public listing
	res = do(t, http.MethodGet, ts.URL+"/v1/cities/los-angeles/stores", "", nil)
	if body := decode[listingDTO](t, res); body.Total != 3 {
		t.Fatalf("listing total = %d", body.Total)
	}

	if res := do(t, http.MethodPost, ts.URL+"/v1/admin/submissions/"+sub.ID+"/reject", "", nil); res.StatusCode != http.StatusConflict {
		t.Fatalf("reject after approve status %d", res.StatusCode)
	}
	if res := do(t, http.MethodGet, ts.URL+"/v1/admin/submissions?status=spam", "", nil); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad status filter %d", res.StatusCode)
	}
}

func TestAdEvents(t *testing.T) {
	repo := fixture()
	ts := newTestServer(t, repo, shared.RateLimit{})

	if res := do(t, http.MethodPost, ts.URL+"/v1/ads/banners/list/click", "", nil); res.StatusCode != http.StatusNoContent {
		t.Fatalf("click status %d", res.StatusCode)
	}
	if res := do(t, http.MethodPost, ts.URL+"/v1/ads/sponsorships/p/impression", "", nil); res.StatusCode != http.StatusNoContent {
		t.Fatalf("impression status %d", res.StatusCode)
	}
	if c := repo.Banners["list"].Clicks; c != 2 {
		t.Fatalf("banner clicks = %d", c)
	}
	if n := repo.Sponsorships["p"].Impressions; n != 1 {
		t.Fatalf("sponsorship impressions = %d", n)
	}

	for _, path := range []string{"/v1/ads/coupons/list/click", "/v1/ads/banners/list/hover", "/v1/ads/banners/missing/click"} {
		if res := do(t, http.MethodPost, ts.URL+path, "", nil); res.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: status %d", path, res.StatusCode)
		}
	}
}

func TestAdmin_StoreLifecycle(t *testing.T) {
	repo := fixture()
	ts := newTestServer(t, repo, shared.RateLimit{})

	in := `{"slug":"cloud-9","name":"Cloud 9","address":"1 Main St","city":"los angeles","zipCode":"90012",
		"phone":"(323) 555-0123","rating":4.5,"coordinates":{"lat":34.1,"lng":-118.3}}`
	res := do(t, http.MethodPost, ts.URL+"/v1/admin/stores", in, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", res.StatusCode)
	}
	st := decode[storeDTO](t, res)
	if st.ID == "" || st.City != "Los Angeles" || st.Phone != "+13235550123" {
		t.Fatalf("store = %+v", st)
	}
	if c := repo.Cities["los-angeles"].StoreCount; c != 3 {
		t.Fatalf("store count = %d", c)
	}

	if res := do(t, http.MethodPost, ts.URL+"/v1/admin/stores", in, nil); res.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate slug status %d", res.StatusCode)
	}

	res = do(t, http.MethodPost, ts.URL+"/v1/admin/stores", `{"name":"","city":"Los Angeles"}`, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid status %d", res.StatusCode)
	}
	if p := decode[problem](t, res); p.Title != "Invalid name" {
		t.Fatalf("problem = %+v", p)
	}

	if res := do(t, http.MethodDelete, ts.URL+"/v1/admin/stores/"+st.ID, "", nil); res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", res.StatusCode)
	}
	if res := do(t, http.MethodGet, ts.URL+"/v1/admin/stores/"+st.ID, "", nil); res.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status %d", res.StatusCode)
	}
}

func TestAdmin_CityConflicts(t *testing.T) {
	ts := newTestServer(t, fixture(), shared.RateLimit{})

	res := do(t, http.MethodPost, ts.URL+"/v1/admin/cities", `{"name":"Los Angeles","state":"CA"}`, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate city status %d", res.StatusCode)
	}
	if res := do(t, http.MethodDelete, ts.URL+"/v1/admin/cities/los-angeles", "", nil); res.StatusCode != http.StatusConflict {
		t.Fatalf("delete with stores status %d", res.StatusCode)
	}
	res = do(t, http.MethodPost, ts.URL+"/v1/admin/cities", `{"name":"Miami","state":"FL"}`, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", res.StatusCode)
	}
	if c := decode[cityDTO](t, res); c.Slug != "miami" {
		t.Fatalf("city = %+v", c)
	}
}

func TestAdmin_ReviewModeration(t *testing.T) {
	repo := fixture()
	repo.Reviews["r1"] = domain.Review{ID: "r1", StoreID: "a", UserName: "Ann", Rating: 2, Content: "meh",
		Date: day("2025-01-02"), Status: domain.ReviewPending}
	ts := newTestServer(t, repo, shared.RateLimit{})

	res := do(t, http.MethodGet, ts.URL+"/v1/admin/reviews?status=pending", "", nil)
	list := decode[itemsResponse[reviewDTO]](t, res)
	if len(list.Items) != 1 || list.Items[0].StoreName != "Alpha" {
		t.Fatalf("pending = %+v", list.Items)
	}

	if res := do(t, http.MethodGet, ts.URL+"/v1/admin/reviews?status=spam", "", nil); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad status filter: %d", res.StatusCode)
	}

	res = do(t, http.MethodPost, ts.URL+"/v1/admin/reviews/r1/approve", "", nil)
	if got := decode[reviewDTO](t, res); got.Status != "approved" {
		t.Fatalf("approve = %+v", got)
	}
	if st := repo.Stores["a"]; st.Rating != 2 || st.ReviewCount != 1 {
		t.Fatalf("store not re-rated: %+v", st)
	}

	res = do(t, http.MethodGet, ts.URL+"/v1/cities/los-angeles/stores/alpha", "", nil)
	if page := decode[storePageDTO](t, res); len(page.Reviews) != 1 {
		t.Fatalf("approved review not public: %+v", page.Reviews)
	}

	if res := do(t, http.MethodPost, ts.URL+"/v1/admin/reviews/nope/reject", "", nil); res.StatusCode != http.StatusNotFound {
		t.Fatalf("reject missing: %d", res.StatusCode)
	}
}

func TestAdmin_BannersAndDashboard(t *testing.T) {
	repo := fixture()
	ts := newTestServer(t, repo, shared.RateLimit{})

	res := do(t, http.MethodGet, ts.URL+"/v1/admin/banners", "", nil)
	list := decode[itemsResponse[bannerDTO]](t, res)
	if len(list.Items) != 1 || list.Items[0].CTR != "10.00%" || !list.Items[0].ActiveNow {
		t.Fatalf("banners = %+v", list.Items)
	}

	res = do(t, http.MethodPost, ts.URL+"/v1/admin/banners/list/toggle", "", nil)
	if b := decode[bannerDTO](t, res); b.IsActive || b.ActiveNow {
		t.Fatalf("toggle = %+v", b)
	}

	bad := `{"name":"x","type":"list_banner","imageUrl":"https://i/x.png","targetUrl":"https://t","startDate":"2025-02-01","endDate":"2025-01-01"}`
	if res := do(t, http.MethodPost, ts.URL+"/v1/admin/banners", bad, nil); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad window status %d", res.StatusCode)
	}

	res = do(t, http.MethodGet, ts.URL+"/v1/admin/sponsorships", "", nil)
	sp := decode[itemsResponse[sponsorshipDTO]](t, res)
	if len(sp.Items) != 1 || sp.Items[0].Type != domain.SponsoredStore || sp.Items[0].StoreName != "Bravo" {
		t.Fatalf("sponsorships = %+v", sp.Items)
	}

	res = do(t, http.MethodGet, ts.URL+"/v1/admin/dashboard", "", nil)
	d := decode[app.Dashboard](t, res)
	if d.Stores != 2 || d.Cities != 1 || d.TotalBanners != 1 || d.ActiveBanners != 0 || d.SponsoredStores != 1 {
		t.Fatalf("dashboard = %+v", d)
	}
}

func TestAdmin_SocialGroups(t *testing.T) {
	ts := newTestServer(t, fixture(), shared.RateLimit{})

	in := `{"name":"Vape Enthusiasts","platform":"telegram","url":"https://t.me/vapers","memberCount":3400}`
	res := do(t, http.MethodPost, ts.URL+"/v1/admin/social-groups", in, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", res.StatusCode)
	}
	g := decode[socialGroupDTO](t, res)
	if !g.IsActive || g.PlatformLabel != "Telegram" {
		t.Fatalf("group = %+v", g)
	}

	res = do(t, http.MethodGet, ts.URL+"/v1/social-groups", "", nil)
	if list := decode[itemsResponse[socialGroupDTO]](t, res); len(list.Items) != 1 {
		t.Fatalf("public groups = %+v", list.Items)
	}

	do(t, http.MethodPost, ts.URL+"/v1/admin/social-groups/"+g.ID+"/toggle", "", nil)
	res = do(t, http.MethodGet, ts.URL+"/v1/social-groups", "", nil)
	if list := decode[itemsResponse[socialGroupDTO]](t, res); len(list.Items) != 0 {
		t.Fatalf("inactive group still public: %+v", list.Items)
	}
}

func TestHealthz(t *testing.T) {
	repo := fixture()
	ts := newTestServer(t, repo, shared.RateLimit{})
	if res := do(t, http.MethodGet, ts.URL+"/healthz", "", nil); res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}

	s := New()
	s.MountHandlers(&Handlers{Health: func(context.Context) error { return errors.New("db down") }})
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", rec.Code)
	}
}
