package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"vapefinder/internal/adapters/observability"
	"vapefinder/internal/domain"
	"vapefinder/internal/listing"
)

const citySuggestions = 5

type QueryService struct {
	repo       domain.DirectoryRepository
	cache      domain.Cache
	cacheTTL   time.Duration
	now        domain.Clock
	defaultLoc *time.Location
}

// NewQueryService wires the read side. now defaults to time.Now and loc (used
// for cities without a time zone) to UTC.
func NewQueryService(r domain.DirectoryRepository, c domain.Cache, ttl time.Duration, now domain.Clock, loc *time.Location) *QueryService {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &QueryService{repo: r, cache: c, cacheTTL: ttl, now: now, defaultLoc: loc}
}

// ListingQuery is one render of a city page.
type ListingQuery struct {
	CitySlug    string
	OpenNowOnly bool
	Brands      []string
	Location    *domain.Coords
	Unit        listing.Unit
	Draw        *listing.Draw // nil on first load
}

type CityPage struct {
	City    domain.City
	Listing listing.Result
	Banners []domain.BannerAd
	Total   int
	OpenNow int
}

type StorePage struct {
	City       domain.City
	Store      domain.Store
	TodayHours string
	Banners    []domain.BannerAd
}

func (s *QueryService) ListCities(ctx context.Context) ([]domain.City, error) {
	var out []domain.City
	if s.cacheGet(ctx, keyCities, &out) {
		return out, nil
	}
	out, err := s.repo.ListCities(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, keyCities, out)
	return out, nil
}

// SearchCities returns up to five cities whose name or state contains q,
// prefix matches first.
func (s *QueryService) SearchCities(ctx context.Context, q string) ([]domain.City, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []domain.City{}, nil
	}
	all, err := s.ListCities(ctx)
	if err != nil {
		return nil, err
	}
	var prefix, contains []domain.City
	for _, c := range all {
		name, state := strings.ToLower(c.Name), strings.ToLower(c.State)
		switch {
		case strings.HasPrefix(name, q) || state == q:
			prefix = append(prefix, c)
		case strings.Contains(name, q) || strings.Contains(state, q):
			contains = append(contains, c)
		}
	}
	out := append(prefix, contains...)
	if len(out) > citySuggestions {
		out = out[:citySuggestions]
	}
	if out == nil {
		out = []domain.City{}
	}
	return out, nil
}

func (s *QueryService) GetCity(ctx context.Context, slug string) (domain.City, error) {
	key := keyCity(slug)
	var c domain.City
	if s.cacheGet(ctx, key, &c) {
		return c, nil
	}
	c, err := s.repo.GetCity(ctx, slug)
	if err != nil {
		return domain.City{}, err
	}
	s.cacheSet(ctx, key, c)
	return c, nil
}

func (s *QueryService) CityListing(ctx context.Context, q ListingQuery) (CityPage, error) {
	city, err := s.GetCity(ctx, q.CitySlug)
	if err != nil {
		return CityPage{}, err
	}
	stores, err := s.cityStores(ctx, city)
	if err != nil {
		return CityPage{}, err
	}
	if len(stores) == 0 {
		return CityPage{}, fmt.Errorf("city %s has no stores: %w", city.Slug, domain.ErrNotFound)
	}

	now := s.now()
	sponsored, err := s.sponsoredStores(ctx, now)
	if err != nil {
		return CityPage{}, err
	}
	local := now.In(s.location(city))
	openNow := 0
	for i := range stores {
		if stores[i].Hours.Known() {
			stores[i].IsOpen = stores[i].Hours.OpenAt(local)
		}
		if _, ok := sponsored[stores[i].ID]; ok {
			stores[i].IsSponsored = true
		}
		if stores[i].IsOpen {
			openNow++
		}
	}

	draw := listing.NewDraw(nil)
	if q.Draw != nil {
		draw = *q.Draw
	}
	res := listing.Rank(stores, listing.Options{
		Filters:  listing.Filters{OpenNowOnly: q.OpenNowOnly, Brands: q.Brands},
		Location: q.Location,
		Unit:     q.Unit,
		Draw:     draw,
	})

	featured := ""
	if res.Featured != nil {
		featured = res.Featured.Store.ID
	}
	observability.ObserveListing(city.Slug, q.Location != nil, res.Empty, featured)

	banners, err := s.activeBanners(ctx, domain.ListBanner, now)
	if err != nil {
		return CityPage{}, err
	}
	return CityPage{City: city, Listing: res, Banners: banners, Total: len(stores), OpenNow: openNow}, nil
}

func (s *QueryService) GetStore(ctx context.Context, citySlug, storeSlug string) (StorePage, error) {
	city, err := s.GetCity(ctx, citySlug)
	if err != nil {
		return StorePage{}, err
	}
	stores, err := s.cityStores(ctx, city)
	if err != nil {
		return StorePage{}, err
	}
	var st *domain.Store
	for i := range stores {
		if stores[i].Slug == storeSlug {
			st = &stores[i]
			break
		}
	}
	if st == nil {
		return StorePage{}, fmt.Errorf("store %s/%s: %w", citySlug, storeSlug, domain.ErrNotFound)
	}

	now := s.now()
	local := now.In(s.location(city))
	if st.Hours.Known() {
		st.IsOpen = st.Hours.OpenAt(local)
	}
	sponsored, err := s.sponsoredStores(ctx, now)
	if err != nil {
		return StorePage{}, err
	}
	if _, ok := sponsored[st.ID]; ok {
		st.IsSponsored = true
	}
	if st.Reviews, err = s.approvedReviews(ctx, st.ID); err != nil {
		return StorePage{}, err
	}

	banners, err := s.activeBanners(ctx, domain.DetailBanner, now)
	if err != nil {
		return StorePage{}, err
	}
	return StorePage{City: city, Store: *st, TodayHours: st.Hours.Label(local.Weekday()), Banners: banners}, nil
}

func (s *QueryService) Brands(ctx context.Context) ([]string, error) {
	var out []string
	if s.cacheGet(ctx, keyBrands, &out) {
		return out, nil
	}
	out, err := s.repo.ListBrands(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	s.cacheSet(ctx, keyBrands, out)
	return out, nil
}

// ListSocialGroups returns active groups only.
func (s *QueryService) ListSocialGroups(ctx context.Context) ([]domain.SocialGroup, error) {
	var all []domain.SocialGroup
	if !s.cacheGet(ctx, keySocialGroups, &all) {
		var err error
		if all, err = s.repo.ListSocialGroups(ctx); err != nil {
			return nil, err
		}
		s.cacheSet(ctx, keySocialGroups, all)
	}
	out := make([]domain.SocialGroup, 0, len(all))
	for _, g := range all {
		if g.IsActive {
			out = append(out, g)
		}
	}
	return out, nil
}

// ---- helpers ----

// cityStores returns a private copy so callers may adjust IsOpen/IsSponsored.
func (s *QueryService) cityStores(ctx context.Context, city domain.City) ([]domain.Store, error) {
	key := keyCityStores(city.Name)
	var out []domain.Store
	if !s.cacheGet(ctx, key, &out) {
		var err error
		if out, err = s.repo.ListStores(ctx, domain.StoresQuery{City: city.Name}); err != nil {
			return nil, err
		}
		s.cacheSet(ctx, key, out)
	}
	cp := make([]domain.Store, len(out))
	copy(cp, out)
	return cp, nil
}

func (s *QueryService) approvedReviews(ctx context.Context, storeID string) ([]domain.Review, error) {
	key := keyStoreReviews(storeID)
	var out []domain.Review
	if s.cacheGet(ctx, key, &out) {
		return out, nil
	}
	rows, err := s.repo.ListReviews(ctx, domain.ReviewsQuery{StoreID: storeID, Status: domain.ReviewApproved})
	if err != nil {
		return nil, err
	}
	out = make([]domain.Review, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Review)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	s.cacheSet(ctx, key, out)
	return out, nil
}

func (s *QueryService) sponsoredStores(ctx context.Context, now time.Time) (map[string]struct{}, error) {
	var all []domain.Sponsorship
	if !s.cacheGet(ctx, keySponsorships, &all) {
		var err error
		if all, err = s.repo.ListSponsorships(ctx); err != nil {
			return nil, err
		}
		s.cacheSet(ctx, keySponsorships, all)
	}
	out := make(map[string]struct{}, len(all))
	for _, p := range all {
		if p.ActiveAt(now) {
			out[p.StoreID] = struct{}{}
		}
	}
	return out, nil
}

func (s *QueryService) activeBanners(ctx context.Context, t domain.AdType, now time.Time) ([]domain.BannerAd, error) {
	var all []domain.BannerAd
	if !s.cacheGet(ctx, keyBanners, &all) {
		var err error
		if all, err = s.repo.ListBanners(ctx); err != nil {
			return nil, err
		}
		s.cacheSet(ctx, keyBanners, all)
	}
	out := make([]domain.BannerAd, 0, len(all))
	for _, b := range all {
		if b.Type == t && b.ActiveAt(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *QueryService) location(c domain.City) *time.Location {
	if c.TimeZone == "" {
		return s.defaultLoc
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		log.Warn().Err(err).Str("city", c.Slug).Msg("unknown time zone, using default")
		return s.defaultLoc
	}
	return loc
}

// cache failures never fail a request
func (s *QueryService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache get failed")
		return false
	}
	return ok
}

func (s *QueryService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds())); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache set failed")
	}
}
