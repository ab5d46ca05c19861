// Package apptest provides in-memory doubles for the app ports, shared by the
// app and HTTP tests.
package apptest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"vapefinder/internal/domain"
)

// Repo is a map-backed domain.DirectoryRepository. Calls counts method
// invocations so tests can assert cache behavior.
type Repo struct {
	mu           sync.Mutex
	Cities       map[string]domain.City
	Stores       map[string]domain.Store
	Reviews      map[string]domain.Review
	Banners      map[string]domain.BannerAd
	Sponsorships map[string]domain.Sponsorship
	Groups       map[string]domain.SocialGroup
	Submissions  map[string]domain.StoreSubmission
	Calls        map[string]int
	Err          error // returned by every call when set
}

func NewRepo() *Repo {
	return &Repo{
		Cities:       map[string]domain.City{},
		Stores:       map[string]domain.Store{},
		Reviews:      map[string]domain.Review{},
		Banners:      map[string]domain.BannerAd{},
		Sponsorships: map[string]domain.Sponsorship{},
		Groups:       map[string]domain.SocialGroup{},
		Submissions:  map[string]domain.StoreSubmission{},
		Calls:        map[string]int{},
	}
}

func (r *Repo) enter(name string) func() {
	r.mu.Lock()
	r.Calls[name]++
	return r.mu.Unlock
}

// CallCount is safe to use while handlers run.
func (r *Repo) CallCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Calls[name]
}

// ---- cities ----

func (r *Repo) ListCities(ctx context.Context) ([]domain.City, error) {
	defer r.enter("ListCities")()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]domain.City, 0, len(r.Cities))
	for _, c := range r.Cities {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Repo) GetCity(ctx context.Context, slug string) (domain.City, error) {
	defer r.enter("GetCity")()
	if r.Err != nil {
		return domain.City{}, r.Err
	}
	c, ok := r.Cities[slug]
	if !ok {
		return domain.City{}, domain.ErrNotFound
	}
	return c, nil
}

func (r *Repo) UpsertCity(ctx context.Context, c domain.City) error {
	defer r.enter("UpsertCity")()
	if r.Err != nil {
		return r.Err
	}
	if cur, ok := r.Cities[c.Slug]; ok {
		c.StoreCount, c.AverageRating = cur.StoreCount, cur.AverageRating
	}
	r.Cities[c.Slug] = c
	return nil
}

func (r *Repo) DeleteCity(ctx context.Context, slug string) error {
	defer r.enter("DeleteCity")()
	if _, ok := r.Cities[slug]; !ok {
		return domain.ErrNotFound
	}
	delete(r.Cities, slug)
	return nil
}

func (r *Repo) RefreshCityAggregates(ctx context.Context, cityName string) error {
	defer r.enter("RefreshCityAggregates")()
	for slug, c := range r.Cities {
		if c.Name != cityName {
			continue
		}
		n, sum := 0, 0.0
		for _, s := range r.Stores {
			if s.City == cityName {
				n++
				sum += s.Rating
			}
		}
		c.StoreCount, c.AverageRating = n, 0
		if n > 0 {
			c.AverageRating = round1(sum / float64(n))
		}
		r.Cities[slug] = c
	}
	return nil
}

// ---- stores ----

func (r *Repo) ListStores(ctx context.Context, q domain.StoresQuery) ([]domain.Store, error) {
	defer r.enter("ListStores")()
	if r.Err != nil {
		return nil, r.Err
	}
	kw := strings.ToLower(q.Keyword)
	out := []domain.Store{}
	for _, s := range r.Stores {
		if q.City != "" && s.City != q.City {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(s.Name), kw) && !strings.Contains(strings.ToLower(s.Address), kw) {
			continue
		}
		out = append(out, clone(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *Repo) GetStore(ctx context.Context, id string) (domain.Store, error) {
	defer r.enter("GetStore")()
	if r.Err != nil {
		return domain.Store{}, r.Err
	}
	s, ok := r.Stores[id]
	if !ok {
		return domain.Store{}, domain.ErrNotFound
	}
	return clone(s), nil
}

func (r *Repo) GetStoreBySlug(ctx context.Context, cityName, slug string) (domain.Store, error) {
	defer r.enter("GetStoreBySlug")()
	for _, s := range r.Stores {
		if s.City == cityName && s.Slug == slug {
			return clone(s), nil
		}
	}
	return domain.Store{}, domain.ErrNotFound
}

func (r *Repo) UpsertStore(ctx context.Context, s domain.Store) error {
	defer r.enter("UpsertStore")()
	if r.Err != nil {
		return r.Err
	}
	for id, o := range r.Stores {
		if id != s.ID && o.City == s.City && o.Slug == s.Slug {
			return fmt.Errorf("%w: duplicate slug %s", domain.ErrConflict, s.Slug)
		}
	}
	if cur, ok := r.Stores[s.ID]; ok {
		s.Rating, s.SubRatings, s.ReviewCount = cur.Rating, cur.SubRatings, cur.ReviewCount
	}
	r.Stores[s.ID] = clone(s)
	return nil
}

func (r *Repo) DeleteStore(ctx context.Context, id string) error {
	defer r.enter("DeleteStore")()
	if _, ok := r.Stores[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.Stores, id)
	for rid, rv := range r.Reviews {
		if rv.StoreID == id {
			delete(r.Reviews, rid)
		}
	}
	for pid, p := range r.Sponsorships {
		if p.StoreID == id {
			delete(r.Sponsorships, pid)
		}
	}
	return nil
}

func (r *Repo) ListBrands(ctx context.Context) ([]string, error) {
	defer r.enter("ListBrands")()
	seen := map[string]struct{}{}
	for _, s := range r.Stores {
		for _, b := range s.Brands {
			seen[b.Name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out, nil
}

func (r *Repo) RefreshStoreRating(ctx context.Context, storeID string) error {
	defer r.enter("RefreshStoreRating")()
	s, ok := r.Stores[storeID]
	if !ok {
		return nil
	}
	n := 0
	var sum float64
	var sub domain.SubRatings
	for _, rv := range r.Reviews {
		if rv.StoreID != storeID || rv.Status != domain.ReviewApproved {
			continue
		}
		n++
		sum += rv.Rating
		sub.Service += rv.SubRatings.Service
		sub.Inventory += rv.SubRatings.Inventory
		sub.Pricing += rv.SubRatings.Pricing
	}
	s.ReviewCount = n
	if n > 0 {
		f := float64(n)
		s.Rating = round1(sum / f)
		s.SubRatings = domain.SubRatings{Service: round1(sub.Service / f), Inventory: round1(sub.Inventory / f), Pricing: round1(sub.Pricing / f)}
	}
	r.Stores[storeID] = s
	return nil
}

// ---- reviews ----

func (r *Repo) ListReviews(ctx context.Context, q domain.ReviewsQuery) ([]domain.ReviewWithStore, error) {
	defer r.enter("ListReviews")()
	if r.Err != nil {
		return nil, r.Err
	}
	search := strings.ToLower(q.Search)
	out := []domain.ReviewWithStore{}
	for _, rv := range r.Reviews {
		if q.StoreID != "" && rv.StoreID != q.StoreID {
			continue
		}
		if q.Status != "" && rv.Status != q.Status {
			continue
		}
		name := r.Stores[rv.StoreID].Name
		if search != "" && !strings.Contains(strings.ToLower(rv.UserName), search) &&
			!strings.Contains(strings.ToLower(name), search) && !strings.Contains(strings.ToLower(rv.Content), search) {
			continue
		}
		out = append(out, domain.ReviewWithStore{Review: rv, StoreName: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *Repo) GetReview(ctx context.Context, id string) (domain.Review, error) {
	defer r.enter("GetReview")()
	rv, ok := r.Reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return rv, nil
}

func (r *Repo) InsertReview(ctx context.Context, rv domain.Review) error {
	defer r.enter("InsertReview")()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Reviews[rv.ID]; ok {
		return domain.ErrConflict
	}
	r.Reviews[rv.ID] = rv
	return nil
}

func (r *Repo) SetReviewStatus(ctx context.Context, id string, st domain.ReviewStatus) error {
	defer r.enter("SetReviewStatus")()
	rv, ok := r.Reviews[id]
	if !ok {
		return nil
	}
	rv.Status = st
	r.Reviews[id] = rv
	return nil
}

func (r *Repo) DeleteReview(ctx context.Context, id string) error {
	defer r.enter("DeleteReview")()
	if _, ok := r.Reviews[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.Reviews, id)
	return nil
}

// ---- ads ----

func (r *Repo) ListBanners(ctx context.Context) ([]domain.BannerAd, error) {
	defer r.enter("ListBanners")()
	out := make([]domain.BannerAd, 0, len(r.Banners))
	for _, b := range r.Banners {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repo) GetBanner(ctx context.Context, id string) (domain.BannerAd, error) {
	defer r.enter("GetBanner")()
	b, ok := r.Banners[id]
	if !ok {
		return domain.BannerAd{}, domain.ErrNotFound
	}
	return b, nil
}

func (r *Repo) UpsertBanner(ctx context.Context, b domain.BannerAd) error {
	defer r.enter("UpsertBanner")()
	if cur, ok := r.Banners[b.ID]; ok {
		b.Counters = cur.Counters
	}
	r.Banners[b.ID] = b
	return nil
}

func (r *Repo) DeleteBanner(ctx context.Context, id string) error {
	defer r.enter("DeleteBanner")()
	if _, ok := r.Banners[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.Banners, id)
	return nil
}

func (r *Repo) ListSponsorships(ctx context.Context) ([]domain.Sponsorship, error) {
	defer r.enter("ListSponsorships")()
	out := make([]domain.Sponsorship, 0, len(r.Sponsorships))
	for _, p := range r.Sponsorships {
		out = append(out, r.withStore(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repo) GetSponsorship(ctx context.Context, id string) (domain.Sponsorship, error) {
	defer r.enter("GetSponsorship")()
	p, ok := r.Sponsorships[id]
	if !ok {
		return domain.Sponsorship{}, domain.ErrNotFound
	}
	return r.withStore(p), nil
}

func (r *Repo) withStore(p domain.Sponsorship) domain.Sponsorship {
	s := r.Stores[p.StoreID]
	p.StoreName, p.StoreCity = s.Name, s.City
	return p
}

func (r *Repo) UpsertSponsorship(ctx context.Context, p domain.Sponsorship) error {
	defer r.enter("UpsertSponsorship")()
	if cur, ok := r.Sponsorships[p.ID]; ok {
		p.Counters = cur.Counters
	}
	r.Sponsorships[p.ID] = p
	return nil
}

func (r *Repo) DeleteSponsorship(ctx context.Context, id string) error {
	defer r.enter("DeleteSponsorship")()
	if _, ok := r.Sponsorships[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.Sponsorships, id)
	return nil
}

func bump(c *domain.Counters, kind domain.CounterKind) error {
	switch kind {
	case domain.Impression:
		c.Impressions++
	case domain.Click:
		c.Clicks++
	default:
		return domain.Invalid("kind", "unknown counter")
	}
	return nil
}

func (r *Repo) IncrementBanner(ctx context.Context, id string, kind domain.CounterKind) error {
	defer r.enter("IncrementBanner")()
	b, ok := r.Banners[id]
	if !ok {
		return domain.ErrNotFound
	}
	if err := bump(&b.Counters, kind); err != nil {
		return err
	}
	r.Banners[id] = b
	return nil
}

func (r *Repo) IncrementSponsorship(ctx context.Context, id string, kind domain.CounterKind) error {
	defer r.enter("IncrementSponsorship")()
	p, ok := r.Sponsorships[id]
	if !ok {
		return domain.ErrNotFound
	}
	if err := bump(&p.Counters, kind); err != nil {
		return err
	}
	r.Sponsorships[id] = p
	return nil
}

// ---- social groups ----

func (r *Repo) ListSocialGroups(ctx context.Context) ([]domain.SocialGroup, error) {
	defer r.enter("ListSocialGroups")()
	out := make([]domain.SocialGroup, 0, len(r.Groups))
	for _, g := range r.Groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberCount > out[j].MemberCount })
	return out, nil
}

func (r *Repo) GetSocialGroup(ctx context.Context, id string) (domain.SocialGroup, error) {
	defer r.enter("GetSocialGroup")()
	g, ok := r.Groups[id]
	if !ok {
		return domain.SocialGroup{}, domain.ErrNotFound
	}
	return g, nil
}

func (r *Repo) UpsertSocialGroup(ctx context.Context, g domain.SocialGroup) error {
	defer r.enter("UpsertSocialGroup")()
	r.Groups[g.ID] = g
	return nil
}

func (r *Repo) DeleteSocialGroup(ctx context.Context, id string) error {
	defer r.enter("DeleteSocialGroup")()
	if _, ok := r.Groups[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.Groups, id)
	return nil
}

// ---- store submissions ----

func (r *Repo) ListSubmissions(ctx context.Context, status domain.ReviewStatus) ([]domain.StoreSubmission, error) {
	defer r.enter("ListSubmissions")()
	if r.Err != nil {
		return nil, r.Err
	}
	out := []domain.StoreSubmission{}
	for _, s := range r.Submissions {
		if status == "" || s.Status == status {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *Repo) GetSubmission(ctx context.Context, id string) (domain.StoreSubmission, error) {
	defer r.enter("GetSubmission")()
	s, ok := r.Submissions[id]
	if !ok {
		return domain.StoreSubmission{}, domain.ErrNotFound
	}
	return s, nil
}

func (r *Repo) InsertSubmission(ctx context.Context, s domain.StoreSubmission) error {
	defer r.enter("InsertSubmission")()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Submissions[s.ID]; ok {
		return domain.ErrConflict
	}
	r.Submissions[s.ID] = s
	return nil
}

func (r *Repo) SetSubmissionStatus(ctx context.Context, id string, st domain.ReviewStatus, storeID string) error {
	defer r.enter("SetSubmissionStatus")()
	s, ok := r.Submissions[id]
	if !ok {
		return nil
	}
	s.Status, s.StoreID = st, storeID
	r.Submissions[id] = s
	return nil
}

// clone deep-copies through JSON so callers cannot alias stored slices.
func clone(s domain.Store) domain.Store {
	b, _ := json.Marshal(s)
	var out domain.Store
	_ = json.Unmarshal(b, &out)
	return out
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }

var _ domain.DirectoryRepository = (*Repo)(nil)
