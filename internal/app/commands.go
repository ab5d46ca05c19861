package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vapefinder/internal/domain"
)

// Placement names the counter owner for RecordImpression/RecordClick.
type Placement string

const (
	PlacementBanner      Placement = "banners"
	PlacementSponsorship Placement = "sponsorships"
)

type AdminService struct {
	repo  domain.DirectoryRepository
	cache domain.Cache
	geo   domain.Geocoder // optional
	now   domain.Clock
	newID func() string
}

func NewAdminService(r domain.DirectoryRepository, c domain.Cache, g domain.Geocoder, now domain.Clock) *AdminService {
	if now == nil {
		now = time.Now
	}
	return &AdminService{repo: r, cache: c, geo: g, now: now, newID: uuid.NewString}
}

// ---------- cities ----------

func (s *AdminService) CreateCity(ctx context.Context, in CityInput) (domain.City, error) {
	c, err := in.build()
	if err != nil {
		return domain.City{}, err
	}
	if _, err := s.repo.GetCity(ctx, c.Slug); err == nil {
		return domain.City{}, fmt.Errorf("city %s: %w", c.Slug, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.City{}, err
	}
	if err := s.repo.UpsertCity(ctx, c); err != nil {
		return domain.City{}, fmt.Errorf("create city: %w", err)
	}
	if err := s.repo.RefreshCityAggregates(ctx, c.Name); err != nil {
		return domain.City{}, err
	}
	s.invalidateCity(ctx, c.Slug)
	return s.repo.GetCity(ctx, c.Slug)
}

// UpdateCity keeps the slug. Renaming is refused while stores still point at
// the old name.
func (s *AdminService) UpdateCity(ctx context.Context, slug string, in CityInput) (domain.City, error) {
	cur, err := s.repo.GetCity(ctx, slug)
	if err != nil {
		return domain.City{}, err
	}
	in.Slug = cur.Slug
	c, err := in.build()
	if err != nil {
		return domain.City{}, err
	}
	if !strings.EqualFold(c.Name, cur.Name) {
		stores, err := s.repo.ListStores(ctx, domain.StoresQuery{City: cur.Name, Limit: 1})
		if err != nil {
			return domain.City{}, err
		}
		if len(stores) > 0 {
			return domain.City{}, fmt.Errorf("rename %s: city still has stores: %w", slug, domain.ErrConflict)
		}
	}
	if err := s.repo.UpsertCity(ctx, c); err != nil {
		return domain.City{}, fmt.Errorf("update city: %w", err)
	}
	s.invalidateCity(ctx, c.Slug)
	return s.repo.GetCity(ctx, c.Slug)
}

func (s *AdminService) DeleteCity(ctx context.Context, slug string) error {
	cur, err := s.repo.GetCity(ctx, slug)
	if err != nil {
		return err
	}
	stores, err := s.repo.ListStores(ctx, domain.StoresQuery{City: cur.Name, Limit: 1})
	if err != nil {
		return err
	}
	if len(stores) > 0 {
		return fmt.Errorf("delete %s: city still has stores: %w", slug, domain.ErrConflict)
	}
	if err := s.repo.DeleteCity(ctx, slug); err != nil {
		return err
	}
	s.invalidateCity(ctx, slug)
	return nil
}

// ---------- stores ----------

func (s *AdminService) ListStores(ctx context.Context, q domain.StoresQuery) ([]domain.Store, error) {
	return s.repo.ListStores(ctx, q)
}

func (s *AdminService) GetStore(ctx context.Context, id string) (domain.Store, error) {
	return s.repo.GetStore(ctx, id)
}

func (s *AdminService) CreateStore(ctx context.Context, in StoreInput) (domain.Store, error) {
	st, err := s.prepareStore(ctx, in)
	if err != nil {
		return domain.Store{}, err
	}
	st.ID = s.newID()
	if err := s.repo.UpsertStore(ctx, st); err != nil {
		return domain.Store{}, fmt.Errorf("create store: %w", err)
	}
	if err := s.afterStoreChange(ctx, st, ""); err != nil {
		return domain.Store{}, err
	}
	return s.repo.GetStore(ctx, st.ID)
}

func (s *AdminService) UpdateStore(ctx context.Context, id string, in StoreInput) (domain.Store, error) {
	cur, err := s.repo.GetStore(ctx, id)
	if err != nil {
		return domain.Store{}, err
	}
	if in.Coords == nil && cur.Coords != nil && strings.EqualFold(strings.TrimSpace(in.Address), cur.Address) {
		in.Coords = cur.Coords // address unchanged, skip geocoding
	}
	st, err := s.prepareStore(ctx, in)
	if err != nil {
		return domain.Store{}, err
	}
	st.ID = cur.ID
	if err := s.repo.UpsertStore(ctx, st); err != nil {
		return domain.Store{}, fmt.Errorf("update store: %w", err)
	}
	if err := s.afterStoreChange(ctx, st, cur.City); err != nil {
		return domain.Store{}, err
	}
	return s.repo.GetStore(ctx, st.ID)
}

func (s *AdminService) DeleteStore(ctx context.Context, id string) error {
	cur, err := s.repo.GetStore(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteStore(ctx, id); err != nil {
		return err
	}
	s.del(ctx, keyStoreReviews(id))
	return s.afterStoreChange(ctx, cur, "")
}

// prepareStore validates the input, resolves the city and fills coordinates.
func (s *AdminService) prepareStore(ctx context.Context, in StoreInput) (domain.Store, error) {
	st, err := in.build()
	if err != nil {
		return domain.Store{}, err
	}
	city, err := s.cityByName(ctx, st.City)
	if err != nil {
		return domain.Store{}, err
	}
	st.City = city.Name
	if st.State == "" {
		st.State = city.State
	}
	if st.Coords == nil && s.geo != nil {
		addr := strings.Join([]string{st.Address, st.City, strings.TrimSpace(st.State + " " + st.ZipCode)}, ", ")
		if c, err := s.geo.Geocode(ctx, addr); err == nil {
			st.Coords = &c
		} else {
			// the store is still listed, just without distance
			log.Warn().Err(err).Str("store", st.Slug).Msg("geocode failed")
		}
	}
	return st, nil
}

func (s *AdminService) cityByName(ctx context.Context, name string) (domain.City, error) {
	cities, err := s.repo.ListCities(ctx)
	if err != nil {
		return domain.City{}, err
	}
	for _, c := range cities {
		if strings.EqualFold(c.Name, name) || c.Slug == domain.Slugify(name) {
			return c, nil
		}
	}
	return domain.City{}, domain.Invalid("city", "unknown city "+name)
}

// afterStoreChange recomputes aggregates for the store's city (and the one it
// moved away from) and drops the cached listings.
func (s *AdminService) afterStoreChange(ctx context.Context, st domain.Store, previousCity string) error {
	names := []string{st.City}
	if previousCity != "" && !strings.EqualFold(previousCity, st.City) {
		names = append(names, previousCity)
	}
	for _, name := range names {
		if err := s.repo.RefreshCityAggregates(ctx, name); err != nil {
			return fmt.Errorf("refresh %s aggregates: %w", name, err)
		}
		s.del(ctx, keyCityStores(name))
		if c, err := s.cityByName(ctx, name); err == nil {
			s.del(ctx, keyCity(c.Slug))
		}
	}
	s.del(ctx, keyCities)
	s.del(ctx, keyBrands)
	s.del(ctx, keySponsorships)
	return nil
}

// ---------- reviews ----------

// SubmitReview stores a pending review; it is not public until approved.
func (s *AdminService) SubmitReview(ctx context.Context, in ReviewInput) (domain.Review, error) {
	r, err := in.build(s.now())
	if err != nil {
		return domain.Review{}, err
	}
	if _, err := s.repo.GetStore(ctx, r.StoreID); err != nil {
		return domain.Review{}, err
	}
	r.ID = s.newID()
	if err := s.repo.InsertReview(ctx, r); err != nil {
		return domain.Review{}, fmt.Errorf("insert review: %w", err)
	}
	return r, nil
}

func (s *AdminService) ListReviews(ctx context.Context, q domain.ReviewsQuery) ([]domain.ReviewWithStore, error) {
	if q.Status != "" && q.Status != domain.ReviewPending && q.Status != domain.ReviewApproved && q.Status != domain.ReviewRejected {
		return nil, domain.Invalid("status", "unknown review status "+string(q.Status))
	}
	return s.repo.ListReviews(ctx, q)
}

func (s *AdminService) ApproveReview(ctx context.Context, id string) (domain.Review, error) {
	return s.moderate(ctx, id, domain.ReviewApproved)
}

func (s *AdminService) RejectReview(ctx context.Context, id string) (domain.Review, error) {
	return s.moderate(ctx, id, domain.ReviewRejected)
}

func (s *AdminService) DeleteReview(ctx context.Context, id string) error {
	r, err := s.repo.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteReview(ctx, id); err != nil {
		return err
	}
	return s.rerate(ctx, r.StoreID)
}

func (s *AdminService) moderate(ctx context.Context, id string, st domain.ReviewStatus) (domain.Review, error) {
	r, err := s.repo.GetReview(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	if err := s.repo.SetReviewStatus(ctx, id, st); err != nil {
		return domain.Review{}, err
	}
	r.Status = st
	return r, s.rerate(ctx, r.StoreID)
}

func (s *AdminService) rerate(ctx context.Context, storeID string) error {
	if err := s.repo.RefreshStoreRating(ctx, storeID); err != nil {
		return fmt.Errorf("refresh rating %s: %w", storeID, err)
	}
	s.del(ctx, keyStoreReviews(storeID))
	st, err := s.repo.GetStore(ctx, storeID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.afterStoreChange(ctx, st, "")
}

// ---------- banners ----------

func (s *AdminService) ListBanners(ctx context.Context) ([]domain.BannerAd, error) {
	return s.repo.ListBanners(ctx)
}

func (s *AdminService) CreateBanner(ctx context.Context, in BannerInput) (domain.BannerAd, error) {
	b, err := in.build()
	if err != nil {
		return domain.BannerAd{}, err
	}
	b.ID = s.newID()
	if err := s.repo.UpsertBanner(ctx, b); err != nil {
		return domain.BannerAd{}, fmt.Errorf("create banner: %w", err)
	}
	s.del(ctx, keyBanners)
	return b, nil
}

func (s *AdminService) UpdateBanner(ctx context.Context, id string, in BannerInput) (domain.BannerAd, error) {
	cur, err := s.repo.GetBanner(ctx, id)
	if err != nil {
		return domain.BannerAd{}, err
	}
	b, err := in.build()
	if err != nil {
		return domain.BannerAd{}, err
	}
	b.ID, b.Counters = cur.ID, cur.Counters
	if err := s.repo.UpsertBanner(ctx, b); err != nil {
		return domain.BannerAd{}, fmt.Errorf("update banner: %w", err)
	}
	s.del(ctx, keyBanners)
	return b, nil
}

func (s *AdminService) ToggleBanner(ctx context.Context, id string) (domain.BannerAd, error) {
	b, err := s.repo.GetBanner(ctx, id)
	if err != nil {
		return domain.BannerAd{}, err
	}
	b.IsActive = !b.IsActive
	if err := s.repo.UpsertBanner(ctx, b); err != nil {
		return domain.BannerAd{}, err
	}
	s.del(ctx, keyBanners)
	return b, nil
}

func (s *AdminService) DeleteBanner(ctx context.Context, id string) error {
	if err := s.repo.DeleteBanner(ctx, id); err != nil {
		return err
	}
	s.del(ctx, keyBanners)
	return nil
}

// ---------- sponsorships ----------

func (s *AdminService) ListSponsorships(ctx context.Context) ([]domain.Sponsorship, error) {
	return s.repo.ListSponsorships(ctx)
}

func (s *AdminService) CreateSponsorship(ctx context.Context, in SponsorshipInput) (domain.Sponsorship, error) {
	p, err := in.build()
	if err != nil {
		return domain.Sponsorship{}, err
	}
	if _, err := s.repo.GetStore(ctx, p.StoreID); errors.Is(err, domain.ErrNotFound) {
		return domain.Sponsorship{}, domain.Invalid("storeId", "unknown store "+p.StoreID)
	} else if err != nil {
		return domain.Sponsorship{}, err
	}
	p.ID = s.newID()
	if err := s.repo.UpsertSponsorship(ctx, p); err != nil {
		return domain.Sponsorship{}, fmt.Errorf("create sponsorship: %w", err)
	}
	s.invalidateSponsorships(ctx)
	return s.repo.GetSponsorship(ctx, p.ID)
}

func (s *AdminService) UpdateSponsorship(ctx context.Context, id string, in SponsorshipInput) (domain.Sponsorship, error) {
	cur, err := s.repo.GetSponsorship(ctx, id)
	if err != nil {
		return domain.Sponsorship{}, err
	}
	p, err := in.build()
	if err != nil {
		return domain.Sponsorship{}, err
	}
	if p.StoreID != cur.StoreID {
		if _, err := s.repo.GetStore(ctx, p.StoreID); errors.Is(err, domain.ErrNotFound) {
			return domain.Sponsorship{}, domain.Invalid("storeId", "unknown store "+p.StoreID)
		} else if err != nil {
			return domain.Sponsorship{}, err
		}
	}
	p.ID = cur.ID
	if err := s.repo.UpsertSponsorship(ctx, p); err != nil {
		return domain.Sponsorship{}, fmt.Errorf("update sponsorship: %w", err)
	}
	s.invalidateSponsorships(ctx)
	return s.repo.GetSponsorship(ctx, p.ID)
}

func (s *AdminService) ToggleSponsorship(ctx context.Context, id string) (domain.Sponsorship, error) {
	p, err := s.repo.GetSponsorship(ctx, id)
	if err != nil {
		return domain.Sponsorship{}, err
	}
	p.IsActive = !p.IsActive
	if err := s.repo.UpsertSponsorship(ctx, p); err != nil {
		return domain.Sponsorship{}, err
	}
	s.invalidateSponsorships(ctx)
	return p, nil
}

func (s *AdminService) DeleteSponsorship(ctx context.Context, id string) error {
	if err := s.repo.DeleteSponsorship(ctx, id); err != nil {
		return err
	}
	s.invalidateSponsorships(ctx)
	return nil
}

// ---------- counters ----------

func (s *AdminService) RecordImpression(ctx context.Context, p Placement, id string) error {
	return s.record(ctx, p, id, domain.Impression)
}

func (s *AdminService) RecordClick(ctx context.Context, p Placement, id string) error {
	return s.record(ctx, p, id, domain.Click)
}

// Counters bypass the cache; public reads never show them.
func (s *AdminService) record(ctx context.Context, p Placement, id string, kind domain.CounterKind) error {
	switch p {
	case PlacementBanner:
		return s.repo.IncrementBanner(ctx, id, kind)
	case PlacementSponsorship:
		return s.repo.IncrementSponsorship(ctx, id, kind)
	}
	return domain.Invalid("placement", "unknown placement "+string(p))
}

// ---------- social groups ----------

func (s *AdminService) ListSocialGroups(ctx context.Context) ([]domain.SocialGroup, error) {
	return s.repo.ListSocialGroups(ctx)
}

func (s *AdminService) CreateSocialGroup(ctx context.Context, in SocialGroupInput) (domain.SocialGroup, error) {
	g, err := in.build()
	if err != nil {
		return domain.SocialGroup{}, err
	}
	g.ID = s.newID()
	if err := s.repo.UpsertSocialGroup(ctx, g); err != nil {
		return domain.SocialGroup{}, fmt.Errorf("create social group: %w", err)
	}
	s.del(ctx, keySocialGroups)
	return g, nil
}

func (s *AdminService) UpdateSocialGroup(ctx context.Context, id string, in SocialGroupInput) (domain.SocialGroup, error) {
	if _, err := s.repo.GetSocialGroup(ctx, id); err != nil {
		return domain.SocialGroup{}, err
	}
	g, err := in.build()
	if err != nil {
		return domain.SocialGroup{}, err
	}
	g.ID = id
	if err := s.repo.UpsertSocialGroup(ctx, g); err != nil {
		return domain.SocialGroup{}, fmt.Errorf("update social group: %w", err)
	}
	s.del(ctx, keySocialGroups)
	return g, nil
}

func (s *AdminService) ToggleSocialGroup(ctx context.Context, id string) (domain.SocialGroup, error) {
	g, err := s.repo.GetSocialGroup(ctx, id)
	if err != nil {
		return domain.SocialGroup{}, err
	}
	g.IsActive = !g.IsActive
	if err := s.repo.UpsertSocialGroup(ctx, g); err != nil {
		return domain.SocialGroup{}, err
	}
	s.del(ctx, keySocialGroups)
	return g, nil
}

func (s *AdminService) DeleteSocialGroup(ctx context.Context, id string) error {
	if err := s.repo.DeleteSocialGroup(ctx, id); err != nil {
		return err
	}
	s.del(ctx, keySocialGroups)
	return nil
}

// ---------- cache ----------

func (s *AdminService) invalidateCity(ctx context.Context, slug string) {
	s.del(ctx, keyCities)
	s.del(ctx, keyCity(slug))
}

// sponsorship changes alter which stores are featured in every city
func (s *AdminService) invalidateSponsorships(ctx context.Context) {
	s.del(ctx, keySponsorships)
}

func (s *AdminService) del(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache invalidation failed")
	}
}
