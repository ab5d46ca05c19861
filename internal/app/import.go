package app

import (
	"context"
	"errors"
	"fmt"

	"vapefinder/internal/domain"
)

// Bulk loading. Import* upsert with caller-chosen IDs so a fixture set can be
// applied repeatedly; they skip aggregate and cache maintenance, which
// RefreshAll performs once at the end.

func (s *AdminService) ImportCity(ctx context.Context, in CityInput) (domain.City, error) {
	c, err := in.build()
	if err != nil {
		return domain.City{}, err
	}
	if err := s.repo.UpsertCity(ctx, c); err != nil {
		return domain.City{}, fmt.Errorf("import city %s: %w", c.Slug, err)
	}
	return c, nil
}

// ImportStore validates, resolves the city and geocodes like CreateStore.
// Ratings and review counts are only written on first insert.
func (s *AdminService) ImportStore(ctx context.Context, id string, in StoreInput) (domain.Store, error) {
	if id == "" {
		return domain.Store{}, domain.Invalid("id", "is required")
	}
	st, err := s.prepareStore(ctx, in)
	if err != nil {
		return domain.Store{}, err
	}
	st.ID = id
	if err := s.repo.UpsertStore(ctx, st); err != nil {
		return domain.Store{}, fmt.Errorf("import store %s: %w", id, err)
	}
	return st, nil
}

// ImportReview inserts a review with the given moderation status. A review
// that already exists is left untouched. Ratings are not recomputed, so
// seeded store ratings survive.
func (s *AdminService) ImportReview(ctx context.Context, id string, in ReviewInput, st domain.ReviewStatus) error {
	r, err := in.build(s.now())
	if err != nil {
		return err
	}
	if st != "" {
		r.Status = st
	}
	r.ID = id
	if err := s.repo.InsertReview(ctx, r); err != nil && !errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("import review %s: %w", id, err)
	}
	return nil
}

func (s *AdminService) ImportBanner(ctx context.Context, id string, in BannerInput) error {
	b, err := in.build()
	if err != nil {
		return err
	}
	b.ID = id
	return s.repo.UpsertBanner(ctx, b)
}

func (s *AdminService) ImportSponsorship(ctx context.Context, id string, in SponsorshipInput) error {
	p, err := in.build()
	if err != nil {
		return err
	}
	p.ID = id
	return s.repo.UpsertSponsorship(ctx, p)
}

func (s *AdminService) ImportSocialGroup(ctx context.Context, id string, in SocialGroupInput) error {
	g, err := in.build()
	if err != nil {
		return err
	}
	g.ID = id
	return s.repo.UpsertSocialGroup(ctx, g)
}

// RefreshAll recomputes every city's aggregates and drops the shared cache
// entries. Per-store review lists expire on their own.
func (s *AdminService) RefreshAll(ctx context.Context) error {
	cities, err := s.repo.ListCities(ctx)
	if err != nil {
		return err
	}
	for _, c := range cities {
		if err := s.repo.RefreshCityAggregates(ctx, c.Name); err != nil {
			return fmt.Errorf("refresh %s aggregates: %w", c.Name, err)
		}
		s.del(ctx, keyCity(c.Slug))
		s.del(ctx, keyCityStores(c.Name))
	}
	for _, k := range []string{keyCities, keyBrands, keySponsorships, keyBanners, keySocialGroups} {
		s.del(ctx, k)
	}
	return nil
}
