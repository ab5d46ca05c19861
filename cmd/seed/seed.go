package main

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"vapefinder/internal/app"
	"vapefinder/internal/domain"
)

//go:embed fixtures.json
var defaultFixtures []byte

type storeFixture struct {
	ID string `json:"id"`
	app.StoreInput
}

type reviewFixture struct {
	ID     string              `json:"id"`
	Status domain.ReviewStatus `json:"status"`
	app.ReviewInput
}

type bannerFixture struct {
	ID string `json:"id"`
	app.BannerInput
}

type sponsorshipFixture struct {
	ID string `json:"id"`
	app.SponsorshipInput
}

type groupFixture struct {
	ID string `json:"id"`
	app.SocialGroupInput
}

type fixtureSet struct {
	Cities       []app.CityInput      `json:"cities"`
	Stores       []storeFixture       `json:"stores"`
	Reviews      []reviewFixture      `json:"reviews"`
	Banners      []bannerFixture      `json:"banners"`
	Sponsorships []sponsorshipFixture `json:"sponsorships"`
	SocialGroups []groupFixture       `json:"socialGroups"`
}

func loadFixtures(b []byte) (fixtureSet, error) {
	var fx fixtureSet
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fx); err != nil {
		return fixtureSet{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return fx, nil
}

// seed applies fx in dependency order: cities, then stores (fanned out over
// workers, since each may need a geocoder round trip), then everything that
// references a store.
func seed(ctx context.Context, a *app.AdminService, fx fixtureSet, workers int) error {
	if workers <= 0 {
		workers = 1
	}

	for _, c := range fx.Cities {
		if _, err := a.ImportCity(ctx, c); err != nil {
			return err
		}
	}
	log.Info().Int("cities", len(fx.Cities)).Msg("cities seeded")

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var failed atomic.Int32

	for _, sf := range fx.Stores {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("semaphore acquire: %w", err)
		}
		wg.Add(1)
		go func(sf storeFixture) {
			defer wg.Done()
			defer sem.Release(1)

			st, err := a.ImportStore(ctx, sf.ID, sf.StoreInput)
			if err != nil {
				failed.Add(1)
				log.Warn().Str("id", sf.ID).Err(err).Msg("store seed failed")
				return
			}
			log.Debug().Str("id", st.ID).Str("slug", st.Slug).Bool("placed", st.Coords != nil).Msg("store seeded")
		}(sf)
	}
	wg.Wait()
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d stores failed to seed", n, len(fx.Stores))
	}
	log.Info().Int("stores", len(fx.Stores)).Msg("stores seeded")

	for _, r := range fx.Reviews {
		if err := a.ImportReview(ctx, r.ID, r.ReviewInput, r.Status); err != nil {
			return err
		}
	}
	for _, b := range fx.Banners {
		if err := a.ImportBanner(ctx, b.ID, b.BannerInput); err != nil {
			return fmt.Errorf("banner %s: %w", b.ID, err)
		}
	}
	for _, p := range fx.Sponsorships {
		if err := a.ImportSponsorship(ctx, p.ID, p.SponsorshipInput); err != nil {
			return fmt.Errorf("sponsorship %s: %w", p.ID, err)
		}
	}
	for _, g := range fx.SocialGroups {
		if err := a.ImportSocialGroup(ctx, g.ID, g.SocialGroupInput); err != nil {
			return fmt.Errorf("social group %s: %w", g.ID, err)
		}
	}

	return a.RefreshAll(ctx)
}
