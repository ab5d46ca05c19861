package app

import (
	"context"

	"vapefinder/internal/domain"
)

// the repository applies a default page size; the dashboard counts everything
const dashboardScan = 100_000

type Dashboard struct {
	Stores             int    `json:"stores"`
	Cities             int    `json:"cities"`
	Reviews            int    `json:"reviews"`
	PendingReviews     int    `json:"pendingReviews"`
	PendingSubmissions int    `json:"pendingSubmissions"`
	SponsoredStores    int    `json:"sponsoredStores"`
	Impressions        int64  `json:"impressions"`
	Clicks             int64  `json:"clicks"`
	CTR                string `json:"ctr"`
	ActiveBanners      int    `json:"activeBanners"`
	TotalBanners       int    `json:"totalBanners"`
	ActiveSponsorships int    `json:"activeSponsorships"`
	TotalSponsorships  int    `json:"totalSponsorships"`
	ActiveGroups       int    `json:"activeGroups"`
	TotalGroups        int    `json:"totalGroups"`
}

// Dashboard aggregates admin totals. Impressions and clicks span banners and
// sponsorships; CTR is "—" until something has been shown.
func (s *AdminService) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	now := s.now()

	cities, err := s.repo.ListCities(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d.Cities = len(cities)

	stores, err := s.repo.ListStores(ctx, domain.StoresQuery{Limit: dashboardScan})
	if err != nil {
		return Dashboard{}, err
	}
	d.Stores = len(stores)

	reviews, err := s.repo.ListReviews(ctx, domain.ReviewsQuery{Limit: dashboardScan})
	if err != nil {
		return Dashboard{}, err
	}
	d.Reviews = len(reviews)
	for _, r := range reviews {
		if r.Status == domain.ReviewPending {
			d.PendingReviews++
		}
	}

	pending, err := s.repo.ListSubmissions(ctx, domain.ReviewPending)
	if err != nil {
		return Dashboard{}, err
	}
	d.PendingSubmissions = len(pending)

	banners, err := s.repo.ListBanners(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d.TotalBanners = len(banners)
	for _, b := range banners {
		d.Impressions += b.Impressions
		d.Clicks += b.Clicks
		if b.ActiveAt(now) {
			d.ActiveBanners++
		}
	}

	sponsorships, err := s.repo.ListSponsorships(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d.TotalSponsorships = len(sponsorships)
	sponsored := make(map[string]struct{})
	for _, p := range sponsorships {
		d.Impressions += p.Impressions
		d.Clicks += p.Clicks
		if p.ActiveAt(now) {
			d.ActiveSponsorships++
			sponsored[p.StoreID] = struct{}{}
		}
	}
	for _, st := range stores {
		if st.IsSponsored {
			sponsored[st.ID] = struct{}{}
		}
	}
	d.SponsoredStores = len(sponsored)

	groups, err := s.repo.ListSocialGroups(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d.TotalGroups = len(groups)
	for _, g := range groups {
		if g.IsActive {
			d.ActiveGroups++
		}
	}

	d.CTR = domain.FormatCTR(d.Impressions, d.Clicks)
	return d, nil
}
