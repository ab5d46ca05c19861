package domain

import (
	"context"
	"time"
)

type DirectoryRepository interface {
	// Cities
	ListCities(ctx context.Context) ([]City, error)
	GetCity(ctx context.Context, slug string) (City, error)
	UpsertCity(ctx context.Context, c City) error
	DeleteCity(ctx context.Context, slug string) error
	RefreshCityAggregates(ctx context.Context, cityName string) error

	// Stores
	ListStores(ctx context.Context, q StoresQuery) ([]Store, error)
	GetStore(ctx context.Context, id string) (Store, error)
	GetStoreBySlug(ctx context.Context, cityName, slug string) (Store, error)
	UpsertStore(ctx context.Context, s Store) error
	DeleteStore(ctx context.Context, id string) error
	ListBrands(ctx context.Context) ([]string, error)

	// Reviews
	ListReviews(ctx context.Context, q ReviewsQuery) ([]ReviewWithStore, error)
	GetReview(ctx context.Context, id string) (Review, error)
	InsertReview(ctx context.Context, r Review) error
	SetReviewStatus(ctx context.Context, id string, st ReviewStatus) error
	DeleteReview(ctx context.Context, id string) error
	RefreshStoreRating(ctx context.Context, storeID string) error

	// Ads
	ListBanners(ctx context.Context) ([]BannerAd, error)
	GetBanner(ctx context.Context, id string) (BannerAd, error)
	UpsertBanner(ctx context.Context, b BannerAd) error
	DeleteBanner(ctx context.Context, id string) error
	ListSponsorships(ctx context.Context) ([]Sponsorship, error)
	GetSponsorship(ctx context.Context, id string) (Sponsorship, error)
	UpsertSponsorship(ctx context.Context, s Sponsorship) error
	DeleteSponsorship(ctx context.Context, id string) error
	IncrementBanner(ctx context.Context, id string, kind CounterKind) error
	IncrementSponsorship(ctx context.Context, id string, kind CounterKind) error

	// Store submissions
	ListSubmissions(ctx context.Context, status ReviewStatus) ([]StoreSubmission, error)
	GetSubmission(ctx context.Context, id string) (StoreSubmission, error)
	InsertSubmission(ctx context.Context, s StoreSubmission) error
	SetSubmissionStatus(ctx context.Context, id string, st ReviewStatus, storeID string) error

	// Social groups
	ListSocialGroups(ctx context.Context) ([]SocialGroup, error)
	GetSocialGroup(ctx context.Context, id string) (SocialGroup, error)
	UpsertSocialGroup(ctx context.Context, g SocialGroup) error
	DeleteSocialGroup(ctx context.Context, id string) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coords, error)
}

// Clock is injected so open-now and placement windows are testable.
type Clock func() time.Time
