package httpserver

import (
	"time"

	"vapefinder/internal/app"
	"vapefinder/internal/domain"
	"vapefinder/internal/listing"
)

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

func items[T any](in []T) itemsResponse[T] {
	if in == nil {
		in = []T{}
	}
	return itemsResponse[T]{Items: in}
}

type cityDTO struct {
	Slug          string  `json:"slug"`
	Name          string  `json:"name"`
	State         string  `json:"state"`
	StoreCount    int     `json:"storeCount"`
	AverageRating float64 `json:"averageRating"`
	ImageURL      string  `json:"imageUrl,omitempty"`
	TimeZone      string  `json:"timeZone,omitempty"`
}

func toCity(c domain.City) cityDTO {
	return cityDTO{Slug: c.Slug, Name: c.Name, State: c.State, StoreCount: c.StoreCount,
		AverageRating: c.AverageRating, ImageURL: c.ImageURL, TimeZone: c.TimeZone}
}

func toCities(in []domain.City) []cityDTO {
	out := make([]cityDTO, 0, len(in))
	for _, c := range in {
		out = append(out, toCity(c))
	}
	return out
}

type storeDTO struct {
	ID               string             `json:"id"`
	Slug             string             `json:"slug"`
	Name             string             `json:"name"`
	Address          string             `json:"address"`
	City             string             `json:"city"`
	State            string             `json:"state"`
	ZipCode          string             `json:"zipCode"`
	Phone            string             `json:"phone"`
	Coords           *domain.Coords     `json:"coordinates,omitempty"`
	Rating           float64            `json:"rating"`
	SubRatings       domain.SubRatings  `json:"subRatings"`
	ReviewCount      int                `json:"reviewCount"`
	IsOpen           bool               `json:"isOpen"`
	Hours            domain.WeeklyHours `json:"hours"`
	Brands           []domain.Link      `json:"brands"`
	FeaturedProducts []domain.Link      `json:"featuredProducts"`
	Photos           []string           `json:"photos"`
	ImageURL         string             `json:"imageUrl,omitempty"`
	Description      string             `json:"description,omitempty"`
	Facebook         string             `json:"facebook,omitempty"`
	Website          string             `json:"website,omitempty"`
	IsSponsored      bool               `json:"isSponsored"`
	HasCoupons       bool               `json:"hasCoupons"`

	// listing only
	DistanceKm    *float64 `json:"distanceKm,omitempty"`
	DistanceLabel string   `json:"distanceLabel,omitempty"`
	Featured      bool     `json:"featured,omitempty"`
}

func toStore(s domain.Store) storeDTO {
	d := storeDTO{
		ID: s.ID, Slug: s.Slug, Name: s.Name, Address: s.Address, City: s.City, State: s.State,
		ZipCode: s.ZipCode, Phone: s.Phone, Coords: s.Coords,
		Rating: s.Rating, SubRatings: s.SubRatings, ReviewCount: s.ReviewCount,
		IsOpen: s.IsOpen, Hours: s.Hours, Brands: s.Brands, FeaturedProducts: s.FeaturedProducts, Photos: s.Photos,
		ImageURL: s.ImageURL, Description: s.Description, Facebook: s.Facebook, Website: s.Website,
		IsSponsored: s.IsSponsored, HasCoupons: s.HasCoupons,
	}
	if d.Hours == nil {
		d.Hours = domain.WeeklyHours{}
	}
	if d.Brands == nil {
		d.Brands = []domain.Link{}
	}
	if d.FeaturedProducts == nil {
		d.FeaturedProducts = []domain.Link{}
	}
	if d.Photos == nil {
		d.Photos = []string{}
	}
	return d
}

func toStores(in []domain.Store) []storeDTO {
	out := make([]storeDTO, 0, len(in))
	for _, s := range in {
		out = append(out, toStore(s))
	}
	return out
}

func toItem(it listing.Item) storeDTO {
	d := toStore(it.Store)
	d.DistanceKm, d.DistanceLabel, d.Featured = it.DistanceKm, it.DistanceLabel, it.Featured
	return d
}

type submissionDTO struct {
	ID          string `json:"id"`
	StoreName   string `json:"storeName"`
	OwnerName   string `json:"ownerName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	ZipCode     string `json:"zipCode,omitempty"`
	Description string `json:"description,omitempty"`
	Website     string `json:"website,omitempty"`
	Status      string `json:"status"`
	StoreID     string `json:"storeId,omitempty"`
	SubmittedAt string `json:"submittedAt"`
}

func toSubmission(s domain.StoreSubmission) submissionDTO {
	return submissionDTO{ID: s.ID, StoreName: s.StoreName, OwnerName: s.OwnerName, Email: s.Email, Phone: s.Phone,
		Address: s.Address, City: s.City, State: s.State, ZipCode: s.ZipCode, Description: s.Description,
		Website: s.Website, Status: string(s.Status), StoreID: s.StoreID, SubmittedAt: s.SubmittedAt.UTC().Format(time.RFC3339)}
}

func toSubmissions(in []domain.StoreSubmission) []submissionDTO {
	out := make([]submissionDTO, 0, len(in))
	for _, s := range in {
		out = append(out, toSubmission(s))
	}
	return out
}

type reviewDTO struct {
	ID         string            `json:"id"`
	StoreID    string            `json:"storeId"`
	StoreName  string            `json:"storeName,omitempty"`
	UserName   string            `json:"userName"`
	UserAvatar string            `json:"userAvatar,omitempty"`
	Rating     float64           `json:"rating"`
	SubRatings domain.SubRatings `json:"subRatings"`
	Content    string            `json:"content"`
	Date       string            `json:"date"`
	Status     string            `json:"status"`
}

func toReview(r domain.Review) reviewDTO {
	return reviewDTO{ID: r.ID, StoreID: r.StoreID, UserName: r.UserName, UserAvatar: r.UserAvatar,
		Rating: r.Rating, SubRatings: r.SubRatings, Content: r.Content,
		Date: r.Date.Format(time.DateOnly), Status: string(r.Status)}
}

func toReviews(in []domain.Review) []reviewDTO {
	out := make([]reviewDTO, 0, len(in))
	for _, r := range in {
		out = append(out, toReview(r))
	}
	return out
}

func toModerationReviews(in []domain.ReviewWithStore) []reviewDTO {
	out := make([]reviewDTO, 0, len(in))
	for _, r := range in {
		d := toReview(r.Review)
		d.StoreName = r.StoreName
		out = append(out, d)
	}
	return out
}

// publicBannerDTO leaves out counters and scheduling.
type publicBannerDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	ImageURL  string `json:"imageUrl"`
	TargetURL string `json:"targetUrl"`
}

func toPublicBanners(in []domain.BannerAd) []publicBannerDTO {
	out := make([]publicBannerDTO, 0, len(in))
	for _, b := range in {
		out = append(out, publicBannerDTO{ID: b.ID, Name: b.Name, Type: string(b.Type), ImageURL: b.ImageURL, TargetURL: b.TargetURL})
	}
	return out
}

type windowDTO struct {
	IsActive    bool   `json:"isActive"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	ActiveNow   bool   `json:"activeNow"`
	Expired     bool   `json:"expired"`
	Impressions int64  `json:"impressions"`
	Clicks      int64  `json:"clicks"`
	CTR         string `json:"ctr"`
}

func toWindow(w domain.Window, c domain.Counters, now time.Time) windowDTO {
	return windowDTO{
		IsActive: w.IsActive, StartDate: w.StartDate.Format(time.DateOnly), EndDate: w.EndDate.Format(time.DateOnly),
		ActiveNow: w.ActiveAt(now), Expired: w.ExpiredAt(now),
		Impressions: c.Impressions, Clicks: c.Clicks, CTR: domain.FormatCTR(c.Impressions, c.Clicks),
	}
}

type bannerDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	ImageURL  string `json:"imageUrl"`
	TargetURL string `json:"targetUrl"`
	windowDTO
}

func toBanner(b domain.BannerAd, now time.Time) bannerDTO {
	return bannerDTO{ID: b.ID, Name: b.Name, Type: string(b.Type), ImageURL: b.ImageURL, TargetURL: b.TargetURL,
		windowDTO: toWindow(b.Window, b.Counters, now)}
}

type sponsorshipDTO struct {
	ID        string        `json:"id"`
	Type      domain.AdType `json:"type"`
	StoreID   string        `json:"storeId"`
	StoreName string `json:"storeName"`
	StoreCity string `json:"storeCity"`
	windowDTO
}

func toSponsorship(p domain.Sponsorship, now time.Time) sponsorshipDTO {
	return sponsorshipDTO{ID: p.ID, Type: p.Type(), StoreID: p.StoreID, StoreName: p.StoreName, StoreCity: p.StoreCity,
		windowDTO: toWindow(p.Window, p.Counters, now)}
}

type socialGroupDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Platform      string `json:"platform"`
	PlatformLabel string `json:"platformLabel"`
	URL           string `json:"url"`
	MemberCount   int    `json:"memberCount"`
	IsActive      bool   `json:"isActive"`
	Description   string `json:"description,omitempty"`
}

func toSocialGroup(g domain.SocialGroup) socialGroupDTO {
	return socialGroupDTO{ID: g.ID, Name: g.Name, Platform: string(g.Platform), PlatformLabel: g.Platform.Label(),
		URL: g.URL, MemberCount: g.MemberCount, IsActive: g.IsActive, Description: g.Description}
}

func toSocialGroups(in []domain.SocialGroup) []socialGroupDTO {
	out := make([]socialGroupDTO, 0, len(in))
	for _, g := range in {
		out = append(out, toSocialGroup(g))
	}
	return out
}

type listingDTO struct {
	City     cityDTO           `json:"city"`
	Stores   []storeDTO        `json:"stores"`
	Featured *storeDTO         `json:"featured,omitempty"`
	Total    int               `json:"total"`
	OpenNow  int               `json:"openNow"`
	Empty    bool              `json:"empty"`
	Filtered bool              `json:"filtersActive"`
	Draw     string            `json:"draw"`
	Banners  []publicBannerDTO `json:"banners"`
}

func toListing(p app.CityPage) listingDTO {
	d := listingDTO{
		City:     toCity(p.City),
		Stores:   make([]storeDTO, 0, len(p.Listing.Items)),
		Total:    p.Total,
		OpenNow:  p.OpenNow,
		Empty:    p.Listing.Empty,
		Filtered: p.Listing.Filtered,
		Draw:     p.Listing.Draw.String(),
		Banners:  toPublicBanners(p.Banners),
	}
	for _, it := range p.Listing.Items {
		d.Stores = append(d.Stores, toItem(it))
	}
	if p.Listing.Featured != nil {
		f := toItem(*p.Listing.Featured)
		d.Featured = &f
	}
	return d
}

type storePageDTO struct {
	City       cityDTO           `json:"city"`
	Store      storeDTO          `json:"store"`
	Reviews    []reviewDTO       `json:"reviews"`
	TodayHours string            `json:"todayHours"`
	Banners    []publicBannerDTO `json:"banners"`
}

func toStorePage(p app.StorePage) storePageDTO {
	return storePageDTO{City: toCity(p.City), Store: toStore(p.Store), Reviews: toReviews(p.Store.Reviews),
		TodayHours: p.TodayHours, Banners: toPublicBanners(p.Banners)}
}
