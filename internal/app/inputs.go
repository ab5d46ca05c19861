package app

import (
	"net/url"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"

	"vapefinder/internal/domain"
)

const (
	defaultPhoneRegion = "US"
	maxReviewLength    = 2000
)

// Admin and public write requests. Fields are trimmed and validated before any
// repository call.

type CityInput struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	State    string `json:"state"`
	ImageURL string `json:"imageUrl"`
	TimeZone string `json:"timeZone"`
}

type StoreInput struct {
	Slug             string             `json:"slug"`
	Name             string             `json:"name"`
	Address          string             `json:"address"`
	City             string             `json:"city"`
	State            string             `json:"state"`
	ZipCode          string             `json:"zipCode"`
	Phone            string             `json:"phone"`
	Coords           *domain.Coords     `json:"coordinates"`
	Rating           float64            `json:"rating"`
	SubRatings       domain.SubRatings  `json:"subRatings"`
	ReviewCount      int                `json:"reviewCount"`
	IsOpen           bool               `json:"isOpen"`
	Hours            domain.WeeklyHours `json:"hours"`
	Brands           []domain.Link      `json:"brands"`
	FeaturedProducts []domain.Link      `json:"featuredProducts"`
	Photos           []string           `json:"photos"`
	ImageURL         string             `json:"imageUrl"`
	Description      string             `json:"description"`
	Facebook         string             `json:"facebook"`
	Website          string             `json:"website"`
	IsSponsored      bool               `json:"isSponsored"`
	HasCoupons       bool               `json:"hasCoupons"`
}

type ReviewInput struct {
	StoreID    string            `json:"storeId"`
	UserName   string            `json:"userName"`
	UserAvatar string            `json:"userAvatar"`
	Rating     float64           `json:"rating"`
	SubRatings domain.SubRatings `json:"subRatings"`
	Content    string            `json:"content"`
}

type BannerInput struct {
	Name      string        `json:"name"`
	Type      domain.AdType `json:"type"`
	ImageURL  string        `json:"imageUrl"`
	TargetURL string        `json:"targetUrl"`
	IsActive  *bool         `json:"isActive"` // nil means active
	StartDate string        `json:"startDate"`
	EndDate   string        `json:"endDate"`
}

type SponsorshipInput struct {
	StoreID   string `json:"storeId"`
	IsActive  *bool  `json:"isActive"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type SocialGroupInput struct {
	Name        string          `json:"name"`
	Platform    domain.Platform `json:"platform"`
	URL         string          `json:"url"`
	MemberCount int             `json:"memberCount"`
	IsActive    *bool           `json:"isActive"`
	Description string          `json:"description"`
}

func (in CityInput) build() (domain.City, error) {
	c := domain.City{
		Slug:     strings.TrimSpace(in.Slug),
		Name:     strings.TrimSpace(in.Name),
		State:    strings.ToUpper(strings.TrimSpace(in.State)),
		ImageURL: strings.TrimSpace(in.ImageURL),
		TimeZone: strings.TrimSpace(in.TimeZone),
	}
	if c.Name == "" {
		return domain.City{}, domain.Invalid("name", "is required")
	}
	if c.State == "" {
		return domain.City{}, domain.Invalid("state", "is required")
	}
	if c.Slug == "" {
		c.Slug = domain.Slugify(c.Name)
	}
	if c.Slug != domain.Slugify(c.Slug) || c.Slug == "" {
		return domain.City{}, domain.Invalid("slug", "must be lowercase words joined by dashes")
	}
	if err := checkURL("imageUrl", c.ImageURL); err != nil {
		return domain.City{}, err
	}
	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			return domain.City{}, domain.Invalid("timeZone", "unknown IANA zone "+c.TimeZone)
		}
	}
	return c, nil
}

func (in StoreInput) build() (domain.Store, error) {
	s := domain.Store{
		Slug:        strings.TrimSpace(in.Slug),
		Name:        strings.TrimSpace(in.Name),
		Address:     strings.TrimSpace(in.Address),
		City:        strings.TrimSpace(in.City),
		State:       strings.ToUpper(strings.TrimSpace(in.State)),
		ZipCode:     strings.TrimSpace(in.ZipCode),
		Coords:      in.Coords,
		Rating:      in.Rating,
		SubRatings:  in.SubRatings,
		ReviewCount: in.ReviewCount,
		IsOpen:      in.IsOpen,
		Hours:       in.Hours.Normalize(),
		Brands:      normalizeLinks(in.Brands),
		Photos:      normalizeStrings(in.Photos),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Description: strings.TrimSpace(in.Description),
		Facebook:    strings.TrimSpace(in.Facebook),
		Website:     strings.TrimSpace(in.Website),
		IsSponsored: in.IsSponsored,
		HasCoupons:  in.HasCoupons,
	}
	s.FeaturedProducts = normalizeLinks(in.FeaturedProducts)

	switch {
	case s.Name == "":
		return domain.Store{}, domain.Invalid("name", "is required")
	case s.Address == "":
		return domain.Store{}, domain.Invalid("address", "is required")
	case s.City == "":
		return domain.Store{}, domain.Invalid("city", "is required")
	case in.ReviewCount < 0:
		return domain.Store{}, domain.Invalid("reviewCount", "must not be negative")
	}
	if s.Slug == "" {
		s.Slug = domain.Slugify(s.Name)
	}
	if s.Slug != domain.Slugify(s.Slug) || s.Slug == "" {
		return domain.Store{}, domain.Invalid("slug", "must be lowercase words joined by dashes")
	}
	if s.Coords != nil && !s.Coords.Valid() {
		return domain.Store{}, domain.Invalid("coordinates", "latitude or longitude out of range")
	}
	if err := checkRatings(s.Rating, s.SubRatings, 0); err != nil {
		return domain.Store{}, err
	}
	if err := s.Hours.Validate(); err != nil {
		return domain.Store{}, err
	}
	phone, err := normalizePhone(in.Phone)
	if err != nil {
		return domain.Store{}, err
	}
	s.Phone = phone
	for field, raw := range map[string]string{"imageUrl": s.ImageURL, "facebook": s.Facebook, "website": s.Website} {
		if err := checkURL(field, raw); err != nil {
			return domain.Store{}, err
		}
	}
	return s, nil
}

func (in ReviewInput) build(now time.Time) (domain.Review, error) {
	r := domain.Review{
		StoreID:    strings.TrimSpace(in.StoreID),
		UserName:   strings.TrimSpace(in.UserName),
		UserAvatar: strings.TrimSpace(in.UserAvatar),
		Rating:     in.Rating,
		SubRatings: in.SubRatings,
		Content:    strings.TrimSpace(in.Content),
		Date:       now.UTC().Truncate(24 * time.Hour),
		Status:     domain.ReviewPending,
	}
	switch {
	case r.StoreID == "":
		return domain.Review{}, domain.Invalid("storeId", "is required")
	case r.UserName == "":
		return domain.Review{}, domain.Invalid("userName", "is required")
	case r.Content == "":
		return domain.Review{}, domain.Invalid("content", "is required")
	case len([]rune(r.Content)) > maxReviewLength:
		return domain.Review{}, domain.Invalid("content", "is too long")
	}
	if err := checkRatings(r.Rating, r.SubRatings, 1); err != nil {
		return domain.Review{}, err
	}
	if err := checkURL("userAvatar", r.UserAvatar); err != nil {
		return domain.Review{}, err
	}
	return r, nil
}

func (in BannerInput) build() (domain.BannerAd, error) {
	b := domain.BannerAd{
		Name:      strings.TrimSpace(in.Name),
		Type:      domain.AdType(strings.TrimSpace(string(in.Type))),
		ImageURL:  strings.TrimSpace(in.ImageURL),
		TargetURL: strings.TrimSpace(in.TargetURL),
	}
	if b.Name == "" {
		return domain.BannerAd{}, domain.Invalid("name", "is required")
	}
	if !b.Type.Valid() {
		return domain.BannerAd{}, domain.Invalid("type", "must be list_banner or detail_banner")
	}
	if b.ImageURL == "" {
		return domain.BannerAd{}, domain.Invalid("imageUrl", "is required")
	}
	if b.TargetURL == "" {
		return domain.BannerAd{}, domain.Invalid("targetUrl", "is required")
	}
	for field, raw := range map[string]string{"imageUrl": b.ImageURL, "targetUrl": b.TargetURL} {
		if err := checkURL(field, raw); err != nil {
			return domain.BannerAd{}, err
		}
	}
	w, err := buildWindow(in.IsActive, in.StartDate, in.EndDate)
	if err != nil {
		return domain.BannerAd{}, err
	}
	b.Window = w
	return b, nil
}

func (in SponsorshipInput) build() (domain.Sponsorship, error) {
	p := domain.Sponsorship{StoreID: strings.TrimSpace(in.StoreID)}
	if p.StoreID == "" {
		return domain.Sponsorship{}, domain.Invalid("storeId", "is required")
	}
	w, err := buildWindow(in.IsActive, in.StartDate, in.EndDate)
	if err != nil {
		return domain.Sponsorship{}, err
	}
	p.Window = w
	return p, nil
}

func (in SocialGroupInput) build() (domain.SocialGroup, error) {
	g := domain.SocialGroup{
		Name:        strings.TrimSpace(in.Name),
		Platform:    domain.Platform(strings.ToLower(strings.TrimSpace(string(in.Platform)))),
		URL:         strings.TrimSpace(in.URL),
		MemberCount: in.MemberCount,
		IsActive:    in.IsActive == nil || *in.IsActive,
		Description: strings.TrimSpace(in.Description),
	}
	switch {
	case g.Name == "":
		return domain.SocialGroup{}, domain.Invalid("name", "is required")
	case !g.Platform.Valid():
		return domain.SocialGroup{}, domain.Invalid("platform", "must be whatsapp, telegram or facebook")
	case g.URL == "":
		return domain.SocialGroup{}, domain.Invalid("url", "is required")
	case g.MemberCount < 0:
		return domain.SocialGroup{}, domain.Invalid("memberCount", "must not be negative")
	}
	if err := checkURL("url", g.URL); err != nil {
		return domain.SocialGroup{}, err
	}
	return g, nil
}

// ---- helpers ----

func buildWindow(active *bool, start, end string) (domain.Window, error) {
	w := domain.Window{IsActive: active == nil || *active}
	var err error
	if w.StartDate, err = time.Parse(time.DateOnly, strings.TrimSpace(start)); err != nil {
		return domain.Window{}, domain.Invalid("startDate", "must be YYYY-MM-DD")
	}
	if w.EndDate, err = time.Parse(time.DateOnly, strings.TrimSpace(end)); err != nil {
		return domain.Window{}, domain.Invalid("endDate", "must be YYYY-MM-DD")
	}
	if w.EndDate.Before(w.StartDate) {
		return domain.Window{}, domain.Invalid("endDate", "is before startDate")
	}
	return w, nil
}

// checkRatings requires min <= rating <= 5; sub-ratings may be 0 (not rated).
func checkRatings(rating float64, sub domain.SubRatings, min float64) error {
	if rating < min || rating > 5 {
		return domain.Invalid("rating", "out of range")
	}
	for field, v := range map[string]float64{"subRatings.service": sub.Service, "subRatings.inventory": sub.Inventory, "subRatings.pricing": sub.Pricing} {
		if v < 0 || v > 5 {
			return domain.Invalid(field, "out of range")
		}
	}
	return nil
}

// normalizePhone formats raw as E.164, assuming US numbers without a country code.
func normalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	number, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil || !phonenumbers.IsPossibleNumber(number) {
		return "", domain.Invalid("phone", "not a dialable number")
	}
	return phonenumbers.Format(number, phonenumbers.E164), nil
}

func checkURL(field, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.Invalid(field, "must be an absolute http(s) URL")
	}
	return nil
}

func normalizeLinks(in []domain.Link) []domain.Link {
	out := make([]domain.Link, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, l := range in {
		l.Name, l.URL = strings.TrimSpace(l.Name), strings.TrimSpace(l.URL)
		key := strings.ToLower(l.Name)
		if l.Name == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

func normalizeStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
