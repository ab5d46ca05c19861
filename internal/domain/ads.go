package domain

import (
	"fmt"
	"time"
)

type AdType string

const (
	ListBanner     AdType = "list_banner"
	DetailBanner   AdType = "detail_banner"
	SponsoredStore AdType = "sponsored_store"
)

// Valid reports whether t is a banner type. Sponsored store slots are their
// own entity and never stored as banners.
func (t AdType) Valid() bool { return t == ListBanner || t == DetailBanner }

// Window is the validity period shared by banners and sponsorships. Dates are
// calendar days; EndDate covers the whole day.
type Window struct {
	IsActive  bool
	StartDate time.Time
	EndDate   time.Time
}

func (w Window) lastInstant() time.Time {
	return w.EndDate.Add(24*time.Hour - time.Nanosecond)
}

// ActiveAt is IsActive && StartDate <= now <= EndDate.
func (w Window) ActiveAt(now time.Time) bool {
	return w.IsActive && !now.Before(w.StartDate) && !now.After(w.lastInstant())
}

// ExpiredAt is now > EndDate.
func (w Window) ExpiredAt(now time.Time) bool { return now.After(w.lastInstant()) }

type Counters struct {
	Impressions int64
	Clicks      int64
}

type BannerAd struct {
	ID        string
	Name      string
	Type      AdType
	ImageURL  string
	TargetURL string
	Window
	Counters
}

type Sponsorship struct {
	ID        string
	StoreID   string
	StoreName string
	StoreCity string
	Window
	Counters
}

func (Sponsorship) Type() AdType { return SponsoredStore }

// CTR returns clicks/impressions as a percentage; ok is false when there were
// no impressions.
func CTR(impressions, clicks int64) (pct float64, ok bool) {
	if impressions <= 0 {
		return 0, false
	}
	return float64(clicks) / float64(impressions) * 100, true
}

// FormatCTR renders CTR for display, "—" when undefined.
func FormatCTR(impressions, clicks int64) string {
	pct, ok := CTR(impressions, clicks)
	if !ok {
		return "—"
	}
	return fmt.Sprintf("%.2f%%", pct)
}

type CounterKind string

const (
	Impression CounterKind = "impression"
	Click      CounterKind = "click"
)
