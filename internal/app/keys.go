package app

import (
	"fmt"
	"strings"
)

// cache keys shared by the read and write paths
const (
	keyCities       = "cities:all"
	keyBrands       = "brands:all"
	keySocialGroups = "social:all"
	keyBanners      = "ads:banners"
	keySponsorships = "ads:sponsorships"
)

func keyCity(slug string) string { return "city:" + slug }

func keyCityStores(cityName string) string {
	return "stores:" + strings.ToLower(strings.TrimSpace(cityName))
}

func keyStoreReviews(storeID string) string { return fmt.Sprintf("reviews:%s:approved", storeID) }
