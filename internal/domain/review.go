package domain

import "time"

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

type Review struct {
	ID         string
	StoreID    string
	UserName   string
	UserAvatar string
	Rating     float64
	SubRatings SubRatings
	Content    string
	Date       time.Time
	Status     ReviewStatus
}

type ReviewsQuery struct {
	StoreID string       // optional
	Status  ReviewStatus // optional
	Search  string       // matches user name, store name or content
	Limit   int
}

// ReviewWithStore is the moderation view: a review plus the store it belongs to.
type ReviewWithStore struct {
	Review
	StoreName string
}
