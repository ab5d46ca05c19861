package domain

import "time"

// StoreSubmission is an owner's request to be listed. It moves through the
// same pending/approved/rejected states as a review; approval creates the
// store and records its ID.
type StoreSubmission struct {
	ID          string
	StoreName   string
	OwnerName   string
	Email       string
	Phone       string
	Address     string
	City        string
	State       string
	ZipCode     string
	Description string
	Website     string
	Status      ReviewStatus
	StoreID     string // set once approved
	SubmittedAt time.Time
}
