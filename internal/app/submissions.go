package app

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"vapefinder/internal/domain"
)

// StoreSubmissionInput is the public "list your store" form.
type StoreSubmissionInput struct {
	StoreName   string `json:"storeName"`
	OwnerName   string `json:"ownerName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zipCode"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

func (in StoreSubmissionInput) build(now time.Time) (domain.StoreSubmission, error) {
	s := domain.StoreSubmission{
		StoreName:   strings.TrimSpace(in.StoreName),
		OwnerName:   strings.TrimSpace(in.OwnerName),
		Email:       strings.TrimSpace(in.Email),
		Address:     strings.TrimSpace(in.Address),
		City:        strings.TrimSpace(in.City),
		State:       strings.ToUpper(strings.TrimSpace(in.State)),
		ZipCode:     strings.TrimSpace(in.ZipCode),
		Description: strings.TrimSpace(in.Description),
		Website:     strings.TrimSpace(in.Website),
		Status:      domain.ReviewPending,
		SubmittedAt: now.UTC(),
	}
	switch {
	case s.StoreName == "":
		return domain.StoreSubmission{}, domain.Invalid("storeName", "is required")
	case s.OwnerName == "":
		return domain.StoreSubmission{}, domain.Invalid("ownerName", "is required")
	case s.Address == "":
		return domain.StoreSubmission{}, domain.Invalid("address", "is required")
	case s.City == "":
		return domain.StoreSubmission{}, domain.Invalid("city", "is required")
	case len([]rune(s.Description)) > maxReviewLength:
		return domain.StoreSubmission{}, domain.Invalid("description", "is too long")
	}
	addr, err := mail.ParseAddress(s.Email)
	if err != nil || addr.Name != "" {
		return domain.StoreSubmission{}, domain.Invalid("email", "not a valid address")
	}
	s.Email = addr.Address
	if s.Phone, err = normalizePhone(in.Phone); err != nil {
		return domain.StoreSubmission{}, err
	}
	if err := checkURL("website", s.Website); err != nil {
		return domain.StoreSubmission{}, err
	}
	return s, nil
}

// SubmitStore records a pending listing request. Nothing is public until an
// admin approves it.
func (s *AdminService) SubmitStore(ctx context.Context, in StoreSubmissionInput) (domain.StoreSubmission, error) {
	sub, err := in.build(s.now())
	if err != nil {
		return domain.StoreSubmission{}, err
	}
	sub.ID = s.newID()
	if err := s.repo.InsertSubmission(ctx, sub); err != nil {
		return domain.StoreSubmission{}, fmt.Errorf("insert submission: %w", err)
	}
	log.Info().Str("submission", sub.ID).Str("city", sub.City).Msg("store submission received")
	return sub, nil
}

func (s *AdminService) ListSubmissions(ctx context.Context, status domain.ReviewStatus) ([]domain.StoreSubmission, error) {
	if status != "" && status != domain.ReviewPending && status != domain.ReviewApproved && status != domain.ReviewRejected {
		return nil, domain.Invalid("status", "unknown submission status "+string(status))
	}
	return s.repo.ListSubmissions(ctx, status)
}

// ApproveSubmission creates the store through the regular admin path, so the
// city must already exist and the address is geocoded.
func (s *AdminService) ApproveSubmission(ctx context.Context, id string) (domain.Store, error) {
	sub, err := s.pendingSubmission(ctx, id)
	if err != nil {
		return domain.Store{}, err
	}
	st, err := s.CreateStore(ctx, StoreInput{
		Name:        sub.StoreName,
		Address:     sub.Address,
		City:        sub.City,
		State:       sub.State,
		ZipCode:     sub.ZipCode,
		Phone:       sub.Phone,
		Description: sub.Description,
		Website:     sub.Website,
	})
	if err != nil {
		return domain.Store{}, err
	}
	if err := s.repo.SetSubmissionStatus(ctx, id, domain.ReviewApproved, st.ID); err != nil {
		return domain.Store{}, fmt.Errorf("mark submission %s approved: %w", id, err)
	}
	return st, nil
}

func (s *AdminService) RejectSubmission(ctx context.Context, id string) (domain.StoreSubmission, error) {
	sub, err := s.pendingSubmission(ctx, id)
	if err != nil {
		return domain.StoreSubmission{}, err
	}
	if err := s.repo.SetSubmissionStatus(ctx, id, domain.ReviewRejected, ""); err != nil {
		return domain.StoreSubmission{}, err
	}
	sub.Status = domain.ReviewRejected
	return sub, nil
}

func (s *AdminService) pendingSubmission(ctx context.Context, id string) (domain.StoreSubmission, error) {
	sub, err := s.repo.GetSubmission(ctx, id)
	if err != nil {
		return domain.StoreSubmission{}, err
	}
	if sub.Status != domain.ReviewPending {
		return domain.StoreSubmission{}, fmt.Errorf("submission %s already %s: %w", id, sub.Status, domain.ErrConflict)
	}
	return sub, nil
}
