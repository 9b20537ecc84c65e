// Package services – CompanyService
//
// Manages the tenant profile: one company per admin account, an immutable
// slug derived from the name, and the description edits that drive the
// fine-tune lifecycle. Description updates reset the model reference and
// notify the trigger so a fresh training cycle starts promptly.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cobaltline/assistly-backend/internal/domain"
	"github.com/cobaltline/assistly-backend/internal/repo"
	"github.com/cobaltline/assistly-backend/internal/utils"
)

// FineTuneTrigger is notified when a company needs a fresh training cycle.
// The scheduler implements it; tests substitute fakes.
type FineTuneTrigger interface {
	// TriggerCompany schedules an asynchronous lifecycle run. It must not
	// block on the training work itself.
	TriggerCompany(companyID string)
	// ResetAttempts clears the retry budget ahead of a fresh cycle.
	ResetAttempts(companyID string)
}

// CompanyInput carries the writable profile fields.
type CompanyInput struct {
	Name        string
	Industry    string
	Email       string
	Phone       string
	Address     string
	Description string
	Tone        string
}

// CompanyService provides tenant profile operations.
type CompanyService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Trigger kicks the fine-tune lifecycle on description changes.
	Trigger FineTuneTrigger
}

// NewCompanyService constructs a CompanyService.
func NewCompanyService(db *gorm.DB, trigger FineTuneTrigger) *CompanyService {
	return &CompanyService{DB: db, Trigger: trigger}
}

// Create registers the user's company. The slug is derived from the name;
// on a collision a short random suffix is appended once. A user may own at
// most one company.
func (s *CompanyService) Create(ctx context.Context, userID string, in CompanyInput) (*domain.Company, error) {
	if _, err := repo.GetCompanyByUserID(ctx, s.DB, userID); err == nil {
		return nil, ErrCompanyExists
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	slug := utils.Slugify(in.Name)
	if slug == "" {
		return nil, ErrInvalidCompanyName
	}
	tone := strings.TrimSpace(in.Tone)
	if tone == "" {
		tone = "professional"
	}

	c := &domain.Company{
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug,
		Industry:    strings.TrimSpace(in.Industry),
		Email:       strings.TrimSpace(in.Email),
		Phone:       strings.TrimSpace(in.Phone),
		Address:     strings.TrimSpace(in.Address),
		Description: strings.TrimSpace(in.Description),
		Tone:        tone,
	}
	err := repo.CreateCompany(ctx, s.DB, c)
	if errors.Is(err, repo.ErrDuplicate) {
		c.ID = ""
		c.Slug = slug + "-" + uuid.NewString()[:8]
		err = repo.CreateCompany(ctx, s.DB, c)
	}
	if err != nil {
		return nil, err
	}

	// A description supplied at creation time starts the first cycle.
	if c.Description != "" && s.Trigger != nil {
		s.Trigger.TriggerCompany(c.ID)
	}
	return c, nil
}

// GetMine returns the caller's company.
func (s *CompanyService) GetMine(ctx context.Context, userID string) (*domain.Company, error) {
	c, err := repo.GetCompanyByUserID(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrCompanyNotFound
	}
	return c, err
}

// GetBySlug returns a company for the public chat path.
func (s *CompanyService) GetBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	c, err := repo.GetCompanyBySlug(ctx, s.DB, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrCompanyNotFound
	}
	return c, err
}

// UpdateDescription replaces the description, resets the model reference
// and the retry budget, and triggers a fresh training cycle. The reset
// happens even when the new text equals the old one; an explicit save is a
// request to retrain.
func (s *CompanyService) UpdateDescription(ctx context.Context, userID, description string) (*domain.Company, error) {
	c, err := s.GetMine(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateCompanyDescription(ctx, s.DB, c.ID, strings.TrimSpace(description)); err != nil {
		return nil, err
	}
	if s.Trigger != nil {
		s.Trigger.ResetAttempts(c.ID)
		s.Trigger.TriggerCompany(c.ID)
	}
	return repo.GetCompany(ctx, s.DB, c.ID)
}

// UpdateProfile updates non-description profile fields. The slug and the
// model reference never change here.
func (s *CompanyService) UpdateProfile(ctx context.Context, userID string, in CompanyInput) (*domain.Company, error) {
	c, err := s.GetMine(ctx, userID)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if v := strings.TrimSpace(in.Name); v != "" {
		fields["name"] = v
	}
	if v := strings.TrimSpace(in.Industry); v != "" {
		fields["industry"] = v
	}
	if v := strings.TrimSpace(in.Email); v != "" {
		fields["email"] = v
	}
	if v := strings.TrimSpace(in.Phone); v != "" {
		fields["phone"] = v
	}
	if v := strings.TrimSpace(in.Address); v != "" {
		fields["address"] = v
	}
	if v := strings.TrimSpace(in.Tone); v != "" {
		fields["tone"] = v
	}
	if len(fields) > 0 {
		if err := repo.UpdateCompanyProfile(ctx, s.DB, c.ID, fields); err != nil {
			return nil, err
		}
	}
	return repo.GetCompany(ctx, s.DB, c.ID)
}
