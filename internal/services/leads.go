// Package services – lead detection and LeadService
//
// A public chat message becomes a lead when it carries a contact signal:
// a run of ten or more digits (phone-like), an email token, or a
// time-of-day token (a follow-up hint). Detection runs on the raw visitor
// message, never on the model's reply.
package services

import (
	"context"
	"errors"
	"regexp"

	"gorm.io/gorm"

	"github.com/cobaltline/assistly-backend/internal/domain"
	"github.com/cobaltline/assistly-backend/internal/repo"
)

var (
	phoneRe = regexp.MustCompile(`[0-9]{10,}`)
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	clockRe = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
	ampmRe  = regexp.MustCompile(`(?i)\b\d{1,2}\s*(am|pm)\b`)
)

// HasLeadSignal reports whether a visitor message contains a contact signal.
func HasLeadSignal(message string) bool {
	return phoneRe.MatchString(message) ||
		emailRe.MatchString(message) ||
		clockRe.MatchString(message) ||
		ampmRe.MatchString(message)
}

// LeadService lists captured leads for the company admin.
type LeadService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewLeadService constructs a LeadService.
func NewLeadService(db *gorm.DB) *LeadService {
	return &LeadService{DB: db}
}

// ListPage returns a page of the caller's company leads plus the total,
// most recent first.
func (s *LeadService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Lead, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	company, err := repo.GetCompanyByUserID(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrCompanyNotFound
		}
		return nil, 0, err
	}
	total, err := repo.CountLeads(ctx, s.DB, company.ID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Lead{}, 0, nil
	}
	items, err := repo.ListLeadsPage(ctx, s.DB, company.ID, (page-1)*pageSize, pageSize)
	return items, total, err
}
