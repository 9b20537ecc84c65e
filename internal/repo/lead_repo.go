// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Lead
// model. Leads are append-only.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cobaltline/assistly-backend/internal/domain"
)

// CreateLead inserts a lead captured from a public chat message.
func CreateLead(ctx context.Context, db *gorm.DB, companyID, description string) (*domain.Lead, error) {
	l := &domain.Lead{
		ID:          uuid.NewString(),
		CompanyID:   companyID,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// CountLeads returns the total number of leads for a company.
func CountLeads(ctx context.Context, db *gorm.DB, companyID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("company_id = ?", companyID).
		Count(&total).Error
	return total, err
}

// ListLeadsPage returns a paginated slice of a company's leads, ordered by
// creation time descending (most recent first).
func ListLeadsPage(ctx context.Context, db *gorm.DB, companyID string, offset, limit int) ([]domain.Lead, error) {
	var out []domain.Lead
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
