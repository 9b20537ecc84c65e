// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Company
// model, including the model_reference column that carries the fine-tune
// lifecycle state.
//
// Error semantics:
//   - When a company is not found, functions return gorm.ErrRecordNotFound
//     (also exported as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated, except unique violations which are
//     normalized to ErrDuplicate.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cobaltline/assistly-backend/internal/domain"
)

// CreateCompany inserts a new Company row owned by userID. The ID is a
// randomly generated UUID and CreatedAt is set to UTC. Returns ErrDuplicate
// when the slug is taken or the user already owns a company.
func CreateCompany(ctx context.Context, db *gorm.DB, c *domain.Company) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetCompany fetches a company by ID, or ErrNotFound if missing.
func GetCompany(ctx context.Context, db *gorm.DB, id string) (*domain.Company, error) {
	var c domain.Company
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCompanyByUserID fetches the single company owned by userID, or
// ErrNotFound if the user has not created one yet.
func GetCompanyByUserID(ctx context.Context, db *gorm.DB, userID string) (*domain.Company, error) {
	var c domain.Company
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCompanyBySlug fetches a company by its public slug, or ErrNotFound.
func GetCompanyBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Company, error) {
	var c domain.Company
	if err := db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCompanyProfile updates mutable profile fields. The slug and the
// model reference are deliberately excluded; the former is immutable and the
// latter is owned by the fine-tune lifecycle manager.
func UpdateCompanyProfile(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	delete(fields, "slug")
	delete(fields, "model_reference")
	res := db.WithContext(ctx).
		Model(&domain.Company{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateCompanyDescription sets a new description and resets the model
// reference in the same statement, so a stale fine-tuned model is never
// served against an edited description.
func UpdateCompanyDescription(ctx context.Context, db *gorm.DB, id, description string) error {
	res := db.WithContext(ctx).
		Model(&domain.Company{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"description":     description,
			"model_reference": domain.UnsetRef().Encode(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateModelReference persists a new lifecycle state for the company.
// Callers serialize per company; this function does not guard against
// concurrent writers.
func UpdateModelReference(ctx context.Context, db *gorm.DB, id string, ref domain.ModelReference) error {
	res := db.WithContext(ctx).
		Model(&domain.Company{}).
		Where("id = ?", id).
		Update("model_reference", ref.Encode())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateModelReferenceIf persists ref only while the stored reference still
// equals expected. It reports false when another writer got there first,
// which happens when a description edit resets the column mid-poll; the
// caller must treat the reset as authoritative and discard its result.
func UpdateModelReferenceIf(ctx context.Context, db *gorm.DB, id string, expected, ref domain.ModelReference) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Company{}).
		Where("id = ? AND model_reference = ?", id, expected.Encode()).
		Update("model_reference", ref.Encode())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListCompaniesNeedingAttention returns companies whose model reference is
// either pending (a job may have finished) or failed with a non-empty
// description (a restart may be due). This is the scheduler's sweep query.
func ListCompaniesNeedingAttention(ctx context.Context, db *gorm.DB) ([]domain.Company, error) {
	var out []domain.Company
	err := db.WithContext(ctx).
		Where("model_reference LIKE ?", "pending:%").
		Or(db.Where("model_reference = ?", "failed").Where("description <> ''")).
		Order("updated_at asc").
		Find(&out).Error
	return out, err
}
