// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Plan and
// Subscription models that mirror the payment provider's state.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cobaltline/assistly-backend/internal/domain"
)

// CreatePlan inserts a new Plan row. Returns ErrDuplicate when the provider
// plan id is already mirrored locally.
func CreatePlan(ctx context.Context, db *gorm.DB, p *domain.Plan) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetPlan fetches a plan by ID, or ErrNotFound.
func GetPlan(ctx context.Context, db *gorm.DB, id string) (*domain.Plan, error) {
	var p domain.Plan
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlans returns plans ordered by creation time ascending. When
// activeOnly is set, inactive plans are filtered out.
func ListPlans(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.Plan, error) {
	q := db.WithContext(ctx).Order("created_at asc")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []domain.Plan
	err := q.Find(&out).Error
	return out, err
}

// UpdatePlan updates mutable plan fields (name, features, is_active).
// Price, currency, and the provider plan id are immutable once mirrored.
func UpdatePlan(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	delete(fields, "price")
	delete(fields, "currency")
	delete(fields, "provider_plan_id")
	res := db.WithContext(ctx).
		Model(&domain.Plan{}).
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

// DeactivatePlan soft-disables a plan so it stops being offered; existing
// subscriptions keep referencing it.
func DeactivatePlan(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Plan{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateSubscription inserts a mirrored subscription row. Returns
// ErrDuplicate when the provider subscription id already exists.
func CreateSubscription(ctx context.Context, db *gorm.DB, s *domain.Subscription) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetSubscription fetches a subscription by ID with its plan preloaded.
func GetSubscription(ctx context.Context, db *gorm.DB, id string) (*domain.Subscription, error) {
	var s domain.Subscription
	err := db.WithContext(ctx).Preload("Plan").Where("id = ?", id).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSubscriptionByProviderID fetches the mirror row for a provider
// subscription id, or ErrNotFound. Used to dedupe completion callbacks.
func GetSubscriptionByProviderID(ctx context.Context, db *gorm.DB, providerID string) (*domain.Subscription, error) {
	var s domain.Subscription
	err := db.WithContext(ctx).Preload("Plan").
		Where("provider_subscription_id = ?", providerID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSubscriptions returns a user's subscriptions with plans preloaded,
// most recent first.
func ListSubscriptions(ctx context.Context, db *gorm.DB, userID string) ([]domain.Subscription, error) {
	var out []domain.Subscription
	err := db.WithContext(ctx).Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// MarkSubscriptionCancelled records a provider-confirmed cancellation.
func MarkSubscriptionCancelled(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       "CANCELLED",
			"cancelled_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
