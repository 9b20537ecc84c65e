// Package services – billing
//
// PlanService mirrors provider billing plans locally; SubscriptionService
// mirrors subscriptions. Local rows are a cache of provider truth,
// refreshed only on explicit complete/cancel calls (reconciliation on
// read); there is no internal billing state machine.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cobaltline/assistly-backend/internal/domain"
	"github.com/cobaltline/assistly-backend/internal/paypal"
	"github.com/cobaltline/assistly-backend/internal/repo"
)

// PlanInput carries the fields needed to create a plan.
type PlanInput struct {
	Name        string
	Description string
	Price       string // decimal string, e.g. "29.00"
	Currency    string
	Features    []string
}

// PlanService creates and lists billing plans.
type PlanService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Provider is the payment provider client.
	Provider paypal.API
}

// NewPlanService constructs a PlanService.
func NewPlanService(db *gorm.DB, provider paypal.API) *PlanService {
	return &PlanService{DB: db, Provider: provider}
}

// Create registers a product and plan at the provider, then mirrors the
// plan locally. A provider failure leaves no local row.
func (s *PlanService) Create(ctx context.Context, in PlanInput) (*domain.Plan, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.Price) == "" {
		return nil, ErrPlanNotFound
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}

	productID, err := s.Provider.CreateProduct(ctx, name, in.Description)
	if err != nil {
		return nil, err
	}
	providerPlanID, err := s.Provider.CreatePlan(ctx, paypal.PlanRequest{
		ProductID: productID,
		Name:      name,
		Price:     in.Price,
		Currency:  currency,
	})
	if err != nil {
		return nil, err
	}

	features := "[]"
	if len(in.Features) > 0 {
		if b, err := json.Marshal(in.Features); err == nil {
			features = string(b)
		}
	}
	p := &domain.Plan{
		Name:           name,
		ProviderPlanID: providerPlanID,
		Price:          in.Price,
		Currency:       currency,
		Features:       features,
		IsActive:       true,
	}
	if err := repo.CreatePlan(ctx, s.DB, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns plans; activeOnly hides deactivated ones.
func (s *PlanService) List(ctx context.Context, activeOnly bool) ([]domain.Plan, error) {
	return repo.ListPlans(ctx, s.DB, activeOnly)
}

// Get returns one plan.
func (s *PlanService) Get(ctx context.Context, id string) (*domain.Plan, error) {
	p, err := repo.GetPlan(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPlanNotFound
	}
	return p, err
}

// Update changes the name and/or features of a plan.
func (s *PlanService) Update(ctx context.Context, id string, name string, features []string) (*domain.Plan, error) {
	fields := map[string]any{}
	if v := strings.TrimSpace(name); v != "" {
		fields["name"] = v
	}
	if features != nil {
		if b, err := json.Marshal(features); err == nil {
			fields["features"] = string(b)
		}
	}
	if len(fields) > 0 {
		if err := repo.UpdatePlan(ctx, s.DB, id, fields); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrPlanNotFound
			}
			return nil, err
		}
	}
	return s.Get(ctx, id)
}

// Deactivate stops offering a plan. Existing subscriptions are untouched.
func (s *PlanService) Deactivate(ctx context.Context, id string) error {
	err := repo.DeactivatePlan(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrPlanNotFound
	}
	return err
}

// SubscriptionService mirrors provider subscriptions.
type SubscriptionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Provider is the payment provider client.
	Provider paypal.API
}

// NewSubscriptionService constructs a SubscriptionService.
func NewSubscriptionService(db *gorm.DB, provider paypal.API) *SubscriptionService {
	return &SubscriptionService{DB: db, Provider: provider}
}

// Complete records a provider-approved subscription. The provider state
// must be ACTIVE; a repeat call with the same provider subscription id
// returns the existing mirror row unchanged.
func (s *SubscriptionService) Complete(ctx context.Context, userID, planID, providerSubID string) (*domain.Subscription, error) {
	if existing, err := repo.GetSubscriptionByProviderID(ctx, s.DB, providerSubID); err == nil {
		return existing, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	plan, err := repo.GetPlan(ctx, s.DB, planID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	remote, err := s.Provider.GetSubscription(ctx, providerSubID)
	if err != nil {
		if errors.Is(err, paypal.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	if remote.Status != "ACTIVE" {
		return nil, ErrSubscriptionNotActive
	}

	sub := &domain.Subscription{
		UserID:                 userID,
		PlanID:                 plan.ID,
		ProviderSubscriptionID: providerSubID,
		Status:                 remote.Status,
	}
	if !remote.StartTime.IsZero() {
		t := remote.StartTime
		sub.StartedAt = &t
	}
	if !remote.BillingInfo.NextBillingTime.IsZero() {
		t := remote.BillingInfo.NextBillingTime
		sub.NextBillingTime = &t
	}

	if err := repo.CreateSubscription(ctx, s.DB, sub); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// Lost a race with a concurrent completion; return the winner.
			return repo.GetSubscriptionByProviderID(ctx, s.DB, providerSubID)
		}
		return nil, err
	}
	sub.Plan = *plan
	return sub, nil
}

// List returns the caller's subscriptions with plans preloaded.
func (s *SubscriptionService) List(ctx context.Context, userID string) ([]domain.Subscription, error) {
	return repo.ListSubscriptions(ctx, s.DB, userID)
}

// Cancel asks the provider to cancel, then records the cancellation
// locally. A provider failure leaves the mirror row untouched.
func (s *SubscriptionService) Cancel(ctx context.Context, userID, subscriptionID, reason string) (*domain.Subscription, error) {
	sub, err := repo.GetSubscription(ctx, s.DB, subscriptionID)
	if err != nil || sub.UserID != userID {
		return nil, ErrSubscriptionNotFound
	}
	if err := s.Provider.CancelSubscription(ctx, sub.ProviderSubscriptionID, reason); err != nil {
		return nil, err
	}
	if err := repo.MarkSubscriptionCancelled(ctx, s.DB, sub.ID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return repo.GetSubscription(ctx, s.DB, sub.ID)
}
