// Billing HTTP handlers.
//
// Plans:
//   - POST   /plans
//   - GET    /plans          (?active=true hides deactivated plans)
//   - GET    /plans/{id}
//   - PUT    /plans/{id}
//   - DELETE /plans/{id}     (deactivates, never deletes rows)
//
// Subscriptions:
//   - POST /subscriptions/complete      (after provider approval)
//   - GET  /subscriptions
//   - POST /subscriptions/{id}/cancel
//
// The complete endpoint honors Idempotency-Key so client retries after a
// network failure never double-record a subscription.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cobaltline/assistly-backend/internal/domain"
	"github.com/cobaltline/assistly-backend/internal/http/middleware"
	"github.com/cobaltline/assistly-backend/internal/services"
)

// IdempotencyRecorder persists a completed idempotent operation so later
// retries with the same key are detected as replays. Failures are logged by
// the implementation; recording is best-effort.
type IdempotencyRecorder func(ctx context.Context, userID, key, resourceID string, status int)

// WithIdempotencyRecorder wires the recorder used by CompleteSubscription.
func (h *Handlers) WithIdempotencyRecorder(fn IdempotencyRecorder) *Handlers {
	h.recordIdem = fn
	return h
}

// PlanRequest is the JSON payload for creating or updating a plan.
type PlanRequest struct {
	Name        string   `json:"name" example:"Pro"`
	Description string   `json:"description" example:"For growing teams"`
	Price       string   `json:"price" example:"29.00"`
	Currency    string   `json:"currency" example:"USD"`
	Features    []string `json:"features" example:"chat,leads"`
}

// CompleteSubscriptionRequest records a provider-approved subscription.
type CompleteSubscriptionRequest struct {
	PlanID                 string `json:"plan_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	ProviderSubscriptionID string `json:"provider_subscription_id" binding:"required" example:"I-BW452GLLEP1G"`
}

// CancelSubscriptionRequest optionally carries a cancellation reason.
type CancelSubscriptionRequest struct {
	Reason string `json:"reason" example:"too expensive"`
}

// ListPlansResponse wraps the plan catalog.
type ListPlansResponse struct {
	Plans []domain.Plan `json:"plans"`
}

// ListSubscriptionsResponse wraps the caller's subscriptions.
type ListSubscriptionsResponse struct {
	Subscriptions []domain.Subscription `json:"subscriptions"`
}

// CreatePlan godoc
// @ID          createPlan
// @Summary     Create a billing plan
// @Description Registers the plan at the payment provider and mirrors it locally.
// @Tags        Billing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.PlanRequest  true  "Plan payload"
// @Success     201  {object}  domain.Plan
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Provider error"
// @Router      /plans [post]
func (h *Handlers) CreatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Price) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "plan name and price required")
		return
	}
	plan, err := h.plans.Create(c.Request.Context(), services.PlanInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		Features:    req.Features,
	})
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusCreated, plan)
}

// ListPlans godoc
// @ID          listPlans
// @Summary     List billing plans
// @Tags        Billing
// @Produce     json
// @Security    BearerAuth
// @Param       active  query  bool  false  "Only active plans"  default(false)
// @Success     200  {object}  handlers.ListPlansResponse
// @Router      /plans [get]
func (h *Handlers) ListPlans(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	plans, err := h.plans.List(c.Request.Context(), activeOnly)
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, ListPlansResponse{Plans: plans})
}

// GetPlan godoc
// @ID          getPlan
// @Summary     Fetch one plan
// @Tags        Billing
// @Produce     json
// @Security    BearerAuth
// @Param       id  path  string  true  "Plan ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Plan
// @Failure     404  {object}  handlers.ErrorResponse  "Plan not found"
// @Router      /plans/{id} [get]
func (h *Handlers) GetPlan(c *gin.Context) {
	plan, err := h.plans.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, plan)
}

// UpdatePlan godoc
// @ID          updatePlan
// @Summary     Update a plan's name or features
// @Description Price, currency, and the provider plan id are immutable.
// @Tags        Billing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string                true  "Plan ID (UUID)"  format(uuid)
// @Param       body  body  handlers.PlanRequest  true  "Fields to update"
// @Success     200  {object}  domain.Plan
// @Failure     404  {object}  handlers.ErrorResponse  "Plan not found"
// @Router      /plans/{id} [put]
func (h *Handlers) UpdatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	plan, err := h.plans.Update(c.Request.Context(), c.Param("id"), req.Name, req.Features)
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, plan)
}

// DeletePlan godoc
// @ID          deletePlan
// @Summary     Deactivate a plan
// @Description Hides the plan from the active catalog; existing subscriptions keep running.
// @Tags        Billing
// @Security    BearerAuth
// @Param       id  path  string  true  "Plan ID (UUID)"  format(uuid)
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Plan not found"
// @Router      /plans/{id} [delete]
func (h *Handlers) DeletePlan(c *gin.Context) {
	if err := h.plans.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		mapError(c, err)
		return
	}
	noContent(c)
}

// CompleteSubscription godoc
// @ID          completeSubscription
// @Summary     Record an approved subscription
// @Description Verifies the subscription is ACTIVE at the provider and mirrors it locally. Safe to retry with the same Idempotency-Key.
// @Tags        Billing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string  false  "Retry-safe operation key"
// @Param       body  body  handlers.CompleteSubscriptionRequest  true  "Provider subscription reference"
// @Success     201  {object}  domain.Subscription
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Plan or subscription not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Subscription not active"
// @Router      /subscriptions/complete [post]
func (h *Handlers) CompleteSubscription(c *gin.Context) {
	var req CompleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "plan_id and provider_subscription_id required")
		return
	}
	if _, err := uuid.Parse(req.PlanID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "plan_id must be a UUID")
		return
	}

	sub, err := h.subscriptions.Complete(c.Request.Context(), userID(c), req.PlanID, req.ProviderSubscriptionID)
	if err != nil {
		mapError(c, err)
		return
	}

	// Completion is idempotent at the service level too; the record only
	// powers replay detection and rate-limit bypass for retries.
	if key, present := middleware.GetIdempotencyKey(c); present && h.recordIdem != nil && !middleware.IsReplay(c) {
		h.recordIdem(c.Request.Context(), userID(c), key, sub.ID, http.StatusCreated)
	}

	ok(c, http.StatusCreated, sub)
}

// ListSubscriptions godoc
// @ID          listSubscriptions
// @Summary     List the caller's subscriptions
// @Tags        Billing
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.ListSubscriptionsResponse
// @Router      /subscriptions [get]
func (h *Handlers) ListSubscriptions(c *gin.Context) {
	subs, err := h.subscriptions.List(c.Request.Context(), userID(c))
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, ListSubscriptionsResponse{Subscriptions: subs})
}

// CancelSubscription godoc
// @ID          cancelSubscription
// @Summary     Cancel a subscription
// @Description Cancels at the provider first, then records the cancellation locally.
// @Tags        Billing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string                               true   "Subscription ID (UUID)"  format(uuid)
// @Param       body  body  handlers.CancelSubscriptionRequest   false  "Optional reason"
// @Success     200  {object}  domain.Subscription
// @Failure     404  {object}  handlers.ErrorResponse  "Subscription not found"
// @Router      /subscriptions/{id}/cancel [post]
func (h *Handlers) CancelSubscription(c *gin.Context) {
	var req CancelSubscriptionRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	sub, err := h.subscriptions.Cancel(c.Request.Context(), userID(c), c.Param("id"), req.Reason)
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, sub)
}
