// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they validate input, call application
// services through narrow interfaces, and translate results into HTTP
// responses. Service errors are mapped to statuses in one place (mapError)
// so every endpoint speaks the same envelope.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cobaltline/assistly-backend/internal/domain"
	"github.com/cobaltline/assistly-backend/internal/http/middleware"
	"github.com/cobaltline/assistly-backend/internal/services"
	"github.com/cobaltline/assistly-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// AccountService covers registration and login.
type AccountService interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
}

// CompanyService covers tenant profile operations.
type CompanyService interface {
	Create(ctx context.Context, userID string, in services.CompanyInput) (*domain.Company, error)
	GetMine(ctx context.Context, userID string) (*domain.Company, error)
	UpdateProfile(ctx context.Context, userID string, in services.CompanyInput) (*domain.Company, error)
	UpdateDescription(ctx context.Context, userID, description string) (*domain.Company, error)
}

// ChatService covers the conversational endpoints, public and authenticated.
type ChatService interface {
	PublicChat(ctx context.Context, slug, conversationID, message string) (*services.ChatReply, error)
	AuthChat(ctx context.Context, userID, message string) (*services.ChatReply, error)
	ListLogs(ctx context.Context, userID string, page, pageSize int) ([]domain.ChatLog, int64, error)
}

// LeadService lists captured leads for the company admin.
type LeadService interface {
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Lead, int64, error)
}

// PlanService covers billing plan management.
type PlanService interface {
	Create(ctx context.Context, in services.PlanInput) (*domain.Plan, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Plan, error)
	Get(ctx context.Context, id string) (*domain.Plan, error)
	Update(ctx context.Context, id, name string, features []string) (*domain.Plan, error)
	Deactivate(ctx context.Context, id string) error
}

// SubscriptionService mirrors provider subscriptions.
type SubscriptionService interface {
	Complete(ctx context.Context, userID, planID, providerSubID string) (*domain.Subscription, error)
	List(ctx context.Context, userID string) ([]domain.Subscription, error)
	Cancel(ctx context.Context, userID, subscriptionID, reason string) (*domain.Subscription, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints and their service dependencies.
type Handlers struct {
	accounts      AccountService
	companies     CompanyService
	chat          ChatService
	leads         LeadService
	plans         PlanService
	subscriptions SubscriptionService
	recordIdem    IdempotencyRecorder
}

// New constructs a Handlers instance bound to the given services.
func New(accounts AccountService, companies CompanyService, chat ChatService, leads LeadService, plans PlanService, subscriptions SubscriptionService) *Handlers {
	return &Handlers{
		accounts:      accounts,
		companies:     companies,
		chat:          chat,
		leads:         leads,
		plans:         plans,
		subscriptions: subscriptions,
	}
}

// userID extracts the authenticated user id set by the auth middleware.
func userID(c *gin.Context) string {
	if v, ok := c.Get(middleware.CtxUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// newPagination derives the metadata for one result page.
func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds the page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// mapError translates service sentinel errors into (status, code, message).
// Unknown errors become a generic 500 so internals never leak to clients.
// Provider errors reach this function only from authenticated routes (the
// public chat path collapses them into ErrAIUnavailable) and keep their
// upstream detail in the response.
func mapError(c *gin.Context, err error) {
	var provider *services.ProviderError
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusConflict, ErrCodeEmailTaken, "email already registered")
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid credentials")
	case errors.Is(err, services.ErrCompanyExists):
		fail(c, http.StatusConflict, ErrCodeCompanyExists, "company already registered")
	case errors.Is(err, services.ErrCompanyNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "company not found")
	case errors.Is(err, services.ErrInvalidCompanyName):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "company name unusable")
	case errors.Is(err, services.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message must not be empty")
	case errors.Is(err, services.ErrMessageTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message too long")
	case errors.Is(err, services.ErrAIUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeChatFailed, "assistant temporarily unavailable")
	case errors.As(err, &provider):
		fail(c, http.StatusBadGateway, ErrCodeChatFailed, provider.Error())
	case errors.Is(err, services.ErrPlanNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "plan not found")
	case errors.Is(err, services.ErrSubscriptionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "subscription not found")
	case errors.Is(err, services.ErrSubscriptionNotActive):
		fail(c, http.StatusConflict, ErrCodePaymentFailed, "subscription is not active at the provider")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
