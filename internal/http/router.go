// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. ContextLogger + RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logging is in place
//  5. Body size limiter and gzip
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP; the public chat route adds a stricter
//     per-IP limiter of its own)
//  9. CORS and security headers
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/cobaltline/assistly-backend/internal/config"
	"github.com/cobaltline/assistly-backend/internal/http/handlers"
	"github.com/cobaltline/assistly-backend/internal/http/middleware"
	"github.com/cobaltline/assistly-backend/internal/paypal"
	"github.com/cobaltline/assistly-backend/internal/repo"
	"github.com/cobaltline/assistly-backend/internal/services"
	"github.com/cobaltline/assistly-backend/web"
)

// idempotencyScope names the only operation family that accepts an
// Idempotency-Key today.
const idempotencyScope = "subscription.complete"

// TokenAuthority issues and verifies bearer tokens.
type TokenAuthority interface {
	IssueToken(userID string) (string, error)
	VerifyToken(token string) (string, error)
}

// Dependencies carries the externally constructed collaborators the router
// needs. Services themselves are assembled here so transport wiring stays in
// one place.
type Dependencies struct {
	// AI performs chat completions for the conversational endpoints.
	AI services.Completer
	// Payments is the billing provider client.
	Payments paypal.API
	// Trigger kicks fine-tune cycles on company description changes.
	Trigger services.FineTuneTrigger
	// Tokens issues and verifies bearer tokens.
	Tokens TokenAuthority
	// Log is the base structured logger.
	Log zerolog.Logger
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: observability, protection layers, health and metrics endpoints,
// the embedded widget script, and the versioned API.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, deps Dependencies, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Request-scoped logger, then access logs with redaction
	r.Use(middleware.ContextLogger())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB) and gzip
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{Scope: idempotencyScope, MaxLen: 200},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured). The
	// widget runs on arbitrary customer sites, so the default stays open.
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Embedded widget script
	widgetJS, err := web.Widget.ReadFile("widget/chat.js")
	if err != nil {
		panic("widget asset missing from binary: " + err.Error())
	}
	r.GET("/widget/chat.js", func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=3600")
		c.Data(http.StatusOK, "application/javascript; charset=utf-8", widgetJS)
	})

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/providers
	accountSvc := services.NewAccountService(db, deps.Tokens)
	companySvc := services.NewCompanyService(db, deps.Trigger)
	chatSvc := services.NewChatService(db, deps.AI, cfg.AI.DefaultChatModel, deps.Log)
	leadSvc := services.NewLeadService(db)
	planSvc := services.NewPlanService(db, deps.Payments)
	subSvc := services.NewSubscriptionService(db, deps.Payments)

	h := handlers.New(accountSvc, companySvc, chatSvc, leadSvc, planSvc, subSvc).
		WithIdempotencyRecorder(func(ctx context.Context, userID, key, resourceID string, status int) {
			if _, err := repo.CreateIdempotency(ctx, db, userID, idempotencyScope, key, resourceID, status, cfg.IdempotencyTTL); err != nil {
				deps.Log.Warn().Err(err).Str("key", key).Msg("idempotency record failed")
			}
		})

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Public surface
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)

		publicLimiter := middleware.NewWindowLimiter(cfg.PublicChatLimit, cfg.PublicChatWindow, middleware.KeyByIP())
		api.POST("/public-chat/:slug", publicLimiter.Handler(), h.PublicChat)

		// Admin surface behind bearer auth
		authed := api.Group("", middleware.RequireAuth(deps.Tokens))
		{
			authed.POST("/companies", h.CreateCompany)
			authed.GET("/companies/me", h.GetMyCompany)
			authed.PUT("/companies/me", h.UpdateMyCompany)
			authed.PUT("/companies/me/description", h.UpdateMyDescription)

			authed.POST("/chat", h.PostChat)
			authed.GET("/chat/logs", h.ListChatLogs)
			authed.GET("/leads", h.ListLeads)

			authed.POST("/plans", h.CreatePlan)
			authed.GET("/plans", h.ListPlans)
			authed.GET("/plans/:id", h.GetPlan)
			authed.PUT("/plans/:id", h.UpdatePlan)
			authed.DELETE("/plans/:id", h.DeletePlan)

			authed.POST("/subscriptions/complete", h.CompleteSubscription)
			authed.GET("/subscriptions", h.ListSubscriptions)
			authed.POST("/subscriptions/:id/cancel", h.CancelSubscription)
		}
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader; oversized bodies error on read downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
