// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication for the admin API. The
// verifier is injected as a narrow interface so tests can substitute a fake
// and the transport layer stays decoupled from the JWT implementation.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CtxUserID is the Gin context key under which the authenticated user id is
// stored. Downstream handlers and middleware read it via this constant.
const CtxUserID = "userID"

// TokenVerifier validates a bearer token and returns the user id it carries.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// RequireAuth returns a middleware that enforces a valid Authorization
// bearer token. On success the user id is stored under CtxUserID; on failure
// the request is aborted with a 401 envelope.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		const prefix = "Bearer "
		if raw == "" || !strings.HasPrefix(raw, prefix) {
			unauthorized(c, "missing bearer token")
			return
		}
		userID, err := verifier.VerifyToken(strings.TrimSpace(raw[len(prefix):]))
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(CtxUserID, userID)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
