package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func idemRouter(opts IdempotencyOptions, lookup IdempotencyLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/pay", func(c *gin.Context) {
		c.Set(CtxUserID, "u1")
		c.Next()
	}, IdempotencyValidator(opts, lookup), func(c *gin.Context) {
		key, _ := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{"key": key, "replay": IsReplay(c)})
	})
	return r
}

func TestIdempotency_NoHeaderPassesThrough(t *testing.T) {
	r := idemRouter(IdempotencyOptions{Scope: "sub.complete"}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pay", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestIdempotency_InvalidKeyRejected(t *testing.T) {
	r := idemRouter(IdempotencyOptions{Scope: "sub.complete", MaxLen: 10}, nil)

	for _, key := range []string{"has spaces", "way-too-long-for-the-limit"} {
		req := httptest.NewRequest(http.MethodPost, "/pay", nil)
		req.Header.Set(HeaderIdempotencyKey, key)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("key %q: status = %d, want 400", key, w.Code)
		}
	}
}

func TestIdempotency_ReplayDetected(t *testing.T) {
	var gotUser, gotScope, gotKey string
	lookup := func(_ context.Context, userID, scope, key string, _ time.Time) (bool, error) {
		gotUser, gotScope, gotKey = userID, scope, key
		return true, nil
	}
	r := idemRouter(IdempotencyOptions{Scope: "sub.complete"}, lookup)

	req := httptest.NewRequest(http.MethodPost, "/pay", nil)
	req.Header.Set(HeaderIdempotencyKey, "retry-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotUser != "u1" || gotScope != "sub.complete" || gotKey != "retry-1" {
		t.Fatalf("lookup saw (%q, %q, %q)", gotUser, gotScope, gotKey)
	}
	if body := w.Body.String(); body != `{"key":"retry-1","replay":true}` {
		t.Fatalf("body = %s", body)
	}
}

func TestIdempotency_FreshKeyIsNotReplay(t *testing.T) {
	lookup := func(context.Context, string, string, string, time.Time) (bool, error) {
		return false, nil
	}
	r := idemRouter(IdempotencyOptions{Scope: "sub.complete"}, lookup)

	req := httptest.NewRequest(http.MethodPost, "/pay", nil)
	req.Header.Set(HeaderIdempotencyKey, "fresh")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if body := w.Body.String(); body != `{"key":"fresh","replay":false}` {
		t.Fatalf("body = %s", body)
	}
}

func TestIdempotency_LookupErrorDoesNotBlock(t *testing.T) {
	lookup := func(context.Context, string, string, string, time.Time) (bool, error) {
		return false, context.DeadlineExceeded
	}
	r := idemRouter(IdempotencyOptions{Scope: "sub.complete"}, lookup)

	req := httptest.NewRequest(http.MethodPost, "/pay", nil)
	req.Header.Set(HeaderIdempotencyKey, "k1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, lookup errors must not block", w.Code)
	}
}
