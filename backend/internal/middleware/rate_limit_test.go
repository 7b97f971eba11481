package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"game-showcase/backend/internal/infra/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func newLimitedEngine(limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	mw := NewRateLimitMiddleware(ratelimit.NewMemoryLimiter(), RateLimitConfig{Limit: limit, Window: time.Minute}, zap.NewNop().Sugar())
	r := gin.New()
	r.POST("/api/data/reset", mw.Handle(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/data/import", mw.Handle(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func post(r http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = "10.0.0.1:5555"
	r.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	r := newLimitedEngine(2)

	for i := 0; i < 2; i++ {
		if rec := post(r, "/api/data/reset"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := post(r, "/api/data/reset")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	if rec := post(r, "/api/data/import"); rec.Code != http.StatusOK {
		t.Fatalf("routes are counted separately, got %d", rec.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	r := newLimitedEngine(0)
	for i := 0; i < 5; i++ {
		if rec := post(r, "/api/data/reset"); rec.Code != http.StatusOK {
			t.Fatalf("expected unlimited requests, got %d", rec.Code)
		}
	}
}
