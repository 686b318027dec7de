package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/resume-analyzer/progress-hub/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiter_RefillsAndForgets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("1.1.1.1"))

	now = now.Add(10 * time.Minute)
	rl.Allow("3.3.3.3")
	assert.Equal(t, 1, rl.Clients())
}

func TestRequestID_PropagatesHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(logger.Nop()))
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = RequestIDFrom(c)
		Respond(c, http.StatusOK, nil)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestRecovery_WritesEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(nil), Recovery(nil))
	r.GET("/", func(*gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeInternal)
}

func TestTimeout_ReportsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeTimeout)
}

type stubBreaker struct{ open bool }

func (b stubBreaker) Name() string { return "redis" }
func (b stubBreaker) IsOpen() bool { return b.open }

func TestCompositeHealthChecker(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	ctx := context.Background()

	status := c.Check(ctx)
	assert.True(t, status.Healthy)

	c.AddCheck("store", func(context.Context) error { return nil })
	c.AddOptionalCheck("redis_breaker", NewBreakerCheck(stubBreaker{open: true}))
	status = c.Check(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Degraded)
	assert.ErrorIs(t, NewBreakerCheck(stubBreaker{open: true})(ctx), ErrBreakerOpen)
	assert.Equal(t, "Degraded: redis_breaker", status.Message)

	c.AddCheck("store", func(context.Context) error { return errors.New("no route") })
	status = c.Check(ctx)
	assert.False(t, status.Healthy)
	assert.Equal(t, "no route", status.Checks["store"].Message)
	assert.True(t, status.Checks["store"].Required)

	c.RemoveCheck("store")
	c.RemoveCheck("redis_breaker")
	assert.True(t, c.Check(ctx).Healthy)
}
