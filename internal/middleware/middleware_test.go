package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olyamironova/limitbook/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_PerClientBuckets(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, time.Minute)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if client != "" {
			req.Header.Set(ClientIDHeader, client)
		}
		return do(r, req).Code
	}

	assert.Equal(t, http.StatusOK, get("alice"))
	assert.Equal(t, http.StatusOK, get("alice"))
	assert.Equal(t, http.StatusTooManyRequests, get("alice"))

	// a different client has its own bucket
	assert.Equal(t, http.StatusOK, get("bob"))

	// no header falls back to the remote address
	assert.Equal(t, http.StatusOK, get(""))
	assert.Equal(t, 3, rl.size())
}

func TestRateLimiter_RejectBody(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, time.Minute)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	w := do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
}

func TestRateLimiter_CleanupDropsIdle(t *testing.T) {
	rl := NewRateLimiter(10, 10, time.Second)
	rl.Allow("a")
	rl.Allow("b")
	require.Equal(t, 2, rl.size())

	rl.cleanup(time.Now())
	assert.Equal(t, 2, rl.size())

	rl.cleanup(time.Now().Add(2 * time.Second))
	assert.Zero(t, rl.size())
}

func TestRateLimiter_JanitorStopsWithContext(t *testing.T) {
	rl := NewRateLimiter(10, 10, time.Nanosecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl.StartJanitor(ctx, 5*time.Millisecond)
	rl.Allow("a")

	assert.Eventually(t, func() bool { return rl.size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var fromCtx, fromGin string
	r.GET("/", func(c *gin.Context) {
		fromCtx = logger.RequestID(c.Request.Context())
		fromGin = logger.RequestID(c)
		c.Status(http.StatusNoContent)
	})

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	minted := w.Header().Get(RequestIDHeader)
	assert.Len(t, minted, 36)
	assert.Equal(t, minted, fromCtx)
	assert.Equal(t, minted, fromGin)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = do(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", fromCtx)
}

func TestRecoverAndAccessLog(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Log
	logger.InitWithWriter("test", "debug", &buf)
	t.Cleanup(func() { logger.Log = prev })

	r := gin.New()
	r.Use(RequestID(), AccessLog(), Recover())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())

	w = do(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	out := buf.String()
	assert.Contains(t, out, `"msg":"http panic"`)
	assert.Contains(t, out, `"panic":"kaboom"`)
	assert.Contains(t, out, `"path":"/ok"`)
	assert.Contains(t, out, `"status":500`)
	assert.Contains(t, out, `"request_id"`)
}
