package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olyamironova/limitbook/internal/adapter/in_memory"
	"github.com/olyamironova/limitbook/internal/api/dto"
	"github.com/olyamironova/limitbook/internal/core"
	"github.com/olyamironova/limitbook/internal/loadgen"
	"github.com/olyamironova/limitbook/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts Options) (*HTTPServer, *core.Engine) {
	t.Helper()
	eng := core.NewEngine(in_memory.NewJournal(), in_memory.NewPublisher())
	if opts.Generator == nil {
		opts.Generator = loadgen.New(1)
	}
	return NewHTTPServer(eng, opts), eng
}

func call(s *HTTPServer, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestSubmitAndReadBook(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	w := call(s, http.MethodPost, "/orders", `{"side":"sell","type":"limit","qty":10,"price":100}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rested := decode[map[string]any](t, w)
	assert.Equal(t, "ok", rested["status"])
	assert.Equal(t, float64(0), rested["filled"])
	assert.Equal(t, float64(10), rested["resting"])
	assert.NotContains(t, rested, "avg_price")
	assert.NotEmpty(t, rested["order_id"])

	w = call(s, http.MethodPost, "/orders", `{"side":"BUY","type":"Limit","qty":15,"price":101}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	crossed := decode[dto.SubmitOrderResponse](t, w)
	assert.Equal(t, int64(10), crossed.Filled)
	assert.Equal(t, int64(15), crossed.Requested)
	assert.Equal(t, int64(5), crossed.Resting)
	assert.Equal(t, 1, crossed.Trades)
	assert.Equal(t, "100", crossed.AvgPrice.String())
	assert.GreaterOrEqual(t, crossed.LatencyNs, int64(0))

	w = call(s, http.MethodGet, "/book?depth=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"bids":[{"price":101,"qty":5}],"asks":[]}`, w.Body.String())
}

func TestMarketOrderAveragePrice(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	call(s, http.MethodPost, "/orders", `{"side":"sell","type":"limit","qty":5,"price":100}`)
	call(s, http.MethodPost, "/orders", `{"side":"sell","type":"limit","qty":5,"price":101}`)

	w := call(s, http.MethodPost, "/orders", `{"side":"buy","type":"market","qty":7}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[dto.SubmitOrderResponse](t, w)
	assert.Equal(t, int64(7), res.Filled)
	assert.Equal(t, 2, res.Trades)
	assert.Equal(t, "100.28571429", res.AvgPrice.String())

	w = call(s, http.MethodGet, "/book", "")
	assert.JSONEq(t, `{"bids":[],"asks":[{"price":101,"qty":3}]}`, w.Body.String())
}

func TestSubmitValidation(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing side", `{"type":"limit","qty":1,"price":1}`, "missing side/type/qty"},
		{"missing qty", `{"side":"buy","type":"limit","price":1}`, "missing side/type/qty"},
		{"missing price", `{"side":"buy","type":"limit","qty":1}`, "missing price for limit order"},
		{"bad side", `{"side":"hold","type":"limit","qty":1,"price":1}`, "invalid input"},
		{"bad type", `{"side":"buy","type":"stop","qty":1,"price":1}`, "invalid input"},
		{"zero qty", `{"side":"buy","type":"market","qty":0}`, "quantity must be > 0"},
		{"negative price", `{"side":"buy","type":"limit","qty":1,"price":-5}`, "price must be > 0"},
		{"malformed", `{"side":`, "invalid json"},
		{"qty above max", `{"side":"buy","type":"limit","qty":1000000000001,"price":1}`, "quantity must be <="},
		{"qty overflows int64", `{"side":"buy","type":"limit","qty":9223372036854775808,"price":1}`, "invalid json"},
		{"price too fine", `{"side":"buy","type":"limit","qty":1,"price":1.123456789}`, "decimal places"},
		{"price tiny exponent", `{"side":"buy","type":"limit","qty":1,"price":1e-5000000}`, "price out of range"},
		{"price huge exponent", `{"side":"sell","type":"limit","qty":1,"price":1e3000000}`, "price out of range"},
		{"price too large", `{"side":"sell","type":"limit","qty":1,"price":1000000000000}`, "price must be <"},
		{"price literal too long", `{"side":"buy","type":"limit","qty":1,"price":1.00000000000000000000000000000000001}`, "price has too many digits"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := call(s, http.MethodPost, "/orders", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode[dto.ErrorResponse](t, w).Error, tc.want)
		})
	}

	w := call(s, http.MethodGet, "/book", "")
	assert.JSONEq(t, `{"bids":[],"asks":[]}`, w.Body.String())
}

func TestBookDepth(t *testing.T) {
	s, eng := newTestServer(t, Options{Depth: 2, MaxDepth: 3})
	require.NoError(t, eng.Seed(t.Context(), core.DemoBook))

	book := decode[dto.BookResponse](t, call(s, http.MethodGet, "/book", ""))
	assert.Len(t, book.Bids, 2)
	assert.Len(t, book.Asks, 2)
	assert.Equal(t, "112.3", book.Bids[0].Price.String())
	assert.Equal(t, "115.6", book.Asks[0].Price.String())

	book = decode[dto.BookResponse](t, call(s, http.MethodGet, "/book?depth=50", ""))
	assert.Len(t, book.Bids, 3)

	book = decode[dto.BookResponse](t, call(s, http.MethodGet, "/book?depth=0", ""))
	assert.Empty(t, book.Bids)
	assert.Empty(t, book.Asks)

	for _, bad := range []string{"-1", "abc", "1.5"} {
		w := call(s, http.MethodGet, "/book?depth="+bad, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestClearAndStimmy(t *testing.T) {
	s, eng := newTestServer(t, Options{})

	w := call(s, http.MethodPost, "/stimmy", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","added":40}`, w.Body.String())

	snap := eng.Snapshot(100)
	assert.NotEmpty(t, append(snap.Bids, snap.Asks...))

	w = call(s, http.MethodPost, "/clear", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"cleared"}`, w.Body.String())

	snap = eng.Snapshot(100)
	assert.Empty(t, snap.Bids)
	assert.Empty(t, snap.Asks)
}

func TestAuxiliaryRoutes(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	w := call(s, http.MethodGet, "/healthz", "")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = call(s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `href="/book"`)

	call(s, http.MethodPost, "/orders", `{"side":"buy","type":"limit","qty":1,"price":1}`)
	w = call(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "limitbook_orders_total")

	w = call(s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())

	w = call(s, http.MethodDelete, "/book", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodOptions, "/orders", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRateLimitedRoutes(t *testing.T) {
	s, _ := newTestServer(t, Options{Limiter: middleware.NewRateLimiter(0.001, 1, time.Minute)})

	assert.Equal(t, http.StatusOK, call(s, http.MethodGet, "/book", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, call(s, http.MethodGet, "/book", "").Code)

	// health checks are never throttled
	assert.Equal(t, http.StatusOK, call(s, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, call(s, http.MethodGet, "/healthz", "").Code)
}

func TestServeAndShutdown(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(lis) }()

	url := "http://" + lis.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-done)
}
