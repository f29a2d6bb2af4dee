package router

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/erp/shopcore/internal/infrastructure/config"
	"github.com/erp/shopcore/internal/interfaces/http/handler"
	"github.com/erp/shopcore/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGroup_Mount(t *testing.T) {
	engine := gin.New()
	g := Group{
		Name:   "test",
		Prefix: "/test",
		Middleware: []gin.HandlerFunc{func(c *gin.Context) {
			c.Header("X-Group", "yes")
			c.Next()
		}},
		Routes: []Route{
			get("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") }),
			put("/items/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) }),
		},
	}
	g.Mount(engine.Group(APIPrefix))

	tests := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/v1/test/ping", "pong"},
		{http.MethodPut, "/api/v1/test/items/42", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
			assert.Equal(t, "yes", w.Header().Get("X-Group"))
		})
	}
}

func TestGroup_Describe(t *testing.T) {
	noop := func(c *gin.Context) {}
	g := Group{Name: "ledger", Prefix: "/accounts", Routes: []Route{
		get("/:id", noop),
		post("/:id/postings", noop),
		put("/:id", noop),
	}}
	assert.Equal(t, []string{"GET /:id", "POST /:id/postings", "PUT /:id"}, g.Describe())
}

type stubPinger struct{}

func (stubPinger) Ping() error { return nil }

// allHandlers wires every handler; services are never invoked by these tests
func allHandlers() Handlers {
	return Handlers{
		Accounts:    handler.NewAccountHandler(nil),
		Sales:       handler.NewSaleHandler(nil),
		Rates:       handler.NewRateHandler(nil, time.UTC),
		Receivables: handler.NewReceivableHandler(nil),
		Outbox:      handler.NewOutboxHandler(nil),
		System:      handler.NewSystemHandler("shopcore", "test", stubPinger{}),
	}
}

func testEngineConfig() EngineConfig {
	return EngineConfig{
		ServiceName: "shopcore-test",
		HTTP: config.HTTPConfig{
			MaxBodySize:      64,
			RequestTimeout:   time.Second,
			CORSAllowOrigins: []string{"http://shop.local"},
			CORSAllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			CORSAllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		},
	}
}

func TestNewEngine_Routes(t *testing.T) {
	engine := NewEngine(testEngineConfig(), allHandlers())

	var got []string
	for _, r := range engine.Routes() {
		got = append(got, r.Method+" "+r.Path)
	}
	sort.Strings(got)

	want := []string{
		"GET /api/v1/accounts/:id",
		"GET /api/v1/accounts/:id/postings",
		"GET /api/v1/accounts/:id/verify",
		"GET /api/v1/outbox/dead",
		"GET /api/v1/outbox/stats",
		"GET /api/v1/rates/:date",
		"GET /api/v1/receivables",
		"GET /api/v1/receivables/:customerId",
		"GET /api/v1/sales",
		"GET /api/v1/sales/:id",
		"GET /api/v1/sales/:id/returns",
		"GET /api/v1/system/info",
		"GET /api/v1/system/ping",
		"GET /health",
		"POST /api/v1/accounts",
		"POST /api/v1/accounts/:id/activate",
		"POST /api/v1/accounts/:id/freeze",
		"POST /api/v1/accounts/:id/postings",
		"POST /api/v1/outbox/:id/retry",
		"POST /api/v1/outbox/dead/retry",
		"POST /api/v1/sales",
		"POST /api/v1/sales/:id/returns",
		"PUT /api/v1/rates/:date",
	}
	assert.Equal(t, want, got)
}

func TestNewEngine_PartialHandlers(t *testing.T) {
	engine := NewEngine(testEngineConfig(), Handlers{System: handler.NewSystemHandler("shopcore", "test", nil)})

	for _, r := range engine.Routes() {
		assert.False(t, strings.HasPrefix(r.Path, "/api/v1/sales"), r.Path)
	}
}

func TestNewEngine_Middleware(t *testing.T) {
	engine := NewEngine(testEngineConfig(), allHandlers())

	t.Run("health carries request id and security headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	})

	t.Run("preflight from an allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/sales", nil)
		req.Header.Set("Origin", "http://shop.local")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://shop.local", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("oversized body is rejected before the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(strings.Repeat("x", 200)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("bad path id never reaches a service", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/not-a-uuid", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), w.Header().Get(middleware.RequestIDHeader))
	})
}

func TestNewEngine_RateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Close)

	cfg := testEngineConfig()
	cfg.RateLimiter = limiter
	engine := NewEngine(cfg, allHandlers())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	require.Len(t, codes, 3)
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
