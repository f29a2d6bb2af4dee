package router

import (
	"time"

	"github.com/erp/shopcore/internal/infrastructure/config"
	"github.com/erp/shopcore/internal/infrastructure/logger"
	"github.com/erp/shopcore/internal/infrastructure/telemetry"
	"github.com/erp/shopcore/internal/interfaces/http/handler"
	"github.com/erp/shopcore/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by NewEngine. A nil handler leaves its
// routes unregistered.
type Handlers struct {
	Accounts    *handler.AccountHandler
	Sales       *handler.SaleHandler
	Rates       *handler.RateHandler
	Receivables *handler.ReceivableHandler
	Outbox      *handler.OutboxHandler
	System      *handler.SystemHandler
}

// EngineConfig carries what the middleware stack needs
type EngineConfig struct {
	Logger      *zap.Logger
	HTTP        config.HTTPConfig
	ServiceName string

	// Telemetry turns on tracing and HTTP metrics for its enabled signals; nil
	// leaves both off
	Telemetry        *telemetry.Exporters
	ProfilingEnabled bool

	// RateLimiter is applied when non-nil; the caller owns Close
	RateLimiter *middleware.RateLimiter
}

// NewEngine builds the gin engine: middleware in order, then /health and the
// versioned API groups.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.Telemetry.TracesEnabled(),
	}))
	engine.Use(middleware.SpanAttributes())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.HTTPMetrics(cfg.Telemetry))

	profiling := middleware.DefaultProfilingConfig()
	profiling.Enabled = cfg.ProfilingEnabled
	engine.Use(middleware.Profiling(profiling))

	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.RateLimiter != nil {
		engine.Use(middleware.RateLimit(cfg.RateLimiter))
	}
	if cfg.HTTP.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))
	}

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}

	api := engine.Group(APIPrefix)
	for _, g := range groups(h) {
		log.Debug("Registering routes", zap.String("domain", g.Name), zap.Strings("routes", g.Describe()))
		g.Mount(api)
	}

	return engine
}

func groups(h Handlers) []Group {
	var out []Group
	if h.Accounts != nil {
		out = append(out, Group{Name: "ledger", Prefix: "/accounts", Routes: []Route{
			post("", h.Accounts.OpenAccount),
			get("/:id", h.Accounts.GetAccount),
			post("/:id/postings", h.Accounts.Post),
			get("/:id/postings", h.Accounts.ListPostings),
			post("/:id/freeze", h.Accounts.FreezeAccount),
			post("/:id/activate", h.Accounts.ActivateAccount),
			get("/:id/verify", h.Accounts.VerifyBalance),
		}})
	}
	if h.Rates != nil {
		out = append(out, Group{Name: "rates", Prefix: "/rates", Routes: []Route{
			put("/:date", h.Rates.SetRate),
			get("/:date", h.Rates.GetRate),
		}})
	}
	if h.Sales != nil {
		out = append(out, Group{Name: "sales", Prefix: "/sales", Routes: []Route{
			post("", h.Sales.CreateSale),
			get("", h.Sales.ListSales),
			get("/:id", h.Sales.GetSale),
			post("/:id/returns", h.Sales.ReturnLineItem),
			get("/:id/returns", h.Sales.ListReturns),
		}})
	}
	if h.Receivables != nil {
		out = append(out, Group{Name: "receivables", Prefix: "/receivables", Routes: []Route{
			get("", h.Receivables.ListReceivables),
			get("/:customerId", h.Receivables.GetCustomerReceivable),
		}})
	}
	if h.Outbox != nil {
		out = append(out, Group{Name: "outbox", Prefix: "/outbox", Routes: []Route{
			get("/stats", h.Outbox.Stats),
			get("/dead", h.Outbox.ListDead),
			post("/dead/retry", h.Outbox.RetryAllDead),
			post("/:id/retry", h.Outbox.RetryDead),
		}})
	}
	if h.System != nil {
		out = append(out, Group{Name: "system", Prefix: "/system", Routes: []Route{
			get("/info", h.System.GetSystemInfo),
			get("/ping", h.System.Ping),
		}})
	}
	return out
}
