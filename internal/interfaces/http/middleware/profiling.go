package middleware

import (
	"context"
	"slices"
	"strings"

	"github.com/erp/shopcore/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

type ProfilingConfig struct {
	Enabled bool
	// SkipPaths get no labels
	SkipPaths []string
}

func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{Enabled: true, SkipPaths: []string{"/health", "/api/v1/health"}}
}

// routeDomains maps a route's resource segment to its bounded context.
var routeDomains = map[string]string{
	"accounts":    "ledger",
	"sales":       "sales",
	"rates":       "sales",
	"receivables": "sales",
	"outbox":      "event",
}

func domainOf(resource string) (string, bool) {
	d, ok := routeDomains[resource]
	return d, ok
}

// Profiling attaches pprof labels for the matched route so Pyroscope can
// slice CPU samples per endpoint.
func Profiling(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}
	skip := slices.Clone(cfg.SkipPaths)

	return func(c *gin.Context) {
		if slices.Contains(skip, c.Request.URL.Path) {
			c.Next()
			return
		}
		telemetry.WithProfilingLabels(c.Request.Context(), routeLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func routeLabels(c *gin.Context) map[string]string {
	route := c.FullPath()
	resource := resourceOf(route)
	labels := telemetry.HTTPRequestLabels(resource, route, c.Request.Method)
	if d, ok := domainOf(resource); ok {
		labels[telemetry.ProfilingLabelDomain] = d
	}
	return labels
}

// resourceOf returns the first segment of route after the api and version
// prefix that is not a parameter: "/api/v1/accounts/:id/postings" is
// "accounts".
func resourceOf(route string) string {
	for seg := range strings.SplitSeq(route, "/") {
		switch {
		case seg == "", seg == "api", isVersion(seg), strings.HasPrefix(seg, ":"):
		default:
			return seg
		}
	}
	return ""
}

// isVersion matches v1, V12 and the like.
func isVersion(seg string) bool {
	if len(seg) < 2 || (seg[0] != 'v' && seg[0] != 'V') {
		return false
	}
	return strings.Trim(seg[1:], "0123456789") == ""
}
