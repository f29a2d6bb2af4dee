package telemetry

import (
	"context"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/grafana/pyroscope-go"
)

const (
	OperationPost           = "post"
	OperationCreateSale     = "create_sale"
	OperationReturnLineItem = "return_line_item"
)

// Pyroscope label keys.
const (
	ProfilingLabelController  = "controller"
	ProfilingLabelRoute       = "route"
	ProfilingLabelMethod      = "method"
	ProfilingLabelDomain      = "domain" // "ledger" or "sales"
	ProfilingLabelPostingType = "posting_type"
	ProfilingLabelOperation   = "operation"
)

// maxLabelValue caps label values; Pyroscope keeps one series per distinct set.
const maxLabelValue = 128

// HighCardinalityLabels are dropped before tagging. Read-only.
var HighCardinalityLabels = map[string]bool{
	"request_id":  true,
	"trace_id":    true,
	"span_id":     true,
	"session_id":  true,
	"account_id":  true,
	"sale_id":     true,
	"customer_id": true,
	"bell_number": true,
}

// WithProfilingLabels runs fn with labels attached to its goroutine's CPU and
// allocation samples. Keys are normalized to snake_case; empty entries and
// high-cardinality keys are dropped. The map is not retained.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// labelPairs flattens labels into sorted key, value pairs
func labelPairs(labels map[string]string) []string {
	pairs := make([]string, 0, 2*len(labels))
	for _, k := range slices.Sorted(maps.Keys(labels)) {
		v := labels[k]
		key := labelKey(k)
		if key == "" || v == "" || HighCardinalityLabels[key] {
			continue
		}
		if len(v) > maxLabelValue {
			v = v[:maxLabelValue]
		}
		pairs = append(pairs, key, v)
	}
	return pairs
}

// labelKey lowercases k, maps spaces and dashes to underscores, and drops
// anything outside [a-z0-9_].
func labelKey(k string) string {
	return strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		switch {
		case r == ' ' || r == '-':
			return '_'
		case r == '_' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9'):
			return r
		}
		return -1
	}, k)
}

// HTTPRequestLabels labels a request by handler, route pattern and method,
// omitting empty parts.
func HTTPRequestLabels(controller, route, method string) map[string]string {
	labels := make(map[string]string, 3)
	for k, v := range map[string]string{
		ProfilingLabelController: controller,
		ProfilingLabelRoute:      route,
		ProfilingLabelMethod:     method,
	} {
		if v != "" {
			labels[k] = v
		}
	}
	return labels
}

// LedgerOperationLabels labels a ledger operation; postingType may be empty.
func LedgerOperationLabels(operation, postingType string) map[string]string {
	labels := map[string]string{
		ProfilingLabelDomain:    "ledger",
		ProfilingLabelOperation: operation,
	}
	if postingType != "" {
		labels[ProfilingLabelPostingType] = postingType
	}
	return labels
}

func SalesOperationLabels(operation string) map[string]string {
	return map[string]string{
		ProfilingLabelDomain:    "sales",
		ProfilingLabelOperation: operation,
	}
}
