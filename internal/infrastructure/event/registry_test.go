package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_TypedHandlersComeFirst(t *testing.T) {
	registry := NewHandlerRegistry()
	typed := newTestHandler()
	wildcard := newTestHandler()

	registry.Register(wildcard)
	registry.Register(typed, "sales.SaleCreated", "sales.LineItemReturned")

	handlers := registry.GetHandlers("sales.SaleCreated")
	assert.Len(t, handlers, 2)
	assert.Same(t, typed, handlers[0])
	assert.Same(t, wildcard, handlers[1])

	assert.Len(t, registry.GetHandlers("ledger.PostingRecorded"), 1)
	assert.Equal(t, 2, registry.Len())
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	a := newTestHandler()
	b := newTestHandler()
	registry.Register(a, "sales.SaleCreated")
	registry.Register(b, "sales.SaleCreated")
	registry.Register(a)

	registry.Unregister(a)

	handlers := registry.GetHandlers("sales.SaleCreated")
	assert.Len(t, handlers, 1)
	assert.Same(t, b, handlers[0])
	assert.Equal(t, 1, registry.Len())

	registry.Unregister(b)
	assert.Empty(t, registry.GetHandlers("sales.SaleCreated"))
	assert.Equal(t, 0, registry.Len())
}
