package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortOrder(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "DESC"},
		{"ASC", "ASC"},
		{"asc", "ASC"},
		{"  asc  ", "ASC"},
		{"desc", "DESC"},
		{"sideways", "DESC"},
		{"ASC; DROP TABLE sales;--", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sortOrder(tt.input))
		})
	}
}

func TestSortColumn(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty uses fallback", "", "created_at"},
		{"known key", "remaining", "remaining"},
		{"surrounding whitespace", "  bell_number ", "bell_number"},
		{"case sensitive", "TOTAL", "created_at"},
		{"unknown column", "customer_id", "created_at"},
		{"injection attempt", "total; DROP TABLE sales;--", "created_at"},
		{"quoted", "total'--", "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sortColumn(tt.input, SaleSortColumns, defaultSaleSort))
		})
	}
}
