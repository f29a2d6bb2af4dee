package persistence

import (
	"strings"

	"gorm.io/gorm"
)

// SaleSortColumns maps the sort keys accepted by the sales list to columns.
// Anything else falls back to creation time.
var SaleSortColumns = map[string]string{
	"created_at":  "created_at",
	"bell_number": "bell_number",
	"total":       "total",
	"paid":        "paid",
	"remaining":   "remaining",
}

const defaultSaleSort = "created_at"

// sortOrder normalizes a direction to ASC or DESC, defaulting to DESC
func sortOrder(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "ASC") {
		return "ASC"
	}
	return "DESC"
}

// sortColumn resolves key through the whitelist; unknown keys yield fallback
func sortColumn(key string, allowed map[string]string, fallback string) string {
	if col, ok := allowed[strings.TrimSpace(key)]; ok {
		return col
	}
	return allowed[fallback]
}

// orderSales applies the requested order with bell_number as the tie-breaker,
// so pages are stable when many sales share a timestamp or amount.
func orderSales(query *gorm.DB, sortBy, dir string) *gorm.DB {
	col := sortColumn(sortBy, SaleSortColumns, defaultSaleSort)
	order := sortOrder(dir)
	query = query.Order(col + " " + order)
	if col != "bell_number" {
		query = query.Order("bell_number " + order)
	}
	return query
}
