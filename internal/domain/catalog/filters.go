package catalog

import (
	"slices"
	"strconv"
	"strings"
)

// FilterAll selects every category.
const FilterAll = "all"

// ProductOrder selects the listing order.
type ProductOrder int

const (
	// OrderBySortOrder sorts by the admin-defined order, then id.
	OrderBySortOrder ProductOrder = iota
	// OrderByNewest sorts by creation time, newest first.
	OrderByNewest
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategorySlug string
	MaterialSlug string
	ActiveOnly   bool
	NewOnly      bool
	ExcludeID    int
	Limit        int
	Order        ProductOrder
}

// CacheKey renders the filter as a stable cache key suffix.
func (f ProductFilter) CacheKey() string {
	return strings.Join([]string{
		"c=" + f.CategorySlug,
		"m=" + f.MaterialSlug,
		"a=" + strconv.FormatBool(f.ActiveOnly),
		"n=" + strconv.FormatBool(f.NewOnly),
		"x=" + strconv.Itoa(f.ExcludeID),
		"l=" + strconv.Itoa(f.Limit),
		"o=" + strconv.Itoa(int(f.Order)),
	}, ",")
}

// StockFilter is the storefront selection.
type StockFilter struct {
	Category string   `json:"category"`
	Price    *float64 `json:"price,omitempty"`
}

// Storefront is the filtered stock view with its facets.
type Storefront struct {
	Items      []StockItem `json:"items"`
	Categories []string    `json:"categories"`
	Prices     []float64   `json:"prices"`
	Filter     StockFilter `json:"filter"`
}

// PriceFacets returns the distinct prices of each category in ascending order.
func PriceFacets(items []StockItem) map[string][]float64 {
	facets := make(map[string][]float64)
	for _, item := range items {
		if !slices.Contains(facets[item.Category], item.Price) {
			facets[item.Category] = append(facets[item.Category], item.Price)
		}
	}
	for _, prices := range facets {
		slices.Sort(prices)
	}
	return facets
}

// NormalizeStockFilter maps empty and "all" categories to FilterAll and drops
// a price that is not offered in the selected category.
func NormalizeStockFilter(f StockFilter, facets map[string][]float64) StockFilter {
	if f.Category == "" || strings.EqualFold(f.Category, FilterAll) || strings.EqualFold(f.Category, "todos") {
		return StockFilter{Category: FilterAll}
	}

	if f.Price != nil && !slices.Contains(facets[f.Category], *f.Price) {
		f.Price = nil
	}
	return f
}

// FilterStock applies f to items, preserving order. The price filter only
// applies once a category is chosen.
func FilterStock(items []StockItem, f StockFilter) []StockItem {
	out := make([]StockItem, 0, len(items))
	for _, item := range items {
		if f.Category == FilterAll || f.Category == "" {
			out = append(out, item)
			continue
		}
		if item.Category != f.Category {
			continue
		}
		if f.Price != nil && item.Price != *f.Price {
			continue
		}
		out = append(out, item)
	}
	return out
}

// BuildStorefront normalizes f against items and returns the filtered view.
func BuildStorefront(items []StockItem, f StockFilter) Storefront {
	facets := PriceFacets(items)
	f = NormalizeStockFilter(f, facets)

	categories := make([]string, 0, len(facets))
	for category := range facets {
		categories = append(categories, category)
	}
	slices.Sort(categories)

	prices := []float64{}
	if f.Category != FilterAll {
		prices = append(prices, facets[f.Category]...)
	}

	return Storefront{
		Items:      FilterStock(items, f),
		Categories: categories,
		Prices:     prices,
		Filter:     f,
	}
}
