package catalog

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/erp/labels/internal/domain/shared"
)

// SortKey orders a product list
type SortKey string

const (
	SortNameAsc   SortKey = "name-asc"
	SortNameDesc  SortKey = "name-desc"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortStockAsc  SortKey = "stock-asc"
	SortStockDesc SortKey = "stock-desc"
)

// ParseSortKey accepts the keys above; empty means name-asc
func ParseSortKey(s string) (SortKey, error) {
	key := SortKey(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "":
		return SortNameAsc, nil
	case SortNameAsc, SortNameDesc, SortPriceAsc, SortPriceDesc, SortStockAsc, SortStockDesc:
		return key, nil
	}
	return "", shared.NewDomainError(shared.CodeInvalidInput, "Unknown sort key: "+s)
}

// Filter narrows a product list. Zero values do not filter.
type Filter struct {
	Text          string
	Category      string
	MinStock      *int
	MaxStock      *int
	FavoritesOnly bool
	Sort          SortKey
}

// Match reports whether p passes every criterion. Text matches name or code,
// ignoring case and accents.
func (f Filter) Match(p Product) bool {
	if f.FavoritesOnly && !p.Favorite {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, p.Category) {
		return false
	}
	if f.MinStock != nil && p.StockQuantity < *f.MinStock {
		return false
	}
	if f.MaxStock != nil && p.StockQuantity > *f.MaxStock {
		return false
	}
	if text := Fold(f.Text); text != "" {
		return strings.Contains(Fold(p.Name), text) || strings.Contains(Fold(p.Code), text)
	}
	return true
}

// Apply filters products and sorts the result by f.Sort
func (f Filter) Apply(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	Sort(out, f.Sort)
	return out
}

// Sort orders products in place. Ties keep their input order.
func Sort(products []Product, key SortKey) {
	var cmp func(a, b Product) int
	switch key {
	case SortNameDesc:
		cmp = func(a, b Product) int { return strings.Compare(Fold(b.Name), Fold(a.Name)) }
	case SortPriceAsc:
		cmp = func(a, b Product) int { return a.Price.Cmp(b.Price) }
	case SortPriceDesc:
		cmp = func(a, b Product) int { return b.Price.Cmp(a.Price) }
	case SortStockAsc:
		cmp = func(a, b Product) int { return a.StockQuantity - b.StockQuantity }
	case SortStockDesc:
		cmp = func(a, b Product) int { return b.StockQuantity - a.StockQuantity }
	default:
		cmp = func(a, b Product) int { return strings.Compare(Fold(a.Name), Fold(b.Name)) }
	}
	slices.SortStableFunc(products, cmp)
}

// Fold lowercases s and strips combining marks, so "Jaén" and "JAEN" compare equal
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
