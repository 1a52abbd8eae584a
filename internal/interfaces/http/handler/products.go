package handler

import (
	"github.com/gin-gonic/gin"

	app "github.com/erp/labels/internal/application/labeling"
	"github.com/erp/labels/internal/domain/catalog"
)

// ProductHandler exposes the read-only product lookup used to pick what to label
type ProductHandler struct {
	BaseHandler
	catalog *app.CatalogService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog *app.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// ProductListQuery holds the product filter query parameters
type ProductListQuery struct {
	Search    string `form:"search"`
	Category  string `form:"category"`
	MinStock  *int   `form:"min_stock"`
	MaxStock  *int   `form:"max_stock"`
	Favorites bool   `form:"favorites"`
	Sort      string `form:"sort"`
}

// Filter converts the query into a catalog filter
func (q ProductListQuery) Filter() (catalog.Filter, error) {
	sort, err := catalog.ParseSortKey(q.Sort)
	if err != nil {
		return catalog.Filter{}, err
	}
	return catalog.Filter{
		Text:          q.Search,
		Category:      q.Category,
		MinStock:      q.MinStock,
		MaxStock:      q.MaxStock,
		FavoritesOnly: q.Favorites,
		Sort:          sort,
	}, nil
}

// List filters the inventory's products
func (h *ProductHandler) List(c *gin.Context) {
	var query ProductListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter, err := query.Filter()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	products, err := h.catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, products, len(products))
}

// GetByCode looks up the product of a scanned code
func (h *ProductHandler) GetByCode(c *gin.Context) {
	product, err := h.catalog.FindProductByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}
