package handler

import (
	"github.com/erp/labels/internal/interfaces/http/router"
)

// LabelRoutes creates the route group for label jobs
func LabelRoutes(h *LabelHandler) *router.DomainGroup {
	group := router.NewDomainGroup("labels", "/labels")

	// Catalog
	group.GET("/families", h.ListFamilies)
	group.GET("/formats", h.ListFormats)
	group.GET("/formats/:family/:id", h.GetFormat)

	// Jobs
	group.POST("/layout", h.Layout)
	group.POST("/print", h.Print)
	group.POST("/pdf", h.GeneratePDF)
	group.GET("/state", h.GetState)

	// Print sessions
	group.GET("/print/:id", h.GetPrintSession)
	group.DELETE("/print/:id", h.ClosePrintSession)

	return group
}

// ProductRoutes creates the route group for product lookup
func ProductRoutes(h *ProductHandler) *router.DomainGroup {
	group := router.NewDomainGroup("products", "/products")
	group.GET("", h.List)
	group.GET("/code/:code", h.GetByCode)
	return group
}
