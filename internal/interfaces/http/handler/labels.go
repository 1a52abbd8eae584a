package handler

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	app "github.com/erp/labels/internal/application/labeling"
)

// LabelHandler handles label job endpoints
type LabelHandler struct {
	BaseHandler
	catalog   *app.CatalogService
	assembler *app.Assembler
}

// NewLabelHandler creates a new LabelHandler
func NewLabelHandler(catalog *app.CatalogService, assembler *app.Assembler) *LabelHandler {
	return &LabelHandler{
		catalog:   catalog,
		assembler: assembler,
	}
}

// ListFamilies lists the printer families
func (h *LabelHandler) ListFamilies(c *gin.Context) {
	families := h.catalog.Families()
	h.SuccessList(c, families, len(families))
}

// ListFormats lists the formats of ?family=, or of the default family
func (h *LabelHandler) ListFormats(c *gin.Context) {
	formats, err := h.catalog.Formats(c.Query("family"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, formats, len(formats))
}

// GetFormat resolves one format. Unknown ids resolve to the family default.
func (h *LabelHandler) GetFormat(c *gin.Context) {
	detail, err := h.catalog.FormatDetail(c.Param("family"), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// Layout plans a job without drawing anything
func (h *LabelHandler) Layout(c *gin.Context) {
	var req app.JobRequest
	if !h.BindJSON(c, &req) {
		return
	}
	layout, err := h.catalog.Layout(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, layout)
}

// Print assembles a job and opens a print session for it
func (h *LabelHandler) Print(c *gin.Context) {
	var req app.JobRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.assembler.Print(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// GetPrintSession serves the print document of an open session
func (h *LabelHandler) GetPrintSession(c *gin.Context) {
	session, err := h.assembler.PrintSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", session.HTML)
}

// ClosePrintSession abandons a print session. Always 204.
func (h *LabelHandler) ClosePrintSession(c *gin.Context) {
	h.assembler.ClosePrintSession(c.Request.Context(), c.Param("id"))
	h.NoContent(c)
}

// GeneratePDF rasterizes a job and returns the PDF as an attachment
func (h *LabelHandler) GeneratePDF(c *gin.Context) {
	var req app.JobRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.assembler.GeneratePDF(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Filename}))
	c.Header("X-Label-Job-ID", result.JobID)
	c.Header("X-Label-Pages", strconv.Itoa(result.Pages))
	c.Header("X-Label-Skipped-Pages", joinInts(result.SkippedPages))
	if result.ArchiveURL != "" {
		c.Header("X-Label-Archive-URL", result.ArchiveURL)
	}
	c.Data(http.StatusOK, "application/pdf", result.Data)
}

// GetState reports the job gate
func (h *LabelHandler) GetState(c *gin.Context) {
	h.Success(c, h.assembler.State())
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
