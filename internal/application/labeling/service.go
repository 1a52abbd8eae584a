package labeling

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/labels/internal/domain/catalog"
	domain "github.com/erp/labels/internal/domain/labeling"
	"github.com/erp/labels/internal/domain/shared"
)

// CatalogService answers format and product queries and turns job requests
// into validated label jobs
type CatalogService struct {
	formats       *domain.Catalog
	products      catalog.ProductRepository
	maxQuantity   int
	defaultFamily domain.PrinterFamily
	defaultFormat string
	logger        *zap.Logger
}

// CatalogOption configures a CatalogService
type CatalogOption func(*CatalogService)

// WithProductRepository enables product lookup by ID and the product list
func WithProductRepository(repo catalog.ProductRepository) CatalogOption {
	return func(s *CatalogService) {
		s.products = repo
	}
}

// WithMaxQuantity caps the labels per job
func WithMaxQuantity(n int) CatalogOption {
	return func(s *CatalogService) {
		s.maxQuantity = n
	}
}

// WithDefaults sets the family and format used when a request names none
func WithDefaults(family domain.PrinterFamily, formatID string) CatalogOption {
	return func(s *CatalogService) {
		if family.IsValid() {
			s.defaultFamily = family
		}
		s.defaultFormat = formatID
	}
}

// WithCatalogLogger sets the logger
func WithCatalogLogger(logger *zap.Logger) CatalogOption {
	return func(s *CatalogService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCatalogService creates a CatalogService over a format catalog. A nil
// catalog uses the embedded one.
func NewCatalogService(formats *domain.Catalog, opts ...CatalogOption) *CatalogService {
	if formats == nil {
		formats = domain.DefaultCatalog()
	}
	s := &CatalogService{
		formats:       formats,
		maxQuantity:   domain.DefaultMaxQuantity,
		defaultFamily: domain.FamilySheet,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasProductRepository reports whether products can be looked up by ID
func (s *CatalogService) HasProductRepository() bool {
	return s.products != nil
}

// Families lists the printer families with their format counts
func (s *CatalogService) Families() []FamilyResponse {
	families := domain.AllPrinterFamilies()
	out := make([]FamilyResponse, len(families))
	for i, f := range families {
		out[i] = FamilyResponse{
			ID:          f.String(),
			DisplayName: f.DisplayName(),
			Continuous:  f.IsContinuous(),
			Formats:     len(s.formats.Formats(f)),
		}
	}
	return out
}

// Formats lists a family's formats in catalog order
func (s *CatalogService) Formats(family string) ([]domain.LabelFormat, error) {
	f, err := s.parseFamily(family)
	if err != nil {
		return nil, err
	}
	return s.formats.Formats(f), nil
}

// FormatDetail resolves a format, falling back to the family's first format
// for unknown ids, and derives its printer profile and calibration
func (s *CatalogService) FormatDetail(family, formatID string) (*FormatDetailResponse, error) {
	f, err := s.parseFamily(family)
	if err != nil {
		return nil, err
	}
	format := s.formats.Resolve(f, formatID)
	return &FormatDetailResponse{
		Format:      format,
		Profile:     domain.ProfileFor(format, f),
		Calibration: s.formats.Calibration().Lookup(f, format.ID),
		Small:       format.IsSmall(),
	}, nil
}

// ListProducts filters the inventory's products
func (s *CatalogService) ListProducts(ctx context.Context, filter catalog.Filter) ([]catalog.Product, error) {
	if s.products == nil {
		return nil, shared.NewDomainError(shared.CodeMissingDependency, "Product database is not configured")
	}
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// FindProductByCode looks a scanned code up in the inventory
func (s *CatalogService) FindProductByCode(ctx context.Context, code string) (*catalog.Product, error) {
	if s.products == nil {
		return nil, shared.NewDomainError(shared.CodeMissingDependency, "Product database is not configured")
	}
	product, err := s.products.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "No product with code "+code)
		}
		return nil, err
	}
	return product, nil
}

// BuildJob resolves the product, family, format and fields of a request into
// a validated label job
func (s *CatalogService) BuildJob(ctx context.Context, req JobRequest) (*domain.LabelJob, error) {
	product, err := s.resolveProduct(ctx, req)
	if err != nil {
		return nil, err
	}
	family, err := s.parseFamily(req.Family)
	if err != nil {
		return nil, err
	}
	formatID := req.FormatID
	if formatID == "" && family == s.defaultFamily {
		formatID = s.defaultFormat
	}
	fields, err := domain.ParseFieldSet(req.Fields)
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}

	format := s.formats.Resolve(family, formatID)
	if formatID != "" && format.ID != formatID {
		s.logger.Info("unknown format, using the family default",
			zap.String("family", family.String()),
			zap.String("requested", formatID),
			zap.String("format", format.ID))
	}
	return domain.NewLabelJob(*product, format, family, req.Quantity, fields, s.maxQuantity)
}

// Layout plans a job without drawing barcodes or taking the job gate
func (s *CatalogService) Layout(ctx context.Context, req JobRequest) (*LayoutResponse, error) {
	job, err := s.BuildJob(ctx, req)
	if err != nil {
		return nil, err
	}

	profile := job.Profile()
	calib := s.formats.Calibration().Lookup(job.Family, job.Format.ID)
	plan := job.Plan()
	pages := make([]PageResponse, len(plan))
	for i, page := range plan {
		labels := make([]PlacedLabel, len(page.Cells))
		for j, cell := range page.Cells {
			pt := domain.Position(job.Format, profile, calib, cell.Row, cell.Col)
			labels[j] = PlacedLabel{Cell: cell, X: pt.X, Y: pt.Y}
		}
		pages[i] = PageResponse{Index: page.Index, Labels: labels}
	}

	return &LayoutResponse{
		Format:   job.Format,
		Profile:  profile,
		Fields:   job.Fields.Names(),
		Quantity: job.Quantity,
		Pages:    pages,
		Filename: job.Filename(),
	}, nil
}

func (s *CatalogService) resolveProduct(ctx context.Context, req JobRequest) (*catalog.Product, error) {
	if req.Product != nil {
		return req.Product, nil
	}
	if req.ProductID == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "A product or product_id is required")
	}
	if s.products == nil {
		return nil, shared.NewDomainError(shared.CodeMissingDependency,
			"Product database is not configured, send the product inline")
	}

	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Product not found")
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return product, nil
}

func (s *CatalogService) parseFamily(family string) (domain.PrinterFamily, error) {
	if family == "" {
		return s.defaultFamily, nil
	}
	f, ok := domain.ParsePrinterFamily(family)
	if !ok {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Unknown printer family: "+family)
	}
	return f, nil
}

// Catalog returns the format catalog
func (s *CatalogService) Catalog() *domain.Catalog {
	return s.formats
}
