package labeling

import (
	"fmt"

	"github.com/erp/labels/internal/domain/catalog"
	"github.com/erp/labels/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultMaxQuantity caps a single job when no limit is configured
const DefaultMaxQuantity = 1000

// LabelJob is one print or PDF request. It is built once per action and consumed by it.
type LabelJob struct {
	ID       uuid.UUID
	Product  catalog.Product
	Format   LabelFormat
	Family   PrinterFamily
	Quantity int
	// Fields is the selection after the small-format override
	Fields FieldSet
}

// NewLabelJob validates the request and applies the small-format override.
// maxQuantity <= 0 means DefaultMaxQuantity.
func NewLabelJob(product catalog.Product, format LabelFormat, family PrinterFamily, quantity int, fields FieldSet, maxQuantity int) (*LabelJob, error) {
	if !family.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid printer family: "+string(family))
	}
	if format.Family != "" && format.Family != family {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Format %s belongs to %s, not %s", format.ID, format.Family, family))
	}
	if maxQuantity <= 0 {
		maxQuantity = DefaultMaxQuantity
	}
	if quantity < 1 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be at least 1")
	}
	if quantity > maxQuantity {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Quantity cannot exceed %d", maxQuantity))
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if fields == 0 {
		fields = AllFields
	}
	effective := fields.Effective(format)

	if (effective.Has(FieldBarcode) || effective.Has(FieldCode)) && !product.HasCode() {
		return nil, shared.NewDomainError(shared.CodeInvalidBarcodePayload, "Product has no code to print")
	}

	return &LabelJob{
		ID:       uuid.New(),
		Product:  product,
		Format:   format,
		Family:   family,
		Quantity: quantity,
		Fields:   effective,
	}, nil
}

// Profile returns the printer profile for the job's format
func (j *LabelJob) Profile() PrinterProfile {
	return ProfileFor(j.Format, j.Family)
}

// PageCount returns how many pages the job produces
func (j *LabelJob) PageCount() int {
	if j.Family.IsContinuous() {
		return j.Quantity
	}
	return PageCount(j.Quantity, j.Format.PerPage)
}

// Plan returns the page layout of the job
func (j *LabelJob) Plan() []PageLayout {
	return Plan(j.Format, j.Family, j.Quantity)
}

// Filename returns the PDF download name
func (j *LabelJob) Filename() string {
	return PDFFilename(j.Product.Name)
}
