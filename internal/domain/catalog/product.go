package catalog

import (
	"strings"

	"github.com/erp/labels/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is the read-only view of an inventory item that labels are printed for
type Product struct {
	ID            string          `json:"id" gorm:"primaryKey"`
	Name          string          `json:"name" gorm:"size:200"`
	Code          string          `json:"code" gorm:"size:64;index"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(18,4)"`
	StockQuantity int             `json:"stock_quantity"`
	Category      string          `json:"category,omitempty" gorm:"size:100"`
	Favorite      bool            `json:"favorite,omitempty"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// Validate checks the fields every label needs
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" && strings.TrimSpace(p.Code) == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product needs a name or a code")
	}
	if p.Price.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product price cannot be negative")
	}
	return nil
}

// HasCode reports whether the product carries a barcode payload
func (p Product) HasCode() bool {
	return strings.TrimSpace(p.Code) != ""
}
