package invoicing

import (
	"strings"

	"github.com/google/uuid"

	"github.com/hwmix/backend/internal/domain/shared"
)

// StockMode controls how a document type interacts with inventory
type StockMode string

const (
	// StockModeDeduct deducts stock when the invoice is confirmed
	StockModeDeduct StockMode = "DEDUCT"
	// StockModeNone skips stock movement entirely (quotations, proformas)
	StockModeNone StockMode = "NONE"
)

// IsValid checks if the stock mode is valid
func (m StockMode) IsValid() bool {
	return m == StockModeDeduct || m == StockModeNone
}

// String returns the string representation
func (m StockMode) String() string {
	return string(m)
}

// InvoiceType is the per-company configuration of a document type.
// Its code drives invoice numbering and its stock mode drives whether
// confirming an invoice moves inventory.
type InvoiceType struct {
	shared.BaseEntity
	CompanyID uuid.UUID
	Code      string
	Name      string
	StockMode StockMode
}

// TableName returns the table name for GORM
func (InvoiceType) TableName() string {
	return "invoice_types"
}

// NewInvoiceType creates a new invoice type
func NewInvoiceType(companyID uuid.UUID, code, name string, stockMode StockMode) (*InvoiceType, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Invoice type code cannot be empty")
	}
	if !stockMode.IsValid() {
		return nil, shared.NewDomainError("INVALID_STOCK_MODE", "Invalid stock mode")
	}

	return &InvoiceType{
		BaseEntity: shared.NewBaseEntity(),
		CompanyID:  companyID,
		Code:       code,
		Name:       name,
		StockMode:  stockMode,
	}, nil
}

// MovesStock returns true if confirming this document type deducts inventory
func (t *InvoiceType) MovesStock() bool {
	return t.StockMode == StockModeDeduct
}

// ShortCode derives the abbreviation used in invoice numbers.
// A code without underscores keeps its first four characters; a code with
// underscores keeps the first three characters of each part, rejoined with
// underscores. The result is uppercased: "sale" -> "SALE",
// "sale_return" -> "SAL_RET".
func (t *InvoiceType) ShortCode() string {
	return ShortCodeFor(t.Code)
}

// ShortCodeFor derives the numbering abbreviation for a raw type code
func ShortCodeFor(code string) string {
	if !strings.Contains(code, "_") {
		if len(code) > 4 {
			code = code[:4]
		}
		return strings.ToUpper(code)
	}

	parts := strings.Split(code, "_")
	for i, part := range parts {
		if len(part) > 3 {
			parts[i] = part[:3]
		}
	}
	return strings.ToUpper(strings.Join(parts, "_"))
}
