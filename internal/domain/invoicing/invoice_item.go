package invoicing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hwmix/backend/internal/domain/shared"
)

// InvoiceItem is a single line on an invoice.
// Line totals are not enforced by the database, so they are validated here
// at construction time: total = quantity*unit_price - discount.
type InvoiceItem struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
	VariantID *uuid.UUID // nil for service lines that carry no stock
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
	CostPrice decimal.Decimal // filled from batch costs when stock is deducted
}

// TableName returns the table name for GORM
func (InvoiceItem) TableName() string {
	return "invoice_items"
}

// NewInvoiceItem creates a validated invoice line, computing its total
func NewInvoiceItem(name string, variantID *uuid.UUID, quantity, unitPrice, discount decimal.Decimal) (*InvoiceItem, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item name cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Item quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if discount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}

	total := quantity.Mul(unitPrice).Sub(discount)
	if total.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount exceeds the line amount")
	}

	return &InvoiceItem{
		ID:        uuid.New(),
		VariantID: variantID,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Discount:  discount,
		Total:     total,
	}, nil
}

// Validate re-checks the line total invariant on a loaded item
func (i *InvoiceItem) Validate() error {
	expected := i.Quantity.Mul(i.UnitPrice).Sub(i.Discount)
	if !i.Total.Equal(expected) {
		return shared.NewDomainError("INVALID_ITEM_TOTAL", "Item total does not match quantity, price and discount")
	}
	return nil
}

// MovesStock returns true if this line references a stock-carrying variant
func (i *InvoiceItem) MovesStock() bool {
	return i.VariantID != nil
}

// SetCostPrice records the allocated batch cost for the line
func (i *InvoiceItem) SetCostPrice(cost decimal.Decimal) {
	i.CostPrice = cost
}
