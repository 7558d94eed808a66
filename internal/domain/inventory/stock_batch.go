package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hwmix/backend/internal/domain/shared"
)

// StockStatus represents the availability status of a stock batch
type StockStatus string

const (
	StockStatusAvailable   StockStatus = "AVAILABLE"
	StockStatusUnavailable StockStatus = "UNAVAILABLE"
	StockStatusExpired     StockStatus = "EXPIRED"
)

// IsValid checks if the status is a valid StockStatus
func (s StockStatus) IsValid() bool {
	switch s {
	case StockStatusAvailable, StockStatusUnavailable, StockStatusExpired:
		return true
	}
	return false
}

// String returns the string representation
func (s StockStatus) String() string {
	return string(s)
}

// StockBatch holds the quantity of one product variant stored in one
// warehouse under a single batch number. A variant may span multiple batches
// across warehouses; allocation consumes them oldest first.
type StockBatch struct {
	shared.BaseEntity
	CompanyID   uuid.UUID
	VariantID   uuid.UUID
	WarehouseID uuid.UUID
	BatchNumber string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Status      StockStatus
	ExpiryDate  *time.Time
}

// TableName returns the table name for GORM
func (StockBatch) TableName() string {
	return "stock_batches"
}

// NewStockBatch creates a new stock batch
func NewStockBatch(
	companyID, variantID, warehouseID uuid.UUID,
	batchNumber string,
	quantity, unitCost decimal.Decimal,
	expiryDate *time.Time,
) (*StockBatch, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}

	return &StockBatch{
		BaseEntity:  shared.NewBaseEntity(),
		CompanyID:   companyID,
		VariantID:   variantID,
		WarehouseID: warehouseID,
		BatchNumber: batchNumber,
		Quantity:    quantity,
		UnitCost:    unitCost,
		Status:      StockStatusAvailable,
		ExpiryDate:  expiryDate,
	}, nil
}

// IsAvailable returns true if the batch can be allocated from
func (b *StockBatch) IsAvailable() bool {
	return b.Status == StockStatusAvailable && !b.IsExpired()
}

// IsExpired returns true if the batch has passed its expiry date
func (b *StockBatch) IsExpired() bool {
	if b.Status == StockStatusExpired {
		return true
	}
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(time.Now())
}

// HasStock returns true if the batch has remaining quantity
func (b *StockBatch) HasStock() bool {
	return b.Quantity.IsPositive()
}

// MarkExpired transitions the batch to expired status
func (b *StockBatch) MarkExpired() {
	b.Status = StockStatusExpired
	b.UpdatedAt = time.Now()
}

// Deduct reduces the batch quantity.
// Returns the quantity actually deducted, capped at the batch quantity so a
// batch can never go negative.
func (b *StockBatch) Deduct(quantity decimal.Decimal) decimal.Decimal {
	if quantity.GreaterThan(b.Quantity) {
		deducted := b.Quantity
		b.Quantity = decimal.Zero
		b.UpdatedAt = time.Now()
		return deducted
	}

	b.Quantity = b.Quantity.Sub(quantity)
	b.UpdatedAt = time.Now()
	return quantity
}

// Add increases the batch quantity (returns and adjustments)
func (b *StockBatch) Add(quantity decimal.Decimal) {
	b.Quantity = b.Quantity.Add(quantity)
	b.UpdatedAt = time.Now()
}

// AdjustmentBatchPrefix marks batches that receive restored quantities.
const AdjustmentBatchPrefix = "ADJ-"

// AdjustmentBatchNumber derives the batch number of the dedicated adjustment
// batch for a variant. Restored stock lands there so FIFO ordering of the
// original purchase batches stays intact.
func AdjustmentBatchNumber(variantID uuid.UUID) string {
	return AdjustmentBatchPrefix + variantID.String()[:8]
}

// NewAdjustmentBatch creates the adjustment batch for a variant in a warehouse
func NewAdjustmentBatch(companyID, variantID, warehouseID uuid.UUID) (*StockBatch, error) {
	return NewStockBatch(companyID, variantID, warehouseID, AdjustmentBatchNumber(variantID), decimal.Zero, decimal.Zero, nil)
}
