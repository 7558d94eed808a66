package inventory

import (
	"context"

	"github.com/google/uuid"
)

// StockBatchRepository defines the interface for stock batch persistence
type StockBatchRepository interface {
	// FindByID finds a stock batch by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockBatch, error)

	// FindByVariant finds all batches for a variant within a company
	FindByVariant(ctx context.Context, companyID, variantID uuid.UUID) ([]StockBatch, error)

	// FindByVariantForUpdate finds all batches for a variant with row-level
	// write locks. Must be called inside a transaction scope; it serializes
	// concurrent allocations against the same variant.
	FindByVariantForUpdate(ctx context.Context, companyID, variantID uuid.UUID) ([]StockBatch, error)

	// FindAdjustmentBatchForUpdate locks and returns the adjustment batch for
	// a variant in a warehouse, or shared.ErrNotFound when it does not exist yet.
	FindAdjustmentBatchForUpdate(ctx context.Context, companyID, variantID, warehouseID uuid.UUID) (*StockBatch, error)

	// Save creates or updates a stock batch
	Save(ctx context.Context, batch *StockBatch) error

	// SaveAll persists a set of batches in one call
	SaveAll(ctx context.Context, batches []*StockBatch) error
}

// VariantRepository exposes the minimal variant lookup the allocator needs.
// The product catalog itself is owned by a collaborator service.
type VariantRepository interface {
	// Exists reports whether a product variant exists within a company
	Exists(ctx context.Context, companyID, variantID uuid.UUID) (bool, error)
}
