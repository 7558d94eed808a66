package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hwmix/backend/internal/domain/inventory"
	"github.com/hwmix/backend/internal/domain/shared"
)

// GormStockBatchRepository implements StockBatchRepository using GORM
type GormStockBatchRepository struct {
	db *gorm.DB
}

// NewGormStockBatchRepository creates a new GormStockBatchRepository
func NewGormStockBatchRepository(db *gorm.DB) *GormStockBatchRepository {
	return &GormStockBatchRepository{db: db}
}

// FindByID finds a stock batch by its ID
func (r *GormStockBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockBatch, error) {
	var batch inventory.StockBatch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByVariant finds all batches for a variant within a company, oldest first
// so callers see them in allocation order.
func (r *GormStockBatchRepository) FindByVariant(ctx context.Context, companyID, variantID uuid.UUID) ([]inventory.StockBatch, error) {
	var batches []inventory.StockBatch
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND variant_id = ?", companyID, variantID).
		Order("created_at ASC, id ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindByVariantForUpdate locks all batches for a variant, oldest first.
// Must run inside a transaction scope; the consistent ordering keeps
// concurrent allocations against the same variant from deadlocking.
func (r *GormStockBatchRepository) FindByVariantForUpdate(ctx context.Context, companyID, variantID uuid.UUID) ([]inventory.StockBatch, error) {
	var batches []inventory.StockBatch
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND variant_id = ?", companyID, variantID).
		Order("created_at ASC, id ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindAdjustmentBatchForUpdate locks and returns the adjustment batch for a
// variant in a warehouse, or shared.ErrNotFound when it does not exist yet
func (r *GormStockBatchRepository) FindAdjustmentBatchForUpdate(ctx context.Context, companyID, variantID, warehouseID uuid.UUID) (*inventory.StockBatch, error) {
	var batch inventory.StockBatch
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND variant_id = ? AND warehouse_id = ? AND batch_number = ?",
			companyID, variantID, warehouseID, inventory.AdjustmentBatchNumber(variantID)).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// Save creates or updates a stock batch
func (r *GormStockBatchRepository) Save(ctx context.Context, batch *inventory.StockBatch) error {
	return r.db.WithContext(ctx).Save(batch).Error
}

// SaveAll persists a set of batches in one call
func (r *GormStockBatchRepository) SaveAll(ctx context.Context, batches []*inventory.StockBatch) error {
	if len(batches) == 0 {
		return nil
	}
	for _, batch := range batches {
		if err := r.db.WithContext(ctx).Save(batch).Error; err != nil {
			return err
		}
	}
	return nil
}

// Ensure GormStockBatchRepository implements StockBatchRepository
var _ inventory.StockBatchRepository = (*GormStockBatchRepository)(nil)

// GormVariantRepository implements VariantRepository against the variants
// table owned by the product catalog.
type GormVariantRepository struct {
	db *gorm.DB
}

// NewGormVariantRepository creates a new GormVariantRepository
func NewGormVariantRepository(db *gorm.DB) *GormVariantRepository {
	return &GormVariantRepository{db: db}
}

// Exists reports whether a product variant exists within a company
func (r *GormVariantRepository) Exists(ctx context.Context, companyID, variantID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Table("product_variants").
		Where("company_id = ? AND id = ?", companyID, variantID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormVariantRepository implements VariantRepository
var _ inventory.VariantRepository = (*GormVariantRepository)(nil)
