package persistence

import (
	"context"

	"gorm.io/gorm"

	appinventory "github.com/hwmix/backend/internal/application/inventory"
	"github.com/hwmix/backend/internal/domain/inventory"
)

// GormInventoryTransactionScope implements the inventory TransactionScope
// using GORM transactions. Batch locks taken inside Execute hold until the
// transaction commits or rolls back.
type GormInventoryTransactionScope struct {
	db *gorm.DB
}

// NewGormInventoryTransactionScope creates a new GormInventoryTransactionScope
func NewGormInventoryTransactionScope(db *gorm.DB) *GormInventoryTransactionScope {
	return &GormInventoryTransactionScope{db: db}
}

// Execute runs the given function within a database transaction. When ctx
// already carries an open transaction the function joins it, so stock moves
// triggered from another scope roll back with their trigger.
func (s *GormInventoryTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos appinventory.TransactionalRepositories) error) error {
	if tx := txFrom(ctx); tx != nil {
		return fn(ctx, &gormInventoryRepositories{tx: tx})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx), &gormInventoryRepositories{tx: tx})
	})
}

type gormInventoryRepositories struct {
	tx *gorm.DB
}

// BatchRepo returns the stock batch repository scoped to the current transaction
func (r *gormInventoryRepositories) BatchRepo() inventory.StockBatchRepository {
	return NewGormStockBatchRepository(r.tx)
}

// VariantRepo returns the variant lookup scoped to the current transaction
func (r *gormInventoryRepositories) VariantRepo() inventory.VariantRepository {
	return NewGormVariantRepository(r.tx)
}

var _ appinventory.TransactionScope = (*GormInventoryTransactionScope)(nil)
var _ appinventory.TransactionalRepositories = (*gormInventoryRepositories)(nil)
