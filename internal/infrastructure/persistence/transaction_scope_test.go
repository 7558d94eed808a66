package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	appinstallment "github.com/hwmix/backend/internal/application/installment"
	appinventory "github.com/hwmix/backend/internal/application/inventory"
	appinvoicing "github.com/hwmix/backend/internal/application/invoicing"
	appledger "github.com/hwmix/backend/internal/application/ledger"
	"github.com/hwmix/backend/internal/domain/inventory"
	"github.com/hwmix/backend/internal/domain/ledger"
)

// stockBatchSQLite is a SQLite-compatible version of the stock_batches table for testing
type stockBatchSQLite struct {
	ID          string `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompanyID   string
	VariantID   string
	WarehouseID string
	BatchNumber string
	Quantity    string
	UnitCost    string
	Status      string
	ExpiryDate  *time.Time
}

func (stockBatchSQLite) TableName() string {
	return "stock_batches"
}

type transactionSQLite struct {
	ID                    string `gorm:"primaryKey"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
	CompanyID             string
	Type                  string
	Amount                string
	BalanceBefore         string
	BalanceAfter          string
	UserID                string
	CashBoxID             string
	TargetUserID          *string
	TargetBoxID           *string
	Description           string
	OriginalTransactionID *string
	ReversedAt            *time.Time
}

func (transactionSQLite) TableName() string {
	return "transactions"
}

func setupScopeTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&stockBatchSQLite{}, &transactionSQLite{})
	require.NoError(t, err)

	return db
}

// A scope executed under another scope's context must join the enclosing
// transaction, so a failure in the outer operation also discards everything
// the inner scope wrote.
func TestGormTransactionScopes_NestedExecuteJoinsEnclosingTransaction(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	newBatch := func(t *testing.T) *inventory.StockBatch {
		batch, err := inventory.NewAdjustmentBatch(companyID, uuid.New(), uuid.New())
		require.NoError(t, err)
		batch.Add(decimal.NewFromInt(5))
		return batch
	}

	t.Run("stock written under a failing invoicing scope rolls back", func(t *testing.T) {
		db := setupScopeTestDB(t)
		invoicingScope := NewGormInvoicingTransactionScope(db)
		inventoryScope := NewGormInventoryTransactionScope(db)
		batch := newBatch(t)

		errConfirmRejected := errors.New("confirm rejected")
		err := invoicingScope.Execute(ctx, func(ctx context.Context, _ appinvoicing.TransactionalRepositories) error {
			err := inventoryScope.Execute(ctx, func(ctx context.Context, repos appinventory.TransactionalRepositories) error {
				return repos.BatchRepo().Save(ctx, batch)
			})
			require.NoError(t, err)
			return errConfirmRejected
		})
		assert.ErrorIs(t, err, errConfirmRejected)

		var count int64
		require.NoError(t, db.Model(&stockBatchSQLite{}).Count(&count).Error)
		assert.EqualValues(t, 0, count, "stock mutation must not survive the failed invoice operation")
	})

	t.Run("stock written under a succeeding invoicing scope commits", func(t *testing.T) {
		db := setupScopeTestDB(t)
		invoicingScope := NewGormInvoicingTransactionScope(db)
		inventoryScope := NewGormInventoryTransactionScope(db)
		batch := newBatch(t)

		err := invoicingScope.Execute(ctx, func(ctx context.Context, _ appinvoicing.TransactionalRepositories) error {
			return inventoryScope.Execute(ctx, func(ctx context.Context, repos appinventory.TransactionalRepositories) error {
				return repos.BatchRepo().Save(ctx, batch)
			})
		})
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&stockBatchSQLite{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("ledger records written under a failing settlement scope roll back", func(t *testing.T) {
		db := setupScopeTestDB(t)
		installmentScope := NewGormInstallmentTransactionScope(db)
		ledgerScope := NewGormLedgerTransactionScope(db)

		deposit, err := ledger.NewDepositTransaction(companyID, uuid.New(), uuid.New(), decimal.NewFromInt(100), decimal.Zero)
		require.NoError(t, err)

		errPlanSaveFailed := errors.New("plan save failed")
		err = installmentScope.Execute(ctx, func(ctx context.Context, _ appinstallment.TransactionalRepositories) error {
			err := ledgerScope.Execute(ctx, func(ctx context.Context, repos appledger.TransactionalRepositories) error {
				return repos.TransactionRepo().Create(ctx, deposit)
			})
			require.NoError(t, err)
			return errPlanSaveFailed
		})
		assert.ErrorIs(t, err, errPlanSaveFailed)

		var count int64
		require.NoError(t, db.Model(&transactionSQLite{}).Count(&count).Error)
		assert.EqualValues(t, 0, count, "cash movement must not survive the failed settlement")
	})
}
