package persistence

import (
	"context"

	"gorm.io/gorm"

	appledger "github.com/hwmix/backend/internal/application/ledger"
	"github.com/hwmix/backend/internal/domain/ledger"
)

// GormLedgerTransactionScope implements the ledger TransactionScope using
// GORM transactions, so a balance mutation and its audit record commit or
// roll back together.
type GormLedgerTransactionScope struct {
	db *gorm.DB
}

// NewGormLedgerTransactionScope creates a new GormLedgerTransactionScope
func NewGormLedgerTransactionScope(db *gorm.DB) *GormLedgerTransactionScope {
	return &GormLedgerTransactionScope{db: db}
}

// Execute runs the given function within a database transaction. When ctx
// already carries an open transaction the function joins it, so ledger
// movements triggered from another scope roll back with their trigger.
func (s *GormLedgerTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos appledger.TransactionalRepositories) error) error {
	if tx := txFrom(ctx); tx != nil {
		return fn(ctx, &gormLedgerRepositories{tx: tx})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx), &gormLedgerRepositories{tx: tx})
	})
}

type gormLedgerRepositories struct {
	tx *gorm.DB
}

// CashBoxRepo returns the cash box repository scoped to the current transaction
func (r *gormLedgerRepositories) CashBoxRepo() ledger.CashBoxRepository {
	return NewGormCashBoxRepository(r.tx)
}

// TransactionRepo returns the ledger transaction repository scoped to the current transaction
func (r *gormLedgerRepositories) TransactionRepo() ledger.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

var _ appledger.TransactionScope = (*GormLedgerTransactionScope)(nil)
var _ appledger.TransactionalRepositories = (*gormLedgerRepositories)(nil)
