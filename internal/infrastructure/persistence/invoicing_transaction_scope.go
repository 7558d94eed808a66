package persistence

import (
	"context"

	"gorm.io/gorm"

	appinvoicing "github.com/hwmix/backend/internal/application/invoicing"
	"github.com/hwmix/backend/internal/domain/invoicing"
)

// GormInvoicingTransactionScope implements the invoicing TransactionScope
// using GORM transactions. The serial counter lock taken by NextSerial holds
// until the enclosing transaction finishes, so a failed invoice write
// releases its serial.
type GormInvoicingTransactionScope struct {
	db *gorm.DB
}

// NewGormInvoicingTransactionScope creates a new GormInvoicingTransactionScope
func NewGormInvoicingTransactionScope(db *gorm.DB) *GormInvoicingTransactionScope {
	return &GormInvoicingTransactionScope{db: db}
}

// Execute runs the given function within a database transaction. When ctx
// already carries an open transaction the function joins it instead of
// opening a nested one.
func (s *GormInvoicingTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos appinvoicing.TransactionalRepositories) error) error {
	if tx := txFrom(ctx); tx != nil {
		return fn(ctx, &gormInvoicingRepositories{tx: tx})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx), &gormInvoicingRepositories{tx: tx})
	})
}

type gormInvoicingRepositories struct {
	tx *gorm.DB
}

// InvoiceRepo returns the invoice repository scoped to the current transaction
func (r *gormInvoicingRepositories) InvoiceRepo() invoicing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// TypeRepo returns the invoice type repository scoped to the current transaction
func (r *gormInvoicingRepositories) TypeRepo() invoicing.InvoiceTypeRepository {
	return NewGormInvoiceTypeRepository(r.tx)
}

// SequenceRepo returns the serial sequence repository scoped to the current transaction
func (r *gormInvoicingRepositories) SequenceRepo() invoicing.SequenceRepository {
	return NewGormSequenceRepository(r.tx)
}

var _ appinvoicing.TransactionScope = (*GormInvoicingTransactionScope)(nil)
var _ appinvoicing.TransactionalRepositories = (*gormInvoicingRepositories)(nil)
