package persistence

import (
	"context"

	"gorm.io/gorm"

	appinstallment "github.com/hwmix/backend/internal/application/installment"
	"github.com/hwmix/backend/internal/domain/installment"
	"github.com/hwmix/backend/internal/domain/invoicing"
)

// GormInstallmentTransactionScope implements the settlement TransactionScope
// using GORM transactions. A settlement touches the plan, the payment and the
// invoice; they commit or roll back as one unit.
type GormInstallmentTransactionScope struct {
	db *gorm.DB
}

// NewGormInstallmentTransactionScope creates a new GormInstallmentTransactionScope
func NewGormInstallmentTransactionScope(db *gorm.DB) *GormInstallmentTransactionScope {
	return &GormInstallmentTransactionScope{db: db}
}

// Execute runs the given function within a database transaction. When ctx
// already carries an open transaction the function joins it, and the ledger
// scope invoked by the settlement service joins the settlement transaction
// the same way through the context it hands to fn.
func (s *GormInstallmentTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos appinstallment.TransactionalRepositories) error) error {
	if tx := txFrom(ctx); tx != nil {
		return fn(ctx, &gormInstallmentRepositories{tx: tx})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx), &gormInstallmentRepositories{tx: tx})
	})
}

type gormInstallmentRepositories struct {
	tx *gorm.DB
}

// PlanRepo returns the installment plan repository scoped to the current transaction
func (r *gormInstallmentRepositories) PlanRepo() installment.PlanRepository {
	return NewGormPlanRepository(r.tx)
}

// PaymentRepo returns the payment repository scoped to the current transaction
func (r *gormInstallmentRepositories) PaymentRepo() installment.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// InvoiceRepo returns the invoice repository scoped to the current transaction
func (r *gormInstallmentRepositories) InvoiceRepo() invoicing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

var _ appinstallment.TransactionScope = (*GormInstallmentTransactionScope)(nil)
var _ appinstallment.TransactionalRepositories = (*gormInstallmentRepositories)(nil)
