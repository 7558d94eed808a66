package installment

import (
	"context"

	"github.com/hwmix/backend/internal/domain/installment"
	"github.com/hwmix/backend/internal/domain/invoicing"
)

// TransactionScope provides transactional access to settlement repositories.
// Settlement spans three aggregates: the plan with its installments, the
// payment with its details, and the invoice whose paid amount moves with them.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// The context handed to fn carries the open transaction; scopes invoked
	// under it join the same transaction instead of opening their own, so a
	// settlement's ledger movements ride in the settlement transaction.
	Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the settlement repositories
// bound to the current transaction.
type TransactionalRepositories interface {
	// PlanRepo returns the installment plan repository scoped to the current transaction
	PlanRepo() installment.PlanRepository
	// PaymentRepo returns the payment repository scoped to the current transaction
	PaymentRepo() installment.PaymentRepository
	// InvoiceRepo returns the invoice repository scoped to the current transaction
	InvoiceRepo() invoicing.InvoiceRepository
}

// NoOpTransactionScope runs the function without a real transaction.
type NoOpTransactionScope struct {
	planRepo    installment.PlanRepository
	paymentRepo installment.PaymentRepository
	invoiceRepo invoicing.InvoiceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	planRepo installment.PlanRepository,
	paymentRepo installment.PaymentRepository,
	invoiceRepo invoicing.InvoiceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		planRepo:    planRepo,
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error {
	return fn(ctx, s)
}

// PlanRepo returns the installment plan repository.
func (s *NoOpTransactionScope) PlanRepo() installment.PlanRepository {
	return s.planRepo
}

// PaymentRepo returns the payment repository.
func (s *NoOpTransactionScope) PaymentRepo() installment.PaymentRepository {
	return s.paymentRepo
}

// InvoiceRepo returns the invoice repository.
func (s *NoOpTransactionScope) InvoiceRepo() invoicing.InvoiceRepository {
	return s.invoiceRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
