package invoicing

import (
	"context"

	"github.com/hwmix/backend/internal/domain/invoicing"
)

// TransactionScope provides transactional access to invoicing repositories.
// Invoice creation allocates its serial inside the same transaction that
// writes the invoice, so a rollback releases the serial's counter row lock.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// The context handed to fn carries the open transaction; scopes invoked
	// under it join the same transaction instead of opening their own.
	Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the invoicing repositories
// bound to the current transaction.
type TransactionalRepositories interface {
	// InvoiceRepo returns the invoice repository scoped to the current transaction
	InvoiceRepo() invoicing.InvoiceRepository
	// TypeRepo returns the invoice type repository scoped to the current transaction
	TypeRepo() invoicing.InvoiceTypeRepository
	// SequenceRepo returns the serial sequence repository scoped to the current transaction
	SequenceRepo() invoicing.SequenceRepository
}

// NoOpTransactionScope runs the function without a real transaction.
type NoOpTransactionScope struct {
	invoiceRepo  invoicing.InvoiceRepository
	typeRepo     invoicing.InvoiceTypeRepository
	sequenceRepo invoicing.SequenceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	invoiceRepo invoicing.InvoiceRepository,
	typeRepo invoicing.InvoiceTypeRepository,
	sequenceRepo invoicing.SequenceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoiceRepo:  invoiceRepo,
		typeRepo:     typeRepo,
		sequenceRepo: sequenceRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error {
	return fn(ctx, s)
}

// InvoiceRepo returns the invoice repository.
func (s *NoOpTransactionScope) InvoiceRepo() invoicing.InvoiceRepository {
	return s.invoiceRepo
}

// TypeRepo returns the invoice type repository.
func (s *NoOpTransactionScope) TypeRepo() invoicing.InvoiceTypeRepository {
	return s.typeRepo
}

// SequenceRepo returns the serial sequence repository.
func (s *NoOpTransactionScope) SequenceRepo() invoicing.SequenceRepository {
	return s.sequenceRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
