package ledger

import (
	"context"

	"github.com/hwmix/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to ledger repositories.
// All repository operations performed inside Execute share one database
// transaction and commit or roll back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// The context handed to fn carries the open transaction; scopes invoked
	// under it join the same transaction instead of opening their own.
	Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories
// bound to the current transaction. Balance mutations must load cash boxes
// through the ForUpdate finders so concurrent movements serialize.
type TransactionalRepositories interface {
	// CashBoxRepo returns the cash box repository scoped to the current transaction
	CashBoxRepo() ledger.CashBoxRepository
	// TransactionRepo returns the ledger transaction repository scoped to the current transaction
	TransactionRepo() ledger.TransactionRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Useful for tests and for repositories that manage their own atomicity.
type NoOpTransactionScope struct {
	cashBoxRepo     ledger.CashBoxRepository
	transactionRepo ledger.TransactionRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	cashBoxRepo ledger.CashBoxRepository,
	transactionRepo ledger.TransactionRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		cashBoxRepo:     cashBoxRepo,
		transactionRepo: transactionRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error {
	return fn(ctx, s)
}

// CashBoxRepo returns the cash box repository.
func (s *NoOpTransactionScope) CashBoxRepo() ledger.CashBoxRepository {
	return s.cashBoxRepo
}

// TransactionRepo returns the ledger transaction repository.
func (s *NoOpTransactionScope) TransactionRepo() ledger.TransactionRepository {
	return s.transactionRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
