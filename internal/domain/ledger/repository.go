package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/hwmix/backend/internal/domain/shared"
)

// CashBoxRepository defines the interface for cash box persistence
type CashBoxRepository interface {
	// FindByID finds a cash box by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*CashBox, error)

	// FindByIDForCompany finds a cash box by ID within a company
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*CashBox, error)

	// FindByIDForUpdate finds a cash box by ID with a row-level write lock.
	// Must be called inside a transaction scope.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*CashBox, error)

	// FindDefaultForUser finds the user's default cash box for a company
	FindDefaultForUser(ctx context.Context, companyID, userID uuid.UUID) (*CashBox, error)

	// FindDefaultForUserForUpdate locks and returns the user's default box
	FindDefaultForUserForUpdate(ctx context.Context, companyID, userID uuid.UUID) (*CashBox, error)

	// FindByUserAndMethodForUpdate locks and returns a box owned by the user
	// within the company matching the given payment method. Used to resolve
	// transfer destinations.
	FindByUserAndMethodForUpdate(ctx context.Context, companyID, userID uuid.UUID, method CashBoxMethod) (*CashBox, error)

	// FindAllForUser finds all cash boxes owned by a user within a company
	FindAllForUser(ctx context.Context, companyID, userID uuid.UUID, filter shared.Filter) ([]CashBox, error)

	// Save creates or updates a cash box
	Save(ctx context.Context, box *CashBox) error
}

// TransactionRepository defines the interface for ledger transaction persistence.
// Transactions are append-only; the only permitted update is the ReversedAt stamp.
type TransactionRepository interface {
	// Create appends a transaction record
	Create(ctx context.Context, tx *Transaction) error

	// FindByID finds a transaction by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindByIDForCompany finds a transaction by ID within a company
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Transaction, error)

	// FindByCashBox finds transactions for a cash box, newest first
	FindByCashBox(ctx context.Context, companyID, cashBoxID uuid.UUID, filter shared.Filter) ([]Transaction, error)

	// FindAllForCompany finds transactions for a company, newest first
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]Transaction, error)

	// MarkReversed persists the ReversedAt stamp on an existing transaction
	MarkReversed(ctx context.Context, tx *Transaction) error
}
