package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hwmix/backend/internal/domain/shared"
)

// TransactionType represents the type of ledger transaction
type TransactionType string

const (
	// TransactionTypeDeposit records a balance increase, including the
	// inflow leg of a transfer.
	TransactionTypeDeposit TransactionType = "DEPOSIT"
	// TransactionTypeWithdraw records a standalone balance decrease.
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
	// TransactionTypeTransfer records the outflow leg of a transfer.
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// IsValid checks if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdraw, TransactionTypeTransfer:
		return true
	}
	return false
}

// String returns the string representation
func (t TransactionType) String() string {
	return string(t)
}

// IsDebit returns true if this type decreases the cash box balance
func (t TransactionType) IsDebit() bool {
	return t == TransactionTypeWithdraw || t == TransactionTypeTransfer
}

// Transaction is an immutable audit record of a single balance mutation.
// Once created it is never updated, except for the ReversedAt stamp set when
// a reversal record undoes it. Deletion is logical via reversal records.
type Transaction struct {
	shared.BaseEntity
	CompanyID     uuid.UUID
	Type          TransactionType
	Amount        decimal.Decimal // always positive, direction determined by Type
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	UserID        uuid.UUID
	CashBoxID     uuid.UUID
	TargetUserID  *uuid.UUID // transfer counterparty
	TargetBoxID   *uuid.UUID // transfer counterparty box
	Description   string
	// OriginalTransactionID links a reversal to the transaction it undoes,
	// and links the two legs of a transfer to each other.
	OriginalTransactionID *uuid.UUID
	ReversedAt            *time.Time
}

// TableName returns the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}

// NewTransaction creates a validated transaction record
func NewTransaction(
	companyID, userID, cashBoxID uuid.UUID,
	txType TransactionType,
	amount, balanceBefore, balanceAfter decimal.Decimal,
) (*Transaction, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if cashBoxID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CASH_BOX", "Cash box ID cannot be empty")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_TYPE", "Invalid transaction type")
	}
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}

	// balance_after must equal balance_before +/- amount consistent with type
	var expected decimal.Decimal
	if txType.IsDebit() {
		expected = balanceBefore.Sub(amount)
	} else {
		expected = balanceBefore.Add(amount)
	}
	if !balanceAfter.Equal(expected) {
		return nil, shared.NewDomainError("INCONSISTENT_BALANCES", "Balance after does not match type and amount")
	}

	return &Transaction{
		BaseEntity:    shared.NewBaseEntity(),
		CompanyID:     companyID,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		UserID:        userID,
		CashBoxID:     cashBoxID,
	}, nil
}

// WithDescription sets the free-form description
func (t *Transaction) WithDescription(description string) *Transaction {
	t.Description = description
	return t
}

// WithTarget sets the transfer counterparty references
func (t *Transaction) WithTarget(targetUserID, targetBoxID uuid.UUID) *Transaction {
	t.TargetUserID = &targetUserID
	t.TargetBoxID = &targetBoxID
	return t
}

// WithOriginal links this record to the transaction it pairs with or undoes
func (t *Transaction) WithOriginal(originalID uuid.UUID) *Transaction {
	t.OriginalTransactionID = &originalID
	return t
}

// IsReversed returns true if a reversal record has already undone this transaction
func (t *Transaction) IsReversed() bool {
	return t.ReversedAt != nil
}

// MarkReversed stamps the transaction as reversed.
// Fails closed when called twice so a reversal can never double-credit.
func (t *Transaction) MarkReversed(at time.Time) error {
	if t.IsReversed() {
		return shared.ErrAlreadyReversed
	}
	t.ReversedAt = &at
	return nil
}

// BalanceChange returns the signed effect of this transaction on its cash box
func (t *Transaction) BalanceChange() decimal.Decimal {
	return t.BalanceAfter.Sub(t.BalanceBefore)
}

// NewDepositTransaction creates a deposit record from the pre-mutation balance
func NewDepositTransaction(companyID, userID, cashBoxID uuid.UUID, amount, balanceBefore decimal.Decimal) (*Transaction, error) {
	return NewTransaction(companyID, userID, cashBoxID, TransactionTypeDeposit, amount, balanceBefore, balanceBefore.Add(amount))
}

// NewWithdrawTransaction creates a withdraw record from the pre-mutation balance
func NewWithdrawTransaction(companyID, userID, cashBoxID uuid.UUID, amount, balanceBefore decimal.Decimal) (*Transaction, error) {
	if balanceBefore.LessThan(amount) {
		return nil, shared.ErrInsufficientFunds
	}
	return NewTransaction(companyID, userID, cashBoxID, TransactionTypeWithdraw, amount, balanceBefore, balanceBefore.Sub(amount))
}

// NewTransferOutTransaction creates the outflow leg of a transfer
func NewTransferOutTransaction(companyID, userID, cashBoxID uuid.UUID, amount, balanceBefore decimal.Decimal) (*Transaction, error) {
	if balanceBefore.LessThan(amount) {
		return nil, shared.ErrInsufficientFunds
	}
	return NewTransaction(companyID, userID, cashBoxID, TransactionTypeTransfer, amount, balanceBefore, balanceBefore.Sub(amount))
}

// NewTransferInTransaction creates the inflow leg of a transfer.
// The inflow leg is recorded as a deposit, mirroring how statements label it.
func NewTransferInTransaction(companyID, userID, cashBoxID uuid.UUID, amount, balanceBefore decimal.Decimal) (*Transaction, error) {
	return NewTransaction(companyID, userID, cashBoxID, TransactionTypeDeposit, amount, balanceBefore, balanceBefore.Add(amount))
}
