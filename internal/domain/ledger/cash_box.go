package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hwmix/backend/internal/domain/shared"
)

// CashBoxMethod represents the payment-method type a cash box holds.
// Transfers only move money between boxes of the same method.
type CashBoxMethod string

const (
	CashBoxMethodCash   CashBoxMethod = "CASH"
	CashBoxMethodBank   CashBoxMethod = "BANK"
	CashBoxMethodWallet CashBoxMethod = "WALLET"
)

// IsValid checks if the method is a valid CashBoxMethod
func (m CashBoxMethod) IsValid() bool {
	switch m {
	case CashBoxMethodCash, CashBoxMethodBank, CashBoxMethodWallet:
		return true
	}
	return false
}

// String returns the string representation
func (m CashBoxMethod) String() string {
	return string(m)
}

// CashBox is the aggregate root for a user-owned money store within a company.
// Its balance is mutated only through Credit/Debit, invoked by the ledger
// service inside a locked database transaction.
type CashBox struct {
	shared.CompanyAggregateRoot
	UserID    uuid.UUID
	Name      string
	Method    CashBoxMethod
	Balance   decimal.Decimal
	IsDefault bool
}

// TableName returns the table name for GORM
func (CashBox) TableName() string {
	return "cash_boxes"
}

// NewCashBox creates a new cash box for a user within a company
func NewCashBox(companyID, userID uuid.UUID, name string, method CashBoxMethod) (*CashBox, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Cash box name cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", "Invalid cash box method")
	}

	return &CashBox{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		UserID:               userID,
		Name:                 name,
		Method:               method,
		Balance:              decimal.Zero,
	}, nil
}

// NewDefaultCashBox creates the default cash box provisioned with a user
func NewDefaultCashBox(companyID, userID uuid.UUID, name string) (*CashBox, error) {
	box, err := NewCashBox(companyID, userID, name, CashBoxMethodCash)
	if err != nil {
		return nil, err
	}
	box.IsDefault = true
	return box, nil
}

// MarkDefault flags this box as the user's default for the company.
// At most one box per (user, company) may be default; the uniqueness is
// enforced by the persistence layer.
func (b *CashBox) MarkDefault() {
	b.IsDefault = true
	b.UpdatedAt = time.Now()
}

// IsOwnedBy returns true if the box belongs to the given user and company
func (b *CashBox) IsOwnedBy(userID, companyID uuid.UUID) bool {
	return b.UserID == userID && b.CompanyID == companyID
}

// CanCover returns true if the balance covers the given amount
func (b *CashBox) CanCover(amount decimal.Decimal) bool {
	return b.Balance.GreaterThanOrEqual(amount)
}

// Credit increases the balance by amount
func (b *CashBox) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.ErrInvalidAmount
	}
	b.Balance = b.Balance.Add(amount)
	b.UpdatedAt = time.Now()
	return nil
}

// Debit decreases the balance by amount.
// Fails with ErrInsufficientFunds rather than allowing a negative balance.
func (b *CashBox) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.ErrInvalidAmount
	}
	if b.Balance.LessThan(amount) {
		return shared.ErrInsufficientFunds
	}
	b.Balance = b.Balance.Sub(amount)
	b.UpdatedAt = time.Now()
	return nil
}
