package installment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hwmix/backend/internal/domain/shared"
)

// InstallmentStatus represents the settlement state of a single installment
type InstallmentStatus string

const (
	InstallmentStatusPending       InstallmentStatus = "PENDING"
	InstallmentStatusPartiallyPaid InstallmentStatus = "PARTIALLY_PAID"
	InstallmentStatusPaid          InstallmentStatus = "PAID"
	InstallmentStatusOverdue       InstallmentStatus = "OVERDUE"
)

// IsValid checks if the status is a valid InstallmentStatus
func (s InstallmentStatus) IsValid() bool {
	switch s {
	case InstallmentStatusPending, InstallmentStatusPartiallyPaid,
		InstallmentStatusPaid, InstallmentStatusOverdue:
		return true
	}
	return false
}

// String returns the string representation
func (s InstallmentStatus) String() string {
	return string(s)
}

// IsSettled returns true when nothing remains to be paid
func (s InstallmentStatus) IsSettled() bool {
	return s == InstallmentStatusPaid
}

// Installment is one scheduled slice of an installment plan.
// RemainingAmount counts down as payments are allocated against it.
type Installment struct {
	shared.BaseEntity
	CompanyID       uuid.UUID
	PlanID          uuid.UUID
	Sequence        int
	DueDate         time.Time
	Amount          decimal.Decimal
	RemainingAmount decimal.Decimal
	Status          InstallmentStatus
	PaidAt          *time.Time
}

// TableName returns the table name for GORM
func (Installment) TableName() string {
	return "installments"
}

// NewInstallment creates a pending installment for a plan
func NewInstallment(companyID, planID uuid.UUID, sequence int, dueDate time.Time, amount decimal.Decimal) (*Installment, error) {
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	if sequence < 1 {
		return nil, shared.NewDomainError("INVALID_SEQUENCE", "Installment sequence must start at 1")
	}
	return &Installment{
		BaseEntity:      shared.NewBaseEntity(),
		CompanyID:       companyID,
		PlanID:          planID,
		Sequence:        sequence,
		DueDate:         dueDate,
		Amount:          amount,
		RemainingAmount: amount,
		Status:          InstallmentStatusPending,
	}, nil
}

// Allocate applies a payment portion to the installment. The portion must not
// exceed the remaining amount; partial portions leave the installment
// partially paid, a full portion settles it.
func (i *Installment) Allocate(portion decimal.Decimal) error {
	if !portion.IsPositive() {
		return shared.ErrInvalidAmount
	}
	if i.Status.IsSettled() {
		return shared.ErrOverAllocation
	}
	if portion.GreaterThan(i.RemainingAmount) {
		return shared.ErrOverAllocation
	}

	i.RemainingAmount = i.RemainingAmount.Sub(portion)
	now := time.Now()
	if i.RemainingAmount.IsZero() {
		i.Status = InstallmentStatusPaid
		i.PaidAt = &now
	} else {
		i.Status = InstallmentStatusPartiallyPaid
	}
	i.UpdatedAt = now
	return nil
}

// Deallocate returns a previously allocated portion, reopening the
// installment. Used when a linked payment is reversed.
func (i *Installment) Deallocate(portion decimal.Decimal) error {
	if !portion.IsPositive() {
		return shared.ErrInvalidAmount
	}
	restored := i.RemainingAmount.Add(portion)
	if restored.GreaterThan(i.Amount) {
		return shared.NewDomainError("INVALID_DEALLOCATION", "Deallocation exceeds the allocated amount")
	}

	i.RemainingAmount = restored
	i.PaidAt = nil
	if restored.Equal(i.Amount) {
		i.Status = InstallmentStatusPending
	} else {
		i.Status = InstallmentStatusPartiallyPaid
	}
	i.UpdatedAt = time.Now()
	return nil
}

// PaidAmount returns how much of the installment has been settled
func (i *Installment) PaidAmount() decimal.Decimal {
	return i.Amount.Sub(i.RemainingAmount)
}

// IsOverdue returns true when the due date has passed with money outstanding
func (i *Installment) IsOverdue(now time.Time) bool {
	return !i.Status.IsSettled() && now.After(i.DueDate)
}

// MarkOverdue flips an unsettled installment past its due date to overdue
func (i *Installment) MarkOverdue(now time.Time) bool {
	if !i.IsOverdue(now) || i.Status == InstallmentStatusOverdue {
		return false
	}
	i.Status = InstallmentStatusOverdue
	i.UpdatedAt = now
	return true
}
