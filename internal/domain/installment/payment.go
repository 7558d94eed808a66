package installment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hwmix/backend/internal/domain/shared"
)

// PaymentDirection tells whether money flowed in or out
type PaymentDirection string

const (
	PaymentDirectionIn  PaymentDirection = "IN"
	PaymentDirectionOut PaymentDirection = "OUT"
)

// IsValid checks if the direction is a valid PaymentDirection
func (d PaymentDirection) IsValid() bool {
	return d == PaymentDirectionIn || d == PaymentDirectionOut
}

// String returns the string representation
func (d PaymentDirection) String() string {
	return string(d)
}

// PayableType identifies what a payment settles
type PayableType string

const (
	PayableTypeInvoice     PayableType = "INVOICE"
	PayableTypeInstallment PayableType = "INSTALLMENT_PLAN"
)

// IsValid checks if the type is a valid PayableType
func (t PayableType) IsValid() bool {
	return t == PayableTypeInvoice || t == PayableTypeInstallment
}

// String returns the string representation
func (t PayableType) String() string {
	return string(t)
}

// Payment records money received or returned against a payable. A payment
// linked to installment details must be reversed through the settlement
// service so the schedule is reopened alongside it.
type Payment struct {
	shared.CompanyAggregateRoot
	PayableType   PayableType
	PayableID     uuid.UUID
	CustomerID    uuid.UUID
	Direction     PaymentDirection
	Amount        decimal.Decimal
	CashBoxID     uuid.UUID
	TransactionID *uuid.UUID
	Description   string
	Details       []PaymentDetail `gorm:"foreignKey:PaymentID;references:ID"`
	ReversedAt    *time.Time
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates an inflow or outflow payment against a payable
func NewPayment(
	companyID, createdBy uuid.UUID,
	payableType PayableType,
	payableID, customerID, cashBoxID uuid.UUID,
	direction PaymentDirection,
	amount decimal.Decimal,
	description string,
) (*Payment, error) {
	if !payableType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYABLE", "Unknown payable type")
	}
	if payableID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PAYABLE", "Payable ID cannot be empty")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Unknown payment direction")
	}
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	if cashBoxID == uuid.Nil {
		return nil, shared.ErrCashBoxNotFound
	}

	p := &Payment{
		CompanyAggregateRoot: shared.NewCompanyAggregateRootWithCreator(companyID, createdBy),
		PayableType:          payableType,
		PayableID:            payableID,
		CustomerID:           customerID,
		Direction:            direction,
		Amount:               amount,
		CashBoxID:            cashBoxID,
		Description:          description,
	}
	p.AddDomainEvent(NewPaymentRecordedEvent(p))
	return p, nil
}

// LinkTransaction ties the payment to its ledger transaction
func (p *Payment) LinkTransaction(transactionID uuid.UUID) {
	p.TransactionID = &transactionID
	p.UpdatedAt = time.Now()
}

// AttachDetails records how the payment is split across installments.
// Details must not sum past the payment amount.
func (p *Payment) AttachDetails(details []PaymentDetail) error {
	allocated := p.AllocatedAmount()
	for i := range details {
		allocated = allocated.Add(details[i].Amount)
	}
	if allocated.GreaterThan(p.Amount) {
		return shared.ErrAllocationMismatch
	}
	p.Details = append(p.Details, details...)
	p.UpdatedAt = time.Now()
	return nil
}

// AllocatedAmount sums the installment allocations attached so far
func (p *Payment) AllocatedAmount() decimal.Decimal {
	total := decimal.Zero
	for i := range p.Details {
		total = total.Add(p.Details[i].Amount)
	}
	return total
}

// HasInstallmentLinks returns true if the payment carries allocations
func (p *Payment) HasInstallmentLinks() bool {
	return len(p.Details) > 0
}

// MarkReversed stamps the payment as reversed. Fails if already reversed or
// if installment allocations are still attached.
func (p *Payment) MarkReversed(at time.Time) error {
	if p.ReversedAt != nil {
		return shared.ErrAlreadyReversed
	}
	if p.HasInstallmentLinks() {
		return shared.ErrPaymentLinked
	}
	p.ReversedAt = &at
	p.UpdatedAt = at
	return nil
}

// ClearDetails detaches the installment allocations, used while the
// settlement service deallocates them during a reversal
func (p *Payment) ClearDetails() {
	p.Details = nil
	p.UpdatedAt = time.Now()
}
