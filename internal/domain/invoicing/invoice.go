package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hwmix/backend/internal/domain/shared"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusConfirmed     InvoiceStatus = "CONFIRMED"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusCanceled      InvoiceStatus = "CANCELED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusConfirmed, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid, InvoiceStatusCanceled:
		return true
	}
	return false
}

// String returns the string representation
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are allowed
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCanceled
}

// CanConfirm returns true if the invoice can be confirmed in this status
func (s InvoiceStatus) CanConfirm() bool {
	return s == InvoiceStatusDraft
}

// CanCancel returns true if the invoice can be canceled in this status
func (s InvoiceStatus) CanCancel() bool {
	return s == InvoiceStatusDraft || s == InvoiceStatusConfirmed || s == InvoiceStatusPartiallyPaid
}

// CanReceivePayment returns true if payments may be registered in this status
func (s InvoiceStatus) CanReceivePayment() bool {
	return s == InvoiceStatusConfirmed || s == InvoiceStatusPartiallyPaid
}

// Invoice is the aggregate root for a billing document. Item mutations after
// confirmation must go through the invoice service so stock stays reconciled.
// Invoices are soft-deleted only; cancellation is the logical delete.
type Invoice struct {
	shared.CompanyAggregateRoot
	InvoiceNumber     string
	InvoiceTypeID     uuid.UUID
	TypeCode          string // denormalized for numbering and stock mode checks
	CustomerID        uuid.UUID
	Status            InvoiceStatus
	TotalAmount       decimal.Decimal
	PaidAmount        decimal.Decimal
	InstallmentPlanID *uuid.UUID
	Items             []InvoiceItem `gorm:"foreignKey:InvoiceID;references:ID"`
	IssuedAt          time.Time
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a draft invoice with its items attached.
// The total is the sum of the validated line totals.
func NewInvoice(
	companyID, createdBy, customerID uuid.UUID,
	invoiceType *InvoiceType,
	invoiceNumber string,
	items []InvoiceItem,
) (*Invoice, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if invoiceType == nil {
		return nil, shared.NewDomainError("INVALID_TYPE", "Invoice type is required")
	}
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("INVALID_ITEMS", "Invoice must have at least one item")
	}

	total := decimal.Zero
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return nil, err
		}
		total = total.Add(items[i].Total)
	}

	inv := &Invoice{
		CompanyAggregateRoot: shared.NewCompanyAggregateRootWithCreator(companyID, createdBy),
		InvoiceNumber:        invoiceNumber,
		InvoiceTypeID:        invoiceType.ID,
		TypeCode:             invoiceType.Code,
		CustomerID:           customerID,
		Status:               InvoiceStatusDraft,
		TotalAmount:          total,
		PaidAmount:           decimal.Zero,
		Items:                make([]InvoiceItem, len(items)),
		IssuedAt:             time.Now(),
	}
	copy(inv.Items, items)
	for i := range inv.Items {
		inv.Items[i].InvoiceID = inv.ID
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// Confirm transitions the invoice from draft to confirmed
func (inv *Invoice) Confirm() error {
	if !inv.Status.CanConfirm() {
		return shared.ErrInvalidState
	}
	inv.Status = InvoiceStatusConfirmed
	inv.UpdatedAt = time.Now()
	inv.AddDomainEvent(NewInvoiceConfirmedEvent(inv))
	return nil
}

// Cancel transitions the invoice to canceled. The caller is responsible for
// restoring stock and reversing payments before persisting the transition.
func (inv *Invoice) Cancel() error {
	if !inv.Status.CanCancel() {
		return shared.ErrInvalidState
	}
	inv.Status = InvoiceStatusCanceled
	inv.UpdatedAt = time.Now()
	inv.AddDomainEvent(NewInvoiceCanceledEvent(inv))
	return nil
}

// RegisterPayment records a cumulative payment against the invoice total and
// moves the status to paid or partially_paid accordingly.
func (inv *Invoice) RegisterPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.ErrInvalidAmount
	}
	if !inv.Status.CanReceivePayment() {
		return shared.ErrInvalidState
	}
	newPaid := inv.PaidAmount.Add(amount)
	if newPaid.GreaterThan(inv.TotalAmount) {
		return shared.NewDomainError("OVERPAYMENT", "Payment exceeds the invoice balance")
	}

	inv.PaidAmount = newPaid
	if inv.PaidAmount.Equal(inv.TotalAmount) {
		inv.Status = InvoiceStatusPaid
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	} else {
		inv.Status = InvoiceStatusPartiallyPaid
	}
	inv.UpdatedAt = time.Now()
	return nil
}

// UnregisterPayment rolls a previously registered payment back out of the
// invoice, used when the payment is reversed. The status drops back to
// partially_paid or confirmed.
func (inv *Invoice) UnregisterPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.ErrInvalidAmount
	}
	if inv.Status != InvoiceStatusPaid && inv.Status != InvoiceStatusPartiallyPaid {
		return shared.ErrInvalidState
	}
	newPaid := inv.PaidAmount.Sub(amount)
	if newPaid.IsNegative() {
		return shared.NewDomainError("INVALID_REVERSAL", "Reversal exceeds the paid amount")
	}

	inv.PaidAmount = newPaid
	if newPaid.IsZero() {
		inv.Status = InvoiceStatusConfirmed
	} else {
		inv.Status = InvoiceStatusPartiallyPaid
	}
	inv.UpdatedAt = time.Now()
	return nil
}

// RemainingAmount returns the unpaid balance
func (inv *Invoice) RemainingAmount() decimal.Decimal {
	return inv.TotalAmount.Sub(inv.PaidAmount)
}

// AttachInstallmentPlan links an installment plan to the invoice
func (inv *Invoice) AttachInstallmentPlan(planID uuid.UUID) error {
	if inv.InstallmentPlanID != nil {
		return shared.NewDomainError("PLAN_EXISTS", "Invoice already has an installment plan")
	}
	inv.InstallmentPlanID = &planID
	inv.UpdatedAt = time.Now()
	return nil
}

// StockItems returns the lines that reference stock-carrying variants
func (inv *Invoice) StockItems() []InvoiceItem {
	items := make([]InvoiceItem, 0, len(inv.Items))
	for _, item := range inv.Items {
		if item.MovesStock() {
			items = append(items, item)
		}
	}
	return items
}
