package invoicing

import (
	"github.com/shopspring/decimal"

	"github.com/hwmix/backend/internal/domain/shared"
)

// Event types for invoicing
const (
	EventTypeInvoiceCreated   = "invoicing.invoice_created"
	EventTypeInvoiceConfirmed = "invoicing.invoice_confirmed"
	EventTypeInvoicePaid      = "invoicing.invoice_paid"
	EventTypeInvoiceCanceled  = "invoicing.invoice_canceled"
)

// InvoiceCreatedEvent is raised when an invoice is created in draft
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, "Invoice", inv.ID, inv.CompanyID),
		InvoiceNumber:   inv.InvoiceNumber,
		TotalAmount:     inv.TotalAmount,
	}
}

// InvoiceConfirmedEvent is raised when an invoice moves to confirmed
type InvoiceConfirmedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
}

// NewInvoiceConfirmedEvent creates a new InvoiceConfirmedEvent
func NewInvoiceConfirmedEvent(inv *Invoice) *InvoiceConfirmedEvent {
	return &InvoiceConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceConfirmed, "Invoice", inv.ID, inv.CompanyID),
		InvoiceNumber:   inv.InvoiceNumber,
	}
}

// InvoicePaidEvent is raised when cumulative payments reach the total
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, "Invoice", inv.ID, inv.CompanyID),
		InvoiceNumber:   inv.InvoiceNumber,
		TotalAmount:     inv.TotalAmount,
	}
}

// InvoiceCanceledEvent is raised when an invoice is canceled
type InvoiceCanceledEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
}

// NewInvoiceCanceledEvent creates a new InvoiceCanceledEvent
func NewInvoiceCanceledEvent(inv *Invoice) *InvoiceCanceledEvent {
	return &InvoiceCanceledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCanceled, "Invoice", inv.ID, inv.CompanyID),
		InvoiceNumber:   inv.InvoiceNumber,
	}
}
