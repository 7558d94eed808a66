package installment

import (
	"github.com/shopspring/decimal"

	"github.com/hwmix/backend/internal/domain/shared"
)

// Event types for installment settlement
const (
	EventTypePlanCreated     = "installment.plan_created"
	EventTypePlanCompleted   = "installment.plan_completed"
	EventTypePaymentRecorded = "installment.payment_recorded"
	EventTypePaymentReversed = "installment.payment_reversed"
)

// PlanCreatedEvent is raised when an installment plan is created
type PlanCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID   string          `json:"invoice_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	DownPayment decimal.Decimal `json:"down_payment"`
	Count       int             `json:"count"`
}

// NewPlanCreatedEvent creates a new PlanCreatedEvent
func NewPlanCreatedEvent(p *InstallmentPlan) *PlanCreatedEvent {
	return &PlanCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePlanCreated, "InstallmentPlan", p.ID, p.CompanyID),
		InvoiceID:       p.InvoiceID.String(),
		TotalAmount:     p.TotalAmount,
		DownPayment:     p.DownPayment,
		Count:           len(p.Installments),
	}
}

// PlanCompletedEvent is raised when every installment is settled
type PlanCompletedEvent struct {
	shared.BaseDomainEvent
	InvoiceID string `json:"invoice_id"`
}

// NewPlanCompletedEvent creates a new PlanCompletedEvent
func NewPlanCompletedEvent(p *InstallmentPlan) *PlanCompletedEvent {
	return &PlanCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePlanCompleted, "InstallmentPlan", p.ID, p.CompanyID),
		InvoiceID:       p.InvoiceID.String(),
	}
}

// PaymentRecordedEvent is raised when a payment is created
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PayableType string          `json:"payable_type"`
	PayableID   string          `json:"payable_id"`
	Direction   string          `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, "Payment", p.ID, p.CompanyID),
		PayableType:     p.PayableType.String(),
		PayableID:       p.PayableID.String(),
		Direction:       p.Direction.String(),
		Amount:          p.Amount,
	}
}

// PaymentReversedEvent is raised when a payment is reversed
type PaymentReversedEvent struct {
	shared.BaseDomainEvent
	PayableID string          `json:"payable_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// NewPaymentReversedEvent creates a new PaymentReversedEvent
func NewPaymentReversedEvent(p *Payment) *PaymentReversedEvent {
	return &PaymentReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReversed, "Payment", p.ID, p.CompanyID),
		PayableID:       p.PayableID.String(),
		Amount:          p.Amount,
	}
}
