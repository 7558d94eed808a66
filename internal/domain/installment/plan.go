package installment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hwmix/backend/internal/domain/shared"
	"github.com/hwmix/backend/internal/domain/shared/valueobject"
)

// PlanStatus represents the lifecycle state of an installment plan
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "ACTIVE"
	PlanStatusCompleted PlanStatus = "COMPLETED"
	PlanStatusCanceled  PlanStatus = "CANCELED"
)

// IsValid checks if the status is a valid PlanStatus
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusActive, PlanStatusCompleted, PlanStatusCanceled:
		return true
	}
	return false
}

// String returns the string representation
func (s PlanStatus) String() string {
	return string(s)
}

// InstallmentPlan spreads an invoice balance over a fixed monthly schedule.
// The down payment is settled immediately; the remainder is split across the
// installments so the schedule always sums to the financed amount exactly.
type InstallmentPlan struct {
	shared.CompanyAggregateRoot
	InvoiceID    uuid.UUID
	CustomerID   uuid.UUID
	TotalAmount  decimal.Decimal
	DownPayment  decimal.Decimal
	Status       PlanStatus
	Installments []Installment `gorm:"foreignKey:PlanID;references:ID"`
	StartDate    time.Time
}

// TableName returns the table name for GORM
func (InstallmentPlan) TableName() string {
	return "installment_plans"
}

// NewInstallmentPlan creates an active plan with its schedule generated.
// count is the number of installments; due dates fall monthly from startDate.
func NewInstallmentPlan(
	companyID, createdBy, invoiceID, customerID uuid.UUID,
	totalAmount, downPayment decimal.Decimal,
	count int,
	startDate time.Time,
) (*InstallmentPlan, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if !totalAmount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	if downPayment.IsNegative() {
		return nil, shared.ErrInvalidAmount
	}
	if downPayment.GreaterThanOrEqual(totalAmount) {
		return nil, shared.NewDomainError("INVALID_DOWN_PAYMENT", "Down payment must be less than the total amount")
	}
	if count < 1 {
		return nil, shared.NewDomainError("INVALID_COUNT", "Plan must have at least one installment")
	}

	plan := &InstallmentPlan{
		CompanyAggregateRoot: shared.NewCompanyAggregateRootWithCreator(companyID, createdBy),
		InvoiceID:            invoiceID,
		CustomerID:           customerID,
		TotalAmount:          totalAmount,
		DownPayment:          downPayment,
		Status:               PlanStatusActive,
		StartDate:            startDate,
	}

	financed := valueobject.NewMoneyEGP(totalAmount.Sub(downPayment))
	parts, err := financed.Allocate(count)
	if err != nil {
		return nil, err
	}

	plan.Installments = make([]Installment, 0, count)
	for idx, part := range parts {
		inst, err := NewInstallment(companyID, plan.ID, idx+1, startDate.AddDate(0, idx+1, 0), part.Amount())
		if err != nil {
			return nil, err
		}
		plan.Installments = append(plan.Installments, *inst)
	}

	plan.AddDomainEvent(NewPlanCreatedEvent(plan))
	return plan, nil
}

// FinancedAmount returns the portion covered by the schedule
func (p *InstallmentPlan) FinancedAmount() decimal.Decimal {
	return p.TotalAmount.Sub(p.DownPayment)
}

// RemainingAmount sums the unsettled remainders across the schedule
func (p *InstallmentPlan) RemainingAmount() decimal.Decimal {
	remaining := decimal.Zero
	for i := range p.Installments {
		remaining = remaining.Add(p.Installments[i].RemainingAmount)
	}
	return remaining
}

// Refresh recomputes the plan status from its installments
func (p *InstallmentPlan) Refresh() {
	if p.Status == PlanStatusCanceled {
		return
	}
	if p.RemainingAmount().IsZero() {
		if p.Status != PlanStatusCompleted {
			p.Status = PlanStatusCompleted
			p.UpdatedAt = time.Now()
			p.AddDomainEvent(NewPlanCompletedEvent(p))
		}
		return
	}
	if p.Status != PlanStatusActive {
		p.Status = PlanStatusActive
		p.UpdatedAt = time.Now()
	}
}

// Cancel voids the plan. Only plans with no settled installments can be
// canceled; settled money must be reversed through payments first.
func (p *InstallmentPlan) Cancel() error {
	if p.Status == PlanStatusCanceled {
		return shared.ErrInvalidState
	}
	for i := range p.Installments {
		if p.Installments[i].PaidAmount().IsPositive() {
			return shared.NewDomainError("PLAN_HAS_PAYMENTS", "Plan has settled installments and cannot be canceled")
		}
	}
	p.Status = PlanStatusCanceled
	p.UpdatedAt = time.Now()
	return nil
}

// InstallmentByID finds a schedule entry by its ID
func (p *InstallmentPlan) InstallmentByID(id uuid.UUID) (*Installment, error) {
	for i := range p.Installments {
		if p.Installments[i].ID == id {
			return &p.Installments[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

// OverdueInstallments returns the schedule entries past due with money outstanding
func (p *InstallmentPlan) OverdueInstallments(now time.Time) []Installment {
	overdue := make([]Installment, 0)
	for i := range p.Installments {
		if p.Installments[i].IsOverdue(now) {
			overdue = append(overdue, p.Installments[i])
		}
	}
	return overdue
}
