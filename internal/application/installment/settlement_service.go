package installment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appledger "github.com/hwmix/backend/internal/application/ledger"
	"github.com/hwmix/backend/internal/domain/installment"
	"github.com/hwmix/backend/internal/domain/shared"
)

// LedgerGateway is the slice of the ledger service settlement needs.
// Inflows deposit into the collector's cash box, reversals undo them.
type LedgerGateway interface {
	Deposit(ctx context.Context, req appledger.DepositRequest) (*appledger.TransactionResult, error)
	Withdraw(ctx context.Context, req appledger.WithdrawRequest) (*appledger.TransactionResult, error)
	Reverse(ctx context.Context, acting shared.ActingContext, transactionID uuid.UUID) (*appledger.ReverseResult, error)
}

// SettlementService records payments against invoices and installment plans
// and keeps the plan schedule, the invoice paid amount, and the cash ledger
// consistent with each other.
type SettlementService struct {
	scope          TransactionScope
	ledger         LedgerGateway
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(
	scope TransactionScope,
	ledger LedgerGateway,
	eventPublisher shared.EventPublisher,
	logger *zap.Logger,
) *SettlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementService{
		scope:          scope,
		ledger:         ledger,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// CreatePlanRequest represents a request to put an invoice on installments
type CreatePlanRequest struct {
	Acting      shared.ActingContext
	InvoiceID   uuid.UUID
	DownPayment decimal.Decimal
	Count       int
	StartDate   time.Time
	CashBoxID   *uuid.UUID // receives the down payment; nil uses the default box
}

// CreatePlanResult reports the created plan and schedule
type CreatePlanResult struct {
	PlanID            uuid.UUID       `json:"plan_id"`
	FinancedAmount    decimal.Decimal `json:"financed_amount"`
	InstallmentCount  int             `json:"installment_count"`
	DownPaymentTxID   *uuid.UUID      `json:"down_payment_transaction_id,omitempty"`
	DownPaymentAmount decimal.Decimal `json:"down_payment_amount"`
}

// AllocationRequest pins part of a payment to one installment
type AllocationRequest struct {
	InstallmentID uuid.UUID
	Amount        decimal.Decimal
}

// RecordPaymentRequest represents a payment collected against a plan.
// Explicit allocations are applied first; any remainder is spread across the
// open installments in due-date order.
type RecordPaymentRequest struct {
	Acting      shared.ActingContext
	PlanID      uuid.UUID
	Amount      decimal.Decimal
	CashBoxID   *uuid.UUID // nil uses the acting user's default box
	Allocations []AllocationRequest
	Description string
}

// RecordPaymentResult reports the recorded payment
type RecordPaymentResult struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	PlanRemaining decimal.Decimal `json:"plan_remaining"`
	PlanCompleted bool            `json:"plan_completed"`
}

// CreatePlan spreads a confirmed invoice over a monthly schedule. A positive
// down payment is collected immediately into the collector's cash box and
// registered on the invoice.
func (s *SettlementService) CreatePlan(ctx context.Context, req CreatePlanRequest) (*CreatePlanResult, error) {
	if !req.Acting.IsValid() {
		return nil, shared.ErrUnauthorized
	}

	var result *CreatePlanResult
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByIDForCompany(ctx, req.Acting.CompanyID, req.InvoiceID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load invoice: %w", err)
		}
		if inv == nil {
			return shared.ErrNotFound
		}
		if !inv.Status.CanReceivePayment() {
			return shared.ErrInvalidState
		}
		if inv.InstallmentPlanID != nil {
			return shared.NewDomainError("PLAN_EXISTS", "Invoice already has an installment plan")
		}

		plan, err := installment.NewInstallmentPlan(
			req.Acting.CompanyID, req.Acting.UserID, inv.ID, inv.CustomerID,
			inv.TotalAmount, req.DownPayment, req.Count, req.StartDate,
		)
		if err != nil {
			return err
		}

		result = &CreatePlanResult{
			PlanID:            plan.ID,
			FinancedAmount:    plan.FinancedAmount(),
			InstallmentCount:  len(plan.Installments),
			DownPaymentAmount: req.DownPayment,
		}

		if req.DownPayment.IsPositive() {
			ledgerResult, err := s.ledger.Deposit(ctx, appledger.DepositRequest{
				Acting:      req.Acting,
				CashBoxID:   req.CashBoxID,
				Amount:      req.DownPayment,
				Description: fmt.Sprintf("Down payment for invoice %s", inv.InvoiceNumber),
			})
			if err != nil {
				return err
			}

			payment, err := installment.NewPayment(
				req.Acting.CompanyID, req.Acting.UserID,
				installment.PayableTypeInvoice, inv.ID, inv.CustomerID, ledgerResult.CashBoxID,
				installment.PaymentDirectionIn, req.DownPayment,
				"Down payment",
			)
			if err != nil {
				return err
			}
			payment.LinkTransaction(ledgerResult.TransactionID)

			if err := inv.RegisterPayment(req.DownPayment); err != nil {
				return err
			}
			if err := repos.PaymentRepo().Save(ctx, payment); err != nil {
				return fmt.Errorf("failed to save down payment: %w", err)
			}
			result.DownPaymentTxID = &ledgerResult.TransactionID
			events = append(events, payment.GetDomainEvents()...)
		}

		if err := inv.AttachInstallmentPlan(plan.ID); err != nil {
			return err
		}
		if err := repos.PlanRepo().Save(ctx, plan); err != nil {
			return fmt.Errorf("failed to save plan: %w", err)
		}
		if err := repos.InvoiceRepo().Save(ctx, inv); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}

		events = append(events, plan.GetDomainEvents()...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events...)
	return result, nil
}

// RecordPayment collects money against a plan. The deposit, the payment
// record with its installment allocations, the schedule update, and the
// invoice paid amount all move in one transaction.
func (s *SettlementService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	if !req.Acting.IsValid() {
		return nil, shared.ErrUnauthorized
	}
	if !req.Amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}

	var result *RecordPaymentResult
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		plan, err := repos.PlanRepo().FindByIDForUpdate(ctx, req.Acting.CompanyID, req.PlanID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to lock plan: %w", err)
		}
		if plan == nil {
			return shared.ErrNotFound
		}
		if plan.Status == installment.PlanStatusCanceled {
			return shared.ErrInvalidState
		}

		allocations, err := s.resolveAllocations(plan, req.Amount, req.Allocations)
		if err != nil {
			return err
		}

		ledgerResult, err := s.ledger.Deposit(ctx, appledger.DepositRequest{
			Acting:      req.Acting,
			CashBoxID:   req.CashBoxID,
			Amount:      req.Amount,
			Description: req.Description,
		})
		if err != nil {
			return err
		}

		payment, err := installment.NewPayment(
			req.Acting.CompanyID, req.Acting.UserID,
			installment.PayableTypeInstallment, plan.ID, plan.CustomerID, ledgerResult.CashBoxID,
			installment.PaymentDirectionIn, req.Amount,
			req.Description,
		)
		if err != nil {
			return err
		}
		payment.LinkTransaction(ledgerResult.TransactionID)

		details := make([]installment.PaymentDetail, 0, len(allocations))
		for _, alloc := range allocations {
			inst, err := plan.InstallmentByID(alloc.InstallmentID)
			if err != nil {
				return err
			}
			if err := inst.Allocate(alloc.Amount); err != nil {
				return err
			}
			detail, err := installment.NewPaymentDetail(payment.ID, alloc.InstallmentID, alloc.Amount)
			if err != nil {
				return err
			}
			details = append(details, *detail)
		}
		if err := payment.AttachDetails(details); err != nil {
			return err
		}
		plan.Refresh()

		inv, err := repos.InvoiceRepo().FindByIDForCompany(ctx, req.Acting.CompanyID, plan.InvoiceID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load invoice: %w", err)
		}
		if inv != nil {
			if err := inv.RegisterPayment(req.Amount); err != nil {
				return err
			}
			if err := repos.InvoiceRepo().Save(ctx, inv); err != nil {
				return fmt.Errorf("failed to save invoice: %w", err)
			}
		}

		if err := repos.PaymentRepo().Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if err := repos.PlanRepo().Save(ctx, plan); err != nil {
			return fmt.Errorf("failed to save plan: %w", err)
		}

		events = append(events, payment.GetDomainEvents()...)
		events = append(events, plan.GetDomainEvents()...)
		result = &RecordPaymentResult{
			PaymentID:     payment.ID,
			TransactionID: ledgerResult.TransactionID,
			Amount:        req.Amount,
			PlanRemaining: plan.RemainingAmount(),
			PlanCompleted: plan.Status == installment.PlanStatusCompleted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events...)
	return result, nil
}

// DeallocatePayment reopens the installments a payment settled and detaches
// its allocation details. It is the first half of reversing an allocated
// payment; ReversePayment completes it.
func (s *SettlementService) DeallocatePayment(ctx context.Context, acting shared.ActingContext, paymentID uuid.UUID) error {
	if !acting.IsValid() {
		return shared.ErrUnauthorized
	}

	return s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		payment, err := repos.PaymentRepo().FindByIDForCompany(ctx, acting.CompanyID, paymentID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load payment: %w", err)
		}
		if payment == nil {
			return shared.ErrNotFound
		}
		if !payment.HasInstallmentLinks() {
			return nil
		}
		if payment.PayableType != installment.PayableTypeInstallment {
			return shared.ErrInvalidState
		}

		plan, err := repos.PlanRepo().FindByIDForUpdate(ctx, acting.CompanyID, payment.PayableID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to lock plan: %w", err)
		}
		if plan == nil {
			return shared.ErrNotFound
		}

		for _, detail := range payment.Details {
			inst, err := plan.InstallmentByID(detail.InstallmentID)
			if err != nil {
				return err
			}
			if err := inst.Deallocate(detail.Amount); err != nil {
				return err
			}
		}
		plan.Refresh()
		payment.ClearDetails()

		if err := repos.PaymentRepo().DeleteDetails(ctx, payment.ID); err != nil {
			return fmt.Errorf("failed to delete payment details: %w", err)
		}
		if err := repos.PaymentRepo().Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if err := repos.PlanRepo().Save(ctx, plan); err != nil {
			return fmt.Errorf("failed to save plan: %w", err)
		}
		return nil
	})
}

// ReversePayment undoes an unallocated payment: the ledger transaction is
// reversed and the invoice paid amount rolled back. Payments still carrying
// installment allocations fail with PAYMENT_LINKED_TO_INSTALLMENTS.
func (s *SettlementService) ReversePayment(ctx context.Context, acting shared.ActingContext, paymentID uuid.UUID) error {
	if !acting.IsValid() {
		return shared.ErrUnauthorized
	}

	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		payment, err := repos.PaymentRepo().FindByIDForCompany(ctx, acting.CompanyID, paymentID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load payment: %w", err)
		}
		if payment == nil {
			return shared.ErrNotFound
		}

		if err := payment.MarkReversed(time.Now()); err != nil {
			return err
		}

		if payment.TransactionID != nil {
			if _, err := s.ledger.Reverse(ctx, acting, *payment.TransactionID); err != nil {
				return err
			}
		}

		invoiceID := payment.PayableID
		if payment.PayableType == installment.PayableTypeInstallment {
			plan, err := repos.PlanRepo().FindByID(ctx, payment.PayableID)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("failed to load plan: %w", err)
			}
			if plan == nil {
				return shared.ErrNotFound
			}
			invoiceID = plan.InvoiceID
		}

		inv, err := repos.InvoiceRepo().FindByIDForCompany(ctx, acting.CompanyID, invoiceID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load invoice: %w", err)
		}
		if inv != nil {
			if err := inv.UnregisterPayment(payment.Amount); err != nil {
				return err
			}
			if err := repos.InvoiceRepo().Save(ctx, inv); err != nil {
				return fmt.Errorf("failed to save invoice: %w", err)
			}
		}

		if err := repos.PaymentRepo().Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}

		events = append(events, installment.NewPaymentReversedEvent(payment))
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events...)
	return nil
}

// MarkOverdue stamps unsettled installments past their due date across the
// company's plans. Intended to run from a periodic job.
func (s *SettlementService) MarkOverdue(ctx context.Context, acting shared.ActingContext, asOf time.Time) (int, error) {
	if !acting.IsValid() {
		return 0, shared.ErrUnauthorized
	}

	marked := 0
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		plans, err := repos.PlanRepo().FindWithOverdueInstallments(ctx, acting.CompanyID, asOf)
		if err != nil {
			return fmt.Errorf("failed to find overdue plans: %w", err)
		}

		for i := range plans {
			plan := &plans[i]
			changed := false
			for j := range plan.Installments {
				if plan.Installments[j].MarkOverdue(asOf) {
					marked++
					changed = true
				}
			}
			if changed {
				if err := repos.PlanRepo().Save(ctx, plan); err != nil {
					return fmt.Errorf("failed to save plan: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// resolveAllocations validates the explicit allocations and spreads any
// unallocated remainder across the open installments in due-date order.
// The resolved set always sums exactly to amount.
func (s *SettlementService) resolveAllocations(plan *installment.InstallmentPlan, amount decimal.Decimal, explicit []AllocationRequest) ([]AllocationRequest, error) {
	allocated := decimal.Zero
	remainingByID := make(map[uuid.UUID]decimal.Decimal, len(plan.Installments))
	for i := range plan.Installments {
		remainingByID[plan.Installments[i].ID] = plan.Installments[i].RemainingAmount
	}

	resolved := make([]AllocationRequest, 0, len(explicit))
	for _, alloc := range explicit {
		if !alloc.Amount.IsPositive() {
			return nil, shared.ErrInvalidAmount
		}
		remaining, ok := remainingByID[alloc.InstallmentID]
		if !ok {
			return nil, shared.ErrNotFound
		}
		if alloc.Amount.GreaterThan(remaining) {
			return nil, shared.ErrOverAllocation
		}
		allocated = allocated.Add(alloc.Amount)
		if allocated.GreaterThan(amount) {
			return nil, shared.ErrAllocationMismatch
		}
		remainingByID[alloc.InstallmentID] = remaining.Sub(alloc.Amount)
		resolved = append(resolved, alloc)
	}

	remainder := amount.Sub(allocated)
	if remainder.IsZero() {
		return resolved, nil
	}

	open := make([]installment.Installment, 0, len(plan.Installments))
	for i := range plan.Installments {
		if remainingByID[plan.Installments[i].ID].IsPositive() {
			open = append(open, plan.Installments[i])
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].DueDate.Before(open[j].DueDate)
	})

	for i := range open {
		if remainder.IsZero() {
			break
		}
		take := decimal.Min(remainder, remainingByID[open[i].ID])
		resolved = append(resolved, AllocationRequest{InstallmentID: open[i].ID, Amount: take})
		remainder = remainder.Sub(take)
	}
	if !remainder.IsZero() {
		// more money than the schedule has open
		return nil, shared.ErrOverAllocation
	}
	return resolved, nil
}

func (s *SettlementService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish settlement events", zap.Error(err))
	}
}
