package installment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hwmix/backend/internal/domain/shared"
)

// PlanRepository defines the interface for installment plan persistence
type PlanRepository interface {
	// FindByID finds a plan with its installments loaded
	FindByID(ctx context.Context, id uuid.UUID) (*InstallmentPlan, error)

	// FindByIDForUpdate finds a plan and locks it with its installments
	// for the duration of the transaction
	FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*InstallmentPlan, error)

	// FindByInvoice finds the plan attached to an invoice
	FindByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (*InstallmentPlan, error)

	// FindAllForCompany finds plans for a company
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]InstallmentPlan, error)

	// FindWithOverdueInstallments finds plans that have unsettled
	// installments due before the given time
	FindWithOverdueInstallments(ctx context.Context, companyID uuid.UUID, before time.Time) ([]InstallmentPlan, error)

	// Save creates or updates a plan with its installments
	Save(ctx context.Context, plan *InstallmentPlan) error
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment with its details loaded
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByIDForCompany finds a payment by ID within a company
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Payment, error)

	// FindByPayable finds payments against a payable, newest first
	FindByPayable(ctx context.Context, companyID uuid.UUID, payableType PayableType, payableID uuid.UUID) ([]Payment, error)

	// Save creates or updates a payment with its details
	Save(ctx context.Context, payment *Payment) error

	// DeleteDetails removes the installment allocations of a payment
	DeleteDetails(ctx context.Context, paymentID uuid.UUID) error
}
