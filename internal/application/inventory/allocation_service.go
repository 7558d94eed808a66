package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hwmix/backend/internal/domain/inventory"
	"github.com/hwmix/backend/internal/domain/shared"
)

// AllocationService checks and moves stock for invoice lines. Deductions
// consume a variant's batches oldest first; restores land in the variant's
// dedicated adjustment batch so the original FIFO order is preserved.
type AllocationService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(scope TransactionScope, logger *zap.Logger) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{scope: scope, logger: logger}
}

// LineRequest asks for a quantity of one variant
type LineRequest struct {
	VariantID uuid.UUID
	Quantity  decimal.Decimal
}

// AvailabilityResult reports whether requested quantities can be fulfilled
type AvailabilityResult struct {
	Available bool                          `json:"available"`
	Shortages map[uuid.UUID]Shortage        `json:"shortages,omitempty"`
	Totals    map[uuid.UUID]decimal.Decimal `json:"totals"`
}

// Shortage describes an unfulfillable line
type Shortage struct {
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}

// DeductionResult reports the batches consumed per variant
type DeductionResult struct {
	Lines map[uuid.UUID]*inventory.AllocationResult `json:"lines"`
}

// CheckAvailability verifies that each requested line can be fulfilled from
// the variant's allocatable batches. Unknown variants fail the check.
func (s *AllocationService) CheckAvailability(ctx context.Context, acting shared.ActingContext, lines []LineRequest) (*AvailabilityResult, error) {
	if !acting.IsValid() {
		return nil, shared.ErrUnauthorized
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_LINES", "At least one line is required")
	}

	result := &AvailabilityResult{
		Available: true,
		Shortages: make(map[uuid.UUID]Shortage),
		Totals:    make(map[uuid.UUID]decimal.Decimal),
	}

	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		for _, line := range lines {
			if err := s.ensureVariant(ctx, repos, acting.CompanyID, line.VariantID); err != nil {
				return err
			}
			batches, err := repos.BatchRepo().FindByVariant(ctx, acting.CompanyID, line.VariantID)
			if err != nil {
				return fmt.Errorf("failed to load batches: %w", err)
			}

			available := inventory.AvailableQuantity(batches)
			result.Totals[line.VariantID] = available
			if available.LessThan(line.Quantity) {
				result.Available = false
				result.Shortages[line.VariantID] = Shortage{
					Requested: line.Quantity,
					Available: available,
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Deduct consumes stock for the requested lines, oldest batches first. The
// whole request is atomic: any shortage rolls back every line.
func (s *AllocationService) Deduct(ctx context.Context, acting shared.ActingContext, lines []LineRequest) (*DeductionResult, error) {
	if !acting.IsValid() {
		return nil, shared.ErrUnauthorized
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_LINES", "At least one line is required")
	}

	result := &DeductionResult{Lines: make(map[uuid.UUID]*inventory.AllocationResult, len(lines))}
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		for _, line := range lines {
			if err := s.ensureVariant(ctx, repos, acting.CompanyID, line.VariantID); err != nil {
				return err
			}

			batches, err := repos.BatchRepo().FindByVariantForUpdate(ctx, acting.CompanyID, line.VariantID)
			if err != nil {
				return fmt.Errorf("failed to lock batches: %w", err)
			}

			plan, err := inventory.SelectFIFO(line.Quantity, batches)
			if err != nil {
				return err
			}
			if !plan.FullyFulfilled {
				return shared.ErrInsufficientStock
			}

			touched := make([]*inventory.StockBatch, 0, len(plan.Deductions))
			byID := make(map[uuid.UUID]*inventory.StockBatch, len(batches))
			for i := range batches {
				byID[batches[i].ID] = &batches[i]
			}
			for _, d := range plan.Deductions {
				touched = append(touched, byID[d.BatchID])
			}
			if err := inventory.ApplyDeductions(touched, plan); err != nil {
				return err
			}
			if err := repos.BatchRepo().SaveAll(ctx, touched); err != nil {
				return fmt.Errorf("failed to save batches: %w", err)
			}

			result.Lines[line.VariantID] = plan
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Restore returns previously deducted quantities to stock. Quantities land in
// the variant's adjustment batch in the given warehouse, created on first use.
func (s *AllocationService) Restore(ctx context.Context, acting shared.ActingContext, warehouseID uuid.UUID, lines []LineRequest) error {
	if !acting.IsValid() {
		return shared.ErrUnauthorized
	}
	if len(lines) == 0 {
		return shared.NewDomainError("INVALID_LINES", "At least one line is required")
	}

	return s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		for _, line := range lines {
			if !line.Quantity.IsPositive() {
				return shared.NewDomainError("INVALID_QUANTITY", "Restore quantity must be positive")
			}
			if err := s.ensureVariant(ctx, repos, acting.CompanyID, line.VariantID); err != nil {
				return err
			}

			batch, err := repos.BatchRepo().FindAdjustmentBatchForUpdate(ctx, acting.CompanyID, line.VariantID, warehouseID)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("failed to lock adjustment batch: %w", err)
			}
			if batch == nil {
				batch, err = inventory.NewAdjustmentBatch(acting.CompanyID, line.VariantID, warehouseID)
				if err != nil {
					return err
				}
			}

			batch.Add(line.Quantity)
			if err := repos.BatchRepo().Save(ctx, batch); err != nil {
				return fmt.Errorf("failed to save adjustment batch: %w", err)
			}

			s.logger.Debug("stock restored",
				zap.String("variant_id", line.VariantID.String()),
				zap.String("batch_number", batch.BatchNumber),
				zap.String("quantity", line.Quantity.String()),
			)
		}
		return nil
	})
}

func (s *AllocationService) ensureVariant(ctx context.Context, repos TransactionalRepositories, companyID, variantID uuid.UUID) error {
	exists, err := repos.VariantRepo().Exists(ctx, companyID, variantID)
	if err != nil {
		return fmt.Errorf("failed to check variant: %w", err)
	}
	if !exists {
		return shared.ErrVariantNotFound
	}
	return nil
}
