package inventory

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hwmix/backend/internal/domain/shared"
)

// BatchDeduction records how much one allocation took from a single batch
type BatchDeduction struct {
	BatchID     uuid.UUID
	BatchNumber string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	TotalCost   decimal.Decimal
}

// AllocationResult is the outcome of selecting batches for a requested quantity
type AllocationResult struct {
	Deductions     []BatchDeduction
	TotalDeducted  decimal.Decimal
	TotalCost      decimal.Decimal
	Remaining      decimal.Decimal // quantity that could not be fulfilled
	FullyFulfilled bool
}

// AvailableQuantity sums the quantity across allocatable batches
func AvailableQuantity(batches []StockBatch) decimal.Decimal {
	total := decimal.Zero
	for i := range batches {
		if batches[i].IsAvailable() {
			total = total.Add(batches[i].Quantity)
		}
	}
	return total
}

// SelectFIFO plans deductions across the variant's batches, oldest created
// first. It never plans a deduction that would drive a batch negative; when
// the available total is short the plan is partial and Remaining is positive.
func SelectFIFO(requested decimal.Decimal, batches []StockBatch) (*AllocationResult, error) {
	if !requested.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
	}

	available := make([]StockBatch, 0, len(batches))
	for i := range batches {
		if batches[i].IsAvailable() && batches[i].HasStock() {
			available = append(available, batches[i])
		}
	}
	sort.Slice(available, func(i, j int) bool {
		return available[i].CreatedAt.Before(available[j].CreatedAt)
	})

	result := &AllocationResult{
		Deductions:    make([]BatchDeduction, 0, len(available)),
		TotalDeducted: decimal.Zero,
		TotalCost:     decimal.Zero,
		Remaining:     requested,
	}

	for i := range available {
		if result.Remaining.IsZero() {
			break
		}
		batch := &available[i]

		take := decimal.Min(result.Remaining, batch.Quantity)
		cost := take.Mul(batch.UnitCost)

		result.Deductions = append(result.Deductions, BatchDeduction{
			BatchID:     batch.ID,
			BatchNumber: batch.BatchNumber,
			Quantity:    take,
			UnitCost:    batch.UnitCost,
			TotalCost:   cost,
		})
		result.TotalDeducted = result.TotalDeducted.Add(take)
		result.TotalCost = result.TotalCost.Add(cost)
		result.Remaining = result.Remaining.Sub(take)
	}

	result.FullyFulfilled = result.Remaining.IsZero()
	return result, nil
}

// ApplyDeductions executes a planned allocation against the batch entities
func ApplyDeductions(batches []*StockBatch, result *AllocationResult) error {
	if result == nil {
		return shared.NewDomainError("INVALID_RESULT", "Allocation result cannot be nil")
	}

	batchMap := make(map[uuid.UUID]*StockBatch, len(batches))
	for _, batch := range batches {
		batchMap[batch.ID] = batch
	}

	for _, deduction := range result.Deductions {
		batch, exists := batchMap[deduction.BatchID]
		if !exists {
			return shared.NewDomainError("BATCH_NOT_FOUND", "Batch not found: "+deduction.BatchID.String())
		}
		actual := batch.Deduct(deduction.Quantity)
		if !actual.Equal(deduction.Quantity) {
			return shared.NewDomainError("DEDUCTION_MISMATCH", "Batch quantity changed since allocation was planned")
		}
	}
	return nil
}

// WeightedAverageCost returns the per-unit cost of a completed allocation
func (r *AllocationResult) WeightedAverageCost() decimal.Decimal {
	if !r.TotalDeducted.IsPositive() {
		return decimal.Zero
	}
	return r.TotalCost.Div(r.TotalDeducted).Round(4)
}
