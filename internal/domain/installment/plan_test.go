package installment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwmix/backend/internal/domain/shared"
)

func newTestPlan(t *testing.T, total, down int64, count int) *InstallmentPlan {
	t.Helper()
	plan, err := NewInstallmentPlan(uuid.New(), uuid.New(), uuid.New(), uuid.New(),
		decimal.NewFromInt(total), decimal.NewFromInt(down), count, time.Now())
	require.NoError(t, err)
	return plan
}

func TestNewInstallmentPlan(t *testing.T) {
	t.Run("splits the financed amount evenly", func(t *testing.T) {
		plan := newTestPlan(t, 1200, 200, 4) // finances 1000 over 4

		require.Len(t, plan.Installments, 4)
		for _, inst := range plan.Installments {
			assert.True(t, inst.Amount.Equal(decimal.NewFromInt(250)))
			assert.Equal(t, InstallmentStatusPending, inst.Status)
		}
		assert.True(t, plan.FinancedAmount().Equal(decimal.NewFromInt(1000)))
		assert.True(t, plan.RemainingAmount().Equal(decimal.NewFromInt(1000)))
	})

	t.Run("remainder cents go to the leading installments", func(t *testing.T) {
		plan := newTestPlan(t, 100, 0, 3)

		sum := decimal.Zero
		for _, inst := range plan.Installments {
			sum = sum.Add(inst.Amount)
		}
		assert.True(t, sum.Equal(decimal.NewFromInt(100)), "schedule must sum to the financed amount, got %s", sum)
		assert.True(t, plan.Installments[0].Amount.GreaterThanOrEqual(plan.Installments[2].Amount))
	})

	t.Run("due dates advance monthly", func(t *testing.T) {
		start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
		plan, err := NewInstallmentPlan(uuid.New(), uuid.New(), uuid.New(), uuid.New(),
			decimal.NewFromInt(300), decimal.Zero, 3, start)
		require.NoError(t, err)

		assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), plan.Installments[0].DueDate)
		assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), plan.Installments[1].DueDate)
		assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), plan.Installments[2].DueDate)
	})

	t.Run("rejects down payment at or above the total", func(t *testing.T) {
		_, err := NewInstallmentPlan(uuid.New(), uuid.New(), uuid.New(), uuid.New(),
			decimal.NewFromInt(100), decimal.NewFromInt(100), 2, time.Now())
		assert.Error(t, err)
	})

	t.Run("rejects zero installment count", func(t *testing.T) {
		_, err := NewInstallmentPlan(uuid.New(), uuid.New(), uuid.New(), uuid.New(),
			decimal.NewFromInt(100), decimal.Zero, 0, time.Now())
		assert.Error(t, err)
	})
}

func TestInstallmentAllocate(t *testing.T) {
	newInst := func(t *testing.T, amount int64) *Installment {
		inst, err := NewInstallment(uuid.New(), uuid.New(), 1, time.Now().AddDate(0, 1, 0), decimal.NewFromInt(amount))
		require.NoError(t, err)
		return inst
	}

	t.Run("partial allocation leaves partially paid", func(t *testing.T) {
		inst := newInst(t, 100)
		require.NoError(t, inst.Allocate(decimal.NewFromInt(40)))
		assert.Equal(t, InstallmentStatusPartiallyPaid, inst.Status)
		assert.True(t, inst.RemainingAmount.Equal(decimal.NewFromInt(60)))
		assert.True(t, inst.PaidAmount().Equal(decimal.NewFromInt(40)))
	})

	t.Run("full allocation settles", func(t *testing.T) {
		inst := newInst(t, 100)
		require.NoError(t, inst.Allocate(decimal.NewFromInt(100)))
		assert.Equal(t, InstallmentStatusPaid, inst.Status)
		assert.NotNil(t, inst.PaidAt)
	})

	t.Run("allocation past the remainder fails", func(t *testing.T) {
		inst := newInst(t, 100)
		require.NoError(t, inst.Allocate(decimal.NewFromInt(60)))
		err := inst.Allocate(decimal.NewFromInt(50))
		assert.ErrorIs(t, err, shared.ErrOverAllocation)
		assert.True(t, inst.RemainingAmount.Equal(decimal.NewFromInt(40)))
	})

	t.Run("settled installments reject further allocation", func(t *testing.T) {
		inst := newInst(t, 100)
		require.NoError(t, inst.Allocate(decimal.NewFromInt(100)))
		assert.ErrorIs(t, inst.Allocate(decimal.NewFromInt(1)), shared.ErrOverAllocation)
	})

	t.Run("deallocate reopens the installment", func(t *testing.T) {
		inst := newInst(t, 100)
		require.NoError(t, inst.Allocate(decimal.NewFromInt(100)))
		require.NoError(t, inst.Deallocate(decimal.NewFromInt(100)))
		assert.Equal(t, InstallmentStatusPending, inst.Status)
		assert.Nil(t, inst.PaidAt)
		assert.True(t, inst.RemainingAmount.Equal(decimal.NewFromInt(100)))
	})

	t.Run("deallocate past the allocated amount fails", func(t *testing.T) {
		inst := newInst(t, 100)
		require.NoError(t, inst.Allocate(decimal.NewFromInt(30)))
		assert.Error(t, inst.Deallocate(decimal.NewFromInt(40)))
	})
}

func TestInstallmentOverdue(t *testing.T) {
	t.Run("unsettled past due is overdue", func(t *testing.T) {
		inst, err := NewInstallment(uuid.New(), uuid.New(), 1, time.Now().AddDate(0, 0, -1), decimal.NewFromInt(50))
		require.NoError(t, err)

		assert.True(t, inst.IsOverdue(time.Now()))
		assert.True(t, inst.MarkOverdue(time.Now()))
		assert.Equal(t, InstallmentStatusOverdue, inst.Status)
		assert.False(t, inst.MarkOverdue(time.Now()), "marking twice is a no-op")
	})

	t.Run("settled installments never go overdue", func(t *testing.T) {
		inst, err := NewInstallment(uuid.New(), uuid.New(), 1, time.Now().AddDate(0, 0, -1), decimal.NewFromInt(50))
		require.NoError(t, err)
		require.NoError(t, inst.Allocate(decimal.NewFromInt(50)))
		assert.False(t, inst.IsOverdue(time.Now()))
	})

	t.Run("paying an overdue installment clears the flag", func(t *testing.T) {
		inst, err := NewInstallment(uuid.New(), uuid.New(), 1, time.Now().AddDate(0, 0, -1), decimal.NewFromInt(50))
		require.NoError(t, err)
		require.True(t, inst.MarkOverdue(time.Now()))
		require.NoError(t, inst.Allocate(decimal.NewFromInt(50)))
		assert.Equal(t, InstallmentStatusPaid, inst.Status)
	})
}

func TestPlanRefresh(t *testing.T) {
	t.Run("completes when every installment settles", func(t *testing.T) {
		plan := newTestPlan(t, 300, 0, 3)
		for i := range plan.Installments {
			require.NoError(t, plan.Installments[i].Allocate(plan.Installments[i].Amount))
		}
		plan.Refresh()
		assert.Equal(t, PlanStatusCompleted, plan.Status)
	})

	t.Run("reopens when a payment is deallocated", func(t *testing.T) {
		plan := newTestPlan(t, 200, 0, 2)
		for i := range plan.Installments {
			require.NoError(t, plan.Installments[i].Allocate(plan.Installments[i].Amount))
		}
		plan.Refresh()
		require.Equal(t, PlanStatusCompleted, plan.Status)

		require.NoError(t, plan.Installments[1].Deallocate(plan.Installments[1].Amount))
		plan.Refresh()
		assert.Equal(t, PlanStatusActive, plan.Status)
	})
}

func TestPlanCancel(t *testing.T) {
	t.Run("untouched plan cancels", func(t *testing.T) {
		plan := newTestPlan(t, 300, 0, 3)
		require.NoError(t, plan.Cancel())
		assert.Equal(t, PlanStatusCanceled, plan.Status)
	})

	t.Run("plan with settled money cannot cancel", func(t *testing.T) {
		plan := newTestPlan(t, 300, 0, 3)
		require.NoError(t, plan.Installments[0].Allocate(decimal.NewFromInt(10)))
		assert.Error(t, plan.Cancel())
	})
}
