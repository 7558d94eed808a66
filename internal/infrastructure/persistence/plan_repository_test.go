package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hwmix/backend/internal/domain/installment"
	"github.com/hwmix/backend/internal/domain/shared"
)

// planSQLite is a SQLite-compatible version of the installment_plans table for testing
type planSQLite struct {
	ID          string `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int `gorm:"not null;default:1"`
	CompanyID   string
	CreatedBy   *string
	InvoiceID   string
	CustomerID  string
	TotalAmount string
	DownPayment string
	Status      string
	StartDate   time.Time
}

func (planSQLite) TableName() string {
	return "installment_plans"
}

type installmentSQLite struct {
	ID              string `gorm:"primaryKey"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompanyID       string
	PlanID          string `gorm:"index"`
	Sequence        int
	DueDate         time.Time
	Amount          string
	RemainingAmount string
	Status          string
	PaidAt          *time.Time
}

func (installmentSQLite) TableName() string {
	return "installments"
}

func setupPlanTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&planSQLite{}, &installmentSQLite{})
	require.NoError(t, err)

	return db
}

func newTestPlan(t *testing.T, companyID uuid.UUID, startDate time.Time) *installment.InstallmentPlan {
	plan, err := installment.NewInstallmentPlan(
		companyID, uuid.New(), uuid.New(), uuid.New(),
		decimal.NewFromInt(1000), decimal.NewFromInt(100),
		3, startDate,
	)
	require.NoError(t, err)
	return plan
}

func TestGormPlanRepository_SaveAndFind(t *testing.T) {
	db := setupPlanTestDB(t)
	repo := NewGormPlanRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	t.Run("round-trips a plan with its schedule in sequence order", func(t *testing.T) {
		plan := newTestPlan(t, companyID, time.Now())
		require.NoError(t, repo.Save(ctx, plan))

		found, err := repo.FindByID(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, installment.PlanStatusActive, found.Status)
		assert.True(t, found.TotalAmount.Equal(decimal.NewFromInt(1000)))
		require.Len(t, found.Installments, 3)
		for i, inst := range found.Installments {
			assert.Equal(t, i+1, inst.Sequence)
		}
		assert.True(t, found.RemainingAmount().Equal(decimal.NewFromInt(900)))
	})

	t.Run("finds by invoice", func(t *testing.T) {
		plan := newTestPlan(t, companyID, time.Now())
		require.NoError(t, repo.Save(ctx, plan))

		found, err := repo.FindByInvoice(ctx, companyID, plan.InvoiceID)
		require.NoError(t, err)
		assert.Equal(t, plan.ID, found.ID)

		_, err = repo.FindByInvoice(ctx, companyID, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("persists allocation changes on installments", func(t *testing.T) {
		plan := newTestPlan(t, companyID, time.Now())
		require.NoError(t, repo.Save(ctx, plan))

		require.NoError(t, plan.Installments[0].Allocate(plan.Installments[0].Amount))
		require.NoError(t, repo.Save(ctx, plan))

		found, err := repo.FindByID(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, installment.InstallmentStatusPaid, found.Installments[0].Status)
		assert.True(t, found.Installments[0].RemainingAmount.IsZero())
	})
}

func TestGormPlanRepository_Overdue(t *testing.T) {
	db := setupPlanTestDB(t)
	repo := NewGormPlanRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	// First installment falls due one month after the start date
	overduePlan := newTestPlan(t, companyID, time.Now().AddDate(0, -3, 0))
	currentPlan := newTestPlan(t, companyID, time.Now())
	require.NoError(t, repo.Save(ctx, overduePlan))
	require.NoError(t, repo.Save(ctx, currentPlan))

	t.Run("finds only plans with unsettled past-due installments", func(t *testing.T) {
		found, err := repo.FindWithOverdueInstallments(ctx, companyID, time.Now())
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, overduePlan.ID, found[0].ID)
	})

	t.Run("other companies see nothing", func(t *testing.T) {
		found, err := repo.FindWithOverdueInstallments(ctx, uuid.New(), time.Now())
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestGormPlanRepository_CompaniesWithActivePlans(t *testing.T) {
	db := setupPlanTestDB(t)
	repo := NewGormPlanRepository(db)
	ctx := context.Background()

	activeCompany := uuid.New()
	canceledCompany := uuid.New()

	active := newTestPlan(t, activeCompany, time.Now())
	require.NoError(t, repo.Save(ctx, active))

	canceled := newTestPlan(t, canceledCompany, time.Now())
	require.NoError(t, canceled.Cancel())
	require.NoError(t, repo.Save(ctx, canceled))

	companies, err := repo.CompaniesWithActivePlans(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, activeCompany, companies[0])
}
