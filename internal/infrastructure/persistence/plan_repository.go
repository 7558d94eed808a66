package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hwmix/backend/internal/domain/installment"
	"github.com/hwmix/backend/internal/domain/shared"
)

// GormPlanRepository implements PlanRepository using GORM
type GormPlanRepository struct {
	db *gorm.DB
}

// NewGormPlanRepository creates a new GormPlanRepository
func NewGormPlanRepository(db *gorm.DB) *GormPlanRepository {
	return &GormPlanRepository{db: db}
}

// FindByID finds a plan with its installments loaded
func (r *GormPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*installment.InstallmentPlan, error) {
	var plan installment.InstallmentPlan
	if err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		First(&plan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// FindByIDForUpdate locks a plan row and loads its installments.
// Locking the plan row serializes concurrent settlements against the
// same schedule; the installments ride inside the same transaction.
func (r *GormPlanRepository) FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*installment.InstallmentPlan, error) {
	var plan installment.InstallmentPlan
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Where("plan_id = ?", plan.ID).
		Order("sequence ASC").
		Find(&plan.Installments).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// FindByInvoice finds the plan attached to an invoice
func (r *GormPlanRepository) FindByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (*installment.InstallmentPlan, error) {
	var plan installment.InstallmentPlan
	if err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("company_id = ? AND invoice_id = ?", companyID, invoiceID).
		First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// FindAllForCompany finds plans for a company
func (r *GormPlanRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]installment.InstallmentPlan, error) {
	var plans []installment.InstallmentPlan
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&installment.InstallmentPlan{}).
			Preload("Installments", func(db *gorm.DB) *gorm.DB {
				return db.Order("sequence ASC")
			}).
			Where("company_id = ?", companyID),
		filter,
	)

	if err := query.Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// FindWithOverdueInstallments finds active plans that have unsettled
// installments due before the given time
func (r *GormPlanRepository) FindWithOverdueInstallments(ctx context.Context, companyID uuid.UUID, before time.Time) ([]installment.InstallmentPlan, error) {
	var plans []installment.InstallmentPlan
	if err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("company_id = ? AND status = ?", companyID, installment.PlanStatusActive).
		Where("id IN (?)", r.db.Model(&installment.Installment{}).
			Select("plan_id").
			Where("due_date < ? AND status IN ?", before,
				[]string{
					installment.InstallmentStatusPending.String(),
					installment.InstallmentStatusPartiallyPaid.String(),
				})).
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// Save creates or updates a plan with its installments
func (r *GormPlanRepository) Save(ctx context.Context, plan *installment.InstallmentPlan) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(plan).Error; err != nil {
			return err
		}

		for i := range plan.Installments {
			plan.Installments[i].PlanID = plan.ID
			if err := tx.Save(&plan.Installments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CompaniesWithActivePlans lists the companies that currently hold active
// installment plans. Used by the overdue sweep scheduler.
func (r *GormPlanRepository) CompaniesWithActivePlans(ctx context.Context) ([]uuid.UUID, error) {
	var companyIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&installment.InstallmentPlan{}).
		Where("status = ?", installment.PlanStatusActive).
		Distinct("company_id").
		Pluck("company_id", &companyIDs).Error; err != nil {
		return nil, err
	}
	return companyIDs, nil
}

// applyFilter applies filter options to the query
func (r *GormPlanRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		}
	}

	return query
}

// Ensure GormPlanRepository implements PlanRepository
var _ installment.PlanRepository = (*GormPlanRepository)(nil)
