package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hwmix/backend/internal/domain/ledger"
	"github.com/hwmix/backend/internal/domain/shared"
)

// GormCashBoxRepository implements CashBoxRepository using GORM
type GormCashBoxRepository struct {
	db *gorm.DB
}

// NewGormCashBoxRepository creates a new GormCashBoxRepository
func NewGormCashBoxRepository(db *gorm.DB) *GormCashBoxRepository {
	return &GormCashBoxRepository{db: db}
}

// FindByID finds a cash box by its ID
func (r *GormCashBoxRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.CashBox, error) {
	var box ledger.CashBox
	if err := r.db.WithContext(ctx).First(&box, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &box, nil
}

// FindByIDForCompany finds a cash box by ID within a company
func (r *GormCashBoxRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*ledger.CashBox, error) {
	var box ledger.CashBox
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&box).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &box, nil
}

// FindByIDForUpdate locks and returns a cash box by ID.
// Must run inside a transaction scope.
func (r *GormCashBoxRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.CashBox, error) {
	var box ledger.CashBox
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&box, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &box, nil
}

// FindDefaultForUser finds the user's default cash box for a company
func (r *GormCashBoxRepository) FindDefaultForUser(ctx context.Context, companyID, userID uuid.UUID) (*ledger.CashBox, error) {
	var box ledger.CashBox
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ? AND is_default = ?", companyID, userID, true).
		First(&box).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &box, nil
}

// FindDefaultForUserForUpdate locks and returns the user's default box
func (r *GormCashBoxRepository) FindDefaultForUserForUpdate(ctx context.Context, companyID, userID uuid.UUID) (*ledger.CashBox, error) {
	var box ledger.CashBox
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND user_id = ? AND is_default = ?", companyID, userID, true).
		First(&box).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &box, nil
}

// FindByUserAndMethodForUpdate locks and returns a box owned by the user
// within the company matching the given payment method. Prefers the default
// box when the user holds several of the same method.
func (r *GormCashBoxRepository) FindByUserAndMethodForUpdate(ctx context.Context, companyID, userID uuid.UUID, method ledger.CashBoxMethod) (*ledger.CashBox, error) {
	var box ledger.CashBox
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND user_id = ? AND method = ?", companyID, userID, method).
		Order("is_default DESC, created_at ASC").
		First(&box).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &box, nil
}

// FindAllForUser finds all cash boxes owned by a user within a company
func (r *GormCashBoxRepository) FindAllForUser(ctx context.Context, companyID, userID uuid.UUID, filter shared.Filter) ([]ledger.CashBox, error) {
	var boxes []ledger.CashBox
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&ledger.CashBox{}).
			Where("company_id = ? AND user_id = ?", companyID, userID),
		filter,
	)

	if err := query.Find(&boxes).Error; err != nil {
		return nil, err
	}
	return boxes, nil
}

// Save creates or updates a cash box
func (r *GormCashBoxRepository) Save(ctx context.Context, box *ledger.CashBox) error {
	return r.db.WithContext(ctx).Save(box).Error
}

// applyFilter applies filter options to the query
func (r *GormCashBoxRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
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
		query = query.Order("created_at ASC")
	}

	for key, value := range filter.Filters {
		switch key {
		case "method":
			query = query.Where("method = ?", value)
		case "is_default":
			query = query.Where("is_default = ?", value)
		}
	}

	return query
}

// Ensure GormCashBoxRepository implements CashBoxRepository
var _ ledger.CashBoxRepository = (*GormCashBoxRepository)(nil)
