package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hwmix/backend/internal/domain/ledger"
	"github.com/hwmix/backend/internal/domain/shared"
)

// GormTransactionRepository implements TransactionRepository using GORM.
// Records are append-only; MarkReversed is the single permitted update.
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Create appends a transaction record
func (r *GormTransactionRepository) Create(ctx context.Context, tx *ledger.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// FindByID finds a transaction by its ID
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	if err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// FindByIDForCompany finds a transaction by ID within a company
func (r *GormTransactionRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// FindByCashBox finds transactions for a cash box, newest first
func (r *GormTransactionRepository) FindByCashBox(ctx context.Context, companyID, cashBoxID uuid.UUID, filter shared.Filter) ([]ledger.Transaction, error) {
	var txs []ledger.Transaction
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&ledger.Transaction{}).
			Where("company_id = ? AND cash_box_id = ?", companyID, cashBoxID),
		filter,
	)

	if err := query.Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// FindAllForCompany finds transactions for a company, newest first
func (r *GormTransactionRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]ledger.Transaction, error) {
	var txs []ledger.Transaction
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&ledger.Transaction{}).
			Where("company_id = ?", companyID),
		filter,
	)

	if err := query.Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// MarkReversed persists the ReversedAt stamp on an existing transaction.
// The WHERE guard on reversed_at keeps a concurrent double-reversal from
// both succeeding.
func (r *GormTransactionRepository) MarkReversed(ctx context.Context, tx *ledger.Transaction) error {
	result := r.db.WithContext(ctx).
		Model(&ledger.Transaction{}).
		Where("id = ? AND reversed_at IS NULL", tx.ID).
		Update("reversed_at", tx.ReversedAt)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrAlreadyReversed
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormTransactionRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
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
		case "type":
			query = query.Where("type = ?", value)
		case "user_id":
			query = query.Where("user_id = ?", value)
		case "reversed":
			if value == true {
				query = query.Where("reversed_at IS NOT NULL")
			} else {
				query = query.Where("reversed_at IS NULL")
			}
		}
	}

	return query
}

// Ensure GormTransactionRepository implements TransactionRepository
var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
