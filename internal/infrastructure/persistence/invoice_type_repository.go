package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hwmix/backend/internal/domain/invoicing"
	"github.com/hwmix/backend/internal/domain/shared"
)

// GormInvoiceTypeRepository implements InvoiceTypeRepository using GORM
type GormInvoiceTypeRepository struct {
	db *gorm.DB
}

// NewGormInvoiceTypeRepository creates a new GormInvoiceTypeRepository
func NewGormInvoiceTypeRepository(db *gorm.DB) *GormInvoiceTypeRepository {
	return &GormInvoiceTypeRepository{db: db}
}

// FindByCode finds an invoice type by code within a company
func (r *GormInvoiceTypeRepository) FindByCode(ctx context.Context, companyID uuid.UUID, code string) (*invoicing.InvoiceType, error) {
	var invoiceType invoicing.InvoiceType
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND code = ?", companyID, code).
		First(&invoiceType).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoiceType, nil
}

// FindAllForCompany finds all invoice types for a company
func (r *GormInvoiceTypeRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID) ([]invoicing.InvoiceType, error) {
	var types []invoicing.InvoiceType
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("code ASC").
		Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

// Save creates or updates an invoice type
func (r *GormInvoiceTypeRepository) Save(ctx context.Context, invoiceType *invoicing.InvoiceType) error {
	return r.db.WithContext(ctx).Save(invoiceType).Error
}

// Ensure GormInvoiceTypeRepository implements InvoiceTypeRepository
var _ invoicing.InvoiceTypeRepository = (*GormInvoiceTypeRepository)(nil)
