package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hwmix/backend/internal/domain/installment"
	"github.com/hwmix/backend/internal/domain/shared"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment with its details loaded
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*installment.Payment, error) {
	var payment installment.Payment
	if err := r.db.WithContext(ctx).
		Preload("Details").
		First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// FindByIDForCompany finds a payment by ID within a company
func (r *GormPaymentRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*installment.Payment, error) {
	var payment installment.Payment
	if err := r.db.WithContext(ctx).
		Preload("Details").
		Where("company_id = ? AND id = ?", companyID, id).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// FindByPayable finds payments against a payable, newest first
func (r *GormPaymentRepository) FindByPayable(ctx context.Context, companyID uuid.UUID, payableType installment.PayableType, payableID uuid.UUID) ([]installment.Payment, error) {
	var payments []installment.Payment
	if err := r.db.WithContext(ctx).
		Preload("Details").
		Where("company_id = ? AND payable_type = ? AND payable_id = ?", companyID, payableType, payableID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// Save creates or updates a payment with its details
func (r *GormPaymentRepository) Save(ctx context.Context, payment *installment.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(payment).Error; err != nil {
			return err
		}

		for i := range payment.Details {
			payment.Details[i].PaymentID = payment.ID
			if err := tx.Save(&payment.Details[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteDetails removes the installment allocations of a payment
func (r *GormPaymentRepository) DeleteDetails(ctx context.Context, paymentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Delete(&installment.PaymentDetail{}).Error
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ installment.PaymentRepository = (*GormPaymentRepository)(nil)
