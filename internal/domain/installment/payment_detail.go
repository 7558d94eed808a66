package installment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hwmix/backend/internal/domain/shared"
)

// PaymentDetail links a slice of a payment to one installment
type PaymentDetail struct {
	shared.BaseEntity
	PaymentID     uuid.UUID
	InstallmentID uuid.UUID
	Amount        decimal.Decimal
}

// TableName returns the table name for GORM
func (PaymentDetail) TableName() string {
	return "payment_details"
}

// NewPaymentDetail creates an allocation of a payment slice to an installment
func NewPaymentDetail(paymentID, installmentID uuid.UUID, amount decimal.Decimal) (*PaymentDetail, error) {
	if paymentID == uuid.Nil || installmentID == uuid.Nil {
		return nil, shared.ErrInvalidInput
	}
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	return &PaymentDetail{
		BaseEntity:    shared.NewBaseEntity(),
		PaymentID:     paymentID,
		InstallmentID: installmentID,
		Amount:        amount,
	}, nil
}
