package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hwmix/backend/internal/domain/invoicing"
)

// invoiceSequence is the counter row backing invoice serial numbers
type invoiceSequence struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null"`
	TypeCode   string    `gorm:"not null"`
	LastSerial int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (invoiceSequence) TableName() string {
	return "invoice_sequences"
}

// GormSequenceRepository implements SequenceRepository with a locked counter
// row per (company, type code). Locking the row serializes concurrent invoice
// creation so serials come out distinct and gap-free.
type GormSequenceRepository struct {
	db *gorm.DB
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB) *GormSequenceRepository {
	return &GormSequenceRepository{db: db}
}

// NextSerial atomically increments and returns the next serial for the
// company and type code, creating the counter at 1 on first use.
// Must run inside a transaction scope so the row lock holds until commit.
func (r *GormSequenceRepository) NextSerial(ctx context.Context, companyID uuid.UUID, typeCode string) (int64, error) {
	var seq invoiceSequence
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND type_code = ?", companyID, typeCode).
		First(&seq).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = invoiceSequence{
			ID:         uuid.New(),
			CompanyID:  companyID,
			TypeCode:   typeCode,
			LastSerial: 1,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
		if err := r.db.WithContext(ctx).Create(&seq).Error; err != nil {
			return 0, err
		}
		return seq.LastSerial, nil
	}
	if err != nil {
		return 0, err
	}

	seq.LastSerial++
	seq.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(&seq).Error; err != nil {
		return 0, err
	}
	return seq.LastSerial, nil
}

// Ensure GormSequenceRepository implements SequenceRepository
var _ invoicing.SequenceRepository = (*GormSequenceRepository)(nil)
