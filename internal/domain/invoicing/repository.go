package invoicing

import (
	"context"

	"github.com/google/uuid"

	"github.com/hwmix/backend/internal/domain/shared"
)

// InvoiceRepository defines the interface for invoice persistence.
// Deletion is always soft; canceled invoices stay queryable.
type InvoiceRepository interface {
	// FindByID finds an invoice by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForCompany finds an invoice by ID within a company
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its number within a company
	FindByNumber(ctx context.Context, companyID uuid.UUID, invoiceNumber string) (*Invoice, error)

	// FindLatestByType finds the most recent invoice of a type for a company,
	// ordered by creation descending. Returns shared.ErrNotFound when none exists.
	FindLatestByType(ctx context.Context, companyID uuid.UUID, typeCode string) (*Invoice, error)

	// FindAllForCompany finds invoices for a company
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]Invoice, error)

	// ExistsByNumber checks if an invoice number is already taken within a company
	ExistsByNumber(ctx context.Context, companyID uuid.UUID, invoiceNumber string) (bool, error)

	// Save creates or updates an invoice with its items
	Save(ctx context.Context, invoice *Invoice) error

	// SoftDelete marks an invoice as deleted without removing the row
	SoftDelete(ctx context.Context, companyID, id uuid.UUID) error
}

// InvoiceTypeRepository defines the interface for invoice type persistence
type InvoiceTypeRepository interface {
	// FindByCode finds an invoice type by code within a company
	FindByCode(ctx context.Context, companyID uuid.UUID, code string) (*InvoiceType, error)

	// FindAllForCompany finds all invoice types for a company
	FindAllForCompany(ctx context.Context, companyID uuid.UUID) ([]InvoiceType, error)

	// Save creates or updates an invoice type
	Save(ctx context.Context, invoiceType *InvoiceType) error
}

// SequenceRepository hands out invoice serials from a per-(company, type)
// counter row. NextSerial must lock the counter row for update so concurrent
// invoice creation yields distinct, gap-free serials.
type SequenceRepository interface {
	// NextSerial atomically increments and returns the next serial for the
	// company and type code, creating the counter at 1 on first use.
	NextSerial(ctx context.Context, companyID uuid.UUID, typeCode string) (int64, error)
}
