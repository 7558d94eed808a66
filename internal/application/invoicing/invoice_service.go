package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appinventory "github.com/hwmix/backend/internal/application/inventory"
	"github.com/hwmix/backend/internal/domain/invoicing"
	"github.com/hwmix/backend/internal/domain/shared"
)

// StockAllocator is the slice of the stock allocation service the invoice
// lifecycle needs. Confirmation deducts, cancellation restores.
type StockAllocator interface {
	CheckAvailability(ctx context.Context, acting shared.ActingContext, lines []appinventory.LineRequest) (*appinventory.AvailabilityResult, error)
	Deduct(ctx context.Context, acting shared.ActingContext, lines []appinventory.LineRequest) (*appinventory.DeductionResult, error)
	Restore(ctx context.Context, acting shared.ActingContext, warehouseID uuid.UUID, lines []appinventory.LineRequest) error
}

// InvoiceService drives the invoice lifecycle: numbered creation in draft,
// confirmation with stock deduction, and cancellation with stock restore.
type InvoiceService struct {
	scope          TransactionScope
	allocator      StockAllocator
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	scope TransactionScope,
	allocator StockAllocator,
	eventPublisher shared.EventPublisher,
	logger *zap.Logger,
) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		scope:          scope,
		allocator:      allocator,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// ItemRequest describes one invoice line
type ItemRequest struct {
	VariantID *uuid.UUID // nil for service lines that move no stock
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

// CreateInvoiceRequest represents a request to create a draft invoice
type CreateInvoiceRequest struct {
	Acting     shared.ActingContext
	TypeCode   string
	CustomerID uuid.UUID
	Items      []ItemRequest
}

// CreateInvoiceResult reports the created draft
type CreateInvoiceResult struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// CancelInvoiceRequest represents a request to cancel an invoice.
// WarehouseID names where restored stock lands.
type CancelInvoiceRequest struct {
	Acting      shared.ActingContext
	InvoiceID   uuid.UUID
	WarehouseID uuid.UUID
}

// CreateInvoice creates a draft invoice with a generated number. The serial
// comes from a locked per-(company, type) counter so concurrent creations of
// the same type never collide.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*CreateInvoiceResult, error) {
	if !req.Acting.IsValid() {
		return nil, shared.ErrUnauthorized
	}
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("INVALID_ITEMS", "Invoice must have at least one item")
	}

	items := make([]invoicing.InvoiceItem, 0, len(req.Items))
	for _, ir := range req.Items {
		item, err := invoicing.NewInvoiceItem(ir.Name, ir.VariantID, ir.Quantity, ir.UnitPrice, ir.Discount)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	var result *CreateInvoiceResult
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		invoiceType, err := repos.TypeRepo().FindByCode(ctx, req.Acting.CompanyID, req.TypeCode)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load invoice type: %w", err)
		}
		if invoiceType == nil {
			return shared.NewDomainError("INVOICE_TYPE_NOT_FOUND", "Unknown invoice type: "+req.TypeCode)
		}

		serial, err := repos.SequenceRepo().NextSerial(ctx, req.Acting.CompanyID, req.TypeCode)
		if err != nil {
			return fmt.Errorf("failed to allocate serial: %w", err)
		}
		number := invoicing.FormatInvoiceNumber(req.TypeCode, req.Acting.CompanyID, time.Now(), serial)

		taken, err := repos.InvoiceRepo().ExistsByNumber(ctx, req.Acting.CompanyID, number)
		if err != nil {
			return fmt.Errorf("failed to check invoice number: %w", err)
		}
		if taken {
			return shared.NewDomainError("NUMBER_COLLISION", "Invoice number already exists: "+number)
		}

		inv, err := invoicing.NewInvoice(req.Acting.CompanyID, req.Acting.UserID, req.CustomerID, invoiceType, number, items)
		if err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Save(ctx, inv); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}

		events = inv.GetDomainEvents()
		result = &CreateInvoiceResult{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			TotalAmount:   inv.TotalAmount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events...)
	return result, nil
}

// ConfirmInvoice transitions a draft to confirmed. For stock-moving types the
// variant lines are deducted first; any shortage aborts the confirmation.
func (s *InvoiceService) ConfirmInvoice(ctx context.Context, acting shared.ActingContext, invoiceID uuid.UUID) error {
	if !acting.IsValid() {
		return shared.ErrUnauthorized
	}

	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByIDForCompany(ctx, acting.CompanyID, invoiceID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load invoice: %w", err)
		}
		if inv == nil {
			return shared.ErrNotFound
		}

		invoiceType, err := repos.TypeRepo().FindByCode(ctx, acting.CompanyID, inv.TypeCode)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load invoice type: %w", err)
		}
		if invoiceType == nil {
			return shared.NewDomainError("INVOICE_TYPE_NOT_FOUND", "Unknown invoice type: "+inv.TypeCode)
		}

		if invoiceType.MovesStock() {
			lines := stockLines(inv)
			if len(lines) > 0 {
				if _, err := s.allocator.Deduct(ctx, acting, lines); err != nil {
					return err
				}
			}
		}

		if err := inv.Confirm(); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Save(ctx, inv); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}

		events = inv.GetDomainEvents()
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events...)
	return nil
}

// CancelInvoice cancels an invoice. Stock deducted at confirmation is
// restored to the adjustment batches of the given warehouse. Paid invoices
// cannot be canceled; their payments must be reversed first.
func (s *InvoiceService) CancelInvoice(ctx context.Context, req CancelInvoiceRequest) error {
	if !req.Acting.IsValid() {
		return shared.ErrUnauthorized
	}

	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByIDForCompany(ctx, req.Acting.CompanyID, req.InvoiceID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load invoice: %w", err)
		}
		if inv == nil {
			return shared.ErrNotFound
		}

		wasConfirmed := inv.Status != invoicing.InvoiceStatusDraft

		if err := inv.Cancel(); err != nil {
			return err
		}

		if wasConfirmed {
			invoiceType, err := repos.TypeRepo().FindByCode(ctx, req.Acting.CompanyID, inv.TypeCode)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("failed to load invoice type: %w", err)
			}
			if invoiceType != nil && invoiceType.MovesStock() {
				lines := stockLines(inv)
				if len(lines) > 0 {
					if err := s.allocator.Restore(ctx, req.Acting, req.WarehouseID, lines); err != nil {
						return err
					}
				}
			}
		}

		if err := repos.InvoiceRepo().Save(ctx, inv); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}

		events = inv.GetDomainEvents()
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events...)
	return nil
}

// GetInvoice loads an invoice within the acting user's company
func (s *InvoiceService) GetInvoice(ctx context.Context, acting shared.ActingContext, invoiceID uuid.UUID) (*invoicing.Invoice, error) {
	if !acting.IsValid() {
		return nil, shared.ErrUnauthorized
	}

	var inv *invoicing.Invoice
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		found, err := repos.InvoiceRepo().FindByIDForCompany(ctx, acting.CompanyID, invoiceID)
		if err != nil {
			return err
		}
		if found == nil {
			return shared.ErrNotFound
		}
		inv = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func stockLines(inv *invoicing.Invoice) []appinventory.LineRequest {
	stockItems := inv.StockItems()
	lines := make([]appinventory.LineRequest, 0, len(stockItems))
	for _, item := range stockItems {
		lines = append(lines, appinventory.LineRequest{
			VariantID: *item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return lines
}

func (s *InvoiceService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish invoicing events", zap.Error(err))
	}
}
