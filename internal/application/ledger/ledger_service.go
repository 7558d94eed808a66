package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hwmix/backend/internal/domain/ledger"
	"github.com/hwmix/backend/internal/domain/shared"
)

// ErrDuplicateOperation is returned when an idempotency key was already used
var ErrDuplicateOperation = shared.NewDomainError("DUPLICATE_OPERATION", "Operation with this idempotency key was already processed")

// LedgerService orchestrates cash box balance mutations. Every mutation runs
// inside a transaction scope and loads its cash boxes with row-level locks so
// concurrent movements on the same box serialize.
type LedgerService struct {
	scope          TransactionScope
	eventPublisher shared.EventPublisher
	idempotency    shared.IdempotencyStore
	idempotencyCfg shared.IdempotencyConfig
	logger         *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	scope TransactionScope,
	eventPublisher shared.EventPublisher,
	idempotency shared.IdempotencyStore,
	idempotencyCfg shared.IdempotencyConfig,
	logger *zap.Logger,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		scope:          scope,
		eventPublisher: eventPublisher,
		idempotency:    idempotency,
		idempotencyCfg: idempotencyCfg,
		logger:         logger,
	}
}

// DepositRequest represents a request to credit a cash box
type DepositRequest struct {
	Acting         shared.ActingContext
	CashBoxID      *uuid.UUID // nil resolves the acting user's default box
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// WithdrawRequest represents a request to debit a cash box
type WithdrawRequest struct {
	Acting         shared.ActingContext
	CashBoxID      *uuid.UUID // nil resolves the acting user's default box
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// TransferRequest represents a request to move money between two users' boxes
type TransferRequest struct {
	Acting         shared.ActingContext
	SourceBoxID    *uuid.UUID // nil resolves the acting user's default box
	TargetUserID   uuid.UUID
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// TransactionResult reports the outcome of a single-box mutation
type TransactionResult struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	CashBoxID     uuid.UUID       `json:"cash_box_id"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
}

// TransferResult reports both legs of an executed transfer
type TransferResult struct {
	OutTransactionID uuid.UUID       `json:"out_transaction_id"`
	InTransactionID  uuid.UUID       `json:"in_transaction_id"`
	SourceBoxID      uuid.UUID       `json:"source_box_id"`
	TargetBoxID      uuid.UUID       `json:"target_box_id"`
	Amount           decimal.Decimal `json:"amount"`
}

// ReverseResult reports the compensating records written by a reversal
type ReverseResult struct {
	ReversalIDs []uuid.UUID `json:"reversal_ids"`
}

// Deposit credits a cash box and writes the audit transaction
func (s *LedgerService) Deposit(ctx context.Context, req DepositRequest) (*TransactionResult, error) {
	if !req.Acting.IsValid() {
		return nil, shared.ErrUnauthorized
	}
	if !req.Amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	if err := s.guardIdempotent(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	}

	var result *TransactionResult
	var event shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		box, err := s.resolveOwnBoxForUpdate(ctx, repos, req.Acting, req.CashBoxID)
		if err != nil {
			return err
		}

		tx, err := ledger.NewDepositTransaction(req.Acting.CompanyID, req.Acting.UserID, box.ID, req.Amount, box.Balance)
		if err != nil {
			return err
		}
		tx.WithDescription(req.Description)

		if err := box.Credit(req.Amount); err != nil {
			return err
		}
		if err := repos.CashBoxRepo().Save(ctx, box); err != nil {
			return fmt.Errorf("failed to save cash box: %w", err)
		}
		if err := repos.TransactionRepo().Create(ctx, tx); err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}

		event = ledger.NewDepositRecordedEvent(tx)
		result = &TransactionResult{
			TransactionID: tx.ID,
			CashBoxID:     box.ID,
			Amount:        tx.Amount,
			BalanceBefore: tx.BalanceBefore,
			BalanceAfter:  tx.BalanceAfter,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event)
	return result, nil
}

// Withdraw debits a cash box, failing closed when funds are insufficient
func (s *LedgerService) Withdraw(ctx context.Context, req WithdrawRequest) (*TransactionResult, error) {
	if !req.Acting.IsValid() {
		return nil, shared.ErrUnauthorized
	}
	if !req.Amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	if err := s.guardIdempotent(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	}

	var result *TransactionResult
	var event shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		box, err := s.resolveOwnBoxForUpdate(ctx, repos, req.Acting, req.CashBoxID)
		if err != nil {
			return err
		}

		tx, err := ledger.NewWithdrawTransaction(req.Acting.CompanyID, req.Acting.UserID, box.ID, req.Amount, box.Balance)
		if err != nil {
			return err
		}
		tx.WithDescription(req.Description)

		if err := box.Debit(req.Amount); err != nil {
			return err
		}
		if err := repos.CashBoxRepo().Save(ctx, box); err != nil {
			return fmt.Errorf("failed to save cash box: %w", err)
		}
		if err := repos.TransactionRepo().Create(ctx, tx); err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}

		event = ledger.NewWithdrawalRecordedEvent(tx)
		result = &TransactionResult{
			TransactionID: tx.ID,
			CashBoxID:     box.ID,
			Amount:        tx.Amount,
			BalanceBefore: tx.BalanceBefore,
			BalanceAfter:  tx.BalanceAfter,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event)
	return result, nil
}

// Transfer moves money from the acting user's box to the target user's box of
// the same payment method. Both legs are written atomically and linked to
// each other through their original transaction references.
func (s *LedgerService) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if !req.Acting.IsValid() {
		return nil, shared.ErrUnauthorized
	}
	if !req.Acting.HasAnyCapability(shared.CapabilityTransfer, shared.CapabilityCompanyOwner, shared.CapabilitySuperAdmin) {
		return nil, shared.ErrUnauthorized
	}
	if req.TargetUserID == uuid.Nil || req.TargetUserID == req.Acting.UserID {
		return nil, shared.NewDomainError("INVALID_TARGET", "Transfer target must be a different user")
	}
	if !req.Amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	if err := s.guardIdempotent(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	}

	var result *TransferResult
	var event shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		source, err := s.resolveOwnBoxForUpdate(ctx, repos, req.Acting, req.SourceBoxID)
		if err != nil {
			return err
		}
		if !source.CanCover(req.Amount) {
			return shared.ErrInsufficientFunds
		}

		// destination must hold the same payment method as the source
		target, err := repos.CashBoxRepo().FindByUserAndMethodForUpdate(ctx, req.Acting.CompanyID, req.TargetUserID, source.Method)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.ErrNoMatchingCashBox
			}
			return fmt.Errorf("failed to resolve target cash box: %w", err)
		}
		if target == nil {
			return shared.ErrNoMatchingCashBox
		}

		outLeg, err := ledger.NewTransferOutTransaction(req.Acting.CompanyID, req.Acting.UserID, source.ID, req.Amount, source.Balance)
		if err != nil {
			return err
		}
		outLeg.WithDescription(req.Description).WithTarget(target.UserID, target.ID)

		inLeg, err := ledger.NewTransferInTransaction(req.Acting.CompanyID, target.UserID, target.ID, req.Amount, target.Balance)
		if err != nil {
			return err
		}
		inLeg.WithDescription(req.Description).WithTarget(source.UserID, source.ID)

		// legs reference each other so either one resolves the pair
		outLeg.WithOriginal(inLeg.ID)
		inLeg.WithOriginal(outLeg.ID)

		if err := source.Debit(req.Amount); err != nil {
			return err
		}
		if err := target.Credit(req.Amount); err != nil {
			return err
		}

		if err := repos.CashBoxRepo().Save(ctx, source); err != nil {
			return fmt.Errorf("failed to save source cash box: %w", err)
		}
		if err := repos.CashBoxRepo().Save(ctx, target); err != nil {
			return fmt.Errorf("failed to save target cash box: %w", err)
		}
		if err := repos.TransactionRepo().Create(ctx, outLeg); err != nil {
			return fmt.Errorf("failed to create outflow leg: %w", err)
		}
		if err := repos.TransactionRepo().Create(ctx, inLeg); err != nil {
			return fmt.Errorf("failed to create inflow leg: %w", err)
		}

		event = ledger.NewTransferExecutedEvent(outLeg, target.ID)
		result = &TransferResult{
			OutTransactionID: outLeg.ID,
			InTransactionID:  inLeg.ID,
			SourceBoxID:      source.ID,
			TargetBoxID:      target.ID,
			Amount:           req.Amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event)
	return result, nil
}

// Reverse undoes a transaction by writing a compensating record and stamping
// the original as reversed. Reversing one leg of a transfer reverses both.
// A second reversal of the same transaction fails with ALREADY_REVERSED, and
// a reversal record itself fails with CANNOT_REVERSE_REVERSAL.
func (s *LedgerService) Reverse(ctx context.Context, acting shared.ActingContext, transactionID uuid.UUID) (*ReverseResult, error) {
	if !acting.IsValid() {
		return nil, shared.ErrUnauthorized
	}

	var result *ReverseResult
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		original, err := repos.TransactionRepo().FindByIDForCompany(ctx, acting.CompanyID, transactionID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.ErrNotFound
			}
			return fmt.Errorf("failed to load transaction: %w", err)
		}
		if original == nil {
			return shared.ErrNotFound
		}

		legs := []*ledger.Transaction{original}
		if original.OriginalTransactionID != nil {
			pair, err := repos.TransactionRepo().FindByIDForCompany(ctx, acting.CompanyID, *original.OriginalTransactionID)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("failed to load linked transaction: %w", err)
			}
			// transfer legs link each other both ways; a one-way link marks a
			// reversal record, which is final
			if pair == nil || pair.OriginalTransactionID == nil || *pair.OriginalTransactionID != original.ID {
				return shared.ErrReversalFinal
			}
			legs = append(legs, pair)
		}

		reversalIDs := make([]uuid.UUID, 0, len(legs))
		now := time.Now()
		for _, leg := range legs {
			reversal, err := s.reverseLeg(ctx, repos, leg, now)
			if err != nil {
				return err
			}
			reversalIDs = append(reversalIDs, reversal.ID)
			events = append(events, ledger.NewTransactionReversedEvent(reversal, leg))
		}

		result = &ReverseResult{ReversalIDs: reversalIDs}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events...)
	return result, nil
}

// reverseLeg writes the compensating transaction for one leg and stamps it.
// The stamp is persisted through the append-only repository so a concurrent
// reversal of the same leg loses on the row lock and fails closed.
func (s *LedgerService) reverseLeg(ctx context.Context, repos TransactionalRepositories, leg *ledger.Transaction, at time.Time) (*ledger.Transaction, error) {
	if err := leg.MarkReversed(at); err != nil {
		return nil, err
	}

	box, err := repos.CashBoxRepo().FindByIDForUpdate(ctx, leg.CashBoxID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrCashBoxNotFound
		}
		return nil, fmt.Errorf("failed to lock cash box: %w", err)
	}
	if box == nil {
		return nil, shared.ErrCashBoxNotFound
	}

	var reversal *ledger.Transaction
	if leg.Type.IsDebit() {
		// undoing a debit credits the box back
		reversal, err = ledger.NewDepositTransaction(leg.CompanyID, leg.UserID, box.ID, leg.Amount, box.Balance)
		if err != nil {
			return nil, err
		}
		if err := box.Credit(leg.Amount); err != nil {
			return nil, err
		}
	} else {
		reversal, err = ledger.NewWithdrawTransaction(leg.CompanyID, leg.UserID, box.ID, leg.Amount, box.Balance)
		if err != nil {
			return nil, err
		}
		if err := box.Debit(leg.Amount); err != nil {
			return nil, err
		}
	}
	reversal.WithDescription(fmt.Sprintf("Reversal of %s", leg.ID)).WithOriginal(leg.ID)

	if err := repos.CashBoxRepo().Save(ctx, box); err != nil {
		return nil, fmt.Errorf("failed to save cash box: %w", err)
	}
	if err := repos.TransactionRepo().Create(ctx, reversal); err != nil {
		return nil, fmt.Errorf("failed to create reversal: %w", err)
	}
	if err := repos.TransactionRepo().MarkReversed(ctx, leg); err != nil {
		return nil, fmt.Errorf("failed to stamp original: %w", err)
	}
	return reversal, nil
}

// resolveOwnBoxForUpdate locks and returns the box the acting user operates
// on: the explicit box when given, otherwise the user's default box.
func (s *LedgerService) resolveOwnBoxForUpdate(ctx context.Context, repos TransactionalRepositories, acting shared.ActingContext, boxID *uuid.UUID) (*ledger.CashBox, error) {
	if boxID != nil {
		box, err := repos.CashBoxRepo().FindByIDForUpdate(ctx, *boxID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.ErrCashBoxNotFound
			}
			return nil, fmt.Errorf("failed to lock cash box: %w", err)
		}
		if box == nil {
			return nil, shared.ErrCashBoxNotFound
		}
		if !box.IsOwnedBy(acting.UserID, acting.CompanyID) {
			return nil, shared.ErrUnauthorized
		}
		return box, nil
	}

	box, err := repos.CashBoxRepo().FindDefaultForUserForUpdate(ctx, acting.CompanyID, acting.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrCashBoxNotFound
		}
		return nil, fmt.Errorf("failed to lock default cash box: %w", err)
	}
	if box == nil {
		return nil, shared.ErrCashBoxNotFound
	}
	return box, nil
}

func (s *LedgerService) guardIdempotent(ctx context.Context, key string) error {
	if key == "" || s.idempotency == nil || !s.idempotencyCfg.Enabled {
		return nil
	}
	fresh, err := s.idempotency.MarkProcessed(ctx, key, s.idempotencyCfg.TTL)
	if err != nil {
		return fmt.Errorf("idempotency check failed: %w", err)
	}
	if !fresh {
		return ErrDuplicateOperation
	}
	return nil
}

func (s *LedgerService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish ledger events", zap.Error(err))
	}
}
