package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hwmix/backend/internal/domain/shared"
)

// Event types for the ledger
const (
	EventTypeDepositRecorded     = "ledger.deposit_recorded"
	EventTypeWithdrawalRecorded  = "ledger.withdrawal_recorded"
	EventTypeTransferExecuted    = "ledger.transfer_executed"
	EventTypeTransactionReversed = "ledger.transaction_reversed"
)

// DepositRecordedEvent is published when a deposit is applied to a cash box
type DepositRecordedEvent struct {
	shared.BaseDomainEvent
	CashBoxID uuid.UUID       `json:"cash_box_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// NewDepositRecordedEvent creates a new DepositRecordedEvent
func NewDepositRecordedEvent(tx *Transaction) *DepositRecordedEvent {
	return &DepositRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDepositRecorded, "Transaction", tx.ID, tx.CompanyID),
		CashBoxID:       tx.CashBoxID,
		UserID:          tx.UserID,
		Amount:          tx.Amount,
	}
}

// WithdrawalRecordedEvent is published when a withdrawal is applied to a cash box
type WithdrawalRecordedEvent struct {
	shared.BaseDomainEvent
	CashBoxID uuid.UUID       `json:"cash_box_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// NewWithdrawalRecordedEvent creates a new WithdrawalRecordedEvent
func NewWithdrawalRecordedEvent(tx *Transaction) *WithdrawalRecordedEvent {
	return &WithdrawalRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWithdrawalRecorded, "Transaction", tx.ID, tx.CompanyID),
		CashBoxID:       tx.CashBoxID,
		UserID:          tx.UserID,
		Amount:          tx.Amount,
	}
}

// TransferExecutedEvent is published when both legs of a transfer are written
type TransferExecutedEvent struct {
	shared.BaseDomainEvent
	SourceBoxID uuid.UUID       `json:"source_box_id"`
	TargetBoxID uuid.UUID       `json:"target_box_id"`
	Amount      decimal.Decimal `json:"amount"`
}

// NewTransferExecutedEvent creates a new TransferExecutedEvent
func NewTransferExecutedEvent(outLeg *Transaction, targetBoxID uuid.UUID) *TransferExecutedEvent {
	return &TransferExecutedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferExecuted, "Transaction", outLeg.ID, outLeg.CompanyID),
		SourceBoxID:     outLeg.CashBoxID,
		TargetBoxID:     targetBoxID,
		Amount:          outLeg.Amount,
	}
}

// TransactionReversedEvent is published when a transaction is reversed
type TransactionReversedEvent struct {
	shared.BaseDomainEvent
	OriginalTransactionID uuid.UUID       `json:"original_transaction_id"`
	Amount                decimal.Decimal `json:"amount"`
}

// NewTransactionReversedEvent creates a new TransactionReversedEvent
func NewTransactionReversedEvent(reversal, original *Transaction) *TransactionReversedEvent {
	return &TransactionReversedEvent{
		BaseDomainEvent:       shared.NewBaseDomainEvent(EventTypeTransactionReversed, "Transaction", reversal.ID, reversal.CompanyID),
		OriginalTransactionID: original.ID,
		Amount:                original.Amount,
	}
}
