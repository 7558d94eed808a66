package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hwmix/backend/internal/domain/ledger"
	"github.com/hwmix/backend/internal/domain/shared"
)

// MockCashBoxRepository is a mock implementation of ledger.CashBoxRepository
type MockCashBoxRepository struct {
	mock.Mock
}

func (m *MockCashBoxRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.CashBox, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.CashBox), args.Error(1)
}

func (m *MockCashBoxRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*ledger.CashBox, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.CashBox), args.Error(1)
}

func (m *MockCashBoxRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.CashBox, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.CashBox), args.Error(1)
}

func (m *MockCashBoxRepository) FindDefaultForUser(ctx context.Context, companyID, userID uuid.UUID) (*ledger.CashBox, error) {
	args := m.Called(ctx, companyID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.CashBox), args.Error(1)
}

func (m *MockCashBoxRepository) FindDefaultForUserForUpdate(ctx context.Context, companyID, userID uuid.UUID) (*ledger.CashBox, error) {
	args := m.Called(ctx, companyID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.CashBox), args.Error(1)
}

func (m *MockCashBoxRepository) FindByUserAndMethodForUpdate(ctx context.Context, companyID, userID uuid.UUID, method ledger.CashBoxMethod) (*ledger.CashBox, error) {
	args := m.Called(ctx, companyID, userID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.CashBox), args.Error(1)
}

func (m *MockCashBoxRepository) FindAllForUser(ctx context.Context, companyID, userID uuid.UUID, filter shared.Filter) ([]ledger.CashBox, error) {
	args := m.Called(ctx, companyID, userID, filter)
	return args.Get(0).([]ledger.CashBox), args.Error(1)
}

func (m *MockCashBoxRepository) Save(ctx context.Context, box *ledger.CashBox) error {
	args := m.Called(ctx, box)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of ledger.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *ledger.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByCashBox(ctx context.Context, companyID, cashBoxID uuid.UUID, filter shared.Filter) ([]ledger.Transaction, error) {
	args := m.Called(ctx, companyID, cashBoxID, filter)
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]ledger.Transaction, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) MarkReversed(ctx context.Context, tx *ledger.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

type ledgerFixture struct {
	service *LedgerService
	boxes   *MockCashBoxRepository
	txs     *MockTransactionRepository
	acting  shared.ActingContext
}

func newLedgerFixture(capabilities ...shared.Capability) *ledgerFixture {
	boxes := new(MockCashBoxRepository)
	txs := new(MockTransactionRepository)
	scope := NewNoOpTransactionScope(boxes, txs)
	service := NewLedgerService(scope, nil, nil, shared.DefaultIdempotencyConfig(), nil)
	return &ledgerFixture{
		service: service,
		boxes:   boxes,
		txs:     txs,
		acting:  shared.NewActingContext(uuid.New(), uuid.New(), capabilities...),
	}
}

func (f *ledgerFixture) defaultBox(t *testing.T, balance int64) *ledger.CashBox {
	t.Helper()
	box, err := ledger.NewDefaultCashBox(f.acting.CompanyID, f.acting.UserID, "Main")
	require.NoError(t, err)
	box.Balance = decimal.NewFromInt(balance)
	return box
}

func TestLedgerServiceDeposit(t *testing.T) {
	t.Run("credits the default box and records the audit row", func(t *testing.T) {
		f := newLedgerFixture()
		box := f.defaultBox(t, 1000)

		f.boxes.On("FindDefaultForUserForUpdate", mock.Anything, f.acting.CompanyID, f.acting.UserID).Return(box, nil)
		f.boxes.On("Save", mock.Anything, box).Return(nil)
		f.txs.On("Create", mock.Anything, mock.AnythingOfType("*ledger.Transaction")).Return(nil)

		result, err := f.service.Deposit(context.Background(), DepositRequest{
			Acting: f.acting,
			Amount: decimal.NewFromInt(500),
		})
		require.NoError(t, err)

		assert.True(t, result.BalanceBefore.Equal(decimal.NewFromInt(1000)))
		assert.True(t, result.BalanceAfter.Equal(decimal.NewFromInt(1500)))
		assert.True(t, box.Balance.Equal(decimal.NewFromInt(1500)))

		created := f.txs.Calls[0].Arguments.Get(1).(*ledger.Transaction)
		assert.Equal(t, ledger.TransactionTypeDeposit, created.Type)
		assert.True(t, created.BalanceAfter.Equal(decimal.NewFromInt(1500)))
	})

	t.Run("fails when the user has no default box", func(t *testing.T) {
		f := newLedgerFixture()
		f.boxes.On("FindDefaultForUserForUpdate", mock.Anything, f.acting.CompanyID, f.acting.UserID).Return(nil, nil)

		_, err := f.service.Deposit(context.Background(), DepositRequest{Acting: f.acting, Amount: decimal.NewFromInt(10)})
		assert.ErrorIs(t, err, shared.ErrCashBoxNotFound)
	})

	t.Run("rejects a box owned by someone else", func(t *testing.T) {
		f := newLedgerFixture()
		other, err := ledger.NewCashBox(f.acting.CompanyID, uuid.New(), "Other", ledger.CashBoxMethodCash)
		require.NoError(t, err)
		f.boxes.On("FindByIDForUpdate", mock.Anything, other.ID).Return(other, nil)

		_, err = f.service.Deposit(context.Background(), DepositRequest{
			Acting:    f.acting,
			CashBoxID: &other.ID,
			Amount:    decimal.NewFromInt(10),
		})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		f := newLedgerFixture()
		_, err := f.service.Deposit(context.Background(), DepositRequest{Acting: f.acting, Amount: decimal.Zero})
		assert.ErrorIs(t, err, shared.ErrInvalidAmount)
	})
}

func TestLedgerServiceWithdraw(t *testing.T) {
	t.Run("debits when the balance covers the amount", func(t *testing.T) {
		f := newLedgerFixture()
		box := f.defaultBox(t, 1000)

		f.boxes.On("FindDefaultForUserForUpdate", mock.Anything, f.acting.CompanyID, f.acting.UserID).Return(box, nil)
		f.boxes.On("Save", mock.Anything, box).Return(nil)
		f.txs.On("Create", mock.Anything, mock.AnythingOfType("*ledger.Transaction")).Return(nil)

		result, err := f.service.Withdraw(context.Background(), WithdrawRequest{
			Acting: f.acting,
			Amount: decimal.NewFromInt(300),
		})
		require.NoError(t, err)
		assert.True(t, result.BalanceAfter.Equal(decimal.NewFromInt(700)))
		assert.True(t, box.Balance.Equal(decimal.NewFromInt(700)))
	})

	t.Run("fails closed on insufficient funds", func(t *testing.T) {
		f := newLedgerFixture()
		box := f.defaultBox(t, 1000)

		f.boxes.On("FindDefaultForUserForUpdate", mock.Anything, f.acting.CompanyID, f.acting.UserID).Return(box, nil)

		_, err := f.service.Withdraw(context.Background(), WithdrawRequest{
			Acting: f.acting,
			Amount: decimal.NewFromInt(2000),
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
		assert.True(t, box.Balance.Equal(decimal.NewFromInt(1000)), "balance must be untouched")
		f.boxes.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.txs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestLedgerServiceTransfer(t *testing.T) {
	targetUserID := uuid.New()

	t.Run("requires the transfer capability", func(t *testing.T) {
		f := newLedgerFixture() // no capabilities
		_, err := f.service.Transfer(context.Background(), TransferRequest{
			Acting:       f.acting,
			TargetUserID: targetUserID,
			Amount:       decimal.NewFromInt(100),
		})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("moves money and writes two linked legs", func(t *testing.T) {
		f := newLedgerFixture(shared.CapabilityTransfer)
		source := f.defaultBox(t, 1000)
		target, err := ledger.NewCashBox(f.acting.CompanyID, targetUserID, "Target", ledger.CashBoxMethodCash)
		require.NoError(t, err)
		target.Balance = decimal.NewFromInt(50)

		f.boxes.On("FindDefaultForUserForUpdate", mock.Anything, f.acting.CompanyID, f.acting.UserID).Return(source, nil)
		f.boxes.On("FindByUserAndMethodForUpdate", mock.Anything, f.acting.CompanyID, targetUserID, ledger.CashBoxMethodCash).Return(target, nil)
		f.boxes.On("Save", mock.Anything, mock.AnythingOfType("*ledger.CashBox")).Return(nil)
		f.txs.On("Create", mock.Anything, mock.AnythingOfType("*ledger.Transaction")).Return(nil)

		result, err := f.service.Transfer(context.Background(), TransferRequest{
			Acting:       f.acting,
			TargetUserID: targetUserID,
			Amount:       decimal.NewFromInt(200),
		})
		require.NoError(t, err)

		assert.True(t, source.Balance.Equal(decimal.NewFromInt(800)))
		assert.True(t, target.Balance.Equal(decimal.NewFromInt(250)))

		outLeg := f.txs.Calls[0].Arguments.Get(1).(*ledger.Transaction)
		inLeg := f.txs.Calls[1].Arguments.Get(1).(*ledger.Transaction)
		assert.Equal(t, ledger.TransactionTypeTransfer, outLeg.Type)
		assert.Equal(t, ledger.TransactionTypeDeposit, inLeg.Type)
		require.NotNil(t, outLeg.OriginalTransactionID)
		require.NotNil(t, inLeg.OriginalTransactionID)
		assert.Equal(t, inLeg.ID, *outLeg.OriginalTransactionID)
		assert.Equal(t, outLeg.ID, *inLeg.OriginalTransactionID)
		assert.Equal(t, result.OutTransactionID, outLeg.ID)
		assert.Equal(t, result.InTransactionID, inLeg.ID)
	})

	t.Run("fails when no target box matches the source method", func(t *testing.T) {
		f := newLedgerFixture(shared.CapabilityTransfer)
		source := f.defaultBox(t, 1000)

		f.boxes.On("FindDefaultForUserForUpdate", mock.Anything, f.acting.CompanyID, f.acting.UserID).Return(source, nil)
		f.boxes.On("FindByUserAndMethodForUpdate", mock.Anything, f.acting.CompanyID, targetUserID, ledger.CashBoxMethodCash).Return(nil, nil)

		_, err := f.service.Transfer(context.Background(), TransferRequest{
			Acting:       f.acting,
			TargetUserID: targetUserID,
			Amount:       decimal.NewFromInt(200),
		})
		assert.ErrorIs(t, err, shared.ErrNoMatchingCashBox)
		assert.True(t, source.Balance.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("fails before locking the target when funds are short", func(t *testing.T) {
		f := newLedgerFixture(shared.CapabilityTransfer)
		source := f.defaultBox(t, 100)

		f.boxes.On("FindDefaultForUserForUpdate", mock.Anything, f.acting.CompanyID, f.acting.UserID).Return(source, nil)

		_, err := f.service.Transfer(context.Background(), TransferRequest{
			Acting:       f.acting,
			TargetUserID: targetUserID,
			Amount:       decimal.NewFromInt(200),
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
		f.boxes.AssertNotCalled(t, "FindByUserAndMethodForUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects transfers to self", func(t *testing.T) {
		f := newLedgerFixture(shared.CapabilityTransfer)
		_, err := f.service.Transfer(context.Background(), TransferRequest{
			Acting:       f.acting,
			TargetUserID: f.acting.UserID,
			Amount:       decimal.NewFromInt(10),
		})
		assert.Error(t, err)
	})
}

func TestLedgerServiceReverse(t *testing.T) {
	t.Run("reversing a deposit debits the box back", func(t *testing.T) {
		f := newLedgerFixture()
		box := f.defaultBox(t, 1500)
		original, err := ledger.NewDepositTransaction(f.acting.CompanyID, f.acting.UserID, box.ID, decimal.NewFromInt(500), decimal.NewFromInt(1000))
		require.NoError(t, err)

		f.txs.On("FindByIDForCompany", mock.Anything, f.acting.CompanyID, original.ID).Return(original, nil)
		f.boxes.On("FindByIDForUpdate", mock.Anything, box.ID).Return(box, nil)
		f.boxes.On("Save", mock.Anything, box).Return(nil)
		f.txs.On("Create", mock.Anything, mock.AnythingOfType("*ledger.Transaction")).Return(nil)
		f.txs.On("MarkReversed", mock.Anything, original).Return(nil)

		result, err := f.service.Reverse(context.Background(), f.acting, original.ID)
		require.NoError(t, err)

		require.Len(t, result.ReversalIDs, 1)
		assert.True(t, box.Balance.Equal(decimal.NewFromInt(1000)))
		assert.True(t, original.IsReversed())

		var created *ledger.Transaction
		for _, call := range f.txs.Calls {
			if call.Method == "Create" {
				created = call.Arguments.Get(1).(*ledger.Transaction)
			}
		}
		require.NotNil(t, created)
		assert.Equal(t, ledger.TransactionTypeWithdraw, created.Type)
		require.NotNil(t, created.OriginalTransactionID)
		assert.Equal(t, original.ID, *created.OriginalTransactionID)
	})

	t.Run("a second reversal fails closed", func(t *testing.T) {
		f := newLedgerFixture()
		box := f.defaultBox(t, 1500)
		original, err := ledger.NewDepositTransaction(f.acting.CompanyID, f.acting.UserID, box.ID, decimal.NewFromInt(500), decimal.NewFromInt(1000))
		require.NoError(t, err)
		require.NoError(t, original.MarkReversed(time.Now()))

		f.txs.On("FindByIDForCompany", mock.Anything, f.acting.CompanyID, original.ID).Return(original, nil)

		_, err = f.service.Reverse(context.Background(), f.acting, original.ID)
		assert.ErrorIs(t, err, shared.ErrAlreadyReversed)
		f.txs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("reversing a transfer leg undoes both legs", func(t *testing.T) {
		f := newLedgerFixture()
		targetUserID := uuid.New()
		source := f.defaultBox(t, 800)
		target, err := ledger.NewCashBox(f.acting.CompanyID, targetUserID, "Target", ledger.CashBoxMethodCash)
		require.NoError(t, err)
		target.Balance = decimal.NewFromInt(250)

		outLeg, err := ledger.NewTransferOutTransaction(f.acting.CompanyID, f.acting.UserID, source.ID, decimal.NewFromInt(200), decimal.NewFromInt(1000))
		require.NoError(t, err)
		inLeg, err := ledger.NewTransferInTransaction(f.acting.CompanyID, targetUserID, target.ID, decimal.NewFromInt(200), decimal.NewFromInt(50))
		require.NoError(t, err)
		outLeg.WithOriginal(inLeg.ID)
		inLeg.WithOriginal(outLeg.ID)

		f.txs.On("FindByIDForCompany", mock.Anything, f.acting.CompanyID, outLeg.ID).Return(outLeg, nil)
		f.txs.On("FindByIDForCompany", mock.Anything, f.acting.CompanyID, inLeg.ID).Return(inLeg, nil)
		f.boxes.On("FindByIDForUpdate", mock.Anything, source.ID).Return(source, nil)
		f.boxes.On("FindByIDForUpdate", mock.Anything, target.ID).Return(target, nil)
		f.boxes.On("Save", mock.Anything, mock.AnythingOfType("*ledger.CashBox")).Return(nil)
		f.txs.On("Create", mock.Anything, mock.AnythingOfType("*ledger.Transaction")).Return(nil)
		f.txs.On("MarkReversed", mock.Anything, mock.AnythingOfType("*ledger.Transaction")).Return(nil)

		result, err := f.service.Reverse(context.Background(), f.acting, outLeg.ID)
		require.NoError(t, err)

		assert.Len(t, result.ReversalIDs, 2)
		assert.True(t, source.Balance.Equal(decimal.NewFromInt(1000)), "source refunded")
		assert.True(t, target.Balance.Equal(decimal.NewFromInt(50)), "target debited back")
		assert.True(t, outLeg.IsReversed())
		assert.True(t, inLeg.IsReversed())
	})

	t.Run("a reversal record is final", func(t *testing.T) {
		f := newLedgerFixture()
		box := f.defaultBox(t, 1000)

		original, err := ledger.NewDepositTransaction(f.acting.CompanyID, f.acting.UserID, box.ID, decimal.NewFromInt(500), decimal.NewFromInt(500))
		require.NoError(t, err)
		require.NoError(t, original.MarkReversed(time.Now()))

		reversal, err := ledger.NewWithdrawTransaction(f.acting.CompanyID, f.acting.UserID, box.ID, decimal.NewFromInt(500), decimal.NewFromInt(1000))
		require.NoError(t, err)
		reversal.WithOriginal(original.ID)

		f.txs.On("FindByIDForCompany", mock.Anything, f.acting.CompanyID, reversal.ID).Return(reversal, nil)
		f.txs.On("FindByIDForCompany", mock.Anything, f.acting.CompanyID, original.ID).Return(original, nil)

		_, err = f.service.Reverse(context.Background(), f.acting, reversal.ID)
		assert.ErrorIs(t, err, shared.ErrReversalFinal)
		assert.False(t, reversal.IsReversed(), "reversal record stays unstamped")
		f.txs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.boxes.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestLedgerServiceIdempotency(t *testing.T) {
	t.Run("duplicate keys are refused before any mutation", func(t *testing.T) {
		boxes := new(MockCashBoxRepository)
		txs := new(MockTransactionRepository)
		store := new(MockIdempotencyStore)
		service := NewLedgerService(NewNoOpTransactionScope(boxes, txs), nil, store, shared.DefaultIdempotencyConfig(), nil)
		acting := shared.NewActingContext(uuid.New(), uuid.New())

		store.On("MarkProcessed", mock.Anything, "dep-1", mock.Anything).Return(false, nil)

		_, err := service.Deposit(context.Background(), DepositRequest{
			Acting:         acting,
			Amount:         decimal.NewFromInt(100),
			IdempotencyKey: "dep-1",
		})
		assert.ErrorIs(t, err, ErrDuplicateOperation)
		boxes.AssertNotCalled(t, "FindDefaultForUserForUpdate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fresh keys proceed", func(t *testing.T) {
		boxes := new(MockCashBoxRepository)
		txs := new(MockTransactionRepository)
		store := new(MockIdempotencyStore)
		service := NewLedgerService(NewNoOpTransactionScope(boxes, txs), nil, store, shared.DefaultIdempotencyConfig(), nil)
		acting := shared.NewActingContext(uuid.New(), uuid.New())

		box, err := ledger.NewDefaultCashBox(acting.CompanyID, acting.UserID, "Main")
		require.NoError(t, err)

		store.On("MarkProcessed", mock.Anything, "dep-2", mock.Anything).Return(true, nil)
		boxes.On("FindDefaultForUserForUpdate", mock.Anything, acting.CompanyID, acting.UserID).Return(box, nil)
		boxes.On("Save", mock.Anything, box).Return(nil)
		txs.On("Create", mock.Anything, mock.AnythingOfType("*ledger.Transaction")).Return(nil)

		_, err = service.Deposit(context.Background(), DepositRequest{
			Acting:         acting,
			Amount:         decimal.NewFromInt(100),
			IdempotencyKey: "dep-2",
		})
		assert.NoError(t, err)
	})
}
