package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/hwmix/backend/internal/domain/ledger"
	"github.com/hwmix/backend/internal/domain/shared"
)

// newMockDB creates a GORM DB backed by a mocked SQL connection
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func cashBoxRows(box *ledger.CashBox) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "created_at", "updated_at", "version", "company_id", "created_by",
		"user_id", "name", "method", "balance", "is_default",
	}).AddRow(
		box.ID, box.CreatedAt, box.UpdatedAt, box.Version, box.CompanyID, box.CreatedBy,
		box.UserID, box.Name, box.Method, box.Balance, box.IsDefault,
	)
}

func TestGormCashBoxRepository_FindByID(t *testing.T) {
	t.Run("finds existing cash box", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormCashBoxRepository(gormDB)

		box, err := ledger.NewCashBox(uuid.New(), uuid.New(), "Till", ledger.CashBoxMethodCash)
		require.NoError(t, err)
		box.Balance = decimal.NewFromInt(150)

		mock.ExpectQuery(`SELECT \* FROM "cash_boxes" WHERE id = \$1 .* LIMIT .*`).
			WithArgs(box.ID, 1).
			WillReturnRows(cashBoxRows(box))

		found, err := repo.FindByID(context.Background(), box.ID)

		require.NoError(t, err)
		assert.Equal(t, box.ID, found.ID)
		assert.True(t, found.Balance.Equal(decimal.NewFromInt(150)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing row to ErrNotFound", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormCashBoxRepository(gormDB)

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "cash_boxes" WHERE id = \$1 .* LIMIT .*`).
			WithArgs(id, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		found, err := repo.FindByID(context.Background(), id)

		assert.Nil(t, found)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCashBoxRepository_FindByIDForUpdate(t *testing.T) {
	t.Run("issues a row-level write lock", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormCashBoxRepository(gormDB)

		box, err := ledger.NewCashBox(uuid.New(), uuid.New(), "Till", ledger.CashBoxMethodCash)
		require.NoError(t, err)

		mock.ExpectQuery(`SELECT \* FROM "cash_boxes" WHERE id = \$1 .* FOR UPDATE`).
			WithArgs(box.ID, 1).
			WillReturnRows(cashBoxRows(box))

		found, err := repo.FindByIDForUpdate(context.Background(), box.ID)

		require.NoError(t, err)
		assert.Equal(t, box.ID, found.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCashBoxRepository_FindByUserAndMethodForUpdate(t *testing.T) {
	t.Run("prefers the default box", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormCashBoxRepository(gormDB)

		companyID := uuid.New()
		userID := uuid.New()
		box, err := ledger.NewDefaultCashBox(companyID, userID, "Main")
		require.NoError(t, err)

		mock.ExpectQuery(`SELECT \* FROM "cash_boxes" WHERE company_id = \$1 AND user_id = \$2 AND method = \$3 ORDER BY is_default DESC, created_at ASC,.* FOR UPDATE`).
			WithArgs(companyID, userID, ledger.CashBoxMethodCash, 1).
			WillReturnRows(cashBoxRows(box))

		found, err := repo.FindByUserAndMethodForUpdate(context.Background(), companyID, userID, ledger.CashBoxMethodCash)

		require.NoError(t, err)
		assert.True(t, found.IsDefault)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTransactionRepository_MarkReversed(t *testing.T) {
	t.Run("stamps an unreversed transaction", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTransactionRepository(gormDB)

		tx, err := ledger.NewDepositTransaction(uuid.New(), uuid.New(), uuid.New(),
			decimal.NewFromInt(100), decimal.Zero)
		require.NoError(t, err)
		require.NoError(t, tx.MarkReversed(tx.CreatedAt))

		mock.ExpectExec(`UPDATE "transactions" SET .* WHERE id = \$\d AND reversed_at IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.MarkReversed(context.Background(), tx)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refuses a second reversal", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTransactionRepository(gormDB)

		tx, err := ledger.NewDepositTransaction(uuid.New(), uuid.New(), uuid.New(),
			decimal.NewFromInt(100), decimal.Zero)
		require.NoError(t, err)
		require.NoError(t, tx.MarkReversed(tx.CreatedAt))

		mock.ExpectExec(`UPDATE "transactions" SET .* WHERE id = \$\d AND reversed_at IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.MarkReversed(context.Background(), tx)

		assert.Equal(t, shared.ErrAlreadyReversed, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
