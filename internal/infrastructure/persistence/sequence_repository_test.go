package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGormSequenceRepository_NextSerial(t *testing.T) {
	t.Run("creates the counter at 1 on first use", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormSequenceRepository(gormDB)

		companyID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "invoice_sequences" WHERE company_id = \$1 AND type_code = \$2 .* FOR UPDATE`).
			WithArgs(companyID, "sale", 1).
			WillReturnError(gorm.ErrRecordNotFound)
		mock.ExpectExec(`INSERT INTO "invoice_sequences"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		serial, err := repo.NextSerial(context.Background(), companyID, "sale")

		require.NoError(t, err)
		assert.Equal(t, int64(1), serial)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("increments an existing counter under lock", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormSequenceRepository(gormDB)

		companyID := uuid.New()
		seqID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "company_id", "type_code", "last_serial"}).
			AddRow(seqID, companyID, "sale", int64(41))

		mock.ExpectQuery(`SELECT \* FROM "invoice_sequences" WHERE company_id = \$1 AND type_code = \$2 .* FOR UPDATE`).
			WithArgs(companyID, "sale", 1).
			WillReturnRows(rows)
		mock.ExpectExec(`UPDATE "invoice_sequences" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		serial, err := repo.NextSerial(context.Background(), companyID, "sale")

		require.NoError(t, err)
		assert.Equal(t, int64(42), serial)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockBatchRepository_FindByVariantForUpdate(t *testing.T) {
	t.Run("locks batches in creation order", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormStockBatchRepository(gormDB)

		companyID := uuid.New()
		variantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "stock_batches" WHERE company_id = \$1 AND variant_id = \$2 ORDER BY created_at ASC, id ASC FOR UPDATE`).
			WithArgs(companyID, variantID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "variant_id"}))

		batches, err := repo.FindByVariantForUpdate(context.Background(), companyID, variantID)

		require.NoError(t, err)
		assert.Empty(t, batches)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
