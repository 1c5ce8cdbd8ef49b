package database

import (
	"context"
	"errors"
	"sacrifice-website/models"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock, *eventLog) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	events := &eventLog{}
	repo := NewRepository(&DB{DB: sqlx.NewDb(mockDB, DriverSQLite), Driver: DriverSQLite}, events)
	t.Cleanup(func() { mockDB.Close() })

	return repo, mock, events
}

func TestRepository_ErrorPaths(t *testing.T) {
	ctx := context.Background()

	t.Run("List error is wrapped", func(t *testing.T) {
		repo, mock, _ := setupMockRepo(t)
		mock.ExpectQuery("SELECT .* FROM sacrifice_animals").WillReturnError(errors.New("connection reset"))

		_, err := repo.ListSacrifices(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list sacrifices")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failed insert rolls back the reservation", func(t *testing.T) {
		repo, mock, events := setupMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE sacrifice_animals SET").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO reservation_transactions").WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := repo.ReserveShares(ctx, &models.ReservationTransaction{
			TransactionID: "EEEEEEEEEEEEEEE1",
			SacrificeID:   "animal",
			ShareCount:    1,
			ExpiresAt:     time.Now().UTC(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insert transaction")
		assert.Empty(t, events.tables())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Commit failure publishes nothing", func(t *testing.T) {
		repo, mock, events := setupMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO change_logs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

		err := repo.InsertChangeLogs(ctx, []models.ChangeLog{{EventID: "e1", TableName: "x", RowID: "1", ChangeType: models.ChangeInsert}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "commit transaction")
		assert.Empty(t, events.tables())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Update with no rows is not found", func(t *testing.T) {
		repo, mock, _ := setupMockRepo(t)
		mock.ExpectExec("UPDATE users SET").WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateUser(ctx, &models.User{ID: "u", Role: models.RoleEditor, Status: models.UserPending})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
