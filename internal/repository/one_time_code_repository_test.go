package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/fieldcrew-backend/internal/models"
)

func TestOneTimeCodeRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOneTimeCodeRepository(db)

	workerID, codeID := uuid.New(), uuid.New()
	expires := time.Now().Add(10 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO one_time_codes")).
		WithArgs(workerID, models.OTPPurposeRemoteDocView, "123456", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "worker_id", "purpose", "code", "expires_at", "created_at"}).
			AddRow(codeID.String(), workerID.String(), models.OTPPurposeRemoteDocView, "123456", expires, time.Now()))

	otc, err := repo.Create(context.Background(), workerID, models.OTPPurposeRemoteDocView, "123456", &expires)
	require.NoError(t, err)
	assert.Equal(t, codeID, otc.ID)
	require.NotNil(t, otc.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOneTimeCodeRepository_Consume(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOneTimeCodeRepository(db)
	workerID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM one_time_codes")).
		WithArgs(workerID, models.OTPPurposeRemoteDocView, "654321").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	// Второй раз тот же код уже удалён.
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM one_time_codes")).
		WithArgs(workerID, models.OTPPurposeRemoteDocView, "654321").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	require.NoError(t, repo.Consume(context.Background(), workerID, models.OTPPurposeRemoteDocView, "654321"))
	assert.ErrorIs(t, repo.Consume(context.Background(), workerID, models.OTPPurposeRemoteDocView, "654321"), ErrOneTimeCodeNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOneTimeCodeRepository_DeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOneTimeCodeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("expires_at <= NOW()")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
