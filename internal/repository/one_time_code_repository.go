package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/fieldcrew-backend/internal/models"
)

// ErrOneTimeCodeNotFound - подходящего действующего кода нет.
var ErrOneTimeCodeNotFound = errors.New("one time code not found")

// OneTimeCodeRepository работает с таблицей one_time_codes.
type OneTimeCodeRepository struct {
	db *sqlx.DB
}

func NewOneTimeCodeRepository(db *sqlx.DB) *OneTimeCodeRepository {
	return &OneTimeCodeRepository{db: db}
}

// Create сохраняет новый код. expiresAt == nil - код бессрочный.
func (r *OneTimeCodeRepository) Create(ctx context.Context, workerID uuid.UUID, purpose, code string, expiresAt *time.Time) (*models.OneTimeCode, error) {
	var otc models.OneTimeCode
	if err := r.db.GetContext(ctx, &otc, `
		INSERT INTO one_time_codes (worker_id, purpose, code, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, workerID, purpose, code, expiresAt); err != nil {
		return nil, fmt.Errorf("one time code repository: create %w", err)
	}
	return &otc, nil
}

// Consume находит самый свежий действующий код и удаляет его одним запросом.
// Из двух одновременных попыток с одним кодом успешна только одна.
func (r *OneTimeCodeRepository) Consume(ctx context.Context, workerID uuid.UUID, purpose, code string) error {
	var id uuid.UUID
	err := r.db.GetContext(ctx, &id, `
		DELETE FROM one_time_codes
		WHERE id = (
			SELECT id FROM one_time_codes
			WHERE worker_id = $1 AND purpose = $2 AND code = $3
				AND (expires_at IS NULL OR expires_at > NOW())
			ORDER BY created_at DESC
			LIMIT 1
		)
		RETURNING id
	`, workerID, purpose, code)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOneTimeCodeNotFound
	}
	if err != nil {
		return fmt.Errorf("one time code repository: consume %w", err)
	}
	return nil
}

// DeleteExpired чистит просроченные коды и возвращает число удалённых.
func (r *OneTimeCodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM one_time_codes WHERE expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("one time code repository: delete expired %w", err)
	}
	return res.RowsAffected()
}
