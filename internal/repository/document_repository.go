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
	"github.com/ignatzorin/fieldcrew-backend/internal/repository/common"
)

var (
	// ErrDocumentNotFound сигнализирует об отсутствии документа.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrAlreadySubmitted возвращается, если удалённый документ уже отправлен.
	ErrAlreadySubmitted = common.ErrAlreadySubmitted
	// ErrAssetInUse - файл уже принадлежит другому документу или шаблону.
	ErrAssetInUse       = errors.New("asset already attached")
)

// DocumentRepository работает с таблицей documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository создаёт экземпляр.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// locateQuery ищет документ по slug или по id одним запросом.
// Совпадение по slug имеет приоритет, пустые и NULL slug старых записей не участвуют.
const locateQuery = `
	SELECT d.*,
		w.id AS w_id, w.client_id AS w_client_id, w.first_name AS w_first_name,
		w.last_name AS w_last_name, w.phone AS w_phone, w.country_code AS w_country_code,
		w.created_at AS w_created_at,
		a.id AS a_id, a.path AS a_path, a.content_type AS a_content_type,
		a.size AS a_size, a.created_at AS a_created_at,
		ta.id AS ta_id, ta.path AS ta_path, ta.content_type AS ta_content_type,
		ta.size AS ta_size, ta.created_at AS ta_created_at
	FROM documents d
	JOIN workers w ON w.id = d.worker_id
	LEFT JOIN assets a ON a.id = d.asset_id
	LEFT JOIN templates t ON t.id = d.template_id
	LEFT JOIN assets ta ON ta.id = t.asset_id
	WHERE (d.slug IS NOT NULL AND d.slug <> '' AND d.slug = $1) OR d.id::text = $1
	ORDER BY CASE WHEN d.slug = $1 THEN 0 ELSE 1 END
	LIMIT 1
`

// locateRow - плоская строка результата locateQuery.
type locateRow struct {
	models.Document

	WID          uuid.UUID  `db:"w_id"`
	WClientID    *uuid.UUID `db:"w_client_id"`
	WFirstName   string     `db:"w_first_name"`
	WLastName    string     `db:"w_last_name"`
	WPhone       string     `db:"w_phone"`
	WCountryCode string     `db:"w_country_code"`
	WCreatedAt   time.Time  `db:"w_created_at"`

	AID          *uuid.UUID `db:"a_id"`
	APath        *string    `db:"a_path"`
	AContentType *string    `db:"a_content_type"`
	ASize        *int64     `db:"a_size"`
	ACreatedAt   *time.Time `db:"a_created_at"`

	TAID          *uuid.UUID `db:"ta_id"`
	TAPath        *string    `db:"ta_path"`
	TAContentType *string    `db:"ta_content_type"`
	TASize        *int64     `db:"ta_size"`
	TACreatedAt   *time.Time `db:"ta_created_at"`
}

func (r locateRow) details() *models.DocumentDetails {
	return &models.DocumentDetails{
		Document: r.Document,
		Worker: models.Worker{
			ID:          r.WID,
			ClientID:    r.WClientID,
			FirstName:   r.WFirstName,
			LastName:    r.WLastName,
			Phone:       r.WPhone,
			CountryCode: r.WCountryCode,
			CreatedAt:   r.WCreatedAt,
		},
		Asset:         joinedAsset(r.AID, r.APath, r.AContentType, r.ASize, r.ACreatedAt),
		TemplateAsset: joinedAsset(r.TAID, r.TAPath, r.TAContentType, r.TASize, r.TACreatedAt),
	}
}

func joinedAsset(id *uuid.UUID, path, contentType *string, size *int64, createdAt *time.Time) *models.Asset {
	if id == nil {
		return nil
	}
	asset := &models.Asset{ID: *id}
	if path != nil {
		asset.Path = *path
	}
	if contentType != nil {
		asset.ContentType = *contentType
	}
	if size != nil {
		asset.Size = *size
	}
	if createdAt != nil {
		asset.CreatedAt = *createdAt
	}
	return asset
}

// Locate находит документ по публичному slug или по идентификатору.
func (r *DocumentRepository) Locate(ctx context.Context, identifier string) (*models.DocumentDetails, error) {
	var row locateRow
	if err := r.db.GetContext(ctx, &row, locateQuery, identifier); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("document repository: locate %w", err)
	}
	return row.details(), nil
}

// GetByID возвращает документ без связанных данных.
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	return common.GetByID[models.Document](ctx, r.db, "documents", id, ErrDocumentNotFound)
}

// ListByWorker возвращает документы работника, новые первыми.
func (r *DocumentRepository) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]models.Document, error) {
	docs := []models.Document{}
	if err := r.db.SelectContext(ctx, &docs, `
		SELECT * FROM documents WHERE worker_id = $1 ORDER BY created_at DESC
	`, workerID); err != nil {
		return nil, fmt.Errorf("document repository: list by worker %w", err)
	}
	return docs, nil
}

// CreateRemote сохраняет запрос на удалённое подписание.
func (r *DocumentRepository) CreateRemote(ctx context.Context, doc *models.Document) error {
	doc.Kind = models.DocumentKindRemoteDocument
	if err := r.db.QueryRowxContext(ctx, `
		INSERT INTO documents (slug, kind, name, worker_id, template_id, password_hash, is_password_protected, requires_otp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`,
		doc.Slug,
		doc.Kind,
		doc.Name,
		doc.WorkerID,
		doc.TemplateID,
		doc.PasswordHash,
		doc.IsPasswordProtected,
		doc.RequiresOTP,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return fmt.Errorf("document repository: create remote %w", err)
	}
	return nil
}

// CreateWithAsset сохраняет файл и документ, который им владеет, в одной транзакции.
func (r *DocumentRepository) CreateWithAsset(ctx context.Context, doc *models.Document, asset *models.Asset) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertAsset(ctx, tx, asset); err != nil {
			return err
		}

		doc.AssetID = &asset.ID
		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO documents (slug, kind, name, worker_id, asset_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`, doc.Slug, doc.Kind, doc.Name, doc.WorkerID, doc.AssetID).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return fmt.Errorf("document repository: create with asset %w", err)
		}
		return nil
	})
}

// MarkRead отмечает документ прочитанным. Повторный вызов безопасен,
// время первого прочтения сохраняется.
func (r *DocumentRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents
		SET is_remote_doc_read = true,
			remote_doc_read_at = COALESCE(remote_doc_read_at, NOW()),
			updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("document repository: mark read %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("document repository: mark read rows %w", err)
	}
	if affected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// Submit атомарно переводит удалённый документ в состояние «отправлен».
// Условие в WHERE исключает гонку двух одновременных отправок: выигрывает ровно одна.
// Файл, уже привязанный к документу или шаблону, не принимается.
func (r *DocumentRepository) Submit(ctx context.Context, id, assetID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents
		SET is_remote_doc_submitted = true,
			asset_id = $2,
			remote_doc_submitted_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND kind = 'REMOTE_DOCUMENT' AND is_remote_doc_submitted = false
			AND NOT EXISTS (SELECT 1 FROM documents WHERE asset_id = $2)
			AND NOT EXISTS (SELECT 1 FROM templates WHERE asset_id = $2)
	`, id, assetID)
	if err != nil {
		// Параллельная отправка другого документа с тем же файлом
		if common.IsUniqueViolation(err) {
			return ErrAssetInUse
		}
		return fmt.Errorf("document repository: submit %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("document repository: submit rows %w", err)
	}
	if affected == 1 {
		return nil
	}

	var state submitState
	if err := r.db.GetContext(ctx, &state, `
		SELECT
			EXISTS(SELECT 1 FROM documents WHERE id = $1 AND kind = 'REMOTE_DOCUMENT') AS found,
			EXISTS(SELECT 1 FROM documents WHERE id = $1 AND is_remote_doc_submitted = false) AS pending,
			(EXISTS(SELECT 1 FROM documents WHERE asset_id = $2)
				OR EXISTS(SELECT 1 FROM templates WHERE asset_id = $2)) AS asset_owned
	`, id, assetID); err != nil {
		return fmt.Errorf("document repository: submit check %w", err)
	}

	switch {
	case !state.Found:
		return ErrDocumentNotFound
	case state.Pending && state.AssetOwned:
		return ErrAssetInUse
	}
	return ErrAlreadySubmitted
}

// submitState объясняет, почему условная отправка не изменила строку.
type submitState struct {
	Found      bool `db:"found"`
	Pending    bool `db:"pending"`
	AssetOwned bool `db:"asset_owned"`
}

// deleteTarget - поля, по которым выбирается стратегия удаления.
type deleteTarget struct {
	Kind                 models.DocumentKind `db:"kind"`
	IsRemoteDocSubmitted bool                `db:"is_remote_doc_submitted"`
	AssetID              *uuid.UUID          `db:"asset_id"`
}

// Delete удаляет документ вместе с принадлежащим ему файлом.
// Неотправленный REMOTE_DOCUMENT файла не имеет, удаляется только строка документа.
// Возвращает удалённый файл, чтобы вызывающий убрал объект из хранилища.
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	var removed *models.Asset

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var target deleteTarget
		if err := tx.GetContext(ctx, &target, `
			SELECT kind, is_remote_doc_submitted, asset_id FROM documents WHERE id = $1 FOR UPDATE
		`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrDocumentNotFound
			}
			return fmt.Errorf("document repository: delete lookup %w", err)
		}

		if err := common.DeleteByID(ctx, tx, "documents", id, ErrDocumentNotFound); err != nil {
			return err
		}

		if target.Kind == models.DocumentKindRemoteDocument && !target.IsRemoteDocSubmitted {
			return nil
		}
		if target.AssetID == nil {
			return nil
		}

		asset, err := deleteAsset(ctx, tx, *target.AssetID)
		if err != nil {
			return err
		}
		removed = asset
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
