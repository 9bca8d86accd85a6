package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/fieldcrew-backend/internal/models"
	"github.com/ignatzorin/fieldcrew-backend/internal/repository/common"
)

// ErrAssetNotFound сигнализирует об отсутствии файла.
var ErrAssetNotFound = errors.New("asset not found")

// AssetRepository работает с таблицей assets.
type AssetRepository struct {
	db *sqlx.DB
}

// NewAssetRepository создаёт экземпляр.
func NewAssetRepository(db *sqlx.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Create сохраняет запись о файле.
func (r *AssetRepository) Create(ctx context.Context, asset *models.Asset) error {
	return insertAsset(ctx, r.db, asset)
}

// GetByID возвращает запись о файле.
func (r *AssetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	return common.GetByID[models.Asset](ctx, r.db, "assets", id, ErrAssetNotFound)
}

// Delete удаляет запись о файле.
func (r *AssetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return common.DeleteByID(ctx, r.db, "assets", id, ErrAssetNotFound)
}

func insertAsset(ctx context.Context, q sqlx.QueryerContext, asset *models.Asset) error {
	if err := q.QueryRowxContext(ctx, `
		INSERT INTO assets (path, content_type, size)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, asset.Path, asset.ContentType, asset.Size).Scan(&asset.ID, &asset.CreatedAt); err != nil {
		return fmt.Errorf("asset repository: create %w", err)
	}
	return nil
}

func deleteAsset(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	if err := sqlx.GetContext(ctx, q, &asset, `DELETE FROM assets WHERE id = $1 RETURNING *`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("asset repository: delete %w", err)
	}
	return &asset, nil
}
