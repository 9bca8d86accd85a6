package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/fieldcrew-backend/internal/models"
	"github.com/ignatzorin/fieldcrew-backend/internal/repository/common"
)

var (
	ErrWorkerNotFound   = errors.New("worker not found")
	ErrTemplateNotFound = errors.New("template not found")
)

// WorkerRepository даёт доступ к работникам и шаблонам, на которые ссылаются документы.
// Полноценный CRUD работников живёт в админке, здесь только чтение.
type WorkerRepository struct {
	db *sqlx.DB
}

func NewWorkerRepository(db *sqlx.DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

func (r *WorkerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error) {
	return common.GetByID[models.Worker](ctx, r.db, "workers", id, ErrWorkerNotFound)
}

func (r *WorkerRepository) GetTemplate(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	return common.GetByID[models.Template](ctx, r.db, "templates", id, ErrTemplateNotFound)
}
