package models

import (
	"time"

	"github.com/google/uuid"
)

// Asset описывает сохранённый файл. Path - ключ в хранилище.
type Asset struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Path        string    `db:"path" json:"path"`
	ContentType string    `db:"content_type" json:"content_type"`
	Size        int64     `db:"size" json:"size"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Template - шаблон формы, из которого создаются удалённые документы.
type Template struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	AssetID   uuid.UUID `db:"asset_id" json:"asset_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
