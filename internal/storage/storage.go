package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/fieldcrew-backend/internal/config"
)

// ErrTooLarge возвращается, если файл превышает лимит загрузки.
var ErrTooLarge = errors.New("storage: файл превышает допустимый размер")

// AssetStorage хранит файлы документов и выдаёт на них временные ссылки.
type AssetStorage interface {
	Save(ctx context.Context, prefix, originalName string, r io.Reader) (key string, size int64, err error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// buildKey формирует уникальный ключ объекта внутри каталога prefix.
func buildKey(prefix, originalName string) string {
	ext := strings.ToLower(filepath.Ext(sanitizeFilename(originalName)))
	name := fmt.Sprintf("%s_%d%s", uuid.NewString(), time.Now().UnixNano(), ext)
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" || name == "." {
		name = "document"
	}
	return name
}

// New создаёт хранилище по STORAGE_DRIVER. Для локального хранилища второе значение
// не nil: оно нужно хэндлеру, который отдаёт файлы по подписанным ссылкам.
func New(ctx context.Context, cfg *config.Config) (AssetStorage, *LocalStorage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverS3:
		s3Storage, err := NewS3Storage(ctx, cfg.S3, cfg.MaxUploadSizeMB)
		if err != nil {
			return nil, nil, err
		}
		return s3Storage, nil, nil
	default:
		local, err := NewLocalStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB, cfg.PublicBaseURL, cfg.FileLinkSecret)
		if err != nil {
			return nil, nil, err
		}
		return local, local, nil
	}
}
