package service

import (
	"errors"

	"github.com/ignatzorin/fieldcrew-backend/internal/pkg/apperror"
	"github.com/ignatzorin/fieldcrew-backend/internal/repository"
)

// translate приводит ошибки репозиториев к ошибкам, которые можно показать клиенту.
// Всё, что не распознано, становится внутренней ошибкой с исходной причиной для логов.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, repository.ErrDocumentNotFound):
		return apperror.ErrDocumentNotFound
	case errors.Is(err, repository.ErrAlreadySubmitted):
		return apperror.ErrAlreadySubmitted
	case errors.Is(err, repository.ErrAssetInUse):
		return apperror.ErrAssetInUse
	case errors.Is(err, repository.ErrWorkerNotFound):
		return apperror.ErrWorkerNotFound
	case errors.Is(err, repository.ErrTemplateNotFound):
		return apperror.ErrTemplateNotFound
	case errors.Is(err, repository.ErrAssetNotFound):
		return apperror.ErrAssetNotFound
	case errors.Is(err, repository.ErrOneTimeCodeNotFound):
		return apperror.ErrInvalidOTP
	}
	return apperror.Internal(err)
}
