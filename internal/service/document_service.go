package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/fieldcrew-backend/internal/logger"
	"github.com/ignatzorin/fieldcrew-backend/internal/models"
	"github.com/ignatzorin/fieldcrew-backend/internal/pkg/apperror"
	"github.com/ignatzorin/fieldcrew-backend/internal/repository/common"
	"github.com/ignatzorin/fieldcrew-backend/internal/storage"
	"github.com/ignatzorin/fieldcrew-backend/internal/validation"
)

const (
	slugAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	slugMaxAttempts = 5
)

type DocumentRepository interface {
	Locate(ctx context.Context, identifier string) (*models.DocumentDetails, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID) ([]models.Document, error)
	CreateRemote(ctx context.Context, doc *models.Document) error
	CreateWithAsset(ctx context.Context, doc *models.Document, asset *models.Asset) error
	Delete(ctx context.Context, id uuid.UUID) (*models.Asset, error)
}

type WorkerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*models.Template, error)
}

// Scope ограничивает выборку клиентом администратора. Пустой ClientID - все клиенты.
type Scope struct {
	ClientID *uuid.UUID
}

// Allows сообщает, видит ли администратор работника указанного клиента.
func (s Scope) Allows(clientID *uuid.UUID) bool {
	if s.ClientID == nil {
		return true
	}
	return clientID != nil && *clientID == *s.ClientID
}

// CreateRemoteInput - параметры запроса на удалённое подписание.
type CreateRemoteInput struct {
	WorkerID    uuid.UUID
	TemplateID  uuid.UUID
	Name        string
	Password    string
	RequiresOTP bool
}

// DocumentView - документ для админки со ссылкой на файл.
type DocumentView struct {
	*models.DocumentDetails
	Link string `json:"link,omitempty"`
}

// DocumentService - операции администраторов над документами работников.
type DocumentService struct {
	docs    DocumentRepository
	workers WorkerRepository
	files   storage.AssetStorage
	linkTTL time.Duration
	slugs   func() (string, error)
}

func NewDocumentService(docs DocumentRepository, workers WorkerRepository, files storage.AssetStorage, linkTTL time.Duration) *DocumentService {
	return &DocumentService{
		docs:    docs,
		workers: workers,
		files:   files,
		linkTTL: linkTTL,
		slugs:   generateSlug,
	}
}

// Resolve находит документ по slug или id и выдаёт ссылку на его файл.
func (s *DocumentService) Resolve(ctx context.Context, scope Scope, identifier string) (*DocumentView, error) {
	details, err := s.docs.Locate(ctx, identifier)
	if err != nil {
		return nil, translate(err)
	}
	// Чужие документы выглядят как несуществующие.
	if !scope.Allows(details.Worker.ClientID) {
		return nil, apperror.ErrDocumentNotFound
	}

	view := &DocumentView{DocumentDetails: details}

	source := details.Asset
	if source == nil {
		source = details.TemplateAsset
	}
	if source != nil {
		link, err := s.files.SignedURL(ctx, source.Path, s.linkTTL)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		view.Link = link
	}
	return view, nil
}

// Delete удаляет документ по правилам его типа и затем убирает файл из хранилища.
// Ошибка удаления объекта только логируется: запись уже удалена.
func (s *DocumentService) Delete(ctx context.Context, scope Scope, id uuid.UUID) error {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return translate(err)
	}
	if err := s.checkWorker(ctx, scope, doc.WorkerID); err != nil {
		if apperror.IsNotFound(err) {
			return apperror.ErrDocumentNotFound
		}
		return err
	}

	removed, err := s.docs.Delete(ctx, id)
	if err != nil {
		return translate(err)
	}

	if removed != nil {
		if err := s.files.Delete(ctx, removed.Path); err != nil {
			logger.Op("document.delete").WithError(err).WithField("key", removed.Path).Error("не удалось удалить файл из хранилища")
		}
	}

	logger.Op("document.delete").WithField("document_id", id).Info("документ удалён")
	return nil
}

// CreateRemote создаёт запрос на удалённое подписание со случайным slug.
func (s *DocumentService) CreateRemote(ctx context.Context, scope Scope, in CreateRemoteInput) (*models.Document, error) {
	if err := validation.ValidateDocumentName(in.Name); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "Document name is invalid.")
	}
	if err := s.checkWorker(ctx, scope, in.WorkerID); err != nil {
		return nil, err
	}
	if _, err := s.workers.GetTemplate(ctx, in.TemplateID); err != nil {
		return nil, translate(err)
	}

	templateID := in.TemplateID
	doc := &models.Document{
		Name:        strings.TrimSpace(in.Name),
		WorkerID:    in.WorkerID,
		TemplateID:  &templateID,
		RequiresOTP: in.RequiresOTP,
	}

	if in.Password != "" {
		if err := validation.ValidateDocumentPassword(in.Password); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "Document password is invalid.")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		hashStr := string(hash)
		doc.PasswordHash = &hashStr
		doc.IsPasswordProtected = true
	}

	for attempt := 1; ; attempt++ {
		slug, err := s.slugs()
		if err != nil {
			return nil, apperror.Internal(err)
		}
		doc.Slug = &slug

		err = s.docs.CreateRemote(ctx, doc)
		if err == nil {
			break
		}
		if !common.IsUniqueViolation(err) || attempt >= slugMaxAttempts {
			return nil, translate(err)
		}
		logger.Op("document.create_remote").WithField("attempt", attempt).Warn("коллизия slug, генерируем заново")
	}

	logger.Op("document.create_remote").WithFields(logrus.Fields{
		"document_id": doc.ID,
		"worker_id":   doc.WorkerID,
	}).Info("создан запрос на удалённое подписание")
	return doc, nil
}

// Upload сохраняет файл, загруженный администратором, как документ работника.
func (s *DocumentService) Upload(ctx context.Context, scope Scope, workerID uuid.UUID, name, filename string, r io.Reader) (*models.Document, error) {
	if err := validation.ValidateDocumentName(name); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "Document name is invalid.")
	}
	if err := s.checkWorker(ctx, scope, workerID); err != nil {
		return nil, err
	}

	contentType, body, err := validation.DetectDocumentType(r)
	if err != nil {
		return nil, uploadError(err)
	}

	key, size, err := s.files.Save(ctx, "uploaded/"+workerID.String(), filename, body)
	if err != nil {
		return nil, uploadError(err)
	}

	doc := &models.Document{
		Kind:     models.DocumentKindUploaded,
		Name:     strings.TrimSpace(name),
		WorkerID: workerID,
	}
	asset := &models.Asset{Path: key, ContentType: contentType, Size: size}

	if err := s.docs.CreateWithAsset(ctx, doc, asset); err != nil {
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			logger.Op("document.upload").WithError(delErr).WithField("key", key).Error("не удалось удалить файл после ошибки")
		}
		return nil, translate(err)
	}
	return doc, nil
}

// ListByWorker возвращает документы работника.
func (s *DocumentService) ListByWorker(ctx context.Context, scope Scope, workerID uuid.UUID) ([]models.Document, error) {
	if err := s.checkWorker(ctx, scope, workerID); err != nil {
		return nil, err
	}
	docs, err := s.docs.ListByWorker(ctx, workerID)
	if err != nil {
		return nil, translate(err)
	}
	return docs, nil
}

func (s *DocumentService) checkWorker(ctx context.Context, scope Scope, workerID uuid.UUID) error {
	worker, err := s.workers.GetByID(ctx, workerID)
	if err != nil {
		return translate(err)
	}
	if !scope.Allows(worker.ClientID) {
		return apperror.ErrWorkerNotFound
	}
	return nil
}

// generateSlug возвращает случайную строку из латиницы и цифр.
func generateSlug() (string, error) {
	alphabetSize := big.NewInt(int64(len(slugAlphabet)))
	b := make([]byte, validation.SlugLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("slug: %w", err)
		}
		b[i] = slugAlphabet[n.Int64()]
	}
	return string(b), nil
}
