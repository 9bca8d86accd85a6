package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/fieldcrew-backend/internal/logger"
	"github.com/ignatzorin/fieldcrew-backend/internal/models"
	"github.com/ignatzorin/fieldcrew-backend/internal/pkg/apperror"
	"github.com/ignatzorin/fieldcrew-backend/internal/storage"
	"github.com/ignatzorin/fieldcrew-backend/internal/validation"
)

// События для администраторов клиента.
const (
	EventRemoteDocumentRead      = "remote_document.read"
	EventRemoteDocumentSubmitted = "remote_document.submitted"
)

type RemoteDocumentRepository interface {
	Locate(ctx context.Context, identifier string) (*models.DocumentDetails, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	Submit(ctx context.Context, id, assetID uuid.UUID) error
}

type AssetRepository interface {
	Create(ctx context.Context, asset *models.Asset) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Asset, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EventPublisher доставляет события администраторам клиента.
type EventPublisher interface {
	BroadcastToTenant(tenantID uuid.UUID, event string, data interface{}) error
}

// SigningPayload - данные для экрана подписания.
// Пока доступ не подтверждён, Link и сведения о работнике не заполняются.
type SigningPayload struct {
	AlreadySubmitted  bool       `json:"already_submitted"`
	AccessRequired    bool       `json:"access_required"`
	DocumentID        uuid.UUID  `json:"document_id"`
	DocumentName      string     `json:"document_name"`
	PasswordProtected bool       `json:"password_protected"`
	RequiresOTP       bool       `json:"requires_otp"`
	CountryCode       string     `json:"country_code"`
	IsRead            bool       `json:"is_read"`
	Link              string     `json:"link,omitempty"`
	LinkExpiresAt     *time.Time `json:"link_expires_at,omitempty"`
	WorkerID          *uuid.UUID `json:"worker_id,omitempty"`
	WorkerName        string     `json:"worker_name,omitempty"`
}

// DocumentEvent - содержимое событий remote_document.*.
type DocumentEvent struct {
	DocumentID uuid.UUID  `json:"document_id"`
	WorkerID   uuid.UUID  `json:"worker_id"`
	Name       string     `json:"name"`
	AssetID    *uuid.UUID `json:"asset_id,omitempty"`
	At         time.Time  `json:"at"`
}

// RemoteDocumentService ведёт документ по публичной ссылке: проверка пароля,
// выдача ссылки на подписание, отметка о прочтении и приём подписанного файла.
type RemoteDocumentService struct {
	docs    RemoteDocumentRepository
	assets  AssetRepository
	files   storage.AssetStorage
	grants  *AccessGrantManager
	events  EventPublisher
	linkTTL time.Duration
}

func NewRemoteDocumentService(
	docs RemoteDocumentRepository,
	assets AssetRepository,
	files storage.AssetStorage,
	grants *AccessGrantManager,
	events EventPublisher,
	linkTTL time.Duration,
) *RemoteDocumentService {
	return &RemoteDocumentService{
		docs:    docs,
		assets:  assets,
		files:   files,
		grants:  grants,
		events:  events,
		linkTTL: linkTTL,
	}
}

// locate находит удалённый документ по slug.
func (s *RemoteDocumentService) locate(ctx context.Context, slug string) (*models.DocumentDetails, error) {
	details, err := s.docs.Locate(ctx, slug)
	if err != nil {
		return nil, translate(err)
	}
	if !details.Document.IsRemote() {
		return nil, apperror.ErrNotRemoteDocument
	}
	return details, nil
}

// CheckPassword сверяет пароль документа. Документ без пароля открывается сразу.
// previous - ранее выданный токен доступа, подтверждённые им методы сохраняются.
func (s *RemoteDocumentService) CheckPassword(ctx context.Context, slug, password, previous string) (*AccessGrant, error) {
	details, err := s.docs.Locate(ctx, slug)
	if err != nil {
		return nil, translate(err)
	}
	doc := &details.Document

	if doc.IsPasswordProtected {
		if doc.PasswordHash == nil {
			return nil, apperror.ErrIncorrectPassword
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*doc.PasswordHash), []byte(password)); err != nil {
			return nil, apperror.ErrIncorrectPassword
		}
	}

	grant, err := s.grants.Issue(doc.ID, AccessMethodPassword, previous)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return grant, nil
}

// SigningPayload возвращает данные для подписания.
// Отправленный документ ссылку не получает никогда, только признак отправки.
func (s *RemoteDocumentService) SigningPayload(ctx context.Context, slug, grant string) (*SigningPayload, error) {
	details, err := s.locate(ctx, slug)
	if err != nil {
		return nil, err
	}
	doc := &details.Document

	payload := &SigningPayload{
		DocumentID:        doc.ID,
		DocumentName:      doc.Name,
		PasswordProtected: doc.IsPasswordProtected,
		RequiresOTP:       doc.RequiresOTP,
		CountryCode:       details.Worker.CountryCode,
		IsRead:            doc.IsRemoteDocRead,
	}

	if doc.IsRemoteDocSubmitted {
		payload.AlreadySubmitted = true
		return payload, nil
	}

	if !s.grants.Covers(grant, doc) {
		payload.AccessRequired = true
		return payload, nil
	}

	source := details.TemplateAsset
	if source == nil {
		source = details.Asset
	}
	if source == nil {
		logger.Op("remote_document.payload").WithField("document_id", doc.ID).Warn("у документа нет файла для подписания")
		return nil, apperror.ErrAssetNotFound
	}

	link, err := s.files.SignedURL(ctx, source.Path, s.linkTTL)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	expiresAt := time.Now().Add(s.linkTTL)
	workerID := details.Worker.ID

	payload.Link = link
	payload.LinkExpiresAt = &expiresAt
	payload.WorkerID = &workerID
	payload.WorkerName = details.Worker.FullName()
	return payload, nil
}

// MarkRead отмечает документ прочитанным. Повторные вызовы не меняют время первого прочтения.
func (s *RemoteDocumentService) MarkRead(ctx context.Context, slug, grant string) error {
	details, err := s.locate(ctx, slug)
	if err != nil {
		return err
	}
	doc := &details.Document

	if !s.grants.Covers(grant, doc) {
		return apperror.ErrAccessRequired
	}

	if err := s.docs.MarkRead(ctx, doc.ID); err != nil {
		return translate(err)
	}

	if !doc.IsRemoteDocRead {
		s.publish(details, EventRemoteDocumentRead, nil)
	}
	return nil
}

// Submit прикрепляет к документу загруженный файл и закрывает отправку.
// Отправленный документ не изменяется.
func (s *RemoteDocumentService) Submit(ctx context.Context, slug string, assetID uuid.UUID, grant string) error {
	details, err := s.locate(ctx, slug)
	if err != nil {
		return err
	}
	doc := &details.Document

	if doc.IsRemoteDocSubmitted {
		return apperror.ErrAlreadySubmitted
	}
	if !s.grants.Covers(grant, doc) {
		return apperror.ErrAccessRequired
	}

	// Файл шаблона и уже привязанные файлы принадлежат другим записям.
	if ownedBy(details, assetID) {
		return apperror.ErrAssetInUse
	}

	if _, err := s.assets.GetByID(ctx, assetID); err != nil {
		return translate(err)
	}

	if err := s.docs.Submit(ctx, doc.ID, assetID); err != nil {
		return translate(err)
	}

	s.publish(details, EventRemoteDocumentSubmitted, &assetID)
	return nil
}

// SubmitUpload сохраняет подписанный файл и отправляет с ним документ.
// Если отправка отклонена, файл и запись о нём удаляются.
func (s *RemoteDocumentService) SubmitUpload(ctx context.Context, slug, filename string, r io.Reader, grant string) (*models.Asset, error) {
	details, err := s.locate(ctx, slug)
	if err != nil {
		return nil, err
	}
	doc := &details.Document

	if doc.IsRemoteDocSubmitted {
		return nil, apperror.ErrAlreadySubmitted
	}
	if !s.grants.Covers(grant, doc) {
		return nil, apperror.ErrAccessRequired
	}

	contentType, body, err := validation.DetectDocumentType(r)
	if err != nil {
		return nil, uploadError(err)
	}

	key, size, err := s.files.Save(ctx, "signed/"+doc.ID.String(), filename, body)
	if err != nil {
		return nil, uploadError(err)
	}

	asset := &models.Asset{Path: key, ContentType: contentType, Size: size}
	if err := s.assets.Create(ctx, asset); err != nil {
		s.removeObject(ctx, key)
		return nil, translate(err)
	}

	if err := s.docs.Submit(ctx, doc.ID, asset.ID); err != nil {
		s.discardAsset(ctx, asset)
		return nil, translate(err)
	}

	s.publish(details, EventRemoteDocumentSubmitted, &asset.ID)
	return asset, nil
}

func (s *RemoteDocumentService) discardAsset(ctx context.Context, asset *models.Asset) {
	if err := s.assets.Delete(ctx, asset.ID); err != nil {
		logger.Op("remote_document.discard").WithError(err).WithField("asset_id", asset.ID).Error("не удалось удалить запись о файле")
	}
	s.removeObject(ctx, asset.Path)
}

func (s *RemoteDocumentService) removeObject(ctx context.Context, key string) {
	if err := s.files.Delete(ctx, key); err != nil {
		logger.Op("remote_document.discard").WithError(err).WithField("key", key).Error("не удалось удалить файл из хранилища")
	}
}

func (s *RemoteDocumentService) publish(details *models.DocumentDetails, event string, assetID *uuid.UUID) {
	if s.events == nil {
		return
	}

	tenantID := uuid.Nil
	if details.Worker.ClientID != nil {
		tenantID = *details.Worker.ClientID
	}

	payload := DocumentEvent{
		DocumentID: details.Document.ID,
		WorkerID:   details.Worker.ID,
		Name:       details.Document.Name,
		AssetID:    assetID,
		At:         time.Now().UTC(),
	}
	if err := s.events.BroadcastToTenant(tenantID, event, payload); err != nil {
		logger.Op("remote_document.publish").WithError(err).WithField("event", event).Warn("не удалось отправить событие")
	}
}

// uploadError переводит ошибки проверки и сохранения файла в ответ клиенту.
func ownedBy(details *models.DocumentDetails, assetID uuid.UUID) bool {
	if details.TemplateAsset != nil && details.TemplateAsset.ID == assetID {
		return true
	}
	return details.Document.AssetID != nil && *details.Document.AssetID == assetID
}

var unsupportedFileMessage = "Accepted file types: " + strings.Join(validation.AllowedDocumentTypes(), ", ") + "."

func uploadError(err error) error {
	switch {
	case errors.Is(err, validation.ErrUnsupportedFile):
		return apperror.Wrap(err, apperror.ErrCodeValidation, unsupportedFileMessage)
	case errors.Is(err, storage.ErrTooLarge):
		return apperror.Wrap(err, apperror.ErrCodeValidation, "The file is too large.")
	}
	return apperror.Internal(err)
}
