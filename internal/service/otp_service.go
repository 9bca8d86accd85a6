package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/fieldcrew-backend/internal/logger"
	"github.com/ignatzorin/fieldcrew-backend/internal/models"
	"github.com/ignatzorin/fieldcrew-backend/internal/notify"
	"github.com/ignatzorin/fieldcrew-backend/internal/pkg/apperror"
	"github.com/ignatzorin/fieldcrew-backend/internal/validation"
)

// Диапазон кодов: шесть цифр без ведущего нуля.
const (
	otpMin = 100000
	otpMax = 999999
)

type DocumentLocator interface {
	Locate(ctx context.Context, identifier string) (*models.DocumentDetails, error)
}

type OneTimeCodeRepository interface {
	Create(ctx context.Context, workerID uuid.UUID, purpose, code string, expiresAt *time.Time) (*models.OneTimeCode, error)
	Consume(ctx context.Context, workerID uuid.UUID, purpose, code string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SMSQueue ставит SMS в очередь доставки.
type SMSQueue interface {
	Enqueue(ctx context.Context, phone, message string) error
}

// OTPService выдаёт и проверяет одноразовые коды для просмотра документа.
type OTPService struct {
	docs   DocumentLocator
	codes  OneTimeCodeRepository
	sms    SMSQueue
	grants *AccessGrantManager
	ttl    time.Duration
	random func() (string, error)
}

// NewOTPService создаёт сервис. ttl == 0 - коды действуют до использования.
func NewOTPService(docs DocumentLocator, codes OneTimeCodeRepository, sms SMSQueue, grants *AccessGrantManager, ttl time.Duration) *OTPService {
	return &OTPService{
		docs:   docs,
		codes:  codes,
		sms:    sms,
		grants: grants,
		ttl:    ttl,
		random: generateOTP,
	}
}

// Request отправляет код на телефон работника.
// Номер должен в точности совпадать с номером работника, иначе код не выдаётся.
func (s *OTPService) Request(ctx context.Context, slug, phone string) error {
	details, err := s.docs.Locate(ctx, slug)
	if err != nil {
		return translate(err)
	}

	if phone == "" || phone != details.Worker.Phone {
		logger.Op("otp.request").WithField("document_id", details.Document.ID).Warn("номер телефона не совпадает с номером работника")
		return apperror.ErrPhoneMismatch
	}

	code, err := s.random()
	if err != nil {
		return apperror.Internal(err)
	}

	var expiresAt *time.Time
	if s.ttl > 0 {
		exp := time.Now().Add(s.ttl)
		expiresAt = &exp
	}

	if _, err := s.codes.Create(ctx, details.Worker.ID, models.OTPPurposeRemoteDocView, code, expiresAt); err != nil {
		return translate(err)
	}

	if err := s.sms.Enqueue(ctx, details.Worker.Phone, notify.OTPMessage(code)); err != nil {
		return apperror.Internal(fmt.Errorf("otp: постановка SMS в очередь: %w", err))
	}

	logger.Op("otp.request").WithFields(logrus.Fields{
		"document_id": details.Document.ID,
		"worker_id":   details.Worker.ID,
	}).Info("код отправлен в очередь SMS")
	return nil
}

// Validate проверяет код и удаляет его. Повторная проверка того же кода не проходит.
func (s *OTPService) Validate(ctx context.Context, slug, code, previous string) (*AccessGrant, error) {
	if !validation.IsOTPCode(code) {
		return nil, apperror.ErrInvalidOTP
	}

	details, err := s.docs.Locate(ctx, slug)
	if err != nil {
		return nil, translate(err)
	}

	if err := s.codes.Consume(ctx, details.Worker.ID, models.OTPPurposeRemoteDocView, code); err != nil {
		return nil, translate(err)
	}

	grant, err := s.grants.Issue(details.Document.ID, AccessMethodOTP, previous)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return grant, nil
}

// PurgeExpired удаляет просроченные коды.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.codes.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Op("otp.purge").WithField("deleted", n).Debug("просроченные коды удалены")
	}
	return n, nil
}

// RunPurge периодически чистит просроченные коды до отмены контекста.
func (s *OTPService) RunPurge(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PurgeExpired(ctx); err != nil {
				logger.Op("otp.purge").WithError(err).Error("не удалось удалить просроченные коды")
			}
		}
	}
}

// generateOTP равномерно выбирает код из [100000, 999999].
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("otp: генерация кода: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
