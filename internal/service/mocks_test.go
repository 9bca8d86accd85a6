package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/fieldcrew-backend/internal/models"
)

type mockDocumentRepo struct {
	mock.Mock
}

func (m *mockDocumentRepo) Locate(ctx context.Context, identifier string) (*models.DocumentDetails, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DocumentDetails), args.Error(1)
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Document), args.Error(1)
}

func (m *mockDocumentRepo) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]models.Document, error) {
	args := m.Called(ctx, workerID)
	return args.Get(0).([]models.Document), args.Error(1)
}

func (m *mockDocumentRepo) CreateRemote(ctx context.Context, doc *models.Document) error {
	args := m.Called(ctx, doc)
	if args.Error(0) == nil {
		doc.ID = uuid.New()
		doc.Kind = models.DocumentKindRemoteDocument
	}
	return args.Error(0)
}

func (m *mockDocumentRepo) CreateWithAsset(ctx context.Context, doc *models.Document, asset *models.Asset) error {
	args := m.Called(ctx, doc, asset)
	if args.Error(0) == nil {
		asset.ID = uuid.New()
		doc.ID = uuid.New()
		doc.AssetID = &asset.ID
	}
	return args.Error(0)
}

func (m *mockDocumentRepo) Delete(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Asset), args.Error(1)
}

func (m *mockDocumentRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDocumentRepo) Submit(ctx context.Context, id, assetID uuid.UUID) error {
	return m.Called(ctx, id, assetID).Error(0)
}

type mockAssetRepo struct {
	mock.Mock
}

func (m *mockAssetRepo) Create(ctx context.Context, asset *models.Asset) error {
	args := m.Called(ctx, asset)
	if args.Error(0) == nil {
		asset.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockAssetRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Asset), args.Error(1)
}

func (m *mockAssetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockWorkerRepo struct {
	mock.Mock
}

func (m *mockWorkerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Worker), args.Error(1)
}

func (m *mockWorkerRepo) GetTemplate(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Template), args.Error(1)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Save(ctx context.Context, prefix, originalName string, r io.Reader) (string, int64, error) {
	data, _ := io.ReadAll(r)
	args := m.Called(ctx, prefix, originalName)
	if args.Error(2) != nil {
		return "", 0, args.Error(2)
	}
	return args.String(0), int64(len(data)), nil
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStorage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

type mockCodeRepo struct {
	mock.Mock
}

func (m *mockCodeRepo) Create(ctx context.Context, workerID uuid.UUID, purpose, code string, expiresAt *time.Time) (*models.OneTimeCode, error) {
	args := m.Called(ctx, workerID, purpose, code, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OneTimeCode), args.Error(1)
}

func (m *mockCodeRepo) Consume(ctx context.Context, workerID uuid.UUID, purpose, code string) error {
	return m.Called(ctx, workerID, purpose, code).Error(0)
}

func (m *mockCodeRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockSMSQueue struct {
	mock.Mock
}

func (m *mockSMSQueue) Enqueue(ctx context.Context, phone, message string) error {
	return m.Called(ctx, phone, message).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) BroadcastToTenant(tenantID uuid.UUID, event string, data interface{}) error {
	return m.Called(tenantID, event, data).Error(0)
}
