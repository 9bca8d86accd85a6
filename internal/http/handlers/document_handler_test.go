package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/fieldcrew-backend/internal/http/middleware"
	"github.com/ignatzorin/fieldcrew-backend/internal/models"
	"github.com/ignatzorin/fieldcrew-backend/internal/pkg/apperror"
	"github.com/ignatzorin/fieldcrew-backend/internal/service"
)

type fakeDocuments struct {
	lastScope service.Scope

	resolve      func(identifier string) (*service.DocumentView, error)
	deleteFn     func(id uuid.UUID) error
	createRemote func(in service.CreateRemoteInput) (*models.Document, error)
	upload       func(workerID uuid.UUID, name, filename string, body []byte) (*models.Document, error)
	listByWorker func(workerID uuid.UUID) ([]models.Document, error)
}

func (f *fakeDocuments) Resolve(ctx context.Context, scope service.Scope, identifier string) (*service.DocumentView, error) {
	f.lastScope = scope
	return f.resolve(identifier)
}

func (f *fakeDocuments) Delete(ctx context.Context, scope service.Scope, id uuid.UUID) error {
	f.lastScope = scope
	return f.deleteFn(id)
}

func (f *fakeDocuments) CreateRemote(ctx context.Context, scope service.Scope, in service.CreateRemoteInput) (*models.Document, error) {
	f.lastScope = scope
	return f.createRemote(in)
}

func (f *fakeDocuments) Upload(ctx context.Context, scope service.Scope, workerID uuid.UUID, name, filename string, r io.Reader) (*models.Document, error) {
	f.lastScope = scope
	body, _ := io.ReadAll(r)
	return f.upload(workerID, name, filename, body)
}

func (f *fakeDocuments) ListByWorker(ctx context.Context, scope service.Scope, workerID uuid.UUID) ([]models.Document, error) {
	f.lastScope = scope
	return f.listByWorker(workerID)
}

const testJWTSecret = "handler-test-secret"

func setupDocumentRouter(docs Documents) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewDocumentHandler(docs, 1)

	admin := r.Group("/api")
	admin.Use(middleware.AuthMiddleware(service.NewTokenManager(testJWTSecret, time.Hour)))
	admin.GET("/documents/:identifier", h.Get)
	admin.DELETE("/documents/:id", middleware.UUIDValidator("id"), h.Delete)
	admin.POST("/documents/remote", h.CreateRemote)
	admin.POST("/documents/upload", h.Upload)
	admin.GET("/workers/:id/documents", middleware.UUIDValidator("id"), h.ListByWorker)
	return r
}

func bearer(t *testing.T, claims service.AdminClaims) string {
	t.Helper()
	token, _, err := service.NewTokenManager(testJWTSecret, time.Hour).GenerateAccess(claims)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestDocumentHandler_RequiresAuth(t *testing.T) {
	r := setupDocumentRouter(&fakeDocuments{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/documents/abc123", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDocumentHandler_Get_PassesManagerScope(t *testing.T) {
	clientID := uuid.New()
	docs := &fakeDocuments{
		resolve: func(identifier string) (*service.DocumentView, error) {
			return &service.DocumentView{
				DocumentDetails: &models.DocumentDetails{Document: models.Document{Name: "Contract"}},
				Link:            "http://files/x",
			}, nil
		},
	}
	r := setupDocumentRouter(docs)

	req, _ := http.NewRequest("GET", "/api/documents/abc123", nil)
	req.Header.Set("Authorization", bearer(t, service.AdminClaims{UserID: uuid.New(), Role: service.RoleManager, ClientID: &clientID}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, docs.lastScope.ClientID)
	assert.Equal(t, clientID, *docs.lastScope.ClientID)
	assert.Equal(t, "http://files/x", decodeBody(t, w)["link"])
}

func TestDocumentHandler_Delete(t *testing.T) {
	docID := uuid.New()
	docs := &fakeDocuments{
		deleteFn: func(id uuid.UUID) error {
			if id != docID {
				return apperror.ErrDocumentNotFound
			}
			return nil
		},
	}
	r := setupDocumentRouter(docs)
	auth := bearer(t, service.AdminClaims{UserID: uuid.New(), Role: service.RoleAdmin})

	req, _ := http.NewRequest("DELETE", "/api/documents/"+docID.String(), nil)
	req.Header.Set("Authorization", auth)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, docs.lastScope.ClientID)

	req, _ = http.NewRequest("DELETE", "/api/documents/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", auth)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req, _ = http.NewRequest("DELETE", "/api/documents/not-a-uuid", nil)
	req.Header.Set("Authorization", auth)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_CreateRemote(t *testing.T) {
	workerID, templateID := uuid.New(), uuid.New()
	docs := &fakeDocuments{
		createRemote: func(in service.CreateRemoteInput) (*models.Document, error) {
			assert.Equal(t, workerID, in.WorkerID)
			assert.Equal(t, templateID, in.TemplateID)
			assert.True(t, in.RequiresOTP)
			slug := "Ab3dE6gH9k"
			return &models.Document{ID: uuid.New(), Slug: &slug, Kind: models.DocumentKindRemoteDocument}, nil
		},
	}
	r := setupDocumentRouter(docs)

	req := jsonRequest("POST", "/api/documents/remote",
		`{"worker_id":"`+workerID.String()+`","template_id":"`+templateID.String()+`","name":"Contract","requires_otp":true}`)
	req.Header.Set("Authorization", bearer(t, service.AdminClaims{UserID: uuid.New(), Role: service.RoleAdmin}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	doc := decodeBody(t, w)["document"].(map[string]interface{})
	assert.Equal(t, "Ab3dE6gH9k", doc["slug"])
}

func TestDocumentHandler_Upload(t *testing.T) {
	workerID := uuid.New()
	docs := &fakeDocuments{
		upload: func(gotWorker uuid.UUID, name, filename string, body []byte) (*models.Document, error) {
			assert.Equal(t, workerID, gotWorker)
			assert.Equal(t, "Passport scan", name)
			assert.Equal(t, "scan.png", filename)
			return &models.Document{ID: uuid.New(), Kind: models.DocumentKindUploaded}, nil
		},
	}
	r := setupDocumentRouter(docs)

	buf, contentType := multipartFile(t, map[string]string{"worker_id": workerID.String(), "name": "Passport scan"}, "scan.png", []byte{0x89, 0x50, 0x4E, 0x47})
	req, _ := http.NewRequest("POST", "/api/documents/upload", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearer(t, service.AdminClaims{UserID: uuid.New(), Role: service.RoleAdmin}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestDocumentHandler_ListByWorker_ForeignWorker(t *testing.T) {
	clientID := uuid.New()
	docs := &fakeDocuments{
		listByWorker: func(workerID uuid.UUID) ([]models.Document, error) {
			return nil, apperror.ErrWorkerNotFound
		},
	}
	r := setupDocumentRouter(docs)

	req, _ := http.NewRequest("GET", "/api/workers/"+uuid.NewString()+"/documents", nil)
	req.Header.Set("Authorization", bearer(t, service.AdminClaims{UserID: uuid.New(), Role: service.RoleManager, ClientID: &clientID}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Worker not found.", decodeBody(t, w)["message"])
}
