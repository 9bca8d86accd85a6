package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/fieldcrew-backend/internal/dto"
	"github.com/ignatzorin/fieldcrew-backend/internal/http/handlers/common"
	"github.com/ignatzorin/fieldcrew-backend/internal/models"
	"github.com/ignatzorin/fieldcrew-backend/internal/pkg/apperror"
	"github.com/ignatzorin/fieldcrew-backend/internal/service"
	"github.com/ignatzorin/fieldcrew-backend/internal/validation"
)

type Documents interface {
	Resolve(ctx context.Context, scope service.Scope, identifier string) (*service.DocumentView, error)
	Delete(ctx context.Context, scope service.Scope, id uuid.UUID) error
	CreateRemote(ctx context.Context, scope service.Scope, in service.CreateRemoteInput) (*models.Document, error)
	Upload(ctx context.Context, scope service.Scope, workerID uuid.UUID, name, filename string, r io.Reader) (*models.Document, error)
	ListByWorker(ctx context.Context, scope service.Scope, workerID uuid.UUID) ([]models.Document, error)
}

// DocumentHandler - документы работников в админке.
type DocumentHandler struct {
	docs           Documents
	maxUploadBytes int64
}

func NewDocumentHandler(docs Documents, maxUploadMB int64) *DocumentHandler {
	return &DocumentHandler{docs: docs, maxUploadBytes: maxUploadMB * 1024 * 1024}
}

// adminScope возвращает ограничение по клиенту текущего администратора.
func adminScope(c *gin.Context) (service.Scope, bool) {
	claims, err := common.CurrentAdmin(c)
	if err != nil {
		common.RespondError(c, apperror.ErrUnauthorized)
		return service.Scope{}, false
	}
	return claims.Scope(), true
}

// Get GET /api/documents/:identifier
func (h *DocumentHandler) Get(c *gin.Context) {
	scope, ok := adminScope(c)
	if !ok {
		return
	}

	identifier := c.Param("identifier")
	if err := validation.ValidateIdentifier(identifier); err != nil {
		common.RespondError(c, apperror.ErrDocumentNotFound)
		return
	}

	view, err := h.docs.Resolve(c.Request.Context(), scope, identifier)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DocumentViewResponse{OK: true, DocumentView: view})
}

// Delete DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	scope, ok := adminScope(c)
	if !ok {
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "Invalid document id.")
		return
	}

	if err := h.docs.Delete(c.Request.Context(), scope, id); err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondOK(c)
}

// CreateRemote POST /api/documents/remote
func (h *DocumentHandler) CreateRemote(c *gin.Context) {
	scope, ok := adminScope(c)
	if !ok {
		return
	}

	var req dto.CreateRemoteDocumentRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	workerID, err := uuid.Parse(req.WorkerID)
	if err != nil {
		common.RespondBadRequest(c, "Invalid worker_id.")
		return
	}
	templateID, err := uuid.Parse(req.TemplateID)
	if err != nil {
		common.RespondBadRequest(c, "Invalid template_id.")
		return
	}

	doc, err := h.docs.CreateRemote(c.Request.Context(), scope, service.CreateRemoteInput{
		WorkerID:    workerID,
		TemplateID:  templateID,
		Name:        req.Name,
		Password:    req.Password,
		RequiresOTP: req.RequiresOTP,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.DocumentResponse{OK: true, Document: doc})
}

// Upload POST /api/documents/upload (multipart: worker_id, name, file)
func (h *DocumentHandler) Upload(c *gin.Context) {
	scope, ok := adminScope(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1024*1024)

	workerID, err := uuid.Parse(c.PostForm("worker_id"))
	if err != nil {
		common.RespondBadRequest(c, "Invalid worker_id.")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "Field file is required.")
		return
	}
	if file.Size == 0 {
		common.RespondBadRequest(c, "The file is empty.")
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = file.Filename
	}

	src, err := file.Open()
	if err != nil {
		common.RespondError(c, apperror.Internal(err))
		return
	}
	defer src.Close()

	doc, err := h.docs.Upload(c.Request.Context(), scope, workerID, name, file.Filename, src)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.DocumentResponse{OK: true, Document: doc})
}

// ListByWorker GET /api/workers/:id/documents
func (h *DocumentHandler) ListByWorker(c *gin.Context) {
	scope, ok := adminScope(c)
	if !ok {
		return
	}

	workerID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "Invalid worker id.")
		return
	}

	docs, err := h.docs.ListByWorker(c.Request.Context(), scope, workerID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DocumentListResponse{OK: true, Documents: docs})
}
