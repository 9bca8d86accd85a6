package handlers

import (
	"context"
	"errors"
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

type RemoteDocuments interface {
	CheckPassword(ctx context.Context, slug, password, previous string) (*service.AccessGrant, error)
	SigningPayload(ctx context.Context, slug, grant string) (*service.SigningPayload, error)
	MarkRead(ctx context.Context, slug, grant string) error
	Submit(ctx context.Context, slug string, assetID uuid.UUID, grant string) error
	SubmitUpload(ctx context.Context, slug, filename string, r io.Reader, grant string) (*models.Asset, error)
}

type OneTimeCodes interface {
	Request(ctx context.Context, slug, phone string) error
	Validate(ctx context.Context, slug, code, previous string) (*service.AccessGrant, error)
}

// RemoteDocumentHandler обслуживает публичные ссылки на документы.
type RemoteDocumentHandler struct {
	docs           RemoteDocuments
	otp            OneTimeCodes
	maxUploadBytes int64
}

func NewRemoteDocumentHandler(docs RemoteDocuments, otp OneTimeCodes, maxUploadMB int64) *RemoteDocumentHandler {
	return &RemoteDocumentHandler{docs: docs, otp: otp, maxUploadBytes: maxUploadMB * 1024 * 1024}
}

// slugParam достаёт и проверяет :slug.
func slugParam(c *gin.Context) (string, bool) {
	slug := c.Param("slug")
	if err := validation.ValidateIdentifier(slug); err != nil {
		// Кривой slug неотличим от несуществующего документа
		common.RespondError(c, apperror.ErrDocumentNotFound)
		return "", false
	}
	return slug, true
}

// Payload GET /api/remote-documents/:slug
func (h *RemoteDocumentHandler) Payload(c *gin.Context) {
	slug, ok := slugParam(c)
	if !ok {
		return
	}

	payload, err := h.docs.SigningPayload(c.Request.Context(), slug, common.DocumentGrant(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SigningPayloadResponse{OK: true, SigningPayload: payload})
}

// CheckPassword POST /api/remote-documents/:slug/password
func (h *RemoteDocumentHandler) CheckPassword(c *gin.Context) {
	slug, ok := slugParam(c)
	if !ok {
		return
	}

	var req dto.CheckPasswordRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	grant, err := h.docs.CheckPassword(c.Request.Context(), slug, req.Password, common.DocumentGrant(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewGrantResponse(grant))
}

// RequestOTP POST /api/remote-documents/:slug/otp
func (h *RemoteDocumentHandler) RequestOTP(c *gin.Context) {
	slug, ok := slugParam(c)
	if !ok {
		return
	}

	var req dto.RequestOTPRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	if err := h.otp.Request(c.Request.Context(), slug, req.Phone); err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondOK(c)
}

// VerifyOTP POST /api/remote-documents/:slug/otp/verify
func (h *RemoteDocumentHandler) VerifyOTP(c *gin.Context) {
	slug, ok := slugParam(c)
	if !ok {
		return
	}

	var req dto.VerifyOTPRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	grant, err := h.otp.Validate(c.Request.Context(), slug, req.Code, common.DocumentGrant(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewGrantResponse(grant))
}

// MarkRead POST /api/remote-documents/:slug/read
func (h *RemoteDocumentHandler) MarkRead(c *gin.Context) {
	slug, ok := slugParam(c)
	if !ok {
		return
	}

	if err := h.docs.MarkRead(c.Request.Context(), slug, common.DocumentGrant(c)); err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondOK(c)
}

// Submit POST /api/remote-documents/:slug/submit
func (h *RemoteDocumentHandler) Submit(c *gin.Context) {
	slug, ok := slugParam(c)
	if !ok {
		return
	}

	var req dto.SubmitDocumentRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}
	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		common.RespondBadRequest(c, "asset_id must be a valid UUID.")
		return
	}

	if err := h.docs.Submit(c.Request.Context(), slug, assetID, common.DocumentGrant(c)); err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondOK(c)
}

// Upload POST /api/remote-documents/:slug/upload (multipart, поле file)
func (h *RemoteDocumentHandler) Upload(c *gin.Context) {
	slug, ok := slugParam(c)
	if !ok {
		return
	}

	// Запас на заголовки multipart
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1024*1024)

	file, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.RespondBadRequest(c, "The file is too large.")
			return
		}
		common.RespondBadRequest(c, "Field file is required.")
		return
	}
	if file.Size == 0 {
		common.RespondBadRequest(c, "The file is empty.")
		return
	}

	src, err := file.Open()
	if err != nil {
		common.RespondError(c, apperror.Internal(err))
		return
	}
	defer src.Close()

	asset, err := h.docs.SubmitUpload(c.Request.Context(), slug, file.Filename, src, common.DocumentGrant(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.AssetResponse{OK: true, Asset: asset})
}
