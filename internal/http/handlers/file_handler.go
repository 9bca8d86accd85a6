package handlers

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/fieldcrew-backend/internal/http/handlers/common"
	"github.com/ignatzorin/fieldcrew-backend/internal/pkg/apperror"
)

// LinkVerifier проверяет подписанную ссылку локального хранилища.
type LinkVerifier interface {
	VerifyLink(key, token string) (string, error)
}

// FileHandler отдаёт файлы локального хранилища по подписанным ссылкам.
type FileHandler struct {
	links LinkVerifier
}

func NewFileHandler(links LinkVerifier) *FileHandler {
	return &FileHandler{links: links}
}

// Serve GET /files/*key?token=...
func (h *FileHandler) Serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	token := c.Query("token")
	if key == "" || token == "" {
		common.RespondError(c, apperror.ErrAssetNotFound)
		return
	}

	path, err := h.links.VerifyLink(key, token)
	if err != nil {
		common.RespondError(c, apperror.New(apperror.ErrCodeForbidden, "The link is invalid or has expired."))
		return
	}

	if _, err := os.Stat(path); err != nil {
		common.RespondError(c, apperror.ErrAssetNotFound)
		return
	}

	c.Header("Cache-Control", "private, no-store")
	c.File(path)
}
