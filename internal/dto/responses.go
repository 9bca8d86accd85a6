package dto

import (
	"time"

	"github.com/ignatzorin/fieldcrew-backend/internal/models"
	"github.com/ignatzorin/fieldcrew-backend/internal/service"
)

// ErrorResponse - отказ или ошибка: {ok: false, message}.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// OKResponse - успешный ответ без данных.
type OKResponse struct {
	OK bool `json:"ok"`
}

// GrantResponse - доступ к документу выдан.
type GrantResponse struct {
	OK        bool      `json:"ok"`
	Grant     string    `json:"grant"`
	Methods   []string  `json:"methods"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewGrantResponse собирает ответ из выданного доступа.
func NewGrantResponse(g *service.AccessGrant) GrantResponse {
	return GrantResponse{OK: true, Grant: g.Token, Methods: g.Methods, ExpiresAt: g.ExpiresAt}
}

// SigningPayloadResponse - данные экрана подписания.
type SigningPayloadResponse struct {
	OK bool `json:"ok"`
	*service.SigningPayload
}

// AssetResponse - загруженный файл.
type AssetResponse struct {
	OK    bool          `json:"ok"`
	Asset *models.Asset `json:"asset"`
}

// DocumentResponse - документ.
type DocumentResponse struct {
	OK       bool             `json:"ok"`
	Document *models.Document `json:"document"`
}

// DocumentViewResponse - документ с работником и ссылкой на файл.
type DocumentViewResponse struct {
	OK bool `json:"ok"`
	*service.DocumentView
}

// DocumentListResponse - документы работника.
type DocumentListResponse struct {
	OK        bool              `json:"ok"`
	Documents []models.Document `json:"documents"`
}
