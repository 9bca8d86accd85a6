package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/fieldcrew-backend/internal/http/handlers/common"
	"github.com/ignatzorin/fieldcrew-backend/internal/http/middleware"
	"github.com/ignatzorin/fieldcrew-backend/internal/logger"
	"github.com/ignatzorin/fieldcrew-backend/internal/pkg/apperror"
	"github.com/ignatzorin/fieldcrew-backend/internal/service"
	"github.com/ignatzorin/fieldcrew-backend/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений администраторов.
type WSHandler struct {
	hub          *ws.Hub
	tokenManager *service.TokenManager
	upgrader     websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер.
func NewWSHandler(hub *ws.Hub, tokens *service.TokenManager, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:          hub,
		tokenManager: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// Handle обслуживает GET /api/ws?token=...
// Браузер не умеет передавать заголовки при апгрейде, поэтому токен приходит в query.
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		common.RespondError(c, apperror.ErrUnauthorized)
		return
	}

	claims, err := h.tokenManager.ParseAccess(rawToken)
	if err != nil {
		common.RespondError(c, apperror.New(apperror.ErrCodeUnauthorized, "Invalid access token."))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrader уже ответил клиенту
		logger.Log.WithError(err).Debug("ws: апгрейд не удался")
		return
	}

	tenantID := uuid.Nil
	if claims.ClientID != nil {
		tenantID = *claims.ClientID
	}

	client := ws.NewClient(conn, h.hub, claims.UserID, tenantID)
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}

	client.Run(c.Request.Context())
}
