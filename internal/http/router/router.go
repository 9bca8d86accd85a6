package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/fieldcrew-backend/internal/config"
	"github.com/ignatzorin/fieldcrew-backend/internal/http/handlers"
	"github.com/ignatzorin/fieldcrew-backend/internal/http/middleware"
	"github.com/ignatzorin/fieldcrew-backend/internal/service"
)

// Handlers - все хэндлеры, которые подключает роутер.
// FileHandler задаётся только для локального хранилища.
type Handlers struct {
	RemoteDocuments *handlers.RemoteDocumentHandler
	Documents       *handlers.DocumentHandler
	Files           *handlers.FileHandler
	WS              *handlers.WSHandler
	Health          *handlers.HealthHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	if h.Files != nil {
		r.GET("/files/*key", h.Files.Serve)
	}

	api := r.Group("/api")

	// Публичные ссылки на документы
	remote := api.Group("/remote-documents/:slug")
	remote.Use(middleware.DocumentGrant())
	{
		remote.GET("", h.RemoteDocuments.Payload)
		remote.POST("/read", h.RemoteDocuments.MarkRead)
		remote.POST("/submit", h.RemoteDocuments.Submit)
		remote.POST("/upload", h.RemoteDocuments.Upload)
	}

	// Проверки пароля и кода ограничены по частоте, чтобы их нельзя было перебирать
	gate := api.Group("/remote-documents/:slug")
	gate.Use(middleware.DocumentGrant())
	gate.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		gate.POST("/password", h.RemoteDocuments.CheckPassword)
		gate.POST("/otp", h.RemoteDocuments.RequestOTP)
		gate.POST("/otp/verify", h.RemoteDocuments.VerifyOTP)
	}

	api.GET("/ws", h.WS.Handle)

	admin := api.Group("/")
	admin.Use(middleware.AuthMiddleware(tokenManager))
	{
		admin.GET("/documents/:identifier", h.Documents.Get)
		admin.DELETE("/documents/:id", middleware.UUIDValidator("id"), h.Documents.Delete)
		admin.POST("/documents/remote", h.Documents.CreateRemote)
		admin.POST("/documents/upload", h.Documents.Upload)
		admin.GET("/workers/:id/documents", middleware.UUIDValidator("id"), h.Documents.ListByWorker)
	}

	return r
}
