package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/fieldcrew-backend/internal/config"
	"github.com/ignatzorin/fieldcrew-backend/internal/db"
	"github.com/ignatzorin/fieldcrew-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/fieldcrew-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/fieldcrew-backend/internal/http/router"
	"github.com/ignatzorin/fieldcrew-backend/internal/logger"
	"github.com/ignatzorin/fieldcrew-backend/internal/notify"
	"github.com/ignatzorin/fieldcrew-backend/internal/repository"
	"github.com/ignatzorin/fieldcrew-backend/internal/service"
	"github.com/ignatzorin/fieldcrew-backend/internal/storage"
	"github.com/ignatzorin/fieldcrew-backend/internal/ws"
)

// otpPurgeInterval - как часто чистить просроченные коды.
const otpPurgeInterval = 15 * time.Minute

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.Env)

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Хранилище файлов и очередь SMS.
	files, localFiles, err := storage.New(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("main: не удалось подготовить хранилище: %v", err)
	}

	sms, err := notify.NewStack(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("main: не удалось подготовить очередь SMS: %v", err)
	}
	defer func() {
		if err := sms.Close(); err != nil {
			logger.Log.WithError(err).Warn("main: ошибка закрытия Redis")
		}
	}()

	var background goroutine.Group
	defer background.Wait()

	// Без Redis очередь живёт в памяти, и отдельный воркер её не увидит.
	if cfg.SMS.WorkerInline || !cfg.RedisEnabled() {
		background.Go(ctx, "sms-dispatcher", sms.Dispatcher.Run)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	grants := service.NewAccessGrantManager(cfg.GrantSecret, cfg.GrantTTL)

	// Репозитории.
	documentRepo := repository.NewDocumentRepository(dbConn)
	assetRepo := repository.NewAssetRepository(dbConn)
	workerRepo := repository.NewWorkerRepository(dbConn)
	codeRepo := repository.NewOneTimeCodeRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	background.Go(ctx, "ws-hub", func(ctx context.Context) error {
		hub.Run(ctx)
		return nil
	})

	// Сервисы.
	remoteService := service.NewRemoteDocumentService(documentRepo, assetRepo, files, grants, hub, cfg.SignedURLTTL)
	otpService := service.NewOTPService(documentRepo, codeRepo, sms.Dispatcher, grants, cfg.OTPTTL)
	documentService := service.NewDocumentService(documentRepo, workerRepo, files, cfg.SignedURLTTL)

	if cfg.OTPTTL > 0 {
		background.Go(ctx, "otp-purge", func(ctx context.Context) error {
			otpService.RunPurge(ctx, otpPurgeInterval)
			return nil
		})
	}

	// HTTP хэндлеры.
	h := httpRouter.Handlers{
		RemoteDocuments: httpHandlers.NewRemoteDocumentHandler(remoteService, otpService, cfg.MaxUploadSizeMB),
		Documents:       httpHandlers.NewDocumentHandler(documentService, cfg.MaxUploadSizeMB),
		WS:              httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Health: httpHandlers.NewHealthHandler(dbConn, map[string]httpHandlers.Probe{
			"redis": sms.Ping,
		}),
	}
	if localFiles != nil {
		h.Files = httpHandlers.NewFileHandler(localFiles)
	}

	engine := httpRouter.SetupRouter(cfg, h, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	}()

	logger.Log.WithField("port", cfg.HTTPPort).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.WithError(err).Warn("main: ошибка закрытия базы")
	}
}
