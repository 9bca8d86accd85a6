package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ignatzorin/fieldcrew-backend/internal/config"
	"github.com/ignatzorin/fieldcrew-backend/internal/logger"
	"github.com/ignatzorin/fieldcrew-backend/internal/notify"
)

// sms-worker доставляет SMS из очереди Redis отдельно от HTTP сервера
// (в сервере тогда SMS_WORKER_INLINE=false).
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("sms-worker: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.Env)

	if !cfg.RedisEnabled() {
		logger.Log.Fatal("sms-worker: REDIS_ADDR обязателен, очередь в памяти доступна только внутри сервера")
	}

	stack, err := notify.NewStack(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("sms-worker: %v", err)
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Log.WithError(err).Warn("sms-worker: ошибка закрытия Redis")
		}
	}()

	if err := stack.Dispatcher.Run(ctx); err != nil {
		logger.Log.WithError(err).Error("sms-worker: диспетчер завершился с ошибкой")
	}
}
