package notify

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/ignatzorin/fieldcrew-backend/internal/config"
	"github.com/ignatzorin/fieldcrew-backend/internal/logger"
)

// memoryQueueSize - буфер очереди в памяти, когда Redis не настроен.
const memoryQueueSize = 256

// Stack - очередь и отправитель SMS, собранные из конфигурации.
type Stack struct {
	Queue      Queue
	Sender     SMSSender
	Dispatcher *Dispatcher
	Redis      *redis.Client
}

// NewStack выбирает очередь (Redis или память) и провайдера SMS.
// Без SMS_PROVIDER_URL сообщения только пишутся в лог.
func NewStack(ctx context.Context, cfg *config.Config) (*Stack, error) {
	stack := &Stack{}

	if cfg.RedisEnabled() {
		client, err := NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		stack.Redis = client
		stack.Queue = NewRedisQueue(client, cfg.Redis.Queue)
	} else {
		logger.Log.Warn("notify: REDIS_ADDR не задан, очередь SMS хранится в памяти процесса")
		stack.Queue = NewMemoryQueue(memoryQueueSize)
	}

	if cfg.SMS.ProviderURL != "" {
		stack.Sender = NewHTTPSMSClient(cfg.SMS.ProviderURL, cfg.SMS.APIKey, cfg.SMS.Sender)
	} else {
		logger.Log.Warn("notify: SMS_PROVIDER_URL не задан, SMS пишутся в лог")
		stack.Sender = LogSMSSender{}
	}

	stack.Dispatcher = NewDispatcher(stack.Queue, stack.Sender, cfg.SMS.MaxAttempts)
	return stack, nil
}

// Ping проверяет соединение с Redis, если он используется.
func (s *Stack) Ping(ctx context.Context) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Ping(ctx).Err()
}

// Close закрывает соединение с Redis.
func (s *Stack) Close() error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Close()
}
