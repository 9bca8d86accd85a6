package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/fieldcrew-backend/internal/logger"
)

// Dispatcher ставит SMS в очередь и доставляет их в фоне с повторами.
type Dispatcher struct {
	queue       Queue
	sender      SMSSender
	maxAttempts int
	backoff     func(attempt int) time.Duration
}

// NewDispatcher создаёт диспетчер. maxAttempts < 1 трактуется как одна попытка.
func NewDispatcher(queue Queue, sender SMSSender, maxAttempts int) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		queue:       queue,
		sender:      sender,
		maxAttempts: maxAttempts,
		backoff:     exponentialBackoff,
	}
}

// Enqueue ставит сообщение в очередь и сразу возвращает управление.
func (d *Dispatcher) Enqueue(ctx context.Context, phone, message string) error {
	return d.queue.Enqueue(ctx, SMSJob{
		ID:         uuid.NewString(),
		Phone:      phone,
		Message:    message,
		EnqueuedAt: time.Now().UTC(),
	})
}

// Run обрабатывает очередь до отмены контекста.
func (d *Dispatcher) Run(ctx context.Context) error {
	logger.Log.Info("sms dispatcher: запущен")
	for {
		if err := ctx.Err(); err != nil {
			logger.Log.Info("sms dispatcher: остановлен")
			return nil
		}

		job, err := d.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Log.WithError(err).Error("sms dispatcher: ошибка чтения очереди")
			d.sleep(ctx, time.Second)
			continue
		}
		if job == nil {
			continue
		}

		d.Process(ctx, *job)
	}
}

// Process выполняет одну попытку доставки и решает судьбу задачи при ошибке.
// Process не блокируется на время backoff.
func (d *Dispatcher) Process(ctx context.Context, job SMSJob) {
	job.Attempt++
	log := logger.Log.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"attempt": job.Attempt,
	})

	err := d.sender.Send(ctx, job.Phone, job.Message)
	if err == nil {
		log.Debug("sms dispatcher: сообщение доставлено")
		return
	}

	job.LastError = err.Error()
	if job.Attempt >= d.maxAttempts {
		log.WithError(err).Error("sms dispatcher: попытки исчерпаны, задача перемещена в DLQ")
		if dlqErr := d.queue.DeadLetter(ctx, job); dlqErr != nil {
			log.WithError(dlqErr).Error("sms dispatcher: не удалось записать задачу в DLQ")
		}
		return
	}

	// Повтор откладывается в очереди, цикл сразу берёт следующую задачу.
	retryAt := time.Now().Add(d.backoff(job.Attempt))
	log.WithError(err).WithField("retry_at", retryAt).Warn("sms dispatcher: доставка не удалась, повтор отложен")
	if err := d.queue.Retry(context.WithoutCancel(ctx), job, retryAt); err != nil {
		log.WithError(err).Error("sms dispatcher: не удалось отложить повтор")
	}
}

func (d *Dispatcher) sleep(ctx context.Context, dur time.Duration) {
	if dur <= 0 {
		return
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// exponentialBackoff: 1s, 2s, 4s ... но не больше 30s.
func exponentialBackoff(attempt int) time.Duration {
	d := time.Second << (attempt - 1)
	if d > 30*time.Second || d <= 0 {
		return 30 * time.Second
	}
	return d
}
