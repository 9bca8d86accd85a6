package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// SMSJob - задача на отправку одного SMS.
type SMSJob struct {
	ID         string    `json:"id"`
	Phone      string    `json:"phone"`
	Message    string    `json:"message"`
	Attempt    int       `json:"attempt"`
	LastError  string    `json:"last_error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue - очередь задач на отправку SMS.
// Dequeue возвращает nil без ошибки, если за время ожидания задач не появилось.
// Retry откладывает задачу до момента at, не занимая читателя очереди.
type Queue interface {
	Enqueue(ctx context.Context, job SMSJob) error
	Dequeue(ctx context.Context) (*SMSJob, error)
	Retry(ctx context.Context, job SMSJob, at time.Time) error
	DeadLetter(ctx context.Context, job SMSJob) error
}

// promoteBatch - сколько отложенных задач переносится в очередь за один Dequeue.
const promoteBatch = 100

// promoteScript атомарно переносит наступившие задачи из ZSET в список,
// чтобы два воркера не забрали одну задачу.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, job in ipairs(due) do
	redis.call('ZREM', KEYS[1], job)
	redis.call('LPUSH', KEYS[2], job)
end
return #due
`)

// RedisQueue хранит задачи в списке Redis: LPUSH на запись, BRPOP на чтение.
// Отложенные повторы лежат в ZSET с временем запуска в качестве score.
type RedisQueue struct {
	client      *redis.Client
	name        string
	pollTimeout time.Duration
}

// NewRedisClient подключается к Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis: не удалось подключиться: %w", err)
	}
	return rdb, nil
}

// NewRedisQueue создаёт очередь поверх готового клиента.
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	return &RedisQueue{client: client, name: name, pollTimeout: 5 * time.Second}
}

// DeadLetterName возвращает имя списка для задач, исчерпавших попытки.
func (q *RedisQueue) DeadLetterName() string {
	return q.name + ":dlq"
}

// DelayedName возвращает имя ZSET с отложенными повторами.
func (q *RedisQueue) DelayedName() string {
	return q.name + ":delayed"
}

func (q *RedisQueue) Enqueue(ctx context.Context, job SMSJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: не удалось сериализовать задачу: %w", err)
	}
	if err := q.client.LPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("queue: не удалось поставить задачу: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*SMSJob, error) {
	wait, err := q.promoteDue(ctx)
	if err != nil {
		return nil, err
	}

	result, err := q.client.BRPop(ctx, wait, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue: не удалось получить задачу: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}

	var job SMSJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("queue: повреждённая задача: %w", err)
	}
	return &job, nil
}

// promoteDue переносит наступившие повторы в очередь и возвращает,
// сколько ждать в BRPOP до следующего повтора.
func (q *RedisQueue) promoteDue(ctx context.Context) (time.Duration, error) {
	now := time.Now()
	keys := []string{q.DelayedName(), q.name}
	if err := promoteScript.Run(ctx, q.client, keys, now.UnixMilli(), promoteBatch).Err(); err != nil {
		return 0, fmt.Errorf("queue: не удалось перенести отложенные задачи: %w", err)
	}

	wait := q.pollTimeout
	next, err := q.client.ZRangeWithScores(ctx, q.DelayedName(), 0, 0).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: не удалось прочитать отложенные задачи: %w", err)
	}
	if len(next) == 1 {
		if until := time.UnixMilli(int64(next[0].Score)).Sub(now); until < wait {
			wait = until
		}
	}
	// go-redis v8 передаёт таймаут BRPOP в секундах, 0 означает ожидание без конца
	if wait < time.Second {
		wait = time.Second
	}
	return wait, nil
}

func (q *RedisQueue) Retry(ctx context.Context, job SMSJob, at time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: не удалось сериализовать задачу: %w", err)
	}
	z := &redis.Z{Score: float64(at.UnixMilli()), Member: data}
	if err := q.client.ZAdd(ctx, q.DelayedName(), z).Err(); err != nil {
		return fmt.Errorf("queue: не удалось отложить задачу: %w", err)
	}
	return nil
}

// DelayedCount возвращает число отложенных повторов.
func (q *RedisQueue) DelayedCount(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.DelayedName()).Result()
}

func (q *RedisQueue) DeadLetter(ctx context.Context, job SMSJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: не удалось сериализовать задачу: %w", err)
	}
	return q.client.LPush(ctx, q.DeadLetterName(), data).Err()
}

// DeadLetterCount возвращает число задач в DLQ.
func (q *RedisQueue) DeadLetterCount(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.DeadLetterName()).Result()
}

// RequeueDeadLetters возвращает задачи из DLQ в основную очередь со сброшенным счётчиком попыток.
// limit <= 0 - перенести все.
func (q *RedisQueue) RequeueDeadLetters(ctx context.Context, limit int) (int, error) {
	moved := 0
	for limit <= 0 || moved < limit {
		raw, err := q.client.RPop(ctx, q.DeadLetterName()).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, fmt.Errorf("queue: не удалось прочитать DLQ: %w", err)
		}

		var job SMSJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			return moved, fmt.Errorf("queue: повреждённая задача в DLQ: %w", err)
		}
		job.Attempt = 0
		job.LastError = ""
		if err := q.Enqueue(ctx, job); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// MemoryQueue - очередь в памяти процесса для development и тестов.
type MemoryQueue struct {
	jobs        chan SMSJob
	pollTimeout time.Duration

	mu      sync.Mutex
	delayed []delayedJob
	dead    []SMSJob
}

type delayedJob struct {
	job SMSJob
	at  time.Time
}

// NewMemoryQueue создаёт очередь с буфером size.
func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{jobs: make(chan SMSJob, size), pollTimeout: time.Second}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job SMSJob) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("queue: очередь переполнена")
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*SMSJob, error) {
	timer := time.NewTimer(q.promoteDue(time.Now()))
	defer timer.Stop()

	select {
	case job := <-q.jobs:
		return &job, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// promoteDue переносит наступившие повторы в канал и возвращает время ожидания до следующего.
func (q *MemoryQueue) promoteDue(now time.Time) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	wait := q.pollTimeout
	pending := q.delayed[:0]
	for _, d := range q.delayed {
		if !d.at.After(now) {
			select {
			case q.jobs <- d.job:
				continue
			default:
			}
		}
		pending = append(pending, d)
		if until := d.at.Sub(now); until < wait {
			wait = until
		}
	}
	q.delayed = pending

	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

func (q *MemoryQueue) Retry(ctx context.Context, job SMSJob, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.delayed = append(q.delayed, delayedJob{job: job, at: at})
	return nil
}

// Delayed возвращает число отложенных повторов.
func (q *MemoryQueue) Delayed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.delayed)
}

func (q *MemoryQueue) DeadLetter(ctx context.Context, job SMSJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, job)
	return nil
}

// DeadLetters возвращает копию задач, исчерпавших попытки.
func (q *MemoryQueue) DeadLetters() []SMSJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]SMSJob(nil), q.dead...)
}
