package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	failures int
	sent     []string
}

func (f *fakeSender) Send(ctx context.Context, phone, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("provider unavailable")
	}
	f.sent = append(f.sent, phone+":"+message)
	return nil
}

func (f *fakeSender) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestDispatcher(sender SMSSender, attempts int) (*Dispatcher, *MemoryQueue) {
	q := NewMemoryQueue(16)
	q.pollTimeout = 20 * time.Millisecond
	d := NewDispatcher(q, sender, attempts)
	d.backoff = func(int) time.Duration { return 0 }
	return d, q
}

func TestDispatcher_RetriesUntilDelivered(t *testing.T) {
	sender := &fakeSender{failures: 2}
	d, q := newTestDispatcher(sender, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	require.NoError(t, d.Enqueue(ctx, "0501234567", "code 123456"))

	assert.Eventually(t, func() bool { return len(sender.Sent()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, q.DeadLetters())

	cancel()
	<-done
}

func TestDispatcher_MovesToDeadLetterAfterMaxAttempts(t *testing.T) {
	sender := &fakeSender{failures: 100}
	d, q := newTestDispatcher(sender, 3)
	ctx := context.Background()

	job := SMSJob{ID: "job-1", Phone: "0501234567", Message: "hi"}
	for i := 0; i < 3; i++ {
		d.Process(ctx, job)
		if i < 2 {
			next, err := q.Dequeue(ctx)
			require.NoError(t, err)
			require.NotNil(t, next)
			job = *next
		}
	}

	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, 3, dead[0].Attempt)
	assert.Equal(t, "provider unavailable", dead[0].LastError)
	assert.Empty(t, sender.Sent())
}

// phoneSender не доставляет на номера из failing.
type phoneSender struct {
	mu      sync.Mutex
	failing map[string]bool
	sent    []string
}

func (p *phoneSender) Send(ctx context.Context, phone, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing[phone] {
		return errors.New("number unreachable")
	}
	p.sent = append(p.sent, phone)
	return nil
}

func (p *phoneSender) Sent() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.sent...)
}

func TestDispatcher_FailingJobDoesNotBlockQueue(t *testing.T) {
	sender := &phoneSender{failing: map[string]bool{"0500000000": true}}
	d, q := newTestDispatcher(sender, 5)
	d.backoff = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	require.NoError(t, d.Enqueue(ctx, "0500000000", "code 111111"))
	require.NoError(t, d.Enqueue(ctx, "0501234567", "code 222222"))

	// Следующая задача доставляется, пока неудачная ждёт повтора.
	assert.Eventually(t, func() bool { return len(sender.Sent()) == 1 }, 500*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, []string{"0501234567"}, sender.Sent())
	assert.Equal(t, 1, q.Delayed())
	assert.Empty(t, q.DeadLetters())

	cancel()
	<-done
}

func TestDispatcher_ProcessDoesNotSleep(t *testing.T) {
	sender := &fakeSender{failures: 1}
	d, q := newTestDispatcher(sender, 3)
	d.backoff = func(int) time.Duration { return time.Hour }

	start := time.Now()
	d.Process(context.Background(), SMSJob{ID: "job-1", Phone: "0501234567", Message: "hi"})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, q.Delayed())
}

func TestExponentialBackoff(t *testing.T) {
	assert.Equal(t, time.Second, exponentialBackoff(1))
	assert.Equal(t, 4*time.Second, exponentialBackoff(3))
	assert.Equal(t, 30*time.Second, exponentialBackoff(10))
	assert.Equal(t, 30*time.Second, exponentialBackoff(80))
}
