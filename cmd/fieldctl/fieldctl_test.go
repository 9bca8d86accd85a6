package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/fieldcrew-backend/internal/notify"
	"github.com/ignatzorin/fieldcrew-backend/internal/service"
)

func TestBuildClaims(t *testing.T) {
	userID, clientID := uuid.New(), uuid.New()

	claims, err := buildClaims(userID.String(), service.RoleManager, clientID.String())
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	require.NotNil(t, claims.ClientID)
	assert.Equal(t, clientID, *claims.ClientID)

	claims, err = buildClaims("", service.RoleAdmin, "")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, claims.UserID)
	assert.Nil(t, claims.ClientID)

	_, err = buildClaims("", service.RoleManager, "")
	assert.Error(t, err)

	_, err = buildClaims("", "owner", "")
	assert.Error(t, err)

	_, err = buildClaims("not-a-uuid", service.RoleAdmin, "")
	assert.Error(t, err)
}

func TestTokenCommand_IssuesParsableToken(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "fieldctl-test-secret")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"token", "--role", "admin"})
	require.NoError(t, rootCmd.Execute())

	token := bytes.TrimSpace(out.Bytes())
	claims, err := service.NewTokenManager("fieldctl-test-secret", 0).ParseAccess(string(token))
	require.NoError(t, err)
	assert.Equal(t, service.RoleAdmin, claims.Role)
}

func TestSMSDLQRequeueCommand(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("APP_ENV", "development")
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("SMS_QUEUE", "sms:fieldctl")

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	queue := notify.NewRedisQueue(client, "sms:fieldctl")
	require.NoError(t, queue.DeadLetter(context.Background(), notify.SMSJob{ID: "1", Attempt: 5}))
	require.NoError(t, queue.DeadLetter(context.Background(), notify.SMSJob{ID: "2", Attempt: 5}))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"sms-dlq", "requeue"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "requeued 2 jobs")
	count, err := queue.DeadLetterCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSMSDLQCommand_ShowsDelayedRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("APP_ENV", "development")
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("SMS_QUEUE", "sms:fieldctl")

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	queue := notify.NewRedisQueue(client, "sms:fieldctl")
	require.NoError(t, queue.DeadLetter(context.Background(), notify.SMSJob{ID: "1", Attempt: 5}))
	require.NoError(t, queue.Retry(context.Background(), notify.SMSJob{ID: "2", Attempt: 1}, time.Now().Add(time.Hour)))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"sms-dlq"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "sms:fieldctl:dlq: 1 jobs")
	assert.Contains(t, out.String(), "sms:fieldctl:delayed: 1 jobs")
}
