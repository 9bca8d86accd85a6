package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/fieldcrew-backend/internal/config"
	"github.com/ignatzorin/fieldcrew-backend/internal/db"
	"github.com/ignatzorin/fieldcrew-backend/internal/logger"
	"github.com/ignatzorin/fieldcrew-backend/internal/notify"
	"github.com/ignatzorin/fieldcrew-backend/internal/repository"
)

var requeueLimit int

// purgeOTPCmd удаляет просроченные одноразовые коды.
var purgeOTPCmd = &cobra.Command{
	Use:   "purge-otp",
	Short: "Delete expired one-time codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger.Init(cfg.LogLevel, cfg.Env)

		conn, err := db.NewPostgres(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer conn.Close()

		deleted, err := repository.NewOneTimeCodeRepository(conn).DeleteExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired codes\n", deleted)
		return nil
	},
}

// smsDLQCmd показывает размер DLQ и число отложенных повторов.
var smsDLQCmd = &cobra.Command{
	Use:   "sms-dlq",
	Short: "Show how many SMS jobs are dead-lettered or waiting for a retry",
	RunE: func(cmd *cobra.Command, args []string) error {
		queue, closeFn, err := openRedisQueue(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		count, err := queue.DeadLetterCount(cmd.Context())
		if err != nil {
			return err
		}
		delayed, err := queue.DelayedCount(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d jobs\n", queue.DeadLetterName(), count)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d jobs\n", queue.DelayedName(), delayed)
		return nil
	},
}

// smsDLQRequeueCmd возвращает задачи из DLQ в очередь.
var smsDLQRequeueCmd = &cobra.Command{
	Use:   "requeue",
	Short: "Move dead-lettered SMS jobs back to the queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		queue, closeFn, err := openRedisQueue(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		moved, err := queue.RequeueDeadLetters(cmd.Context(), requeueLimit)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "requeued %d jobs\n", moved)
		return nil
	},
}

func init() {
	smsDLQRequeueCmd.Flags().IntVar(&requeueLimit, "limit", 0, "max jobs to move, 0 moves all")
}

func openRedisQueue(cmd *cobra.Command) (*notify.RedisQueue, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.RedisEnabled() {
		return nil, nil, fmt.Errorf("sms-dlq: REDIS_ADDR не задан")
	}

	client, err := notify.NewRedisClient(cmd.Context(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	return notify.NewRedisQueue(client, cfg.Redis.Queue), func() { _ = client.Close() }, nil
}
