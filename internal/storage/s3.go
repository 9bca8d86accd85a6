package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignatzorin/fieldcrew-backend/internal/config"
)

// S3Storage хранит файлы в бакете S3 (или совместимом хранилище).
type S3Storage struct {
	client         *s3.Client
	presigner      *s3.PresignClient
	bucket         string
	maxUploadBytes int64
}

// NewS3Storage создаёт клиент. Если задан endpoint, используется path-style адресация
// (MinIO, LocalStack); статические ключи берутся из конфигурации, иначе - цепочка AWS по умолчанию.
func NewS3Storage(ctx context.Context, cfg config.S3Config, maxUploadMB int64) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось загрузить конфигурацию AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:         client,
		presigner:      s3.NewPresignClient(client),
		bucket:         cfg.Bucket,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Save загружает объект. Тело читается целиком в память, чтобы проверить лимит до отправки.
func (s *S3Storage) Save(ctx context.Context, prefix, originalName string, r io.Reader) (string, int64, error) {
	limited := io.LimitedReader{R: r, N: s.maxUploadBytes + 1}
	body, err := io.ReadAll(&limited)
	if err != nil {
		return "", 0, fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}
	if int64(len(body)) > s.maxUploadBytes {
		return "", 0, ErrTooLarge
	}

	key := buildKey(prefix, originalName)
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось загрузить объект %s: %w", key, err)
	}

	return key, int64(len(body)), nil
}

// Delete удаляет объект из бакета.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("storage: не удалось удалить объект %s: %w", key, err)
	}
	return nil
}

// SignedURL выдаёт presigned GET ссылку.
func (s *S3Storage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("storage: не удалось подписать ссылку: %w", err)
	}
	return req.URL, nil
}

var _ AssetStorage = (*S3Storage)(nil)
