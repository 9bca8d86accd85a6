package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidLink - подпись ссылки неверна или срок её действия истёк.
var ErrInvalidLink = errors.New("storage: ссылка недействительна")

// LinkAudience - aud токена ссылки на файл. Токены другого назначения не принимаются.
const LinkAudience = "file-link"

// LocalStorage хранит файлы на диске и подписывает ссылки JWT токеном.
type LocalStorage struct {
	rootPath       string
	maxUploadBytes int64
	baseURL        string
	secret         []byte
}

// NewLocalStorage создаёт файловое хранилище.
func NewLocalStorage(rootPath string, maxUploadMB int64, baseURL, secret string) (*LocalStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &LocalStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
		baseURL:        strings.TrimRight(baseURL, "/"),
		secret:         []byte(secret),
	}, nil
}

// Save сохраняет файл через временный файл и возвращает ключ.
func (s *LocalStorage) Save(ctx context.Context, prefix, originalName string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	key := buildKey(prefix, originalName)
	targetPath := filepath.Join(s.rootPath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать каталог: %w", err)
	}

	tempPath := targetPath + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limited := io.LimitedReader{R: r, N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limited)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return "", 0, ErrTooLarge
	}

	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return key, written, nil
}

// Delete удаляет файл. Отсутствующий файл ошибкой не считается.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// SignedURL выдаёт ссылку на /files с токеном, ограниченным по времени.
func (s *LocalStorage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   key,
		Audience:  jwt.ClaimStrings{LinkAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("storage: не удалось подписать ссылку: %w", err)
	}

	return fmt.Sprintf("%s/files/%s?token=%s", s.baseURL, key, url.QueryEscape(token)), nil
}

// VerifyLink проверяет токен ссылки и возвращает путь к файлу на диске.
func (s *LocalStorage) VerifyLink(key, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithAudience(LinkAudience))
	if err != nil || !parsed.Valid || claims.Subject != key {
		return "", ErrInvalidLink
	}
	return s.Path(key)
}

// Path переводит ключ в путь на диске, не выпуская его за пределы корня.
func (s *LocalStorage) Path(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	target := filepath.Join(s.rootPath, clean)
	root := filepath.Clean(s.rootPath)
	if target == root || !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", ErrInvalidLink
	}
	return target, nil
}

var _ AssetStorage = (*LocalStorage)(nil)
