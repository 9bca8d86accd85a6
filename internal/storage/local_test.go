package storage

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir(), 1, "http://localhost:8080/", "test-secret")
	require.NoError(t, err)
	return s
}

func TestLocalStorage_SaveAndDelete(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	key, size, err := s.Save(ctx, "signed/doc-1", "Contract.PDF", strings.NewReader("%PDF-1.4 body"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("%PDF-1.4 body")), size)
	assert.True(t, strings.HasPrefix(key, "signed/doc-1/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	path, err := s.Path(key)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))

	require.NoError(t, s.Delete(ctx, key))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Повторное удаление не ошибка.
	assert.NoError(t, s.Delete(ctx, key))
}

func TestLocalStorage_SaveTooLarge(t *testing.T) {
	s := newTestLocalStorage(t)

	_, _, err := s.Save(context.Background(), "uploaded", "big.pdf", bytes.NewReader(make([]byte, 1024*1024+1)))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(filepath.Join(s.rootPath, "uploaded"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStorage_SignedURLRoundTrip(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	key, _, err := s.Save(ctx, "templates", "form.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	link, err := s.SignedURL(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "http://localhost:8080/files/"+key+"?token="))

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	token := parsed.Query().Get("token")

	path, err := s.VerifyLink(key, token)
	require.NoError(t, err)
	assert.FileExists(t, path)

	// Токен привязан к ключу.
	_, err = s.VerifyLink("templates/other.pdf", token)
	assert.ErrorIs(t, err, ErrInvalidLink)
}

func TestLocalStorage_SignedURLExpired(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	link, err := s.SignedURL(ctx, "templates/form.pdf", -time.Minute)
	require.NoError(t, err)

	parsed, err := url.Parse(link)
	require.NoError(t, err)

	_, err = s.VerifyLink("templates/form.pdf", parsed.Query().Get("token"))
	assert.ErrorIs(t, err, ErrInvalidLink)
}

func TestLocalStorage_PathStaysInsideRoot(t *testing.T) {
	s := newTestLocalStorage(t)

	path, err := s.Path("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, filepath.Clean(s.rootPath)+string(filepath.Separator)))

	_, err = s.Path("")
	assert.ErrorIs(t, err, ErrInvalidLink)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "passwd", sanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "document", sanitizeFilename(""))
	assert.Equal(t, "scan.png", sanitizeFilename("scan.png"))
}

func TestLocalStorage_VerifyLinkRejectsOtherAudience(t *testing.T) {
	s := newTestLocalStorage(t)
	key := "templates/form.pdf"

	// Тот же ключ подписи и тот же subject, но токен выдан для другого назначения.
	for _, aud := range []jwt.ClaimStrings{nil, {"document-grant"}} {
		claims := jwt.RegisteredClaims{
			Subject:   key,
			Audience:  aud,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = s.VerifyLink(key, token)
		assert.ErrorIs(t, err, ErrInvalidLink)
	}
}
