package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/h2non/filetype"
)

// ErrUnsupportedFile - тип загруженного файла не разрешён.
var ErrUnsupportedFile = errors.New("validation: неподдерживаемый тип файла")

// Разрешённые типы подписанных и загружаемых документов.
var allowedDocumentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// sniffLength - сколько байт нужно filetype для определения типа.
const sniffLength = 512

// DetectDocumentType определяет реальный тип файла по магическим байтам.
// Возвращает MIME тип и reader, который отдаёт файл целиком, включая прочитанный заголовок.
func DetectDocumentType(r io.Reader) (string, io.Reader, error) {
	header := make([]byte, sniffLength)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("validation: не удалось прочитать файл: %w", err)
	}
	if n == 0 {
		return "", nil, fmt.Errorf("%w: файл пустой", ErrUnsupportedFile)
	}
	header = header[:n]

	kind, err := filetype.Match(header)
	if err != nil || kind == filetype.Unknown {
		return "", nil, fmt.Errorf("%w: тип не определён", ErrUnsupportedFile)
	}

	contentType := kind.MIME.Value
	if !allowedDocumentTypes[contentType] {
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, contentType)
	}

	return contentType, io.MultiReader(bytes.NewReader(header), r), nil
}

// AllowedDocumentTypes возвращает список разрешённых MIME типов.
func AllowedDocumentTypes() []string {
	types := make([]string, 0, len(allowedDocumentTypes))
	for t := range allowedDocumentTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
