package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	SlugLength          = 10
	MaxIdentifierLength = 64
	OTPCodeLength       = 6
	MinDocumentPassword = 4
	MaxDocumentPassword = 72 // предел bcrypt
	MinDocumentNameLen  = 1
	MaxDocumentNameLen  = 200
)

var (
	slugRegex    = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	otpCodeRegex = regexp.MustCompile(fmt.Sprintf(`^[0-9]{%d}$`, OTPCodeLength))
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateIdentifier проверяет публичный идентификатор документа из ссылки.
// Принимается slug или uuid старых записей без slug.
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("идентификатор документа обязателен")
	}
	if len(identifier) > MaxIdentifierLength {
		return fmt.Errorf("идентификатор документа слишком длинный")
	}
	if !slugRegex.MatchString(strings.ReplaceAll(identifier, "-", "")) {
		return fmt.Errorf("идентификатор документа содержит недопустимые символы")
	}
	return nil
}

// IsOTPCode сообщает, похожа ли строка на код из SMS.
func IsOTPCode(code string) bool {
	return otpCodeRegex.MatchString(code)
}

// ValidateDocumentName проверяет название документа.
func ValidateDocumentName(name string) error {
	if err := ValidateNonEmpty("название документа", name); err != nil {
		return err
	}
	return ValidateLength("название документа", strings.TrimSpace(name), MinDocumentNameLen, MaxDocumentNameLen)
}
