package validation

import (
	"fmt"
)

// ValidateDocumentPassword проверяет пароль, которым администратор защищает документ.
// Пароль передаётся работнику отдельно, поэтому требования к сложности мягкие.
func ValidateDocumentPassword(password string) error {
	if len(password) < MinDocumentPassword {
		return fmt.Errorf("пароль должен быть не менее %d символов", MinDocumentPassword)
	}
	// bcrypt учитывает только первые 72 байта
	if len(password) > MaxDocumentPassword {
		return fmt.Errorf("пароль должен быть не более %d байт", MaxDocumentPassword)
	}
	return nil
}
