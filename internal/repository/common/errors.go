package common

import (
	"errors"

	"github.com/lib/pq"
)

// ErrAlreadySubmitted - удалённый документ уже отправлен.
var ErrAlreadySubmitted = errors.New("document already submitted")

// uniqueViolation - код ошибки Postgres при нарушении уникального индекса.
const uniqueViolation = "23505"

// IsUniqueViolation сообщает, что запрос упал на уникальном индексе.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
