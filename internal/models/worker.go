package models

import (
	"time"

	"github.com/google/uuid"
)

// Worker - сотрудник клиента, получатель документов.
type Worker struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ClientID    *uuid.UUID `db:"client_id" json:"client_id,omitempty"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	Phone       string     `db:"phone" json:"phone"`
	CountryCode string     `db:"country_code" json:"country_code"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// FullName возвращает имя для отображения.
func (w *Worker) FullName() string {
	return w.FirstName + " " + w.LastName
}
