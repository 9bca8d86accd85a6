package models

import (
	"time"

	"github.com/google/uuid"
)

// OTPPurposeRemoteDocView - единственное назначение кодов в этом сервисе.
const OTPPurposeRemoteDocView = "REMOTE_DOC_VIEW"

// OneTimeCode - одноразовый код, привязанный к работнику и назначению.
// ExpiresAt == nil означает бессрочный код.
type OneTimeCode struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	WorkerID  uuid.UUID  `db:"worker_id" json:"worker_id"`
	Purpose   string     `db:"purpose" json:"purpose"`
	Code      string     `db:"code" json:"-"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
