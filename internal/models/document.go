package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentKind описывает происхождение документа.
type DocumentKind string

const (
	DocumentKindUploaded       DocumentKind = "UPLOADED"
	DocumentKindSigned         DocumentKind = "SIGNED"
	DocumentKindRemoteDocument DocumentKind = "REMOTE_DOCUMENT"
)

// Valid проверяет, что тип документа известен.
func (k DocumentKind) Valid() bool {
	switch k {
	case DocumentKindUploaded, DocumentKindSigned, DocumentKindRemoteDocument:
		return true
	}
	return false
}

// Document описывает файл, выданный работнику.
// Для REMOTE_DOCUMENT флаги прочтения и отправки меняются только в одну сторону.
type Document struct {
	ID                   uuid.UUID    `db:"id" json:"id"`
	Slug                 *string      `db:"slug" json:"slug,omitempty"`
	Kind                 DocumentKind `db:"kind" json:"kind"`
	Name                 string       `db:"name" json:"name"`
	WorkerID             uuid.UUID    `db:"worker_id" json:"worker_id"`
	TemplateID           *uuid.UUID   `db:"template_id" json:"template_id,omitempty"`
	AssetID              *uuid.UUID   `db:"asset_id" json:"asset_id,omitempty"`
	PasswordHash         *string      `db:"password_hash" json:"-"`
	IsPasswordProtected  bool         `db:"is_password_protected" json:"is_password_protected"`
	RequiresOTP          bool         `db:"requires_otp" json:"requires_otp"`
	IsRemoteDocRead      bool         `db:"is_remote_doc_read" json:"is_remote_doc_read"`
	RemoteDocReadAt      *time.Time   `db:"remote_doc_read_at" json:"remote_doc_read_at,omitempty"`
	IsRemoteDocSubmitted bool         `db:"is_remote_doc_submitted" json:"is_remote_doc_submitted"`
	RemoteDocSubmittedAt *time.Time   `db:"remote_doc_submitted_at" json:"remote_doc_submitted_at,omitempty"`
	CreatedAt            time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time    `db:"updated_at" json:"updated_at"`
}

// IsRemote сообщает, относится ли документ к удалённому подписанию.
func (d *Document) IsRemote() bool {
	return d.Kind == DocumentKindRemoteDocument
}

// SlugValue возвращает slug или пустую строку для старых записей.
func (d *Document) SlugValue() string {
	if d.Slug == nil {
		return ""
	}
	return *d.Slug
}

// DocumentDetails - документ вместе с работником и файлами, нужными вызывающему.
type DocumentDetails struct {
	Document      Document `json:"document"`
	Worker        Worker   `json:"worker"`
	Asset         *Asset   `json:"asset,omitempty"`
	TemplateAsset *Asset   `json:"template_asset,omitempty"`
}
