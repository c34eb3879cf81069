package models

import (
	"time"

	"github.com/google/uuid"
)

type AssetType string

const (
	AssetTypeReference AssetType = "reference"
	AssetTypeGenerated AssetType = "generated"
)

type AssetRole string

const (
	AssetRoleStyle   AssetRole = "style"
	AssetRoleContent AssetRole = "content"
)

// Buckets хранилища. Все приватные, наружу отдаются только подписанные ссылки.
const (
	BucketReferences = "references"
	BucketGenerated  = "generated"
)

type Asset struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DocumentID uuid.UUID `json:"documentId" db:"document_id"`
	Type       AssetType `json:"type" db:"type"`
	Role       AssetRole `json:"role" db:"role"`
	Name       string    `json:"name" db:"name"`
	Bucket     string    `json:"bucket" db:"bucket"`
	Path       string    `json:"path" db:"path"`
	MIMEType   string    `json:"mimeType" db:"mime_type"`
	SizeBytes  int64     `json:"sizeBytes" db:"size_bytes"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// ReferenceImage загруженный референс, готовый к отправке модели.
type ReferenceImage struct {
	AssetID  uuid.UUID
	Name     string
	Role     AssetRole
	MIMEType string
	Data     []byte
}
