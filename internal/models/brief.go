package models

import (
	"time"

	"github.com/google/uuid"
)

// Brief исходное задание пользователя.
type Brief struct {
	Topic           string   `json:"topic,omitempty" validate:"max=300"`
	Prompt          string   `json:"prompt,omitempty" validate:"max=4000"`
	Tone            string   `json:"tone,omitempty" validate:"max=80"`
	Audience        string   `json:"audience,omitempty" validate:"max=200"`
	Language        string   `json:"language,omitempty" validate:"max=40"`
	SlidesCount     int      `json:"slidesCount" validate:"gte=1,lte=20"`
	TemplateID      string   `json:"templateId,omitempty" validate:"max=120"`
	Palette         *Palette `json:"palette,omitempty"`
	StyleSimilarity *int     `json:"styleSimilarity,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// DocumentRecord запись проекта в БД.
type DocumentRecord struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Brief     Brief     `json:"brief"`
	LayoutID  string    `json:"layoutId"`
	Content   *Document `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StoredLayout пользовательский шаблон.
type StoredLayout struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Kind      LayoutKind `json:"kind"`
	Payload   []byte     `json:"payload"`
	CreatedAt time.Time  `json:"createdAt"`
}
