package models

import "github.com/google/uuid"

// GenerationFinishedEvent публикуется в RabbitMQ после перехода задачи в конечный статус.
type GenerationFinishedEvent struct {
	DocumentID uuid.UUID     `json:"document_id"`
	JobID      uuid.UUID     `json:"job_id"`
	OwnerID    string        `json:"owner_id"`
	Status     JobStatus     `json:"status"`
	Title      string        `json:"title,omitempty"`
	Images     ImageCounters `json:"images"`
	Error      string        `json:"error,omitempty"`
}
