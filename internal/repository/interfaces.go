// Package repository хранение документов, задач генерации, ассетов, блокировок и шаблонов в PostgreSQL.
// Все методы принимают querier, чтобы работать как с пулом, так и с транзакцией.
package repository

import (
	"context"

	"carousel-server/internal/models"
	"carousel-server/pkg/database"

	"github.com/google/uuid"
)

type DocumentRepository interface {
	Create(ctx context.Context, querier database.DBTX, doc *models.DocumentRecord) error
	Get(ctx context.Context, querier database.DBTX, id uuid.UUID) (*models.DocumentRecord, error)
	// UpdateContent сохраняет состояние редактора. title пустой = не менять.
	UpdateContent(ctx context.Context, querier database.DBTX, id uuid.UUID, content *models.Document, title string) error
}

type JobRepository interface {
	// TryStart атомарно переводит задачу документа в running. Если задача уже running, возвращает ErrGenerationInProgress.
	TryStart(ctx context.Context, querier database.DBTX, documentID, jobID uuid.UUID, progress models.Progress) error
	Get(ctx context.Context, querier database.DBTX, documentID uuid.UUID) (*models.JobState, error)
	UpdateProgress(ctx context.Context, querier database.DBTX, documentID, jobID uuid.UUID, progress models.Progress) error
	Finish(ctx context.Context, querier database.DBTX, documentID, jobID uuid.UUID, result JobResult) error
}

// JobResult конечное состояние задачи.
type JobResult struct {
	Status    models.JobStatus
	Progress  models.Progress
	Error     *string
	RawOutput string
	Title     string
}

type AssetRepository interface {
	Create(ctx context.Context, querier database.DBTX, asset *models.Asset) error
	Get(ctx context.Context, querier database.DBTX, id uuid.UUID) (*models.Asset, error)
	// ListByDocument ассеты документа указанного типа, отфильтрованные по ролям, в порядке создания.
	ListByDocument(ctx context.Context, querier database.DBTX, documentID uuid.UUID, assetType models.AssetType, roles ...models.AssetRole) ([]models.Asset, error)
	GetMany(ctx context.Context, querier database.DBTX, ids []uuid.UUID) ([]models.Asset, error)
}

type LockRepository interface {
	// Get возвращает пустой набор, если блокировок нет.
	Get(ctx context.Context, querier database.DBTX, documentID uuid.UUID) (models.LockSet, error)
	Put(ctx context.Context, querier database.DBTX, documentID uuid.UUID, locks models.LockSet) error
}

type LayoutRepository interface {
	Create(ctx context.Context, querier database.DBTX, layout *models.StoredLayout) error
	// GetLayout используется резолвером шаблонов через кеш.
	GetLayout(ctx context.Context, id uuid.UUID) (*models.StoredLayout, error)
}
