package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"carousel-server/internal/models"
	"carousel-server/pkg/database"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	createDocumentQuery = `
        INSERT INTO documents (id, owner_id, title, brief, layout_id, content)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at`
	getDocumentQuery = `
        SELECT id, owner_id, title, brief, layout_id, content, created_at, updated_at
        FROM documents WHERE id = $1`
	updateDocumentContentQuery = `
        UPDATE documents
        SET content = $2,
            title = CASE WHEN $3 = '' THEN title ELSE $3 END,
            updated_at = NOW()
        WHERE id = $1`
)

var _ DocumentRepository = (*pgDocumentRepository)(nil)

type pgDocumentRepository struct {
	logger *zap.Logger
}

func NewPgDocumentRepository(logger *zap.Logger) DocumentRepository {
	return &pgDocumentRepository{logger: logger.Named("PgDocumentRepo")}
}

type documentRow struct {
	ID        uuid.UUID `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Title     string    `db:"title"`
	Brief     []byte    `db:"brief"`
	LayoutID  string    `db:"layout_id"`
	Content   []byte    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func contentJSON(content *models.Document) ([]byte, error) {
	if content == nil {
		return nil, nil
	}
	return json.Marshal(content)
}

func (r *pgDocumentRepository) Create(ctx context.Context, querier database.DBTX, doc *models.DocumentRecord) error {
	log := r.logger.With(zap.String("document_id", doc.ID.String()))
	brief, err := json.Marshal(doc.Brief)
	if err != nil {
		return fmt.Errorf("marshal brief: %w", err)
	}
	content, err := contentJSON(doc.Content)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}
	err = querier.QueryRow(ctx, createDocumentQuery, doc.ID, doc.OwnerID, doc.Title, brief, doc.LayoutID, content).
		Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			log.Warn("Document already exists")
			return fmt.Errorf("document %s already exists: %w", doc.ID, models.ErrInvalidInput)
		}
		log.Error("Failed to create document", zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}
	log.Info("Document created", zap.String("owner_id", doc.OwnerID))
	return nil
}

func (r *pgDocumentRepository) Get(ctx context.Context, querier database.DBTX, id uuid.UUID) (*models.DocumentRecord, error) {
	var row documentRow
	if err := pgxscan.Get(ctx, querier, &row, getDocumentQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
		}
		r.logger.Error("Failed to get document", zap.String("document_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	rec := &models.DocumentRecord{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Title:     row.Title,
		LayoutID:  row.LayoutID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Brief) > 0 {
		if err := json.Unmarshal(row.Brief, &rec.Brief); err != nil {
			return nil, fmt.Errorf("decode brief of document %s: %w", id, err)
		}
	}
	if len(row.Content) > 0 && string(row.Content) != "null" {
		rec.Content = &models.Document{}
		if err := json.Unmarshal(row.Content, rec.Content); err != nil {
			return nil, fmt.Errorf("decode content of document %s: %w", id, err)
		}
	}
	return rec, nil
}

func (r *pgDocumentRepository) UpdateContent(ctx context.Context, querier database.DBTX, id uuid.UUID, content *models.Document, title string) error {
	payload, err := contentJSON(content)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}
	tag, err := querier.Exec(ctx, updateDocumentContentQuery, id, payload, title)
	if err != nil {
		r.logger.Error("Failed to update document content", zap.String("document_id", id.String()), zap.Error(err))
		return fmt.Errorf("failed to update document content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	return nil
}
