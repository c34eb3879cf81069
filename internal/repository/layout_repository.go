package repository

import (
	"context"
	"fmt"

	"carousel-server/internal/layout"
	"carousel-server/internal/models"
	"carousel-server/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	createLayoutQuery = `
        INSERT INTO layouts (id, owner_id, kind, payload) VALUES ($1, $2, $3, $4)
        RETURNING created_at`
	getLayoutQuery = `SELECT id, owner_id, kind, payload, created_at FROM layouts WHERE id = $1`
)

var (
	_ LayoutRepository = (*pgLayoutRepository)(nil)
	_ layout.Store     = (*pgLayoutRepository)(nil)
)

type pgLayoutRepository struct {
	db     database.DBTX
	logger *zap.Logger
}

// NewPgLayoutRepository db используется в GetLayout, который вызывается резолвером вне транзакций.
func NewPgLayoutRepository(db database.DBTX, logger *zap.Logger) LayoutRepository {
	return &pgLayoutRepository{db: db, logger: logger.Named("PgLayoutRepo")}
}

func (r *pgLayoutRepository) Create(ctx context.Context, querier database.DBTX, l *models.StoredLayout) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	err := querier.QueryRow(ctx, createLayoutQuery, l.ID, l.OwnerID, string(l.Kind), l.Payload).Scan(&l.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to store layout", zap.String("owner_id", l.OwnerID), zap.Error(err))
		return fmt.Errorf("failed to store layout: %w", err)
	}
	r.logger.Info("Layout stored", zap.String("layout_id", l.ID.String()), zap.String("kind", string(l.Kind)))
	return nil
}

func (r *pgLayoutRepository) GetLayout(ctx context.Context, id uuid.UUID) (*models.StoredLayout, error) {
	var (
		l    models.StoredLayout
		kind string
	)
	err := r.db.QueryRow(ctx, getLayoutQuery, id).Scan(&l.ID, &l.OwnerID, &kind, &l.Payload, &l.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("layout %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get layout: %w", err)
	}
	l.Kind = models.LayoutKind(kind)
	return &l, nil
}
