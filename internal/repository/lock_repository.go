package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"carousel-server/internal/models"
	"carousel-server/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	getLocksQuery = `SELECT locks FROM document_locks WHERE document_id = $1`
	putLocksQuery = `
        INSERT INTO document_locks (document_id, locks) VALUES ($1, $2)
        ON CONFLICT (document_id) DO UPDATE SET locks = EXCLUDED.locks, updated_at = NOW()`
)

var _ LockRepository = (*pgLockRepository)(nil)

type pgLockRepository struct {
	logger *zap.Logger
}

func NewPgLockRepository(logger *zap.Logger) LockRepository {
	return &pgLockRepository{logger: logger.Named("PgLockRepo")}
}

func (r *pgLockRepository) Get(ctx context.Context, querier database.DBTX, documentID uuid.UUID) (models.LockSet, error) {
	var raw []byte
	err := querier.QueryRow(ctx, getLocksQuery, documentID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.LockSet{}, nil
	}
	if err != nil {
		r.logger.Error("Failed to get locks", zap.String("document_id", documentID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get locks: %w", err)
	}
	locks := models.LockSet{}
	if err := json.Unmarshal(raw, &locks); err != nil {
		return nil, fmt.Errorf("decode locks of %s: %w", documentID, err)
	}
	return locks, nil
}

func (r *pgLockRepository) Put(ctx context.Context, querier database.DBTX, documentID uuid.UUID, locks models.LockSet) error {
	if locks == nil {
		locks = models.LockSet{}
	}
	payload, err := json.Marshal(locks)
	if err != nil {
		return fmt.Errorf("marshal locks: %w", err)
	}
	if _, err := querier.Exec(ctx, putLocksQuery, documentID, payload); err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("document %s: %w", documentID, models.ErrNotFound)
		}
		r.logger.Error("Failed to save locks", zap.String("document_id", documentID.String()), zap.Error(err))
		return fmt.Errorf("failed to save locks: %w", err)
	}
	return nil
}
