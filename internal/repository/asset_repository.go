package repository

import (
	"context"
	"fmt"

	"carousel-server/internal/models"
	"carousel-server/pkg/database"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	assetColumns     = `id, document_id, type, role, name, bucket, path, mime_type, size_bytes, created_at`
	createAssetQuery = `
        INSERT INTO assets (id, document_id, type, role, name, bucket, path, mime_type, size_bytes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at`
	getAssetQuery     = `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`
	getAssetsQuery    = `SELECT ` + assetColumns + ` FROM assets WHERE id = ANY($1) ORDER BY created_at, id`
	listAssetsQuery   = `SELECT ` + assetColumns + ` FROM assets WHERE document_id = $1 AND type = $2 ORDER BY created_at, id`
	listAssetsByRoles = `SELECT ` + assetColumns + ` FROM assets WHERE document_id = $1 AND type = $2 AND role = ANY($3) ORDER BY created_at, id`
)

var _ AssetRepository = (*pgAssetRepository)(nil)

type pgAssetRepository struct {
	logger *zap.Logger
}

func NewPgAssetRepository(logger *zap.Logger) AssetRepository {
	return &pgAssetRepository{logger: logger.Named("PgAssetRepo")}
}

func (r *pgAssetRepository) Create(ctx context.Context, querier database.DBTX, a *models.Asset) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := querier.QueryRow(ctx, createAssetQuery, a.ID, a.DocumentID, string(a.Type), string(a.Role), a.Name,
		a.Bucket, a.Path, a.MIMEType, a.SizeBytes).Scan(&a.CreatedAt)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("document %s: %w", a.DocumentID, models.ErrNotFound)
		}
		r.logger.Error("Failed to record asset", zap.String("document_id", a.DocumentID.String()), zap.Error(err))
		return fmt.Errorf("failed to record asset: %w", err)
	}
	return nil
}

func (r *pgAssetRepository) Get(ctx context.Context, querier database.DBTX, id uuid.UUID) (*models.Asset, error) {
	var a models.Asset
	if err := pgxscan.Get(ctx, querier, &a, getAssetQuery, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("asset %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &a, nil
}

func (r *pgAssetRepository) GetMany(ctx context.Context, querier database.DBTX, ids []uuid.UUID) ([]models.Asset, error) {
	assets := []models.Asset{}
	if len(ids) == 0 {
		return assets, nil
	}
	if err := pgxscan.Select(ctx, querier, &assets, getAssetsQuery, ids); err != nil {
		return nil, fmt.Errorf("failed to get assets: %w", err)
	}
	return assets, nil
}

func (r *pgAssetRepository) ListByDocument(ctx context.Context, querier database.DBTX, documentID uuid.UUID, assetType models.AssetType, roles ...models.AssetRole) ([]models.Asset, error) {
	assets := []models.Asset{}
	var err error
	if len(roles) == 0 {
		err = pgxscan.Select(ctx, querier, &assets, listAssetsQuery, documentID, string(assetType))
	} else {
		names := make([]string, len(roles))
		for i, role := range roles {
			names[i] = string(role)
		}
		err = pgxscan.Select(ctx, querier, &assets, listAssetsByRoles, documentID, string(assetType), names)
	}
	if err != nil {
		r.logger.Error("Failed to list assets", zap.String("document_id", documentID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}
