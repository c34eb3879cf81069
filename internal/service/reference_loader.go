package service

import (
	"context"

	"carousel-server/internal/models"
	"carousel-server/internal/repository"
	"carousel-server/internal/storage"
	"carousel-server/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReferenceLoader загружает пользовательские референсы документа для отправки моделям.
// Ошибки отдельных файлов логируются и пропускаются: генерация идет и без референсов.
type ReferenceLoader struct {
	db      database.DBTX
	assets  repository.AssetRepository
	storage storage.Storage
	max     int
	logger  *zap.Logger
}

func NewReferenceLoader(db database.DBTX, assets repository.AssetRepository, store storage.Storage, max int, logger *zap.Logger) *ReferenceLoader {
	return &ReferenceLoader{db: db, assets: assets, storage: store, max: max, logger: logger.Named("ReferenceLoader")}
}

// Load стилевые референсы идут первыми, затем содержательные. Всего не больше max.
func (l *ReferenceLoader) Load(ctx context.Context, documentID uuid.UUID) []models.ReferenceImage {
	log := l.logger.With(zap.String("document_id", documentID.String()))
	if l.max <= 0 {
		return nil
	}

	var refs []models.ReferenceImage
	for _, role := range []models.AssetRole{models.AssetRoleStyle, models.AssetRoleContent} {
		if len(refs) >= l.max {
			break
		}
		assets, err := l.assets.ListByDocument(ctx, l.db, documentID, models.AssetTypeReference, role)
		if err != nil {
			log.Warn("Failed to list reference assets, continuing without them", zap.String("role", string(role)), zap.Error(err))
			continue
		}
		for _, a := range assets {
			if len(refs) >= l.max {
				break
			}
			if img, ok := l.fetch(ctx, log, a); ok {
				refs = append(refs, img)
			}
		}
	}
	log.Debug("Reference images loaded", zap.Int("count", len(refs)))
	return refs
}

func (l *ReferenceLoader) fetch(ctx context.Context, log *zap.Logger, a models.Asset) (models.ReferenceImage, bool) {
	log = log.With(zap.String("asset_id", a.ID.String()))
	data, err := l.storage.Download(ctx, a.Bucket, a.Path)
	if err != nil {
		log.Warn("Failed to download reference image, skipping", zap.Error(err))
		return models.ReferenceImage{}, false
	}
	mime := ResolveMIME(a.MIMEType, data)
	if !IsAllowedImage(mime) {
		log.Warn("Reference asset is not a supported image, skipping", zap.String("mime_type", a.MIMEType))
		return models.ReferenceImage{}, false
	}
	name := a.Name
	if name == "" {
		name = a.ID.String()
	}
	return models.ReferenceImage{AssetID: a.ID, Name: name, Role: a.Role, MIMEType: mime, Data: data}, true
}
