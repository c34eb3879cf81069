package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"carousel-server/internal/compositor"
	"carousel-server/internal/layout"
	"carousel-server/internal/models"
	"carousel-server/internal/repository"
	"carousel-server/internal/schemas"
	"carousel-server/internal/storage"
	"carousel-server/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateDocumentInput данные нового проекта.
type CreateDocumentInput struct {
	Title string       `json:"title" validate:"max=200"`
	Brief models.Brief `json:"brief"`
}

// DocumentView документ с подписанными ссылками на ассеты. Ссылки не сохраняются в БД.
type DocumentView struct {
	*models.DocumentRecord
	AssetURLs map[string]string `json:"assetUrls"`
}

// ReferenceUpload пользовательский референс.
type ReferenceUpload struct {
	Role        models.AssetRole
	Name        string
	ContentType string
	Data        []byte
}

// LayoutCache кеш шаблонов, который нужно прогреть после сохранения.
type LayoutCache interface {
	Put(ctx context.Context, v *models.StoredLayout)
}

// DocumentService проекты, блокировки, референсы и шаблоны.
type DocumentService interface {
	CreateDocument(ctx context.Context, ownerID string, in CreateDocumentInput) (*models.DocumentRecord, error)
	GetDocument(ctx context.Context, ownerID string, documentID uuid.UUID) (*DocumentView, error)
	GetLocks(ctx context.Context, ownerID string, documentID uuid.UUID) (models.LockSet, error)
	PutLocks(ctx context.Context, ownerID string, documentID uuid.UUID, locks models.LockSet) error
	AddReference(ctx context.Context, ownerID string, documentID uuid.UUID, in ReferenceUpload) (*models.Asset, error)
	// CleanupPlaceholders удаляет незаполненные объекты слотов, оставшиеся после неудачных изображений.
	CleanupPlaceholders(ctx context.Context, ownerID string, documentID uuid.UUID) (int, error)
	ListLayouts(ctx context.Context) []models.Layout
	CreateLayout(ctx context.Context, ownerID string, kind models.LayoutKind, payload json.RawMessage) (string, error)
}

// DocumentOptions параметры сервиса документов.
type DocumentOptions struct {
	SignedURLTTL   time.Duration
	MaxUploadBytes int64
}

type documentServiceImpl struct {
	db      database.DBTX
	docs    repository.DocumentRepository
	locks   repository.LockRepository
	assets  repository.AssetRepository
	layouts repository.LayoutRepository
	cache   LayoutCache
	storage storage.Storage
	opts    DocumentOptions
	logger  *zap.Logger
}

func NewDocumentService(
	db database.DBTX,
	docs repository.DocumentRepository,
	locks repository.LockRepository,
	assets repository.AssetRepository,
	layouts repository.LayoutRepository,
	cache LayoutCache,
	store storage.Storage,
	opts DocumentOptions,
	logger *zap.Logger,
) DocumentService {
	return &documentServiceImpl{
		db:      db,
		docs:    docs,
		locks:   locks,
		assets:  assets,
		layouts: layouts,
		cache:   cache,
		storage: store,
		opts:    opts,
		logger:  logger.Named("DocumentService"),
	}
}

func (s *documentServiceImpl) CreateDocument(ctx context.Context, ownerID string, in CreateDocumentInput) (*models.DocumentRecord, error) {
	if violations := schemas.Struct(in); len(violations) > 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidInput, strings.Join(violations, "; "))
	}
	if strings.TrimSpace(in.Brief.Topic) == "" && strings.TrimSpace(in.Brief.Prompt) == "" {
		return nil, fmt.Errorf("%w: brief needs a topic or a prompt", models.ErrInvalidInput)
	}

	layoutID := in.Brief.TemplateID
	if layoutID == "" {
		layoutID = layout.DefaultLayoutID
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSpace(in.Brief.Topic)
	}
	doc := &models.DocumentRecord{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Title:    title,
		Brief:    in.Brief,
		LayoutID: layoutID,
	}
	if err := s.docs.Create(ctx, s.db, doc); err != nil {
		s.logger.Error("Failed to create document", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Document created", zap.String("document_id", doc.ID.String()), zap.String("layout_id", layoutID))
	return doc, nil
}

// owned загружает документ и проверяет владельца.
func (s *documentServiceImpl) owned(ctx context.Context, ownerID string, documentID uuid.UUID) (*models.DocumentRecord, error) {
	doc, err := s.docs.Get(ctx, s.db, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, models.ErrForbidden
	}
	return doc, nil
}

func (s *documentServiceImpl) GetDocument(ctx context.Context, ownerID string, documentID uuid.UUID) (*DocumentView, error) {
	doc, err := s.owned(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	view := &DocumentView{DocumentRecord: doc, AssetURLs: map[string]string{}}
	if doc.Content == nil {
		return view, nil
	}

	var ids []uuid.UUID
	for _, raw := range doc.Content.AssetIDs() {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return view, nil
	}
	assets, err := s.assets.GetMany(ctx, s.db, ids)
	if err != nil {
		s.logger.Error("Failed to load document assets", zap.String("document_id", documentID.String()), zap.Error(err))
		return nil, err
	}
	for _, a := range assets {
		if a.DocumentID != documentID {
			continue
		}
		signed, err := s.storage.SignURL(a.Bucket, a.Path, s.opts.SignedURLTTL)
		if err != nil {
			s.logger.Warn("Failed to sign asset url", zap.String("asset_id", a.ID.String()), zap.Error(err))
			continue
		}
		view.AssetURLs[a.ID.String()] = signed
	}
	return view, nil
}

func (s *documentServiceImpl) GetLocks(ctx context.Context, ownerID string, documentID uuid.UUID) (models.LockSet, error) {
	if _, err := s.owned(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	return s.locks.Get(ctx, s.db, documentID)
}

func (s *documentServiceImpl) PutLocks(ctx context.Context, ownerID string, documentID uuid.UUID, locks models.LockSet) error {
	if _, err := s.owned(ctx, ownerID, documentID); err != nil {
		return err
	}
	clean := models.LockSet{}
	for key, objects := range locks {
		if !strings.HasPrefix(key, "slide_") {
			return fmt.Errorf("%w: lock key %q is not a slide key", models.ErrInvalidInput, key)
		}
		for id, locked := range objects {
			if !locked || id == "" {
				continue
			}
			if clean[key] == nil {
				clean[key] = map[string]bool{}
			}
			clean[key][id] = true
		}
	}
	if err := s.locks.Put(ctx, s.db, documentID, clean); err != nil {
		s.logger.Error("Failed to save locks", zap.String("document_id", documentID.String()), zap.Error(err))
		return err
	}
	return nil
}

func (s *documentServiceImpl) AddReference(ctx context.Context, ownerID string, documentID uuid.UUID, in ReferenceUpload) (*models.Asset, error) {
	log := s.logger.With(zap.String("document_id", documentID.String()))
	if _, err := s.owned(ctx, ownerID, documentID); err != nil {
		return nil, err
	}

	switch in.Role {
	case models.AssetRoleStyle, models.AssetRoleContent:
	case "":
		in.Role = models.AssetRoleStyle
	default:
		return nil, fmt.Errorf("%w: unknown reference role %q", models.ErrInvalidInput, in.Role)
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", models.ErrInvalidInput)
	}
	if s.opts.MaxUploadBytes > 0 && int64(len(in.Data)) > s.opts.MaxUploadBytes {
		return nil, fmt.Errorf("%w: upload exceeds %d bytes", models.ErrInvalidInput, s.opts.MaxUploadBytes)
	}
	detected := SniffMIME(in.Data)
	if detected == "" {
		return nil, fmt.Errorf("%w: upload is not a supported image", models.ErrInvalidInput)
	}

	asset := &models.Asset{
		ID:         uuid.New(),
		DocumentID: documentID,
		Type:       models.AssetTypeReference,
		Role:       in.Role,
		Name:       strings.TrimSpace(in.Name),
		Bucket:     models.BucketReferences,
		MIMEType:   detected,
		SizeBytes:  int64(len(in.Data)),
	}
	asset.Path = fmt.Sprintf("%s/%s.%s", documentID, asset.ID, extensionFor(detected))
	if err := s.storage.Upload(ctx, asset.Bucket, asset.Path, in.Data, detected); err != nil {
		log.Error("Failed to upload reference", zap.Error(err))
		return nil, err
	}
	if err := s.assets.Create(ctx, s.db, asset); err != nil {
		log.Error("Failed to record reference asset", zap.Error(err))
		return nil, err
	}
	log.Info("Reference image stored", zap.String("asset_id", asset.ID.String()), zap.String("role", string(asset.Role)), zap.String("mime_type", detected))
	return asset, nil
}

func (s *documentServiceImpl) CleanupPlaceholders(ctx context.Context, ownerID string, documentID uuid.UUID) (int, error) {
	doc, err := s.owned(ctx, ownerID, documentID)
	if err != nil {
		return 0, err
	}
	if doc.Content == nil {
		return 0, nil
	}
	cleaned, removed := compositor.CleanupPlaceholders(doc.Content)
	if removed == 0 {
		return 0, nil
	}
	if err := s.docs.UpdateContent(ctx, s.db, documentID, cleaned, ""); err != nil {
		s.logger.Error("Failed to save cleaned document", zap.String("document_id", documentID.String()), zap.Error(err))
		return 0, err
	}
	s.logger.Info("Placeholders removed", zap.String("document_id", documentID.String()), zap.Int("removed", removed))
	return removed, nil
}

func (s *documentServiceImpl) ListLayouts(context.Context) []models.Layout {
	return layout.Builtins()
}

// CreateLayout сохраняет пользовательский шаблон и возвращает его идентификатор вида custom/<uuid>.
func (s *documentServiceImpl) CreateLayout(ctx context.Context, ownerID string, kind models.LayoutKind, payload json.RawMessage) (string, error) {
	stored := &models.StoredLayout{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Kind:    kind,
		Payload: payload,
	}
	if _, reason, err := layout.DecodeStored(stored); err != nil {
		return "", fmt.Errorf("%w: layout is %s: %v", models.ErrInvalidInput, reason, err)
	}
	if err := s.layouts.Create(ctx, s.db, stored); err != nil {
		s.logger.Error("Failed to store layout", zap.Error(err))
		return "", err
	}
	if s.cache != nil {
		s.cache.Put(ctx, stored)
	}
	id := layout.CustomPrefix + stored.ID.String()
	s.logger.Info("Layout stored", zap.String("layout_id", id), zap.String("kind", string(kind)))
	return id, nil
}
