package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carousel-server/internal/compositor"
	"carousel-server/internal/layout"
	"carousel-server/internal/models"
	"carousel-server/internal/prompt"
	"carousel-server/internal/repository"
	"carousel-server/internal/storage"
	"carousel-server/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TxRunner выполняет функцию в транзакции. Реализуется *database.Database.
type TxRunner interface {
	ExecuteInTransaction(ctx context.Context, fn func(tx database.DBTX) error) error
}

// EventPublisher публикует событие о завершении генерации.
type EventPublisher interface {
	PublishGenerationFinished(ctx context.Context, event models.GenerationFinishedEvent) error
}

// LayoutResolver разрешает шаблон по идентификатору. Никогда не возвращает ошибку.
type LayoutResolver interface {
	Resolve(ctx context.Context, layoutID string) models.ResolvedLayout
}

// GenerationService интерфейс оркестратора генерации.
type GenerationService interface {
	// StartGeneration выполняет генерацию целиком и возвращает id задачи.
	StartGeneration(ctx context.Context, ownerID string, documentID uuid.UUID, imageModelOverride string) (uuid.UUID, error)
	GetProgress(ctx context.Context, ownerID string, documentID uuid.UUID) (*models.JobState, error)
}

// GenerationOptions параметры оркестратора из конфигурации.
type GenerationOptions struct {
	TextModel              string
	FallbackModels         []string
	ReviewPasses           int
	DefaultStyleSimilarity int
	KeepUnrequestedAssets  bool
	// TextConfigured false, если у текстового провайдера нет учетных данных.
	TextConfigured bool
}

type generationServiceImpl struct {
	db         database.DBTX
	tx         TxRunner
	docs       repository.DocumentRepository
	jobs       repository.JobRepository
	assets     repository.AssetRepository
	layouts    LayoutResolver
	references *ReferenceLoader
	text       *TextAdapter
	images     *ImageAdapter
	storage    storage.Storage
	publisher  EventPublisher
	opts       GenerationOptions
	logger     *zap.Logger
	now        func() time.Time
}

// NewGenerationService создает оркестратор.
func NewGenerationService(
	db database.DBTX,
	tx TxRunner,
	docs repository.DocumentRepository,
	jobs repository.JobRepository,
	assets repository.AssetRepository,
	layouts LayoutResolver,
	references *ReferenceLoader,
	text *TextAdapter,
	images *ImageAdapter,
	store storage.Storage,
	publisher EventPublisher,
	opts GenerationOptions,
	logger *zap.Logger,
) GenerationService {
	return &generationServiceImpl{
		db:         db,
		tx:         tx,
		docs:       docs,
		jobs:       jobs,
		assets:     assets,
		layouts:    layouts,
		references: references,
		text:       text,
		images:     images,
		storage:    store,
		publisher:  publisher,
		opts:       opts,
		logger:     logger.Named("GenerationService"),
		now:        time.Now,
	}
}

// run состояние одного запуска. Живет только внутри StartGeneration.
type run struct {
	doc      *models.DocumentRecord
	jobID    uuid.UUID
	progress models.Progress
	log      *zap.Logger
}

func (s *generationServiceImpl) StartGeneration(ctx context.Context, ownerID string, documentID uuid.UUID, imageModelOverride string) (uuid.UUID, error) {
	log := s.logger.With(zap.String("document_id", documentID.String()), zap.String("owner_id", ownerID))

	if !s.opts.TextConfigured {
		log.Error("Text model credentials are not configured")
		return uuid.Nil, fmt.Errorf("%w: text model api key is not set", models.ErrConfiguration)
	}

	doc, err := s.docs.Get(ctx, s.db, documentID)
	if err != nil {
		return uuid.Nil, err
	}
	if doc.OwnerID != ownerID {
		log.Warn("Generation requested by non-owner")
		return uuid.Nil, models.ErrForbidden
	}

	jobID := uuid.New()
	progress := models.NewProgress()
	if err := s.jobs.TryStart(ctx, s.db, documentID, jobID, progress); err != nil {
		if errors.Is(err, models.ErrGenerationInProgress) {
			generationRejectedTotal.Inc()
			log.Info("Generation already running, start rejected")
		} else {
			log.Error("Failed to start generation job", zap.Error(err))
		}
		return uuid.Nil, err
	}

	// Запуск завершается даже если клиент отключился
	ctx = context.WithoutCancel(ctx)
	r := &run{doc: doc, jobID: jobID, progress: progress, log: log.With(zap.String("job_id", jobID.String()))}
	r.log.Info("Generation started")

	return jobID, s.execute(ctx, r, imageModelOverride)
}

// execute проходит фазы text, aesthetic_review, compose, images и done.
func (s *generationServiceImpl) execute(ctx context.Context, r *run, imageModelOverride string) error {
	started := s.now()

	layoutID := r.doc.Brief.TemplateID
	if layoutID == "" {
		layoutID = r.doc.LayoutID
	}
	resolved := s.layouts.Resolve(ctx, layoutID)
	if resolved.Fallback {
		r.log.Warn("Layout resolved to fallback", zap.String("requested", layoutID), zap.String("reason", resolved.FallbackReason))
	}
	refs := s.references.Load(ctx, r.doc.ID)

	plan, raw, err := s.textPhase(ctx, r, resolved, refs)
	if err != nil {
		msg := err.Error()
		r.progress.SetStage(models.StageFailedText)
		s.finishFailed(ctx, r, msg, raw)
		return fmt.Errorf("%w: %w", models.ErrTextGenerationFailed, err)
	}

	plan, err = s.reviewPhase(ctx, r, resolved.Layout, plan)
	if err != nil {
		return s.abort(ctx, r, err)
	}

	content := s.compose(r, resolved, plan)

	if err := s.imagePhase(ctx, r, resolved.Layout, content, plan, refs, imageModelOverride); err != nil {
		return s.abort(ctx, r, err)
	}

	r.progress.SetStage(models.StageDone)
	title := plan.FirstTitle()
	err = s.tx.ExecuteInTransaction(ctx, func(tx database.DBTX) error {
		if err := s.docs.UpdateContent(ctx, tx, r.doc.ID, content, title); err != nil {
			return err
		}
		return s.jobs.Finish(ctx, tx, r.doc.ID, r.jobID, repository.JobResult{
			Status:    models.JobStatusSucceeded,
			Progress:  r.progress,
			RawOutput: raw,
			Title:     title,
		})
	})
	if err != nil {
		return s.abort(ctx, r, fmt.Errorf("failed to persist generated document: %w", err))
	}

	generationRunsTotal.WithLabelValues(string(models.JobStatusSucceeded)).Inc()
	r.log.Info("Generation finished",
		zap.Int("slides", len(content.Slides)),
		zap.Int("images_done", r.progress.Images.Done),
		zap.Int("images_failed", r.progress.Images.Failed),
		zap.Duration("duration", s.now().Sub(started)))
	s.publish(ctx, r, models.JobStatusSucceeded, title, "")
	return nil
}

// textPhase первый черновик. Транспортная ошибка повторяется один раз с запасной моделью.
func (s *generationServiceImpl) textPhase(ctx context.Context, r *run, resolved models.ResolvedLayout, refs []models.ReferenceImage) (*models.PlannerOutput, string, error) {
	similarity := s.opts.DefaultStyleSimilarity
	if r.doc.Brief.StyleSimilarity != nil {
		similarity = *r.doc.Brief.StyleSimilarity
	}
	p := prompt.FirstDraft(prompt.FirstDraftInput{
		Brief:                 r.doc.Brief,
		Layout:                resolved.Layout,
		AuthoringInstructions: resolved.AuthoringInstructions,
		References:            prompt.Manifest(refs),
		StyleSimilarity:       similarity,
		SlidesCount:           skeletonSlides(r, resolved),
	})

	start := s.now()
	var (
		plan *models.PlannerOutput
		raw  string
	)
	primary := firstNonEmpty(s.opts.TextModel, s.text.DefaultModel())
	model, err := withTransportFallback(ctx, r.log, primary, s.opts.FallbackModels, func(ctx context.Context, model string) error {
		var callErr error
		plan, raw, callErr = s.text.GeneratePlan(ctx, p, refs, model)
		return callErr
	})
	r.progress.TextModel = model

	entry := models.TraceEntry{Phase: models.StageText, Model: model, DurationMs: s.now().Sub(start).Milliseconds(), At: s.now()}
	if err != nil {
		entry.Status = models.TraceFailed
		entry.Error = err.Error()
		var te *models.TextGenError
		if errors.As(err, &te) {
			entry.ErrorKind = string(te.Kind)
			if raw == "" {
				raw = te.Raw
			}
		}
		r.progress.Append(entry)
		r.log.Error("Text phase failed", zap.String("model", model), zap.Error(err))
		return nil, raw, err
	}
	entry.Status = models.TraceOK
	r.progress.Append(entry)
	r.log.Info("Draft plan generated", zap.String("model", model), zap.Int("slides", len(plan.Slides)), zap.Int("image_requests", plan.ImageRequestCount()))
	return plan, raw, nil
}

// reviewPhase 0..N проходов эстетической ревизии. Неудачный проход оставляет предыдущий план.
// Ошибка возвращается только если не удалось сохранить прогресс.
func (s *generationServiceImpl) reviewPhase(ctx context.Context, r *run, l models.Layout, plan *models.PlannerOutput) (*models.PlannerOutput, error) {
	if s.opts.ReviewPasses <= 0 {
		return plan, nil
	}
	r.progress.SetStage(models.StageAestheticReview)
	if err := s.saveProgress(ctx, r); err != nil {
		return nil, err
	}

	for pass := 1; pass <= s.opts.ReviewPasses; pass++ {
		start := s.now()
		p := prompt.AestheticReview(r.doc.Brief, l, plan)
		var revised *models.PlannerOutput
		model, err := withTransportFallback(ctx, r.log, r.progress.TextModel, s.opts.FallbackModels, func(ctx context.Context, model string) error {
			var callErr error
			revised, _, callErr = s.text.GeneratePlan(ctx, p, nil, model)
			return callErr
		})
		if err == nil {
			err = sameSlideShape(plan, revised)
		}

		entry := models.TraceEntry{Phase: models.StageAestheticReview, RequestIndex: pass, Model: model, DurationMs: s.now().Sub(start).Milliseconds(), At: s.now()}
		if err != nil {
			entry.Status = models.TraceFailed
			entry.Error = err.Error()
			var te *models.TextGenError
			if errors.As(err, &te) {
				entry.ErrorKind = string(te.Kind)
			}
			r.log.Warn("Aesthetic review pass failed, keeping previous plan", zap.Int("pass", pass), zap.Error(err))
		} else {
			entry.Status = models.TraceOK
			plan = revised
			r.progress.ReviewPasses++
			r.log.Info("Aesthetic review pass applied", zap.Int("pass", pass), zap.String("model", model))
		}
		r.progress.Append(entry)
		if err := s.saveProgress(ctx, r); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// sameSlideShape ревизия не может менять число слайдов и их индексы.
func sameSlideShape(before, after *models.PlannerOutput) error {
	if len(before.Slides) != len(after.Slides) {
		return fmt.Errorf("%w: review changed slide count from %d to %d", models.ErrContractViolation, len(before.Slides), len(after.Slides))
	}
	for i := range before.Slides {
		if before.Slides[i].Index != after.Slides[i].Index {
			return fmt.Errorf("%w: review changed slide indices", models.ErrContractViolation)
		}
	}
	return nil
}

// compose накладывает план на текущий документ, на визуальный скелет или строит документ с нуля.
func (s *generationServiceImpl) compose(r *run, resolved models.ResolvedLayout, plan *models.PlannerOutput) *models.Document {
	opts := compositor.MergeOptions{KeepUnrequestedAssets: s.opts.KeepUnrequestedAssets}
	switch {
	case r.doc.Content != nil && len(r.doc.Content.Slides) > 0:
		style := compositor.ResolveStyle(&plan.GlobalStyle, &r.doc.Content.Global, resolved.Layout)
		r.log.Debug("Merging plan into existing document")
		return compositor.Merge(r.doc.Content, plan, resolved.Layout, style, opts)
	case resolved.VisualSkeleton != nil && len(resolved.VisualSkeleton.Slides) > 0:
		style := compositor.ResolveStyle(&plan.GlobalStyle, &resolved.VisualSkeleton.Global, resolved.Layout)
		r.log.Debug("Merging plan into visual skeleton", zap.String("layout_id", resolved.Layout.ID))
		return compositor.Merge(resolved.VisualSkeleton, plan, resolved.Layout, style, opts)
	default:
		style := compositor.ResolveStyle(&plan.GlobalStyle, nil, resolved.Layout)
		return compositor.FromScratch(plan, resolved.Layout, style)
	}
}

// skeletonSlides число слайдов документа, в который будет слит план. Ноль, если документ строится с нуля.
func skeletonSlides(r *run, resolved models.ResolvedLayout) int {
	switch {
	case r.doc.Content != nil && len(r.doc.Content.Slides) > 0:
		return len(r.doc.Content.Slides)
	case resolved.VisualSkeleton != nil:
		return len(resolved.VisualSkeleton.Slides)
	default:
		return 0
	}
}

func (s *generationServiceImpl) saveProgress(ctx context.Context, r *run) error {
	if err := s.jobs.UpdateProgress(ctx, s.db, r.doc.ID, r.jobID, r.progress); err != nil {
		r.log.Error("Failed to persist job progress", zap.String("stage", string(r.progress.Stage)), zap.Error(err))
		return fmt.Errorf("failed to persist progress: %w", err)
	}
	return nil
}

// abort неожиданная ошибка хранения после старта: задача уходит в failed со stage failed.
func (s *generationServiceImpl) abort(ctx context.Context, r *run, err error) error {
	r.progress.SetStage(models.StageFailed)
	s.finishFailed(ctx, r, err.Error(), "")
	return err
}

func (s *generationServiceImpl) finishFailed(ctx context.Context, r *run, msg, raw string) {
	err := s.jobs.Finish(ctx, s.db, r.doc.ID, r.jobID, repository.JobResult{
		Status:    models.JobStatusFailed,
		Progress:  r.progress,
		Error:     &msg,
		RawOutput: raw,
	})
	if err != nil {
		r.log.Error("Failed to mark job as failed", zap.Error(err))
	}
	generationRunsTotal.WithLabelValues(string(models.JobStatusFailed)).Inc()
	r.log.Warn("Generation failed", zap.String("stage", string(r.progress.Stage)), zap.String("error", msg))
	s.publish(ctx, r, models.JobStatusFailed, "", msg)
}

// publish событие best effort: ошибка брокера только логируется.
func (s *generationServiceImpl) publish(ctx context.Context, r *run, status models.JobStatus, title, errMsg string) {
	if s.publisher == nil {
		return
	}
	event := models.GenerationFinishedEvent{
		DocumentID: r.doc.ID,
		JobID:      r.jobID,
		OwnerID:    r.doc.OwnerID,
		Status:     status,
		Title:      title,
		Images:     r.progress.Images,
		Error:      errMsg,
	}
	if err := s.publisher.PublishGenerationFinished(ctx, event); err != nil {
		r.log.Warn("Failed to publish generation finished event", zap.Error(err))
	}
}

func (s *generationServiceImpl) GetProgress(ctx context.Context, ownerID string, documentID uuid.UUID) (*models.JobState, error) {
	doc, err := s.docs.Get(ctx, s.db, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, models.ErrForbidden
	}
	state, err := s.jobs.Get(ctx, s.db, documentID)
	if errors.Is(err, models.ErrNotFound) {
		idle := models.IdleJobState(documentID)
		return &idle, nil
	}
	if err != nil {
		s.logger.Error("Failed to load job state", zap.String("document_id", documentID.String()), zap.Error(err))
		return nil, err
	}
	state.Progress = state.Progress.Clone()
	return state, nil
}

// compile-time проверка
var _ LayoutResolver = (*layout.Resolver)(nil)
