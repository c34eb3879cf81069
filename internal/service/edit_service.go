package service

import (
	"context"
	"fmt"
	"strings"

	"carousel-server/internal/editpatch"
	"carousel-server/internal/models"
	"carousel-server/internal/prompt"
	"carousel-server/internal/repository"
	"carousel-server/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EditService правка готового документа текстовой инструкцией.
type EditService interface {
	// ApplyInstruction targetSlideIndex 0 значит весь документ.
	ApplyInstruction(ctx context.Context, ownerID string, documentID uuid.UUID, instruction string, targetSlideIndex int) (*models.EditResult, error)
}

type editServiceImpl struct {
	db             database.DBTX
	docs           repository.DocumentRepository
	locks          repository.LockRepository
	text           *TextAdapter
	textModel      string
	fallbackModels []string
	textConfigured bool
	logger         *zap.Logger
}

func NewEditService(db database.DBTX, docs repository.DocumentRepository, locks repository.LockRepository, text *TextAdapter, opts GenerationOptions, logger *zap.Logger) EditService {
	return &editServiceImpl{
		db:             db,
		docs:           docs,
		locks:          locks,
		text:           text,
		textModel:      opts.TextModel,
		fallbackModels: opts.FallbackModels,
		textConfigured: opts.TextConfigured,
		logger:         logger.Named("EditService"),
	}
}

func (s *editServiceImpl) ApplyInstruction(ctx context.Context, ownerID string, documentID uuid.UUID, instruction string, targetSlideIndex int) (*models.EditResult, error) {
	log := s.logger.With(zap.String("document_id", documentID.String()), zap.Int("target_slide", targetSlideIndex))

	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, fmt.Errorf("%w: instruction is empty", models.ErrInvalidInput)
	}
	if !s.textConfigured {
		return nil, fmt.Errorf("%w: text model api key is not set", models.ErrConfiguration)
	}

	doc, err := s.docs.Get(ctx, s.db, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		log.Warn("Edit requested by non-owner")
		return nil, models.ErrForbidden
	}
	if doc.Content == nil || len(doc.Content.Slides) == 0 {
		return nil, fmt.Errorf("%w: document has no content to edit", models.ErrInvalidInput)
	}
	if targetSlideIndex < 0 || targetSlideIndex > len(doc.Content.Slides) {
		return nil, fmt.Errorf("%w: slide %d does not exist", models.ErrInvalidInput, targetSlideIndex)
	}

	locks, err := s.locks.Get(ctx, s.db, documentID)
	if err != nil {
		log.Error("Failed to load locks", zap.Error(err))
		return nil, err
	}

	p := prompt.Edit(prompt.EditInput{
		Instruction: instruction,
		Slides:      editpatch.Summarize(doc.Content, targetSlideIndex),
		Locks:       locks,
		TargetSlide: targetSlideIndex,
	})

	var patch *models.EditPatch
	primary := firstNonEmpty(s.textModel, s.text.DefaultModel())
	model, err := withTransportFallback(ctx, log, primary, s.fallbackModels, func(ctx context.Context, model string) error {
		var callErr error
		patch, _, callErr = s.text.GeneratePatch(ctx, p, model)
		return callErr
	})
	if err != nil {
		log.Error("Edit patch generation failed", zap.String("model", model), zap.Error(err))
		return nil, err
	}

	res := editpatch.Apply(doc.Content, patch, locks, targetSlideIndex)
	for _, o := range res.Outcomes {
		editOperationsTotal.WithLabelValues(string(o)).Inc()
	}

	if res.Applied > 0 {
		if err := s.docs.UpdateContent(ctx, s.db, documentID, res.Document, ""); err != nil {
			log.Error("Failed to persist edited document", zap.Error(err))
			return nil, err
		}
	}
	log.Info("Edit instruction applied",
		zap.String("model", model),
		zap.Int("applied", res.Applied),
		zap.Int("skipped_locked", res.SkippedLocked),
		zap.Int("skipped_missing", res.SkippedMissing))

	out := res.EditResult()
	return &out, nil
}
