package service_test

import (
	"context"
	"testing"

	"carousel-server/internal/mocks"
	"carousel-server/internal/models"
	"carousel-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func editableDocument() *models.Document {
	slide := func(n int) models.Slide {
		return models.Slide{
			ID:     models.SlideKey(n),
			Width:  1080,
			Height: 1350,
			Objects: []models.Object{
				{Type: models.ObjectImage, ID: "image_background", SlotID: "background", Width: 1080, Height: 1350},
				{Type: models.ObjectText, ID: "title", Variant: "title", Text: "Original title", X: 86, Y: 243},
				{Type: models.ObjectText, ID: "body", Variant: "body", Text: "Original body", X: 86, Y: 675},
			},
		}
	}
	return &models.Document{Version: models.DocumentVersion, Slides: []models.Slide{slide(1), slide(2)}}
}

func TestApplyInstruction_RespectsLocks(t *testing.T) {
	ctx := context.Background()
	docs := mocks.NewMockDocumentRepository(t)
	locks := mocks.NewMockLockRepository(t)
	text := mocks.NewMockTextClient(t)

	doc := &models.DocumentRecord{ID: uuid.New(), OwnerID: ownerID, Content: editableDocument()}
	docs.On("Get", mock.Anything, mock.Anything, doc.ID).Return(doc, nil)
	locks.On("Get", mock.Anything, mock.Anything, doc.ID).Return(models.LockSet{"slide_1": {"title": true}}, nil)
	text.On("DefaultModel").Return("primary-model").Maybe()
	text.On("Generate", mock.Anything, mock.MatchedBy(func(r service.TextRequest) bool {
		return r.Model == "primary-model" && r.User != ""
	})).Return(`{"operations":[
		{"op":"set_text","slideIndex":1,"objectId":"title","text":"Hacked title"},
		{"op":"set_text","slideIndex":1,"objectId":"body","text":"Sharper body"},
		{"op":"move","slideIndex":1,"objectId":"ghost","x":10,"y":10}
	],"summary":"tightened copy"}`, service.UsageInfo{}, nil).Once()

	var saved *models.Document
	docs.On("UpdateContent", mock.Anything, mock.Anything, doc.ID, mock.Anything, "").
		Run(func(args mock.Arguments) { saved = args.Get(3).(*models.Document) }).
		Return(nil).Once()

	svc := service.NewEditService(nil, docs, locks, service.NewTextAdapter(text, true, zap.NewNop()),
		service.GenerationOptions{TextConfigured: true}, zap.NewNop())
	res, err := svc.ApplyInstruction(ctx, ownerID, doc.ID, "make the copy sharper", 1)
	require.NoError(t, err)

	assert.Equal(t, models.EditResult{Applied: 1, SkippedLocked: 1, SkippedMissing: 1, Summary: "tightened copy"}, *res)
	require.NotNil(t, saved)
	assert.Equal(t, "Original title", saved.Slides[0].Object("title").Text)
	assert.Equal(t, "Sharper body", saved.Slides[0].Object("body").Text)
	assert.Equal(t, "Original body", saved.Slides[1].Object("body").Text)
	// входной документ не меняется
	assert.Equal(t, "Original body", doc.Content.Slides[0].Object("body").Text)
}

func TestApplyInstruction_NothingAppliedIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	docs := mocks.NewMockDocumentRepository(t)
	locks := mocks.NewMockLockRepository(t)
	text := mocks.NewMockTextClient(t)

	doc := &models.DocumentRecord{ID: uuid.New(), OwnerID: ownerID, Content: editableDocument()}
	docs.On("Get", mock.Anything, mock.Anything, doc.ID).Return(doc, nil)
	locks.On("Get", mock.Anything, mock.Anything, doc.ID).Return(models.LockSet{}, nil)
	text.On("DefaultModel").Return("primary-model").Maybe()
	text.On("Generate", mock.Anything, mock.Anything).
		Return(`{"operations":[{"op":"set_text","slideIndex":2,"objectId":"title","text":"x"}]}`, service.UsageInfo{}, nil).Once()

	svc := service.NewEditService(nil, docs, locks, service.NewTextAdapter(text, true, zap.NewNop()),
		service.GenerationOptions{TextConfigured: true}, zap.NewNop())
	res, err := svc.ApplyInstruction(ctx, ownerID, doc.ID, "rename", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Applied)
	assert.Equal(t, 1, res.SkippedMissing)
	docs.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyInstruction_InvalidInput(t *testing.T) {
	ctx := context.Background()
	docs := mocks.NewMockDocumentRepository(t)
	locks := mocks.NewMockLockRepository(t)
	text := mocks.NewMockTextClient(t)
	svc := service.NewEditService(nil, docs, locks, service.NewTextAdapter(text, true, zap.NewNop()),
		service.GenerationOptions{TextConfigured: true}, zap.NewNop())

	empty := &models.DocumentRecord{ID: uuid.New(), OwnerID: ownerID}
	full := &models.DocumentRecord{ID: uuid.New(), OwnerID: ownerID, Content: editableDocument()}
	docs.On("Get", mock.Anything, mock.Anything, empty.ID).Return(empty, nil)
	docs.On("Get", mock.Anything, mock.Anything, full.ID).Return(full, nil)

	_, err := svc.ApplyInstruction(ctx, ownerID, full.ID, "   ", 0)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.ApplyInstruction(ctx, ownerID, empty.ID, "shorter", 0)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.ApplyInstruction(ctx, ownerID, full.ID, "shorter", 7)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.ApplyInstruction(ctx, "intruder", full.ID, "shorter", 0)
	assert.ErrorIs(t, err, models.ErrForbidden)

	text.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}
