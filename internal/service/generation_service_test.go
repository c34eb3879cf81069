package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"carousel-server/internal/layout"
	"carousel-server/internal/mocks"
	"carousel-server/internal/models"
	"carousel-server/internal/repository"
	"carousel-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 48)...)

const ownerID = "user-1"

// planJSON валидный план на n слайдов, на каждом один запрос фонового изображения.
func planJSON(t *testing.T, n int) string {
	t.Helper()
	plan := models.PlannerOutput{
		Version: models.PlannerContractVersion,
		GlobalStyle: models.GlobalStyle{
			Palette: models.Palette{Background: "#101820", Text: "#F2F2F2", Accent: "#FEE715"},
		},
	}
	for i := 1; i <= n; i++ {
		plan.Slides = append(plan.Slides, models.SlidePlan{
			Index: i,
			Text:  models.SlideText{Title: fmt.Sprintf("Slide %d", i), Body: "Short body copy."},
			Images: []models.ImageRequest{{
				SlotID:  "background",
				Purpose: "hero",
				Prompt:  fmt.Sprintf("Calm workspace scene %d", i),
			}},
		})
	}
	data, err := json.Marshal(plan)
	require.NoError(t, err)
	return string(data)
}

type generationFixture struct {
	docs      *mocks.MockDocumentRepository
	jobs      *mocks.MockJobRepository
	assets    *mocks.MockAssetRepository
	storage   *mocks.MockStorage
	text      *mocks.MockTextClient
	images    *mocks.MockImageClient
	tx        *mocks.MockTxRunner
	publisher *mocks.MockEventPublisher
	doc       *models.DocumentRecord

	finished *repository.JobResult
	content  *models.Document
}

func newGenerationFixture(t *testing.T) *generationFixture {
	f := &generationFixture{
		docs:      mocks.NewMockDocumentRepository(t),
		jobs:      mocks.NewMockJobRepository(t),
		assets:    mocks.NewMockAssetRepository(t),
		storage:   mocks.NewMockStorage(t),
		text:      mocks.NewMockTextClient(t),
		images:    mocks.NewMockImageClient(t),
		tx:        mocks.NewMockTxRunner(t),
		publisher: mocks.NewMockEventPublisher(t),
		doc: &models.DocumentRecord{
			ID:       uuid.New(),
			OwnerID:  ownerID,
			Brief:    models.Brief{Topic: "Cold email tips", SlidesCount: 5},
			LayoutID: layout.DefaultLayoutID,
		},
	}
	f.text.On("DefaultModel").Return("primary-model").Maybe()
	return f
}

func (f *generationFixture) service(opts service.GenerationOptions) service.GenerationService {
	log := zap.NewNop()
	if opts.TextModel == "" {
		opts.TextModel = "primary-model"
	}
	refs := service.NewReferenceLoader(nil, f.assets, f.storage, 4, log)
	text := service.NewTextAdapter(f.text, true, log)
	images := service.NewImageAdapter(f.images, service.ImageModels{Default: "img-default", Text: "img-text"}, 16, log)
	return service.NewGenerationService(nil, f.tx, f.docs, f.jobs, f.assets, layout.NewResolver(nil, log),
		refs, text, images, f.storage, f.publisher, opts, log)
}

// expectRun ожидания успешного старта и сохранения результата.
func (f *generationFixture) expectRun() {
	f.docs.On("Get", mock.Anything, mock.Anything, f.doc.ID).Return(f.doc, nil)
	f.jobs.On("TryStart", mock.Anything, mock.Anything, f.doc.ID, mock.Anything, mock.Anything).Return(nil).Once()
	f.assets.On("ListByDocument", mock.Anything, mock.Anything, f.doc.ID, models.AssetTypeReference, mock.Anything).Return([]models.Asset{}, nil)
	f.jobs.On("UpdateProgress", mock.Anything, mock.Anything, f.doc.ID, mock.Anything, mock.Anything).Return(nil)
	f.jobs.On("Finish", mock.Anything, mock.Anything, f.doc.ID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			res := args.Get(4).(repository.JobResult)
			f.finished = &res
		}).Return(nil).Once()
	f.publisher.On("PublishGenerationFinished", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (f *generationFixture) expectPersist() {
	f.storage.On("Upload", mock.Anything, models.BucketGenerated, mock.Anything, mock.Anything, "image/png").Return(nil)
	f.assets.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.tx.On("ExecuteInTransaction", mock.Anything).Return(nil).Maybe()
	f.docs.On("UpdateContent", mock.Anything, mock.Anything, f.doc.ID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { f.content = args.Get(3).(*models.Document) }).
		Return(nil).Maybe()
}

func textReturns(raw string) []any {
	return []any{raw, service.UsageInfo{}, nil}
}

func TestStartGeneration_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newGenerationFixture(t)
	f.expectRun()
	f.expectPersist()
	f.text.On("Generate", mock.Anything, mock.Anything).Return(textReturns(planJSON(t, 5))...).Once()
	f.images.On("Generate", mock.Anything, mock.MatchedBy(func(r service.ImageRequest) bool {
		return r.Model == "img-default" && r.Width == 1080 && r.Height == 1350
	})).Return(service.ImageResult{Bytes: pngBytes, MIMEType: "image/png"}, nil).Times(5)

	jobID, err := f.service(service.GenerationOptions{TextConfigured: true}).StartGeneration(ctx, ownerID, f.doc.ID, "")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, jobID)

	require.NotNil(t, f.finished)
	assert.Equal(t, models.JobStatusSucceeded, f.finished.Status)
	assert.Equal(t, "Slide 1", f.finished.Title)
	assert.Equal(t, models.StageDone, f.finished.Progress.Stage)
	assert.Equal(t, models.ImageCounters{Total: 5, Done: 5, Failed: 0}, f.finished.Progress.Images)

	require.NotNil(t, f.content)
	require.Len(t, f.content.Slides, 5)
	for i, slide := range f.content.Slides {
		assert.Equal(t, models.SlideKey(i+1), slide.ID)
		img := slide.Object(models.ImageObjectID("background"))
		require.NotNil(t, img, "slide %d", i+1)
		require.NotNil(t, img.AssetID)
		assert.Equal(t, "background", img.SlotID)
		title := slide.Object(models.ZoneTitle)
		require.NotNil(t, title)
		assert.Equal(t, fmt.Sprintf("Slide %d", i+1), title.Text)
	}
	f.tx.AssertNumberOfCalls(t, "ExecuteInTransaction", 1)
}

func TestStartGeneration_ImageFailuresAreIsolated(t *testing.T) {
	ctx := context.Background()
	f := newGenerationFixture(t)
	f.expectRun()
	f.expectPersist()
	f.text.On("Generate", mock.Anything, mock.Anything).Return(textReturns(planJSON(t, 5))...).Once()

	ok := service.ImageResult{Bytes: pngBytes, MIMEType: "image/png"}
	f.images.On("Generate", mock.Anything, mock.Anything).Return(ok, nil).Once()
	f.images.On("Generate", mock.Anything, mock.Anything).Return(service.ImageResult{}, errors.New("upstream 500")).Once()
	f.images.On("Generate", mock.Anything, mock.Anything).Return(service.ImageResult{Bytes: []byte("<html>oops</html> not an image at all"), MIMEType: "image/png"}, nil).Once()
	f.images.On("Generate", mock.Anything, mock.Anything).Return(ok, nil).Twice()

	_, err := f.service(service.GenerationOptions{TextConfigured: true}).StartGeneration(ctx, ownerID, f.doc.ID, "")
	require.NoError(t, err)

	require.NotNil(t, f.finished)
	assert.Equal(t, models.JobStatusSucceeded, f.finished.Status)
	counters := f.finished.Progress.Images
	assert.Equal(t, models.ImageCounters{Total: 5, Done: 3, Failed: 2}, counters)
	assert.Equal(t, counters.Total, counters.Done+counters.Failed)

	var kinds []string
	for _, e := range f.finished.Progress.Trace {
		assert.Contains(t, []string{models.TraceOK, models.TraceFailed}, e.Status)
		if e.Phase == models.StageImages && e.Status == models.TraceFailed {
			kinds = append(kinds, e.ErrorKind)
		}
	}
	assert.Equal(t, []string{string(models.AssetErrorModel), string(models.AssetErrorValidation)}, kinds)

	require.NotNil(t, f.content)
	assert.Nil(t, f.content.Slides[1].Object(models.ImageObjectID("background")).AssetID)
	assert.Nil(t, f.content.Slides[2].Object(models.ImageObjectID("background")).AssetID)
	assert.NotNil(t, f.content.Slides[3].Object(models.ImageObjectID("background")).AssetID)
}

func TestStartGeneration_ExistingContentFixesSlideCount(t *testing.T) {
	ctx := context.Background()
	f := newGenerationFixture(t)
	f.doc.Content = &models.Document{Version: models.DocumentVersion}
	for i := 1; i <= 2; i++ {
		f.doc.Content.Slides = append(f.doc.Content.Slides, models.Slide{
			ID: models.SlideKey(i), Width: 1080, Height: 1350,
			Objects: []models.Object{
				{Type: models.ObjectImage, ID: models.ImageObjectID("background"), Width: 1080, Height: 1350, SlotID: "background"},
				{Type: models.ObjectText, ID: models.ZoneTitle, Variant: models.ZoneTitle, X: 300, Y: 40, Width: 600, Height: 200, Text: "Old"},
			},
		})
	}
	f.expectRun()
	f.expectPersist()
	f.text.On("Generate", mock.Anything, mock.MatchedBy(func(r service.TextRequest) bool {
		return strings.Contains(r.User, "Produce exactly 2 slides") && !strings.Contains(r.User, "Produce exactly 5 slides")
	})).Return(textReturns(planJSON(t, 2))...).Once()
	f.images.On("Generate", mock.Anything, mock.Anything).Return(service.ImageResult{Bytes: pngBytes, MIMEType: "image/png"}, nil).Twice()

	_, err := f.service(service.GenerationOptions{TextConfigured: true}).StartGeneration(ctx, ownerID, f.doc.ID, "")
	require.NoError(t, err)

	require.NotNil(t, f.finished)
	assert.Equal(t, models.JobStatusSucceeded, f.finished.Status)
	assert.Equal(t, models.ImageCounters{Total: 2, Done: 2, Failed: 0}, f.finished.Progress.Images)
	require.NotNil(t, f.content)
	require.Len(t, f.content.Slides, 2)
	assert.Equal(t, float64(300), f.content.Slides[0].Object(models.ZoneTitle).X, "geometry comes from the existing document")
}

func TestStartGeneration_RejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	f := newGenerationFixture(t)
	f.docs.On("Get", mock.Anything, mock.Anything, f.doc.ID).Return(f.doc, nil)
	f.jobs.On("TryStart", mock.Anything, mock.Anything, f.doc.ID, mock.Anything, mock.Anything).Return(models.ErrGenerationInProgress).Once()

	_, err := f.service(service.GenerationOptions{TextConfigured: true}).StartGeneration(ctx, ownerID, f.doc.ID, "")
	assert.ErrorIs(t, err, models.ErrGenerationInProgress)
	f.text.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	f.jobs.AssertNotCalled(t, "Finish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStartGeneration_PreconditionErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing text credentials", func(t *testing.T) {
		f := newGenerationFixture(t)
		_, err := f.service(service.GenerationOptions{TextConfigured: false}).StartGeneration(ctx, ownerID, f.doc.ID, "")
		assert.ErrorIs(t, err, models.ErrConfiguration)
		f.docs.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not owner", func(t *testing.T) {
		f := newGenerationFixture(t)
		f.docs.On("Get", mock.Anything, mock.Anything, f.doc.ID).Return(f.doc, nil)
		_, err := f.service(service.GenerationOptions{TextConfigured: true}).StartGeneration(ctx, "someone-else", f.doc.ID, "")
		assert.ErrorIs(t, err, models.ErrForbidden)
		f.jobs.AssertNotCalled(t, "TryStart", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing document", func(t *testing.T) {
		f := newGenerationFixture(t)
		f.docs.On("Get", mock.Anything, mock.Anything, f.doc.ID).Return(nil, models.ErrNotFound)
		_, err := f.service(service.GenerationOptions{TextConfigured: true}).StartGeneration(ctx, ownerID, f.doc.ID, "")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestStartGeneration_TextFailure(t *testing.T) {
	ctx := context.Background()
	f := newGenerationFixture(t)
	f.expectRun()
	f.text.On("Generate", mock.Anything, mock.Anything).Return(textReturns("Sorry, I cannot help with that.")...).Once()

	_, err := f.service(service.GenerationOptions{TextConfigured: true, FallbackModels: []string{"big-pro-model"}}).
		StartGeneration(ctx, ownerID, f.doc.ID, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTextGenerationFailed)
	assert.ErrorIs(t, err, models.ErrNonJSON)

	require.NotNil(t, f.finished)
	assert.Equal(t, models.JobStatusFailed, f.finished.Status)
	assert.Equal(t, models.StageFailedText, f.finished.Progress.Stage)
	assert.Equal(t, "Sorry, I cannot help with that.", f.finished.RawOutput)
	require.NotNil(t, f.finished.Error)
	f.text.AssertNumberOfCalls(t, "Generate", 1)
	f.images.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestStartGeneration_TransportFallback(t *testing.T) {
	ctx := context.Background()
	f := newGenerationFixture(t)
	f.expectRun()
	f.expectPersist()
	f.text.On("Generate", mock.Anything, mock.MatchedBy(func(r service.TextRequest) bool { return r.Model == "primary-model" })).
		Return("", service.UsageInfo{}, errors.New("dial tcp: connection refused")).Once()
	f.text.On("Generate", mock.Anything, mock.MatchedBy(func(r service.TextRequest) bool { return r.Model == "big-pro-model" })).
		Return(textReturns(planJSON(t, 2))...).Once()
	f.images.On("Generate", mock.Anything, mock.Anything).Return(service.ImageResult{Bytes: pngBytes, MIMEType: "image/png"}, nil)

	opts := service.GenerationOptions{TextConfigured: true, FallbackModels: []string{"tiny-mini", "big-pro-model"}}
	_, err := f.service(opts).StartGeneration(ctx, ownerID, f.doc.ID, "")
	require.NoError(t, err)

	require.NotNil(t, f.finished)
	assert.Equal(t, models.JobStatusSucceeded, f.finished.Status)
	assert.Equal(t, "big-pro-model", f.finished.Progress.TextModel)
}

func TestStartGeneration_ReviewFailureKeepsPreviousPlan(t *testing.T) {
	ctx := context.Background()
	f := newGenerationFixture(t)
	f.expectRun()
	f.expectPersist()
	f.text.On("Generate", mock.Anything, mock.Anything).Return(textReturns(planJSON(t, 5))...).Once()
	// Ревизия вернула другое число слайдов
	f.text.On("Generate", mock.Anything, mock.Anything).Return(textReturns(planJSON(t, 3))...).Once()
	f.images.On("Generate", mock.Anything, mock.Anything).Return(service.ImageResult{Bytes: pngBytes, MIMEType: "image/png"}, nil)

	_, err := f.service(service.GenerationOptions{TextConfigured: true, ReviewPasses: 1}).StartGeneration(ctx, ownerID, f.doc.ID, "")
	require.NoError(t, err)

	require.NotNil(t, f.finished)
	assert.Equal(t, models.JobStatusSucceeded, f.finished.Status)
	assert.Equal(t, 0, f.finished.Progress.ReviewPasses)
	require.NotNil(t, f.content)
	assert.Len(t, f.content.Slides, 5)

	var review []models.TraceEntry
	for _, e := range f.finished.Progress.Trace {
		if e.Phase == models.StageAestheticReview {
			review = append(review, e)
		}
	}
	require.Len(t, review, 1)
	assert.Equal(t, models.TraceFailed, review[0].Status)
}

func TestStartGeneration_PersistFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	f := newGenerationFixture(t)
	f.expectRun()
	f.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.assets.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.tx.On("ExecuteInTransaction", mock.Anything).Return(errors.New("connection reset")).Once()
	f.text.On("Generate", mock.Anything, mock.Anything).Return(textReturns(planJSON(t, 1))...).Once()
	f.images.On("Generate", mock.Anything, mock.Anything).Return(service.ImageResult{Bytes: pngBytes, MIMEType: "image/png"}, nil)

	_, err := f.service(service.GenerationOptions{TextConfigured: true}).StartGeneration(ctx, ownerID, f.doc.ID, "")
	require.Error(t, err)
	require.NotNil(t, f.finished)
	assert.Equal(t, models.JobStatusFailed, f.finished.Status)
	assert.Equal(t, models.StageFailed, f.finished.Progress.Stage)
}

func TestGetProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("idle when never started", func(t *testing.T) {
		f := newGenerationFixture(t)
		f.docs.On("Get", mock.Anything, mock.Anything, f.doc.ID).Return(f.doc, nil)
		f.jobs.On("Get", mock.Anything, mock.Anything, f.doc.ID).Return(nil, models.ErrNotFound)

		state, err := f.service(service.GenerationOptions{}).GetProgress(ctx, ownerID, f.doc.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusIdle, state.Status)
		assert.Equal(t, f.doc.ID, state.DocumentID)
	})

	t.Run("running job", func(t *testing.T) {
		f := newGenerationFixture(t)
		f.docs.On("Get", mock.Anything, mock.Anything, f.doc.ID).Return(f.doc, nil)
		progress := models.NewProgress()
		progress.SetStage(models.StageImages)
		progress.Images = models.ImageCounters{Total: 4, Done: 1}
		f.jobs.On("Get", mock.Anything, mock.Anything, f.doc.ID).
			Return(&models.JobState{DocumentID: f.doc.ID, Status: models.JobStatusRunning, Progress: progress}, nil)

		state, err := f.service(service.GenerationOptions{}).GetProgress(ctx, ownerID, f.doc.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusRunning, state.Status)
		assert.Equal(t, 1, state.Progress.Images.Done)
	})

	t.Run("forbidden", func(t *testing.T) {
		f := newGenerationFixture(t)
		f.docs.On("Get", mock.Anything, mock.Anything, f.doc.ID).Return(f.doc, nil)
		_, err := f.service(service.GenerationOptions{}).GetProgress(ctx, "intruder", f.doc.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}
