package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carousel-server/internal/handler"
	"carousel-server/internal/mocks"
	"carousel-server/internal/models"
	"carousel-server/internal/service"
	"carousel-server/internal/storage"
	"carousel-server/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "handler-test-secret"
	testUser   = "user-1"
)

type testServer struct {
	router     *gin.Engine
	documents  *mocks.MockDocumentService
	generation *mocks.MockGenerationService
	edits      *mocks.MockEditService
	files      *storage.FileStore
	token      string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	files, err := storage.NewFileStore(t.TempDir(), "sign-secret", "", zap.NewNop())
	require.NoError(t, err)

	s := &testServer{
		router:     gin.New(),
		documents:  new(mocks.MockDocumentService),
		generation: new(mocks.MockGenerationService),
		edits:      new(mocks.MockEditService),
		files:      files,
	}
	h := handler.NewCarouselHandler(s.documents, s.generation, s.edits, files, testSecret, 1024, zap.NewNop())
	h.RegisterRoutes(s.router)

	claims := middleware.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   testUser,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	s.token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (s *testServer) do(method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+s.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRequiresToken(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/layouts", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStartGeneration_ErrorMapping(t *testing.T) {
	docID := uuid.New()
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "in progress", err: models.ErrGenerationInProgress, wantStatus: http.StatusConflict, wantCode: handler.ErrCodeGenerationInProgress},
		{name: "configuration", err: fmt.Errorf("%w: text model api key is not set", models.ErrConfiguration), wantStatus: http.StatusServiceUnavailable, wantCode: handler.ErrCodeConfiguration},
		{name: "forbidden", err: models.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: handler.ErrCodeForbidden},
		{name: "not found", err: models.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: handler.ErrCodeNotFound},
		{name: "contract", err: fmt.Errorf("%w: %w", models.ErrTextGenerationFailed, &models.TextGenError{Kind: models.TextErrorSchemaMismatch}), wantStatus: http.StatusUnprocessableEntity, wantCode: handler.ErrCodeContractViolation},
		{name: "transport", err: fmt.Errorf("%w: %w", models.ErrTextGenerationFailed, &models.TextGenError{Kind: models.TextErrorTransport}), wantStatus: http.StatusBadGateway, wantCode: handler.ErrCodeUpstream},
		{name: "unknown", err: errors.New("disk on fire"), wantStatus: http.StatusInternalServerError, wantCode: handler.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.generation.On("StartGeneration", mock.Anything, testUser, docID, "").Return(uuid.Nil, tt.err).Once()

			w := s.do(http.MethodPost, "/api/v1/documents/"+docID.String()+"/generate", nil, "")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
		})
	}
}

func TestStartGeneration_Success(t *testing.T) {
	s := newTestServer(t)
	docID, jobID := uuid.New(), uuid.New()
	state := &models.JobState{DocumentID: docID, JobID: jobID, Status: models.JobStatusSucceeded,
		Progress: models.Progress{Stage: models.StageDone, Images: models.ImageCounters{Total: 2, Done: 1, Failed: 1}}}
	s.generation.On("StartGeneration", mock.Anything, testUser, docID, "img-fast").Return(jobID, nil).Once()
	s.generation.On("GetProgress", mock.Anything, testUser, docID).Return(state, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/documents/"+docID.String()+"/generate", []byte(`{"imageModel":"img-fast"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		JobID uuid.UUID       `json:"jobId"`
		State models.JobState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, jobID, resp.JobID)
	assert.Equal(t, 1, resp.State.Progress.Images.Failed)
}

func TestInvalidDocumentID(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/v1/documents/not-a-uuid/progress", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplyEdit(t *testing.T) {
	s := newTestServer(t)
	docID := uuid.New()
	s.edits.On("ApplyInstruction", mock.Anything, testUser, docID, "shorter titles", 2).
		Return(&models.EditResult{Applied: 1, SkippedLocked: 2}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/documents/"+docID.String()+"/edit", []byte(`{"instruction":"shorter titles","slideIndex":2}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	var res models.EditResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.SkippedLocked)

	w = s.do(http.MethodPost, "/api/v1/documents/"+docID.String()+"/edit", []byte(`{"slideIndex":1}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLocksRoundTrip(t *testing.T) {
	s := newTestServer(t)
	docID := uuid.New()
	locks := models.LockSet{"slide_1": {"title": true}}
	s.documents.On("PutLocks", mock.Anything, testUser, docID, locks).Return(nil).Once()
	s.documents.On("GetLocks", mock.Anything, testUser, docID).Return(locks, nil).Once()

	w := s.do(http.MethodPut, "/api/v1/documents/"+docID.String()+"/locks", []byte(`{"slide_1":{"title":true}}`), "application/json")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/v1/documents/"+docID.String()+"/locks", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"slide_1":{"title":true}}`, w.Body.String())
}

func TestUploadReference(t *testing.T) {
	s := newTestServer(t)
	docID := uuid.New()
	data := []byte("\x89PNG\r\n\x1a\nrest-of-image")
	s.documents.On("AddReference", mock.Anything, testUser, docID, service.ReferenceUpload{
		Role: models.AssetRoleStyle, Name: "mood", ContentType: "image/png", Data: data,
	}).Return(&models.Asset{ID: uuid.New(), Role: models.AssetRoleStyle}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/documents/"+docID.String()+"/references?role=style&name=mood", data, "image/png")
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/v1/documents/"+docID.String()+"/references", make([]byte, 4096), "image/png")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCleanupPlaceholders(t *testing.T) {
	s := newTestServer(t)
	docID := uuid.New()
	s.documents.On("CleanupPlaceholders", mock.Anything, testUser, docID).Return(3, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/documents/"+docID.String()+"/cleanup-placeholders", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"removed":3}`, w.Body.String())
}

func TestCreateLayout(t *testing.T) {
	s := newTestServer(t)
	s.documents.On("CreateLayout", mock.Anything, testUser, models.LayoutKindVisual, mock.Anything).Return("custom/abc", nil).Once()

	w := s.do(http.MethodPost, "/api/v1/layouts", []byte(`{"kind":"visual","payload":{"layout":{}}}`), "application/json")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"custom/abc"}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/layouts", []byte(`{"kind":"poster","payload":{}}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServeSignedFile(t *testing.T) {
	s := newTestServer(t)
	data := []byte("\x89PNG\r\n\x1a\nimage-bytes")
	require.NoError(t, s.files.Upload(context.Background(), models.BucketGenerated, "doc/job/slide_1_1.png", data, "image/png"))

	signed, err := s.files.SignURL(models.BucketGenerated, "doc/job/slide_1_1.png", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, signed, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, data, w.Body.Bytes())

	req = httptest.NewRequest(http.MethodGet, "/files/generated/doc/job/slide_1_1.png?expires=1&sig=bogus", nil)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
