package mocks

import (
	"context"
	"encoding/json"

	"carousel-server/internal/models"
	"carousel-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockGenerationService is a mock type for the GenerationService type
type MockGenerationService struct {
	mock.Mock
}

// StartGeneration provides a mock function with given fields: ctx, ownerID, documentID, imageModelOverride
func (_m *MockGenerationService) StartGeneration(ctx context.Context, ownerID string, documentID uuid.UUID, imageModelOverride string) (uuid.UUID, error) {
	ret := _m.Called(ctx, ownerID, documentID, imageModelOverride)

	var r0 uuid.UUID
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(uuid.UUID)
	}
	return r0, ret.Error(1)
}

// GetProgress provides a mock function with given fields: ctx, ownerID, documentID
func (_m *MockGenerationService) GetProgress(ctx context.Context, ownerID string, documentID uuid.UUID) (*models.JobState, error) {
	ret := _m.Called(ctx, ownerID, documentID)

	var r0 *models.JobState
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.JobState)
	}
	return r0, ret.Error(1)
}

var _ service.GenerationService = (*MockGenerationService)(nil)

// MockEditService is a mock type for the EditService type
type MockEditService struct {
	mock.Mock
}

// ApplyInstruction provides a mock function with given fields: ctx, ownerID, documentID, instruction, targetSlideIndex
func (_m *MockEditService) ApplyInstruction(ctx context.Context, ownerID string, documentID uuid.UUID, instruction string, targetSlideIndex int) (*models.EditResult, error) {
	ret := _m.Called(ctx, ownerID, documentID, instruction, targetSlideIndex)

	var r0 *models.EditResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.EditResult)
	}
	return r0, ret.Error(1)
}

var _ service.EditService = (*MockEditService)(nil)

// MockDocumentService is a mock type for the DocumentService type
type MockDocumentService struct {
	mock.Mock
}

// CreateDocument provides a mock function with given fields: ctx, ownerID, in
func (_m *MockDocumentService) CreateDocument(ctx context.Context, ownerID string, in service.CreateDocumentInput) (*models.DocumentRecord, error) {
	ret := _m.Called(ctx, ownerID, in)

	var r0 *models.DocumentRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.DocumentRecord)
	}
	return r0, ret.Error(1)
}

// GetDocument provides a mock function with given fields: ctx, ownerID, documentID
func (_m *MockDocumentService) GetDocument(ctx context.Context, ownerID string, documentID uuid.UUID) (*service.DocumentView, error) {
	ret := _m.Called(ctx, ownerID, documentID)

	var r0 *service.DocumentView
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.DocumentView)
	}
	return r0, ret.Error(1)
}

// GetLocks provides a mock function with given fields: ctx, ownerID, documentID
func (_m *MockDocumentService) GetLocks(ctx context.Context, ownerID string, documentID uuid.UUID) (models.LockSet, error) {
	ret := _m.Called(ctx, ownerID, documentID)

	var r0 models.LockSet
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(models.LockSet)
	}
	return r0, ret.Error(1)
}

// PutLocks provides a mock function with given fields: ctx, ownerID, documentID, locks
func (_m *MockDocumentService) PutLocks(ctx context.Context, ownerID string, documentID uuid.UUID, locks models.LockSet) error {
	ret := _m.Called(ctx, ownerID, documentID, locks)
	return ret.Error(0)
}

// AddReference provides a mock function with given fields: ctx, ownerID, documentID, in
func (_m *MockDocumentService) AddReference(ctx context.Context, ownerID string, documentID uuid.UUID, in service.ReferenceUpload) (*models.Asset, error) {
	ret := _m.Called(ctx, ownerID, documentID, in)

	var r0 *models.Asset
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Asset)
	}
	return r0, ret.Error(1)
}

// CleanupPlaceholders provides a mock function with given fields: ctx, ownerID, documentID
func (_m *MockDocumentService) CleanupPlaceholders(ctx context.Context, ownerID string, documentID uuid.UUID) (int, error) {
	ret := _m.Called(ctx, ownerID, documentID)
	return ret.Int(0), ret.Error(1)
}

// ListLayouts provides a mock function with given fields: ctx
func (_m *MockDocumentService) ListLayouts(ctx context.Context) []models.Layout {
	ret := _m.Called(ctx)

	var r0 []models.Layout
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Layout)
	}
	return r0
}

// CreateLayout provides a mock function with given fields: ctx, ownerID, kind, payload
func (_m *MockDocumentService) CreateLayout(ctx context.Context, ownerID string, kind models.LayoutKind, payload json.RawMessage) (string, error) {
	ret := _m.Called(ctx, ownerID, kind, payload)
	return ret.String(0), ret.Error(1)
}

var _ service.DocumentService = (*MockDocumentService)(nil)
