package mocks

import (
	"context"

	"carousel-server/internal/models"
	"carousel-server/internal/repository"
	"carousel-server/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockDocumentRepository is a mock type for the DocumentRepository type
type MockDocumentRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, querier, doc
func (_m *MockDocumentRepository) Create(ctx context.Context, querier database.DBTX, doc *models.DocumentRecord) error {
	ret := _m.Called(ctx, querier, doc)
	return ret.Error(0)
}

// Get provides a mock function with given fields: ctx, querier, id
func (_m *MockDocumentRepository) Get(ctx context.Context, querier database.DBTX, id uuid.UUID) (*models.DocumentRecord, error) {
	ret := _m.Called(ctx, querier, id)

	var r0 *models.DocumentRecord
	if rf, ok := ret.Get(0).(func(context.Context, database.DBTX, uuid.UUID) *models.DocumentRecord); ok {
		r0 = rf(ctx, querier, id)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.DocumentRecord)
	}
	return r0, ret.Error(1)
}

// UpdateContent provides a mock function with given fields: ctx, querier, id, content, title
func (_m *MockDocumentRepository) UpdateContent(ctx context.Context, querier database.DBTX, id uuid.UUID, content *models.Document, title string) error {
	ret := _m.Called(ctx, querier, id, content, title)
	return ret.Error(0)
}

// NewMockDocumentRepository creates a new instance of MockDocumentRepository.
func NewMockDocumentRepository(t interface {
	mock.TestingT
	Helper()
}) *MockDocumentRepository {
	m := &MockDocumentRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.DocumentRepository = (*MockDocumentRepository)(nil)

// MockJobRepository is a mock type for the JobRepository type
type MockJobRepository struct {
	mock.Mock
}

// TryStart provides a mock function with given fields: ctx, querier, documentID, jobID, progress
func (_m *MockJobRepository) TryStart(ctx context.Context, querier database.DBTX, documentID, jobID uuid.UUID, progress models.Progress) error {
	ret := _m.Called(ctx, querier, documentID, jobID, progress)
	return ret.Error(0)
}

// Get provides a mock function with given fields: ctx, querier, documentID
func (_m *MockJobRepository) Get(ctx context.Context, querier database.DBTX, documentID uuid.UUID) (*models.JobState, error) {
	ret := _m.Called(ctx, querier, documentID)

	var r0 *models.JobState
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.JobState)
	}
	return r0, ret.Error(1)
}

// UpdateProgress provides a mock function with given fields: ctx, querier, documentID, jobID, progress
func (_m *MockJobRepository) UpdateProgress(ctx context.Context, querier database.DBTX, documentID, jobID uuid.UUID, progress models.Progress) error {
	ret := _m.Called(ctx, querier, documentID, jobID, progress.Clone())
	return ret.Error(0)
}

// Finish provides a mock function with given fields: ctx, querier, documentID, jobID, result
func (_m *MockJobRepository) Finish(ctx context.Context, querier database.DBTX, documentID, jobID uuid.UUID, result repository.JobResult) error {
	result.Progress = result.Progress.Clone()
	ret := _m.Called(ctx, querier, documentID, jobID, result)
	return ret.Error(0)
}

// NewMockJobRepository creates a new instance of MockJobRepository.
func NewMockJobRepository(t interface {
	mock.TestingT
	Helper()
}) *MockJobRepository {
	m := &MockJobRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.JobRepository = (*MockJobRepository)(nil)

// MockAssetRepository is a mock type for the AssetRepository type
type MockAssetRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, querier, asset
func (_m *MockAssetRepository) Create(ctx context.Context, querier database.DBTX, asset *models.Asset) error {
	ret := _m.Called(ctx, querier, asset)
	return ret.Error(0)
}

// Get provides a mock function with given fields: ctx, querier, id
func (_m *MockAssetRepository) Get(ctx context.Context, querier database.DBTX, id uuid.UUID) (*models.Asset, error) {
	ret := _m.Called(ctx, querier, id)

	var r0 *models.Asset
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Asset)
	}
	return r0, ret.Error(1)
}

// ListByDocument provides a mock function with given fields: ctx, querier, documentID, assetType, roles
func (_m *MockAssetRepository) ListByDocument(ctx context.Context, querier database.DBTX, documentID uuid.UUID, assetType models.AssetType, roles ...models.AssetRole) ([]models.Asset, error) {
	ret := _m.Called(ctx, querier, documentID, assetType, roles)

	var r0 []models.Asset
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Asset)
	}
	return r0, ret.Error(1)
}

// GetMany provides a mock function with given fields: ctx, querier, ids
func (_m *MockAssetRepository) GetMany(ctx context.Context, querier database.DBTX, ids []uuid.UUID) ([]models.Asset, error) {
	ret := _m.Called(ctx, querier, ids)

	var r0 []models.Asset
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Asset)
	}
	return r0, ret.Error(1)
}

// NewMockAssetRepository creates a new instance of MockAssetRepository.
func NewMockAssetRepository(t interface {
	mock.TestingT
	Helper()
}) *MockAssetRepository {
	m := &MockAssetRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.AssetRepository = (*MockAssetRepository)(nil)

// MockLockRepository is a mock type for the LockRepository type
type MockLockRepository struct {
	mock.Mock
}

// Get provides a mock function with given fields: ctx, querier, documentID
func (_m *MockLockRepository) Get(ctx context.Context, querier database.DBTX, documentID uuid.UUID) (models.LockSet, error) {
	ret := _m.Called(ctx, querier, documentID)

	var r0 models.LockSet
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(models.LockSet)
	}
	return r0, ret.Error(1)
}

// Put provides a mock function with given fields: ctx, querier, documentID, locks
func (_m *MockLockRepository) Put(ctx context.Context, querier database.DBTX, documentID uuid.UUID, locks models.LockSet) error {
	ret := _m.Called(ctx, querier, documentID, locks)
	return ret.Error(0)
}

// NewMockLockRepository creates a new instance of MockLockRepository.
func NewMockLockRepository(t interface {
	mock.TestingT
	Helper()
}) *MockLockRepository {
	m := &MockLockRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.LockRepository = (*MockLockRepository)(nil)

// MockLayoutRepository is a mock type for the LayoutRepository type
type MockLayoutRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, querier, layout
func (_m *MockLayoutRepository) Create(ctx context.Context, querier database.DBTX, layout *models.StoredLayout) error {
	ret := _m.Called(ctx, querier, layout)
	return ret.Error(0)
}

// GetLayout provides a mock function with given fields: ctx, id
func (_m *MockLayoutRepository) GetLayout(ctx context.Context, id uuid.UUID) (*models.StoredLayout, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.StoredLayout
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StoredLayout)
	}
	return r0, ret.Error(1)
}

// NewMockLayoutRepository creates a new instance of MockLayoutRepository.
func NewMockLayoutRepository(t interface {
	mock.TestingT
	Helper()
}) *MockLayoutRepository {
	m := &MockLayoutRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.LayoutRepository = (*MockLayoutRepository)(nil)
