package mocks

import (
	"context"
	"time"

	"carousel-server/internal/models"
	"carousel-server/internal/service"
	"carousel-server/internal/storage"
	"carousel-server/pkg/database"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock type for the Storage type
type MockStorage struct {
	mock.Mock
}

// Download provides a mock function with given fields: ctx, bucket, path
func (_m *MockStorage) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	ret := _m.Called(ctx, bucket, path)

	var r0 []byte
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}
	return r0, ret.Error(1)
}

// Upload provides a mock function with given fields: ctx, bucket, path, data, contentType
func (_m *MockStorage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	ret := _m.Called(ctx, bucket, path, data, contentType)
	return ret.Error(0)
}

// SignURL provides a mock function with given fields: bucket, path, ttl
func (_m *MockStorage) SignURL(bucket, path string, ttl time.Duration) (string, error) {
	ret := _m.Called(bucket, path, ttl)
	return ret.String(0), ret.Error(1)
}

// NewMockStorage creates a new instance of MockStorage.
func NewMockStorage(t interface {
	mock.TestingT
	Helper()
}) *MockStorage {
	m := &MockStorage{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ storage.Storage = (*MockStorage)(nil)

// MockEventPublisher is a mock type for the EventPublisher type
type MockEventPublisher struct {
	mock.Mock
}

// PublishGenerationFinished provides a mock function with given fields: ctx, event
func (_m *MockEventPublisher) PublishGenerationFinished(ctx context.Context, event models.GenerationFinishedEvent) error {
	ret := _m.Called(ctx, event)
	return ret.Error(0)
}

// NewMockEventPublisher creates a new instance of MockEventPublisher.
func NewMockEventPublisher(t interface {
	mock.TestingT
	Helper()
}) *MockEventPublisher {
	m := &MockEventPublisher{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.EventPublisher = (*MockEventPublisher)(nil)

// MockTxRunner is a mock type for the TxRunner type.
// Если ожидание вернуло nil, fn выполняется с querier, переданным в Tx.
type MockTxRunner struct {
	mock.Mock
	Tx database.DBTX
}

// ExecuteInTransaction provides a mock function with given fields: ctx, fn
func (_m *MockTxRunner) ExecuteInTransaction(ctx context.Context, fn func(tx database.DBTX) error) error {
	ret := _m.Called(ctx)
	if err := ret.Error(0); err != nil {
		return err
	}
	return fn(_m.Tx)
}

// NewMockTxRunner creates a new instance of MockTxRunner.
func NewMockTxRunner(t interface {
	mock.TestingT
	Helper()
}) *MockTxRunner {
	m := &MockTxRunner{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.TxRunner = (*MockTxRunner)(nil)
