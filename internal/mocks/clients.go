package mocks

import (
	"context"

	"carousel-server/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockTextClient is a mock type for the TextClient type
type MockTextClient struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, req
func (_m *MockTextClient) Generate(ctx context.Context, req service.TextRequest) (string, service.UsageInfo, error) {
	ret := _m.Called(ctx, req)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, service.TextRequest) string); ok {
		r0 = rf(ctx, req)
	} else {
		r0 = ret.String(0)
	}

	var r1 service.UsageInfo
	if ret.Get(1) != nil {
		r1 = ret.Get(1).(service.UsageInfo)
	}
	return r0, r1, ret.Error(2)
}

// DefaultModel provides a mock function with no fields
func (_m *MockTextClient) DefaultModel() string {
	ret := _m.Called()
	return ret.String(0)
}

// NewMockTextClient creates a new instance of MockTextClient.
func NewMockTextClient(t interface {
	mock.TestingT
	Helper()
}) *MockTextClient {
	m := &MockTextClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.TextClient = (*MockTextClient)(nil)

// MockImageClient is a mock type for the ImageClient type
type MockImageClient struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, req
func (_m *MockImageClient) Generate(ctx context.Context, req service.ImageRequest) (service.ImageResult, error) {
	ret := _m.Called(ctx, req)

	var r0 service.ImageResult
	if rf, ok := ret.Get(0).(func(context.Context, service.ImageRequest) service.ImageResult); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(service.ImageResult)
	}
	return r0, ret.Error(1)
}

// NewMockImageClient creates a new instance of MockImageClient.
func NewMockImageClient(t interface {
	mock.TestingT
	Helper()
}) *MockImageClient {
	m := &MockImageClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.ImageClient = (*MockImageClient)(nil)
