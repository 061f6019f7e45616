// Package mocks provides test doubles for the google client.
package mocks

import (
	"context"

	google "github.com/basedlsg/Nemo-Time-sub000/pkg/google"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, req
func (_m *MockClient) Search(ctx context.Context, req google.SearchRequest) (*google.SearchResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 *google.SearchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, google.SearchRequest) (*google.SearchResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, google.SearchRequest) *google.SearchResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*google.SearchResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, google.SearchRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
