// Package mocks provides test doubles for the google client.
package mocks

import (
	"context"

	google "github.com/sells-group/fsbo/pkg/google"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Autocomplete provides a mock function with given fields: ctx, input, sessionToken
func (_m *MockClient) Autocomplete(ctx context.Context, input string, sessionToken string) (*google.AutocompleteResponse, error) {
	ret := _m.Called(ctx, input, sessionToken)

	if len(ret) == 0 {
		panic("no return value specified for Autocomplete")
	}

	var r0 *google.AutocompleteResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (*google.AutocompleteResponse, error)); ok {
		return rf(ctx, input, sessionToken)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.AutocompleteResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// PlaceDetails provides a mock function with given fields: ctx, placeID, sessionToken
func (_m *MockClient) PlaceDetails(ctx context.Context, placeID string, sessionToken string) (*google.PlaceDetails, error) {
	ret := _m.Called(ctx, placeID, sessionToken)

	if len(ret) == 0 {
		panic("no return value specified for PlaceDetails")
	}

	var r0 *google.PlaceDetails
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (*google.PlaceDetails, error)); ok {
		return rf(ctx, placeID, sessionToken)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.PlaceDetails)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockClient creates a new instance of MockClient and registers cleanup.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
