// Package mocks provides test doubles for corridor resolution.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	corridor "github.com/sells-group/crash-cli/internal/corridor"
	geo "github.com/sells-group/crash-cli/internal/geo"
)

// MockResolver is a mock type for the Resolver interface.
type MockResolver struct {
	mock.Mock
}

// Resolve provides a mock function with given fields: ctx, region, filter
func (_m *MockResolver) Resolve(ctx context.Context, region geo.BBox, filter string) ([]corridor.Segment, error) {
	ret := _m.Called(ctx, region, filter)

	if len(ret) == 0 {
		panic("no return value specified for Resolve")
	}

	var r0 []corridor.Segment
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, geo.BBox, string) ([]corridor.Segment, error)); ok {
		return rf(ctx, region, filter)
	}
	if rf, ok := ret.Get(0).(func(context.Context, geo.BBox, string) []corridor.Segment); ok {
		r0 = rf(ctx, region, filter)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]corridor.Segment)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, geo.BBox, string) error); ok {
		r1 = rf(ctx, region, filter)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockResolver creates a new instance of MockResolver.
func NewMockResolver(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockResolver {
	mock := &MockResolver{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
