package mocks

import (
	context "context"

	model "github.com/dtroode/studyvault-server/internal/model"
	mock "github.com/stretchr/testify/mock"
)

// ActivityNotifier is a mock type for the ActivityNotifier type
type ActivityNotifier struct {
	mock.Mock
}

// Notify provides a mock function with given fields: ctx, record
func (_m *ActivityNotifier) Notify(ctx context.Context, record model.ActivityRecord) error {
	ret := _m.Called(ctx, record)

	return ret.Error(0)
}

// NewActivityNotifier creates a new instance of ActivityNotifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewActivityNotifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *ActivityNotifier {
	m := &ActivityNotifier{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
