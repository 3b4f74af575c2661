package mocks

import (
	context "context"

	model "github.com/dtroode/studyvault-server/internal/model"
	mock "github.com/stretchr/testify/mock"

	uuid "github.com/google/uuid"
)

// IdentityProvider is a mock type for the IdentityProvider type
type IdentityProvider struct {
	mock.Mock
}

// Authenticate provides a mock function with given fields: ctx, email, password
func (_m *IdentityProvider) Authenticate(ctx context.Context, email string, password string) (model.Principal, error) {
	ret := _m.Called(ctx, email, password)

	return ret.Get(0).(model.Principal), ret.Error(1)
}

// RevokeCredential provides a mock function with given fields: ctx, userID
func (_m *IdentityProvider) RevokeCredential(ctx context.Context, userID uuid.UUID) error {
	ret := _m.Called(ctx, userID)

	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) error); ok {
		return rf(ctx, userID)
	}
	return ret.Error(0)
}

// NewIdentityProvider creates a new instance of IdentityProvider. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewIdentityProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *IdentityProvider {
	m := &IdentityProvider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
