package mocks

import (
	model "github.com/dtroode/studyvault-server/internal/model"
	mock "github.com/stretchr/testify/mock"
)

// TokenManager is a mock type for the TokenManager type
type TokenManager struct {
	mock.Mock
}

// GenerateAccessToken provides a mock function with given fields: principal
func (_m *TokenManager) GenerateAccessToken(principal model.Principal) (string, error) {
	ret := _m.Called(principal)

	var r0 string
	if rf, ok := ret.Get(0).(func(model.Principal) string); ok {
		r0 = rf(principal)
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0, ret.Error(1)
}

// GenerateRefreshToken provides a mock function with given fields: principal
func (_m *TokenManager) GenerateRefreshToken(principal model.Principal) (string, string, error) {
	ret := _m.Called(principal)

	return ret.Get(0).(string), ret.Get(1).(string), ret.Error(2)
}

// ParseAccessToken provides a mock function with given fields: token
func (_m *TokenManager) ParseAccessToken(token string) (model.Principal, error) {
	ret := _m.Called(token)

	return ret.Get(0).(model.Principal), ret.Error(1)
}

// ParseRefreshToken provides a mock function with given fields: token
func (_m *TokenManager) ParseRefreshToken(token string) (model.Principal, string, error) {
	ret := _m.Called(token)

	return ret.Get(0).(model.Principal), ret.Get(1).(string), ret.Error(2)
}

// NewTokenManager creates a new instance of TokenManager. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewTokenManager(t interface {
	mock.TestingT
	Cleanup(func())
}) *TokenManager {
	m := &TokenManager{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
