package mocks

import (
	context "context"
	io "io"

	mock "github.com/stretchr/testify/mock"
)

// BlobStore is a mock type for the BlobStore type
type BlobStore struct {
	mock.Mock
}

// Store provides a mock function with given fields: ctx, name, reader, size, contentType
func (_m *BlobStore) Store(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error) {
	ret := _m.Called(ctx, name, reader, size, contentType)

	return ret.Get(0).(string), ret.Error(1)
}

// PublicURL provides a mock function with given fields: ctx, pointer
func (_m *BlobStore) PublicURL(ctx context.Context, pointer string) (string, error) {
	ret := _m.Called(ctx, pointer)

	return ret.Get(0).(string), ret.Error(1)
}

// Delete provides a mock function with given fields: ctx, pointer
func (_m *BlobStore) Delete(ctx context.Context, pointer string) error {
	ret := _m.Called(ctx, pointer)

	return ret.Error(0)
}

// NewBlobStore creates a new instance of BlobStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewBlobStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *BlobStore {
	m := &BlobStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
