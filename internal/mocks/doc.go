// Package mocks holds testify mocks for the model interfaces, in the layout mockery produces.
package mocks
