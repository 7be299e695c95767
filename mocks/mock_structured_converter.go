package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docparser/internal/port"
)

// MockStructuredConverter is a mock implementation of port.StructuredConverter.
type MockStructuredConverter struct {
	mock.Mock
}

func (m *MockStructuredConverter) Convert(ctx context.Context, path string) (port.StructuredDocument, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(port.StructuredDocument), args.Error(1)
}

// StaticDocument is a port.StructuredDocument with fixed markdown.
type StaticDocument string

func (d StaticDocument) Markdown() string {
	return string(d)
}
