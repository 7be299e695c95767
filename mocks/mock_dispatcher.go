package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docparser/internal/port"
)

// MockDispatcher is a mock implementation of port.Dispatcher.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Parse(ctx context.Context, req port.ParseRequest) (*port.ParseOutput, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.ParseOutput), args.Error(1)
}
