package google

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTokenSource implements the clients.TokenSource interface for testing
type MockTokenSource struct {
	mock.Mock
}

func (m *MockTokenSource) Token(ctx context.Context, scopes ...string) (string, error) {
	args := m.Called(ctx, scopes)
	return args.String(0), args.Error(1)
}
