package cloudtasks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rostersync/clients"
)

// MockTaskQueue implements the clients.TaskQueue interface for testing
type MockTaskQueue struct {
	mock.Mock
}

func (m *MockTaskQueue) CreateTask(ctx context.Context, accessToken, queuePath string, task clients.HTTPTask) (string, error) {
	args := m.Called(ctx, accessToken, queuePath, task)
	return args.String(0), args.Error(1)
}
