package workqueue

import (
	"github.com/stretchr/testify/mock"
)

// MockBackgroundQueue implements the services.BackgroundQueue interface for testing
type MockBackgroundQueue struct {
	mock.Mock
}

func (m *MockBackgroundQueue) Submit(jobName string, job Job) error {
	args := m.Called(jobName, job)
	return args.Error(0)
}
