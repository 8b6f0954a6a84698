package fulfillment

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rostersync/models"
)

// MockFulfillmentUseCase implements the usecases.FulfillmentUseCaseInterface for testing
type MockFulfillmentUseCase struct {
	mock.Mock
}

func (m *MockFulfillmentUseCase) FulfillTask(ctx context.Context, payload models.TaskPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockFulfillmentUseCase) Fulfill(ctx context.Context, interaction models.Interaction) error {
	args := m.Called(ctx, interaction)
	return args.Error(0)
}
