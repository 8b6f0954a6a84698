package dispatcher

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rostersync/models"
)

// MockDispatcher implements the services.InteractionDispatcher interface for testing
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) DispatchInteraction(ctx context.Context, interaction models.Interaction) error {
	args := m.Called(ctx, interaction)
	return args.Error(0)
}
