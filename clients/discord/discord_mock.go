package discord

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockDiscordClient implements the clients.FollowupSender interface for testing
type MockDiscordClient struct {
	mock.Mock
}

func (m *MockDiscordClient) SendFollowup(ctx context.Context, applicationID, interactionToken, content string) error {
	args := m.Called(ctx, applicationID, interactionToken, content)
	return args.Error(0)
}
