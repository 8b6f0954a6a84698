package sheets

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rostersync/models"
)

// MockRosterStorage implements the clients.RosterStorage interface for testing
type MockRosterStorage struct {
	mock.Mock
}

func (m *MockRosterStorage) GetValues(ctx context.Context, accessToken, spreadsheetID, a1Range string) ([][]string, error) {
	args := m.Called(ctx, accessToken, spreadsheetID, a1Range)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]string), args.Error(1)
}

func (m *MockRosterStorage) BatchUpdateValues(ctx context.Context, accessToken, spreadsheetID string, updates []models.SheetUpdate) error {
	args := m.Called(ctx, accessToken, spreadsheetID, updates)
	return args.Error(0)
}
