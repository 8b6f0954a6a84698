package clients

import (
	"context"

	"rostersync/models"
)

const (
	ScopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"
	ScopeCloudTasks   = "https://www.googleapis.com/auth/cloud-platform"
)

// TokenSource mints short-lived bearer tokens from service credentials
type TokenSource interface {
	Token(ctx context.Context, scopes ...string) (string, error)
}

// RosterStorage defines the two spreadsheet operations the fulfillment worker relies on
type RosterStorage interface {
	// GetValues returns rows in sheet order; trailing empty cells may be omitted per row
	GetValues(ctx context.Context, accessToken, spreadsheetID, a1Range string) ([][]string, error)
	BatchUpdateValues(ctx context.Context, accessToken, spreadsheetID string, updates []models.SheetUpdate) error
}

// HTTPTask describes an HTTP push task
type HTTPTask struct {
	URL                 string
	Headers             map[string]string
	Body                []byte
	ServiceAccountEmail string // optional; when set the queue attaches an OIDC token
	Audience            string
}

// TaskQueue defines the durable queue used to hand interactions to the worker
type TaskQueue interface {
	CreateTask(ctx context.Context, accessToken, queuePath string, task HTTPTask) (string, error)
}

// FollowupSender posts a followup message to a deferred interaction
type FollowupSender interface {
	SendFollowup(ctx context.Context, applicationID, interactionToken, content string) error
}
