package usecases

import (
	"context"

	"rostersync/models"
)

// FulfillmentUseCaseInterface defines the asynchronous half of the interaction pipeline
type FulfillmentUseCaseInterface interface {
	// FulfillTask re-parses a queued payload and fulfills the interaction it carries
	FulfillTask(ctx context.Context, payload models.TaskPayload) error
	// Fulfill applies the command to the roster and posts exactly one followup
	Fulfill(ctx context.Context, interaction models.Interaction) error
}
