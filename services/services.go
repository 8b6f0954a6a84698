package services

import (
	"context"

	"rostersync/models"
	"rostersync/services/workqueue"
)

// InteractionDispatcher hands a verified interaction to the durable task queue
type InteractionDispatcher interface {
	DispatchInteraction(ctx context.Context, interaction models.Interaction) error
}

// BackgroundQueue runs jobs after the HTTP response has been written
type BackgroundQueue interface {
	Submit(jobName string, job workqueue.Job) error
}
