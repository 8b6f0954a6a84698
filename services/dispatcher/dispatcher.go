package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"rostersync/clients"
	"rostersync/config"
	"rostersync/core"
	"rostersync/models"
)

// CloudTasksDispatcher enqueues interactions as authenticated HTTP push tasks
type CloudTasksDispatcher struct {
	taskQueue   clients.TaskQueue
	tokenSource clients.TokenSource
	config      config.TasksConfig
	now         func() time.Time
}

func NewCloudTasksDispatcher(
	taskQueue clients.TaskQueue,
	tokenSource clients.TokenSource,
	tasksConfig config.TasksConfig,
) *CloudTasksDispatcher {
	return &CloudTasksDispatcher{
		taskQueue:   taskQueue,
		tokenSource: tokenSource,
		config:      tasksConfig,
		now:         time.Now,
	}
}

// WorkerURL is the push target the queue delivers tasks to
func (d *CloudTasksDispatcher) WorkerURL() string {
	return fmt.Sprintf("%s/tasks/%s", d.config.WorkerURL, d.config.TaskName)
}

// DispatchInteraction wraps the interaction in a TaskPayload and creates a task for it.
// Every failure is returned to the caller; nothing is dropped silently.
func (d *CloudTasksDispatcher) DispatchInteraction(ctx context.Context, interaction models.Interaction) error {
	if !d.config.IsConfigured() || d.tokenSource == nil {
		return fmt.Errorf("cloud tasks dispatch is not configured: %w", core.ErrConfiguration)
	}
	if len(interaction.Raw) == 0 {
		return fmt.Errorf("interaction %s has no verified body to dispatch: %w", interaction.ID, core.ErrProtocol)
	}

	payload := models.TaskPayload{
		TaskID:      core.NewID("task"),
		Source:      models.TaskSourceInteractionsEndpoint,
		EnqueuedAt:  d.now().UTC(),
		Interaction: interaction.Raw,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	log.Printf("📋 Starting to dispatch interaction %s as task %s", interaction.ID, payload.TaskID)

	accessToken, err := d.tokenSource.Token(ctx, clients.ScopeCloudTasks)
	if err != nil {
		return fmt.Errorf("failed to mint cloud tasks token: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if d.config.TaskSecret != "" {
		headers[models.TaskSecretHeader] = d.config.TaskSecret
	}

	task := clients.HTTPTask{
		URL:     d.WorkerURL(),
		Headers: headers,
		Body:    body,
	}
	if d.config.ServiceAccountEmail != "" {
		task.ServiceAccountEmail = d.config.ServiceAccountEmail
		task.Audience = d.config.WorkerURL
	}

	taskName, err := d.taskQueue.CreateTask(ctx, accessToken, d.config.QueuePath(), task)
	if err != nil {
		return fmt.Errorf("failed to enqueue interaction %s: %w", interaction.ID, err)
	}

	log.Printf("✅ Interaction %s enqueued as %s", interaction.ID, taskName)
	return nil
}
