package models

import (
	"encoding/json"
	"time"
)

const (
	TaskSourceInteractionsEndpoint = "interactions-endpoint"
)

// TaskPayload is the envelope enqueued for the fulfillment worker.
// Interaction carries the verified raw interaction body and is re-parsed on delivery.
type TaskPayload struct {
	TaskID      string          `json:"task_id"`
	Source      string          `json:"source"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
	Interaction json.RawMessage `json:"interaction"`
}

const (
	// TaskSecretHeader carries the shared secret between dispatcher and worker
	TaskSecretHeader = "X-Task-Secret"
	// QueueNameHeader and TaskNameHeader are set by Cloud Tasks on every push delivery
	QueueNameHeader = "X-CloudTasks-QueueName"
	TaskNameHeader  = "X-CloudTasks-TaskName"
)
