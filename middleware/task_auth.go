package middleware

import (
	"crypto/subtle"
	"fmt"
	"log"
	"net/http"

	"rostersync/core"
	"rostersync/models"
)

// TaskAuthMiddleware authenticates push deliveries from the task queue
type TaskAuthMiddleware struct {
	taskSecret          string
	requireQueueHeaders bool
	queueName           string
}

// NewTaskAuthMiddleware creates the middleware. An empty taskSecret disables the
// shared secret check; requireQueueHeaders demands the headers Cloud Tasks sets.
func NewTaskAuthMiddleware(taskSecret string, requireQueueHeaders bool, queueName string) *TaskAuthMiddleware {
	if taskSecret == "" && !requireQueueHeaders {
		log.Printf("⚠️ Task endpoint accepts unauthenticated requests")
	}
	return &TaskAuthMiddleware{
		taskSecret:          taskSecret,
		requireQueueHeaders: requireQueueHeaders,
		queueName:           queueName,
	}
}

// RequireTaskAuth wraps a task handler, rejecting requests without the configured credentials
func (m *TaskAuthMiddleware) RequireTaskAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.authenticate(r); err != nil {
			log.Printf("❌ Rejecting task request from %s: %v", r.RemoteAddr, err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (m *TaskAuthMiddleware) authenticate(r *http.Request) error {
	if m.taskSecret != "" {
		provided := r.Header.Get(models.TaskSecretHeader)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(m.taskSecret)) != 1 {
			return fmt.Errorf("missing or invalid task secret: %w", core.ErrAuthentication)
		}
	}

	if !m.requireQueueHeaders {
		return nil
	}
	queueName := r.Header.Get(models.QueueNameHeader)
	if queueName == "" || r.Header.Get(models.TaskNameHeader) == "" {
		return fmt.Errorf("cloud tasks headers missing: %w", core.ErrAuthentication)
	}
	if m.queueName != "" && queueName != m.queueName {
		return fmt.Errorf("unexpected queue %q: %w", queueName, core.ErrAuthentication)
	}
	return nil
}
