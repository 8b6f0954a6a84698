package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alertRecorder struct {
	mu       sync.Mutex
	payloads []map[string]any
}

func (a *alertRecorder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.payloads)
}

func newAlertServer(t *testing.T) (*httptest.Server, *alertRecorder) {
	t.Helper()
	recorder := &alertRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		recorder.mu.Lock()
		recorder.payloads = append(recorder.payloads, payload)
		recorder.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, recorder
}

func flush(t *testing.T, m *ErrorAlertMiddleware) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.Flush(ctx)
}

func TestAlertOnError_DeduplicatesWithinCooldown(t *testing.T) {
	server, recorder := newAlertServer(t)
	m := NewErrorAlertMiddleware(SlackAlertConfig{
		WebhookURL:  server.URL,
		Environment: "prod",
		AppName:     "rostersync",
		LogsURL:     "https://logs.example.com",
	})

	m.AlertOnError(errors.New("sheets api returned status 503"), "Background job: fulfill")
	m.AlertOnError(errors.New("sheets api returned status 503"), "Background job: fulfill")
	m.AlertOnError(errors.New("create task failed"), "Background job: dispatch")
	flush(t, m)

	assert.Equal(t, 2, recorder.count())
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Contains(t, recorder.payloads[0], "blocks")
}

func TestAlertOnError_DisabledWithoutWebhook(t *testing.T) {
	m := NewErrorAlertMiddleware(SlackAlertConfig{AppName: "rostersync"})

	m.AlertOnError(errors.New("boom"), "test")
	flush(t, m)

	assert.Len(t, m.alertedErrors, 1)
}

func TestHTTPMiddleware_RecoversPanics(t *testing.T) {
	server, recorder := newAlertServer(t)
	m := NewErrorAlertMiddleware(SlackAlertConfig{WebhookURL: server.URL, AppName: "rostersync", Environment: "dev"})

	handler := m.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("bad event")
	}))
	rec := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/interactions", nil))
	})
	flush(t, m)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, recorder.count())
}

func TestWrapBackgroundTask_AlertsAndReturnsError(t *testing.T) {
	server, recorder := newAlertServer(t)
	m := NewErrorAlertMiddleware(SlackAlertConfig{WebhookURL: server.URL, AppName: "rostersync"})
	taskErr := errors.New("queue drain failed")

	err := m.WrapBackgroundTask("drain", func() error { return taskErr })()
	flush(t, m)

	assert.ErrorIs(t, err, taskErr)
	assert.Equal(t, 1, recorder.count())
}
