package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rostersync/middleware"
	"rostersync/models"
	"rostersync/usecases/fulfillment"
)

type tasksTestFixture struct {
	router      *mux.Router
	fulfillment *fulfillment.MockFulfillmentUseCase
	taskErrors  []string
}

func setupTasksTest(t *testing.T, taskSecret string) *tasksTestFixture {
	t.Helper()
	f := &tasksTestFixture{fulfillment: new(fulfillment.MockFulfillmentUseCase)}
	handler := NewTasksHandler("fulfill-interaction", f.fulfillment, func(err error, context string) {
		f.taskErrors = append(f.taskErrors, context)
	})
	f.router = mux.NewRouter()
	handler.SetupEndpoints(f.router, middleware.NewTaskAuthMiddleware(taskSecret, false, ""))
	return f
}

func taskBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(models.TaskPayload{
		TaskID:      "task_01",
		Source:      models.TaskSourceInteractionsEndpoint,
		EnqueuedAt:  time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		Interaction: json.RawMessage(attendBody),
	})
	require.NoError(t, err)
	return body
}

func (f *tasksTestFixture) post(path string, body []byte, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	if secret != "" {
		req.Header.Set(models.TaskSecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleTask_Success(t *testing.T) {
	f := setupTasksTest(t, "s3cret")
	f.fulfillment.On("FulfillTask", mock.Anything, mock.MatchedBy(func(payload models.TaskPayload) bool {
		return payload.TaskID == "task_01" && string(payload.Interaction) == attendBody
	})).Return(nil)

	rec := f.post("/tasks/fulfill-interaction", taskBody(t), "s3cret")

	assert.Equal(t, http.StatusOK, rec.Code)
	f.fulfillment.AssertExpectations(t)
	assert.Empty(t, f.taskErrors)
}

func TestHandleTask_RejectsMissingSecret(t *testing.T) {
	f := setupTasksTest(t, "s3cret")

	rec := f.post("/tasks/fulfill-interaction", taskBody(t), "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	f.fulfillment.AssertNotCalled(t, "FulfillTask", mock.Anything, mock.Anything)
}

func TestHandleTask_UnknownTaskName(t *testing.T) {
	f := setupTasksTest(t, "")

	rec := f.post("/tasks/something-else", taskBody(t), "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	f.fulfillment.AssertNotCalled(t, "FulfillTask", mock.Anything, mock.Anything)
}

func TestHandleTask_MalformedPayloadIsAcknowledged(t *testing.T) {
	f := setupTasksTest(t, "")

	for _, body := range []string{`not json`, `{"task_id":"task_01"}`} {
		rec := f.post("/tasks/fulfill-interaction", []byte(body), "")
		assert.Equal(t, http.StatusOK, rec.Code, body)
	}
	f.fulfillment.AssertNotCalled(t, "FulfillTask", mock.Anything, mock.Anything)
}

func TestHandleTask_FulfillmentErrorIsAlertedNotRetried(t *testing.T) {
	f := setupTasksTest(t, "")
	f.fulfillment.On("FulfillTask", mock.Anything, mock.Anything).Return(errors.New("sheets api returned status 500"))

	rec := f.post("/tasks/fulfill-interaction", taskBody(t), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Task fulfill-interaction (task_01)"}, f.taskErrors)
}
