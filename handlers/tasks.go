package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"rostersync/appctx"
	"rostersync/middleware"
	"rostersync/models"
	"rostersync/usecases"
)

const maxTaskBodyBytes = 1 << 20

// TasksHandler receives push deliveries from the task queue
type TasksHandler struct {
	taskName           string
	fulfillmentUseCase usecases.FulfillmentUseCaseInterface
	onTaskError        func(err error, context string)
}

func NewTasksHandler(
	taskName string,
	fulfillmentUseCase usecases.FulfillmentUseCaseInterface,
	onTaskError func(err error, context string),
) *TasksHandler {
	return &TasksHandler{
		taskName:           taskName,
		fulfillmentUseCase: fulfillmentUseCase,
		onTaskError:        onTaskError,
	}
}

// HandleTask runs fulfillment synchronously for the delivery. Once a payload has been
// decoded the task is acknowledged with 200 whatever the outcome: fulfillment has
// already told the user, and a redelivery would only post a second followup.
func (h *TasksHandler) HandleTask(w http.ResponseWriter, r *http.Request) {
	requestID := appctx.GetRequestID(r.Context())
	taskName := mux.Vars(r)["taskName"]
	if taskName != h.taskName {
		log.Printf("❌ [%s] Unknown task %q", requestID, taskName)
		http.Error(w, "unknown task", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTaskBodyBytes))
	if err != nil {
		log.Printf("❌ [%s] Failed to read task body: %v", requestID, err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var payload models.TaskPayload
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Interaction) == 0 {
		// Redelivering the same bytes cannot succeed, so the task is dropped
		log.Printf("❌ [%s] Dropping malformed task payload: %v", requestID, err)
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.fulfillmentUseCase.FulfillTask(r.Context(), payload); err != nil {
		log.Printf("❌ [%s] Task %s finished with error: %v", requestID, payload.TaskID, err)
		if h.onTaskError != nil {
			h.onTaskError(err, "Task "+h.taskName+" ("+payload.TaskID+")")
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h *TasksHandler) SetupEndpoints(router *mux.Router, taskAuth *middleware.TaskAuthMiddleware) {
	log.Printf("🚀 Registering task endpoints")

	router.HandleFunc("/tasks/{taskName}", taskAuth.RequireTaskAuth(h.HandleTask)).Methods("POST")
	log.Printf("✅ POST /tasks/{taskName} endpoint registered (task: %s)", h.taskName)
}
