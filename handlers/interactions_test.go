package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rostersync/models"
	"rostersync/services/dispatcher"
	"rostersync/services/workqueue"
	"rostersync/testutils"
	"rostersync/usecases/fulfillment"
	"rostersync/utils"
)

const (
	pingBody    = `{"id":"int-0","application_id":"app-1","type":1,"token":"tok-0"}`
	attendBody  = `{"id":"int-1","application_id":"app-1","type":2,"token":"tok-1","data":{"id":"cmd-1","name":"attend","type":1,"options":[{"name":"user1","type":6,"value":"111"}],"resolved":{"users":{"111":{"id":"111","username":"taro"}}}}}`
	unknownBody = `{"id":"int-2","application_id":"app-1","type":2,"token":"tok-2","data":{"id":"cmd-2","name":"dance","type":1}}`
)

type interactionsTestFixture struct {
	handler     *InteractionsHandler
	router      *mux.Router
	signer      *testutils.InteractionSigner
	dispatcher  *dispatcher.MockDispatcher
	fulfillment *fulfillment.MockFulfillmentUseCase
	queue       *workqueue.WorkQueue
}

func setupInteractionsTest(t *testing.T, legacyEnabled bool) *interactionsTestFixture {
	t.Helper()
	f := &interactionsTestFixture{
		signer:      testutils.NewInteractionSigner(t),
		dispatcher:  new(dispatcher.MockDispatcher),
		fulfillment: new(fulfillment.MockFulfillmentUseCase),
		queue:       workqueue.New("test", 2, 8),
	}
	f.handler = NewInteractionsHandler(
		f.signer.PublicKey,
		models.CommandConfig{"attend": {TargetColumnHeader: "出席"}},
		f.dispatcher,
		f.fulfillment,
		f.queue,
		legacyEnabled,
	)
	f.router = mux.NewRouter()
	f.handler.SetupEndpoints(f.router)
	return f
}

func (f *interactionsTestFixture) signedRequest(t *testing.T, path, body string) *http.Request {
	return f.signer.SignedRequest(t, path, body)
}

func (f *interactionsTestFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	f.queue.Wait()
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var response map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	return response
}

func TestHandleInteraction_Ping(t *testing.T) {
	f := setupInteractionsTest(t, false)

	rec := f.serve(f.signedRequest(t, "/interactions", pingBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"type":1}`, rec.Body.String())
	f.dispatcher.AssertNotCalled(t, "DispatchInteraction", mock.Anything, mock.Anything)
}

func TestHandleInteraction_RejectsBadSignatures(t *testing.T) {
	f := setupInteractionsTest(t, false)

	testCases := []struct {
		name   string
		mutate func(req *http.Request)
	}{
		{name: "missing signature", mutate: func(req *http.Request) { req.Header.Del(utils.SignatureHeader) }},
		{name: "missing timestamp", mutate: func(req *http.Request) { req.Header.Del(utils.TimestampHeader) }},
		{name: "tampered timestamp", mutate: func(req *http.Request) { req.Header.Set(utils.TimestampHeader, "1") }},
		{name: "garbage signature", mutate: func(req *http.Request) { req.Header.Set(utils.SignatureHeader, "zz") }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.signedRequest(t, "/interactions", attendBody)
			tc.mutate(req)

			rec := f.serve(req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	t.Run("tampered body", func(t *testing.T) {
		req := f.signedRequest(t, "/interactions", attendBody)
		tampered := f.signedRequest(t, "/interactions", pingBody)
		tampered.Header = req.Header

		rec := f.serve(tampered)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	f.dispatcher.AssertNotCalled(t, "DispatchInteraction", mock.Anything, mock.Anything)
}

func TestHandleInteraction_RejectsEverythingWithoutPublicKey(t *testing.T) {
	f := setupInteractionsTest(t, false)
	f.handler.publicKey = nil

	rec := f.serve(f.signedRequest(t, "/interactions", pingBody))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleInteraction_MalformedVerifiedBody(t *testing.T) {
	f := setupInteractionsTest(t, false)

	rec := f.serve(f.signedRequest(t, "/interactions", `{"type":`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "protocol")
}

func TestHandleInteraction_UnknownInteractionTypesGetUnsupportedReply(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "message component", body: `{"id":"c-1","application_id":"app-1","type":3,"token":"tok","data":{"custom_id":"btn","component_type":2}}`},
		{name: "modal submit", body: `{"id":"m-1","application_id":"app-1","type":5,"token":"tok","data":{"custom_id":"modal","components":[]}}`},
		{name: "command without name", body: `{"id":"n-1","application_id":"app-1","type":2,"token":"tok","data":{}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := setupInteractionsTest(t, false)

			rec := f.serve(f.signedRequest(t, "/interactions", tc.body))

			assert.Equal(t, http.StatusOK, rec.Code)
			response := decodeResponse(t, rec)
			assert.Equal(t, float64(4), response["type"])
			assert.Equal(t, fulfillment.MessageUnsupportedCommand, response["data"].(map[string]any)["content"])
			f.dispatcher.AssertNotCalled(t, "DispatchInteraction", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleInteraction_UnsupportedCommand(t *testing.T) {
	f := setupInteractionsTest(t, false)

	rec := f.serve(f.signedRequest(t, "/interactions", unknownBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	response := decodeResponse(t, rec)
	assert.Equal(t, float64(4), response["type"])
	assert.Equal(t, fulfillment.MessageUnsupportedCommand, response["data"].(map[string]any)["content"])
	f.dispatcher.AssertNotCalled(t, "DispatchInteraction", mock.Anything, mock.Anything)
}

func TestHandleInteraction_DefersAndDispatches(t *testing.T) {
	f := setupInteractionsTest(t, false)
	f.dispatcher.On("DispatchInteraction", mock.Anything, mock.MatchedBy(func(interaction models.Interaction) bool {
		return interaction.ID == "int-1" &&
			interaction.Command.Name == "attend" &&
			string(interaction.Raw) == attendBody
	})).Return(nil)

	rec := f.serve(f.signedRequest(t, "/interactions", attendBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"type":5}`, rec.Body.String())
	f.dispatcher.AssertExpectations(t)
	f.fulfillment.AssertNotCalled(t, "Fulfill", mock.Anything, mock.Anything)
}

func TestHandleInteraction_ResponseDoesNotWaitForDispatch(t *testing.T) {
	f := setupInteractionsTest(t, false)
	release := make(chan struct{})
	f.dispatcher.On("DispatchInteraction", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, f.signedRequest(t, "/interactions", attendBody))

	assert.JSONEq(t, `{"type":5}`, rec.Body.String())
	close(release)
	f.queue.Wait()
	f.dispatcher.AssertExpectations(t)
}

func TestHandleInteraction_DispatchFailureDoesNotChangeResponse(t *testing.T) {
	f := setupInteractionsTest(t, false)
	failures := make(chan string, 1)
	f.queue.OnError(func(jobName string, err error) { failures <- jobName })
	f.dispatcher.On("DispatchInteraction", mock.Anything, mock.Anything).Return(errors.New("queue unavailable"))

	rec := f.serve(f.signedRequest(t, "/interactions", attendBody))

	assert.JSONEq(t, `{"type":5}`, rec.Body.String())
	assert.Equal(t, "dispatch:int-1", <-failures)
}

func TestHandleInteraction_QueueFullRepliesImmediately(t *testing.T) {
	f := setupInteractionsTest(t, false)
	queue := new(workqueue.MockBackgroundQueue)
	queue.On("Submit", "dispatch:int-1", mock.Anything).Return(workqueue.ErrQueueFull)
	f.handler.backgroundQueue = queue

	rec := f.serve(f.signedRequest(t, "/interactions", attendBody))

	response := decodeResponse(t, rec)
	assert.Equal(t, float64(4), response["type"])
	assert.Equal(t, replyBusy, response["data"].(map[string]any)["content"])
	queue.AssertExpectations(t)
}

func TestHandleInteraction_DispatcherNotConfigured(t *testing.T) {
	f := setupInteractionsTest(t, false)
	f.handler.dispatcher = nil

	rec := f.serve(f.signedRequest(t, "/interactions", attendBody))

	response := decodeResponse(t, rec)
	assert.Equal(t, float64(4), response["type"])
	assert.Equal(t, replyInternalError, response["data"].(map[string]any)["content"])
}

func TestHandleInlineInteraction_Disabled(t *testing.T) {
	f := setupInteractionsTest(t, false)

	rec := f.serve(httptest.NewRequest(http.MethodPost, "/interactions/inline", bytes.NewBufferString(attendBody)))

	assert.Equal(t, http.StatusGone, rec.Code)
	f.fulfillment.AssertNotCalled(t, "Fulfill", mock.Anything, mock.Anything)
}

func TestHandleInlineInteraction_FulfillsInBackground(t *testing.T) {
	f := setupInteractionsTest(t, true)
	f.fulfillment.On("Fulfill", mock.Anything, mock.MatchedBy(func(interaction models.Interaction) bool {
		return interaction.ID == "int-1"
	})).Return(nil)

	rec := f.serve(f.signedRequest(t, "/interactions/inline", attendBody))

	assert.JSONEq(t, `{"type":5}`, rec.Body.String())
	f.fulfillment.AssertExpectations(t)
	f.dispatcher.AssertNotCalled(t, "DispatchInteraction", mock.Anything, mock.Anything)
}

func TestHandleInlineInteraction_StillVerifiesAndAnswersPing(t *testing.T) {
	f := setupInteractionsTest(t, true)

	unsigned := httptest.NewRequest(http.MethodPost, "/interactions/inline", bytes.NewBufferString(pingBody))
	assert.Equal(t, http.StatusUnauthorized, f.serve(unsigned).Code)

	rec := f.serve(f.signedRequest(t, "/interactions/inline", pingBody))
	assert.JSONEq(t, `{"type":1}`, rec.Body.String())
}
