package handlers

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/mux"

	"rostersync/appctx"
	"rostersync/models"
	"rostersync/services"
	"rostersync/usecases"
	"rostersync/usecases/fulfillment"
	"rostersync/utils"
)

const (
	// maxInteractionBodyBytes bounds how much of an unauthenticated body is read
	maxInteractionBodyBytes = 1 << 20

	replyInternalError      = "❌ 内部エラーが発生しました。しばらくしてから再度お試しください。"
	replyBusy               = "⚠️ 混み合っています。しばらくしてから再度お試しください。"
)

// InteractionsHandler is the synchronous front door for platform interactions. It
// never performs roster I/O; actionable commands are acknowledged with a deferred
// response and continue on the background queue.
type InteractionsHandler struct {
	publicKey             ed25519.PublicKey
	commands              models.CommandConfig
	dispatcher            services.InteractionDispatcher
	fulfillmentUseCase    usecases.FulfillmentUseCaseInterface
	backgroundQueue       services.BackgroundQueue
	legacyEndpointEnabled bool
}

// NewInteractionsHandler creates the handler. publicKey may be nil, in which case
// every request is rejected; dispatcher may be nil when the task queue is not configured.
func NewInteractionsHandler(
	publicKey ed25519.PublicKey,
	commands models.CommandConfig,
	dispatcher services.InteractionDispatcher,
	fulfillmentUseCase usecases.FulfillmentUseCaseInterface,
	backgroundQueue services.BackgroundQueue,
	legacyEndpointEnabled bool,
) *InteractionsHandler {
	return &InteractionsHandler{
		publicKey:             publicKey,
		commands:              commands,
		dispatcher:            dispatcher,
		fulfillmentUseCase:    fulfillmentUseCase,
		backgroundQueue:       backgroundQueue,
		legacyEndpointEnabled: legacyEndpointEnabled,
	}
}

// HandleInteraction acknowledges commands and hands them to the task dispatcher
func (h *InteractionsHandler) HandleInteraction(w http.ResponseWriter, r *http.Request) {
	interaction, ok := h.acceptInteraction(w, r)
	if !ok {
		return
	}

	if h.dispatcher == nil {
		log.Printf("❌ Task dispatcher is not configured, cannot defer interaction %s", interaction.ID)
		writeInteractionResponse(w, messageResponse(replyInternalError))
		return
	}

	h.deferInteraction(w, interaction, "dispatch:"+interaction.ID, func(ctx context.Context) error {
		return h.dispatcher.DispatchInteraction(ctx, interaction)
	})
}

// HandleInlineInteraction is the merged deployment mode: the worker runs in this
// process on the background queue instead of behind the task queue.
func (h *InteractionsHandler) HandleInlineInteraction(w http.ResponseWriter, r *http.Request) {
	if !h.legacyEndpointEnabled {
		http.Error(w, "gone", http.StatusGone)
		return
	}

	interaction, ok := h.acceptInteraction(w, r)
	if !ok {
		return
	}

	h.deferInteraction(w, interaction, "fulfill:"+interaction.ID, func(ctx context.Context) error {
		return h.fulfillmentUseCase.Fulfill(ctx, interaction)
	})
}

// acceptInteraction verifies and parses the request and answers everything that
// does not need deferral. It reports true only for a supported application command.
func (h *InteractionsHandler) acceptInteraction(w http.ResponseWriter, r *http.Request) (models.Interaction, bool) {
	requestID := appctx.GetRequestID(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInteractionBodyBytes))
	if err != nil {
		log.Printf("❌ [%s] Failed to read interaction body: %v", requestID, err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return models.Interaction{}, false
	}

	// Nothing in the body is looked at before the signature checks out
	signature := r.Header.Get(utils.SignatureHeader)
	timestamp := r.Header.Get(utils.TimestampHeader)
	if !utils.VerifyInteractionSignature(h.publicKey, signature, timestamp, body) {
		log.Printf("❌ [%s] Interaction signature verification failed", requestID)
		http.Error(w, "invalid request signature", http.StatusUnauthorized)
		return models.Interaction{}, false
	}

	interaction, err := models.ParseInteraction(body)
	if err != nil {
		log.Printf("❌ [%s] Rejecting verified but undecodable interaction: %v", requestID, err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return models.Interaction{}, false
	}

	if interaction.IsPing() {
		log.Printf("🏓 [%s] Responding to ping", requestID)
		writeInteractionResponse(w, &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong})
		return models.Interaction{}, false
	}

	if !interaction.IsCommand() {
		log.Printf("⚠️ [%s] Unsupported interaction of type %s", requestID, interaction.Type)
		writeInteractionResponse(w, messageResponse(fulfillment.MessageUnsupportedCommand))
		return models.Interaction{}, false
	}

	if _, ok := h.commands.Lookup(interaction.Command.Name); !ok {
		log.Printf("⚠️ [%s] Unsupported command /%s", requestID, interaction.Command.Name)
		writeInteractionResponse(w, messageResponse(fulfillment.MessageUnsupportedCommand))
		return models.Interaction{}, false
	}

	log.Printf("📨 [%s] Command /%s received (interaction %s)", requestID, interaction.Command.Name, interaction.ID)
	return interaction, true
}

// deferInteraction admits the job before answering so a full queue still gets a reply
func (h *InteractionsHandler) deferInteraction(w http.ResponseWriter, interaction models.Interaction, jobName string, job func(ctx context.Context) error) {
	if err := h.backgroundQueue.Submit(jobName, job); err != nil {
		log.Printf("❌ Failed to queue interaction %s: %v", interaction.ID, err)
		writeInteractionResponse(w, messageResponse(replyBusy))
		return
	}

	writeInteractionResponse(w, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func messageResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	}
}

func writeInteractionResponse(w http.ResponseWriter, response *discordgo.InteractionResponse) {
	body, err := json.Marshal(response)
	if err != nil {
		log.Printf("❌ Failed to marshal interaction response: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Printf("❌ Failed to write interaction response: %v", err)
	}
}

func (h *InteractionsHandler) SetupEndpoints(router *mux.Router) {
	log.Printf("🚀 Registering interaction endpoints")

	router.HandleFunc("/interactions", h.HandleInteraction).Methods("POST")
	log.Printf("✅ POST /interactions endpoint registered")

	router.HandleFunc("/interactions/inline", h.HandleInlineInteraction).Methods("POST")
	log.Printf("✅ POST /interactions/inline endpoint registered (enabled: %t)", h.legacyEndpointEnabled)
}
