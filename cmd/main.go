package main

import (
	"context"
	"crypto/ed25519"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"rostersync/clients"
	"rostersync/clients/cloudtasks"
	discordclient "rostersync/clients/discord"
	"rostersync/clients/google"
	"rostersync/clients/sheets"
	"rostersync/config"
	"rostersync/handlers"
	"rostersync/middleware"
	"rostersync/services"
	"rostersync/services/dispatcher"
	"rostersync/services/workqueue"
	"rostersync/usecases/fulfillment"
	"rostersync/utils"
)

func main() {
	if err := run(); err != nil {
		log.Printf("❌ Fatal error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// Initialize error alert middleware
	alertMiddleware := middleware.NewErrorAlertMiddleware(middleware.SlackAlertConfig{
		WebhookURL:  cfg.SlackAlertWebhookURL,
		Environment: cfg.Environment,
		AppName:     "rostersync",
		LogsURL:     cfg.ServerLogsURL,
	})

	var publicKey ed25519.PublicKey
	if cfg.DiscordConfig.IsConfigured() {
		publicKey, err = utils.ParsePublicKey(cfg.DiscordConfig.PublicKey)
		if err != nil {
			return err
		}
	}

	// Every upstream call is bounded; the worker never retries on its own
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var tokenSource clients.TokenSource
	if account := cfg.SheetsConfig.ServiceAccount; account != nil {
		tokenSource, err = google.NewServiceAccountTokenSource(httpClient, google.Credentials{
			ClientEmail:  account.ClientEmail,
			PrivateKey:   []byte(account.PrivateKey),
			PrivateKeyID: account.PrivateKeyID,
			TokenURI:     account.TokenURI,
		})
		if err != nil {
			return err
		}
	}

	followupClient, err := discordclient.NewDiscordClient(httpClient, cfg.DiscordConfig.APIBase)
	if err != nil {
		return err
	}

	fulfillmentUseCase := fulfillment.NewFulfillmentUseCase(
		tokenSource,
		sheets.NewSheetsClient(httpClient),
		followupClient,
		cfg.Commands,
		cfg.SheetsConfig,
		cfg.HTTPTimeout,
	)

	var interactionDispatcher services.InteractionDispatcher
	if cfg.TasksConfig.IsConfigured() && tokenSource != nil {
		interactionDispatcher = dispatcher.NewCloudTasksDispatcher(
			cloudtasks.NewCloudTasksClient(httpClient),
			tokenSource,
			cfg.TasksConfig,
		)
	}

	backgroundQueue := workqueue.New("interactions", cfg.WorkQueueConfig.Workers, cfg.WorkQueueConfig.Capacity)
	backgroundQueue.OnError(alertMiddleware.AlertOnJobError)

	interactionsHandler := handlers.NewInteractionsHandler(
		publicKey,
		cfg.Commands,
		interactionDispatcher,
		fulfillmentUseCase,
		backgroundQueue,
		cfg.LegacyEndpointEnabled,
	)
	tasksHandler := handlers.NewTasksHandler(cfg.TasksConfig.TaskName, fulfillmentUseCase, alertMiddleware.AlertOnError)
	taskAuth := middleware.NewTaskAuthMiddleware(
		cfg.TasksConfig.TaskSecret,
		cfg.TasksConfig.RequireQueueHeaders,
		cfg.TasksConfig.Queue,
	)

	// Create a new router
	router := mux.NewRouter()

	interactionsHandler.SetupEndpoints(router)
	tasksHandler.SetupEndpoints(router, taskAuth)

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			log.Printf("❌ Failed to write health check response: %v", err)
		}
	}).Methods("GET")

	// Setup CORS middleware
	allowedOrigins := strings.Split(cfg.CORSAllowedOrigins, ",")
	for i, origin := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(origin)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", utils.SignatureHeader, utils.TimestampHeader},
	})

	// Setup and handle graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           alertMiddleware.HTTPMiddleware(middleware.RequestID(c.Handler(router))),
		ReadHeaderTimeout: 30 * time.Second,
	}

	return handleGracefulShutdown(server, backgroundQueue, alertMiddleware)
}

func handleGracefulShutdown(server *http.Server, backgroundQueue *workqueue.WorkQueue, alertMiddleware *middleware.ErrorAlertMiddleware) error {
	// Channel to listen for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Printf("✅ Listening on http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-stop
	log.Printf("🛑 Shutdown signal received, cleaning up...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	// Stop accepting requests first so nothing new reaches the queue
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Server shutdown error: %v", err)
		return err
	}

	queueErr := alertMiddleware.WrapBackgroundTask("DrainWorkQueue", func() error {
		return backgroundQueue.Shutdown(ctx)
	})()
	stats := backgroundQueue.Stats()
	log.Printf("📊 Work queue stats: submitted=%d completed=%d failed=%d rejected=%d pending=%d",
		stats.Submitted, stats.Completed, stats.Failed, stats.Rejected, stats.Pending)

	alertMiddleware.Flush(ctx)

	if queueErr != nil {
		return queueErr
	}

	log.Printf("✅ Server stopped gracefully")
	return nil
}
