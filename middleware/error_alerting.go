package middleware

import (
	"context"
	"crypto/md5"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

type SlackAlertConfig struct {
	WebhookURL  string
	Environment string
	AppName     string
	LogsURL     string
}

type ErrorAlertMiddleware struct {
	config        SlackAlertConfig
	httpClient    *http.Client
	alertedErrors map[string]time.Time // hash -> last alert time
	mutex         sync.Mutex
	alertCooldown time.Duration // prevent spam
	inflight      sync.WaitGroup
}

func NewErrorAlertMiddleware(config SlackAlertConfig) *ErrorAlertMiddleware {
	return &ErrorAlertMiddleware{
		config:        config,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		alertedErrors: make(map[string]time.Time),
		alertCooldown: 10 * time.Minute, // Don't alert same error more than once per 10min
	}
}

// HTTP Middleware - wraps HTTP handlers so a panicking request never takes the process down
func (m *ErrorAlertMiddleware) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer m.recoverAndAlert(fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path), w)
		next.ServeHTTP(w, r)
	})
}

// Background Task Wrapper
func (m *ErrorAlertMiddleware) WrapBackgroundTask(taskName string, task func() error) func() error {
	return func() error {
		defer m.recoverAndAlert(fmt.Sprintf("Background task: %s", taskName), nil)

		if err := task(); err != nil {
			m.AlertOnError(err, fmt.Sprintf("Background task: %s", taskName))
			return err
		}
		return nil
	}
}

// AlertOnJobError matches the work queue failure hook
func (m *ErrorAlertMiddleware) AlertOnJobError(jobName string, err error) {
	log.Printf("❌ Background job %s failed: %v", jobName, err)
	m.AlertOnError(err, fmt.Sprintf("Background job: %s", jobName))
}

// AlertOnError sends an alert unless the same error was alerted within the cooldown
func (m *ErrorAlertMiddleware) AlertOnError(err error, alertContext string) {
	errorMsg := fmt.Sprintf("%s: %v", alertContext, err)

	// Create hash of error for deduplication
	hash := fmt.Sprintf("%x", md5.Sum([]byte(errorMsg)))

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if lastAlert, exists := m.alertedErrors[hash]; exists {
		if time.Since(lastAlert) < m.alertCooldown {
			return // Skip alert - too recent
		}
	}

	m.sendAsync(errorMsg, alertContext)
	m.alertedErrors[hash] = time.Now()
}

// Flush waits for alerts that are still being delivered, up to ctx's deadline
func (m *ErrorAlertMiddleware) Flush(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Printf("⚠️ Gave up waiting for pending Slack alerts")
	}
}

func (m *ErrorAlertMiddleware) recoverAndAlert(alertContext string, w http.ResponseWriter) {
	if r := recover(); r != nil {
		errorMsg := fmt.Sprintf("%s: PANIC - %v", alertContext, r)
		log.Printf("❌ %s", errorMsg)
		if w != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		m.sendAsync(errorMsg, alertContext+" (PANIC)")
	}
}

func (m *ErrorAlertMiddleware) sendAsync(errorMsg, alertContext string) {
	if m.config.WebhookURL == "" {
		return // Slack alerts disabled
	}
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		m.sendSlackAlert(errorMsg, alertContext)
	}()
}

func (m *ErrorAlertMiddleware) sendSlackAlert(errorMsg, alertContext string) {
	envPrefix := ""
	if m.config.Environment == "dev" {
		envPrefix = "[dev] "
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(
			slack.PlainTextType,
			fmt.Sprintf("🚨 %s[%s] Error Alert", envPrefix, m.config.AppName),
			true,
			false,
		)),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Service:* %s", m.config.AppName), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Environment:* %s", m.config.Environment), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Context:* %s", alertContext), false, false),
		}, nil),
		slack.NewSectionBlock(slack.NewTextBlockObject(
			slack.MarkdownType,
			fmt.Sprintf("*Error:*\n```%s```", errorMsg),
			false,
			false,
		), nil, nil),
	}
	if m.config.LogsURL != "" {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject(
			slack.MarkdownType,
			fmt.Sprintf("🔗 <%s|View Logs>", m.config.LogsURL),
			false,
			false,
		), nil, nil))
	}

	msg := &slack.WebhookMessage{
		Text:   errorMsg,
		Blocks: &slack.Blocks{BlockSet: blocks},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := slack.PostWebhookCustomHTTPContext(ctx, m.config.WebhookURL, m.httpClient, msg); err != nil {
		log.Printf("❌ Failed to send Slack alert: %v", err)
	}
}
