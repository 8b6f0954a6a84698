package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"rostersync/core"
	"rostersync/models"
)

const (
	defaultCommandColumns = "attend=出席,submit=提出"
	defaultTaskName       = "fulfill-interaction"
)

type DiscordConfig struct {
	PublicKey string
	// APIBase overrides the followup webhook host, mostly for local testing
	APIBase string
}

// IsConfigured returns true if all required Discord configuration is present
func (c DiscordConfig) IsConfigured() bool {
	return c.PublicKey != ""
}

// ServiceAccount holds the fields of a Google service account key file that the token exchange needs
type ServiceAccount struct {
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

type SheetsConfig struct {
	SpreadsheetID  string
	SheetName      string
	NameHeader     string
	DoneMarker     string
	ServiceAccount *ServiceAccount
}

// IsConfigured returns true if all required roster configuration is present
func (c SheetsConfig) IsConfigured() bool {
	return c.SpreadsheetID != "" &&
		c.SheetName != "" &&
		c.ServiceAccount != nil
}

type TasksConfig struct {
	ProjectID           string
	Location            string
	Queue               string
	TaskName            string
	WorkerURL           string
	ServiceAccountEmail string
	TaskSecret          string
	RequireQueueHeaders bool
}

// IsConfigured returns true if all required Cloud Tasks configuration is present
func (c TasksConfig) IsConfigured() bool {
	return c.ProjectID != "" &&
		c.Location != "" &&
		c.Queue != "" &&
		c.WorkerURL != ""
	// Note: ServiceAccountEmail and TaskSecret are optional, but at least one should be set in production
}

// QueuePath returns the Cloud Tasks queue resource name
func (c TasksConfig) QueuePath() string {
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s", c.ProjectID, c.Location, c.Queue)
}

type WorkQueueConfig struct {
	Workers  int
	Capacity int
}

type AppConfig struct {
	Port                  string // Optional with default "8080"
	CORSAllowedOrigins    string // Optional with default "*"
	Environment           string
	ServerLogsURL         string
	SlackAlertWebhookURL  string
	HTTPTimeout           time.Duration
	LegacyEndpointEnabled bool
	UseStrictConfig       bool // If true, error when any integration is not fully configured

	Commands models.CommandConfig

	DiscordConfig   DiscordConfig
	SheetsConfig    SheetsConfig
	TasksConfig     TasksConfig
	WorkQueueConfig WorkQueueConfig
}

func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️ Could not load .env file, continuing with system env vars")
	}

	httpTimeout, err := time.ParseDuration(getEnvWithDefault("HTTP_TIMEOUT", "10s"))
	if err != nil || httpTimeout <= 0 {
		return nil, fmt.Errorf("HTTP_TIMEOUT must be a positive duration: %w", core.ErrConfiguration)
	}

	workers, err := getEnvInt("WORK_QUEUE_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	capacity, err := getEnvInt("WORK_QUEUE_CAPACITY", 64)
	if err != nil {
		return nil, err
	}

	commands, err := ParseCommandColumns(getEnvWithDefault("COMMAND_COLUMNS", defaultCommandColumns))
	if err != nil {
		return nil, err
	}

	serviceAccount, err := parseServiceAccount(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	if err != nil {
		return nil, err
	}

	config := &AppConfig{
		Port:                  getEnvWithDefault("PORT", "8080"),
		CORSAllowedOrigins:    getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*"),
		Environment:           getEnvWithDefault("ENVIRONMENT", "dev"),
		ServerLogsURL:         getEnvWithDefault("SERVER_LOGS_URL", ""),
		SlackAlertWebhookURL:  os.Getenv("SLACK_ALERT_WEBHOOK_URL"),
		HTTPTimeout:           httpTimeout,
		LegacyEndpointEnabled: getEnvWithDefault("LEGACY_ENDPOINT_ENABLED", "false") == "true",
		UseStrictConfig:       getEnvWithDefault("USE_STRICT_CONFIG", "true") == "true",
		Commands:              commands,

		DiscordConfig: DiscordConfig{
			PublicKey: os.Getenv("DISCORD_PUBLIC_KEY"),
			APIBase:   os.Getenv("DISCORD_API_BASE"),
		},

		SheetsConfig: SheetsConfig{
			SpreadsheetID:  os.Getenv("SPREADSHEET_ID"),
			SheetName:      os.Getenv("SHEET_NAME"),
			NameHeader:     getEnvWithDefault("ROSTER_NAME_HEADER", "名前"),
			DoneMarker:     getEnvWithDefault("ROSTER_DONE_MARKER", "済"),
			ServiceAccount: serviceAccount,
		},

		TasksConfig: TasksConfig{
			ProjectID:           os.Getenv("GCP_PROJECT_ID"),
			Location:            os.Getenv("TASKS_LOCATION"),
			Queue:               os.Getenv("TASKS_QUEUE"),
			TaskName:            getEnvWithDefault("TASK_NAME", defaultTaskName),
			WorkerURL:           strings.TrimRight(os.Getenv("WORKER_URL"), "/"),
			ServiceAccountEmail: os.Getenv("TASKS_SERVICE_ACCOUNT_EMAIL"),
			TaskSecret:          os.Getenv("TASK_SECRET"),
			RequireQueueHeaders: getEnvWithDefault("REQUIRE_QUEUE_HEADERS", "false") == "true",
		},

		WorkQueueConfig: WorkQueueConfig{
			Workers:  workers,
			Capacity: capacity,
		},
	}

	if config.DiscordConfig.IsConfigured() {
		log.Printf("✅ Discord interactions configured")
	} else {
		log.Printf("⚠️ DISCORD_PUBLIC_KEY not set - every interaction will be rejected")
		if config.UseStrictConfig {
			return nil, fmt.Errorf("discord public key is not set (USE_STRICT_CONFIG=true): %w", core.ErrConfiguration)
		}
	}

	if config.SheetsConfig.IsConfigured() {
		log.Printf("✅ Roster spreadsheet configured")
	} else {
		log.Printf("⚠️ Roster spreadsheet not configured - fulfillment will report a configuration error")
		if config.UseStrictConfig {
			return nil, fmt.Errorf("roster spreadsheet is not fully configured (USE_STRICT_CONFIG=true): %w", core.ErrConfiguration)
		}
	}

	if config.TasksConfig.IsConfigured() {
		log.Printf("✅ Cloud Tasks dispatch configured")
		if config.TasksConfig.TaskSecret == "" && config.TasksConfig.ServiceAccountEmail == "" {
			log.Printf("⚠️ Neither TASK_SECRET nor TASKS_SERVICE_ACCOUNT_EMAIL is set - tasks will be delivered unauthenticated")
		}
	} else {
		log.Printf("⚠️ Cloud Tasks not configured - commands can only be fulfilled through the inline endpoint")
		if config.UseStrictConfig && !config.LegacyEndpointEnabled {
			return nil, fmt.Errorf("cloud tasks is not fully configured and the inline endpoint is disabled (USE_STRICT_CONFIG=true): %w", core.ErrConfiguration)
		}
	}

	return config, nil
}

// ParseCommandColumns parses "command=Column Header,other=Header" into a CommandConfig
func ParseCommandColumns(value string) (models.CommandConfig, error) {
	commands := models.CommandConfig{}
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, header, found := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		header = strings.TrimSpace(header)
		if !found || name == "" || header == "" {
			return nil, fmt.Errorf("invalid COMMAND_COLUMNS entry %q: %w", entry, core.ErrConfiguration)
		}
		if _, exists := commands[name]; exists {
			return nil, fmt.Errorf("duplicate command %q in COMMAND_COLUMNS: %w", name, core.ErrConfiguration)
		}
		commands[name] = models.CommandSpec{TargetColumnHeader: header}
	}
	if len(commands) == 0 {
		return nil, fmt.Errorf("COMMAND_COLUMNS defines no commands: %w", core.ErrConfiguration)
	}
	return commands, nil
}

// parseServiceAccount accepts the key file as raw JSON or base64-encoded JSON
func parseServiceAccount(value string) (*ServiceAccount, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	raw := []byte(value)
	if !strings.HasPrefix(value, "{") {
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_JSON is neither JSON nor base64: %w", core.ErrConfiguration)
		}
		raw = decoded
	}

	var account ServiceAccount
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, fmt.Errorf("failed to parse GOOGLE_SERVICE_ACCOUNT_JSON: %w", core.ErrConfiguration)
	}
	if account.ClientEmail == "" || account.PrivateKey == "" {
		return nil, fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_JSON lacks client_email or private_key: %w", core.ErrConfiguration)
	}
	if account.TokenURI == "" {
		account.TokenURI = "https://oauth2.googleapis.com/token"
	}
	return &account, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer: %w", key, core.ErrConfiguration)
	}
	return parsed, nil
}
