package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultFirstMessage is used when the first message file is missing or blank.
const DefaultFirstMessage = "Здравствуйте! Чем могу помочь?"

type Config struct {
	Port string `envconfig:"PORT" default:"5000"`

	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"sqlite"`
	DatabaseURL    string `envconfig:"DATABASE_URL" default:"database.db"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	OpenAIAPIKey    string        `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIBaseURL   string        `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel     string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	AssistantID     string        `envconfig:"ASSISTANT_ID"`
	RunPollInterval time.Duration `envconfig:"RUN_POLL_INTERVAL" default:"1s"`
	RunTimeout      time.Duration `envconfig:"RUN_TIMEOUT" default:"2m"`

	WazzupAPIKey    string `envconfig:"WAZZUP24_API_KEY" required:"true"`
	WazzupChannelID string `envconfig:"WAZZUP24_CHANNEL_ID" required:"true"`
	WazzupChatType  string `envconfig:"WAZZUP24_CHAT_TYPE" default:"whatsapp"`
	WazzupBaseURL   string `envconfig:"WAZZUP24_BASE_URL" default:"https://api.wazzup24.com/v3"`

	FirstMessageFile string `envconfig:"FIRST_MESSAGE_FILE" default:"first_message.txt"`
	PromptFile       string `envconfig:"PROMPT_FILE" default:"waprompt.txt"`

	WebhookMaxConcurrency int `envconfig:"WEBHOOK_MAX_CONCURRENCY" default:"16"`
	// WebhookDrainBatch is the batch size the shutdown drain period is sized for.
	// Larger batches still run, but may be cut off by a shutdown.
	WebhookDrainBatch int `envconfig:"WEBHOOK_DRAIN_BATCH" default:"64"`
	// ShutdownTimeout overrides the computed drain period when set.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads .env files (if present) and then the process environment.
func Load(envFiles ...string) (Config, error) {
	// .env is optional, same as running with a bare environment
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres", "redis":
	default:
		return fmt.Errorf("config: unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.RunPollInterval <= 0 {
		return fmt.Errorf("config: RUN_POLL_INTERVAL must be positive")
	}
	if c.RunTimeout < c.RunPollInterval {
		return fmt.Errorf("config: RUN_TIMEOUT must not be shorter than RUN_POLL_INTERVAL")
	}
	if c.WebhookMaxConcurrency <= 0 {
		return fmt.Errorf("config: WEBHOOK_MAX_CONCURRENCY must be positive")
	}
	if c.WebhookDrainBatch <= 0 {
		return fmt.Errorf("config: WEBHOOK_DRAIN_BATCH must be positive")
	}
	return nil
}

// ShutdownGrace is how long in-flight batches get to drain. A batch larger than
// WebhookMaxConcurrency runs in waves, each bounded by RunTimeout.
func (c Config) ShutdownGrace() time.Duration {
	if c.ShutdownTimeout > 0 {
		return c.ShutdownTimeout
	}
	waves := (c.WebhookDrainBatch + c.WebhookMaxConcurrency - 1) / c.WebhookMaxConcurrency
	if waves < 1 {
		waves = 1
	}
	return time.Duration(waves)*c.RunTimeout + 10*time.Second
}

// FirstMessage returns the greeting recorded in every new thread.
func (c Config) FirstMessage(logger *slog.Logger) string {
	b, err := os.ReadFile(c.FirstMessageFile)
	if err != nil {
		logger.Error("first message file not found, using default", "path", c.FirstMessageFile, "error", err)
		return DefaultFirstMessage
	}
	msg := strings.TrimSpace(string(b))
	if msg == "" {
		logger.Warn("first message file is empty, using default", "path", c.FirstMessageFile)
		return DefaultFirstMessage
	}
	return msg
}

// Instructions returns the assistant prompt used when bootstrapping a new assistant.
func (c Config) Instructions() (string, error) {
	b, err := os.ReadFile(c.PromptFile)
	if err != nil {
		return "", fmt.Errorf("reading prompt file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
