package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	Log        Log        `yaml:"log"`
	Backend    Backend    `yaml:"backend"`
	Chat       Chat       `yaml:"chat"`
	HTTP       HTTP       `yaml:"http"`
	Transcript Transcript `yaml:"transcript"`
}

type Backend struct {
	// Base URL of the query service, /query is appended
	BaseURL string `yaml:"base_url" example:"http://localhost:8001" validate:"required,url"`
	// API subscription key sent as Ocp-Apim-Subscription-Key
	SubscriptionKey string `yaml:"subscription_key" example:"0123456789abcdef0123456789abcdef"`
	// Timeout of a single query
	Timeout time.Duration `yaml:"timeout" example:"60s" validate:"min=0"`
}

type Chat struct {
	// Message shown when a conversation starts
	Greeting string `yaml:"greeting" example:"Hi, How can I assist you today?" validate:"required"`
	// Message shown when a conversation ends
	ClosingMessage string `yaml:"closing_message" example:"This conversation is closed. Thank you" validate:"required"`
	// Input that ends the conversation
	EndToken string `yaml:"end_token" example:"end" validate:"required"`
	// Delay between the end of a conversation and closing the window
	CloseDelay time.Duration `yaml:"close_delay" example:"1s" validate:"min=0"`
	// Suggested queries shown at start and after every reply
	Suggestions []string `yaml:"suggestions"`
	// Maximum number of live conversations kept by the HTTP host
	MaxConversations int `yaml:"max_conversations" example:"1024" validate:"min=1"`
	// Idle conversations are dropped after this duration
	IdleTTL time.Duration `yaml:"idle_ttl" example:"30m" validate:"min=0"`
}

type HTTP struct {
	// Listen address of the HTTP host
	Addr string `yaml:"addr" example:":8080" validate:"required"`
}

type Transcript struct {
	// JSON lines file closed conversations are appended to
	Path string `yaml:"path" example:"data/transcripts.jsonl" validate:"required"`
}

type Log struct {
	// Write logs to this file instead of stderr
	File string `yaml:"file" example:"data/moviemate.log"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

var DefaultSuggestions = []string{
	"Get me the movies released in 2000 with rating greater than 8",
	"Show me the top 5 movies with highest rating",
	"Get me the movies directed by Christopher Nolan",
	"Generate a bar chart of movie counts for each month in 2002",
}

// Load reads the YAML file at path (a missing file is allowed), applies the
// environment overlay and defaults, and validates the result.
func Load(path string) (*Config, error) {
	var result Config

	if path == "" {
		path = DefaultPath
	}

	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err = yaml.Unmarshal(data, &result); err != nil {
			return nil, oops.With("path", path).Errorf("failed to parse YAML config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, oops.With("path", path).Errorf("failed to read config file: %w", err)
	}

	applyEnv(&result)
	applyDefaults(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("CHAT_API_URL")); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CHAT_API_SUBSCRIPTION_KEY")); v != "" {
		cfg.Backend.SubscriptionKey = v
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTP.Addr = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:8001"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 60 * time.Second
	}
	if cfg.Chat.Greeting == "" {
		cfg.Chat.Greeting = "Hi, How can I assist you today?"
	}
	if cfg.Chat.ClosingMessage == "" {
		cfg.Chat.ClosingMessage = "This conversation is closed. Thank you"
	}
	if cfg.Chat.EndToken == "" {
		cfg.Chat.EndToken = "end"
	}
	if cfg.Chat.CloseDelay == 0 {
		cfg.Chat.CloseDelay = time.Second
	}

	seen := make(map[string]bool, len(cfg.Chat.Suggestions))
	suggestions := pie.Filter(pie.Map(cfg.Chat.Suggestions, strings.TrimSpace), func(s string) bool {
		if s == "" || seen[s] {
			return false
		}
		seen[s] = true
		return true
	})
	if len(suggestions) == 0 {
		suggestions = append([]string(nil), DefaultSuggestions...)
	}
	cfg.Chat.Suggestions = suggestions

	if cfg.Chat.MaxConversations == 0 {
		cfg.Chat.MaxConversations = 1024
	}
	if cfg.Chat.IdleTTL == 0 {
		cfg.Chat.IdleTTL = 30 * time.Minute
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Transcript.Path == "" {
		cfg.Transcript.Path = "data/transcripts.jsonl"
	}
}
