package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration
type Config struct {
	Port           int
	PublicBaseURL  string // externally reachable URL Twilio uses for callbacks and audio playback
	RedisURL       string
	RedisPassword  string
	MaxCalls       int
	SessionTimeout time.Duration
	AllowedOrigins []string

	ElevenLabsAPIKey string
	ElevenLabsVoice  string
	OpenAIAPIKey     string

	DirectoryAPIURL string
	DirectoryAPIKey string

	TwilioAccountSID string
	TwilioAuthToken  string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Port:            8080,
		PublicBaseURL:   "http://localhost:8080",
		RedisURL:        "localhost:6379",
		MaxCalls:        100,
		SessionTimeout:  30 * time.Minute,
		AllowedOrigins:  []string{"*"},
		ElevenLabsVoice: "pNInz6obpgDQGcFmaJgB", // Adam
	}

	// Optional: PORT
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		config.Port = p
	}

	// Optional: PUBLIC_BASE_URL (Twilio must be able to reach it)
	if base := os.Getenv("PUBLIC_BASE_URL"); base != "" {
		config.PublicBaseURL = strings.TrimRight(base, "/")
	}

	// Optional: REDIS_URL
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
	}

	// Optional: REDIS_PASSWORD
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.RedisPassword = redisPassword
	}

	// Optional: MAX_CALLS
	if maxCalls := os.Getenv("MAX_CALLS"); maxCalls != "" {
		m, err := strconv.Atoi(maxCalls)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_CALLS: %w", err)
		}
		config.MaxCalls = m
	}

	// Optional: SESSION_TIMEOUT (in minutes)
	if timeout := os.Getenv("SESSION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
		}
		config.SessionTimeout = time.Duration(t) * time.Minute
	}

	// Optional: ALLOWED_ORIGINS (comma-separated, for the monitor WebSocket)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	// Optional: ELEVENLABS_API_KEY — without it the server falls back to <Say>
	config.ElevenLabsAPIKey = strings.Trim(strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")), `"`)

	// Optional: ELEVENLABS_VOICE_ID
	if voice := os.Getenv("ELEVENLABS_VOICE_ID"); voice != "" {
		config.ElevenLabsVoice = voice
	}

	// Optional: OPENAI_API_KEY — without it the dialog engine uses canned fallbacks
	config.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	// Optional: DIRECTORY_API_URL / DIRECTORY_API_KEY (property management backend)
	if dirURL := os.Getenv("DIRECTORY_API_URL"); dirURL != "" {
		config.DirectoryAPIURL = strings.TrimRight(dirURL, "/")
	}
	config.DirectoryAPIKey = os.Getenv("DIRECTORY_API_KEY")

	// Optional: Twilio credentials (needed only by the webhook updater)
	config.TwilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	config.TwilioAuthToken = os.Getenv("TWILIO_AUTH_TOKEN")

	return config, nil
}
