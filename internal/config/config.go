package config

import (
	"fmt"
	"os"
	"reflect"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Supported backend and mode values
const (
	STTProviderGoogle   = "google"
	STTProviderDeepgram = "deepgram"

	TTSProviderEspeak   = "espeak"
	TTSProviderCartesia = "cartesia"

	ContextStateless = "stateless"
	ContextHistory   = "history"
)

// Config holds all configuration for the voice assistant service
type Config struct {
	// Server configuration
	Port            string `envconfig:"PORT" default:"8080"`
	MaxCaptureBytes int64  `envconfig:"MAX_CAPTURE_BYTES" default:"10485760"` // Largest accepted WAV upload
	TempDir         string `envconfig:"TEMP_DIR" default:""`                  // Audio artifacts; empty uses os.TempDir()

	// Completion backend (Groq speaks the OpenAI chat completions protocol)
	GroqAPIKey        string `envconfig:"GROQ_API_KEY"`
	CompletionBaseURL string `envconfig:"COMPLETION_BASE_URL" default:"https://api.groq.com/openai/v1"`
	CompletionModel   string `envconfig:"COMPLETION_MODEL" default:"mixtral-8x7b-32768"`
	CompletionContext string `envconfig:"COMPLETION_CONTEXT" default:"stateless"` // stateless or history
	CompletionTimeout int    `envconfig:"COMPLETION_TIMEOUT" default:"30"`        // seconds
	SystemPrompt      string `envconfig:"SYSTEM_PROMPT" default:""`
	CacheMaxEntries   int    `envconfig:"CACHE_MAX_ENTRIES" default:"512"` // 0 disables eviction

	// Transcription backend
	STTProvider           string  `envconfig:"STT_PROVIDER" default:"google"` // google or deepgram
	STTLanguage           string  `envconfig:"STT_LANGUAGE" default:"en-US"`
	STTTimeout            int     `envconfig:"STT_TIMEOUT" default:"15"` // seconds
	GoogleCredentialsFile string  `envconfig:"GOOGLE_CREDENTIALS_FILE" default:""`
	DeepgramAPIKey        string  `envconfig:"DEEPGRAM_API_KEY"`
	DeepgramModel         string  `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	SilenceRMSThreshold   float64 `envconfig:"SILENCE_RMS_THRESHOLD" default:"80.0"` // 0 disables the silence pre-check

	// Synthesis backend
	TTSProvider        string `envconfig:"TTS_PROVIDER" default:"espeak"` // espeak or cartesia
	TTSTimeout         int    `envconfig:"TTS_TIMEOUT" default:"30"`      // seconds
	EspeakBinary       string `envconfig:"ESPEAK_BINARY" default:"espeak-ng"`
	EspeakVoice        string `envconfig:"ESPEAK_VOICE" default:"en"`
	CartesiaAPIKey     string `envconfig:"CARTESIA_API_KEY"`
	CartesiaBaseURL    string `envconfig:"CARTESIA_BASE_URL" default:"https://api.cartesia.ai"`
	CartesiaVersion    string `envconfig:"CARTESIA_VERSION" default:"2024-06-10"`
	CartesiaVoiceID    string `envconfig:"CARTESIA_VOICE_ID" default:"a0e99841-438c-4a64-b679-ae501e7d6091"`
	CartesiaModelID    string `envconfig:"CARTESIA_MODEL_ID" default:"sonic-2"`
	CartesiaSampleRate int    `envconfig:"CARTESIA_SAMPLE_RATE" default:"24000"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Error reports a missing or invalid configuration value. It is fatal at startup.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	unsetEmpty()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required credentials for the selected backends and enum values.
func (c *Config) Validate() error {
	if c.GroqAPIKey == "" {
		return &Error{Key: "GROQ_API_KEY", Reason: "is required"}
	}

	switch c.CompletionContext {
	case ContextStateless, ContextHistory:
	default:
		return &Error{Key: "COMPLETION_CONTEXT", Reason: fmt.Sprintf("must be %q or %q, got %q", ContextStateless, ContextHistory, c.CompletionContext)}
	}

	switch c.STTProvider {
	case STTProviderGoogle:
	case STTProviderDeepgram:
		if c.DeepgramAPIKey == "" {
			return &Error{Key: "DEEPGRAM_API_KEY", Reason: "is required when STT_PROVIDER=deepgram"}
		}
	default:
		return &Error{Key: "STT_PROVIDER", Reason: fmt.Sprintf("must be %q or %q, got %q", STTProviderGoogle, STTProviderDeepgram, c.STTProvider)}
	}

	switch c.TTSProvider {
	case TTSProviderEspeak:
	case TTSProviderCartesia:
		if c.CartesiaAPIKey == "" {
			return &Error{Key: "CARTESIA_API_KEY", Reason: "is required when TTS_PROVIDER=cartesia"}
		}
	default:
		return &Error{Key: "TTS_PROVIDER", Reason: fmt.Sprintf("must be %q or %q, got %q", TTSProviderEspeak, TTSProviderCartesia, c.TTSProvider)}
	}

	if c.CacheMaxEntries < 0 {
		return &Error{Key: "CACHE_MAX_ENTRIES", Reason: "must not be negative"}
	}
	return nil
}

// ArtifactDir returns the directory temporary audio artifacts are written to
func (c *Config) ArtifactDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return os.TempDir()
}

// unsetEmpty removes config variables that are set to "" so that envconfig
// applies their defaults (a `.env` line like `LOG_LEVEL=` would otherwise
// override the default with an empty or unparsable value)
func unsetEmpty() {
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("envconfig")
		if key == "" {
			continue
		}
		if value, ok := os.LookupEnv(key); ok && value == "" {
			os.Unsetenv(key)
		}
	}
}
