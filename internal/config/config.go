// Package config provides configuration management for the veo3 prompt
// editor service. Configuration is loaded from environment variables with
// sensible defaults, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort           = 8788
	DefaultHost           = "127.0.0.1"
	DefaultLogLevel       = "info"
	DefaultGeminiBaseURL  = "https://generativelanguage.googleapis.com/v1beta"
	DefaultTextModel      = "gemini-2.0-flash"
	DefaultImageModel     = "gemini-2.0-flash-preview-image-generation"
	DefaultLLMTimeout     = 60 // seconds
	DefaultAllowedOrigins = "http://localhost:3000,http://127.0.0.1:3000"
	DefaultTotalDuration  = 8.0 // seconds

	// Environment variable names
	EnvPort           = "VEO3_PORT"
	EnvHost           = "VEO3_HOST"
	EnvLogLevel       = "VEO3_LOG_LEVEL"
	EnvDBPath         = "VEO3_DB_PATH"
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvGeminiBaseURL  = "VEO3_GEMINI_BASE_URL"
	EnvTextModel      = "VEO3_TEXT_MODEL"
	EnvImageModel     = "VEO3_IMAGE_MODEL"
	EnvLLMTimeout     = "VEO3_LLM_TIMEOUT"
	EnvAllowedOrigins = "VEO3_ALLOWED_ORIGINS"
	EnvTotalDuration  = "VEO3_TOTAL_DURATION"

	// DotEnvFile is read by LoadDotEnv when no path is given.
	DotEnvFile = ".env"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	Host() string
	Addr() string
	LogLevel() string
	DBPath() string
	GeminiAPIKey() string
	GeminiBaseURL() string
	TextModel() string
	ImageModel() string
	LLMTimeout() time.Duration
	AllowedOrigins() []string
	TotalDuration() float64
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port           int
	host           string
	logLevel       string
	dbPath         string
	geminiAPIKey   string
	geminiBaseURL  string
	textModel      string
	imageModel     string
	llmTimeout     int
	allowedOrigins []string
	totalDuration  float64
}

// LoadDotEnv loads variables from the given files, or DotEnvFile, into the
// process environment. Missing files are ignored; variables already set
// are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{DotEnvFile}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", p, err)
		}
		existing = append(existing, p)
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		host:           DefaultHost,
		logLevel:       DefaultLogLevel,
		geminiBaseURL:  DefaultGeminiBaseURL,
		textModel:      DefaultTextModel,
		imageModel:     DefaultImageModel,
		llmTimeout:     DefaultLLMTimeout,
		allowedOrigins: splitList(DefaultAllowedOrigins),
		totalDuration:  DefaultTotalDuration,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if h := os.Getenv(EnvHost); h != "" {
		cfg.host = h
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	cfg.dbPath = os.Getenv(EnvDBPath)
	cfg.geminiAPIKey = strings.TrimSpace(os.Getenv(EnvGeminiAPIKey))

	if u := os.Getenv(EnvGeminiBaseURL); u != "" {
		cfg.geminiBaseURL = strings.TrimRight(u, "/")
	}
	if m := os.Getenv(EnvTextModel); m != "" {
		cfg.textModel = m
	}
	if m := os.Getenv(EnvImageModel); m != "" {
		cfg.imageModel = m
	}

	if t := os.Getenv(EnvLLMTimeout); t != "" {
		secs, err := strconv.Atoi(t)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvLLMTimeout, err)
		}
		if secs < 1 {
			return nil, fmt.Errorf("invalid %s: timeout must be at least 1 second", EnvLLMTimeout)
		}
		cfg.llmTimeout = secs
	}

	if o, ok := os.LookupEnv(EnvAllowedOrigins); ok {
		cfg.allowedOrigins = splitList(o)
	}

	if d := os.Getenv(EnvTotalDuration); d != "" {
		secs, err := strconv.ParseFloat(d, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvTotalDuration, err)
		}
		if secs <= 0 {
			return nil, fmt.Errorf("invalid %s: duration must be positive", EnvTotalDuration)
		}
		cfg.totalDuration = secs
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

func (c *EnvConfig) Host() string {
	return c.host
}

// Addr returns host:port for the HTTP listener
func (c *EnvConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DBPath returns the session store location; empty means in-memory.
func (c *EnvConfig) DBPath() string {
	return c.dbPath
}

// GeminiAPIKey returns the server-side key used when a request carries none
func (c *EnvConfig) GeminiAPIKey() string {
	return c.geminiAPIKey
}

func (c *EnvConfig) GeminiBaseURL() string {
	return c.geminiBaseURL
}

func (c *EnvConfig) TextModel() string {
	return c.textModel
}

func (c *EnvConfig) ImageModel() string {
	return c.imageModel
}

func (c *EnvConfig) LLMTimeout() time.Duration {
	return time.Duration(c.llmTimeout) * time.Second
}

// AllowedOrigins returns the CORS allowlist
func (c *EnvConfig) AllowedOrigins() []string {
	return c.allowedOrigins
}

// TotalDuration returns the timeline length of new workspaces in seconds
func (c *EnvConfig) TotalDuration() float64 {
	return c.totalDuration
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
