// Package config resolves the runtime configuration from environment
// variables and an optional env file.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	AppName     = "kleinanzeiger"
	EnvFileName = "config.env"
)

// Config is the resolved runtime configuration of a single run.
type Config struct {
	// VisionBackend selects the image analysis backend (gemini, openai).
	VisionBackend string
	// ContentBackend selects the description backend (template, gemini, openai).
	ContentBackend string
	// DebuggerURL is the browser's remote debugging endpoint.
	DebuggerURL string
	// BaseURL is the marketplace site address.
	BaseURL string
	// CachePath is the SQLite file for the vision cache. Empty disables caching.
	CachePath string
	// MaxImages limits how many images of a folder are analyzed and uploaded.
	MaxImages int
	// DefaultPrice is used when neither an override nor a suggested price exists.
	DefaultPrice float64
}

// LoadEnvFile loads environment variables from a .env file in the working
// directory and from the config file in the user's config directory. Errors
// are ignored since neither file has to exist.
func LoadEnvFile() {
	_ = godotenv.Load()

	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
}

// FromEnv builds the configuration from environment variables, applying
// defaults for everything that is unset.
func FromEnv() Config {
	return Config{
		VisionBackend:  envOr("KLEINANZEIGER_VISION_BACKEND", "gemini"),
		ContentBackend: envOr("KLEINANZEIGER_CONTENT_BACKEND", "template"),
		DebuggerURL:    envOr("KLEINANZEIGER_DEBUGGER_URL", "http://localhost:9222"),
		BaseURL:        envOr("KLEINANZEIGER_BASE_URL", "https://www.kleinanzeigen.de"),
		CachePath:      envOr("KLEINANZEIGER_CACHE_PATH", "vision-cache.db"),
		MaxImages:      envIntOr("KLEINANZEIGER_MAX_IMAGES", 10),
		DefaultPrice:   envFloatOr("KLEINANZEIGER_DEFAULT_PRICE", 10.0),
	}
}

// CheckRequired returns the names of environment variables that are required
// by the selected backends but not set.
func (c Config) CheckRequired() []string {
	var missing []string
	if c.VisionBackend == "gemini" || c.ContentBackend == "gemini" {
		if os.Getenv("GEMINI_API_KEY") == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	}
	if c.VisionBackend == "openai" || c.ContentBackend == "openai" {
		if os.Getenv("OPENAI_API_KEY") == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	}
	return missing
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
