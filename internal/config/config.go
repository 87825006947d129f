package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingJWTSecret makes a missing signing secret a startup-fatal error
// rather than a per-request one.
var ErrMissingJWTSecret = errors.New("JWT_SECRET environment variable is required")

// Config carries all runtime configuration. It is built once at startup and
// injected into every component; nothing reads the environment afterwards.
type Config struct {
	Env            string
	Port           string
	DatabaseURL    string
	JWTSecret      string
	UploadDir      string
	AllowedOrigins []string
	LogLevel       string
	LogJSON        bool

	// MarkReadOnList preserves the reference behavior of marking an entire
	// chat read when its message list is fetched. Disable to turn the fetch
	// into a pure read.
	MarkReadOnList bool
}

// Load reads configuration from a .env file (if present) and the process
// environment.
func Load() (*Config, error) {
	// Absence of .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("ENV", "development")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("ALLOWED_ORIGINS", "*")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_JSON", false)
	viper.SetDefault("MARK_READ_ON_LIST", true)

	cfg := &Config{
		Env:            viper.GetString("ENV"),
		Port:           viper.GetString("PORT"),
		DatabaseURL:    viper.GetString("DATABASE_URL"),
		JWTSecret:      viper.GetString("JWT_SECRET"),
		UploadDir:      viper.GetString("UPLOAD_DIR"),
		AllowedOrigins: strings.Split(viper.GetString("ALLOWED_ORIGINS"), ","),
		LogLevel:       viper.GetString("LOG_LEVEL"),
		LogJSON:        viper.GetBool("LOG_JSON"),
		MarkReadOnList: viper.GetBool("MARK_READ_ON_LIST"),
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	return cfg, nil
}
