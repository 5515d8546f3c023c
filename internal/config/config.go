package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Slack Configuration
	SlackBotToken string
	SlackAppToken string
	SlackProxyURL string
	SlackDebug    bool

	// HTTP Server Configuration
	HTTPPort           int
	CORSAllowedOrigins []string
	LoginRatePerMinute int
	HTTPLogVerbose     bool

	// Database Configuration
	DatabaseURL string

	// Authentication Configuration
	AdminUsername  string
	AdminPassword  string
	JWTSecret      string
	JWTExpiryHours int

	// Alert pipeline
	CooldownWindow        time.Duration
	CooldownSweepInterval time.Duration
	RolesFile             string

	// Logging
	LogFile string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.SlackBotToken = os.Getenv("SLACK_BOT_TOKEN")
	cfg.SlackAppToken = os.Getenv("SLACK_APP_TOKEN")
	cfg.SlackProxyURL = os.Getenv("SLACK_PROXY_URL")
	cfg.SlackDebug = getEnvAsBoolOrDefault("SLACK_DEBUG", false)

	cfg.HTTPPort = getEnvAsIntOrDefault("HTTP_PORT", 3000)
	cfg.CORSAllowedOrigins = getEnvAsListOrDefault("CORS_ALLOWED_ORIGINS", nil)
	cfg.LoginRatePerMinute = getEnvAsIntOrDefault("LOGIN_RATE_PER_MINUTE", 10)
	cfg.HTTPLogVerbose = getEnvAsBoolOrDefault("HTTP_LOG_VERBOSE", false)

	// SQLite file path by default; a postgres:// DSN switches drivers
	cfg.DatabaseURL = getEnvOrDefault("DATABASE_URL", "data/pulse.db")

	cfg.AdminUsername = getEnvOrDefault("ADMIN_USERNAME", "admin")
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD") // No default - HTTP API stays closed without it
	cfg.JWTExpiryHours = getEnvAsIntOrDefault("JWT_EXPIRY_HOURS", 24)
	cfg.JWTSecret = loadOrGenerateJWTSecret(getEnvOrDefault("JWT_SECRET_FILE", "data/.jwt_secret"))

	cfg.CooldownWindow = time.Duration(getEnvAsIntOrDefault("COOLDOWN_SECONDS", 300)) * time.Second
	cfg.CooldownSweepInterval = time.Duration(getEnvAsIntOrDefault("COOLDOWN_SWEEP_SECONDS", 600)) * time.Second
	cfg.RolesFile = os.Getenv("ROLES_FILE")

	cfg.LogFile = getEnvOrDefault("LOG_FILE", "logs/pulse_bot.log")

	return cfg, nil
}

// SlackConfigured returns true if both Socket Mode tokens are present
func (c *Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

// loadOrGenerateJWTSecret loads JWT secret from file or generates a new one
func loadOrGenerateJWTSecret(secretPath string) string {
	if envSecret := os.Getenv("JWT_SECRET"); envSecret != "" {
		log.Printf("Using JWT secret from environment variable")
		return envSecret
	}

	if data, err := os.ReadFile(secretPath); err == nil {
		secret := strings.TrimSpace(string(data))
		if secret != "" {
			log.Printf("Loaded JWT secret from %s", secretPath)
			return secret
		}
	}

	secret := generateSecureSecret(32)

	if err := os.MkdirAll(filepath.Dir(secretPath), 0755); err != nil {
		log.Printf("Warning: Could not create directory for JWT secret: %v", err)
		return secret
	}

	if err := os.WriteFile(secretPath, []byte(secret), 0600); err != nil {
		log.Printf("Warning: Could not save JWT secret to file: %v", err)
	} else {
		log.Printf("Generated and saved new JWT secret to %s", secretPath)
	}

	return secret
}

// generateSecureSecret generates a cryptographically secure random string
func generateSecureSecret(bytes int) string {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		log.Printf("Warning: Could not generate secure random bytes: %v", err)
		return "fallback-insecure-secret-please-set-jwt-secret-env"
	}
	return hex.EncodeToString(b)
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault returns the value of an environment variable as an integer or a default value
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal > 0 {
			return intVal
		}
		log.Printf("Warning: ignoring invalid %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvAsListOrDefault splits a comma-separated environment variable
func getEnvAsListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
