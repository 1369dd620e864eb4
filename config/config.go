package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/joho/godotenv"
)

// Completion providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderStub   = "stub"
)

// Email providers.
const (
	EmailMaileroo = "maileroo"
	EmailSendGrid = "sendgrid"
)

// Directory sources.
const (
	DirectoryBuiltin = "builtin"
	DirectoryYAML    = "yaml"
	DirectoryMySQL   = "mysql"
)

// Verification modes.
const (
	VerificationOff      = "off"
	VerificationAdvisory = "advisory"
	VerificationGate     = "gate"
)

// Config holds all configuration for the complaint routing service
type Config struct {
	// Server configuration
	Port               string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	RateLimitBurst     int
	MaxImageBytes      int64

	// Completion provider configuration
	LLMProvider  string
	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string
	LLMTimeout   time.Duration

	// Email configuration
	EmailProvider    string
	MailerooAPIKey   string
	MailerooURL      string
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string
	EmailTimeout     time.Duration

	// Workflow sinks
	WebhookURL         string
	WebhookTimeout     time.Duration
	RabbitMQURL        string
	RabbitMQExchange   string
	RabbitMQRoutingKey string

	// Department directory
	DirectorySource        string
	DirectoryFile          string
	DefaultDepartmentEmail string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Verification
	VerificationMode          string
	VerificationMinConfidence float64

	// Logging
	LogLevel string
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to load .env file: %v", err)
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		CORSAllowedOrigins: getStringSliceEnv("CORS_ALLOWED_ORIGINS", "http://127.0.0.1:5500"),
		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 30),
		RateLimitBurst:     getIntEnv("RATE_LIMIT_BURST", 10),
		MaxImageBytes:      int64(getIntEnv("MAX_IMAGE_BYTES", 10<<20)),

		LLMProvider:  strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		LLMTimeout:   getDurationEnv("LLM_TIMEOUT", 30*time.Second),

		EmailProvider:    strings.ToLower(getEnv("EMAIL_PROVIDER", EmailMaileroo)),
		MailerooAPIKey:   getEnv("MAILEROO_API_KEY", ""),
		MailerooURL:      getEnv("MAILEROO_URL", "https://smtp.maileroo.com/api/v2/emails"),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@cityguardian.local"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "CityGuardian"),
		EmailTimeout:     getDurationEnv("EMAIL_TIMEOUT", 15*time.Second),

		WebhookURL:         getEnv("WEBHOOK_URL", ""),
		WebhookTimeout:     getDurationEnv("WEBHOOK_TIMEOUT", 10*time.Second),
		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange:   getEnv("RABBITMQ_EXCHANGE", "cityguardian"),
		RabbitMQRoutingKey: getEnv("RABBITMQ_ROUTING_KEY", "complaint.dispatched"),

		DirectorySource:        strings.ToLower(getEnv("DIRECTORY_SOURCE", DirectoryBuiltin)),
		DirectoryFile:          getEnv("DIRECTORY_FILE", "departments.yaml"),
		DefaultDepartmentEmail: getEnv("DEFAULT_DEPARTMENT_EMAIL", ""),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "cityguardian"),

		VerificationMode:          strings.ToLower(getEnv("VERIFICATION_MODE", VerificationOff)),
		VerificationMinConfidence: getFloatEnv("VERIFICATION_MIN_CONFIDENCE", 0.6),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for provider %q", c.LLMProvider)
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for provider %q", c.LLMProvider)
		}
	case ProviderStub:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	switch c.EmailProvider {
	case EmailMaileroo:
		if c.MailerooAPIKey == "" {
			return fmt.Errorf("MAILEROO_API_KEY is required for email provider %q", c.EmailProvider)
		}
	case EmailSendGrid:
		if c.SendGridAPIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required for email provider %q", c.EmailProvider)
		}
	default:
		return fmt.Errorf("unknown EMAIL_PROVIDER %q", c.EmailProvider)
	}

	switch c.DirectorySource {
	case DirectoryBuiltin, DirectoryYAML, DirectoryMySQL:
	default:
		return fmt.Errorf("unknown DIRECTORY_SOURCE %q", c.DirectorySource)
	}

	switch c.VerificationMode {
	case VerificationOff, VerificationAdvisory, VerificationGate:
	default:
		return fmt.Errorf("unknown VERIFICATION_MODE %q", c.VerificationMode)
	}
	if c.VerificationMinConfidence < 0 || c.VerificationMinConfidence > 1 {
		return fmt.Errorf("VERIFICATION_MIN_CONFIDENCE must be within [0,1], got %v", c.VerificationMinConfidence)
	}

	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", c.RateLimitBurst)
	}

	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be positive")
	}
	return nil
}

// getStringSliceEnv gets a comma-separated environment variable as a trimmed slice
func getStringSliceEnv(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
