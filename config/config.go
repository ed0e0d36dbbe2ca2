package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	AppConfig Config
	envLoaded bool
)

type Config struct {
	Environment string `json:"environment"`
	ServerPort  string `json:"server_port"`

	IMAPHost          string `json:"imap_host"`
	IMAPPort          int    `json:"imap_port"`
	IMAPUser          string `json:"imap_user"`
	IMAPPass          string `json:"-"`
	IMAPPassEncrypted string `json:"-"`
	IMAPEncryption    string `json:"imap_encryption"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUsername string `json:"smtp_username"`
	SMTPPassword string `json:"-"`
	SMTPTLS      bool   `json:"smtp_tls"`
	FromEmail    string `json:"from_email"`

	OracleURL     string        `json:"oracle_url"`
	OracleTimeout time.Duration `json:"oracle_timeout"`

	SyncInterval time.Duration `json:"sync_interval"`
	SyncBackoff  time.Duration `json:"sync_backoff"`

	EncryptionKey string `json:"-"`
	SentryDSN     string `json:"-"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "1337"),

		IMAPHost:          getEnv("IMAP_HOST", "localhost"),
		IMAPPort:          getEnvAsInt("IMAP_PORT", 143),
		IMAPUser:          getEnv("IMAP_USER", ""),
		IMAPPass:          getEnv("IMAP_PASS", ""),
		IMAPPassEncrypted: getEnv("IMAP_PASS_ENCRYPTED", ""),
		IMAPEncryption:    getEnv("IMAP_ENCRYPTION", "NONE"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPTLS:      getEnvAsBool("SMTP_TLS", true),
		FromEmail:    getEnv("FROM_EMAIL", ""),

		OracleURL:     getEnv("ORACLE_URL", "http://localhost:8000/predict"),
		OracleTimeout: getEnvAsDuration("ORACLE_TIMEOUT", 20*time.Second),

		SyncInterval: getEnvAsDuration("SYNC_INTERVAL", 10*time.Second),
		SyncBackoff:  getEnvAsDuration("SYNC_BACKOFF", 5*time.Second),

		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		SentryDSN:     getEnv("SENTRY_DSN", ""),
	}

	// SMTP credentials default to the IMAP account; most providers share them
	if AppConfig.SMTPUsername == "" {
		AppConfig.SMTPUsername = AppConfig.IMAPUser
	}
	if AppConfig.SMTPPassword == "" {
		AppConfig.SMTPPassword = AppConfig.IMAPPass
	}
	if AppConfig.FromEmail == "" {
		AppConfig.FromEmail = AppConfig.IMAPUser
	}

	// Validate required configurations
	if AppConfig.IMAPUser == "" {
		return fmt.Errorf("IMAP_USER is required")
	}
	if AppConfig.IMAPPass == "" && AppConfig.IMAPPassEncrypted == "" {
		return fmt.Errorf("IMAP_PASS (or IMAP_PASS_ENCRYPTED) is required")
	}
	if AppConfig.IMAPPassEncrypted != "" && AppConfig.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required when IMAP_PASS_ENCRYPTED is set")
	}
	switch strings.ToUpper(AppConfig.IMAPEncryption) {
	case "NONE", "SSL", "TLS", "STARTTLS":
	default:
		return fmt.Errorf("IMAP_ENCRYPTION must be one of NONE, SSL, TLS, STARTTLS")
	}
	if AppConfig.SyncInterval < time.Second {
		return fmt.Errorf("SYNC_INTERVAL must be at least 1s")
	}

	logConfig()
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("⚠️ Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	switch strings.ToLower(valueStr) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("IMAP: %s@%s:%d (%s)",
		AppConfig.IMAPUser,
		AppConfig.IMAPHost,
		AppConfig.IMAPPort,
		AppConfig.IMAPEncryption)
	log.Printf("SMTP: %s:%d (tls=%t)", AppConfig.SMTPHost, AppConfig.SMTPPort, AppConfig.SMTPTLS)
	log.Printf("Oracle: %s (timeout=%s)", AppConfig.OracleURL, AppConfig.OracleTimeout)
	log.Printf("Sync interval: %s", AppConfig.SyncInterval)
}
