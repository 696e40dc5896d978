package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Registry RegistryConfig
	MongoDB  MongoDBConfig
	Indexer  IndexerConfig
	Sheets   SheetsConfig
	Anchor   AnchorConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// RegistryConfig holds options for the traceability registry core.
type RegistryConfig struct {
	// AdminID is the administrator identity, verified at startup. It owns
	// the pause switch and the authority to verify other identities.
	AdminID string
	// StrictCustody enforces custodian-only transfers and remaining-quantity
	// accounting on recorded transactions.
	StrictCustody bool
	// EventBuffer sizes the registry's event notification channel.
	EventBuffer int
}

// MongoDBConfig holds settings for the MongoDB event mirror.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// IndexerConfig contains settings for the external indexer webhook. The
// indexer sink is disabled when BaseURL is empty.
type IndexerConfig struct {
	BaseURL   string
	AuthToken string
}

// SheetsConfig contains configuration for the spreadsheet export sink,
// disabled when SpreadsheetID is empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// AnchorConfig holds scheduler settings for periodic state anchoring.
type AnchorConfig struct {
	CronSchedule string
	Timezone     string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	eventBuffer, err := strconv.Atoi(getenvWithDefault("REGISTRY_EVENT_BUFFER", "256"))
	if err != nil {
		return nil, fmt.Errorf("REGISTRY_EVENT_BUFFER must be an integer: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Registry: RegistryConfig{
			AdminID:       os.Getenv("REGISTRY_ADMIN_ID"),
			StrictCustody: getenvBool("REGISTRY_STRICT_CUSTODY", true),
			EventBuffer:   eventBuffer,
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "agritrace"),
		},
		Indexer: IndexerConfig{
			BaseURL:   os.Getenv("INDEXER_BASE_URL"),
			AuthToken: os.Getenv("INDEXER_AUTH_TOKEN"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_EXPORT_ID"),
		},
		Anchor: AnchorConfig{
			CronSchedule: getenvWithDefault("ANCHOR_CRON_SCHEDULE", "0 * * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Africa/Kigali"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Registry.AdminID == "" {
		return errors.New("REGISTRY_ADMIN_ID must be provided")
	}
	if c.Registry.EventBuffer <= 0 {
		return errors.New("REGISTRY_EVENT_BUFFER must be positive")
	}

	switch {
	case c.MongoDB.URI == "":
		return errors.New("MONGODB_URI must be provided")
	case c.MongoDB.DBName == "":
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided when sheet export is enabled")
	}

	if c.Anchor.CronSchedule == "" {
		return errors.New("ANCHOR_CRON_SCHEDULE must be provided")
	}
	if c.Anchor.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
