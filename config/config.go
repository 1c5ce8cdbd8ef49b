package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	LogLevel    string
	CORSOrigins string

	DBDriver    string
	DBPath      string
	DatabaseURL string

	SupabaseURL        string
	SupabaseServiceKey string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	SessionTTL         time.Duration

	ReservationTTL          time.Duration
	MaxSharesPerReservation int
	DeliveryFee             int

	SheetsCredentialsPath string
	SheetsSpreadsheetID   string

	CleanupCron   string
	RetentionDays int
}

var AppConfig *Config

func Load() error {
	_ = godotenv.Load()

	AppConfig = &Config{
		Port:        GetEnv("PORT", "3000"),
		Env:         GetEnv("ENV", "development"),
		LogLevel:    GetEnv("LOG_LEVEL", "info"),
		CORSOrigins: GetEnv("CORS_ORIGINS", "*"),

		DBDriver:    GetEnv("DB_DRIVER", "sqlite3"),
		DBPath:      GetEnv("DB_PATH", "./data/kurban.db"),
		DatabaseURL: GetEnv("DATABASE_URL", ""),

		SupabaseURL:        GetEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: GetEnv("SUPABASE_SERVICE_KEY", ""),

		GoogleClientID:     GetEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: GetEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  GetEnv("GOOGLE_REDIRECT_URL", "http://localhost:3000/api/auth/callback"),
		SessionTTL:         GetEnvDuration("SESSION_TTL", 7*24*time.Hour),

		ReservationTTL:          GetEnvDuration("RESERVATION_TTL", 15*time.Minute),
		MaxSharesPerReservation: GetEnvInt("MAX_SHARES_PER_RESERVATION", 7),
		DeliveryFee:             GetEnvInt("DELIVERY_FEE", 750),

		SheetsCredentialsPath: GetEnv("SHEETS_CREDENTIALS_PATH", ""),
		SheetsSpreadsheetID:   GetEnv("SHEETS_SPREADSHEET_ID", ""),

		CleanupCron:   GetEnv("CLEANUP_CRON", "0 4 * * *"),
		RetentionDays: GetEnvInt("RETENTION_DAYS", 30),
	}

	return AppConfig.Validate()
}

// Validate ensures required settings for the selected backend are present.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	switch c.DBDriver {
	case "sqlite3":
		if c.DBPath == "" {
			return errors.New("DB_PATH is required for sqlite3")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for postgres")
		}
	case "supabase":
		if c.SupabaseURL == "" {
			return errors.New("SUPABASE_URL is required for supabase")
		}
		if c.SupabaseServiceKey == "" {
			return errors.New("SUPABASE_SERVICE_KEY is required for supabase")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if c.GoogleClientID == "" {
		return errors.New("GOOGLE_CLIENT_ID is required")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.ReservationTTL <= 0 {
		return errors.New("RESERVATION_TTL must be positive")
	}
	if c.MaxSharesPerReservation < 1 || c.MaxSharesPerReservation > 7 {
		return errors.New("MAX_SHARES_PER_RESERVATION must be between 1 and 7")
	}
	if c.DeliveryFee < 0 {
		return errors.New("DELIVERY_FEE must not be negative")
	}
	if c.RetentionDays < 1 {
		return errors.New("RETENTION_DAYS must be at least 1")
	}

	return nil
}

// IsProduction reports whether the app runs with production logging and cookies.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SheetsEnabled reports whether shareholder export is configured.
func (c *Config) SheetsEnabled() bool {
	return c.SheetsCredentialsPath != "" && c.SheetsSpreadsheetID != ""
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
