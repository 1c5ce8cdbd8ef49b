package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Port:                    "3000",
		Env:                     "test",
		DBDriver:                "sqlite3",
		DBPath:                  "./data/test.db",
		GoogleClientID:          "client-id",
		SessionTTL:              time.Hour,
		ReservationTTL:          15 * time.Minute,
		MaxSharesPerReservation: 7,
		DeliveryFee:             750,
		RetentionDays:           30,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{name: "Valid sqlite config", mutate: func(c *Config) {}},
		{
			name:     "Unknown driver",
			mutate:   func(c *Config) { c.DBDriver = "mysql" },
			errorMsg: `unsupported DB_DRIVER "mysql"`,
		},
		{
			name:     "Postgres without URL",
			mutate:   func(c *Config) { c.DBDriver = "postgres" },
			errorMsg: "DATABASE_URL is required for postgres",
		},
		{
			name: "Supabase without key",
			mutate: func(c *Config) {
				c.DBDriver = "supabase"
				c.SupabaseURL = "https://example.supabase.co"
			},
			errorMsg: "SUPABASE_SERVICE_KEY is required for supabase",
		},
		{
			name:     "Missing Google client",
			mutate:   func(c *Config) { c.GoogleClientID = "" },
			errorMsg: "GOOGLE_CLIENT_ID is required",
		},
		{
			name:     "Too many shares per reservation",
			mutate:   func(c *Config) { c.MaxSharesPerReservation = 8 },
			errorMsg: "MAX_SHARES_PER_RESERVATION must be between 1 and 7",
		},
		{
			name:     "Zero TTL",
			mutate:   func(c *Config) { c.ReservationTTL = 0 },
			errorMsg: "RESERVATION_TTL must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.errorMsg)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("KURBAN_TEST_INT", "42")
	t.Setenv("KURBAN_TEST_BAD_INT", "x")
	t.Setenv("KURBAN_TEST_DURATION", "90s")

	assert.Equal(t, 42, GetEnvInt("KURBAN_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("KURBAN_TEST_BAD_INT", 1))
	assert.Equal(t, 5, GetEnvInt("KURBAN_TEST_MISSING", 5))
	assert.Equal(t, 90*time.Second, GetEnvDuration("KURBAN_TEST_DURATION", time.Minute))
	assert.Equal(t, "fallback", GetEnv("KURBAN_TEST_MISSING", "fallback"))
}
