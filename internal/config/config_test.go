package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:                        "8080",
		CORSOrigin:                  "*",
		ShutdownTimeout:             10 * time.Second,
		DBPath:                      "./data/test.db",
		JWTSecret:                   strings.Repeat("s", 32),
		JWTExpiresIn:                time.Hour,
		LogLevel:                    "info",
		SettlementIdempotencyWindow: 24 * time.Hour,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "empty database path",
			mutate:      func(c *Config) { c.DBPath = "" },
			wantErr:     true,
			errorString: "database path cannot be empty",
		},
		{
			name:        "short JWT secret",
			mutate:      func(c *Config) { c.JWTSecret = "short" },
			wantErr:     true,
			errorString: "JWT_SECRET must be at least 32 characters",
		},
		{
			name:        "unknown log level",
			mutate:      func(c *Config) { c.LogLevel = "verbose" },
			wantErr:     true,
			errorString: "invalid log level 'verbose'",
		},
		{
			name:        "zero idempotency window",
			mutate:      func(c *Config) { c.SettlementIdempotencyWindow = 0 },
			wantErr:     true,
			errorString: "invalid settlement idempotency window 0s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Validate() error = %q, want to contain %q", err.Error(), tt.errorString)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.DBPath = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := strings.Count(err.Error(), "\n- "); got != 2 {
		t.Errorf("expected 2 problems, got %d: %v", got, err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SETTLEMENT_IDEMPOTENCY_WINDOW", "2h")
	t.Setenv("JWT_EXPIRES_IN", "not-a-duration")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.SettlementIdempotencyWindow != 2*time.Hour {
		t.Errorf("SettlementIdempotencyWindow = %v, want 2h", cfg.SettlementIdempotencyWindow)
	}
	if cfg.JWTExpiresIn != 24*time.Hour {
		t.Errorf("JWTExpiresIn = %v, want default 24h", cfg.JWTExpiresIn)
	}
}
