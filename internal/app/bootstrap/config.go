package bootstrap

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the auth service.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	AccessSecret  string
	RefreshSecret string

	BcryptCost int

	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	SessionTTL       time.Duration
	ResetTokenTTL    time.Duration
	ResetRetryWindow time.Duration

	CookieSecure   bool
	CookieSameSite http.SameSite

	FrontendURL string

	MaxDBConns         int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Auth struct {
		SecretKey               string `yaml:"secret_key"`
		RefreshSecretKey        string `yaml:"refresh_secret_key"`
		AccessTokenExpireMins   int    `yaml:"access_token_expire_minutes"`
		RefreshTokenExpireDays  int    `yaml:"refresh_token_expire_days"`
		SessionExpireHours      int    `yaml:"session_expire_hours"`
		ResetTokenExpireHours   int    `yaml:"reset_token_expire_hours"`
		ResetRetryWindowSeconds int    `yaml:"reset_retry_seconds"`
		BcryptRounds            int    `yaml:"bcrypt_rounds"`
	} `yaml:"auth"`
	Cookies struct {
		Secure   *bool  `yaml:"secure"`
		SameSite string `yaml:"same_site"`
	} `yaml:"cookies"`
	FrontendURL string `yaml:"frontend_url"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:          "shieldops-auth",
		HTTPPort:           8080,
		GRPCPort:           9090,
		BcryptCost:         12,
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    7 * 24 * time.Hour,
		SessionTTL:         7 * 24 * time.Hour,
		ResetTokenTTL:      time.Hour,
		ResetRetryWindow:   60 * time.Second,
		CookieSecure:       true,
		CookieSameSite:     http.SameSiteLaxMode,
		FrontendURL:        "http://localhost:3000",
		MaxDBConns:         20,
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    100,
		OutboxClaimTTL:     30 * time.Second,
		OutboxMaxRetries:   5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Auth.SecretKey != "" {
			cfg.AccessSecret = f.Auth.SecretKey
		}
		if f.Auth.RefreshSecretKey != "" {
			cfg.RefreshSecret = f.Auth.RefreshSecretKey
		}
		if f.Auth.AccessTokenExpireMins > 0 {
			cfg.AccessTokenTTL = time.Duration(f.Auth.AccessTokenExpireMins) * time.Minute
		}
		if f.Auth.RefreshTokenExpireDays > 0 {
			cfg.RefreshTokenTTL = time.Duration(f.Auth.RefreshTokenExpireDays) * 24 * time.Hour
		}
		if f.Auth.SessionExpireHours > 0 {
			cfg.SessionTTL = time.Duration(f.Auth.SessionExpireHours) * time.Hour
		}
		if f.Auth.ResetTokenExpireHours > 0 {
			cfg.ResetTokenTTL = time.Duration(f.Auth.ResetTokenExpireHours) * time.Hour
		}
		if f.Auth.ResetRetryWindowSeconds > 0 {
			cfg.ResetRetryWindow = time.Duration(f.Auth.ResetRetryWindowSeconds) * time.Second
		}
		if f.Auth.BcryptRounds > 0 {
			cfg.BcryptCost = f.Auth.BcryptRounds
		}
		if f.Cookies.Secure != nil {
			cfg.CookieSecure = *f.Cookies.Secure
		}
		if f.Cookies.SameSite != "" {
			cfg.CookieSameSite = sameSiteFromString(f.Cookies.SameSite, cfg.CookieSameSite)
		}
		if f.FrontendURL != "" {
			cfg.FrontendURL = f.FrontendURL
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.AccessSecret = envOrDefault("SECRET_KEY", cfg.AccessSecret)
	cfg.RefreshSecret = envOrDefault("REFRESH_SECRET_KEY", cfg.RefreshSecret)
	cfg.FrontendURL = envOrDefault("FRONTEND_URL", cfg.FrontendURL)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.AccessTokenTTL = time.Duration(envInt("ACCESS_TOKEN_EXPIRE_MINUTES", int(cfg.AccessTokenTTL.Minutes()))) * time.Minute
	cfg.RefreshTokenTTL = time.Duration(envInt("REFRESH_TOKEN_EXPIRE_DAYS", int(cfg.RefreshTokenTTL.Hours()/24))) * 24 * time.Hour
	cfg.SessionTTL = time.Duration(envInt("SESSION_EXPIRE_HOURS", int(cfg.SessionTTL.Hours()))) * time.Hour
	cfg.ResetTokenTTL = time.Duration(envInt("RESET_TOKEN_EXPIRE_HOURS", int(cfg.ResetTokenTTL.Hours()))) * time.Hour
	cfg.ResetRetryWindow = time.Duration(envInt("RESET_RETRY_SECONDS", int(cfg.ResetRetryWindow.Seconds()))) * time.Second

	cfg.CookieSecure = envBool("COOKIE_SECURE", cfg.CookieSecure)
	if v := os.Getenv("COOKIE_SAME_SITE"); v != "" {
		cfg.CookieSameSite = sameSiteFromString(v, cfg.CookieSameSite)
	}

	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return Config{}, fmt.Errorf("missing SECRET_KEY or REFRESH_SECRET_KEY")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return Config{}, fmt.Errorf("SECRET_KEY and REFRESH_SECRET_KEY must differ")
	}

	return cfg, nil
}

// sameSiteFromString maps the config spelling to the net/http enum.
func sameSiteFromString(raw string, fallback http.SameSite) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return fallback
	}
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
