package config

import (
	"time"

	"github.com/spf13/viper"
)

type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Tasks
		Cleanup
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		Environment              Environment
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Auth struct {
		// EncryptionKey is the hex-encoded 32-byte AES key used to store
		// viewable copies of API token secrets. Required in production.
		EncryptionKey string

		SessionTTL         time.Duration
		SessionIdleHorizon time.Duration // idle sessions are reaped past this, regardless of expiry
		MaxSessionsPerUser int
		BcryptCost         int
		SecureCookies      bool // Set to false for local dev without HTTPS
		CSRFSecret         string

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Cleanup struct {
		Schedule            string // Cron format: "17 3 * * *" = daily at 03:17
		TokenPurgeAfterDays int    // Hard-delete revoked/expired tokens after this many days
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8288)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("environment", "development")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Auth defaults
	v.SetDefault("auth_encryption_key", "")            // Ephemeral key generated if empty (dev only)
	v.SetDefault("auth_session_ttl", "720h")           // 30 days
	v.SetDefault("auth_session_idle_horizon", "2160h") // 90 days
	v.SetDefault("auth_max_sessions_per_user", 10)
	v.SetDefault("auth_bcrypt_cost", 12)    // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_csrf_secret", "")    // Auto-generated if empty
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Cleanup defaults
	v.SetDefault("cleanup_schedule", "17 3 * * *")
	v.SetDefault("cleanup_token_purge_after_days", 30)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			Environment:              Environment(v.GetString("ENVIRONMENT")),
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			EncryptionKey:      v.GetString("AUTH_ENCRYPTION_KEY"),
			SessionTTL:         v.GetDuration("AUTH_SESSION_TTL"),
			SessionIdleHorizon: v.GetDuration("AUTH_SESSION_IDLE_HORIZON"),
			MaxSessionsPerUser: v.GetInt("AUTH_MAX_SESSIONS_PER_USER"),
			BcryptCost:         v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:      v.GetBool("AUTH_SECURE_COOKIES"),
			CSRFSecret:         v.GetString("AUTH_CSRF_SECRET"),
			MaxLoginAttempts:   v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:    v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:    v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Cleanup: Cleanup{
			Schedule:            v.GetString("CLEANUP_SCHEDULE"),
			TokenPurgeAfterDays: v.GetInt("CLEANUP_TOKEN_PURGE_AFTER_DAYS"),
		},
	}
}

// IsProduction reports whether the process runs with production guarantees.
// A missing encryption key is fatal in production and only tolerated
// elsewhere with an ephemeral per-boot key.
func (g Global) IsProduction() bool {
	return g.Environment == EnvProduction
}
