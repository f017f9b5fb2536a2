package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication required
	AuthModeLocal AuthMode = "local" // Local user database with sessions (default)
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Logging
		Tasks
		Maintenance
		Notifications
		Auth
		ReadOnly
		Bots
	}

	HTTP struct {
		Port    int32
		Host    string
		BaseURL string // Public URL used in reset links
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Logging struct {
		Level  string
		Format string // json or console
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Maintenance struct {
		Enabled  bool
		Schedule string // Cron format
	}
	Notifications struct {
		RetentionDays int // Read notifications older than this are removed
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS
		AllowSignup     bool

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)

		ResetTokenTTL time.Duration
	}
	ReadOnly struct {
		Enabled bool
	}
	Bots struct {
		Keywords     string // Comma-separated, overrides the built-in list
		KeywordsFile string // YAML file with a "keywords" list
	}
)

func NewConfig() *Config {
	return newConfig(viper.New())
}

func newConfig(v *viper.Viper) *Config {
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "") // empty: embedded templates
	v.SetDefault("static_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("read_only", false)

	// Auth defaults
	v.SetDefault("auth_mode", "local")
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_allow_signup", true)       // public reader registration
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration
	v.SetDefault("auth_reset_token_ttl", "1h")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("maintenance_enabled", true)
	v.SetDefault("maintenance_schedule", DefaultMaintenanceSchedule)
	v.SetDefault("notification_retention_days", 30)

	v.SetDefault("bot_keywords", "")
	v.SetDefault("bot_keywords_file", "")

	return &Config{
		HTTP: HTTP{
			Port:    v.GetInt32("PORT"),
			Host:    v.GetString("HOST"),
			BaseURL: v.GetString("BASE_URL"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Logging: Logging{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Maintenance: Maintenance{
			Enabled:  v.GetBool("MAINTENANCE_ENABLED"),
			Schedule: v.GetString("MAINTENANCE_SCHEDULE"),
		},
		Notifications: Notifications{
			RetentionDays: v.GetInt("NOTIFICATION_RETENTION_DAYS"),
		},
		Auth: Auth{
			Mode:             AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			AllowSignup:      v.GetBool("AUTH_ALLOW_SIGNUP"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
			ResetTokenTTL:    v.GetDuration("AUTH_RESET_TOKEN_TTL"),
		},
		ReadOnly: ReadOnly{
			Enabled: v.GetBool("READ_ONLY"),
		},
		Bots: Bots{
			Keywords:     v.GetString("BOT_KEYWORDS"),
			KeywordsFile: v.GetString("BOT_KEYWORDS_FILE"),
		},
	}
}
