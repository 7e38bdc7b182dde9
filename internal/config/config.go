// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package config loads NextStream configuration.
//
// Values are layered with koanf: struct defaults, then an optional YAML file
// (CONFIG_PATH or ./config.yaml), then environment variables. A .env file in
// the working directory is read first so local development can keep secrets
// such as TMDB_API_KEY and JWT_SECRET out of the YAML file.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Security      SecurityConfig      `koanf:"security"`
	TMDB          TMDBConfig          `koanf:"tmdb"`
	Cache         CacheConfig         `koanf:"cache"`
	Session       SessionConfig       `koanf:"session"`
	Recommend     RecommendConfig     `koanf:"recommend"`
	Scheduler     SchedulerConfig     `koanf:"scheduler"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Outbox        OutboxConfig        `koanf:"outbox"`
	NATS          NATSConfig          `koanf:"nats"`
	WebSocket     WebSocketConfig     `koanf:"websocket"`
	Providers     ProvidersConfig     `koanf:"providers"`
	Logging       LoggingConfig       `koanf:"logging"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// DatabaseConfig selects the SQL dialect. Driver is one of mysql, postgres,
// sqlite or duckdb; DSN is passed to sql.Open unchanged.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"`
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	GuestTimeout      time.Duration `koanf:"guest_timeout"`
	CookieSecure      bool          `koanf:"cookie_secure"`
	CookieDomain      string        `koanf:"cookie_domain"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	CasbinModelPath   string        `koanf:"casbin_model_path"`
	CasbinPolicyPath  string        `koanf:"casbin_policy_path"`
}

// TMDBConfig configures the outbound TMDB client. RequestTimeout and
// MaxRetries bound every call (5s, 3 attempts by default).
type TMDBConfig struct {
	APIKey         string        `koanf:"api_key"`
	BaseURL        string        `koanf:"base_url"`
	Language       string        `koanf:"language"`
	Region         string        `koanf:"region"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	MaxRetries     int           `koanf:"max_retries"`
	RetryBackoff   time.Duration `koanf:"retry_backoff"`
	RatePerSecond  float64       `koanf:"rate_per_second"`
	RateBurst      int           `koanf:"rate_burst"`
}

type CacheConfig struct {
	PopularReleasesTTL time.Duration `koanf:"popular_releases_ttl"`
	ProxyTTL           time.Duration `koanf:"proxy_ttl"`
}

// SessionConfig selects where displayed-recommendation memory lives.
type SessionConfig struct {
	Backend string        `koanf:"backend"` // memory or badger
	Path    string        `koanf:"path"`
	TTL     time.Duration `koanf:"ttl"`
}

type RecommendConfig struct {
	MinCandidates      int     `koanf:"min_candidates"`
	MaxPages           int     `koanf:"max_pages"`
	MaxResults         int     `koanf:"max_results"`
	ClassifierEnabled  bool    `koanf:"classifier_enabled"`
	MinTrainingSamples int     `koanf:"min_training_samples"`
	HiddenUnits        int     `koanf:"hidden_units"`
	Epochs             int     `koanf:"epochs"`
	LearningRate       float64 `koanf:"learning_rate"`
}

// SchedulerConfig holds the cron expressions for the periodic jobs.
type SchedulerConfig struct {
	Enabled                 bool          `koanf:"enabled"`
	Timezone                string        `koanf:"timezone"`
	PopularReleasesCron     string        `koanf:"popular_releases_cron"`
	RecommendationEmailCron string        `koanf:"recommendation_email_cron"`
	ReminderDigestCron      string        `koanf:"reminder_digest_cron"`
	UpcomingEventsCron      string        `koanf:"upcoming_events_cron"`
	UpcomingWindow          time.Duration `koanf:"upcoming_window"`
	JobTimeout              time.Duration `koanf:"job_timeout"`
	CheckInterval           time.Duration `koanf:"check_interval"`
}

type NotificationsConfig struct {
	SMTP SMTPConfig `koanf:"smtp"`
	Push PushConfig `koanf:"push"`
}

type SMTPConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Host     string        `koanf:"host"`
	Port     int           `koanf:"port"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
	From     string        `koanf:"from"`
	FromName string        `koanf:"from_name"`
	UseTLS   bool          `koanf:"use_tls"`
	Timeout  time.Duration `koanf:"timeout"`
}

// PushConfig points at an HTTP push gateway that fans out to devices.
type PushConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Endpoint  string        `koanf:"endpoint"`
	ServerKey string        `koanf:"server_key"`
	Timeout   time.Duration `koanf:"timeout"`
}

type OutboxConfig struct {
	PollInterval time.Duration `koanf:"poll_interval"`
	BatchSize    int           `koanf:"batch_size"`
	MaxAttempts  int           `koanf:"max_attempts"`
}

// NATSConfig switches the event bus from in-process channels to JetStream.
type NATSConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Embedded      bool          `koanf:"embedded"`
	URL           string        `koanf:"url"`
	Host          string        `koanf:"host"`
	Port          int           `koanf:"port"`
	StoreDir      string        `koanf:"store_dir"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
	QueueGroup    string        `koanf:"queue_group"`
}

type WebSocketConfig struct {
	TypingTimeout time.Duration `koanf:"typing_timeout"`
	DedupTTL      time.Duration `koanf:"dedup_ttl"`
	SendBuffer    int           `koanf:"send_buffer"`
}

// ProvidersConfig is the streaming-provider allow-list used to filter the
// popular releases feed.
type ProvidersConfig struct {
	AllowList []string `koanf:"allow_list"`
	Region    string   `koanf:"region"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
