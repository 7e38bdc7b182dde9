// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/nextstream/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultProviders is the streaming allow-list for the popular releases feed.
var DefaultProviders = []string{
	"Netflix",
	"Amazon Prime Video",
	"Disney Plus",
	"Hulu",
	"Max",
	"Apple TV Plus",
	"Paramount Plus",
	"Peacock Premium",
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Driver:          "mysql",
			DSN:             "nextstream:nextstream@tcp(127.0.0.1:3306)/nextstream?parseTime=true&loc=UTC",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Security: SecurityConfig{
			SessionTimeout:  24 * time.Hour,
			GuestTimeout:    2 * time.Hour,
			CookieSecure:    false,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"http://localhost:3000"},
		},
		TMDB: TMDBConfig{
			BaseURL:        "https://api.themoviedb.org/3",
			Language:       "en-US",
			Region:         "US",
			RequestTimeout: 5 * time.Second,
			MaxRetries:     3,
			RetryBackoff:   500 * time.Millisecond,
			RatePerSecond:  40,
			RateBurst:      20,
		},
		Cache: CacheConfig{
			PopularReleasesTTL: time.Hour,
			ProxyTTL:           10 * time.Minute,
		},
		Session: SessionConfig{
			Backend: "memory",
			Path:    "/data/sessions",
			TTL:     24 * time.Hour,
		},
		Recommend: RecommendConfig{
			MinCandidates:      4,
			MaxPages:           10,
			MaxResults:         20,
			ClassifierEnabled:  true,
			MinTrainingSamples: 4,
			HiddenUnits:        8,
			Epochs:             300,
			LearningRate:       0.05,
		},
		Scheduler: SchedulerConfig{
			Enabled:                 true,
			Timezone:                "Local",
			PopularReleasesCron:     "0 * * * *",
			RecommendationEmailCron: "0 9 * * *",
			ReminderDigestCron:      "0 8 * * *",
			UpcomingEventsCron:      "* * * * *",
			UpcomingWindow:          15 * time.Minute,
			JobTimeout:              10 * time.Minute,
			CheckInterval:           time.Minute,
		},
		Notifications: NotificationsConfig{
			SMTP: SMTPConfig{
				Port:     587,
				FromName: "NextStream",
				UseTLS:   true,
				Timeout:  30 * time.Second,
			},
			Push: PushConfig{
				Timeout: 10 * time.Second,
			},
		},
		Outbox: OutboxConfig{
			PollInterval: time.Second,
			BatchSize:    100,
			MaxAttempts:  10,
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			Host:          "127.0.0.1",
			Port:          4222,
			StoreDir:      "/data/nats",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			QueueGroup:    "nextstream",
		},
		WebSocket: WebSocketConfig{
			TypingTimeout: 3 * time.Second,
			DedupTTL:      10 * time.Minute,
			SendBuffer:    256,
		},
		Providers: ProvidersConfig{
			AllowList: append([]string(nil), DefaultProviders...),
			Region:    "US",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, file and environment, then validates it.
func Load() (*Config, error) {
	// A missing .env is the normal production case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
	"providers.allow_list",
}

// processSliceFields splits comma-separated env values into string slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_host":            "server.host",
	"http_port":            "server.port",
	"environment":          "server.environment",
	"shutdown_timeout":     "server.shutdown_timeout",
	"db_driver":            "database.driver",
	"database_url":         "database.dsn",
	"db_max_open_conns":    "database.max_open_conns",
	"jwt_secret":           "security.jwt_secret",
	"session_timeout":      "security.session_timeout",
	"guest_timeout":        "security.guest_timeout",
	"cookie_secure":        "security.cookie_secure",
	"cookie_domain":        "security.cookie_domain",
	"rate_limit_requests":  "security.rate_limit_reqs",
	"rate_limit_window":    "security.rate_limit_window",
	"disable_rate_limit":   "security.rate_limit_disabled",
	"cors_origins":         "security.cors_origins",
	"casbin_model_path":    "security.casbin_model_path",
	"casbin_policy_path":   "security.casbin_policy_path",
	"tmdb_api_key":         "tmdb.api_key",
	"tmdb_base_url":        "tmdb.base_url",
	"tmdb_region":          "tmdb.region",
	"tmdb_request_timeout": "tmdb.request_timeout",
	"tmdb_max_retries":     "tmdb.max_retries",
	"session_backend":      "session.backend",
	"session_path":         "session.path",
	"session_ttl":          "session.ttl",
	"recommend_classifier": "recommend.classifier_enabled",
	"scheduler_enabled":    "scheduler.enabled",
	"scheduler_timezone":   "scheduler.timezone",
	"smtp_enabled":         "notifications.smtp.enabled",
	"smtp_host":            "notifications.smtp.host",
	"smtp_port":            "notifications.smtp.port",
	"smtp_username":        "notifications.smtp.username",
	"smtp_password":        "notifications.smtp.password",
	"smtp_from":            "notifications.smtp.from",
	"push_enabled":         "notifications.push.enabled",
	"push_endpoint":        "notifications.push.endpoint",
	"push_server_key":      "notifications.push.server_key",
	"outbox_poll_interval": "outbox.poll_interval",
	"outbox_max_attempts":  "outbox.max_attempts",
	"nats_enabled":         "nats.enabled",
	"nats_embedded":        "nats.embedded",
	"nats_url":             "nats.url",
	"nats_store_dir":       "nats.store_dir",
	"ws_typing_timeout":    "websocket.typing_timeout",
	"streaming_providers":  "providers.allow_list",
	"streaming_region":     "providers.region",
	"log_level":            "logging.level",
	"log_format":           "logging.format",
	"log_caller":           "logging.caller",
}

// envTransformFunc maps known environment variables onto config keys and
// drops everything else.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
