package config

import "time"

// Config holds all application configuration in a structured way.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Gateway   GatewayConfig
	Scheduler SchedulerConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasePath           string
	BasicAuth          []string
	CorsAllowedOrigins []string
	TrustedProxies     []string
	SecretKey          string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type GatewayConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SchedulerConfig struct {
	FollowUpInterval time.Duration
	CampaignInterval time.Duration
	SendDelay        time.Duration
	WorkerPoolSize   int
	WorkerQueueSize  int
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from environment variables or defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Version:            "v1.4.0",
			Port:               getEnv("APP_PORT", "3000"),
			Debug:              getEnvBool("APP_DEBUG", false),
			Environment:        getEnv("APP_ENV", "development"),
			BasePath:           getEnv("APP_BASE_PATH", ""),
			BasicAuth:          getEnvList("APP_BASIC_AUTH"),
			CorsAllowedOrigins: getEnvListDefault("APP_CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
			TrustedProxies:     getEnvList("APP_TRUSTED_PROXIES"),
			SecretKey:          getEnv("APP_SECRET_KEY", ""),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "zapleads.db"),
			ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
			ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
			ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
			ValkeyDB:        getEnvInt("VALKEY_DB", 0),
			ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "zapleads:"),
		},
		Gateway: GatewayConfig{
			BaseURL: getEnv("GATEWAY_BASE_URL", "http://localhost:8080"),
			Timeout: time.Duration(getEnvInt("GATEWAY_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Scheduler: SchedulerConfig{
			FollowUpInterval: time.Duration(getEnvInt("FOLLOWUP_INTERVAL_SECONDS", 30)) * time.Second,
			CampaignInterval: time.Duration(getEnvInt("CAMPAIGN_INTERVAL_SECONDS", 60)) * time.Second,
			SendDelay:        time.Duration(getEnvInt("CAMPAIGN_SEND_DELAY_MS", 2000)) * time.Millisecond,
			WorkerPoolSize:   getEnvInt("SCAN_WORKER_POOL_SIZE", 4),
			WorkerQueueSize:  getEnvInt("SCAN_WORKER_QUEUE_SIZE", 100),
		},
	}

	Global = cfg
	return cfg, nil
}
