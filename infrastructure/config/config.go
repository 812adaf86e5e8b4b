// Package config loads the process configuration: built-in defaults, then an
// optional YAML file, then environment variables, each overriding the last.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"

	LockLocal    = "local"
	LockDynamoDB = "dynamodb"

	EventsLocal       = "local"
	EventsEventBridge = "eventbridge"
)

// Config holds all application configuration
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	// Server
	ServerHost      string        `yaml:"server_host"`
	ServerPort      int           `yaml:"server_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Storage
	StoreBackend  string        `yaml:"store_backend"`
	SQLitePath    string        `yaml:"sqlite_path"`
	DynamoDBTable string        `yaml:"dynamodb_table"`
	AWSRegion     string        `yaml:"aws_region"`
	LockBackend   string        `yaml:"lock_backend"`
	LockLease     time.Duration `yaml:"lock_lease"`

	// Events
	EventBackend string `yaml:"event_backend"`
	EventBusName string `yaml:"event_bus_name"`
	EventBuffer  int    `yaml:"event_buffer"`

	// Observability
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableTracing bool   `yaml:"enable_tracing"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`

	// Authentication
	AuthEnabled    bool    `yaml:"auth_enabled"`
	JWTSecret      string  `yaml:"jwt_secret"`
	JWTIssuer      string  `yaml:"jwt_issuer"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	Search SearchConfig `yaml:"search"`

	// ConfigFile is the YAML overlay that was loaded, if any
	ConfigFile string `yaml:"-"`
}

// SearchConfig holds the search defaults that can be reloaded at runtime
type SearchConfig struct {
	MinSimilarity float64 `yaml:"min_similarity"`
	MaxLimit      int     `yaml:"max_limit"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Environment:        "development",
		LogLevel:           "info",
		ServerHost:         "127.0.0.1",
		ServerPort:         8080,
		ShutdownTimeout:    15 * time.Second,
		StoreBackend:       StoreMemory,
		SQLitePath:         "kaku.db",
		DynamoDBTable:      "kaku",
		LockBackend:        LockLocal,
		LockLease:          30 * time.Second,
		EventBackend:       EventsLocal,
		EventBuffer:        1024,
		JWTIssuer:          "kaku",
		RateLimitBurst:     20,
		CORSAllowedOrigins: []string{"*"},
		Search: SearchConfig{
			MinSimilarity: 0.3,
			MaxLimit:      100,
		},
	}
}

// LoadConfig loads and validates the configuration
func LoadConfig() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("KAKU_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.ServerHost = getEnv("SERVER_HOST", c.ServerHost)
	c.ServerPort = getEnvInt("SERVER_PORT", c.ServerPort)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.DynamoDBTable = getEnv("DYNAMODB_TABLE", c.DynamoDBTable)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.LockBackend = getEnv("LOCK_BACKEND", c.LockBackend)
	c.LockLease = getEnvDuration("LOCK_LEASE", c.LockLease)

	c.EventBackend = getEnv("EVENT_BACKEND", c.EventBackend)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.EventBuffer = getEnvInt("EVENT_BUFFER", c.EventBuffer)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.OTLPEndpoint = getEnv("OTLP_ENDPOINT", c.OTLPEndpoint)

	c.AuthEnabled = getEnvBool("AUTH_ENABLED", c.AuthEnabled)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORSAllowedOrigins = strings.Split(origins, ",")
	}

	c.Search.MinSimilarity = getEnvFloat("SEARCH_MIN_SIMILARITY", c.Search.MinSimilarity)
	c.Search.MaxLimit = getEnvInt("SEARCH_MAX_LIMIT", c.Search.MaxLimit)
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreSQLite, StoreDynamoDB:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.LockBackend {
	case LockLocal, LockDynamoDB:
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.LockBackend)
	}
	switch c.EventBackend {
	case EventsLocal, EventsEventBridge:
	default:
		return fmt.Errorf("unknown EVENT_BACKEND %q", c.EventBackend)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", c.ServerPort)
	}
	if c.StoreBackend == StoreSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
	}
	if (c.StoreBackend == StoreDynamoDB || c.LockBackend == LockDynamoDB) && c.DynamoDBTable == "" {
		return fmt.Errorf("DYNAMODB_TABLE is required")
	}
	if c.EventBackend == EventsEventBridge && c.EventBusName == "" {
		return fmt.Errorf("EVENT_BUS_NAME is required for eventbridge")
	}
	if c.AuthEnabled && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_ENABLED is set")
	}
	if c.EnableTracing && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP_ENDPOINT is required when tracing is enabled")
	}
	return c.Search.Validate()
}

// Validate checks the search defaults
func (s SearchConfig) Validate() error {
	if s.MinSimilarity < 0 || s.MinSimilarity > 1 {
		return fmt.Errorf("search min similarity %v must be within [0, 1]", s.MinSimilarity)
	}
	if s.MaxLimit < 1 {
		return fmt.Errorf("search max limit must be positive")
	}
	return nil
}

// Address returns host:port for the HTTP listener
func (c *Config) Address() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsLambda reports whether the process runs inside AWS Lambda
func IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
