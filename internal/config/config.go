// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Backends for DOCSTORE_BACKEND.
const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	Env             string
	ShutdownTimeout time.Duration
}

// DocstoreConfig selects and configures the document store.
type DocstoreConfig struct {
	Backend string
	Table   string
	// Endpoint overrides the DynamoDB endpoint, e.g. for DynamoDB Local.
	Endpoint string
	Region   string
}

// Auth0Config holds the identity provider settings.
type Auth0Config struct {
	Domain          string
	Connection      string
	ClientID        string
	ClientSecret    string
	ManagementToken string
	Timeout         time.Duration
}

// JWTConfig holds bearer token verification settings.
type JWTConfig struct {
	SigningKey string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Prefix string
}

// Config holds all configuration.
type Config struct {
	ServiceName string
	Server      ServerConfig
	Docstore    DocstoreConfig
	Auth0       Auth0Config
	JWT         JWTConfig
	Log         LogConfig
	Metrics     MetricsConfig
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	// .env is optional; real deployments use the environment
	_ = godotenv.Load()

	serviceName := getEnv("SERVICE_NAME", "customer-api")
	config := &Config{
		ServiceName: serviceName,
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "development"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Docstore: DocstoreConfig{
			Backend:  getEnv("DOCSTORE_BACKEND", BackendDynamoDB),
			Table:    getEnv("DYNAMODB_TABLE", "customer_api_entities"),
			Endpoint: getEnv("DYNAMODB_ENDPOINT", ""),
			Region:   getEnv("AWS_REGION", "eu-west-1"),
		},
		Auth0: Auth0Config{
			Domain:          getEnv("AUTH0_DOMAIN", ""),
			Connection:      getEnv("AUTH0_CONNECTION", "Username-Password-Authentication"),
			ClientID:        getEnv("AUTH0_CLIENT_ID", ""),
			ClientSecret:    getEnv("AUTH0_CLIENT_SECRET", ""),
			ManagementToken: getEnv("AUTH0_MANAGEMENT_TOKEN", ""),
			Timeout:         getEnvAsDuration("AUTH0_TIMEOUT", 10*time.Second),
		},
		JWT: JWTConfig{
			SigningKey: getEnv("JWT_SECRET", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", ""),
		},
	}

	return config, config.Validate()
}

// Validate reports missing or inconsistent settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Docstore.Backend {
	case BackendDynamoDB:
		if c.Docstore.Table == "" {
			errs = append(errs, errors.New("DYNAMODB_TABLE is required"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("DOCSTORE_BACKEND %q is not one of %s, %s", c.Docstore.Backend, BackendDynamoDB, BackendMemory))
	}
	if c.Auth0.Domain == "" {
		errs = append(errs, errors.New("AUTH0_DOMAIN is required"))
	}
	if c.Auth0.ClientID == "" {
		errs = append(errs, errors.New("AUTH0_CLIENT_ID is required"))
	}
	if c.Auth0.ManagementToken == "" && c.Auth0.ClientSecret == "" {
		errs = append(errs, errors.New("AUTH0_MANAGEMENT_TOKEN or AUTH0_CLIENT_SECRET is required"))
	}
	if c.JWT.SigningKey == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	return errors.Join(errs...)
}

// LogFields returns the non-secret configuration as zap fields.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("server_port", c.Server.Port),
		zap.String("docstore_backend", c.Docstore.Backend),
		zap.String("dynamodb_table", c.Docstore.Table),
		zap.String("aws_region", c.Docstore.Region),
		zap.String("auth0_domain", c.Auth0.Domain),
		zap.String("auth0_connection", c.Auth0.Connection),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
