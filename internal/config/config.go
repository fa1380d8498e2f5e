package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the forecast service.
type Config struct {
	// Service identity
	ServiceName string `envconfig:"SERVICE_NAME" default:"herdsim-service"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP server
	HTTPPort int `envconfig:"HTTP_PORT" default:"8084"`

	// Database (job, dataset and scenario-preset catalogs)
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Redis (job queue and progress bus)
	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`

	// Artifact store (S3-compatible: datasets, results, exports)
	S3Endpoint         string        `envconfig:"S3_ENDPOINT"`
	S3AccessKey        string        `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey        string        `envconfig:"S3_SECRET_KEY"`
	S3Region           string        `envconfig:"S3_REGION" default:"us-east-1"`
	S3DatasetsBucket   string        `envconfig:"S3_DATASETS_BUCKET" default:"herdsim-datasets"`
	S3ResultsBucket    string        `envconfig:"S3_RESULTS_BUCKET" default:"herdsim-results"`
	S3ExportsBucket    string        `envconfig:"S3_EXPORTS_BUCKET" default:"herdsim-exports"`
	ExportSignedURLTTL time.Duration `envconfig:"EXPORT_SIGNED_URL_TTL" default:"24h"`

	// Dataset ingestion
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"52428800"`

	// Job pipeline
	WorkerCount        int           `envconfig:"WORKER_COUNT" default:"4"`
	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"2s"`
	StuckJobTimeout    time.Duration `envconfig:"STUCK_JOB_TIMEOUT" default:"15m"`
	JobMaxAttempts     int           `envconfig:"JOB_MAX_ATTEMPTS" default:"3"`
	JobBaseBackoff     time.Duration `envconfig:"JOB_BASE_BACKOFF" default:"500ms"`
	JobExpiresIn       time.Duration `envconfig:"JOB_EXPIRES_IN" default:"168h"`

	// Monte Carlo orchestration
	MCParallelEnabled bool `envconfig:"MC_PARALLEL_ENABLED" default:"true"`
	MCMaxProcesses    int  `envconfig:"MC_MAX_PROCESSES" default:"4"`
	MCBatchSize       int  `envconfig:"MC_BATCH_SIZE" default:"25"`

	// Progress stream
	StreamHeartbeatInterval time.Duration `envconfig:"STREAM_HEARTBEAT_INTERVAL" default:"15s"`

	// Simulation
	SimulationVersion string `envconfig:"SIMULATION_VERSION" default:"herdsim-mc-v1"`

	// Observability
	TelemetryEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TelemetryProtocol string `envconfig:"OTEL_EXPORTER_OTLP_PROTOCOL" default:"grpc"`
	TelemetryInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`

	// Security
	EnableRBAC bool `envconfig:"ENABLE_RBAC" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad loads configuration and panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	if c.JobMaxAttempts <= 0 {
		return fmt.Errorf("JOB_MAX_ATTEMPTS must be positive, got %d", c.JobMaxAttempts)
	}
	if c.MCMaxProcesses <= 0 {
		return fmt.Errorf("MC_MAX_PROCESSES must be positive, got %d", c.MCMaxProcesses)
	}
	if c.MCBatchSize <= 0 {
		return fmt.Errorf("MC_BATCH_SIZE must be positive, got %d", c.MCBatchSize)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}
