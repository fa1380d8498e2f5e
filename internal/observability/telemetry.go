// Package observability wires together OpenTelemetry tracing and
// structured logging for the forecast service, using this module's own
// internal/shared/observability and internal/shared/logging packages
// rather than an external shared module.
package observability

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/dairyforecast/herdsim/internal/shared/logging"
	sharedobs "github.com/dairyforecast/herdsim/internal/shared/observability"
)

// Observability bundles initialized telemetry components.
type Observability struct {
	TracerProvider *sharedobs.Provider
	Logger         *zap.Logger
}

// Config controls observability initialization.
type Config struct {
	ServiceName string
	// ServiceVersion is the simulation engine version (internal/config's
	// SimulationVersion) stamped onto every trace and log line.
	ServiceVersion string
	Environment    string
	Endpoint       string
	Protocol       string
	Headers        map[string]string
	Insecure       bool
	LogLevel       string
}

// Init initializes OpenTelemetry and structured logging.
func Init(ctx context.Context, cfg Config) (*Observability, error) {
	var tracerProvider *sharedobs.Provider
	if cfg.Endpoint != "" {
		otelCfg := sharedobs.Config{
			ServiceName:    cfg.ServiceName,
			ServiceVersion: cfg.ServiceVersion,
			Environment:    cfg.Environment,
			Endpoint:       cfg.Endpoint,
			Protocol:       cfg.Protocol,
			Headers:        cfg.Headers,
			Insecure:       cfg.Insecure,
		}
		var err error
		tracerProvider, err = sharedobs.Init(ctx, otelCfg)
		if err != nil {
			return nil, fmt.Errorf("init observability: %w", err)
		}
	}

	loggingCfg := logging.DefaultConfig().
		WithServiceName(cfg.ServiceName).
		WithEnvironment(cfg.Environment).
		WithLogLevel(cfg.LogLevel)

	loggerWrapper, err := logging.New(loggingCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	return &Observability{
		TracerProvider: tracerProvider,
		Logger:         loggerWrapper.Logger,
	}, nil
}

// MustInit panics if Init returns an error.
func MustInit(ctx context.Context, cfg Config) *Observability {
	obs, err := Init(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	return obs
}

// Shutdown gracefully shuts down observability components.
func (o *Observability) Shutdown(ctx context.Context) error {
	var firstErr error

	if o.TracerProvider != nil {
		if err := o.TracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}

	if o.Logger != nil {
		if err := o.Logger.Sync(); err != nil {
			if !strings.Contains(err.Error(), "sync /dev/stdout") &&
				!strings.Contains(err.Error(), "sync /dev/stderr") {
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}

	return firstErr
}
