// Package providers contains dependency injection providers for the index server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/tasteapp/taste-index/internal/config"
	"github.com/tasteapp/taste-index/internal/logger"
	"github.com/tasteapp/taste-index/internal/metrics"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
		Service:     "taste-index",
	})

	log.Info("Starting Taste index",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"index_backend", cfg.Index.Backend,
		"data_path", cfg.Index.DataPath,
		"ledger_source", cfg.Ledger.Source,
	)

	return log, nil
}

// ProvideMetrics provides the prometheus metrics registry.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}
