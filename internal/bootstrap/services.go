package bootstrap

import (
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/photomesh/photomesh/config"
	"github.com/photomesh/photomesh/internal/artifact"
	"github.com/photomesh/photomesh/internal/data"
	"github.com/photomesh/photomesh/internal/notify"
	"github.com/photomesh/photomesh/internal/observability/statsd"
	"github.com/photomesh/photomesh/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs      *service.JobService
	Scheduler *service.Scheduler
	Artifacts *artifact.Store
	History   *data.HistoryRepo
	Metrics   *statsd.Client
}

// ServiceDeps groups dependencies for service initialization. DB and
// RedisClient are optional; nil disables history persistence and the
// terminal snapshot cache respectively.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires the job system: the artifact store, the job service
// with its terminal-state hooks, and the pipeline scheduler.
func NewServices(deps *ServiceDeps) ServiceContainer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.AppConfig{}
		cfg.Sanitize()
	}

	metrics := buildMetricsSink(logger, cfg.Observability.Metrics)

	var history *data.HistoryRepo
	if deps.DB != nil {
		history = data.NewHistoryRepo(deps.DB)
	}

	jobs := service.NewJobService(service.JobServiceOptions{
		Logger: logger,
		Hooks:  buildTerminalHooks(deps, cfg, history, metrics, logger),
	})

	store := artifact.NewStore(cfg.Processing.OutputRoot, logger)

	scheduler := service.NewScheduler(service.SchedulerOptions{
		Service:   jobs,
		Artifacts: store,
		Config:    cfg.Processing,
		Logger:    logger,
	})

	return ServiceContainer{
		Jobs:      jobs,
		Scheduler: scheduler,
		Artifacts: store,
		History:   history,
		Metrics:   metrics,
	}
}

func buildTerminalHooks(deps *ServiceDeps, cfg *config.AppConfig, history *data.HistoryRepo, metrics *statsd.Client, logger *slog.Logger) service.TerminalHooks {
	hooks := service.TerminalHooks{}

	if deps.RedisClient != nil {
		hooks.Cache = data.NewSnapshotCache(deps.RedisClient, cfg.Redis.SnapshotTTL)
	}
	if history != nil {
		hooks.History = history
	}
	if cfg.Observability.Webhook.URL != "" {
		webhook, err := notify.NewWebhook(notify.Config{
			URL:        cfg.Observability.Webhook.URL,
			LabelExpr:  cfg.Observability.Webhook.LabelExpr,
			BaseURL:    cfg.HTTP.BaseURL,
			Timeout:    cfg.Observability.Webhook.Timeout,
			RetryLimit: cfg.Observability.Webhook.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to configure terminal webhook", "error", err)
		} else {
			hooks.Notifier = webhook
		}
	}
	if metrics != nil {
		hooks.Metrics = metrics
	}

	return hooks
}

func buildMetricsSink(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  "photomesh",
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}
