package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glowlab/dermascan/internal/config"
	"github.com/glowlab/dermascan/internal/core/ports"
	"github.com/glowlab/dermascan/internal/core/usecase"
	"github.com/glowlab/dermascan/internal/infrastructure/asynctask"
	"github.com/glowlab/dermascan/internal/infrastructure/narrative/gpt"
	"github.com/glowlab/dermascan/internal/infrastructure/queue/nats"
	"github.com/glowlab/dermascan/internal/infrastructure/repository/postgres"
	"github.com/glowlab/dermascan/internal/infrastructure/resilience"
	"github.com/glowlab/dermascan/internal/infrastructure/vision/lumera"
	"github.com/glowlab/dermascan/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Metrics *metrics.ServerMetrics

	ScanUC ports.ScanService

	closeFn func()
}

// New wires the scan pipeline. Vision, narrative, audit and events are all
// optional: an absent vision vendor still serves degraded reports, and the
// other three are best-effort side channels.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	executor := resilience.NewExecutor(resilience.DefaultConfig())
	profile := usecase.DefaultProfile()

	var vision ports.VisionAnalyzer
	if cfg.VisionAPIURL != "" && cfg.VisionAPIKey != "" {
		poller := asynctask.NewPoller(resilience.BackoffPolicy{
			Initial:    cfg.PollBackoffInitial,
			Multiplier: cfg.PollBackoffMultiplier,
			Max:        cfg.PollBackoffMax,
		}, cfg.VendorCallTimeout)
		vision = lumera.New(cfg.VisionAPIURL, cfg.VisionAPIKey, profile.Channels, cfg.VendorCallTimeout, executor, poller)
	} else {
		slog.Warn("vision vendor not configured, all scans will degrade")
	}

	var narrative ports.NarrativeGenerator
	if cfg.NarrativeAPIKey != "" {
		narrative = gpt.New(cfg.NarrativeAPIKey, cfg.NarrativeBaseURL, cfg.NarrativeModel)
	} else {
		slog.Info("narrative vendor not configured, reports keep template copy")
	}

	var closers []func()

	var audit ports.ScanAuditLog
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		auditLog := postgres.NewScanAuditLog(db)
		if err := auditLog.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		audit = auditLog
		closers = append(closers, func() { _ = db.Close() })
	}

	var events ports.EventPublisher
	if cfg.NATSURL != "" {
		publisher, err := nats.New(cfg.NATSURL, cfg.NATSSubject, executor)
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		events = publisher
		closers = append(closers, publisher.Close)
	}

	scanUC := usecase.NewScanUseCase(usecase.ScanConfig{
		TotalBudget:        cfg.ScanTotalBudget,
		ReservedTail:       cfg.ScanReservedTail,
		SubmitMinBudget:    cfg.SubmitMinBudget,
		PollMinBudget:      cfg.PollMinBudget,
		NarrativeMinBudget: cfg.NarrativeMinBudget,
		NarrativeTimeout:   cfg.NarrativeTimeout,
		MaxImageBytes:      int(cfg.MaxImageBytes),
	}, profile, vision, narrative, audit, events)

	return &App{
		Config:  cfg,
		Metrics: metrics.NewServerMetrics(cfg.ServiceName),
		ScanUC:  scanUC,

		closeFn: func() {
			for _, close := range closers {
				close()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// ServerTimeouts derives HTTP server limits from the scan budget so the
// server never cuts a request the pipeline could still resolve.
func ServerTimeouts(cfg config.Config) (read, write, idle time.Duration) {
	write = cfg.ScanTotalBudget + 10*time.Second
	if write < 30*time.Second {
		write = 30 * time.Second
	}
	return 30 * time.Second, write, 60 * time.Second
}
