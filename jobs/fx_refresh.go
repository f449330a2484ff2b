package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/naguara/naguara-pos/internal/fx"
	jobmetrics "github.com/naguara/naguara-pos/internal/jobs"
	"github.com/naguara/naguara-pos/internal/shared"
)

// RateRefresher re-resolves the current rate.
type RateRefresher interface {
	Refresh(ctx context.Context) (fx.Quote, error)
}

// FXRefreshJob keeps the cached exchange rate warm.
type FXRefreshJob struct {
	Rates   RateRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewFXRefreshJob initialises the refresh handler.
func NewFXRefreshJob(rates RateRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *FXRefreshJob {
	return &FXRefreshJob{Rates: rates, Logger: logger, Metrics: metrics}
}

// Handle executes a refresh. Another instance holding the refresh lock is
// not a failure.
func (j *FXRefreshJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Rates == nil {
		return errors.New("fx refresh: handler not configured")
	}
	tracker := j.Metrics.Track(TaskFXRefresh)
	defer func() { err = tracker.End(err) }()

	quote, err := j.Rates.Refresh(ctx)
	if errors.Is(err, shared.ErrLockBusy) {
		loggerOrDefault(j.Logger).Info("fx refresh skipped, lock held elsewhere")
		return nil
	}
	if err != nil {
		return err
	}
	loggerOrDefault(j.Logger).Info("fx rate refreshed",
		slog.String("value", quote.Value.String()),
		slog.String("source", quote.Source),
	)
	return nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
