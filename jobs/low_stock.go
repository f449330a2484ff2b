package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/naguara/naguara-pos/internal/inventory"
	jobmetrics "github.com/naguara/naguara-pos/internal/jobs"
)

// StockScanner runs a low stock scan and reports how many products matched.
type StockScanner interface {
	ScanLowStock(ctx context.Context) (int, error)
}

// LowStockJob runs the hourly low stock scan.
type LowStockJob struct {
	Scanner StockScanner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockJob initialises the scan handler.
func NewLowStockJob(scanner StockScanner, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockJob {
	return &LowStockJob{Scanner: scanner, Logger: logger, Metrics: metrics}
}

// Handle executes a scan.
func (j *LowStockJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Scanner == nil {
		return errors.New("low stock: handler not configured")
	}
	tracker := j.Metrics.Track(TaskLowStockScan)
	defer func() { err = tracker.End(err) }()

	n, err := j.Scanner.ScanLowStock(ctx)
	if err != nil {
		return err
	}
	j.Metrics.AddItems(TaskLowStockScan, int64(n))
	loggerOrDefault(j.Logger).Info("low stock scan completed", slog.Int("products", n))
	return nil
}

// LogAlerts writes one warning per product below its minimum.
type LogAlerts struct {
	Logger *slog.Logger
}

// HandleLowStock implements inventory.AlertHandler.
func (l LogAlerts) HandleLowStock(ctx context.Context, alerts []inventory.LowStockAlert) error {
	logger := loggerOrDefault(l.Logger)
	for _, a := range alerts {
		logger.WarnContext(ctx, "low stock",
			slog.Int64("product_id", a.ProductID),
			slog.String("code", a.Code),
			slog.String("name", a.Name),
			slog.String("stock", a.Stock.String()),
			slog.String("min_stock", a.MinStock.String()),
			slog.String("shortfall", a.Shortfall().String()),
		)
	}
	return nil
}
