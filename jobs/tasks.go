package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskFXRefresh re-resolves the exchange rate.
	TaskFXRefresh = "fx:refresh"
	// TaskLowStockScan logs products at or below their minimum stock.
	TaskLowStockScan = "inventory:low-stock"
	// TaskIdempotencyCleanup purges old idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency-cleanup"

	// DefaultIdempotencyRetention is how long processed request keys are kept.
	DefaultIdempotencyRetention = 7 * 24 * time.Hour
)

// CleanupPayload configures an idempotency cleanup run.
type CleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewFXRefreshTask builds the rate refresh task.
func NewFXRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskFXRefresh, nil, asynq.Queue(QueueDefault))
}

// NewLowStockScanTask builds the low stock scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil, asynq.Queue(QueueDefault))
}

// NewIdempotencyCleanupTask builds the cleanup task.
func NewIdempotencyCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(CleanupPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
