package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	TaskCommissionSync     = "commissions:sync"
	TaskLowStockScan       = "inventory:low_stock_scan"
	TaskReportWarmup       = "reports:warmup"
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// CommissionSyncPayload records who asked for a sync. Scheduled runs leave
// RequestedBy empty.
type CommissionSyncPayload struct {
	RequestedBy int64 `json:"requested_by,omitempty"`
}

// ReportWarmupPayload lists the trailing windows, in days, to pre-load.
type ReportWarmupPayload struct {
	WindowsDays []int `json:"windows_days"`
}

// IdempotencyCleanupPayload carries the retention applied by the cleanup.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewCommissionSyncTask constructs a commission sync task.
func NewCommissionSyncTask(payload CommissionSyncPayload) (*asynq.Task, error) {
	return newTask(TaskCommissionSync, payload, asynq.MaxRetry(3))
}

// NewLowStockScanTask constructs a low-stock scan task.
func NewLowStockScanTask() (*asynq.Task, error) {
	return newTask(TaskLowStockScan, struct{}{}, asynq.MaxRetry(1))
}

// NewReportWarmupTask constructs a report warm-up task. Empty windows fall
// back to the dashboard defaults.
func NewReportWarmupTask(windows ...int) (*asynq.Task, error) {
	if len(windows) == 0 {
		windows = defaultWarmupWindows
	}
	return newTask(TaskReportWarmup, ReportWarmupPayload{WindowsDays: windows}, asynq.MaxRetry(1))
}

// NewIdempotencyCleanupTask constructs an idempotency key cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	return newTask(TaskIdempotencyCleanup, IdempotencyCleanupPayload{Retention: retention}, asynq.MaxRetry(3))
}

func newTask(typ string, payload any, opts ...asynq.Option) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts = append(opts, asynq.Queue(QueueDefault))
	return asynq.NewTask(typ, body, opts...), nil
}
