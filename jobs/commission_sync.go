package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/shopdesk/shopdesk/internal/jobs"
	"github.com/shopdesk/shopdesk/internal/sales/commissions"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CommissionSyncer recomputes commissions.
type CommissionSyncer interface {
	Sync(ctx context.Context) (commissions.SyncResult, error)
}

// CommissionSyncJob backfills commissions that were missed or stored as zero.
type CommissionSyncJob struct {
	Commissions CommissionSyncer
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// NewCommissionSyncJob wires dependencies for the sync handler.
func NewCommissionSyncJob(syncer CommissionSyncer, logger *slog.Logger, metrics *jobmetrics.Metrics) *CommissionSyncJob {
	return &CommissionSyncJob{Commissions: syncer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskCommissionSync tasks.
func (j *CommissionSyncJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Commissions == nil {
		return errors.New("commission sync: handler not configured")
	}
	var payload CommissionSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	metrics := metricsOrDefault(j.Metrics)
	tracker := metrics.Track(TaskCommissionSync)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskCommissionSync)
	if payload.RequestedBy > 0 {
		logger = logger.With(slog.Int64("requested_by", payload.RequestedBy))
	}
	result, err := j.Commissions.Sync(ctx)
	if err != nil {
		logger.Error("commission sync failed", slog.Any("error", err))
		return err
	}
	metrics.AddCommissionsSynced(result.Recomputed + result.Created)
	logger.Info("commission sync completed", slog.Int("recomputed", result.Recomputed), slog.Int("created", result.Created))
	return nil
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}
