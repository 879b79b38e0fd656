package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	analytichttp "github.com/shopdesk/shopdesk/internal/analytics/http"
	jobmetrics "github.com/shopdesk/shopdesk/internal/jobs"
)

var (
	defaultWarmupWindows = []int{1, 7, 30}

	now = func() time.Time { return time.Now().UTC() }
)

// DashboardLoader builds the dashboard for a date range.
type DashboardLoader interface {
	Dashboard(ctx context.Context, rng analytichttp.Range) (analytichttp.Dashboard, error)
}

// ReportWarmupJob loads the dashboard for the common trailing windows so the
// underlying list queries land in the query cache before users ask for them.
type ReportWarmupJob struct {
	Reports  DashboardLoader
	Location *time.Location
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewReportWarmupJob wires dependencies for the warm-up handler.
func NewReportWarmupJob(reports DashboardLoader, loc *time.Location, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportWarmupJob{Reports: reports, Location: loc, Logger: logger, Metrics: metrics, clock: now}
}

// Handle processes TaskReportWarmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reports == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if len(payload.WindowsDays) == 0 {
		payload.WindowsDays = defaultWarmupWindows
	}

	tracker := metricsOrDefault(j.Metrics).Track(TaskReportWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskReportWarmup)
	start := j.clock()
	warmed := 0
	for _, days := range payload.WindowsDays {
		if days <= 0 {
			continue
		}
		rng := j.window(start, days)
		if err := j.warm(ctx, rng); err != nil {
			logger.Error("warm dashboard", slog.Int("days", days), slog.Any("error", err))
			return err
		}
		warmed++
	}
	logger.Info("completed report warmup", slog.Int("windows", warmed), slog.Duration("duration", j.clock().Sub(start)))
	return nil
}

// window returns the last days calendar days ending today, in the report
// zone, with an exclusive upper bound.
func (j *ReportWarmupJob) window(at time.Time, days int) analytichttp.Range {
	local := at.In(j.Location)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, j.Location)
	to := today.AddDate(0, 0, 1)
	return analytichttp.Range{From: to.AddDate(0, 0, -days), To: to}
}

func (j *ReportWarmupJob) warm(ctx context.Context, rng analytichttp.Range) error {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	_, err := j.Reports.Dashboard(ctx, rng)
	return err
}
