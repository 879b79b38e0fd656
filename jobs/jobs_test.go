package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analytichttp "github.com/shopdesk/shopdesk/internal/analytics/http"
	"github.com/shopdesk/shopdesk/internal/inventory"
	jobmetrics "github.com/shopdesk/shopdesk/internal/jobs"
	"github.com/shopdesk/shopdesk/internal/sales/commissions"
	"github.com/shopdesk/shopdesk/internal/shared"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

type fakeSyncer struct {
	result commissions.SyncResult
	err    error
	calls  int
}

func (f *fakeSyncer) Sync(context.Context) (commissions.SyncResult, error) {
	f.calls++
	return f.result, f.err
}

func TestCommissionSyncJob(t *testing.T) {
	syncer := &fakeSyncer{result: commissions.SyncResult{Recomputed: 2, Created: 1}}
	job := NewCommissionSyncJob(syncer, quiet, testMetrics())

	task, err := NewCommissionSyncTask(CommissionSyncPayload{RequestedBy: 4})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, syncer.calls)

	syncer.err = errors.New("db down")
	assert.ErrorContains(t, job.Handle(context.Background(), task), "db down")

	bad := asynq.NewTask(TaskCommissionSync, []byte("{"))
	assert.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
}

type fakeLowStock struct{ items []inventory.Item }

func (f fakeLowStock) LowStock(context.Context) ([]inventory.Item, error) { return f.items, nil }

type capture struct{ events []shared.Event }

func (c *capture) Publish(_ context.Context, e shared.Event) error {
	c.events = append(c.events, e)
	return nil
}

func TestLowStockScanPublishesEvent(t *testing.T) {
	pub := &capture{}
	stock := fakeLowStock{items: []inventory.Item{
		{ProductID: 1, SKU: "SSD-512", ProductName: "SSD", Quantity: 2, ReorderLevel: 5},
		{ProductID: 2, SKU: "MS-01", ProductName: "Mouse", Quantity: 0, ReorderLevel: 10},
	}}
	job := NewLowStockScanJob(stock, pub, quiet, testMetrics())

	task, err := NewLowStockScanTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, pub.events, 1)
	assert.Equal(t, "inventory.low_stock", pub.events[0].Type)
	payload, ok := pub.events[0].Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, payload["count"])
}

func TestLowStockScanQuietWhenStocked(t *testing.T) {
	pub := &capture{}
	job := NewLowStockScanJob(fakeLowStock{}, pub, quiet, testMetrics())
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskLowStockScan, nil)))
	assert.Empty(t, pub.events)
}

type fakeDashboard struct{ ranges []analytichttp.Range }

func (f *fakeDashboard) Dashboard(_ context.Context, rng analytichttp.Range) (analytichttp.Dashboard, error) {
	f.ranges = append(f.ranges, rng)
	return analytichttp.Dashboard{}, nil
}

func TestReportWarmupWindows(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	reports := &fakeDashboard{}
	job := NewReportWarmupJob(reports, loc, quiet, testMetrics())
	job.clock = func() time.Time { return time.Date(2024, 3, 20, 22, 30, 0, 0, time.UTC) }

	task, err := NewReportWarmupTask(1, 7)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, reports.ranges, 2)

	// 22:30 UTC is already the 21st in UTC+3.
	end := time.Date(2024, 3, 22, 0, 0, 0, 0, loc)
	assert.True(t, reports.ranges[0].To.Equal(end))
	assert.True(t, reports.ranges[0].From.Equal(time.Date(2024, 3, 21, 0, 0, 0, 0, loc)))
	assert.True(t, reports.ranges[1].From.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, loc)))
}

func TestReportWarmupDefaultWindows(t *testing.T) {
	reports := &fakeDashboard{}
	job := NewReportWarmupJob(reports, nil, quiet, testMetrics())
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskReportWarmup, []byte(`{}`))))
	assert.Len(t, reports.ranges, len(defaultWarmupWindows))
}

type fakePruner struct{ got time.Duration }

func (f *fakePruner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.got = olderThan
	return 3, nil
}

func TestIdempotencyCleanupClampsRetention(t *testing.T) {
	store := &fakePruner{}
	job := NewIdempotencyCleanupJob(store, quiet, testMetrics())

	task, err := NewIdempotencyCleanupTask(72 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 72*time.Hour, store.got)

	task, err = NewIdempotencyCleanupTask(time.Minute)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, time.Hour, store.got)
}

func TestClientEnqueueCommissionSync(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer client.Close()

	ctx := shared.ContextWithActor(context.Background(), 7)
	id, err := client.EnqueueCommissionSync(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = client.EnqueueCommissionSync(ctx)
	assert.ErrorIs(t, err, shared.ErrConflict)

	other := shared.ContextWithActor(context.Background(), 8)
	_, err = client.EnqueueCommissionSync(other)
	assert.NoError(t, err)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name    string
		insp    QueueInspector
		status  int
		pending int
	}{
		{"no inspector", nil, http.StatusOK, 0},
		{"queue info", fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, http.StatusOK, 4},
		{"queue not created yet", fakeInspector{err: asynq.ErrQueueNotFound}, http.StatusOK, 0},
		{"redis down", fakeInspector{err: errors.New("dial tcp: refused")}, http.StatusServiceUnavailable, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(tc.insp, quiet)
			rr := httptest.NewRecorder()
			h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
			require.Equal(t, tc.status, rr.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, QueueDefault, body.Queue)
			assert.Equal(t, tc.pending, body.Pending)
		})
	}
}
