package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/shopdesk/jobs"
)

type stubClient struct{ tasks []*asynq.Task }

func (s *stubClient) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func (s stubInspector) ListScheduledTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return nil, nil
}

func TestTriggerKnownJobs(t *testing.T) {
	client := &stubClient{}
	c := newJobsCLI(client, stubInspector{}, 48*time.Hour)

	for _, name := range JobNames() {
		info, err := c.Trigger(context.Background(), name)
		require.NoError(t, err, name)
		assert.Equal(t, name, info.Type)
	}
	require.Len(t, client.tasks, 4)

	var cleanup jobs.IdempotencyCleanupPayload
	for _, task := range client.tasks {
		if task.Type() == jobs.TaskIdempotencyCleanup {
			require.NoError(t, json.Unmarshal(task.Payload(), &cleanup))
		}
	}
	assert.Equal(t, 48*time.Hour, cleanup.Retention)

	_, err := c.Trigger(context.Background(), "gl:integrity")
	assert.ErrorContains(t, err, "unsupported job")
}

func TestRunCommands(t *testing.T) {
	c := newJobsCLI(&stubClient{}, stubInspector{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 3, Retry: 1}}, time.Hour)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	code := c.Run(context.Background(), []string{"stats"}, Options{JSONOutput: true, Stdout: stdout, Stderr: stderr})
	require.Equal(t, 0, code, stderr.String())
	var stats QueueStats
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &stats))
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 1, stats.Retry)

	stdout.Reset()
	code = c.Run(context.Background(), []string{"trigger", jobs.TaskLowStockScan}, Options{Stdout: stdout, Stderr: stderr})
	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "enqueued inventory:low_stock_scan")

	assert.Equal(t, 2, c.Run(context.Background(), []string{"trigger"}, Options{Stdout: stdout, Stderr: stderr}))
	assert.Equal(t, 2, c.Run(context.Background(), nil, Options{Stdout: stdout, Stderr: stderr}))
	assert.Equal(t, 1, c.Run(context.Background(), []string{"trigger", "nope"}, Options{Stdout: stdout, Stderr: stderr}))
}

func TestStatsBeforeQueueExists(t *testing.T) {
	c := newJobsCLI(&stubClient{}, stubInspector{err: asynq.ErrQueueNotFound}, time.Hour)
	stats, err := c.InspectQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Pending)

	c = newJobsCLI(&stubClient{}, stubInspector{err: errors.New("redis down")}, time.Hour)
	_, err = c.InspectQueue(context.Background())
	assert.Error(t, err)
}
