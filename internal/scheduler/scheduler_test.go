package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func noop(context.Context) error { return nil }

func TestNew_BadTimezone(t *testing.T) {
	_, err := New("Nowhere/Atlantis")
	assert.Error(t, err)
}

func TestAddJobs(t *testing.T) {
	s, err := New("Asia/Tokyo")
	require.NoError(t, err)

	require.NoError(t, s.AddWeeklyReportJob("0 9 * * 1", noop))
	require.NoError(t, s.AddProbeJob("@every 30m", noop))
	require.NoError(t, s.AddProbeJob("@every 5m", noop), "re-adding replaces the job")

	assert.Error(t, s.AddWeeklyReportJob("not a schedule", noop))

	s.Start()
	defer func() { <-s.Stop().Done() }()

	jobs := s.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, JobProbe, jobs[0].Name)
	assert.Equal(t, JobWeeklyReport, jobs[1].Name)

	next := jobs[1].NextRun.In(s.timezone)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 9, next.Hour())
}

func TestAddProbeJob_EmptyScheduleDisables(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)
	require.NoError(t, s.AddProbeJob("", noop))
	assert.Empty(t, s.ListJobs())
}

func TestRunNow(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)

	var runs atomic.Int32
	boom := errors.New("boom")
	require.NoError(t, s.AddJob("count", "@every 1h", func(ctx context.Context) error {
		runs.Add(1)
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("job context has no deadline")
		}
		return nil
	}))
	require.NoError(t, s.AddJob("fail", "@every 1h", func(context.Context) error { return boom }))

	require.NoError(t, s.RunNow(context.Background(), "count"))
	assert.Equal(t, int32(1), runs.Load())
	assert.ErrorIs(t, s.RunNow(context.Background(), "fail"), boom)
	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrUnknownJob)

	s.RemoveJob("count")
	assert.ErrorIs(t, s.RunNow(context.Background(), "count"), ErrUnknownJob)
}

func TestScheduledJobFires(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)

	fired := make(chan struct{}, 1)
	require.NoError(t, s.AddJob("tick", "@every 1s", func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}))
	s.Start()
	defer func() { <-s.Stop().Done() }()

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}
}
