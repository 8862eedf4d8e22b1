package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/iwanyu/marketplace-backend/pkg/logger"
	"github.com/iwanyu/marketplace-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	acquires int
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	f.held = false
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs++
	return c.err
}

func TestRunOnceRunsEveryJobAndCombinesErrors(t *testing.T) {
	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("boom")}
	worse := &countingJob{name: "worse", err: errors.New("bang")}
	registry, err := NewRegistry(bad, ok, worse)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)

	err = svc.RunOnce(context.Background())
	require.Len(t, multierr.Errors(err), 2)
	require.ErrorContains(t, err, "bad: boom")
	require.ErrorContains(t, err, "worse: bang")
	require.Equal(t, 1, ok.runs)
	require.Equal(t, 1, bad.runs)
	require.Equal(t, 1, worse.runs)
	require.Equal(t, 1, lock.releases)
	require.False(t, lock.held)

	count, err := testutil.GatherAndCount(reg, "iwanyu_cron_job_runs_total")
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "job"}
	registry, err := NewRegistry(job)
	require.NoError(t, err)
	lock := &fakeLock{held: true}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry, Lock: lock})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(context.Background()))
	require.Zero(t, job.runs)
	require.Zero(t, lock.releases)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &countingJob{name: "job"}
	registry, err := NewRegistry(job)
	require.NoError(t, err)
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry, Lock: lock})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, svc.Run(ctx), context.Canceled)
	require.Zero(t, job.runs)
	require.Equal(t, 1, lock.releases)
}

type panickingJob struct{}

func (panickingJob) Name() string              { return "explodes" }
func (panickingJob) Run(context.Context) error { panic("nil map") }

type deadlineJob struct{ deadline bool }

func (d *deadlineJob) Name() string { return "deadline" }

func (d *deadlineJob) Run(ctx context.Context) error {
	_, d.deadline = ctx.Deadline()
	return nil
}

func TestRunOnceSurvivesPanicAndBoundsJobs(t *testing.T) {
	after := &deadlineJob{}
	registry, err := NewRegistry(panickingJob{}, after)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry, Lock: &fakeLock{}, JobTimeout: time.Second})
	require.NoError(t, err)

	err = svc.RunOnce(context.Background())
	require.ErrorContains(t, err, "explodes: panic: nil map")
	require.True(t, after.deadline)
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.Nop()})
	require.Error(t, err)
}
