package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kursio/kursio/internal/shared/logger"
)

type countingJob struct {
	calls atomic.Int32
	err   error
}

func (j *countingJob) Execute(context.Context) (int, error) {
	j.calls.Add(1)
	return 3, j.err
}

func TestSchedulerManager_RegisterReconcileSweep(t *testing.T) {
	m, err := NewSchedulerManager(nil, logger.NewNopLogger())
	require.NoError(t, err)

	require.NoError(t, m.RegisterReconcileSweep("0 3 * * *", time.Minute, &countingJob{}))
	require.Len(t, m.Jobs(), 1)
	assert.Equal(t, "subscription-reconcile-sweep", m.Jobs()[0].Name())
}

func TestSchedulerManager_RejectsBadCron(t *testing.T) {
	m, err := NewSchedulerManager(nil, logger.NewNopLogger())
	require.NoError(t, err)

	assert.Error(t, m.RegisterReconcileSweep("not a cron", time.Minute, &countingJob{}))
}

func TestSchedulerManager_StartStop(t *testing.T) {
	m, err := NewSchedulerManager(time.UTC, logger.NewNopLogger())
	require.NoError(t, err)

	assert.False(t, m.IsStarted())
	m.Start()
	m.Start()
	assert.True(t, m.IsStarted())
	require.NoError(t, m.Stop())
	assert.False(t, m.IsStarted())
	require.NoError(t, m.Stop())
}

func TestSchedulerManager_RunSweepSurvivesFailure(t *testing.T) {
	m, err := NewSchedulerManager(nil, logger.NewNopLogger())
	require.NoError(t, err)

	job := &countingJob{err: errors.New("stripe unavailable")}
	m.runSweep(context.Background(), job)
	assert.Equal(t, int32(1), job.calls.Load())
}
