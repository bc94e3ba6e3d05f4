package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeJobs struct {
	mu      sync.Mutex
	sweeps  int
	windows []time.Duration
	err     error
}

func (f *fakeJobs) Sweep(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return 1, f.err
}

func (f *fakeJobs) Remind(_ context.Context, window time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, window)
	return 0, f.err
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeJobs{}, Schedule{Sweep: "not a schedule", Reminder: "@hourly"}, zap.NewNop())
	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadline sweep")
}

func TestRunJobsPassWindow(t *testing.T) {
	jobs := &fakeJobs{}
	s := NewScheduler(context.Background(), jobs, Schedule{Sweep: "@every 1m", Reminder: "@hourly", ReminderWindow: 24 * time.Hour}, zap.NewNop())

	s.RunSweep()
	s.RunReminder()

	assert.Equal(t, 1, jobs.sweeps)
	assert.Equal(t, []time.Duration{24 * time.Hour}, jobs.windows)
}

func TestRunSweepLogsFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	jobs := &fakeJobs{err: errors.New("db down")}
	s := NewScheduler(context.Background(), jobs, Schedule{Sweep: "@every 1m", Reminder: "@hourly"}, zap.New(core))

	s.RunSweep()

	entries := logs.FilterMessage("deadline sweep failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "db down", entries[0].ContextMap()["error"])
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeJobs{}, Schedule{Sweep: "@every 1m", Reminder: "@hourly"}, zap.NewNop())
	require.NoError(t, s.Start())

	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
