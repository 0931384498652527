package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNudger struct {
	calls int
	err   error
}

func (f *fakeNudger) NudgeOpen(context.Context) (int, error) {
	f.calls++
	return 2, f.err
}

type fakeDeliverer struct {
	calls chan struct{}
}

func (f *fakeDeliverer) Deliver(context.Context) (int, error) {
	select {
	case f.calls <- struct{}{}:
	default:
	}
	return 1, nil
}

func TestManager_RegistersJobs(t *testing.T) {
	m, err := NewManager(
		NewNudgeJob(&fakeNudger{}, time.Hour),
		NewDeliveryJob(&fakeDeliverer{calls: make(chan struct{}, 1)}, time.Minute),
	)
	require.NoError(t, err)
	defer m.Stop()

	assert.ElementsMatch(t, []string{"nudge_unpaid", "deliver_notifications"}, m.JobNames())
}

func TestManager_RejectsInvalidInterval(t *testing.T) {
	_, err := NewManager(NewNudgeJob(&fakeNudger{}, 0))
	assert.Error(t, err)
}

func TestManager_RunsJobs(t *testing.T) {
	deliverer := &fakeDeliverer{calls: make(chan struct{}, 1)}
	m, err := NewManager(NewDeliveryJob(deliverer, 20*time.Millisecond))
	require.NoError(t, err)
	m.Start()
	defer m.Stop()

	select {
	case <-deliverer.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery job did not run")
	}
}

func TestNudgeJob_Execute(t *testing.T) {
	nudger := &fakeNudger{}
	job := NewNudgeJob(nudger, time.Hour)
	job.Execute(context.Background())
	assert.Equal(t, 1, nudger.calls)

	// Errors are logged, not propagated.
	nudger.err = errors.New("boom")
	job.Execute(context.Background())
	assert.Equal(t, 2, nudger.calls)
}
