// Package task runs the background jobs of the server.
package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-co-op/gocron/v2"
)

// Job is a periodic background job.
type Job interface {
	Name() string
	Schedule() gocron.JobDefinition
	Execute(ctx context.Context)
}

// Manager owns the scheduler and the jobs registered on it.
type Manager struct {
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewManager creates a manager with the given jobs registered. Jobs run in
// singleton mode: a run that is still going when the next one is due causes
// the next run to be rescheduled.
func NewManager(jobs ...Job) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{scheduler: s, ctx: ctx, cancel: cancel}

	for _, job := range jobs {
		if err := m.register(job); err != nil {
			cancel()
			if serr := s.Shutdown(); serr != nil {
				slog.Error("Failed to shutdown scheduler", "error", serr)
			}
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) register(job Job) error {
	_, err := m.scheduler.NewJob(
		job.Schedule(),
		gocron.NewTask(func() { job.Execute(m.ctx) }),
		gocron.WithName(job.Name()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", job.Name(), err)
	}
	return nil
}

// JobNames returns the names of the registered jobs.
func (m *Manager) JobNames() []string {
	var names []string
	for _, j := range m.scheduler.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

// Start starts the scheduler.
func (m *Manager) Start() {
	m.scheduler.Start()
	slog.Info("Task manager started", "jobs", m.JobNames())
}

// Stop cancels running jobs and shuts the scheduler down.
func (m *Manager) Stop() {
	m.cancel()
	if err := m.scheduler.Shutdown(); err != nil {
		slog.Error("Failed to shutdown scheduler", "error", err)
	}
	slog.Info("Task manager stopped")
}
