package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Nudger nudges every open split with outstanding balances.
type Nudger interface {
	NudgeOpen(ctx context.Context) (int, error)
}

// NudgeJob periodically nudges unpaid participants of open splits.
type NudgeJob struct {
	nudger   Nudger
	interval time.Duration
}

func NewNudgeJob(nudger Nudger, interval time.Duration) *NudgeJob {
	return &NudgeJob{nudger: nudger, interval: interval}
}

func (j *NudgeJob) Name() string { return "nudge_unpaid" }

func (j *NudgeJob) Schedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

func (j *NudgeJob) Execute(ctx context.Context) {
	n, err := j.nudger.NudgeOpen(ctx)
	if err != nil {
		slog.Error("Nudge job failed", "error", err)
		return
	}
	slog.Info("Nudge job completed", "notified", n)
}

// Deliverer drains the notification outbox.
type Deliverer interface {
	Deliver(ctx context.Context) (int, error)
}

// DeliveryJob periodically sends queued notifications.
type DeliveryJob struct {
	deliverer Deliverer
	interval  time.Duration
}

func NewDeliveryJob(deliverer Deliverer, interval time.Duration) *DeliveryJob {
	return &DeliveryJob{deliverer: deliverer, interval: interval}
}

func (j *DeliveryJob) Name() string { return "deliver_notifications" }

func (j *DeliveryJob) Schedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

func (j *DeliveryJob) Execute(ctx context.Context) {
	n, err := j.deliverer.Deliver(ctx)
	if err != nil {
		slog.Error("Delivery job failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Delivered notifications", "count", n)
	}
}
