package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/splitsettle/internal/metrics"
	"github.com/mmynk/splitsettle/internal/storage"
)

// Deliverer drains the outbox through a Mailer.
type Deliverer struct {
	outbox  storage.NotificationStore
	mailer  Mailer
	metrics *metrics.Metrics
	batch   int
	now     func() time.Time
}

// NewDeliverer creates a deliverer sending up to batch messages per run.
func NewDeliverer(outbox storage.NotificationStore, mailer Mailer, m *metrics.Metrics, batch int) *Deliverer {
	if batch <= 0 {
		batch = 50
	}
	return &Deliverer{outbox: outbox, mailer: mailer, metrics: m, batch: batch, now: time.Now}
}

// Deliver sends pending notifications and marks each one delivered. A failed
// send leaves the notification pending for the next run.
func (d *Deliverer) Deliver(ctx context.Context) (int, error) {
	pending, err := d.outbox.PendingNotifications(ctx, d.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to load outbox: %w", err)
	}

	delivered := 0
	for _, n := range pending {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		msg := Message{To: n.Recipient, Subject: n.Subject, Body: n.Body}
		if err := d.mailer.Send(ctx, msg); err != nil {
			slog.Warn("Failed to deliver notification", "notification_id", n.ID, "split_id", n.SplitID, "error", err)
			d.metrics.NotificationDelivered(false)
			continue
		}
		if err := d.outbox.MarkDelivered(ctx, n.ID, d.now().Unix()); err != nil {
			return delivered, fmt.Errorf("failed to mark notification %s delivered: %w", n.ID, err)
		}
		d.metrics.NotificationDelivered(true)
		delivered++
	}
	return delivered, nil
}
