package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

type memOutbox struct {
	items     []models.Notification
	delivered map[string]int64
}

func newMemOutbox() *memOutbox {
	return &memOutbox{delivered: map[string]int64{}}
}

func (o *memOutbox) EnqueueNotifications(_ context.Context, ns []models.Notification) error {
	for _, n := range ns {
		n.ID = n.Recipient + "/" + n.SplitID
		o.items = append(o.items, n)
	}
	return nil
}

func (o *memOutbox) PendingNotifications(_ context.Context, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range o.items {
		if _, ok := o.delivered[n.ID]; !ok && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (o *memOutbox) MarkDelivered(_ context.Context, id string, at int64) error {
	for _, n := range o.items {
		if n.ID == id {
			o.delivered[id] = at
			return nil
		}
	}
	return storage.ErrNotFound
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dueSplit() *models.Split {
	return &models.Split{
		ID:    "s1",
		Title: "Dinner",
		Breakdown: []models.BreakdownEntry{
			{ID: "e1", Name: "Alice", Email: "alice@example.com", Amount: dec("30"), AmountPaid: dec("30")},
			{ID: "e2", Name: "<b>Bob</b>", Email: "bob@example.com", Amount: dec("30"), AmountPaid: dec("10"), PaidTo: "Alice"},
			{ID: "e3", Name: "Carol", Amount: dec("30")},
			{ID: "e4", Name: "Dan", Email: "dan@example.com", Amount: dec("30"), AmountPaid: dec("45")},
		},
	}
}

func TestDispatcher_NotifyDue(t *testing.T) {
	outbox := newMemOutbox()
	d := NewDispatcher(outbox, time.Hour)
	d.now = func() time.Time { return time.Unix(1000, 0) }

	n, err := d.NotifyDue(context.Background(), dueSplit())
	require.NoError(t, err)

	// Alice is paid up, Carol has no email, Dan overpaid.
	assert.Equal(t, 1, n)
	require.Len(t, outbox.items, 1)
	got := outbox.items[0]
	assert.Equal(t, "bob@example.com", got.Recipient)
	assert.Equal(t, "Bob", got.RecipientName)
	assert.True(t, got.AmountDue.Equal(dec("20")))
	assert.Equal(t, `You owe 20.00 for "Dinner"`, got.Subject)
	assert.Contains(t, got.Body, "Hi Bob,")
	assert.Contains(t, got.Body, "leaves 20.00 outstanding")
	assert.Contains(t, got.Body, "Alice covered part of it")
	assert.NotContains(t, got.Body, "<b>")
	assert.Equal(t, int64(1000), got.CreatedAt)
}

func TestDispatcher_ThrottlesPerSplit(t *testing.T) {
	outbox := newMemOutbox()
	d := NewDispatcher(outbox, time.Hour)
	now := time.Unix(1000, 0)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	n, err := d.NotifyDue(ctx, dueSplit())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = d.NotifyDue(ctx, dueSplit())
	require.NoError(t, err)
	assert.Zero(t, n, "second nudge within the gap is throttled")

	other := dueSplit()
	other.ID = "s2"
	n, err = d.NotifyDue(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "throttling is per split")

	now = now.Add(time.Hour)
	n, err = d.NotifyDue(ctx, dueSplit())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// failingOutbox rejects enqueues until failures runs out.
type failingOutbox struct {
	*memOutbox
	failures int
}

func (o *failingOutbox) EnqueueNotifications(ctx context.Context, ns []models.Notification) error {
	if o.failures > 0 {
		o.failures--
		return errors.New("database is locked")
	}
	return o.memOutbox.EnqueueNotifications(ctx, ns)
}

func TestDispatcher_FailedEnqueueDoesNotThrottle(t *testing.T) {
	outbox := &failingOutbox{memOutbox: newMemOutbox(), failures: 1}
	d := NewDispatcher(outbox, time.Hour)
	now := time.Unix(1000, 0)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	n, err := d.NotifyDue(ctx, dueSplit())
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Empty(t, outbox.items)

	// The retry is not throttled by the failed attempt.
	now = now.Add(time.Second)
	n, err = d.NotifyDue(ctx, dueSplit())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, outbox.items, 1)

	// A successful nudge still throttles.
	n, err = d.NotifyDue(ctx, dueSplit())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDispatcher_OmitsSelfPayment(t *testing.T) {
	tests := []struct {
		name   string
		paidTo string
		want   bool
	}{
		{"other payer", "Alice", true},
		{"own name", "bob", false},
		{"own email", "BOB@example.com", false},
		{"no payer", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outbox := newMemOutbox()
			d := NewDispatcher(outbox, time.Hour)
			split := &models.Split{
				ID:    "s1",
				Title: "Dinner",
				Breakdown: []models.BreakdownEntry{
					{ID: "e1", Name: "Bob", Email: "bob@example.com", Amount: dec("30"), AmountPaid: dec("10"), PaidTo: tt.paidTo},
				},
			}

			n, err := d.NotifyDue(context.Background(), split)
			require.NoError(t, err)
			require.Equal(t, 1, n)
			body := outbox.items[0].Body
			if tt.want {
				assert.Contains(t, body, tt.paidTo+" covered part of it for you.")
			} else {
				assert.NotContains(t, body, "covered part of it")
			}
		})
	}
}

type flakyMailer struct {
	fail map[string]bool
	sent []Message
}

func (m *flakyMailer) Send(_ context.Context, msg Message) error {
	if m.fail[msg.To] {
		return errors.New("connection refused")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestDeliverer_Deliver(t *testing.T) {
	outbox := newMemOutbox()
	ctx := context.Background()
	require.NoError(t, outbox.EnqueueNotifications(ctx, []models.Notification{
		{SplitID: "s1", Recipient: "bob@example.com", Subject: "a", Body: "b"},
		{SplitID: "s1", Recipient: "down@example.com", Subject: "a", Body: "b"},
	}))

	mailer := &flakyMailer{fail: map[string]bool{"down@example.com": true}}
	d := NewDeliverer(outbox, mailer, nil, 10)

	n, err := d.Deliver(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "bob@example.com", mailer.sent[0].To)

	// The failed message stays pending and is retried.
	mailer.fail = nil
	n, err = d.Deliver(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := outbox.PendingNotifications(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSMTPMailer_RejectsHeaderInjection(t *testing.T) {
	m := &SMTPMailer{Addr: "localhost:0", From: "noreply@example.com"}
	err := m.Send(context.Background(), Message{To: "bob@example.com\r\nBcc: eve@example.com", Subject: "x"})
	assert.Error(t, err)
}
