// Package notify turns outstanding balances into nudge emails.
//
// Nudges are written to an outbox by the Dispatcher and sent later by a
// Deliverer, so a slow mail server never blocks a request.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

// DefaultMinGap is the shortest time between two nudges for the same split.
const DefaultMinGap = time.Hour

var (
	subjectTmpl = template.Must(template.New("subject").Parse(
		`You owe {{.Due}} for "{{.Title}}"`))

	bodyTmpl = template.Must(template.New("body").Parse(`Hi {{.Name}},

Your share of "{{.Title}}" is {{.Share}}. So far {{.Paid}} has been paid,
which leaves {{.Due}} outstanding.
{{- if .PaidTo}}

{{.PaidTo}} covered part of it for you.
{{- end}}

Thanks!
`))
)

type nudgeData struct {
	Name   string
	Title  string
	Share  string
	Paid   string
	Due    string
	PaidTo string
}

// Dispatcher renders nudges for unpaid participants into the outbox.
type Dispatcher struct {
	outbox   storage.NotificationStore
	policy   *bluemonday.Policy
	mu       sync.Mutex
	limiters *cache.Cache
	minGap   time.Duration
	now      func() time.Time
}

// NewDispatcher creates a dispatcher allowing at most one nudge per split
// every minGap.
func NewDispatcher(outbox storage.NotificationStore, minGap time.Duration) *Dispatcher {
	if minGap <= 0 {
		minGap = DefaultMinGap
	}
	return &Dispatcher{
		outbox: outbox,
		policy: bluemonday.StrictPolicy(),
		// A limiter that expired has also refilled, so eviction is safe.
		limiters: cache.New(2*minGap, 4*minGap),
		minGap:   minGap,
		now:      time.Now,
	}
}

// reserve takes the nudge token of splitID. The returned release gives the
// token back, for when nothing could be queued.
func (d *Dispatcher) reserve(splitID string) (release func(), ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var lim *rate.Limiter
	if existing, found := d.limiters.Get(splitID); found {
		lim = existing.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(rate.Every(d.minGap), 1)
	}
	// Refresh the expiration so an active split keeps its limiter.
	d.limiters.SetDefault(splitID, lim)

	// CancelAt only restores tokens when given the reservation time.
	at := d.now()
	r := lim.ReserveN(at, 1)
	if !r.OK() {
		return nil, false
	}
	if r.DelayFrom(at) > 0 {
		r.CancelAt(at)
		return nil, false
	}
	return func() { r.CancelAt(at) }, true
}

// NotifyDue queues a nudge for every participant with an email address and
// an outstanding balance. It returns the number queued; a throttled split
// queues nothing.
func (d *Dispatcher) NotifyDue(ctx context.Context, split *models.Split) (int, error) {
	release, ok := d.reserve(split.ID)
	if !ok {
		slog.Debug("Nudge throttled", "split_id", split.ID)
		return 0, nil
	}

	now := d.now().Unix()
	var queued []models.Notification
	for i := range split.Breakdown {
		entry := &split.Breakdown[i]
		due := entry.Due()
		if !due.IsPositive() || strings.TrimSpace(entry.Email) == "" {
			continue
		}
		n, err := d.render(split, entry, due)
		if err != nil {
			release()
			return 0, err
		}
		n.CreatedAt = now
		queued = append(queued, n)
	}

	if err := d.outbox.EnqueueNotifications(ctx, queued); err != nil {
		release()
		return 0, fmt.Errorf("failed to enqueue notifications: %w", err)
	}
	return len(queued), nil
}

func (d *Dispatcher) render(split *models.Split, entry *models.BreakdownEntry, due decimal.Decimal) (models.Notification, error) {
	name := strings.TrimSpace(d.policy.Sanitize(entry.Name))
	if name == "" {
		name = "there"
	}
	// The first payer may be the recipient paying towards their own share.
	paidTo := strings.TrimSpace(entry.PaidTo)
	if strings.EqualFold(paidTo, strings.TrimSpace(entry.Name)) || strings.EqualFold(paidTo, strings.TrimSpace(entry.Email)) {
		paidTo = ""
	}
	data := nudgeData{
		Name:   name,
		Title:  d.policy.Sanitize(split.Title),
		Share:  entry.Amount.StringFixed(2),
		Paid:   entry.AmountPaid.StringFixed(2),
		Due:    due.StringFixed(2),
		PaidTo: d.policy.Sanitize(paidTo),
	}

	var subject, body bytes.Buffer
	if err := subjectTmpl.Execute(&subject, data); err != nil {
		return models.Notification{}, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return models.Notification{}, fmt.Errorf("failed to render body: %w", err)
	}

	return models.Notification{
		SplitID:       split.ID,
		Recipient:     strings.TrimSpace(entry.Email),
		RecipientName: name,
		Subject:       subject.String(),
		Body:          body.String(),
		AmountDue:     due,
	}, nil
}
