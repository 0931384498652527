package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitsettle/internal/calculator"
	"github.com/mmynk/splitsettle/internal/metrics"
	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

// Reasons passed to the realtime relay and metrics.
const (
	ReasonCreated    = "created"
	ReasonPayment    = "payment"
	ReasonMembership = "membership"
	ReasonPaidFor    = "paid_for"
	ReasonTotal      = "total"
	ReasonFinalized  = "finalized"
	ReasonCancelled  = "cancelled"
	ReasonRead       = "read"
)

// Config tunes the service.
type Config struct {
	// MaxRetries bounds the attempts of a conditional update.
	MaxRetries int

	// Policy decides how equal splits treat leftover cents.
	Policy calculator.RemainderPolicy

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Service is the storage-backed reconciliation engine.
type Service struct {
	store    Store
	roster   MembershipSource
	notifier NotificationDispatcher
	relay    RealtimeRelay
	metrics  *metrics.Metrics
	cfg      Config
	factory  *calculator.Factory
}

// NewService wires the engine to its collaborators. notifier, relay and m may
// be nil.
func NewService(store Store, roster MembershipSource, notifier NotificationDispatcher, relay RealtimeRelay, m *metrics.Metrics, cfg Config) *Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Policy == "" {
		cfg.Policy = calculator.RemainderRoundEach
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if notifier == nil {
		notifier = noopDispatcher{}
	}
	if relay == nil {
		relay = noopRelay{}
	}
	return &Service{
		store:    store,
		roster:   roster,
		notifier: notifier,
		relay:    relay,
		metrics:  m,
		cfg:      cfg,
		factory:  calculator.NewFactory(cfg.Policy),
	}
}

// CreateInput describes a new split.
type CreateInput struct {
	GroupID   string
	Title     string
	Total     decimal.Decimal
	Subtotal  decimal.Decimal
	SplitType models.SplitType
	Entries   []models.BreakdownEntry
	Items     []models.Item
	CreatedBy string
}

// Create computes shares for a new split and stores it. A group split with
// no explicit entries starts from the group's roster.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Result, error) {
	if in.SplitType == "" {
		in.SplitType = models.SplitTypeEqual
	}
	if !in.SplitType.Valid() {
		return nil, fmt.Errorf("%w: unknown split type %q", calculator.ErrInvalidInput, in.SplitType)
	}
	if in.Total.IsNegative() {
		return nil, fmt.Errorf("%w: total amount cannot be negative", calculator.ErrInvalidInput)
	}

	now := s.cfg.Now().Unix()
	split := &models.Split{
		ID:          uuid.New().String(),
		GroupID:     in.GroupID,
		Title:       strings.TrimSpace(in.Title),
		TotalAmount: calculator.Round2(in.Total),
		Subtotal:    calculator.Round2(in.Subtotal),
		SplitType:   in.SplitType,
		Status:      models.SplitStatusPending,
		Items:       in.Items,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, e := range in.Entries {
		e = e.Clone()
		if !e.HasIdentity() {
			return nil, fmt.Errorf("%w: participant needs an id, name or email", calculator.ErrInvalidInput)
		}
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		e.AmountPaid = decimal.Zero
		e.PaymentStatus = models.PaymentStatusUnpaid
		split.Breakdown = append(split.Breakdown, e)
	}
	if err := checkDistinct(split.Breakdown); err != nil {
		return nil, err
	}

	if len(split.Breakdown) == 0 && split.GroupID != "" {
		members, err := s.rosterOf(ctx, split.GroupID)
		if err != nil {
			return nil, err
		}
		mergeRoster(split, members)
	}

	if len(split.Breakdown) > 0 {
		if err := Recalculate(split, s.factory); err != nil {
			return nil, err
		}
		split.Status = models.SplitStatusCalculated
	}
	if split.Title == "" {
		split.Title = defaultTitle(split.Breakdown)
	}

	res, err := s.reconcile(split, nil, ReasonCreated)
	if err != nil {
		return nil, err
	}
	res.Split.Version = 0
	if err := s.store.CreateSplit(ctx, res.Split); err != nil {
		return nil, fmt.Errorf("failed to create split: %w", err)
	}
	slog.Info("Split created", "split_id", res.Split.ID, "group_id", res.Split.GroupID,
		"participants", len(res.Split.Breakdown), "total", res.Split.TotalAmount.StringFixed(2))
	s.relay.SplitChanged(res.Split.ID, res.Split.Version, ReasonCreated)
	return res, nil
}

// Get returns the reconciled view of a split. Nothing is written.
func (s *Service) Get(ctx context.Context, splitID string) (*Result, error) {
	split, err := s.store.GetSplit(ctx, splitID)
	if err != nil {
		return nil, err
	}
	return s.reconcile(split, nil, ReasonRead)
}

// ListByGroup returns the reconciled views of a group's splits.
func (s *Service) ListByGroup(ctx context.Context, groupID string) ([]*Result, error) {
	splits, err := s.store.ListSplitsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	results := make([]*Result, 0, len(splits))
	for _, split := range splits {
		res, err := s.reconcile(split, nil, ReasonRead)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// SyncMembership adds the group's late joiners to a split and recomputes
// shares. Splits without a group, and frozen splits, are returned unchanged.
func (s *Service) SyncMembership(ctx context.Context, splitID string) (*Result, error) {
	return s.update(ctx, splitID, ReasonMembership, func(ctx context.Context, split *models.Split) ([]models.Member, error) {
		if split.GroupID == "" || split.Status.Frozen() {
			return nil, errUnchanged
		}
		members, err := s.rosterOf(ctx, split.GroupID)
		if err != nil {
			return nil, err
		}
		return members, nil
	})
}

// SyncGroup reconciles every open split of a group against its roster. A
// split that fails does not stop the others; the failures are joined into
// the returned error alongside the splits that did reconcile.
func (s *Service) SyncGroup(ctx context.Context, groupID string) ([]*Result, error) {
	splits, err := s.store.ListSplitsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	var (
		results []*Result
		errs    []error
	)
	for _, split := range splits {
		if split.Status.Frozen() {
			continue
		}
		res, err := s.SyncMembership(ctx, split.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("split %s: %w", split.ID, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// RecordPayment validates a payment and appends it to the ledger.
func (s *Service) RecordPayment(ctx context.Context, splitID string, payment models.PaymentEvent) (*Result, error) {
	if err := calculator.ValidatePayment(payment); err != nil {
		return nil, err
	}
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = s.cfg.Now().Unix()
	}
	payment.Amount = calculator.Round2(payment.Amount)

	var res *Result
	err := s.retry(ctx, splitID, func() error {
		split, err := s.store.GetSplit(ctx, splitID)
		if err != nil {
			return err
		}
		if split.Status.Frozen() {
			return fmt.Errorf("%w: cannot record payment on %s split", ErrSplitClosed, split.Status)
		}
		if err := s.store.AppendPayment(ctx, splitID, split.Version, &payment); err != nil {
			return err
		}
		split.Version++
		split.Payments = append(split.Payments, payment)

		res, err = s.reconcile(split, nil, ReasonPayment)
		if err != nil {
			return err
		}
		// The payment is committed. Refreshing the cached paid amounts is best
		// effort: a conflict means a newer view was already written.
		if err := s.store.UpdateBreakdown(ctx, res.Split); err != nil && !errors.Is(err, storage.ErrVersionConflict) {
			slog.Warn("Failed to refresh breakdown after payment", "split_id", splitID, "error", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Payment recorded", "split_id", splitID, "payment_id", payment.ID,
		"amount", payment.Amount.StringFixed(2), "allocations", len(payment.Allocations))
	s.relay.SplitChanged(splitID, res.Split.Version, ReasonPayment)
	return res, nil
}

// SetPaidFor points an entry's surplus at another entry. An empty target
// clears the link.
func (s *Service) SetPaidFor(ctx context.Context, splitID, entryID, targetID string) (*Result, error) {
	return s.mutate(ctx, splitID, ReasonPaidFor, func(split *models.Split) error {
		i, ok := split.EntryByID(entryID)
		if !ok {
			return fmt.Errorf("%w: entry %s", storage.ErrNotFound, entryID)
		}
		if targetID != "" {
			j, ok := split.EntryByID(targetID)
			if !ok {
				return fmt.Errorf("%w: paid-for target %s is not in this split", calculator.ErrInvalidInput, targetID)
			}
			if i == j {
				return fmt.Errorf("%w: an entry cannot pay for itself", calculator.ErrInvalidInput)
			}
		}
		split.Breakdown[i].PaidForID = targetID
		return nil
	})
}

// UpdateTotal changes the bill total and recomputes shares.
func (s *Service) UpdateTotal(ctx context.Context, splitID string, total, subtotal decimal.Decimal) (*Result, error) {
	if total.IsNegative() || subtotal.IsNegative() {
		return nil, fmt.Errorf("%w: amounts cannot be negative", calculator.ErrInvalidInput)
	}
	return s.mutate(ctx, splitID, ReasonTotal, func(split *models.Split) error {
		split.TotalAmount = calculator.Round2(total)
		if !subtotal.IsZero() {
			split.Subtotal = calculator.Round2(subtotal)
		}
		if len(split.Breakdown) == 0 {
			return nil
		}
		if err := Recalculate(split, s.factory); err != nil {
			return err
		}
		split.Status = models.SplitStatusCalculated
		return nil
	})
}

// Finalize freezes a calculated split.
func (s *Service) Finalize(ctx context.Context, splitID string) (*Result, error) {
	return s.transition(ctx, splitID, models.SplitStatusFinalized, ReasonFinalized)
}

// Cancel abandons a pending or calculated split.
func (s *Service) Cancel(ctx context.Context, splitID string) (*Result, error) {
	return s.transition(ctx, splitID, models.SplitStatusCancelled, ReasonCancelled)
}

func (s *Service) transition(ctx context.Context, splitID string, next models.SplitStatus, reason string) (*Result, error) {
	return s.mutateAny(ctx, splitID, reason, func(split *models.Split) error {
		if !split.Status.CanTransition(next) {
			return fmt.Errorf("%w: cannot move from %s to %s", ErrSplitClosed, split.Status, next)
		}
		split.Status = next
		return nil
	})
}

// Nudge hands the reconciled split to the notification dispatcher and returns
// how many people were nudged.
func (s *Service) Nudge(ctx context.Context, splitID string) (int, error) {
	res, err := s.Get(ctx, splitID)
	if err != nil {
		return 0, err
	}
	if res.Split.Status.Frozen() {
		return 0, fmt.Errorf("%w: cannot nudge a %s split", ErrSplitClosed, res.Split.Status)
	}
	n, err := s.notifier.NotifyDue(ctx, res.Split)
	if err != nil {
		return n, fmt.Errorf("failed to notify: %w", err)
	}
	s.metrics.NotificationsQueued(n)
	slog.Info("Nudged unpaid participants", "split_id", splitID, "notified", n)
	return n, nil
}

// NudgeOpen nudges every open split with an outstanding balance. It is run by
// the scheduler; failures are logged per split.
func (s *Service) NudgeOpen(ctx context.Context) (int, error) {
	splits, err := s.store.ListOpenSplits(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, split := range splits {
		if split.Status != models.SplitStatusCalculated {
			continue
		}
		n, err := s.Nudge(ctx, split.ID)
		if err != nil {
			slog.Warn("Scheduled nudge failed", "split_id", split.ID, "error", err)
			continue
		}
		total += n
	}
	return total, nil
}

// errUnchanged tells update that nothing needs writing.
var errUnchanged = errors.New("unchanged")

// mutate applies fn to an open split and writes the reconciled result back
// with a conditional update.
func (s *Service) mutate(ctx context.Context, splitID, reason string, fn func(*models.Split) error) (*Result, error) {
	return s.mutateAny(ctx, splitID, reason, func(split *models.Split) error {
		if split.Status.Frozen() {
			return fmt.Errorf("%w: split is %s", ErrSplitClosed, split.Status)
		}
		return fn(split)
	})
}

func (s *Service) mutateAny(ctx context.Context, splitID, reason string, fn func(*models.Split) error) (*Result, error) {
	var res *Result
	err := s.retry(ctx, splitID, func() error {
		split, err := s.store.GetSplit(ctx, splitID)
		if err != nil {
			return err
		}
		if err := fn(split); err != nil {
			return err
		}
		split.UpdatedAt = s.cfg.Now().Unix()
		res, err = s.reconcile(split, nil, reason)
		if err != nil {
			return err
		}
		return s.store.UpdateBreakdown(ctx, res.Split)
	})
	if err != nil {
		return nil, err
	}
	s.relay.SplitChanged(splitID, res.Split.Version, reason)
	return res, nil
}

// update reads a split, asks fn for a roster and writes back the result if
// reconciliation recomputed anything.
func (s *Service) update(ctx context.Context, splitID, reason string, fn func(context.Context, *models.Split) ([]models.Member, error)) (*Result, error) {
	var res *Result
	written := false
	err := s.retry(ctx, splitID, func() error {
		split, err := s.store.GetSplit(ctx, splitID)
		if err != nil {
			return err
		}
		members, err := fn(ctx, split)
		if errors.Is(err, errUnchanged) {
			res, err = s.reconcile(split, nil, ReasonRead)
			return err
		}
		if err != nil {
			return err
		}
		res, err = s.reconcile(split, members, reason)
		if err != nil {
			return err
		}
		if !res.Recomputed {
			return nil
		}
		res.Split.UpdatedAt = s.cfg.Now().Unix()
		if err := s.store.UpdateBreakdown(ctx, res.Split); err != nil {
			return err
		}
		written = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if written {
		slog.Info("Membership reconciled", "split_id", splitID, "joined", len(res.Joined),
			"participants", len(res.Split.Breakdown))
		s.relay.SplitChanged(splitID, res.Split.Version, reason)
	}
	return res, nil
}

// retry runs op until it succeeds, fails with something other than a
// version conflict, or the retry budget is spent.
func (s *Service) retry(ctx context.Context, splitID string, op func() error) error {
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return err
		}
		s.metrics.VersionConflict()
		if attempt >= s.cfg.MaxRetries {
			s.metrics.RetriesExhausted()
			slog.Error("Giving up on split update", "split_id", splitID, "attempts", attempt)
			return fmt.Errorf("%w: split %s after %d attempts", ErrConcurrentModification, splitID, attempt)
		}
		slog.Debug("Version conflict, retrying", "split_id", splitID, "attempt", attempt)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// reconcile runs Reconcile and reports warnings.
func (s *Service) reconcile(split *models.Split, roster []models.Member, reason string) (*Result, error) {
	res, err := Reconcile(split, roster, Options{Policy: s.cfg.Policy})
	if err != nil {
		return nil, err
	}
	s.metrics.Reconciled(reason, res.Passes)
	if n := len(res.Unresolved); n > 0 {
		s.metrics.UnresolvedAllocations(n)
		for _, u := range res.Unresolved {
			slog.Warn("Unresolved allocation", "split_id", split.ID, "allocation", u.String())
		}
	}
	if res.Violation != nil {
		s.metrics.InvariantViolation()
		slog.Error("Reconciliation invariant violated", "split_id", split.ID, "error", res.Violation)
	}
	return res, nil
}

func (s *Service) rosterOf(ctx context.Context, groupID string) ([]models.Member, error) {
	if s.roster == nil {
		return nil, nil
	}
	members, err := s.roster.Roster(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster for group %s: %w", groupID, err)
	}
	return members, nil
}

// checkDistinct rejects two entries with the same identity.
func checkDistinct(breakdown []models.BreakdownEntry) error {
	seen := make(map[calculator.EntryKey]bool, len(breakdown))
	for i := range breakdown {
		key := calculator.KeyOf(&breakdown[i])
		if seen[key] {
			return fmt.Errorf("%w: duplicate participant %s", calculator.ErrInvalidInput, key)
		}
		seen[key] = true
	}
	return nil
}

func defaultTitle(breakdown []models.BreakdownEntry) string {
	names := make([]string, 0, len(breakdown))
	for i := range breakdown {
		names = append(names, calculator.EntryLabel(&breakdown[i]))
	}
	switch len(names) {
	case 0:
		return "Split"
	case 1, 2, 3:
		return "Split with " + strings.Join(names, ", ")
	}
	return fmt.Sprintf("Split with %s and %d others", strings.Join(names[:2], ", "), len(names)-2)
}
