package reconcile

import (
	"context"
	"sync"

	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

// memStore is an in-memory SplitStore with real version checks.
type memStore struct {
	mu     sync.Mutex
	splits map[string]*models.Split

	// conflicts makes the next n conditional writes fail.
	conflicts int
	updates   int

	// stuck splits fail every breakdown update with a conflict.
	stuck map[string]bool
}

func newMemStore() *memStore {
	return &memStore{splits: make(map[string]*models.Split), stuck: make(map[string]bool)}
}

func (m *memStore) CreateSplit(_ context.Context, split *models.Split) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	split.Version = 1
	m.splits[split.ID] = split.Clone()
	return nil
}

func (m *memStore) GetSplit(_ context.Context, id string) (*models.Split, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.splits[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *memStore) ListSplitsByGroup(_ context.Context, groupID string) ([]*models.Split, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Split
	for _, s := range m.splits {
		if s.GroupID == groupID {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *memStore) ListOpenSplits(_ context.Context) ([]*models.Split, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Split
	for _, s := range m.splits {
		if !s.Status.Frozen() {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *memStore) UpdateBreakdown(_ context.Context, split *models.Split) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.splits[split.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if m.stuck[split.ID] {
		return storage.ErrVersionConflict
	}
	if m.conflicts > 0 {
		m.conflicts--
		return storage.ErrVersionConflict
	}
	if stored.Version != split.Version {
		return storage.ErrVersionConflict
	}
	next := split.Clone()
	next.Payments = stored.Payments
	next.Version = stored.Version + 1
	m.splits[split.ID] = next
	split.Version = next.Version
	m.updates++
	return nil
}

func (m *memStore) AppendPayment(_ context.Context, splitID string, version int64, p *models.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.splits[splitID]
	if !ok {
		return storage.ErrNotFound
	}
	if m.conflicts > 0 {
		m.conflicts--
		return storage.ErrVersionConflict
	}
	if stored.Version != version {
		return storage.ErrVersionConflict
	}
	stored.Payments = append(stored.Payments, p.Clone())
	stored.Version++
	return nil
}

type staticRoster map[string][]models.Member

func (r staticRoster) Roster(_ context.Context, groupID string) ([]models.Member, error) {
	return r[groupID], nil
}

type relayEvent struct {
	SplitID string
	Version int64
	Reason  string
}

type recordingRelay struct {
	mu     sync.Mutex
	events []relayEvent
}

func (r *recordingRelay) SplitChanged(splitID string, version int64, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, relayEvent{splitID, version, reason})
}

func (r *recordingRelay) reasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Reason
	}
	return out
}

type countingDispatcher struct {
	splits []*models.Split
}

func (d *countingDispatcher) NotifyDue(_ context.Context, split *models.Split) (int, error) {
	d.splits = append(d.splits, split)
	n := 0
	for _, e := range split.Breakdown {
		if e.PaymentStatus != models.PaymentStatusPaid {
			n++
		}
	}
	return n, nil
}
