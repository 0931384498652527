package reconcile

import (
	"context"

	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

// Store is the persistence the service needs.
type Store = storage.SplitStore

// MembershipSource returns the current roster of a group.
type MembershipSource interface {
	Roster(ctx context.Context, groupID string) ([]models.Member, error)
}

// NotificationDispatcher receives a reconciled split and nudges everyone who
// still owes money. It returns the number of notifications queued.
type NotificationDispatcher interface {
	NotifyDue(ctx context.Context, split *models.Split) (int, error)
}

// RealtimeRelay is told when a split changed so subscribers can refetch.
// Delivery is best effort.
type RealtimeRelay interface {
	SplitChanged(splitID string, version int64, reason string)
}

type noopRelay struct{}

func (noopRelay) SplitChanged(string, int64, string) {}

type noopDispatcher struct{}

func (noopDispatcher) NotifyDue(context.Context, *models.Split) (int, error) { return 0, nil }
