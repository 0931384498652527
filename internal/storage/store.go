// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitsettle/internal/models"
)

var (
	// ErrNotFound is returned when a split, group or notification does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned by conditional writes when the stored
	// version no longer matches the version the caller read.
	ErrVersionConflict = errors.New("version conflict")
)

// SplitStore persists splits and their payment ledgers.
type SplitStore interface {
	// CreateSplit persists a new split with version 1.
	// The split.ID field will be populated by the store if empty.
	CreateSplit(ctx context.Context, split *models.Split) error

	// GetSplit retrieves a split with its full payment ledger in insertion order.
	// Returns ErrNotFound if the split does not exist.
	GetSplit(ctx context.Context, splitID string) (*models.Split, error)

	// ListSplitsByGroup returns every split attached to a group, oldest first.
	ListSplitsByGroup(ctx context.Context, groupID string) ([]*models.Split, error)

	// ListOpenSplits returns splits that are neither finalized nor cancelled.
	ListOpenSplits(ctx context.Context) ([]*models.Split, error)

	// UpdateBreakdown atomically replaces the breakdown, status, title and
	// amounts of a split, provided the stored version still equals
	// split.Version. On success split.Version is advanced.
	// Returns ErrVersionConflict if the split changed since it was read.
	UpdateBreakdown(ctx context.Context, split *models.Split) error

	// AppendPayment inserts a payment into the ledger and advances the split's
	// version in one transaction, provided the stored version equals version.
	AppendPayment(ctx context.Context, splitID string, version int64, payment *models.PaymentEvent) error
}

// GroupStore persists group rosters.
type GroupStore interface {
	// CreateGroup persists a new group and any initial members.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members ordered by join time.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// AddMember appends a member to a group's roster.
	AddMember(ctx context.Context, groupID string, member *models.Member) error

	// ListMembers returns a group's roster ordered by join time.
	ListMembers(ctx context.Context, groupID string) ([]models.Member, error)
}

// NotificationStore is the outbox of nudge emails.
type NotificationStore interface {
	// EnqueueNotifications writes notifications to the outbox.
	EnqueueNotifications(ctx context.Context, notifications []models.Notification) error

	// PendingNotifications returns up to limit undelivered notifications, oldest first.
	PendingNotifications(ctx context.Context, limit int) ([]models.Notification, error)

	// MarkDelivered records the delivery time of a notification.
	MarkDelivered(ctx context.Context, notificationID string, deliveredAt int64) error
}

// Store bundles every storage concern behind one backend.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	SplitStore
	GroupStore
	NotificationStore

	// Close releases any resources held by the store.
	Close() error
}
