package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

// EnqueueNotifications writes notifications to the outbox in one transaction.
func (s *SQLiteStore) EnqueueNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range notifications {
		n := &notifications[i]
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO notifications (id, split_id, recipient, recipient_name, subject, body, amount_due, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, n.SplitID, n.Recipient, n.RecipientName, n.Subject, n.Body, n.AmountDue.String(), n.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PendingNotifications returns undelivered notifications, oldest first.
func (s *SQLiteStore) PendingNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, split_id, recipient, recipient_name, subject, body, amount_due, created_at
		 FROM notifications WHERE delivered_at IS NULL ORDER BY created_at, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var (
			n   models.Notification
			due decimal.Decimal
		)
		if err := rows.Scan(&n.ID, &n.SplitID, &n.Recipient, &n.RecipientName, &n.Subject, &n.Body,
			&due, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.AmountDue = due
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, nil
}

// MarkDelivered records when a notification was handed to the mailer.
func (s *SQLiteStore) MarkDelivered(ctx context.Context, notificationID string, deliveredAt int64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET delivered_at = ? WHERE id = ?",
		deliveredAt, notificationID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("notification %s: %w", notificationID, storage.ErrNotFound)
	}
	return nil
}
