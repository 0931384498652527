package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

// AppendPayment inserts a payment and bumps the split version in one
// transaction. The ledger is append-only: payments are never updated or deleted.
func (s *SQLiteStore) AppendPayment(ctx context.Context, splitID string, version int64, payment *models.PaymentEvent) error {
	// Generate ID if not set
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE splits SET version = version + 1, updated_at = ? WHERE id = ? AND version = ?",
		payment.CreatedAt, splitID, version,
	)
	if err != nil {
		return fmt.Errorf("failed to bump split version: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n != 1 {
		tx.Rollback()
		return s.checkVersioned(ctx, result, splitID)
	}

	if err := insertPayment(ctx, tx, splitID, payment); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertPayment(ctx context.Context, tx *sql.Tx, splitID string, payment *models.PaymentEvent) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	allocations, err := storage.EncodeAllocations(payment.Allocations)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payments (id, split_id, amount, paid_by_id, paid_by_name, paid_by_email, allocations, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, splitID, payment.Amount.String(), payment.PaidBy.ID, payment.PaidBy.Name,
		payment.PaidBy.Email, allocations, nullable(payment.Note), payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// listPayments returns a split's ledger in insertion order.
func (s *SQLiteStore) listPayments(ctx context.Context, splitID string) ([]models.PaymentEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount, paid_by_id, paid_by_name, paid_by_email, allocations, note, created_at
		 FROM payments WHERE split_id = ? ORDER BY seq`,
		splitID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	defer rows.Close()

	payments := []models.PaymentEvent{}
	for rows.Next() {
		var (
			p           models.PaymentEvent
			amount      decimal.Decimal
			allocations string
			note        sql.NullString
		)
		if err := rows.Scan(&p.ID, &amount, &p.PaidBy.ID, &p.PaidBy.Name, &p.PaidBy.Email,
			&allocations, &note, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Amount = amount
		if p.Allocations, err = storage.DecodeAllocations(allocations); err != nil {
			return nil, err
		}
		if note.Valid {
			p.Note = note.String
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return payments, nil
}
