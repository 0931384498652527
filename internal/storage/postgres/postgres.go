// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Store interface.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

var _ storage.Store = (*PostgresStore)(nil)

// PostgresStore implements storage.Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// New connects to databaseURL and runs migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

const splitColumns = `id, group_id, title, total_amount, subtotal, split_type, status,
	breakdown, items, version, created_by, created_at, updated_at`

// CreateSplit persists a new split and any initial payments.
func (s *PostgresStore) CreateSplit(ctx context.Context, split *models.Split) error {
	if split.ID == "" {
		split.ID = uuid.New().String()
	}
	if split.CreatedAt == 0 {
		split.CreatedAt = time.Now().Unix()
	}
	if split.UpdatedAt == 0 {
		split.UpdatedAt = split.CreatedAt
	}

	breakdown, err := storage.EncodeBreakdown(split.Breakdown)
	if err != nil {
		return err
	}
	items, err := storage.EncodeItems(split.Items)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO splits (`+splitColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11, $12)`,
		split.ID, nullable(split.GroupID), split.Title, split.TotalAmount.String(), split.Subtotal.String(),
		string(split.SplitType), string(split.Status), breakdown, items, split.CreatedBy,
		split.CreatedAt, split.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert split: %w", err)
	}

	for i := range split.Payments {
		if err := insertPayment(ctx, tx, split.ID, &split.Payments[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	split.Version = 1
	return nil
}

// GetSplit retrieves a split with its ledger.
func (s *PostgresStore) GetSplit(ctx context.Context, splitID string) (*models.Split, error) {
	split, err := scanSplit(s.db.QueryRowContext(ctx,
		`SELECT `+splitColumns+` FROM splits WHERE id = $1`, splitID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("split %s: %w", splitID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get split: %w", err)
	}

	if split.Payments, err = s.listPayments(ctx, splitID); err != nil {
		return nil, err
	}
	return split, nil
}

// ListSplitsByGroup returns every split of a group, oldest first.
func (s *PostgresStore) ListSplitsByGroup(ctx context.Context, groupID string) ([]*models.Split, error) {
	return s.listSplits(ctx,
		`SELECT `+splitColumns+` FROM splits WHERE group_id = $1 ORDER BY created_at, id`, groupID)
}

// ListOpenSplits returns splits that are neither finalized nor cancelled.
func (s *PostgresStore) ListOpenSplits(ctx context.Context) ([]*models.Split, error) {
	return s.listSplits(ctx,
		`SELECT `+splitColumns+` FROM splits WHERE status IN ($1, $2) ORDER BY created_at, id`,
		string(models.SplitStatusPending), string(models.SplitStatusCalculated))
}

func (s *PostgresStore) listSplits(ctx context.Context, query string, args ...any) ([]*models.Split, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer rows.Close()

	var splits []*models.Split
	for rows.Next() {
		split, err := scanSplit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	for _, split := range splits {
		if split.Payments, err = s.listPayments(ctx, split.ID); err != nil {
			return nil, err
		}
	}
	return splits, nil
}

// UpdateBreakdown replaces the breakdown if the version still matches.
func (s *PostgresStore) UpdateBreakdown(ctx context.Context, split *models.Split) error {
	breakdown, err := storage.EncodeBreakdown(split.Breakdown)
	if err != nil {
		return err
	}
	if split.UpdatedAt == 0 {
		split.UpdatedAt = time.Now().Unix()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE splits
		SET breakdown = $1, status = $2, title = $3, total_amount = $4, subtotal = $5,
		    updated_at = $6, version = version + 1
		WHERE id = $7 AND version = $8`,
		breakdown, string(split.Status), split.Title, split.TotalAmount.String(), split.Subtotal.String(),
		split.UpdatedAt, split.ID, split.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update split: %w", err)
	}
	if err := s.checkVersioned(ctx, result, split.ID); err != nil {
		return err
	}
	split.Version++
	return nil
}

// AppendPayment inserts a payment and bumps the split version in one transaction.
func (s *PostgresStore) AppendPayment(ctx context.Context, splitID string, version int64, payment *models.PaymentEvent) error {
	if payment.CreatedAt == 0 {
		payment.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE splits SET version = version + 1, updated_at = $1 WHERE id = $2 AND version = $3",
		payment.CreatedAt, splitID, version,
	)
	if err != nil {
		return fmt.Errorf("failed to bump split version: %w", err)
	}
	if err := s.checkVersioned(ctx, result, splitID); err != nil {
		return err
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

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, split_id, amount, paid_by_id, paid_by_name, paid_by_email, allocations, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		payment.ID, splitID, payment.Amount.String(), payment.PaidBy.ID, payment.PaidBy.Name,
		payment.PaidBy.Email, allocations, nullable(payment.Note), payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) listPayments(ctx context.Context, splitID string) ([]models.PaymentEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, paid_by_id, paid_by_name, paid_by_email, allocations, note, created_at
		FROM payments WHERE split_id = $1 ORDER BY seq`,
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
			allocations string
			note        sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Amount, &p.PaidBy.ID, &p.PaidBy.Name, &p.PaidBy.Email,
			&allocations, &note, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if p.Allocations, err = storage.DecodeAllocations(allocations); err != nil {
			return nil, err
		}
		p.Note = note.String
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return payments, nil
}

// checkVersioned turns a conditional update that touched no rows into
// ErrNotFound or ErrVersionConflict.
func (s *PostgresStore) checkVersioned(ctx context.Context, result sql.Result, splitID string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM splits WHERE id = $1", splitID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("split %s: %w", splitID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check split: %w", err)
	}
	return fmt.Errorf("split %s: %w", splitID, storage.ErrVersionConflict)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSplit(row rowScanner) (*models.Split, error) {
	split := &models.Split{}
	var (
		groupID           sql.NullString
		splitType, status string
		breakdown, items  string
		total, subtotal   decimal.Decimal
	)
	err := row.Scan(&split.ID, &groupID, &split.Title, &total, &subtotal, &splitType, &status,
		&breakdown, &items, &split.Version, &split.CreatedBy, &split.CreatedAt, &split.UpdatedAt)
	if err != nil {
		return nil, err
	}
	split.GroupID = groupID.String
	split.TotalAmount = total
	split.Subtotal = subtotal
	split.SplitType = models.SplitType(splitType)
	split.Status = models.SplitStatus(status)

	if split.Breakdown, err = storage.DecodeBreakdown(breakdown); err != nil {
		return nil, err
	}
	if split.Items, err = storage.DecodeItems(items); err != nil {
		return nil, err
	}
	return split, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
