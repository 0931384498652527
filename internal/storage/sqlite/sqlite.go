// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const splitColumns = `id, group_id, title, total_amount, subtotal, split_type, status,
	breakdown, items, version, created_by, created_at, updated_at`

// CreateSplit persists a new split to the database.
func (s *SQLiteStore) CreateSplit(ctx context.Context, split *models.Split) error {
	// Generate IDs if not set
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

	_, err = tx.ExecContext(ctx,
		`INSERT INTO splits (`+splitColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
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

// GetSplit retrieves a split by ID, including its payment ledger.
func (s *SQLiteStore) GetSplit(ctx context.Context, splitID string) (*models.Split, error) {
	split, err := scanSplit(s.db.QueryRowContext(ctx,
		`SELECT `+splitColumns+` FROM splits WHERE id = ?`, splitID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("split %s: %w", splitID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get split: %w", err)
	}

	payments, err := s.listPayments(ctx, splitID)
	if err != nil {
		return nil, err
	}
	split.Payments = payments
	return split, nil
}

// ListSplitsByGroup returns every split of a group, oldest first.
func (s *SQLiteStore) ListSplitsByGroup(ctx context.Context, groupID string) ([]*models.Split, error) {
	return s.listSplits(ctx,
		`SELECT `+splitColumns+` FROM splits WHERE group_id = ? ORDER BY created_at, id`, groupID)
}

// ListOpenSplits returns splits that are neither finalized nor cancelled.
func (s *SQLiteStore) ListOpenSplits(ctx context.Context) ([]*models.Split, error) {
	return s.listSplits(ctx,
		`SELECT `+splitColumns+` FROM splits WHERE status IN (?, ?) ORDER BY created_at, id`,
		string(models.SplitStatusPending), string(models.SplitStatusCalculated))
}

func (s *SQLiteStore) listSplits(ctx context.Context, query string, args ...any) ([]*models.Split, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}

	var splits []*models.Split
	for rows.Next() {
		split, err := scanSplit(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, split)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	// Close before loading payments: the store uses a single connection.
	rows.Close()

	for _, split := range splits {
		payments, err := s.listPayments(ctx, split.ID)
		if err != nil {
			return nil, err
		}
		split.Payments = payments
	}
	return splits, nil
}

// UpdateBreakdown replaces the breakdown if the version still matches.
func (s *SQLiteStore) UpdateBreakdown(ctx context.Context, split *models.Split) error {
	breakdown, err := storage.EncodeBreakdown(split.Breakdown)
	if err != nil {
		return err
	}
	if split.UpdatedAt == 0 {
		split.UpdatedAt = time.Now().Unix()
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE splits
		 SET breakdown = ?, status = ?, title = ?, total_amount = ?, subtotal = ?,
		     updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
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

// checkVersioned turns a conditional update that touched no rows into
// ErrNotFound or ErrVersionConflict.
func (s *SQLiteStore) checkVersioned(ctx context.Context, result sql.Result, splitID string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM splits WHERE id = ?", splitID).Scan(&exists)
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
		groupID               sql.NullString
		splitType, status     string
		breakdown, items      string
		totalAmount, subtotal decimal.Decimal
	)
	err := row.Scan(&split.ID, &groupID, &split.Title, &totalAmount, &subtotal, &splitType, &status,
		&breakdown, &items, &split.Version, &split.CreatedBy, &split.CreatedAt, &split.UpdatedAt)
	if err != nil {
		return nil, err
	}
	split.GroupID = groupID.String
	split.TotalAmount = totalAmount
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

// nullable maps an empty string to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
