/*
Package sqlite provides a SQLite-backed homeschool.Store.

PURPOSE:
  Durable single-file storage for the tracker. One table per logical
  collection; the record identity is a composite primary key, never the
  joined "{date}-{childId}-{subjectId}" string.

KEY TABLES:
  children, subjects: id, name, sort_order, seq (insertion order)
  records:            (date, child_id, subject_id) primary key, completed
  school_year:        single row with id 'current'

INDEXES:
  Secondary lookups the tracker needs:
  - idx_records_child:      cascade on child delete, per-child queries
  - idx_records_subject:    cascade on subject delete
  - idx_records_date_child: one child's day
  The primary key already serves date and date-range scans.

DATES:
  Stored as TEXT in YYYY-MM-DD form, so string comparison is date
  comparison and BETWEEN is inclusive on both ends.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single connection so that
  ":memory:" databases are shared across calls.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging).

USAGE:
  store, err := sqlite.New("./data/homeschool.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  tracker, err := homeschool.New(ctx, store)

MIGRATION:
  Schema is created on New() if absent. There is no versioned migration.

SEE ALSO:
  - homeschool/store.go: Interface definition
  - homeschool/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/homeschool-tracker/homeschool"
)

// Store implements homeschool.Store using SQLite.
type Store struct {
	db *sqlx.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	if dbPath == ":memory:" {
		dsn = dbPath
	}
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS children (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		seq INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		seq INTEGER NOT NULL
	);

	-- One row per completed (date, child, subject)
	CREATE TABLE IF NOT EXISTS records (
		date TEXT NOT NULL,
		child_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (date, child_id, subject_id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_child
		ON records(child_id, date);
	CREATE INDEX IF NOT EXISTS idx_records_subject
		ON records(subject_id, date);
	CREATE INDEX IF NOT EXISTS idx_records_date_child
		ON records(date, child_id);

	CREATE TABLE IF NOT EXISTS school_year (
		id TEXT PRIMARY KEY CHECK (id = 'current'),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// table maps a collection to its table. Collection names are never
// interpolated unchecked.
func table(c homeschool.Collection) (string, error) {
	switch c {
	case homeschool.Children:
		return "children", nil
	case homeschool.Subjects:
		return "subjects", nil
	default:
		return "", fmt.Errorf("unknown collection %q", c)
	}
}

// =============================================================================
// ENTITY STORE
// =============================================================================

// ListEntities returns a collection in insertion order.
func (s *Store) ListEntities(ctx context.Context, c homeschool.Collection) ([]homeschool.Entity, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entities := []homeschool.Entity{}
	err = s.db.SelectContext(ctx, &entities,
		"SELECT id, name, sort_order FROM "+t+" ORDER BY seq")
	return entities, err
}

// GetEntity retrieves an entity by ID.
func (s *Store) GetEntity(ctx context.Context, c homeschool.Collection, id string) (*homeschool.Entity, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var e homeschool.Entity
	err = s.db.GetContext(ctx, &e, "SELECT id, name, sort_order FROM "+t+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// PutEntity inserts or replaces an entity. A replaced entity keeps its seq.
func (s *Store) PutEntity(ctx context.Context, c homeschool.Collection, e homeschool.Entity) error {
	t, err := table(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO ` + t + ` (id, name, sort_order, seq)
		VALUES (:id, :name, :sort_order, (SELECT COALESCE(MAX(seq), 0) + 1 FROM ` + t + `))
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			sort_order = excluded.sort_order
	`
	_, err = s.db.NamedExecContext(ctx, query, e)
	return err
}

// DeleteEntity removes an entity and reports whether it existed.
func (s *Store) DeleteEntity(ctx context.Context, c homeschool.Collection, id string) (bool, error) {
	t, err := table(c)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+t+" WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountEntities returns the size of a collection.
func (s *Store) CountEntities(ctx context.Context, c homeschool.Collection) (int, error) {
	t, err := table(c)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err = s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+t)
	return n, err
}

// =============================================================================
// RECORD STORE
// =============================================================================

// HasRecord reports whether a completed record exists for the key.
func (s *Store) HasRecord(ctx context.Context, key homeschool.RecordKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM records
			WHERE date = ? AND child_id = ? AND subject_id = ? AND completed = 1
		)`,
		key.Date, key.ChildID, key.SubjectID,
	)
	return exists, err
}

// PutRecord inserts or replaces the record with the same composite key.
func (s *Store) PutRecord(ctx context.Context, r homeschool.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO records (date, child_id, subject_id, completed)
		VALUES (:date, :child_id, :subject_id, :completed)
		ON CONFLICT(date, child_id, subject_id) DO UPDATE SET
			completed = excluded.completed
	`
	_, err := s.db.NamedExecContext(ctx, query, r)
	return err
}

// DeleteRecord removes one record and reports whether it existed.
func (s *Store) DeleteRecord(ctx context.Context, key homeschool.RecordKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM records WHERE date = ? AND child_id = ? AND subject_id = ?",
		key.Date, key.ChildID, key.SubjectID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// QueryRecords returns matching records ordered by (date, child, subject).
func (s *Store) QueryRecords(ctx context.Context, q homeschool.RecordQuery) ([]homeschool.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := whereClause(q)
	records := []homeschool.Record{}
	err := s.db.SelectContext(ctx, &records,
		"SELECT date, child_id, subject_id, completed FROM records"+where+
			" ORDER BY date, child_id, subject_id",
		args...,
	)
	return records, err
}

// DeleteRecords removes every matching record in one statement.
func (s *Store) DeleteRecords(ctx context.Context, q homeschool.RecordQuery) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	where, args := whereClause(q)
	res, err := s.db.ExecContext(ctx, "DELETE FROM records"+where, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func whereClause(q homeschool.RecordQuery) (string, []any) {
	var conds []string
	var args []any
	if !q.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, q.From)
	}
	if !q.To.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, q.To)
	}
	if q.ChildID != "" {
		conds = append(conds, "child_id = ?")
		args = append(args, q.ChildID)
	}
	if q.SubjectID != "" {
		conds = append(conds, "subject_id = ?")
		args = append(args, q.SubjectID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// =============================================================================
// SCHOOL YEAR
// =============================================================================

type schoolYearRow struct {
	StartDate homeschool.Date `db:"start_date"`
	EndDate   homeschool.Date `db:"end_date"`
}

// GetSchoolYear returns nil before the first PutSchoolYear.
func (s *Store) GetSchoolYear(ctx context.Context) (*homeschool.SchoolYear, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row schoolYearRow
	err := s.db.GetContext(ctx, &row,
		"SELECT start_date, end_date FROM school_year WHERE id = 'current'")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &homeschool.SchoolYear{StartDate: row.StartDate, EndDate: row.EndDate}, nil
}

// PutSchoolYear upserts the singleton row.
func (s *Store) PutSchoolYear(ctx context.Context, y homeschool.SchoolYear) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO school_year (id, start_date, end_date)
		VALUES ('current', ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date`,
		y.StartDate, y.EndDate,
	)
	return err
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset clears all data.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tables := []string{"records", "children", "subjects", "school_year"}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return tx.Commit()
}

var _ homeschool.Store = (*Store)(nil)
