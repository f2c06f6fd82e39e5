/*
Package snapshot provides a homeschool.Store kept as one JSON document
on a hackpadfs.FS.

PURPOSE:
  In the browser build the filesystem is IndexedDB (hackpadfs/indexeddb),
  which gives the tracker durable client-side storage. Tests use
  hackpadfs/mem.

HOW IT WORKS:
  The working set lives in a homeschool/store.Memory. Every mutation is
  applied in memory and then the whole state is written with
  hackpadfs.WriteFullFile before the call returns. If the write fails the
  in-memory state is rolled back, so memory never runs ahead of disk.

DOCUMENT:
  {"children": [...], "subjects": [...], "records": [...], "schoolYear": {...}}
  Entity arrays are in insertion order.
*/
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"sync"

	"github.com/hack-pad/hackpadfs"
	"github.com/warp/homeschool-tracker/homeschool"
	"github.com/warp/homeschool-tracker/homeschool/store"
)

// DefaultPath is the document name used when none is given.
const DefaultPath = "homeschool.json"

// Store implements homeschool.Store over a JSON document.
type Store struct {
	FS   hackpadfs.FS
	Path string

	mu  sync.Mutex // serializes mutations with their write
	mem *store.Memory
}

// New loads the document at path, or starts empty if it does not exist.
func New(fs hackpadfs.FS, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	s := &Store{FS: fs, Path: path, mem: store.NewMemory()}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	content, err := hackpadfs.ReadFile(s.FS, s.Path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.Path, err)
	}

	var state store.State
	if err := json.Unmarshal(content, &state); err != nil {
		return fmt.Errorf("failed to decode %s: %w", s.Path, err)
	}
	s.mem.Import(state)
	return nil
}

func (s *Store) save() error {
	data, err := json.Marshal(s.mem.Export())
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := hackpadfs.WriteFullFile(s.FS, s.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.Path, err)
	}
	return nil
}

// mutate applies fn and persists, restoring the previous state on failure.
func (s *Store) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.mem.Export()
	if err := fn(); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		s.mem.Import(prev)
		return err
	}
	return nil
}

// =============================================================================
// READS - Served from memory
// =============================================================================

func (s *Store) ListEntities(ctx context.Context, c homeschool.Collection) ([]homeschool.Entity, error) {
	return s.mem.ListEntities(ctx, c)
}

func (s *Store) GetEntity(ctx context.Context, c homeschool.Collection, id string) (*homeschool.Entity, error) {
	return s.mem.GetEntity(ctx, c, id)
}

func (s *Store) CountEntities(ctx context.Context, c homeschool.Collection) (int, error) {
	return s.mem.CountEntities(ctx, c)
}

func (s *Store) HasRecord(ctx context.Context, key homeschool.RecordKey) (bool, error) {
	return s.mem.HasRecord(ctx, key)
}

func (s *Store) QueryRecords(ctx context.Context, q homeschool.RecordQuery) ([]homeschool.Record, error) {
	return s.mem.QueryRecords(ctx, q)
}

func (s *Store) GetSchoolYear(ctx context.Context) (*homeschool.SchoolYear, error) {
	return s.mem.GetSchoolYear(ctx)
}

// =============================================================================
// WRITES - Applied in memory, then persisted
// =============================================================================

func (s *Store) PutEntity(ctx context.Context, c homeschool.Collection, e homeschool.Entity) error {
	return s.mutate(func() error { return s.mem.PutEntity(ctx, c, e) })
}

func (s *Store) DeleteEntity(ctx context.Context, c homeschool.Collection, id string) (bool, error) {
	var existed bool
	err := s.mutate(func() (err error) {
		existed, err = s.mem.DeleteEntity(ctx, c, id)
		return err
	})
	return existed, err
}

func (s *Store) PutRecord(ctx context.Context, r homeschool.Record) error {
	return s.mutate(func() error { return s.mem.PutRecord(ctx, r) })
}

func (s *Store) DeleteRecord(ctx context.Context, key homeschool.RecordKey) (bool, error) {
	var existed bool
	err := s.mutate(func() (err error) {
		existed, err = s.mem.DeleteRecord(ctx, key)
		return err
	})
	return existed, err
}

func (s *Store) DeleteRecords(ctx context.Context, q homeschool.RecordQuery) (int, error) {
	var n int
	err := s.mutate(func() (err error) {
		n, err = s.mem.DeleteRecords(ctx, q)
		return err
	})
	return n, err
}

func (s *Store) PutSchoolYear(ctx context.Context, y homeschool.SchoolYear) error {
	return s.mutate(func() error { return s.mem.PutSchoolYear(ctx, y) })
}

func (s *Store) Reset(ctx context.Context) error {
	return s.mutate(func() error { return s.mem.Reset(ctx) })
}

// Close is a no-op; every mutation is already on disk.
func (s *Store) Close() error { return nil }

var _ homeschool.Store = (*Store)(nil)
