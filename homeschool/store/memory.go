// Package store provides the in-memory homeschool.Store.
package store

import (
	"context"
	"sync"

	"github.com/warp/homeschool-tracker/homeschool"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	entities   map[homeschool.Collection]*entityList
	records    map[recordKey]homeschool.Record
	schoolYear *homeschool.SchoolYear
}

// entityList keeps insertion order next to the lookup map.
type entityList struct {
	order []string
	byID  map[string]homeschool.Entity
}

// recordKey uses the date string so equal days always hash the same.
type recordKey struct {
	Date      string
	ChildID   string
	SubjectID string
}

func keyOf(k homeschool.RecordKey) recordKey {
	return recordKey{Date: k.Date.String(), ChildID: k.ChildID, SubjectID: k.SubjectID}
}

func NewMemory() *Memory {
	m := &Memory{}
	m.resetLocked()
	return m
}

func (m *Memory) resetLocked() {
	m.entities = map[homeschool.Collection]*entityList{
		homeschool.Children: {byID: make(map[string]homeschool.Entity)},
		homeschool.Subjects: {byID: make(map[string]homeschool.Entity)},
	}
	m.records = make(map[recordKey]homeschool.Record)
	m.schoolYear = nil
}

func (m *Memory) list(c homeschool.Collection) *entityList {
	l, ok := m.entities[c]
	if !ok {
		l = &entityList{byID: make(map[string]homeschool.Entity)}
		m.entities[c] = l
	}
	return l
}

// =============================================================================
// ENTITIES
// =============================================================================

func (m *Memory) ListEntities(_ context.Context, c homeschool.Collection) ([]homeschool.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.entities[c]
	if !ok {
		return []homeschool.Entity{}, nil
	}
	result := make([]homeschool.Entity, 0, len(l.order))
	for _, id := range l.order {
		result = append(result, l.byID[id])
	}
	return result, nil
}

func (m *Memory) GetEntity(_ context.Context, c homeschool.Collection, id string) (*homeschool.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.entities[c]
	if !ok {
		return nil, nil
	}
	e, ok := l.byID[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) PutEntity(_ context.Context, c homeschool.Collection, e homeschool.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.list(c)
	if _, exists := l.byID[e.ID]; !exists {
		l.order = append(l.order, e.ID)
	}
	l.byID[e.ID] = e
	return nil
}

func (m *Memory) DeleteEntity(_ context.Context, c homeschool.Collection, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.entities[c]
	if !ok {
		return false, nil
	}
	if _, exists := l.byID[id]; !exists {
		return false, nil
	}
	delete(l.byID, id)
	for i, existing := range l.order {
		if existing == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *Memory) CountEntities(_ context.Context, c homeschool.Collection) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if l, ok := m.entities[c]; ok {
		return len(l.byID), nil
	}
	return 0, nil
}

// =============================================================================
// RECORDS
// =============================================================================

// HasRecord treats a stored Completed=false like an absent record.
func (m *Memory) HasRecord(_ context.Context, key homeschool.RecordKey) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[keyOf(key)]
	return ok && r.Completed, nil
}

func (m *Memory) PutRecord(_ context.Context, r homeschool.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[keyOf(r.Key())] = r
	return nil
}

func (m *Memory) DeleteRecord(_ context.Context, key homeschool.RecordKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := keyOf(key)
	if _, ok := m.records[k]; !ok {
		return false, nil
	}
	delete(m.records, k)
	return true, nil
}

func (m *Memory) QueryRecords(_ context.Context, q homeschool.RecordQuery) ([]homeschool.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []homeschool.Record{}
	for _, r := range m.records {
		if q.Matches(r) {
			result = append(result, r)
		}
	}
	homeschool.SortRecords(result)
	return result, nil
}

func (m *Memory) DeleteRecords(_ context.Context, q homeschool.RecordQuery) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, r := range m.records {
		if q.Matches(r) {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

// =============================================================================
// SCHOOL YEAR
// =============================================================================

func (m *Memory) GetSchoolYear(_ context.Context) (*homeschool.SchoolYear, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.schoolYear == nil {
		return nil, nil
	}
	y := *m.schoolYear
	return &y, nil
}

func (m *Memory) PutSchoolYear(_ context.Context, y homeschool.SchoolYear) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.schoolYear = &y
	return nil
}

// =============================================================================
// MAINTENANCE
// =============================================================================

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetLocked()
	return nil
}

func (m *Memory) Close() error { return nil }

// =============================================================================
// STATE - Whole-store export/import (used by the snapshot backend)
// =============================================================================

// State is a serializable copy of everything a Memory holds.
// Entity slices are in insertion order.
type State struct {
	Children   []homeschool.Entity    `json:"children"`
	Subjects   []homeschool.Entity    `json:"subjects"`
	Records    []homeschool.Record    `json:"records"`
	SchoolYear *homeschool.SchoolYear `json:"schoolYear,omitempty"`
}

// Export returns a deep copy of the current state.
func (m *Memory) Export() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := State{
		Children: m.exportList(homeschool.Children),
		Subjects: m.exportList(homeschool.Subjects),
		Records:  make([]homeschool.Record, 0, len(m.records)),
	}
	for _, r := range m.records {
		s.Records = append(s.Records, r)
	}
	homeschool.SortRecords(s.Records)
	if m.schoolYear != nil {
		y := *m.schoolYear
		s.SchoolYear = &y
	}
	return s
}

func (m *Memory) exportList(c homeschool.Collection) []homeschool.Entity {
	l := m.entities[c]
	out := make([]homeschool.Entity, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.byID[id])
	}
	return out
}

// Import replaces the current state with s.
func (m *Memory) Import(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetLocked()
	m.importList(homeschool.Children, s.Children)
	m.importList(homeschool.Subjects, s.Subjects)
	for _, r := range s.Records {
		m.records[keyOf(r.Key())] = r
	}
	if s.SchoolYear != nil {
		y := *s.SchoolYear
		m.schoolYear = &y
	}
}

func (m *Memory) importList(c homeschool.Collection, entities []homeschool.Entity) {
	l := m.list(c)
	for _, e := range entities {
		if _, exists := l.byID[e.ID]; !exists {
			l.order = append(l.order, e.ID)
		}
		l.byID[e.ID] = e
	}
}

var _ homeschool.Store = (*Memory)(nil)
