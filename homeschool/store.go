/*
store.go - Persistence contract between the tracker and its backend

PURPOSE:
  Defines the interface the Tracker uses for durable storage. The Tracker
  owns the rules (validation, toggling, cascades, seeding); a Store only
  keeps data and answers lookups. Backends are constructor-injected so
  tests can swap in the in-memory one without global state.

COLLECTIONS:
  children, subjects: keyed by entity id, insertion order preserved
  records:            keyed by (date, childId, subjectId)
  schoolYear:         single key "current"

SECONDARY LOOKUPS (RecordQuery):
  by date range (inclusive), by child, by subject, by (date, child)

DURABILITY:
  Every mutating method persists before it returns. Each single entity
  or record write is atomic. DeleteRecords may be implemented as one
  statement or as a sequence; callers accept best-effort semantics.

IMPLEMENTATIONS:
  - homeschool/store/memory.go: in-memory, for tests/dev
  - store/sqlite/sqlite.go:     SQLite file
  - store/kv/badger.go:         BadgerDB key-value directory
  - store/snapshot/snapshot.go: JSON document on a hackpadfs.FS (IndexedDB)

SEE ALSO:
  - homeschool/storetest: conformance suite every backend runs
*/
package homeschool

import "context"

// =============================================================================
// STORE - Interface for entity persistence
// =============================================================================

// Store persists children, subjects, records and the school year.
type Store interface {
	// ListEntities returns every entity of a collection in insertion order.
	// Replacing an entity keeps its original position.
	ListEntities(ctx context.Context, c Collection) ([]Entity, error)

	// GetEntity returns nil, nil when the id is absent.
	GetEntity(ctx context.Context, c Collection, id string) (*Entity, error)

	// PutEntity inserts or replaces by id.
	PutEntity(ctx context.Context, c Collection, e Entity) error

	// DeleteEntity reports whether the entity existed.
	DeleteEntity(ctx context.Context, c Collection, id string) (bool, error)

	CountEntities(ctx context.Context, c Collection) (int, error)

	// HasRecord reports whether a completed record exists for key.
	HasRecord(ctx context.Context, key RecordKey) (bool, error)

	// PutRecord inserts or replaces the record with the same key.
	PutRecord(ctx context.Context, r Record) error

	// DeleteRecord reports whether the record existed.
	DeleteRecord(ctx context.Context, key RecordKey) (bool, error)

	// QueryRecords returns matching records ordered by (date, child, subject).
	QueryRecords(ctx context.Context, q RecordQuery) ([]Record, error)

	// DeleteRecords removes matching records and returns how many went.
	DeleteRecords(ctx context.Context, q RecordQuery) (int, error)

	// GetSchoolYear returns nil, nil before the first PutSchoolYear.
	GetSchoolYear(ctx context.Context) (*SchoolYear, error)

	PutSchoolYear(ctx context.Context, y SchoolYear) error

	// Reset removes every entity, record and the school year.
	Reset(ctx context.Context) error

	Close() error
}

// =============================================================================
// RECORD QUERY - Secondary lookups
// =============================================================================

// RecordQuery filters records. Zero fields do not filter; a zero From or To
// leaves that side of the range open. Both bounds are inclusive.
type RecordQuery struct {
	From      Date
	To        Date
	ChildID   string
	SubjectID string
}

// OnDate matches exactly one day.
func OnDate(d Date) RecordQuery { return RecordQuery{From: d, To: d} }

// InRange matches [r.Start, r.End].
func InRange(r DateRange) RecordQuery { return RecordQuery{From: r.Start, To: r.End} }

// ForChild matches every record of one child.
func ForChild(childID string) RecordQuery { return RecordQuery{ChildID: childID} }

// ForSubject matches every record of one subject.
func ForSubject(subjectID string) RecordQuery { return RecordQuery{SubjectID: subjectID} }

// IsEmpty reports whether the query matches every record.
func (q RecordQuery) IsEmpty() bool {
	return q.From.IsZero() && q.To.IsZero() && q.ChildID == "" && q.SubjectID == ""
}

// Matches applies the query to one record. Backends without native
// indexes use it to filter scans.
func (q RecordQuery) Matches(r Record) bool {
	if !q.From.IsZero() && r.Date.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && r.Date.After(q.To) {
		return false
	}
	if q.ChildID != "" && r.ChildID != q.ChildID {
		return false
	}
	if q.SubjectID != "" && r.SubjectID != q.SubjectID {
		return false
	}
	return true
}

// SortRecords orders records by (date, child, subject) in place.
func SortRecords(records []Record) {
	sortRecords(records)
}
