/*
tracker.go - Entity operations over a Store

PURPOSE:
  The Tracker is the single entry point the presentation layer talks to.
  It owns validation, toggling, cascades and seeding. The Store
  underneath only keeps data.

OPERATIONS:
  Children/Subjects: List, Add, Update, Delete (delete cascades)
  Records:           GetRecordsByDate, GetRecordsByDateRange, ToggleRecord
  School year:       GetSchoolYear, UpdateSchoolYear
  Reports:           Summarize (summary.go)
  Maintenance:       Clear, EnsureDefaults (defaults.go)

CASCADE-DELETE:
  DeleteChild/DeleteSubject remove the entity first and then every record
  referencing it. If the cascade is interrupted, the orphans left behind
  match no live entity and the aggregator ignores them.

NOT FOUND:
  Update and Delete of an absent id fail with NotFoundError. Delete is
  therefore not idempotent; a caller that double-deletes gets a 404.

ERRORS:
  Every backend failure is wrapped in StorageError. Nothing is retried.

EXAMPLE:
  t, err := homeschool.New(ctx, store.NewMemory())
  id, err := t.AddChild(ctx, "Ada")
  done, err := t.ToggleRecord(ctx, t.Today(), id, "math")
*/
package homeschool

import (
	"context"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// TRACKER
// =============================================================================

// Tracker implements the entity store operations on top of a Store.
type Tracker struct {
	store    Store
	logger   *log.Logger
	now      func() time.Time
	newID    func(Collection) string
	defaults Defaults
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for seeding and cascade messages.
func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithClock replaces time.Now (used for the default school year).
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithIDGenerator replaces the id generator used by AddChild/AddSubject.
func WithIDGenerator(gen func(Collection) string) Option {
	return func(t *Tracker) { t.newID = gen }
}

// WithDefaults replaces the names seeded into empty collections.
func WithDefaults(d Defaults) Option {
	return func(t *Tracker) { t.defaults = d }
}

// New creates a Tracker over store and seeds defaults into empty collections.
func New(ctx context.Context, store Store, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		store:    store,
		logger:   log.New(io.Discard, "", 0),
		now:      time.Now,
		newID:    NewID,
		defaults: DefaultDefaults(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.EnsureDefaults(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Store returns the backend the tracker writes to.
func (t *Tracker) Store() Store { return t.store }

// Today is the current date according to the tracker's clock.
func (t *Tracker) Today() Date { return DateOf(t.now()) }

// NewID returns "child-<uuid>" or "subject-<uuid>". UUIDv7 is time-ordered,
// so ids sort by creation like the original timestamp ids did.
func NewID(c Collection) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return c.Singular() + "-" + id.String()
}

// =============================================================================
// CHILDREN
// =============================================================================

// ListChildren returns children sorted by Order, ties by insertion.
func (t *Tracker) ListChildren(ctx context.Context) ([]Child, error) {
	entities, err := t.listSorted(ctx, Children)
	if err != nil {
		return nil, err
	}
	children := make([]Child, len(entities))
	for i, e := range entities {
		children[i] = Child(e)
	}
	return children, nil
}

// AddChild creates a child at the end of the list and returns its id.
func (t *Tracker) AddChild(ctx context.Context, name string) (string, error) {
	return t.add(ctx, Children, name)
}

// UpdateChild replaces the child with the same id.
func (t *Tracker) UpdateChild(ctx context.Context, child Child) error {
	return t.update(ctx, Children, Entity(child))
}

// RenameChild changes the child's name and keeps its order.
func (t *Tracker) RenameChild(ctx context.Context, id, name string) (Child, error) {
	e, err := t.rename(ctx, Children, id, name)
	return Child(e), err
}

// DeleteChild removes the child and all of its records.
func (t *Tracker) DeleteChild(ctx context.Context, id string) error {
	return t.delete(ctx, Children, id)
}

// =============================================================================
// SUBJECTS
// =============================================================================

// ListSubjects returns subjects sorted by Order, ties by insertion.
func (t *Tracker) ListSubjects(ctx context.Context) ([]Subject, error) {
	entities, err := t.listSorted(ctx, Subjects)
	if err != nil {
		return nil, err
	}
	subjects := make([]Subject, len(entities))
	for i, e := range entities {
		subjects[i] = Subject(e)
	}
	return subjects, nil
}

// AddSubject creates a subject at the end of the list and returns its id.
func (t *Tracker) AddSubject(ctx context.Context, name string) (string, error) {
	return t.add(ctx, Subjects, name)
}

// UpdateSubject replaces the subject with the same id.
func (t *Tracker) UpdateSubject(ctx context.Context, subject Subject) error {
	return t.update(ctx, Subjects, Entity(subject))
}

// RenameSubject changes the subject's name and keeps its order.
func (t *Tracker) RenameSubject(ctx context.Context, id, name string) (Subject, error) {
	e, err := t.rename(ctx, Subjects, id, name)
	return Subject(e), err
}

// DeleteSubject removes the subject and all records of it.
func (t *Tracker) DeleteSubject(ctx context.Context, id string) error {
	return t.delete(ctx, Subjects, id)
}

// =============================================================================
// SHARED ENTITY OPERATIONS
// =============================================================================

func (t *Tracker) listSorted(ctx context.Context, c Collection) ([]Entity, error) {
	entities, err := t.store.ListEntities(ctx, c)
	if err != nil {
		return nil, storageErr("list "+string(c), err)
	}
	sortEntities(entities)
	return entities, nil
}

func (t *Tracker) add(ctx context.Context, c Collection, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "name", Message: c.Singular() + " name is required"}
	}
	count, err := t.store.CountEntities(ctx, c)
	if err != nil {
		return "", storageErr("add "+c.Singular(), err)
	}
	e := Entity{ID: t.newID(c), Name: name, Order: count}
	if err := t.store.PutEntity(ctx, c, e); err != nil {
		return "", storageErr("add "+c.Singular(), err)
	}
	return e.ID, nil
}

func (t *Tracker) update(ctx context.Context, c Collection, e Entity) error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return &ValidationError{Field: "name", Message: c.Singular() + " name is required"}
	}
	existing, err := t.store.GetEntity(ctx, c, e.ID)
	if err != nil {
		return storageErr("update "+c.Singular(), err)
	}
	if existing == nil {
		return &NotFoundError{Kind: c, ID: e.ID}
	}
	return storageErr("update "+c.Singular(), t.store.PutEntity(ctx, c, e))
}

func (t *Tracker) rename(ctx context.Context, c Collection, id, name string) (Entity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Entity{}, &ValidationError{Field: "name", Message: c.Singular() + " name is required"}
	}
	existing, err := t.store.GetEntity(ctx, c, id)
	if err != nil {
		return Entity{}, storageErr("rename "+c.Singular(), err)
	}
	if existing == nil {
		return Entity{}, &NotFoundError{Kind: c, ID: id}
	}
	e := Entity{ID: id, Name: name, Order: existing.Order}
	if err := t.store.PutEntity(ctx, c, e); err != nil {
		return Entity{}, storageErr("rename "+c.Singular(), err)
	}
	return e, nil
}

func (t *Tracker) delete(ctx context.Context, c Collection, id string) error {
	// An empty id would turn the cascade into a match-all query.
	if id == "" {
		return &NotFoundError{Kind: c, ID: id}
	}
	existed, err := t.store.DeleteEntity(ctx, c, id)
	if err != nil {
		return storageErr("delete "+c.Singular(), err)
	}
	if !existed {
		return &NotFoundError{Kind: c, ID: id}
	}

	q := ForChild(id)
	if c == Subjects {
		q = ForSubject(id)
	}
	n, err := t.store.DeleteRecords(ctx, q)
	if err != nil {
		return storageErr("cascade delete "+c.Singular(), err)
	}
	t.logger.Printf("deleted %s %s and %d records", c.Singular(), id, n)
	return nil
}

// exists checks that a live entity has the id.
func (t *Tracker) exists(ctx context.Context, c Collection, id string) (bool, error) {
	e, err := t.store.GetEntity(ctx, c, id)
	if err != nil {
		return false, err
	}
	return e != nil, nil
}

// =============================================================================
// RECORD QUERIES
// =============================================================================

// GetRecordsByDate returns the records of one day.
func (t *Tracker) GetRecordsByDate(ctx context.Context, date Date) ([]Record, error) {
	if date.IsZero() {
		return nil, &ValidationError{Field: "date", Message: "date is required"}
	}
	records, err := t.store.QueryRecords(ctx, OnDate(date))
	return records, storageErr("get records by date", err)
}

// GetRecordsByDateRange returns records with start <= date <= end.
func (t *Tracker) GetRecordsByDateRange(ctx context.Context, start, end Date) ([]Record, error) {
	r := DateRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	records, err := t.store.QueryRecords(ctx, InRange(r))
	return records, storageErr("get records by date range", err)
}

// GetRecordsByDateChild returns one child's records for one day.
func (t *Tracker) GetRecordsByDateChild(ctx context.Context, date Date, childID string) ([]Record, error) {
	q := OnDate(date)
	q.ChildID = childID
	records, err := t.store.QueryRecords(ctx, q)
	return records, storageErr("get records by date and child", err)
}

// =============================================================================
// SCHOOL YEAR
// =============================================================================

// GetSchoolYear returns the configured school year, nil before initialization.
func (t *Tracker) GetSchoolYear(ctx context.Context) (*SchoolYear, error) {
	y, err := t.store.GetSchoolYear(ctx)
	return y, storageErr("get school year", err)
}

// UpdateSchoolYear replaces the school year.
func (t *Tracker) UpdateSchoolYear(ctx context.Context, y SchoolYear) error {
	if err := y.Validate(); err != nil {
		return err
	}
	return storageErr("update school year", t.store.PutSchoolYear(ctx, y))
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Clear wipes every collection and seeds the defaults again.
func (t *Tracker) Clear(ctx context.Context) error {
	if err := t.store.Reset(ctx); err != nil {
		return storageErr("clear", err)
	}
	t.logger.Printf("cleared all data")
	return t.EnsureDefaults(ctx)
}

// =============================================================================
// ORDERING
// =============================================================================

// sortEntities orders by Order; the stable sort keeps insertion order on ties.
func sortEntities(entities []Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Order < entities[j].Order
	})
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.ChildID != b.ChildID {
			return a.ChildID < b.ChildID
		}
		return a.SubjectID < b.SubjectID
	})
}
