/*
Package kv provides a BadgerDB-backed homeschool.Store.

PURPOSE:
  Stores the tracker as the key-value collections it logically is.
  Every key component is path-escaped, so ids containing "/" or "-"
  cannot collide.

KEY LAYOUT:
  children/<id>                         -> JSON entity + insertion seq
  subjects/<id>                         -> JSON entity + insertion seq
  records/<date>/<child>/<subject>      -> JSON record
  idx/child/<child>/<date>/<subject>    -> empty (secondary index)
  idx/subject/<subject>/<date>/<child>  -> empty (secondary index)
  schoolYear/current                    -> JSON school year
  seq/<collection>                      -> big-endian uint64 counter

LOOKUPS:
  by date / date range: seek into records/ at the From date
  by child:             idx/child/<child>/ prefix
  by subject:           idx/subject/<subject>/ prefix
  by (date, child):     idx/child/<child>/<date>/ prefix

ATOMICITY:
  A record and its two index keys are written in one transaction.
  DeleteRecords uses a WriteBatch; an interrupted batch leaves only
  records that were already due for deletion.
*/
package kv

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/warp/homeschool-tracker/homeschool"
)

// Store implements homeschool.Store on a badger.DB.
type Store struct {
	db *badger.DB
	mu sync.Mutex // serializes writers
}

// Option configures Open.
type Option func(*badger.Options)

// WithLogger routes badger's warnings and errors to l.
func WithLogger(l *log.Logger) Option {
	return func(o *badger.Options) { *o = o.WithLogger(badgerLogger{l}) }
}

// New opens (or creates) a database in dir.
func New(dir string, opts ...Option) (*Store, error) {
	return open(badger.DefaultOptions(dir), opts)
}

// NewInMemory opens a database that lives only in memory.
func NewInMemory(opts ...Option) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), opts)
}

func open(o badger.Options, opts []Option) (*Store, error) {
	o = o.WithLogger(nil)
	for _, opt := range opts {
		opt(&o)
	}
	db, err := badger.Open(o)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// KEYS
// =============================================================================

const (
	prefixRecords      = "records/"
	prefixChildIndex   = "idx/child/"
	prefixSubjectIndex = "idx/subject/"
	keySchoolYear      = "schoolYear/current"
)

func esc(s string) string { return url.PathEscape(s) }

func entityPrefix(c homeschool.Collection) []byte { return []byte(esc(string(c)) + "/") }

func entityKey(c homeschool.Collection, id string) []byte {
	return append(entityPrefix(c), esc(id)...)
}

func seqKey(c homeschool.Collection) []byte { return []byte("seq/" + esc(string(c))) }

func recordKey(k homeschool.RecordKey) []byte {
	return []byte(prefixRecords + k.Date.String() + "/" + esc(k.ChildID) + "/" + esc(k.SubjectID))
}

func childIndexKey(k homeschool.RecordKey) []byte {
	return []byte(prefixChildIndex + esc(k.ChildID) + "/" + k.Date.String() + "/" + esc(k.SubjectID))
}

func subjectIndexKey(k homeschool.RecordKey) []byte {
	return []byte(prefixSubjectIndex + esc(k.SubjectID) + "/" + k.Date.String() + "/" + esc(k.ChildID))
}

// parseIndexKey turns an index key back into a record key.
// Child index: owner=child, other=subject. Subject index: the reverse.
func parseIndexKey(key []byte, prefix string) (owner, date, other string, err error) {
	parts := strings.Split(strings.TrimPrefix(string(key), prefix), "/")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("malformed index key %q", key)
	}
	if owner, err = url.PathUnescape(parts[0]); err != nil {
		return "", "", "", err
	}
	if other, err = url.PathUnescape(parts[2]); err != nil {
		return "", "", "", err
	}
	return owner, parts[1], other, nil
}

// =============================================================================
// ENTITY STORE
// =============================================================================

type entityValue struct {
	homeschool.Entity
	Seq uint64 `json:"seq"`
}

func (s *Store) ListEntities(_ context.Context, c homeschool.Collection) ([]homeschool.Entity, error) {
	var values []entityValue
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := entityPrefix(c)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var v entityValue
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			}); err != nil {
				return err
			}
			values = append(values, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(values, func(i, j int) bool { return values[i].Seq < values[j].Seq })
	entities := make([]homeschool.Entity, len(values))
	for i, v := range values {
		entities[i] = v.Entity
	}
	return entities, nil
}

func (s *Store) GetEntity(_ context.Context, c homeschool.Collection, id string) (*homeschool.Entity, error) {
	var v *entityValue
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		v, err = getEntity(txn, c, id)
		return err
	})
	if err != nil || v == nil {
		return nil, err
	}
	return &v.Entity, nil
}

func getEntity(txn *badger.Txn, c homeschool.Collection, id string) (*entityValue, error) {
	item, err := txn.Get(entityKey(c, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v entityValue
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &v) }); err != nil {
		return nil, err
	}
	return &v, nil
}

// PutEntity keeps the seq of an existing entity and draws a new one otherwise.
func (s *Store) PutEntity(_ context.Context, c homeschool.Collection, e homeschool.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		existing, err := getEntity(txn, c, e.ID)
		if err != nil {
			return err
		}
		v := entityValue{Entity: e}
		if existing != nil {
			v.Seq = existing.Seq
		} else if v.Seq, err = nextSeq(txn, c); err != nil {
			return err
		}

		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return txn.Set(entityKey(c, e.ID), data)
	})
}

func nextSeq(txn *badger.Txn, c homeschool.Collection) (uint64, error) {
	var seq uint64
	item, err := txn.Get(seqKey(c))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("invalid sequence length: %d", len(val))
			}
			seq = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	}

	seq++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return seq, txn.Set(seqKey(c), buf)
}

func (s *Store) DeleteEntity(_ context.Context, c homeschool.Collection, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(entityKey(c, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		return txn.Delete(entityKey(c, id))
	})
	return existed, err
}

func (s *Store) CountEntities(_ context.Context, c homeschool.Collection) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := entityPrefix(c)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// =============================================================================
// RECORD STORE
// =============================================================================

func (s *Store) HasRecord(_ context.Context, key homeschool.RecordKey) (bool, error) {
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		r, err := getRecord(txn, recordKey(key))
		if err != nil {
			return err
		}
		found = r != nil && r.Completed
		return nil
	})
	return found, err
}

func getRecord(txn *badger.Txn, key []byte) (*homeschool.Record, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r homeschool.Record
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &r) }); err != nil {
		return nil, err
	}
	return &r, nil
}

// PutRecord writes the record and both index entries atomically.
func (s *Store) PutRecord(_ context.Context, r homeschool.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	k := r.Key()
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(k), data); err != nil {
			return err
		}
		if err := txn.Set(childIndexKey(k), nil); err != nil {
			return err
		}
		return txn.Set(subjectIndexKey(k), nil)
	})
}

func (s *Store) DeleteRecord(_ context.Context, key homeschool.RecordKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(recordKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		for _, k := range [][]byte{recordKey(key), childIndexKey(key), subjectIndexKey(key)} {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return existed, err
}

func (s *Store) QueryRecords(_ context.Context, q homeschool.RecordQuery) ([]homeschool.Record, error) {
	var records []homeschool.Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		records, err = queryRecords(txn, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	homeschool.SortRecords(records)
	return records, nil
}

// queryRecords picks the narrowest key range for q and filters with Matches.
func queryRecords(txn *badger.Txn, q homeschool.RecordQuery) ([]homeschool.Record, error) {
	records := []homeschool.Record{}

	if q.ChildID != "" || q.SubjectID != "" {
		prefix := prefixChildIndex + esc(q.ChildID) + "/"
		idx := prefixChildIndex
		if q.ChildID == "" {
			prefix = prefixSubjectIndex + esc(q.SubjectID) + "/"
			idx = prefixSubjectIndex
		}
		if !q.From.IsZero() && q.From.Equal(q.To) {
			prefix += q.From.String() + "/"
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			owner, day, other, err := parseIndexKey(it.Item().KeyCopy(nil), idx)
			if err != nil {
				return nil, err
			}
			rk := homeschool.RecordKey{ChildID: owner, SubjectID: other}
			if idx == prefixSubjectIndex {
				rk = homeschool.RecordKey{ChildID: other, SubjectID: owner}
			}
			if rk.Date, err = homeschool.ParseDate(day); err != nil {
				return nil, err
			}
			r, err := getRecord(txn, recordKey(rk))
			if err != nil {
				return nil, err
			}
			if r != nil && q.Matches(*r) {
				records = append(records, *r)
			}
		}
		return records, nil
	}

	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	prefix := []byte(prefixRecords)
	start := prefix
	if !q.From.IsZero() {
		start = []byte(prefixRecords + q.From.String())
	}
	for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
		var r homeschool.Record
		if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &r) }); err != nil {
			return nil, err
		}
		if !q.To.IsZero() && r.Date.After(q.To) {
			break
		}
		if q.Matches(r) {
			records = append(records, r)
		}
	}
	return records, nil
}

// DeleteRecords removes matching records and their index entries.
func (s *Store) DeleteRecords(_ context.Context, q homeschool.RecordQuery) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []homeschool.Record
	if err := s.db.View(func(txn *badger.Txn) error {
		var err error
		records, err = queryRecords(txn, q)
		return err
	}); err != nil {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, r := range records {
		k := r.Key()
		for _, key := range [][]byte{recordKey(k), childIndexKey(k), subjectIndexKey(k)} {
			if err := wb.Delete(key); err != nil {
				return 0, err
			}
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(records), nil
}

// =============================================================================
// SCHOOL YEAR
// =============================================================================

func (s *Store) GetSchoolYear(_ context.Context) (*homeschool.SchoolYear, error) {
	var y *homeschool.SchoolYear
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySchoolYear))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			y = &homeschool.SchoolYear{}
			return json.Unmarshal(val, y)
		})
	})
	return y, err
}

func (s *Store) PutSchoolYear(_ context.Context, y homeschool.SchoolYear) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(y)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keySchoolYear), data)
	})
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset drops every key, sequence counters included.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.DropAll()
}

// =============================================================================
// LOGGER
// =============================================================================

// badgerLogger adapts *log.Logger to badger.Logger. Info and debug
// chatter is dropped.
type badgerLogger struct{ l *log.Logger }

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Printf("badger error: "+strings.TrimSuffix(format, "\n"), args...)
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Printf("badger warning: "+strings.TrimSuffix(format, "\n"), args...)
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}

var (
	_ homeschool.Store = (*Store)(nil)
	_ badger.Logger    = badgerLogger{}
)
