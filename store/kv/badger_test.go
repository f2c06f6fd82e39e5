package kv_test

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/homeschool-tracker/homeschool"
	"github.com/warp/homeschool-tracker/homeschool/storetest"
	"github.com/warp/homeschool-tracker/store/kv"
)

func TestBadger_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) homeschool.Store {
		s, err := kv.NewInMemory()
		require.NoError(t, err)
		return s
	})
}

func TestBadger_SurvivesReopen(t *testing.T) {
	// GIVEN: A badger directory with a custom subject and a record
	// WHEN: Reopening it
	// THEN: Insertion order and the record are intact

	ctx := context.Background()
	dir := t.TempDir()
	var logs bytes.Buffer

	s, err := kv.New(dir, kv.WithLogger(log.New(&logs, "", 0)))
	require.NoError(t, err)
	tr, err := homeschool.New(ctx, s)
	require.NoError(t, err)
	id, err := tr.AddSubject(ctx, "Latin")
	require.NoError(t, err)
	_, err = tr.ToggleRecord(ctx, homeschool.MustParseDate("2024-09-03"), "child-b", id)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = kv.New(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	subjects, err := s.ListEntities(ctx, homeschool.Subjects)
	require.NoError(t, err)
	require.Len(t, subjects, 9)
	assert.Equal(t, "math", subjects[0].ID)
	assert.Equal(t, id, subjects[8].ID)

	records, err := s.QueryRecords(ctx, homeschool.ForSubject(id))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "child-b", records[0].ChildID)
}

func TestBadger_IDsWithSlashes(t *testing.T) {
	ctx := context.Background()
	s, err := kv.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	r := homeschool.Record{
		Date: homeschool.MustParseDate("2024-09-03"), ChildID: "a/b", SubjectID: "c/d", Completed: true,
	}
	require.NoError(t, s.PutRecord(ctx, r))

	got, err := s.QueryRecords(ctx, homeschool.ForChild("a/b"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, r, got[0])

	n, err := s.DeleteRecords(ctx, homeschool.ForSubject("c/d"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
