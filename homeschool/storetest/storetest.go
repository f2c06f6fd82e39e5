/*
Package storetest is the conformance suite for homeschool.Store backends.

Every backend test file calls Run with a factory:

	func TestConformance(t *testing.T) {
	    storetest.Run(t, func(t *testing.T) homeschool.Store {
	        s, err := sqlite.New(":memory:")
	        require.NoError(t, err)
	        return s
	    })
	}

The suite closes each store it creates.
*/
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/homeschool-tracker/homeschool"
)

// Factory creates an empty store for one subtest.
type Factory func(t *testing.T) homeschool.Store

// Run executes every conformance test against stores from newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s homeschool.Store)
	}{
		{"EntitiesKeepInsertionOrder", testEntitiesKeepInsertionOrder},
		{"PutEntityReplacesInPlace", testPutEntityReplacesInPlace},
		{"GetEntityMissing", testGetEntityMissing},
		{"DeleteEntity", testDeleteEntity},
		{"CollectionsAreIndependent", testCollectionsAreIndependent},
		{"RecordPutHasDelete", testRecordPutHasDelete},
		{"RecordKeyWithDashes", testRecordKeyWithDashes},
		{"QueryByDateRangeInclusive", testQueryByDateRangeInclusive},
		{"QueryByChildAndSubject", testQueryByChildAndSubject},
		{"QueryOrdering", testQueryOrdering},
		{"DeleteRecordsByQuery", testDeleteRecordsByQuery},
		{"SchoolYearSingleton", testSchoolYearSingleton},
		{"Reset", testReset},
		{"TrackerEndToEnd", testTrackerEndToEnd},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tc.fn(t, s)
		})
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func rec(date, child, subject string) homeschool.Record {
	return homeschool.Record{
		Date:      homeschool.MustParseDate(date),
		ChildID:   child,
		SubjectID: subject,
		Completed: true,
	}
}

func key(date, child, subject string) homeschool.RecordKey {
	return rec(date, child, subject).Key()
}

func putRecords(t *testing.T, s homeschool.Store, records ...homeschool.Record) {
	t.Helper()
	for _, r := range records {
		require.NoError(t, s.PutRecord(context.Background(), r))
	}
}

func ids(entities []homeschool.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.ID
	}
	return out
}

func keys(records []homeschool.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Key().String()
	}
	return out
}

// =============================================================================
// ENTITIES
// =============================================================================

func testEntitiesKeepInsertionOrder(t *testing.T, s homeschool.Store) {
	ctx := context.Background()

	for i, id := range []string{"zed", "amy", "mid"} {
		require.NoError(t, s.PutEntity(ctx, homeschool.Children, homeschool.Entity{ID: id, Name: id, Order: i}))
	}

	list, err := s.ListEntities(ctx, homeschool.Children)
	require.NoError(t, err)
	assert.Equal(t, []string{"zed", "amy", "mid"}, ids(list))

	n, err := s.CountEntities(ctx, homeschool.Children)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func testPutEntityReplacesInPlace(t *testing.T, s homeschool.Store) {
	ctx := context.Background()

	require.NoError(t, s.PutEntity(ctx, homeschool.Subjects, homeschool.Entity{ID: "a", Name: "A", Order: 0}))
	require.NoError(t, s.PutEntity(ctx, homeschool.Subjects, homeschool.Entity{ID: "b", Name: "B", Order: 1}))
	require.NoError(t, s.PutEntity(ctx, homeschool.Subjects, homeschool.Entity{ID: "a", Name: "Renamed", Order: 5}))

	list, err := s.ListEntities(ctx, homeschool.Subjects)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, homeschool.Entity{ID: "a", Name: "Renamed", Order: 5}, list[0], "replace keeps position")
	assert.Equal(t, "b", list[1].ID)
}

func testGetEntityMissing(t *testing.T, s homeschool.Store) {
	e, err := s.GetEntity(context.Background(), homeschool.Children, "nobody")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func testDeleteEntity(t *testing.T, s homeschool.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutEntity(ctx, homeschool.Children, homeschool.Entity{ID: "c1", Name: "One"}))

	existed, err := s.DeleteEntity(ctx, homeschool.Children, "c1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.DeleteEntity(ctx, homeschool.Children, "c1")
	require.NoError(t, err)
	assert.False(t, existed, "second delete finds nothing")

	e, err := s.GetEntity(ctx, homeschool.Children, "c1")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func testCollectionsAreIndependent(t *testing.T, s homeschool.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutEntity(ctx, homeschool.Children, homeschool.Entity{ID: "same", Name: "Kid"}))
	require.NoError(t, s.PutEntity(ctx, homeschool.Subjects, homeschool.Entity{ID: "same", Name: "Art"}))

	child, err := s.GetEntity(ctx, homeschool.Children, "same")
	require.NoError(t, err)
	require.NotNil(t, child)
	assert.Equal(t, "Kid", child.Name)

	subject, err := s.GetEntity(ctx, homeschool.Subjects, "same")
	require.NoError(t, err)
	require.NotNil(t, subject)
	assert.Equal(t, "Art", subject.Name)
}

// =============================================================================
// RECORDS
// =============================================================================

func testRecordPutHasDelete(t *testing.T, s homeschool.Store) {
	ctx := context.Background()
	k := key("2024-09-03", "child-a", "math")

	has, err := s.HasRecord(ctx, k)
	require.NoError(t, err)
	assert.False(t, has)

	putRecords(t, s, rec("2024-09-03", "child-a", "math"))
	putRecords(t, s, rec("2024-09-03", "child-a", "math"))

	has, err = s.HasRecord(ctx, k)
	require.NoError(t, err)
	assert.True(t, has)

	all, err := s.QueryRecords(ctx, homeschool.RecordQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 1, "put is an upsert on the composite key")

	existed, err := s.DeleteRecord(ctx, k)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.DeleteRecord(ctx, k)
	require.NoError(t, err)
	assert.False(t, existed)
}

func testRecordKeyWithDashes(t *testing.T, s homeschool.Store) {
	// "a-b" + "c" and "a" + "b-c" join to the same legacy string.
	ctx := context.Background()
	putRecords(t, s,
		rec("2024-09-03", "a-b", "c"),
		rec("2024-09-03", "a", "b-c"),
	)

	all, err := s.QueryRecords(ctx, homeschool.RecordQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	existed, err := s.DeleteRecord(ctx, key("2024-09-03", "a", "b-c"))
	require.NoError(t, err)
	assert.True(t, existed)

	has, err := s.HasRecord(ctx, key("2024-09-03", "a-b", "c"))
	require.NoError(t, err)
	assert.True(t, has)
}

func testQueryByDateRangeInclusive(t *testing.T, s homeschool.Store) {
	ctx := context.Background()
	putRecords(t, s,
		rec("2024-08-31", "c", "s"),
		rec("2024-09-01", "c", "s"),
		rec("2024-09-15", "c", "s"),
		rec("2024-09-30", "c", "s"),
		rec("2024-10-01", "c", "s"),
	)

	got, err := s.QueryRecords(ctx, homeschool.InRange(homeschool.DateRange{
		Start: homeschool.MustParseDate("2024-09-01"),
		End:   homeschool.MustParseDate("2024-09-30"),
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-09-01-c-s", "2024-09-15-c-s", "2024-09-30-c-s"}, keys(got))

	got, err = s.QueryRecords(ctx, homeschool.OnDate(homeschool.MustParseDate("2024-09-15")))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-09-15-c-s"}, keys(got))
}

func testQueryByChildAndSubject(t *testing.T, s homeschool.Store) {
	ctx := context.Background()
	putRecords(t, s,
		rec("2024-09-03", "c1", "math"),
		rec("2024-09-03", "c1", "art"),
		rec("2024-09-03", "c2", "math"),
		rec("2024-09-04", "c1", "math"),
	)

	byChild, err := s.QueryRecords(ctx, homeschool.ForChild("c1"))
	require.NoError(t, err)
	assert.Len(t, byChild, 3)

	bySubject, err := s.QueryRecords(ctx, homeschool.ForSubject("math"))
	require.NoError(t, err)
	assert.Len(t, bySubject, 3)

	q := homeschool.OnDate(homeschool.MustParseDate("2024-09-03"))
	q.ChildID = "c1"
	byDateChild, err := s.QueryRecords(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-09-03-c1-art", "2024-09-03-c1-math"}, keys(byDateChild))
}

func testQueryOrdering(t *testing.T, s homeschool.Store) {
	ctx := context.Background()
	putRecords(t, s,
		rec("2024-09-04", "b", "x"),
		rec("2024-09-03", "b", "y"),
		rec("2024-09-03", "a", "z"),
		rec("2024-09-03", "b", "x"),
	)

	got, err := s.QueryRecords(ctx, homeschool.RecordQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-09-03-a-z",
		"2024-09-03-b-x",
		"2024-09-03-b-y",
		"2024-09-04-b-x",
	}, keys(got))
}

func testDeleteRecordsByQuery(t *testing.T, s homeschool.Store) {
	ctx := context.Background()
	putRecords(t, s,
		rec("2024-09-03", "c1", "math"),
		rec("2024-09-04", "c1", "art"),
		rec("2024-09-03", "c2", "math"),
		rec("2024-09-03", "c2", "art"),
	)

	n, err := s.DeleteRecords(ctx, homeschool.ForChild("c1"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.DeleteRecords(ctx, homeschool.ForSubject("math"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := s.QueryRecords(ctx, homeschool.RecordQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-09-03-c2-art"}, keys(left))
}

// =============================================================================
// SCHOOL YEAR & RESET
// =============================================================================

func testSchoolYearSingleton(t *testing.T, s homeschool.Store) {
	ctx := context.Background()

	y, err := s.GetSchoolYear(ctx)
	require.NoError(t, err)
	assert.Nil(t, y, "absent before the first put")

	first := homeschool.SchoolYear{
		StartDate: homeschool.MustParseDate("2024-09-01"),
		EndDate:   homeschool.MustParseDate("2025-06-30"),
	}
	second := homeschool.SchoolYear{
		StartDate: homeschool.MustParseDate("2025-08-15"),
		EndDate:   homeschool.MustParseDate("2026-05-31"),
	}
	require.NoError(t, s.PutSchoolYear(ctx, first))
	require.NoError(t, s.PutSchoolYear(ctx, second))

	y, err = s.GetSchoolYear(ctx)
	require.NoError(t, err)
	require.NotNil(t, y)
	assert.Equal(t, second.StartDate.String(), y.StartDate.String())
	assert.Equal(t, second.EndDate.String(), y.EndDate.String())
}

func testReset(t *testing.T, s homeschool.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutEntity(ctx, homeschool.Children, homeschool.Entity{ID: "c", Name: "C"}))
	require.NoError(t, s.PutEntity(ctx, homeschool.Subjects, homeschool.Entity{ID: "s", Name: "S"}))
	putRecords(t, s, rec("2024-09-03", "c", "s"))
	require.NoError(t, s.PutSchoolYear(ctx, homeschool.DefaultSchoolYear(homeschool.NewDate(2024, 9, 1).Time)))

	require.NoError(t, s.Reset(ctx))

	for _, c := range []homeschool.Collection{homeschool.Children, homeschool.Subjects} {
		n, err := s.CountEntities(ctx, c)
		require.NoError(t, err)
		assert.Zero(t, n, c)
	}
	all, err := s.QueryRecords(ctx, homeschool.RecordQuery{})
	require.NoError(t, err)
	assert.Empty(t, all)
	y, err := s.GetSchoolYear(ctx)
	require.NoError(t, err)
	assert.Nil(t, y)

	// Usable again after reset.
	require.NoError(t, s.PutEntity(ctx, homeschool.Children, homeschool.Entity{ID: "c2", Name: "C2"}))
	list, err := s.ListEntities(ctx, homeschool.Children)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, ids(list))
}

// =============================================================================
// END TO END - Tracker over the backend
// =============================================================================

func testTrackerEndToEnd(t *testing.T, s homeschool.Store) {
	// GIVEN: A tracker seeded over this backend
	// WHEN: Toggling, summarizing, deleting a subject, clearing
	// THEN: The backend supports every tracker rule

	ctx := context.Background()
	tr, err := homeschool.New(ctx, s)
	require.NoError(t, err)

	d3 := homeschool.MustParseDate("2024-09-03")
	d4 := homeschool.MustParseDate("2024-09-04")
	for _, step := range []struct {
		date    homeschool.Date
		subject string
	}{{d3, "math"}, {d3, "reading"}, {d4, "math"}} {
		done, err := tr.ToggleRecord(ctx, step.date, "child-a", step.subject)
		require.NoError(t, err)
		require.True(t, done)
	}

	start, end := homeschool.MustParseDate("2024-09-01"), homeschool.MustParseDate("2024-09-30")
	sums, err := tr.Summarize(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, sums, 3)
	assert.Equal(t, 2, sums[0].TotalDays)
	assert.Equal(t, 2, sums[0].SubjectTotals["math"])
	assert.Equal(t, 1, sums[0].SubjectTotals["reading"])

	require.NoError(t, tr.DeleteSubject(ctx, "math"))
	left, err := s.QueryRecords(ctx, homeschool.ForSubject("math"))
	require.NoError(t, err)
	assert.Empty(t, left, "cascade removed math records")

	require.NoError(t, tr.Clear(ctx))
	subjects, err := tr.ListSubjects(ctx)
	require.NoError(t, err)
	assert.Len(t, subjects, 8)
}
