package homeschool_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/homeschool-tracker/homeschool"
	"github.com/warp/homeschool-tracker/homeschool/store"
)

// =============================================================================
// TOGGLE PAIRING
// =============================================================================

func TestToggle_TwiceReturnsToOriginalState(t *testing.T) {
	// GIVEN: No record for (2024-09-03, child-a, math)
	// WHEN: Toggling twice
	// THEN: completed goes false -> true -> false

	tr, _ := newTestTracker(t)
	ctx := context.Background()
	d := date("2024-09-03")

	done, err := tr.IsRecordCompleted(ctx, d, "child-a", "math")
	require.NoError(t, err)
	assert.False(t, done)

	done, err = tr.ToggleRecord(ctx, d, "child-a", "math")
	require.NoError(t, err)
	assert.True(t, done, "first toggle creates")

	done, err = tr.IsRecordCompleted(ctx, d, "child-a", "math")
	require.NoError(t, err)
	assert.True(t, done)

	done, err = tr.ToggleRecord(ctx, d, "child-a", "math")
	require.NoError(t, err)
	assert.False(t, done, "second toggle removes")

	done, err = tr.IsRecordCompleted(ctx, d, "child-a", "math")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestToggle_ManyToggles_AtMostOneRecord(t *testing.T) {
	// GIVEN: Interleaved toggles over a few cells
	// WHEN: Each cell is toggled a different number of times
	// THEN: Odd counts leave exactly one record, even counts leave none

	tr, mem := newTestTracker(t)
	ctx := context.Background()

	counts := map[homeschool.Cell]int{
		{ChildID: "child-a", SubjectID: "math"}:    1,
		{ChildID: "child-a", SubjectID: "reading"}: 2,
		{ChildID: "child-b", SubjectID: "math"}:    5,
		{ChildID: "child-c", SubjectID: "pe"}:      4,
	}
	for round := 0; round < 5; round++ {
		for cell, n := range counts {
			if round < n {
				_, err := tr.ToggleRecord(ctx, date("2024-09-03"), cell.ChildID, cell.SubjectID)
				require.NoError(t, err)
			}
		}
	}

	for cell, n := range counts {
		q := homeschool.OnDate(date("2024-09-03"))
		q.ChildID, q.SubjectID = cell.ChildID, cell.SubjectID
		records, err := mem.QueryRecords(ctx, q)
		require.NoError(t, err)
		assert.Len(t, records, n%2, "%v toggled %d times", cell, n)
	}
}

func TestToggle_WritesCompletedTrue(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.ToggleRecord(ctx, date("2024-09-03"), "child-a", "math")
	require.NoError(t, err)

	records, err := tr.GetRecordsByDate(ctx, date("2024-09-03"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, homeschool.Record{
		Date: date("2024-09-03"), ChildID: "child-a", SubjectID: "math", Completed: true,
	}, records[0])
}

// =============================================================================
// REFERENCES & FAILURES
// =============================================================================

func TestToggle_UnknownChildOrSubject_NotFound(t *testing.T) {
	tr, mem := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.ToggleRecord(ctx, date("2024-09-03"), "child-z", "math")
	var nf *homeschool.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, homeschool.Children, nf.Kind)

	_, err = tr.ToggleRecord(ctx, date("2024-09-03"), "child-a", "latin")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, homeschool.Subjects, nf.Kind)

	records, err := mem.QueryRecords(ctx, homeschool.RecordQuery{})
	require.NoError(t, err)
	assert.Empty(t, records, "no record for dangling ids")
}

func TestToggle_ZeroDate_ValidationError(t *testing.T) {
	tr, _ := newTestTracker(t)
	_, err := tr.ToggleRecord(context.Background(), homeschool.Date{}, "child-a", "math")
	assert.ErrorIs(t, err, homeschool.ErrValidation)
}

func TestToggle_ExistenceCheckFailure_Aborts(t *testing.T) {
	// GIVEN: A backend whose existence check fails
	// WHEN: Toggling
	// THEN: StorageError and no record is created

	ctx := context.Background()
	fs := &failingStore{Memory: store.NewMemory()}
	tr, err := homeschool.New(ctx, fs)
	require.NoError(t, err)

	fs.failHas = true
	done, err := tr.ToggleRecord(ctx, date("2024-09-03"), "child-a", "math")
	assert.False(t, done)

	var serr *homeschool.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "toggle record", serr.Op)
	assert.ErrorIs(t, err, errDisk)
	assert.False(t, homeschool.IsClientError(err))

	records, err := fs.Memory.QueryRecords(ctx, homeschool.RecordQuery{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

// =============================================================================
// DAY COMPLETIONS
// =============================================================================

func TestDayCompletions(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.ToggleRecord(ctx, date("2024-09-03"), "child-a", "math")
	require.NoError(t, err)
	_, err = tr.ToggleRecord(ctx, date("2024-09-03"), "child-b", "pe")
	require.NoError(t, err)
	_, err = tr.ToggleRecord(ctx, date("2024-09-04"), "child-c", "bible")
	require.NoError(t, err)

	cells, err := tr.DayCompletions(ctx, date("2024-09-03"))
	require.NoError(t, err)
	assert.Equal(t, map[homeschool.Cell]bool{
		{ChildID: "child-a", SubjectID: "math"}: true,
		{ChildID: "child-b", SubjectID: "pe"}:   true,
	}, cells)
	assert.False(t, cells[homeschool.Cell{ChildID: "child-c", SubjectID: "bible"}])
}
