package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/homeschool-tracker/homeschool"
	"github.com/warp/homeschool-tracker/homeschool/store"
	"github.com/warp/homeschool-tracker/homeschool/storetest"
)

func TestMemory_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) homeschool.Store {
		return store.NewMemory()
	})
}

func TestMemory_ExportImportRoundTrip(t *testing.T) {
	// GIVEN: A memory store with entities, records and a school year
	// WHEN: Exporting its state into a fresh store
	// THEN: The fresh store answers every lookup the same way

	ctx := context.Background()
	src := store.NewMemory()
	require.NoError(t, src.PutEntity(ctx, homeschool.Children, homeschool.Entity{ID: "b", Name: "B", Order: 1}))
	require.NoError(t, src.PutEntity(ctx, homeschool.Children, homeschool.Entity{ID: "a", Name: "A", Order: 0}))
	require.NoError(t, src.PutEntity(ctx, homeschool.Subjects, homeschool.Entity{ID: "math", Name: "Math"}))
	require.NoError(t, src.PutRecord(ctx, homeschool.Record{
		Date: homeschool.MustParseDate("2024-09-03"), ChildID: "a", SubjectID: "math", Completed: true,
	}))
	year := homeschool.DefaultSchoolYear(homeschool.NewDate(2024, 10, 1).Time)
	require.NoError(t, src.PutSchoolYear(ctx, year))

	dst := store.NewMemory()
	dst.Import(src.Export())

	children, err := dst.ListEntities(ctx, homeschool.Children)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "b", children[0].ID, "insertion order survives")

	has, err := dst.HasRecord(ctx, homeschool.RecordKey{
		Date: homeschool.MustParseDate("2024-09-03"), ChildID: "a", SubjectID: "math",
	})
	require.NoError(t, err)
	assert.True(t, has)

	y, err := dst.GetSchoolYear(ctx)
	require.NoError(t, err)
	require.NotNil(t, y)
	assert.Equal(t, "2024-09-01", y.StartDate.String())
}

func TestMemory_IncompleteRecordIsAbsent(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	k := homeschool.RecordKey{Date: homeschool.MustParseDate("2024-09-03"), ChildID: "a", SubjectID: "math"}
	require.NoError(t, m.PutRecord(ctx, homeschool.Record{Date: k.Date, ChildID: k.ChildID, SubjectID: k.SubjectID}))

	has, err := m.HasRecord(ctx, k)
	require.NoError(t, err)
	assert.False(t, has, "completed=false reads as not completed")
}
