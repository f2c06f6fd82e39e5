package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/homeschool-tracker/homeschool"
	"github.com/warp/homeschool-tracker/homeschool/storetest"
	"github.com/warp/homeschool-tracker/store/sqlite"
)

func TestSQLite_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) homeschool.Store {
		s, err := sqlite.New(":memory:")
		require.NoError(t, err)
		return s
	})
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	// GIVEN: A tracker over a SQLite file with one completed record
	// WHEN: The store is closed and reopened
	// THEN: Entities, records and the school year are still there

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "homeschool.db")

	s, err := sqlite.New(path)
	require.NoError(t, err)
	tr, err := homeschool.New(ctx, s)
	require.NoError(t, err)
	id, err := tr.AddChild(ctx, "Ada")
	require.NoError(t, err)
	_, err = tr.ToggleRecord(ctx, homeschool.MustParseDate("2024-09-03"), id, "math")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	tr, err = homeschool.New(ctx, s)
	require.NoError(t, err)

	children, err := tr.ListChildren(ctx)
	require.NoError(t, err)
	require.Len(t, children, 4, "no reseeding over existing data")
	assert.Equal(t, id, children[3].ID)

	done, err := tr.IsRecordCompleted(ctx, homeschool.MustParseDate("2024-09-03"), id, "math")
	require.NoError(t, err)
	assert.True(t, done)

	y, err := tr.GetSchoolYear(ctx)
	require.NoError(t, err)
	assert.NotNil(t, y)
}
