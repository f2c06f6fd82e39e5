package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/homeschool-tracker/homeschool"
	"github.com/warp/homeschool-tracker/store"
)

func TestOpen_AllBackends(t *testing.T) {
	dir := t.TempDir()
	paths := map[string]string{
		store.BackendSQLite: filepath.Join(dir, "nested", "homeschool.db"),
		store.BackendBadger: filepath.Join(dir, "badger"),
		store.BackendMemory: "",
	}

	for _, backend := range store.Backends {
		t.Run(backend, func(t *testing.T) {
			s, err := store.Open(backend, paths[backend], nil)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })

			tr, err := homeschool.New(context.Background(), s)
			require.NoError(t, err)
			children, err := tr.ListChildren(context.Background())
			require.NoError(t, err)
			assert.Len(t, children, 3)
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := store.Open("postgres", "", nil)
	assert.ErrorContains(t, err, "unknown backend")
}
