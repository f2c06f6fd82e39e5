// Package store opens a homeschool.Store backend by name.
package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/warp/homeschool-tracker/homeschool"
	memstore "github.com/warp/homeschool-tracker/homeschool/store"
	"github.com/warp/homeschool-tracker/store/kv"
	"github.com/warp/homeschool-tracker/store/sqlite"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Backends lists the names Open accepts.
var Backends = []string{BackendSQLite, BackendBadger, BackendMemory}

// Open creates the named backend. path is the SQLite file or the Badger
// directory; the memory backend ignores it. Parent directories are created.
func Open(backend, path string, logger *log.Logger) (homeschool.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendSQLite, "":
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		s, err := sqlite.New(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendBadger:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		var opts []kv.Option
		if logger != nil {
			opts = append(opts, kv.WithLogger(logger))
		}
		s, err := kv.New(path, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return memstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want one of %s)", backend, strings.Join(Backends, ", "))
	}
}
