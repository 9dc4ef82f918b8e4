package bolt

import (
	"fmt"
	"time"

	"github.com/nextdhcp/nextshort/core/lease/storage"
	"go.etcd.io/bbolt"
)

// FileMode is used when the database file is created
const FileMode = 0o660

func init() {
	storage.MustRegister("bolt", indexFactory)
}

func indexFactory(arguments map[string][]string) (storage.Index, error) {
	file := ""

	if args, ok := arguments["__args__"]; ok && len(args) > 0 {
		file = args[0]
	} else if f, ok := arguments["file"]; ok {
		if len(f) != 1 {
			return nil, fmt.Errorf("exactly one database file must be configured")
		}

		file = f[0]
	} else {
		return nil, fmt.Errorf("no database file configured")
	}

	timeout := time.Second
	if t, ok := arguments["timeout"]; ok {
		if len(t) != 1 {
			return nil, fmt.Errorf("timeout expects exactly one duration")
		}

		d, err := time.ParseDuration(t[0])
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
		timeout = d
	}

	return Open(file, timeout)
}

// Open opens or creates the bbolt database at path and migrates it to
// the current SchemaVersion
func Open(path string, timeout time.Duration) (*Index, error) {
	db, err := bbolt.Open(path, FileMode, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, err
	}

	if err := migrateDatabase(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}

	return &Index{db: db, path: path}, nil
}
