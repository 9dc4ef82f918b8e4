package bolt

import (
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	schemaVersionBucket = []byte("schema-version")
	schemaVersionKey    = []byte("nextshort-schema-version")
)

type migrationFunc func(*bbolt.Tx) error

var migrations = map[string]migrationFunc{
	"0": v0ToV1,
}

func migrateDatabase(db *bbolt.DB) error {
	return db.Update(func(tx *bbolt.Tx) error {
		versionBucket, err := tx.CreateBucketIfNotExists(schemaVersionBucket)
		if err != nil {
			return err
		}

		version := schemaVersion(versionBucket)

		for version != SchemaVersion {
			migrator, ok := migrations[version]
			if !ok {
				return fmt.Errorf("cannot migrate from %q", version)
			}

			if err := migrator(tx); err != nil {
				return err
			}

			version = schemaVersion(versionBucket)
		}

		return nil
	})
}

func schemaVersion(bucket *bbolt.Bucket) string {
	version := string(bucket.Get(schemaVersionKey))
	if version == "" {
		return "0"
	}
	return version
}

// v0ToV1 initializes a new database with the lease buckets
func v0ToV1(tx *bbolt.Tx) error {
	if _, _, err := openOrCreateBuckets(tx); err != nil {
		return err
	}

	return tx.Bucket(schemaVersionBucket).Put(schemaVersionKey, []byte("1"))
}
