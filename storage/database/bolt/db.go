package boltdb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/user"
	"github.com/trezcool/examiner/storage/database"
)

var (
	metaBucket    = []byte("meta")
	versionKey    = []byte("version")
	sessionBucket = []byte("session")
)

// DB is a database.Store persisted in a single bbolt file.
type DB struct {
	bolt    *bolt.DB
	layout  database.Layout
	version int
}

var _ database.Store = (*DB)(nil) // interface compliance check

type Options struct {
	Timeout time.Duration // how long to wait for the file lock
}

// Open opens (creating it if needed) the store at path and applies pending schema migrations.
// Any failure to obtain the file is reported as database.ErrStorageUnavailable.
func Open(path string, schema database.Schema, opts ...Options) (*DB, error) {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 5 * time.Second
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrapf(database.ErrStorageUnavailable, "creating %s: %v", dir, err)
		}
	}
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: opt.Timeout})
	if err != nil {
		return nil, errors.Wrapf(database.ErrStorageUnavailable, "opening %s: %v", path, err)
	}

	db := &DB{bolt: bdb}
	if err = db.migrate(schema); err != nil {
		_ = bdb.Close()
		return nil, errors.Wrap(err, "migrating database")
	}
	return db, nil
}

// OpenConfig opens the application store configured in conf. A new store is seeded with the
// configured administrator.
func OpenConfig(conf *core.Config) (*DB, error) {
	schema := database.AppSchema(func() (interface{}, error) {
		return user.New(conf.Database.AdminEmail, conf.Database.AdminUsername, conf.Database.AdminPassword, true)
	})
	return Open(conf.Database.Path, schema, Options{Timeout: conf.Database.OpenTimeout})
}

// FileVersion reads the schema version of the store at path without migrating it.
// A missing file is at version 0.
func FileVersion(path string, timeout time.Duration) (int, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return 0, nil
	}
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout, ReadOnly: true})
	if err != nil {
		return 0, errors.Wrapf(database.ErrStorageUnavailable, "opening %s: %v", path, err)
	}
	defer bdb.Close()

	var version int
	err = bdb.View(func(tx *bolt.Tx) error {
		version = readVersion(tx)
		return nil
	})
	return version, err
}

func (db *DB) Version() int { return db.version }

func (db *DB) Close() error { return db.bolt.Close() }

func readVersion(tx *bolt.Tx) int {
	b := tx.Bucket(metaBucket)
	if b == nil {
		return 0
	}
	if v := b.Get(versionKey); len(v) == 8 {
		return database.Btoi(v)
	}
	return 0
}

// migrate applies every pending migration in one transaction: either the schema is fully upgraded
// or the file is left as it was.
func (db *DB) migrate(schema database.Schema) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return errors.Wrap(err, "creating meta bucket")
		}
		if _, err = tx.CreateBucketIfNotExists(sessionBucket); err != nil {
			return errors.Wrap(err, "creating session bucket")
		}

		current := readVersion(tx)
		if current > schema.Version() {
			return fmt.Errorf("database schema version %d is newer than supported version %d", current, schema.Version())
		}

		for _, m := range schema.Pending(current) {
			for _, coll := range m.Collections {
				if _, err = tx.CreateBucketIfNotExists([]byte(coll)); err != nil {
					return errors.Wrapf(err, "v%d: creating collection %s", m.Version, coll)
				}
			}
			for _, idx := range m.Indexes {
				if err = buildIndex(tx, idx); err != nil {
					return errors.Wrapf(err, "v%d: building index %s.%s", m.Version, idx.Collection, idx.Field)
				}
			}

			// layout as of this migration, so seeds keep indexes consistent
			db.layout = schema.Layout(m.Version)
			if m.Seed != nil {
				add := func(coll string, record interface{}) (int, error) {
					return db.add(tx, coll, record)
				}
				if err = m.Seed(add); err != nil {
					return errors.Wrapf(err, "v%d: seeding", m.Version)
				}
			}
			if err = meta.Put(versionKey, database.Itob(m.Version)); err != nil {
				return errors.Wrapf(err, "v%d: saving version", m.Version)
			}
			current = m.Version
		}

		db.version = current
		db.layout = schema.Layout(current)
		return nil
	})
}

// buildIndex (re)creates the index bucket from the records already in the collection.
func buildIndex(tx *bolt.Tx, idx database.Index) error {
	data := tx.Bucket([]byte(idx.Collection))
	if data == nil {
		return errors.Wrap(database.ErrUnknownCollection, idx.Collection)
	}
	name := indexBucketName(idx)
	if tx.Bucket(name) != nil {
		if err := tx.DeleteBucket(name); err != nil {
			return err
		}
	}
	ib, err := tx.CreateBucket(name)
	if err != nil {
		return err
	}
	return data.ForEach(func(k, v []byte) error {
		doc, err := database.Encode(json.RawMessage(v))
		if err != nil {
			return err
		}
		return putIndexEntry(ib, idx, doc, database.Btoi(k))
	})
}

func indexBucketName(idx database.Index) []byte {
	return []byte("idx:" + idx.Collection + ":" + idx.Field)
}
