package boltdb

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/examiner/storage/database"
)

func (db *DB) bucket(tx *bolt.Tx, collection string) (*bolt.Bucket, error) {
	if err := db.layout.Has(collection); err != nil {
		return nil, err
	}
	b := tx.Bucket([]byte(collection))
	if b == nil {
		return nil, errors.Wrap(database.ErrUnknownCollection, collection)
	}
	return b, nil
}

// copyBytes detaches a value from the transaction it was read in.
func copyBytes(v []byte) []byte {
	return append([]byte(nil), v...)
}

func (db *DB) GetAll(ctx context.Context, collection string, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var raws [][]byte
	err := db.bolt.View(func(tx *bolt.Tx) error {
		b, err := db.bucket(tx, collection)
		if err != nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			raws = append(raws, copyBytes(v))
			return nil
		})
	})
	if err != nil {
		return errors.Wrapf(err, "getting all %s", collection)
	}
	return database.DecodeList(raws, dest)
}

func (db *DB) GetByID(ctx context.Context, collection string, id int, dest interface{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var raw []byte
	err := db.bolt.View(func(tx *bolt.Tx) error {
		b, err := db.bucket(tx, collection)
		if err != nil {
			return err
		}
		if v := b.Get(database.Itob(id)); v != nil {
			raw = copyBytes(v)
		}
		return nil
	})
	if err != nil {
		return false, errors.Wrapf(err, "getting %s %d", collection, id)
	}
	if raw == nil {
		return false, nil
	}
	return true, database.DecodeOne(raw, dest)
}

// lookup returns the ids indexed under value, in id order; first stops after one match.
func (db *DB) lookup(tx *bolt.Tx, collection, field string, value interface{}, first bool) ([]int, error) {
	idx, err := db.layout.Index(collection, field)
	if err != nil {
		return nil, err
	}
	key, err := database.ValueKey(value)
	if err != nil {
		return nil, err
	}
	ib := tx.Bucket(indexBucketName(idx))
	if ib == nil {
		return nil, errors.Wrap(database.ErrUnknownIndex, collection+"."+field)
	}

	if idx.Unique {
		if v := ib.Get(key); v != nil {
			return []int{database.Btoi(v)}, nil
		}
		return nil, nil
	}

	var ids []int
	prefix := database.EntryPrefix(key)
	c := ib.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		ids = append(ids, database.Btoi(k[len(prefix):]))
		if first {
			break
		}
	}
	return ids, nil
}

func (db *DB) GetByIndex(ctx context.Context, collection, index string, value, dest interface{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var raw []byte
	err := db.bolt.View(func(tx *bolt.Tx) error {
		b, err := db.bucket(tx, collection)
		if err != nil {
			return err
		}
		ids, err := db.lookup(tx, collection, index, value, true)
		if err != nil || len(ids) == 0 {
			return err
		}
		if v := b.Get(database.Itob(ids[0])); v != nil {
			raw = copyBytes(v)
		}
		return nil
	})
	if err != nil {
		return false, errors.Wrapf(err, "getting %s by %s", collection, index)
	}
	if raw == nil {
		return false, nil
	}
	return true, database.DecodeOne(raw, dest)
}

func (db *DB) GetAllByIndex(ctx context.Context, collection, index string, value, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var raws [][]byte
	err := db.bolt.View(func(tx *bolt.Tx) error {
		b, err := db.bucket(tx, collection)
		if err != nil {
			return err
		}
		ids, err := db.lookup(tx, collection, index, value, false)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if v := b.Get(database.Itob(id)); v != nil {
				raws = append(raws, copyBytes(v))
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "getting all %s by %s", collection, index)
	}
	return database.DecodeList(raws, dest)
}

func (db *DB) Add(ctx context.Context, collection string, record interface{}) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var id int
	err := db.bolt.Update(func(tx *bolt.Tx) error {
		var err error
		id, err = db.add(tx, collection, record)
		return err
	})
	if err != nil {
		return 0, errors.Wrapf(err, "adding to %s", collection)
	}
	return id, nil
}

func (db *DB) add(tx *bolt.Tx, collection string, record interface{}) (int, error) {
	b, err := db.bucket(tx, collection)
	if err != nil {
		return 0, err
	}
	doc, err := database.Encode(record)
	if err != nil {
		return 0, err
	}
	seq, err := b.NextSequence()
	if err != nil {
		return 0, errors.Wrap(err, "allocating id")
	}
	id := int(seq)
	doc.SetID(id)

	indexes := db.layout[collection]
	for _, idx := range indexes {
		if err = checkUnique(tx, idx, doc, id); err != nil {
			return 0, err
		}
	}
	for _, idx := range indexes {
		if err = putIndexEntry(tx.Bucket(indexBucketName(idx)), idx, doc, id); err != nil {
			return 0, err
		}
	}
	raw, err := doc.Marshal()
	if err != nil {
		return 0, err
	}
	return id, b.Put(database.Itob(id), raw)
}

func (db *DB) Update(ctx context.Context, collection string, id int, patch, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var raw []byte
	err := db.bolt.Update(func(tx *bolt.Tx) error {
		b, err := db.bucket(tx, collection)
		if err != nil {
			return err
		}
		stored := b.Get(database.Itob(id))
		if stored == nil {
			return database.ErrNotFound
		}
		old, err := database.Encode(json.RawMessage(stored))
		if err != nil {
			return err
		}
		changes, err := database.Encode(patch)
		if err != nil {
			return err
		}
		doc := old.Clone()
		doc.Merge(changes)
		doc.SetID(id)

		indexes := db.layout[collection]
		for _, idx := range indexes {
			if err = checkUnique(tx, idx, doc, id); err != nil {
				return err
			}
		}
		for _, idx := range indexes {
			ib := tx.Bucket(indexBucketName(idx))
			if err = deleteIndexEntry(ib, idx, old, id); err != nil {
				return err
			}
			if err = putIndexEntry(ib, idx, doc, id); err != nil {
				return err
			}
		}
		if raw, err = doc.Marshal(); err != nil {
			return err
		}
		return b.Put(database.Itob(id), raw)
	})
	if err != nil {
		return errors.Wrapf(err, "updating %s %d", collection, id)
	}
	return database.DecodeOne(raw, dest)
}

func (db *DB) Remove(ctx context.Context, collection string, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := db.bolt.Update(func(tx *bolt.Tx) error {
		b, err := db.bucket(tx, collection)
		if err != nil {
			return err
		}
		stored := b.Get(database.Itob(id))
		if stored == nil {
			return nil
		}
		doc, err := database.Encode(json.RawMessage(stored))
		if err != nil {
			return err
		}
		for _, idx := range db.layout[collection] {
			if err = deleteIndexEntry(tx.Bucket(indexBucketName(idx)), idx, doc, id); err != nil {
				return err
			}
		}
		return b.Delete(database.Itob(id))
	})
	return errors.Wrapf(err, "removing %s %d", collection, id)
}

// checkUnique fails when another record than id already holds doc's value of a unique index.
func checkUnique(tx *bolt.Tx, idx database.Index, doc database.Document, id int) error {
	if !idx.Unique {
		return nil
	}
	key, ok := doc.IndexKey(idx.Field)
	if !ok {
		return nil
	}
	if v := tx.Bucket(indexBucketName(idx)).Get(key); v != nil && database.Btoi(v) != id {
		return &database.ConstraintError{Collection: idx.Collection, Index: idx.Field, Value: string(key)}
	}
	return nil
}

func putIndexEntry(ib *bolt.Bucket, idx database.Index, doc database.Document, id int) error {
	key, ok := doc.IndexKey(idx.Field)
	if !ok {
		return nil
	}
	if idx.Unique {
		if v := ib.Get(key); v != nil && database.Btoi(v) != id {
			return &database.ConstraintError{Collection: idx.Collection, Index: idx.Field, Value: string(key)}
		}
		return ib.Put(key, database.Itob(id))
	}
	return ib.Put(database.EntryKey(key, id), []byte{})
}

func deleteIndexEntry(ib *bolt.Bucket, idx database.Index, doc database.Document, id int) error {
	key, ok := doc.IndexKey(idx.Field)
	if !ok {
		return nil
	}
	if idx.Unique {
		if v := ib.Get(key); v != nil && database.Btoi(v) == id {
			return ib.Delete(key)
		}
		return nil
	}
	return ib.Delete(database.EntryKey(key, id))
}
