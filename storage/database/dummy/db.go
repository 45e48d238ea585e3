package dummydb

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/examiner/storage/database"
)

type (
	// DB is an in-memory database.Store with the same semantics as the bbolt store.
	DB struct {
		layout  database.Layout
		version int
		tables  map[string]*table
	}

	table struct {
		sync.RWMutex
		pkCount int
		rows    map[int]database.Document
	}
)

var _ database.Store = (*DB)(nil) // interface compliance check

// Open returns an empty store at the latest schema version, seeded like a new bbolt file.
func Open(schema database.Schema) (*DB, error) {
	db := &DB{tables: make(map[string]*table)}
	for _, m := range schema.Pending(0) {
		for _, coll := range m.Collections {
			if _, ok := db.tables[coll]; !ok {
				db.tables[coll] = &table{rows: make(map[int]database.Document)}
			}
		}
		db.layout = schema.Layout(m.Version)
		if m.Seed != nil {
			add := func(coll string, record interface{}) (int, error) {
				return db.Add(context.Background(), coll, record)
			}
			if err := m.Seed(add); err != nil {
				return nil, errors.Wrapf(err, "v%d: seeding", m.Version)
			}
		}
		db.version = m.Version
	}
	return db, nil
}

func (db *DB) Version() int { return db.version }

func (db *DB) Close() error { return nil }

func (db *DB) table(collection string) (*table, error) {
	t, ok := db.tables[collection]
	if !ok {
		return nil, errors.Wrap(database.ErrUnknownCollection, collection)
	}
	return t, nil
}

// sorted returns the table's ids in ascending order; callers hold the lock.
func (t *table) sorted() []int {
	ids := make([]int, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func marshalAll(docs []database.Document) ([][]byte, error) {
	raws := make([][]byte, 0, len(docs))
	for _, doc := range docs {
		raw, err := doc.Marshal()
		if err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

func (db *DB) GetAll(ctx context.Context, collection string, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := db.table(collection)
	if err != nil {
		return err
	}
	t.RLock()
	docs := make([]database.Document, 0, len(t.rows))
	for _, id := range t.sorted() {
		docs = append(docs, t.rows[id])
	}
	t.RUnlock()

	raws, err := marshalAll(docs)
	if err != nil {
		return err
	}
	return database.DecodeList(raws, dest)
}

func (db *DB) GetByID(ctx context.Context, collection string, id int, dest interface{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	t, err := db.table(collection)
	if err != nil {
		return false, err
	}
	t.RLock()
	doc, ok := t.rows[id]
	t.RUnlock()
	if !ok {
		return false, nil
	}
	raw, err := doc.Marshal()
	if err != nil {
		return false, err
	}
	return true, database.DecodeOne(raw, dest)
}

// filter returns the documents whose indexed field equals value, in id order.
func (db *DB) filter(collection, field string, value interface{}) ([]database.Document, error) {
	t, err := db.table(collection)
	if err != nil {
		return nil, err
	}
	if _, err = db.layout.Index(collection, field); err != nil {
		return nil, err
	}
	key, err := database.ValueKey(value)
	if err != nil {
		return nil, err
	}

	t.RLock()
	defer t.RUnlock()
	var docs []database.Document
	for _, id := range t.sorted() {
		if k, ok := t.rows[id].IndexKey(field); ok && bytes.Equal(k, key) {
			docs = append(docs, t.rows[id])
		}
	}
	return docs, nil
}

func (db *DB) GetByIndex(ctx context.Context, collection, index string, value, dest interface{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	docs, err := db.filter(collection, index, value)
	if err != nil || len(docs) == 0 {
		return false, err
	}
	raw, err := docs[0].Marshal()
	if err != nil {
		return false, err
	}
	return true, database.DecodeOne(raw, dest)
}

func (db *DB) GetAllByIndex(ctx context.Context, collection, index string, value, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	docs, err := db.filter(collection, index, value)
	if err != nil {
		return err
	}
	raws, err := marshalAll(docs)
	if err != nil {
		return err
	}
	return database.DecodeList(raws, dest)
}

// checkUnique fails when a record other than id holds one of doc's unique values; callers hold the lock.
func (db *DB) checkUnique(t *table, collection string, doc database.Document, id int) error {
	for _, idx := range db.layout[collection] {
		if !idx.Unique {
			continue
		}
		key, ok := doc.IndexKey(idx.Field)
		if !ok {
			continue
		}
		for otherID, other := range t.rows {
			if otherID == id {
				continue
			}
			if k, ok := other.IndexKey(idx.Field); ok && bytes.Equal(k, key) {
				return &database.ConstraintError{Collection: collection, Index: idx.Field, Value: string(key)}
			}
		}
	}
	return nil
}

func (db *DB) Add(ctx context.Context, collection string, record interface{}) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t, err := db.table(collection)
	if err != nil {
		return 0, err
	}
	doc, err := database.Encode(record)
	if err != nil {
		return 0, err
	}

	t.Lock()
	defer t.Unlock()

	id := t.pkCount + 1
	doc.SetID(id)
	if err = db.checkUnique(t, collection, doc, id); err != nil {
		return 0, errors.Wrapf(err, "adding to %s", collection)
	}
	t.pkCount = id
	t.rows[id] = doc
	return id, nil
}

func (db *DB) Update(ctx context.Context, collection string, id int, patch, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := db.table(collection)
	if err != nil {
		return err
	}
	changes, err := database.Encode(patch)
	if err != nil {
		return err
	}

	t.Lock()
	orig, ok := t.rows[id]
	if !ok {
		t.Unlock()
		return errors.Wrapf(database.ErrNotFound, "updating %s %d", collection, id)
	}
	doc := orig.Clone()
	doc.Merge(changes)
	doc.SetID(id)
	if err = db.checkUnique(t, collection, doc, id); err != nil {
		t.Unlock()
		return errors.Wrapf(err, "updating %s %d", collection, id)
	}
	t.rows[id] = doc
	t.Unlock()

	raw, err := doc.Marshal()
	if err != nil {
		return err
	}
	return database.DecodeOne(raw, dest)
}

func (db *DB) Remove(ctx context.Context, collection string, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := db.table(collection)
	if err != nil {
		return err
	}
	t.Lock()
	defer t.Unlock()
	delete(t.rows, id)
	return nil
}
