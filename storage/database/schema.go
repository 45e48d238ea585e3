package database

import (
	"sort"

	"github.com/pkg/errors"
)

type (
	Index struct {
		Collection string
		Field      string
		Unique     bool
	}

	// AddFunc stores a record while a migration runs.
	AddFunc func(collection string, record interface{}) (int, error)

	// Migration moves the schema to Version. Declared collections and indexes are created if absent;
	// new indexes are built from the records already stored. Seed runs once, after the layout changes.
	Migration struct {
		Version     int
		Description string
		Collections []string
		Indexes     []Index
		Seed        func(add AddFunc) error
	}

	Schema struct {
		Migrations []Migration
	}

	// Layout is the set of collections and their indexes at a given version.
	Layout map[string][]Index
)

// Version is the version of the latest migration.
func (s Schema) Version() int {
	var v int
	for _, m := range s.Migrations {
		if m.Version > v {
			v = m.Version
		}
	}
	return v
}

// Pending returns the migrations above version, in order.
func (s Schema) Pending(version int) []Migration {
	pending := make([]Migration, 0, len(s.Migrations))
	for _, m := range s.Migrations {
		if m.Version > version {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })
	return pending
}

// Layout returns the collections and indexes declared up to version.
func (s Schema) Layout(version int) Layout {
	layout := make(Layout)
	for _, m := range s.Migrations {
		if m.Version > version {
			continue
		}
		for _, coll := range m.Collections {
			if _, ok := layout[coll]; !ok {
				layout[coll] = nil
			}
		}
		for _, idx := range m.Indexes {
			layout[idx.Collection] = append(layout[idx.Collection], idx)
		}
	}
	return layout
}

// Index returns the declared index of collection on field.
func (l Layout) Index(collection, field string) (Index, error) {
	indexes, ok := l[collection]
	if !ok {
		return Index{}, errors.Wrap(ErrUnknownCollection, collection)
	}
	for _, idx := range indexes {
		if idx.Field == field {
			return idx, nil
		}
	}
	return Index{}, errors.Wrap(ErrUnknownIndex, collection+"."+field)
}

// Has reports whether the collection is declared.
func (l Layout) Has(collection string) error {
	if _, ok := l[collection]; !ok {
		return errors.Wrap(ErrUnknownCollection, collection)
	}
	return nil
}

// AppSchema is the schema of the exam administration store.
// seedAdmin builds the bootstrap administrator stored on first creation; nil skips seeding.
func AppSchema(seedAdmin func() (interface{}, error)) Schema {
	return Schema{Migrations: []Migration{
		{
			Version:     1,
			Description: "users, exams, candidates and questions",
			Collections: []string{Users, Exams, Candidates, Questions},
			Indexes: []Index{
				{Collection: Users, Field: "email", Unique: true},
				{Collection: Users, Field: "username", Unique: true},
				{Collection: Exams, Field: "created_by"},
				{Collection: Candidates, Field: "email", Unique: true},
				{Collection: Candidates, Field: "exam_id"},
				{Collection: Questions, Field: "exam_id"},
			},
			Seed: func(add AddFunc) error {
				if seedAdmin == nil {
					return nil
				}
				admin, err := seedAdmin()
				if err != nil {
					return errors.Wrap(err, "building default admin")
				}
				_, err = add(Users, admin)
				return errors.Wrap(err, "seeding default admin")
			},
		},
		{
			Version:     2,
			Description: "question options",
			Collections: []string{Options},
			Indexes:     []Index{{Collection: Options, Field: "question_id"}},
		},
		{
			Version:     3,
			Description: "candidate link lookups and results",
			Collections: []string{Results},
			Indexes: []Index{
				{Collection: Candidates, Field: "unique_link", Unique: true},
				{Collection: Results, Field: "candidate_id", Unique: true},
				{Collection: Results, Field: "exam_id"},
			},
		},
	}}
}
