// Package database defines the record store contract: named collections of JSON records with
// auto-increment ids and declared secondary indexes.
package database

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Collections
const (
	Users      = "users"
	Exams      = "exams"
	Candidates = "candidates"
	Questions  = "questions"
	Options    = "options"
	Results    = "results"
)

var (
	// errors
	ErrNotFound            = errors.New("record not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrUnknownCollection   = errors.New("unknown collection")
	ErrUnknownIndex        = errors.New("unknown index")
)

// ConstraintError tells which unique index a write clashed with.
// errors.Cause(err) of a ConstraintError is ErrConstraintViolation.
type ConstraintError struct {
	Collection string
	Index      string
	Value      string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s.%s %s already exists: %v", e.Collection, e.Index, e.Value, ErrConstraintViolation)
}

func (e *ConstraintError) Cause() error  { return ErrConstraintViolation }
func (e *ConstraintError) Unwrap() error { return ErrConstraintViolation }

// Store is the generic record access layer.
//
// Records are any JSON-encodable structs (or maps); the store assigns and writes back the "id" field.
// Index values are compared by their JSON encoding; records whose indexed field is missing or null are
// not indexed. Reads of absent records report found=false rather than an error.
type Store interface {
	// GetAll decodes every record of the collection, ordered by id, into dest (a pointer to a slice).
	GetAll(ctx context.Context, collection string, dest interface{}) error
	GetByID(ctx context.Context, collection string, id int, dest interface{}) (bool, error)
	// GetByIndex decodes the first record (lowest id) whose indexed field equals value.
	GetByIndex(ctx context.Context, collection, index string, value, dest interface{}) (bool, error)
	GetAllByIndex(ctx context.Context, collection, index string, value, dest interface{}) error
	// Add stores a new record and returns its id. Unique index clashes fail with a *ConstraintError
	// and leave the store unchanged.
	Add(ctx context.Context, collection string, record interface{}) (int, error)
	// Update merges the fields of patch onto the record; absent fields are preserved and the id never
	// changes. The merged record is decoded into dest when dest is not nil.
	Update(ctx context.Context, collection string, id int, patch, dest interface{}) error
	// Remove deletes a record; removing an absent id is a no-op.
	Remove(ctx context.Context, collection string, id int) error
	// Version is the schema version the store is at.
	Version() int
	Close() error
}

// IsNotFound reports whether errors.Cause(err) is ErrNotFound.
func IsNotFound(err error) bool { return errors.Cause(err) == ErrNotFound }

// IsConstraintViolation reports whether errors.Cause(err) is ErrConstraintViolation.
func IsConstraintViolation(err error) bool { return errors.Cause(err) == ErrConstraintViolation }
