// Package storetest holds the behavior every database.Store implementation must share.
package storetest

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examiner/storage/database"
)

type (
	person struct {
		ID       int    `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
		IsAdmin  bool   `json:"is_admin"`
	}

	candidate struct {
		ID         int    `json:"id"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		ExamID     int    `json:"exam_id"`
		UniqueLink string `json:"unique_link,omitempty"`
	}
)

// Schema is the schema stores under test are opened with: the application schema with a seeded admin.
func Schema() database.Schema {
	return database.AppSchema(func() (interface{}, error) {
		return person{Email: "admin@example.com", Username: "admin", IsAdmin: true}, nil
	})
}

// Run runs the shared store behavior against stores returned by open, one per subtest.
func Run(t *testing.T, open func(t *testing.T) database.Store) {
	ctx := context.Background()

	t.Run("seeded and versioned", func(t *testing.T) {
		store := open(t)
		assert.Equal(t, Schema().Version(), store.Version())

		var admin person
		found, err := store.GetByIndex(ctx, database.Users, "email", "admin@example.com", &admin)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, person{ID: 1, Email: "admin@example.com", Username: "admin", IsAdmin: true}, admin)
	})

	t.Run("add then get by id", func(t *testing.T) {
		store := open(t)
		in := candidate{Name: "Jane", Email: "jane@test.cd", ExamID: 3}

		id, err := store.Add(ctx, database.Candidates, in)
		require.NoError(t, err)
		assert.Equal(t, 1, id)

		var got candidate
		found, err := store.GetByID(ctx, database.Candidates, id, &got)
		require.NoError(t, err)
		require.True(t, found)
		in.ID = id
		assert.Equal(t, in, got)

		id2, err := store.Add(ctx, database.Candidates, candidate{Email: "bob@test.cd", ExamID: 3})
		require.NoError(t, err)
		assert.Equal(t, 2, id2, "ids are sequential per collection")

		found, err = store.GetByID(ctx, database.Candidates, 99, &got)
		require.NoError(t, err)
		assert.False(t, found, "absent record is not an error")
	})

	t.Run("get all in id order", func(t *testing.T) {
		store := open(t)
		var none []candidate
		require.NoError(t, store.GetAll(ctx, database.Candidates, &none))
		assert.NotNil(t, none)
		assert.Empty(t, none)

		for _, email := range []string{"a@test.cd", "b@test.cd", "c@test.cd"} {
			_, err := store.Add(ctx, database.Candidates, candidate{Email: email})
			require.NoError(t, err)
		}
		var all []candidate
		require.NoError(t, store.GetAll(ctx, database.Candidates, &all))
		require.Len(t, all, 3)
		for i, c := range all {
			assert.Equal(t, i+1, c.ID)
		}
	})

	t.Run("update merges fields", func(t *testing.T) {
		store := open(t)
		id, err := store.Add(ctx, database.Candidates, candidate{Name: "Jane", Email: "jane@test.cd", ExamID: 3})
		require.NoError(t, err)

		var merged candidate
		patch := map[string]interface{}{"name": "Janet", "id": 42}
		require.NoError(t, store.Update(ctx, database.Candidates, id, patch, &merged))
		assert.Equal(t, candidate{ID: id, Name: "Janet", Email: "jane@test.cd", ExamID: 3}, merged)

		var got candidate
		_, err = store.GetByID(ctx, database.Candidates, id, &got)
		require.NoError(t, err)
		assert.Equal(t, merged, got)

		require.NoError(t, store.Update(ctx, database.Candidates, id, map[string]interface{}{"exam_id": 4}, nil))
		var byOld, byNew []candidate
		require.NoError(t, store.GetAllByIndex(ctx, database.Candidates, "exam_id", 3, &byOld))
		require.NoError(t, store.GetAllByIndex(ctx, database.Candidates, "exam_id", 4, &byNew))
		assert.Empty(t, byOld, "index entries follow the update")
		assert.Len(t, byNew, 1)

		err = store.Update(ctx, database.Candidates, 99, patch, nil)
		assert.True(t, database.IsNotFound(err), "got %v", err)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		store := open(t)
		id, err := store.Add(ctx, database.Candidates, candidate{Email: "jane@test.cd", ExamID: 3})
		require.NoError(t, err)

		require.NoError(t, store.Remove(ctx, database.Candidates, 99))
		var all []candidate
		require.NoError(t, store.GetAll(ctx, database.Candidates, &all))
		assert.Len(t, all, 1, "removing an absent id leaves the collection unchanged")

		require.NoError(t, store.Remove(ctx, database.Candidates, id))
		require.NoError(t, store.Remove(ctx, database.Candidates, id))
		found, err := store.GetByID(ctx, database.Candidates, id, nil)
		require.NoError(t, err)
		assert.False(t, found)

		var byExam []candidate
		require.NoError(t, store.GetAllByIndex(ctx, database.Candidates, "exam_id", 3, &byExam))
		assert.Empty(t, byExam)
		_, err = store.Add(ctx, database.Candidates, candidate{Email: "jane@test.cd"})
		assert.NoError(t, err, "unique value is released on remove")
	})

	t.Run("unique index violations", func(t *testing.T) {
		store := open(t)
		janeID, err := store.Add(ctx, database.Candidates, candidate{Name: "Jane", Email: "jane@test.cd"})
		require.NoError(t, err)
		bobID, err := store.Add(ctx, database.Candidates, candidate{Name: "Bob", Email: "bob@test.cd"})
		require.NoError(t, err)

		_, err = store.Add(ctx, database.Candidates, candidate{Name: "Other Jane", Email: "jane@test.cd"})
		require.Error(t, err)
		assert.True(t, database.IsConstraintViolation(err), "got %v", err)
		var cErr *database.ConstraintError
		require.True(t, errors.As(err, &cErr))
		assert.Equal(t, "email", cErr.Index)

		err = store.Update(ctx, database.Candidates, bobID, map[string]interface{}{"email": "jane@test.cd", "name": "Bobby"}, nil)
		assert.True(t, database.IsConstraintViolation(err), "got %v", err)

		var all []candidate
		require.NoError(t, store.GetAll(ctx, database.Candidates, &all))
		assert.Equal(t, []candidate{
			{ID: janeID, Name: "Jane", Email: "jane@test.cd"},
			{ID: bobID, Name: "Bob", Email: "bob@test.cd"},
		}, all, "failed writes leave the store unchanged")

		id, err := store.Add(ctx, database.Candidates, candidate{Email: "carl@test.cd"})
		require.NoError(t, err)
		assert.Equal(t, bobID+1, id, "failed adds do not consume ids")

		assert.NoError(t, store.Update(ctx, database.Candidates, janeID, map[string]interface{}{"email": "jane@test.cd"}, nil),
			"a record does not clash with itself")

		_, err = store.Add(ctx, database.Candidates, candidate{Email: "d@test.cd"})
		require.NoError(t, err)
		_, err = store.Add(ctx, database.Candidates, candidate{Email: "e@test.cd"})
		assert.NoError(t, err, "missing unique values are not indexed")
	})

	t.Run("index lookups", func(t *testing.T) {
		store := open(t)
		for _, c := range []candidate{
			{Email: "a@test.cd", ExamID: 1, UniqueLink: "l-a"},
			{Email: "b@test.cd", ExamID: 2, UniqueLink: "l-b"},
			{Email: "c@test.cd", ExamID: 1, UniqueLink: "l-c"},
		} {
			_, err := store.Add(ctx, database.Candidates, c)
			require.NoError(t, err)
		}

		var first candidate
		found, err := store.GetByIndex(ctx, database.Candidates, "exam_id", 1, &first)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "a@test.cd", first.Email)

		found, err = store.GetByIndex(ctx, database.Candidates, "unique_link", "l-b", &first)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 2, first.ID)

		found, err = store.GetByIndex(ctx, database.Candidates, "unique_link", "nope", &first)
		require.NoError(t, err)
		assert.False(t, found)

		var byExam []candidate
		require.NoError(t, store.GetAllByIndex(ctx, database.Candidates, "exam_id", 1, &byExam))
		require.Len(t, byExam, 2)
		assert.Equal(t, "a@test.cd", byExam[0].Email)
		assert.Equal(t, "c@test.cd", byExam[1].Email)

		var none []candidate
		require.NoError(t, store.GetAllByIndex(ctx, database.Candidates, "exam_id", 7, &none))
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("unknown collection and index", func(t *testing.T) {
		store := open(t)
		var all []candidate
		err := store.GetAll(ctx, "frobnicate", &all)
		assert.Equal(t, database.ErrUnknownCollection, errors.Cause(err))
		_, err = store.Add(ctx, "frobnicate", candidate{})
		assert.Equal(t, database.ErrUnknownCollection, errors.Cause(err))
		_, err = store.GetByIndex(ctx, database.Candidates, "name", "Jane", &candidate{})
		assert.Equal(t, database.ErrUnknownIndex, errors.Cause(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := open(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.Add(cctx, database.Candidates, candidate{Email: "a@test.cd"})
		assert.Equal(t, context.Canceled, err)

		var all []candidate
		require.NoError(t, store.GetAll(ctx, database.Candidates, &all))
		assert.Empty(t, all)
	})
}
