package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/trezcool/examiner/core/candidate"
	"github.com/trezcool/examiner/core/exam"
	"github.com/trezcool/examiner/core/question"
	"github.com/trezcool/examiner/core/user"
	"github.com/trezcool/examiner/storage/database"
	"github.com/trezcool/examiner/storage/database/bolt"
	"github.com/trezcool/examiner/storage/database/dummy"
)

// PrepareStore returns an empty in-memory store at the latest schema version, without seeded users.
func PrepareStore(t *testing.T) database.Store {
	db, err := dummydb.Open(database.AppSchema(nil))
	if err != nil {
		t.Fatalf("PrepareStore() failed: %v", err)
	}
	return db
}

// PrepareDB returns an empty bbolt store in a temporary directory, closed when the test ends.
func PrepareDB(t *testing.T) *boltdb.DB {
	db, err := boltdb.Open(filepath.Join(t.TempDir(), "examiner.db"), database.AppSchema(nil))
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func CreateUser(t *testing.T, store database.Store, email, uname, pwd string, isAdmin bool) user.User {
	usr, err := user.New(email, uname, pwd, isAdmin)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if usr.ID, err = store.Add(context.Background(), database.Users, usr); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateExam(t *testing.T, store database.Store, title string, createdBy int, opts ...func(*exam.Exam)) exam.Exam {
	ex := exam.NewExam{Title: title}.Exam(createdBy)
	for _, opt := range opts {
		opt(&ex)
	}
	var err error
	if ex.ID, err = store.Add(context.Background(), database.Exams, ex); err != nil {
		t.Fatalf("CreateExam() failed: %v", err)
	}
	return ex
}

// CreateQuestion stores a question of examID and its options, in order.
func CreateQuestion(t *testing.T, store database.Store, examID int, qType, text string, opts ...question.OptionInput) question.Detail {
	q := question.NewQuestion{ExamID: examID, Text: text, QuestionType: qType}.Question()
	var err error
	if q.ID, err = store.Add(context.Background(), database.Questions, q); err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}
	d := question.Detail{Question: q, Options: make([]question.Option, 0, len(opts))}
	for _, opt := range question.Options(q.ID, opts) {
		if opt.ID, err = store.Add(context.Background(), database.Options, opt); err != nil {
			t.Fatalf("CreateQuestion() failed: %v", err)
		}
		d.Options = append(d.Options, opt)
	}
	return d
}

func CreateCandidate(t *testing.T, store database.Store, name, email string, ex exam.Exam) candidate.Candidate {
	cand := candidate.New(name, email, ex.ID, ex.Title, false)
	var err error
	if cand.ID, err = store.Add(context.Background(), database.Candidates, cand); err != nil {
		t.Fatalf("CreateCandidate() failed: %v", err)
	}
	return cand
}
