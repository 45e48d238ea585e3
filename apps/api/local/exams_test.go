package local

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examiner/core/exam"
	"github.com/trezcool/examiner/core/question"
	"github.com/trezcool/examiner/storage/database"
	"github.com/trezcool/examiner/tests"
)

func examIDs(exams []exam.Exam) []int {
	ids := make([]int, 0, len(exams))
	for _, ex := range exams {
		ids = append(ids, ex.ID)
	}
	return ids
}

func TestRouter_listExams(t *testing.T) {
	f := setup(t)
	own1 := testutil.CreateExam(t, f.store, "Go 101", f.owner.ID)
	theirs := testutil.CreateExam(t, f.store, "Rust 101", f.other.ID)
	own2 := testutil.CreateExam(t, f.store, "Go 201", f.owner.ID)

	var exams []exam.Exam
	decode(t, f.do(as(f.admin), http.MethodGet, "/exams"), &exams)
	assert.Equal(t, []int{own1.ID, theirs.ID, own2.ID}, examIDs(exams), "admins see every exam")

	decode(t, f.do(as(f.owner), http.MethodGet, "/exams"), &exams)
	assert.Equal(t, []int{own1.ID, own2.ID}, examIDs(exams), "users see their own exams")

	decode(t, f.do(as(f.other), http.MethodGet, "/exams"), &exams)
	assert.Equal(t, []int{theirs.ID}, examIDs(exams))
}

func TestRouter_createExam(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name    string
		payload map[string]interface{}
		want    exam.Exam
	}{
		{
			name:    "defaults",
			payload: map[string]interface{}{"title": " Go 101 "},
			want:    exam.Exam{Title: "Go 101", DurationMinutes: 60, PassingScore: 60, IsActive: true},
		},
		{
			name: "all fields",
			payload: map[string]interface{}{
				"title": "Go 201", "description": "advanced", "duration_minutes": 90, "passing_score": 75,
				"is_active": false, "is_randomized": true,
			},
			want: exam.Exam{Title: "Go 201", Description: "advanced", DurationMinutes: 90, PassingScore: 75, IsRandomized: true},
		},
		{
			name:    "legacy randomize_questions",
			payload: map[string]interface{}{"title": "Go 301", "randomize_questions": true},
			want:    exam.Exam{Title: "Go 301", DurationMinutes: 60, PassingScore: 60, IsActive: true, IsRandomized: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(as(f.owner), http.MethodPost, "/exams", tt.payload)
			assert.Equal(t, http.StatusCreated, resp.Status)
			var got exam.Exam
			decode(t, resp, &got)

			var stored exam.Exam
			found, err := f.store.GetByID(context.Background(), database.Exams, got.ID, &stored)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, got, stored)

			tt.want.ID = got.ID
			tt.want.CreatedBy = f.owner.ID
			tt.want.CreatedAt = testNow
			tt.want.UpdatedAt = testNow
			assert.Equal(t, tt.want, got)
		})
	}

	f.run(t, []routeTest{
		{name: "passing score too high", sess: as(f.owner), method: http.MethodPost, path: "/exams", payload: map[string]interface{}{"title": "x", "passing_score": 120}, wantStatus: http.StatusBadRequest},
		{name: "zero duration", sess: as(f.owner), method: http.MethodPost, path: "/exams", payload: map[string]interface{}{"title": "x", "duration_minutes": 0}, wantStatus: http.StatusBadRequest},
	})
}

func TestRouter_examDetail(t *testing.T) {
	f := setup(t)
	ex := testutil.CreateExam(t, f.store, "Go 101", f.owner.ID)

	f.run(t, []routeTest{
		{name: "not found", sess: as(f.owner), method: http.MethodGet, path: "/exams/99", wantStatus: http.StatusNotFound, wantErr: "Exam not found"},
		{name: "not owner", sess: as(f.other), method: http.MethodGet, path: "/exams/1", wantStatus: http.StatusForbidden, wantErr: "Unauthorized access to exam"},
		{name: "not owner update", sess: as(f.other), method: http.MethodPut, path: "/exams/1", payload: map[string]interface{}{}, wantStatus: http.StatusForbidden, wantErr: "Unauthorized access to exam"},
		{name: "not owner delete", sess: as(f.other), method: http.MethodDelete, path: "/exams/1", wantStatus: http.StatusForbidden, wantErr: "Unauthorized access to exam"},
		{name: "owner", sess: as(f.owner), method: http.MethodGet, path: "/exams/1", wantStatus: http.StatusOK},
		{name: "admin", sess: as(f.admin), method: http.MethodGet, path: "/exams/1", wantStatus: http.StatusOK},
	})

	t.Run("partial update", func(t *testing.T) {
		var got exam.Exam
		decode(t, f.do(as(f.owner), http.MethodPut, "/exams/1", map[string]interface{}{"title": "Go 102", "randomize_questions": true}), &got)
		want := ex
		want.Title = "Go 102"
		want.IsRandomized = true
		assert.Equal(t, want, got)
	})
}

func TestRouter_destroyExam(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ex := testutil.CreateExam(t, f.store, "Go 101", f.owner.ID)
	keep := testutil.CreateExam(t, f.store, "Go 201", f.owner.ID)
	cand := testutil.CreateCandidate(t, f.store, "", "jane@test.cd", ex)

	opts := []question.OptionInput{{Text: "a", IsCorrect: true}, {Text: "b"}, {Text: "c"}}
	for i := 0; i < 3; i++ {
		testutil.CreateQuestion(t, f.store, ex.ID, question.TypeSingleChoice, "q", opts...)
	}
	kept := testutil.CreateQuestion(t, f.store, keep.ID, question.TypeSingleChoice, "kept", opts...)

	var msg message
	decode(t, f.do(as(f.owner), http.MethodDelete, "/exams/1"), &msg)
	assert.Equal(t, "Exam deleted successfully", msg.Message)

	found, err := f.store.GetByID(ctx, database.Exams, ex.ID, nil)
	require.NoError(t, err)
	assert.False(t, found)

	var questions []question.Question
	require.NoError(t, f.store.GetAll(ctx, database.Questions, &questions))
	require.Len(t, questions, 1, "only the other exam's questions remain")
	assert.Equal(t, kept.ID, questions[0].ID)

	var options []question.Option
	require.NoError(t, f.store.GetAll(ctx, database.Options, &options))
	require.Len(t, options, len(opts))
	for _, opt := range options {
		assert.Equal(t, kept.ID, opt.QuestionID)
	}

	found, err = f.store.GetByID(ctx, database.Candidates, cand.ID, nil)
	require.NoError(t, err)
	assert.True(t, found, "candidates are kept")
}

func TestRouter_examQuestions(t *testing.T) {
	f := setup(t)
	ex := testutil.CreateExam(t, f.store, "Go 101", f.owner.ID, func(ex *exam.Exam) { ex.IsRandomized = true })
	q1 := testutil.CreateQuestion(t, f.store, ex.ID, question.TypeTrueFalse, "Go is compiled",
		question.OptionInput{Text: "True", IsCorrect: true}, question.OptionInput{Text: "False"})
	q2 := testutil.CreateQuestion(t, f.store, ex.ID, question.TypeText, "Explain goroutines")
	testutil.CreateCandidate(t, f.store, "", f.other.Email, ex)

	t.Run("managers get the answer key", func(t *testing.T) {
		var details []question.Detail
		decode(t, f.do(as(f.owner), http.MethodGet, "/exams/1/questions"), &details)
		require.Len(t, details, 2)
		assert.Equal(t, q1.ID, details[0].ID, "in stored order")
		assert.True(t, details[0].Options[0].IsCorrect)
		assert.Empty(t, details[1].Options)
	})

	t.Run("assigned candidates get shuffled public questions", func(t *testing.T) {
		var raw []map[string]interface{}
		decode(t, f.do(as(f.other), http.MethodGet, "/exams/1/questions"), &raw)
		require.Len(t, raw, 2)
		assert.Equal(t, float64(q2.ID), raw[0]["id"])
		assert.Equal(t, float64(q1.ID), raw[1]["id"])
		opts := raw[1]["options"].([]interface{})
		require.Len(t, opts, 2)
		assert.NotContains(t, opts[0], "is_correct")
	})

	t.Run("others are denied", func(t *testing.T) {
		outsider := testutil.CreateUser(t, f.store, "outsider@test.cd", "outsider", "outsiderpassword", false)
		resp := f.do(as(outsider), http.MethodGet, "/exams/1/questions")
		assert.Equal(t, http.StatusForbidden, resp.Status)
		assert.Equal(t, "Unauthorized access to exam questions", resp.ErrorMessage())
	})
}
