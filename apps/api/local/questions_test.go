package local

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examiner/core/question"
	"github.com/trezcool/examiner/storage/database"
	"github.com/trezcool/examiner/tests"
)

func optionTexts(opts []question.Option) []string {
	texts := make([]string, 0, len(opts))
	for _, opt := range opts {
		texts = append(texts, opt.Text)
	}
	return texts
}

func TestRouter_createQuestion(t *testing.T) {
	f := setup(t)
	ex := testutil.CreateExam(t, f.store, "Go 101", f.owner.ID)

	f.run(t, []routeTest{
		{name: "exam not found", sess: as(f.admin), method: http.MethodPost, path: "/questions", payload: map[string]interface{}{"exam_id": 99, "text": "q", "question_type": "text"}, wantStatus: http.StatusNotFound, wantErr: "Exam not found"},
		{name: "unknown type", sess: as(f.admin), method: http.MethodPost, path: "/questions", payload: map[string]interface{}{"exam_id": ex.ID, "text": "q", "question_type": "essay"}, wantStatus: http.StatusBadRequest, wantErr: "question_type: must be one of: multiple_choice, single_choice, true_false, text"},
		{name: "choice without options", sess: as(f.admin), method: http.MethodPost, path: "/questions", payload: map[string]interface{}{"exam_id": ex.ID, "text": "q", "question_type": "single_choice"}, wantStatus: http.StatusBadRequest, wantErr: "options: options are required for this question type"},
		{name: "blank option", sess: as(f.admin), method: http.MethodPost, path: "/questions", payload: map[string]interface{}{"exam_id": ex.ID, "text": "q", "question_type": "single_choice", "options": []map[string]interface{}{{"text": " "}}}, wantStatus: http.StatusBadRequest},
	})

	t.Run("legacy field names", func(t *testing.T) {
		resp := f.do(as(f.admin), http.MethodPost, "/questions", map[string]interface{}{
			"exam_id":       ex.ID,
			"question_text": "Pick the odd ones",
			"type":          "multiple_choice",
			"points":        2,
			"options": []map[string]interface{}{
				{"option_text": "1", "is_correct": true},
				{"text": "2"},
				{"option_text": "3", "is_correct": true},
			},
		})
		assert.Equal(t, http.StatusCreated, resp.Status)
		var data questionResponse
		decode(t, resp, &data)
		assert.Equal(t, "Question created successfully", data.Message)

		q := data.Question
		assert.Equal(t, "Pick the odd ones", q.Text)
		assert.Equal(t, question.TypeMultipleChoice, q.QuestionType)
		assert.Equal(t, float64(2), q.Points)
		require.Len(t, q.Options, 3)
		for i, opt := range q.Options {
			assert.Equal(t, i+1, opt.Order)
			assert.Equal(t, q.ID, opt.QuestionID)
		}
		assert.Equal(t, []string{"1", "2", "3"}, optionTexts(q.Options))
		assert.True(t, q.Options[2].IsCorrect)
	})

	t.Run("text questions have no options", func(t *testing.T) {
		var data questionResponse
		decode(t, f.do(as(f.admin), http.MethodPost, "/questions", map[string]interface{}{
			"exam_id": ex.ID, "text": "Explain", "question_type": "text",
			"options": []map[string]interface{}{{"text": "ignored"}},
		}), &data)
		assert.Equal(t, float64(question.DefaultPoints), data.Question.Points)
		assert.Empty(t, data.Question.Options)

		var opts []question.Option
		require.NoError(t, f.store.GetAllByIndex(context.Background(), database.Options, "question_id", data.Question.ID, &opts))
		assert.Empty(t, opts)
	})
}

func TestRouter_listQuestions(t *testing.T) {
	f := setup(t)
	go101 := testutil.CreateExam(t, f.store, "Go 101", f.owner.ID)
	rust := testutil.CreateExam(t, f.store, "Rust 101", f.owner.ID)
	q1 := testutil.CreateQuestion(t, f.store, go101.ID, question.TypeText, "What is a Goroutine?")
	q2 := testutil.CreateQuestion(t, f.store, go101.ID, question.TypeTrueFalse, "Go has generics", question.OptionInput{Text: "True"}, question.OptionInput{Text: "False", IsCorrect: true})
	q3 := testutil.CreateQuestion(t, f.store, rust.ID, question.TypeText, "What is a borrow?")

	tests := []struct {
		name    string
		query   string
		wantIDs []int
	}{
		{name: "all", query: "", wantIDs: []int{q1.ID, q2.ID, q3.ID}},
		{name: "by exam", query: "?exam_id=1", wantIDs: []int{q1.ID, q2.ID}},
		{name: "by bad exam id", query: "?exam_id=lol", wantIDs: []int{}},
		{name: "by type", query: "?question_type=text", wantIDs: []int{q1.ID, q3.ID}},
		{name: "by search", query: "?search=GOROUTINE", wantIDs: []int{q1.ID}},
		{name: "combined", query: "?exam_id=2&question_type=text&search=borrow", wantIDs: []int{q3.ID}},
		{name: "no match", query: "?search=nope", wantIDs: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var details []question.Detail
			decode(t, f.do(as(f.admin), http.MethodGet, "/questions"+tt.query), &details)
			ids := make([]int, 0, len(details))
			for _, d := range details {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	var details []question.Detail
	decode(t, f.do(as(f.admin), http.MethodGet, "/questions?exam_id=1"), &details)
	require.Len(t, details, 2)
	assert.Equal(t, "Go 101", details[1].ExamTitle)
	assert.Equal(t, []string{"True", "False"}, optionTexts(details[1].Options))
}

func TestRouter_updateQuestion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ex := testutil.CreateExam(t, f.store, "Go 101", f.owner.ID)
	q := testutil.CreateQuestion(t, f.store, ex.ID, question.TypeSingleChoice, "Pick one",
		question.OptionInput{Text: "a"}, question.OptionInput{Text: "b"},
		question.OptionInput{Text: "c"}, question.OptionInput{Text: "d", IsCorrect: true})

	f.run(t, []routeTest{
		{name: "not found", sess: as(f.admin), method: http.MethodPut, path: "/questions/99", payload: map[string]interface{}{}, wantStatus: http.StatusNotFound, wantErr: "Question not found"},
		{name: "move to missing exam", sess: as(f.admin), method: http.MethodPut, path: "/questions/1", payload: map[string]interface{}{"exam_id": 99}, wantStatus: http.StatusNotFound, wantErr: "Exam not found"},
	})

	t.Run("fields only keep options", func(t *testing.T) {
		var data questionResponse
		decode(t, f.do(as(f.admin), http.MethodPut, "/questions/1", map[string]interface{}{"question_text": "Pick the best"}), &data)
		assert.Equal(t, "Question updated successfully", data.Message)
		assert.Equal(t, "Pick the best", data.Question.Text)
		assert.Equal(t, q.QuestionType, data.Question.QuestionType)
		assert.Equal(t, []string{"a", "b", "c", "d"}, optionTexts(data.Question.Options))
	})

	t.Run("options are replaced", func(t *testing.T) {
		var data questionResponse
		decode(t, f.do(as(f.admin), http.MethodPut, "/questions/1", map[string]interface{}{
			"options": []map[string]interface{}{{"text": "x"}, {"option_text": "y", "is_correct": true}, {"text": "z"}},
		}), &data)
		assert.Equal(t, []string{"x", "y", "z"}, optionTexts(data.Question.Options))

		var opts []question.Option
		require.NoError(t, f.store.GetAll(ctx, database.Options, &opts))
		assert.Equal(t, []string{"x", "y", "z"}, optionTexts(opts), "exactly the new options are stored")
		for i, opt := range opts {
			assert.Equal(t, i+1, opt.Order)
		}
	})

	t.Run("switching to text drops options", func(t *testing.T) {
		var data questionResponse
		decode(t, f.do(as(f.admin), http.MethodPut, "/questions/1", map[string]interface{}{"type": "text"}), &data)
		assert.Equal(t, question.TypeText, data.Question.QuestionType)
		assert.Empty(t, data.Question.Options)

		var opts []question.Option
		require.NoError(t, f.store.GetAll(ctx, database.Options, &opts))
		assert.Empty(t, opts)
	})
}

func TestRouter_destroyQuestion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ex := testutil.CreateExam(t, f.store, "Go 101", f.owner.ID)
	q := testutil.CreateQuestion(t, f.store, ex.ID, question.TypeTrueFalse, "Go is fun",
		question.OptionInput{Text: "True", IsCorrect: true}, question.OptionInput{Text: "False"})

	var d question.Detail
	decode(t, f.do(as(f.admin), http.MethodGet, "/questions/1"), &d)
	assert.Equal(t, q, d)

	var msg message
	decode(t, f.do(as(f.admin), http.MethodDelete, "/questions/1"), &msg)
	assert.Equal(t, "Question deleted successfully", msg.Message)

	var opts []question.Option
	require.NoError(t, f.store.GetAll(ctx, database.Options, &opts))
	assert.Empty(t, opts)

	resp := f.do(as(f.admin), http.MethodDelete, "/questions/1")
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "Question not found", resp.ErrorMessage())
}
