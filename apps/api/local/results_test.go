package local

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/exam"
	"github.com/trezcool/examiner/core/question"
	"github.com/trezcool/examiner/core/result"
	"github.com/trezcool/examiner/storage/database"
	"github.com/trezcool/examiner/tests"
)

func TestRouter_listResults(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for i, examID := range []int{1, 2, 1} {
		_, err := f.store.Add(ctx, database.Results, map[string]interface{}{"exam_id": examID, "candidate_id": i + 1})
		require.NoError(t, err)
	}

	var all []map[string]interface{}
	decode(t, f.do(as(f.admin), http.MethodGet, "/results"), &all)
	assert.Len(t, all, 3)

	var filtered []map[string]interface{}
	decode(t, f.do(as(f.admin), http.MethodGet, "/results?exam_id=1"), &filtered)
	assert.Len(t, filtered, 2)

	resp := f.do(as(f.owner), http.MethodGet, "/results")
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "Only admins can view results", resp.ErrorMessage())
}

// submitted returns an exam with a choice and a text question, and the result of a candidate who
// answered the choice question correctly.
func submitted(t *testing.T, f *fixture) (exam.Exam, question.Detail, result.Result) {
	t.Helper()
	ex := testutil.CreateExam(t, f.store, "Go 101", f.owner.ID, func(ex *exam.Exam) { ex.PassingScore = 75 })
	choice := testutil.CreateQuestion(t, f.store, ex.ID, question.TypeSingleChoice, "Pick a",
		question.OptionInput{Text: "a", IsCorrect: true}, question.OptionInput{Text: "b"})
	essay := testutil.CreateQuestion(t, f.store, ex.ID, question.TypeText, "Why?")
	jane := testutil.CreateCandidate(t, f.store, "Jane", "jane@test.cd", ex)

	resp := f.do(nil, http.MethodPost, "/candidates/exam/"+jane.UniqueLink+"/submit", []byte(`{"answers": {
		"`+itoa(choice.ID)+`": `+itoa(choice.Options[0].ID)+`,
		"`+itoa(essay.ID)+`": "because"
	}}`))
	var data submitResponse
	decode(t, resp, &data)
	return ex, essay, data.Result
}

func TestRouter_readResults(t *testing.T) {
	f := setup(t)
	ex, _, res := submitted(t, f)
	other := testutil.CreateExam(t, f.store, "Go 102", f.owner.ID)

	var got result.Result
	decode(t, f.do(as(f.admin), http.MethodGet, "/results/"+itoa(res.ID)), &got)
	assert.Equal(t, res.ID, got.ID)
	assert.Equal(t, float64(50), got.Score)

	var list []result.Result
	decode(t, f.do(as(f.admin), http.MethodGet, "/results/exams/"+itoa(ex.ID)), &list)
	require.Len(t, list, 1)
	assert.Equal(t, res.ID, list[0].ID)

	decode(t, f.do(as(f.admin), http.MethodGet, "/results/exams/"+itoa(other.ID)), &list)
	assert.Empty(t, list)

	decode(t, f.do(as(f.admin), http.MethodGet, "/api/results/candidates/"+itoa(res.CandidateID)+"/"), &list)
	require.Len(t, list, 1)
	assert.Equal(t, res.CandidateID, list[0].CandidateID)

	f.run(t, []routeTest{
		{name: "result not found", sess: as(f.admin), method: http.MethodGet, path: "/results/99", wantStatus: http.StatusNotFound, wantErr: "Result not found"},
		{name: "exam not found", sess: as(f.admin), method: http.MethodGet, path: "/results/exams/99", wantStatus: http.StatusNotFound, wantErr: "Exam not found"},
		{name: "candidate not found", sess: as(f.admin), method: http.MethodGet, path: "/results/candidates/99", wantStatus: http.StatusNotFound, wantErr: "Candidate not found"},
		{name: "not admin", sess: as(f.owner), method: http.MethodGet, path: "/results/" + itoa(res.ID), wantStatus: http.StatusForbidden, wantErr: "Only admins can view results"},
		{name: "not authenticated", method: http.MethodGet, path: "/results/exams/" + itoa(ex.ID), wantStatus: http.StatusUnauthorized, wantErr: "Not authenticated"},
	})
}

func TestRouter_reviewResult(t *testing.T) {
	f := setup(t)
	ex, essay, res := submitted(t, f)
	path := "/results/" + itoa(res.ID) + "/review"

	f.run(t, []routeTest{
		{name: "not admin", sess: as(f.owner), method: http.MethodPut, path: path, payload: map[string]interface{}{"feedback": "ok"}, wantStatus: http.StatusForbidden, wantErr: "Only admins can review results"},
		{name: "not found", sess: as(f.admin), method: http.MethodPut, path: "/results/99/review", payload: map[string]interface{}{}, wantStatus: http.StatusNotFound, wantErr: "Result not found"},
		{
			name: "score above the question points", sess: as(f.admin), method: http.MethodPut, path: path,
			payload:    map[string]interface{}{"manual_scores": map[string]float64{itoa(essay.ID): 2}},
			wantStatus: http.StatusBadRequest, wantErr: "Invalid manual score for question " + itoa(essay.ID),
		},
		{name: "malformed scores", sess: as(f.admin), method: http.MethodPut, path: path, payload: `{"manual_scores": [1]}`, wantStatus: http.StatusBadRequest, wantErr: "Invalid request payload"},
	})

	reviewedAt := testNow.Add(48 * time.Hour)
	core.NowFunc = func() time.Time { return reviewedAt }

	resp := f.do(as(f.admin), http.MethodPut, path, map[string]interface{}{
		"manual_scores": map[string]float64{itoa(essay.ID): 1},
		"feedback":      " Well argued ",
	})
	var data resultResponse
	decode(t, resp, &data)
	assert.Equal(t, "Result updated successfully", data.Message)
	assert.Equal(t, float64(2), data.Result.EarnedPoints)
	assert.Equal(t, float64(100), data.Result.Score)
	assert.True(t, data.Result.Passed, "passing score %v", ex.PassingScore)
	assert.Equal(t, map[int]float64{essay.ID: 1}, data.Result.ManualScores)
	assert.Equal(t, "Well argued", data.Result.Feedback)
	require.NotNil(t, data.Result.ReviewedAt)
	assert.True(t, reviewedAt.Equal(*data.Result.ReviewedAt))

	var stored result.Result
	found, err := f.store.GetByID(context.Background(), database.Results, res.ID, &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, data.Result.EarnedPoints, stored.EarnedPoints)
	assert.Equal(t, data.Result.ManualScores, stored.ManualScores)
	assert.Equal(t, res.Answers, stored.Answers)

	// clearing the manual scores keeps the feedback and the automatic points
	decode(t, f.do(as(f.admin), http.MethodPut, path, map[string]interface{}{"manual_scores": map[string]float64{}}), &data)
	assert.Equal(t, float64(1), data.Result.EarnedPoints)
	assert.Equal(t, float64(50), data.Result.Score)
	assert.False(t, data.Result.Passed)
	assert.Empty(t, data.Result.ManualScores)
	assert.Equal(t, "Well argued", data.Result.Feedback)

	require.NoError(t, f.store.Remove(context.Background(), database.Exams, ex.ID))
	resp = f.do(as(f.admin), http.MethodPut, path, map[string]interface{}{"feedback": "late"})
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "Exam not found", resp.ErrorMessage())
}
