package result

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examiner/core/question"
)

func TestSubmission_UnmarshalJSON(t *testing.T) {
	var sub Submission
	body := `{"answers": {"1": 10, "2": [20, 21], "3": "because", "4": {"option_ids": [30]}, "5": null}}`
	require.NoError(t, json.Unmarshal([]byte(body), &sub))

	assert.Equal(t, Answer{OptionIDs: []int{10}}, sub.Answers[1])
	assert.Equal(t, Answer{OptionIDs: []int{20, 21}}, sub.Answers[2])
	assert.Equal(t, Answer{Text: "because"}, sub.Answers[3])
	assert.Equal(t, Answer{OptionIDs: []int{30}}, sub.Answers[4])
	assert.Equal(t, Answer{}, sub.Answers[5])

	assert.Error(t, json.Unmarshal([]byte(`{"answers": {"1": true}}`), &sub))
}

func TestGrade(t *testing.T) {
	questions := []question.Detail{
		{
			Question: question.Question{ID: 1, QuestionType: question.TypeSingleChoice, Points: 2},
			Options:  []question.Option{{ID: 10, IsCorrect: true}, {ID: 11}},
		},
		{
			Question: question.Question{ID: 2, QuestionType: question.TypeMultipleChoice, Points: 3},
			Options:  []question.Option{{ID: 20, IsCorrect: true}, {ID: 21, IsCorrect: true}, {ID: 22}},
		},
		{
			Question: question.Question{ID: 3, QuestionType: question.TypeTrueFalse, Points: 5},
			Options:  []question.Option{{ID: 30, IsCorrect: true}, {ID: 31}},
		},
		{Question: question.Question{ID: 4, QuestionType: question.TypeText, Points: 10}},
	}

	tests := []struct {
		name       string
		answers    map[int]Answer
		wantEarned float64
		wantScore  float64
		wantPassed bool
	}{
		{name: "no answers", answers: map[int]Answer{}},
		{
			name: "all correct",
			answers: map[int]Answer{
				1: {OptionIDs: []int{10}}, 2: {OptionIDs: []int{21, 20}}, 3: {OptionIDs: []int{30}}, 4: {Text: "essay"},
			},
			wantEarned: 10, wantScore: 50, wantPassed: true,
		},
		{
			name:       "partial multiple choice earns nothing",
			answers:    map[int]Answer{1: {OptionIDs: []int{10}}, 2: {OptionIDs: []int{20}}, 3: {OptionIDs: []int{30}}},
			wantEarned: 7, wantScore: 35, wantPassed: true,
		},
		{
			name:       "below passing score",
			answers:    map[int]Answer{1: {OptionIDs: []int{10}}, 3: {OptionIDs: []int{31}}},
			wantEarned: 2, wantScore: 10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Grade(questions, tt.answers, 30)
			assert.Equal(t, 20.0, res.TotalPoints, "text questions count towards the total")
			assert.Equal(t, tt.wantEarned, res.EarnedPoints)
			assert.InDelta(t, tt.wantScore, res.Score, 0.001)
			assert.Equal(t, tt.wantPassed, res.Passed)
		})
	}

	empty := Grade(nil, nil, 60)
	assert.Zero(t, empty.Score)
	assert.False(t, empty.Passed)
}

func TestGrade_choiceAndText(t *testing.T) {
	questions := []question.Detail{
		{
			Question: question.Question{ID: 1, QuestionType: question.TypeSingleChoice, Points: 1},
			Options:  []question.Option{{ID: 10, IsCorrect: true}, {ID: 11}},
		},
		{Question: question.Question{ID: 2, QuestionType: question.TypeText, Points: 1}},
	}

	res := Grade(questions, map[int]Answer{1: {OptionIDs: []int{10}}, 2: {Text: "an essay"}}, 60)
	assert.Equal(t, 2.0, res.TotalPoints)
	assert.Equal(t, 1.0, res.EarnedPoints)
	assert.InDelta(t, 50, res.Score, 0.001)
	assert.False(t, res.Passed)
	assert.Equal(t, Answer{Text: "an essay"}, res.Answers[2])
}

func TestResult_ApplyReview(t *testing.T) {
	questions := []question.Detail{
		{
			Question: question.Question{ID: 1, QuestionType: question.TypeSingleChoice, Points: 2},
			Options:  []question.Option{{ID: 10, IsCorrect: true}, {ID: 11}},
		},
		{Question: question.Question{ID: 2, QuestionType: question.TypeText, Points: 4}},
		{Question: question.Question{ID: 3, QuestionType: question.TypeText, Points: 4}},
	}
	answers := map[int]Answer{1: {OptionIDs: []int{10}}, 2: {Text: "a"}, 3: {Text: "b"}}
	feedback := "  Good work  "

	tests := []struct {
		name       string
		reviews    []Review
		wantErr    bool
		wantEarned float64
		wantPassed bool
		wantScores map[int]float64
		wantFeed   string
	}{
		{name: "feedback only", reviews: []Review{{Feedback: &feedback}}, wantEarned: 2, wantFeed: "Good work"},
		{
			name:       "manual scores",
			reviews:    []Review{{ManualScores: map[int]float64{2: 4, 3: 1.5}}},
			wantEarned: 7.5, wantPassed: true, wantScores: map[int]float64{2: 4, 3: 1.5},
		},
		{
			name: "scores replaced",
			reviews: []Review{
				{ManualScores: map[int]float64{2: 4, 3: 4}},
				{ManualScores: map[int]float64{3: 1}},
			},
			wantEarned: 3, wantScores: map[int]float64{3: 1},
		},
		{name: "above question points", reviews: []Review{{ManualScores: map[int]float64{2: 5}}}, wantErr: true, wantEarned: 2},
		{name: "negative", reviews: []Review{{ManualScores: map[int]float64{2: -1}}}, wantErr: true, wantEarned: 2},
		{name: "choice question", reviews: []Review{{ManualScores: map[int]float64{1: 1}}}, wantErr: true, wantEarned: 2},
		{name: "unknown question", reviews: []Review{{ManualScores: map[int]float64{9: 1}}}, wantErr: true, wantEarned: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Grade(questions, answers, 60)
			var err error
			for _, rev := range tt.reviews {
				if err = res.ApplyReview(rev, questions, 60); err != nil {
					break
				}
			}
			if tt.wantErr {
				var msErr *ManualScoreError
				assert.True(t, errors.As(err, &msErr))
				assert.Nil(t, res.ReviewedAt)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, res.ReviewedAt)
			}
			assert.Equal(t, 10.0, res.TotalPoints)
			assert.InDelta(t, tt.wantEarned, res.EarnedPoints, 0.001)
			assert.InDelta(t, tt.wantEarned*10, res.Score, 0.001)
			assert.Equal(t, tt.wantPassed, res.Passed)
			assert.Equal(t, tt.wantScores, res.ManualScores)
			assert.Equal(t, tt.wantFeed, res.Feedback)
		})
	}
}
