package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/question"
)

var errInvalidAnswer = errors.New("an answer must be an option id, a list of option ids or a text")

// ManualScoreError rejects a manual score that is not for a text question of the exam
// or exceeds that question's points.
type ManualScoreError struct {
	QuestionID int
}

func (e *ManualScoreError) Error() string {
	return fmt.Sprintf("invalid manual score for question %d", e.QuestionID)
}

type Result struct {
	ID           int             `json:"id"`
	CandidateID  int             `json:"candidate_id"`
	ExamID       int             `json:"exam_id"`
	Score        float64         `json:"score"` // percentage
	EarnedPoints float64         `json:"earned_points"`
	TotalPoints  float64         `json:"total_points"`
	Passed       bool            `json:"passed"`
	Answers      map[int]Answer  `json:"answers"`
	ManualScores map[int]float64 `json:"manual_scores"` // points awarded to text answers by a reviewer
	Feedback     string          `json:"feedback"`
	CreatedAt    time.Time       `json:"created_at"`  // UTC
	ReviewedAt   *time.Time      `json:"reviewed_at"` // UTC
}

// Answer is the answer to one question: option ids for choice questions, free text otherwise.
type Answer struct {
	OptionIDs []int  `json:"option_ids,omitempty"`
	Text      string `json:"text,omitempty"`
}

// UnmarshalJSON accepts an option id, a list of option ids, a text or the object form.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &a.Text)
	case '[':
		return json.Unmarshal(data, &a.OptionIDs)
	case '{':
		type canonical Answer
		var c canonical
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		*a = Answer(c)
		return nil
	}
	var id int
	if err := json.Unmarshal(data, &id); err != nil {
		return errInvalidAnswer
	}
	a.OptionIDs = []int{id}
	return nil
}

// Submission is the set of answers a candidate hands in, keyed by question id.
type Submission struct {
	Answers map[int]Answer `json:"answers" validate:"required"`
}

// Review is a reviewer's assessment of a submitted result.
// ManualScores, when present, replaces the points previously awarded to text answers.
type Review struct {
	ManualScores map[int]float64 `json:"manual_scores"`
	Feedback     *string         `json:"feedback"`
}

// Grade scores answers against the exam's questions.
// Every question counts towards the total. Choice questions earn their points only when the chosen
// options are exactly the correct ones; text answers are recorded and earn nothing until reviewed.
func Grade(questions []question.Detail, answers map[int]Answer, passingScore float64) Result {
	res := Result{Answers: make(map[int]Answer, len(answers)), CreatedAt: core.NowFunc()}
	for _, q := range questions {
		res.TotalPoints += q.Points

		ans, answered := answers[q.ID]
		if answered {
			res.Answers[q.ID] = ans
		}
		if answered && question.HasOptions(q.QuestionType) && sameIDs(ans.OptionIDs, correctIDs(q.Options)) {
			res.EarnedPoints += q.Points
		}
	}
	res.rate(passingScore)
	return res
}

// ApplyReview records rev on the result and rescores it.
// questions are the exam's questions, used to bound each manual score by the question's points.
func (r *Result) ApplyReview(rev Review, questions []question.Detail, passingScore float64) error {
	if rev.ManualScores != nil {
		maxPoints := make(map[int]float64, len(questions))
		for _, q := range questions {
			if !question.HasOptions(q.QuestionType) {
				maxPoints[q.ID] = q.Points
			}
		}
		for id, pts := range rev.ManualScores {
			max, ok := maxPoints[id]
			if !ok || pts < 0 || pts > max {
				return &ManualScoreError{QuestionID: id}
			}
		}

		auto := r.EarnedPoints - sumPoints(r.ManualScores)
		r.ManualScores = rev.ManualScores
		r.EarnedPoints = auto + sumPoints(rev.ManualScores)
		r.rate(passingScore)
	}
	if rev.Feedback != nil {
		r.Feedback = core.CleanString(*rev.Feedback)
	}
	now := core.NowFunc()
	r.ReviewedAt = &now
	return nil
}

func (r *Result) rate(passingScore float64) {
	r.Score = 0
	if r.TotalPoints > 0 {
		r.Score = r.EarnedPoints / r.TotalPoints * 100
	}
	r.Passed = r.Score >= passingScore
}

func sumPoints(scores map[int]float64) float64 {
	var sum float64
	for _, pts := range scores {
		sum += pts
	}
	return sum
}

func correctIDs(opts []question.Option) []int {
	ids := make([]int, 0, len(opts))
	for _, opt := range opts {
		if opt.IsCorrect {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

func sameIDs(a, b []int) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	a = append([]int(nil), a...)
	b = append([]int(nil), b...)
	sort.Ints(a)
	sort.Ints(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
