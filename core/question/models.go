package question

import (
	"time"

	"github.com/trezcool/examiner/core"
)

// Question types
const (
	TypeMultipleChoice = "multiple_choice"
	TypeSingleChoice   = "single_choice"
	TypeTrueFalse      = "true_false"
	TypeText           = "text"

	DefaultPoints = 1
)

var Types = []string{TypeMultipleChoice, TypeSingleChoice, TypeTrueFalse, TypeText}

// HasOptions reports whether questions of type qType carry options.
func HasOptions(qType string) bool {
	switch qType {
	case TypeMultipleChoice, TypeSingleChoice, TypeTrueFalse:
		return true
	}
	return false
}

type (
	Question struct {
		ID           int       `json:"id"`
		ExamID       int       `json:"exam_id"`
		Text         string    `json:"text"`
		QuestionType string    `json:"question_type"`
		Points       float64   `json:"points"`
		Explanation  string    `json:"explanation"`
		CreatedAt    time.Time `json:"created_at"` // UTC
		UpdatedAt    time.Time `json:"updated_at"` // UTC
	}

	Option struct {
		ID         int       `json:"id"`
		QuestionID int       `json:"question_id"`
		Text       string    `json:"text"`
		IsCorrect  bool      `json:"is_correct"`
		Order      int       `json:"order"`
		CreatedAt  time.Time `json:"created_at"` // UTC
		UpdatedAt  time.Time `json:"updated_at"` // UTC
	}

	// Detail is a Question joined with its options and, in listings, its exam's title.
	Detail struct {
		Question
		ExamTitle string   `json:"exam_title,omitempty"`
		Options   []Option `json:"options"`
	}

	// PublicOption is an Option as shown to exam takers: the answer key is withheld.
	PublicOption struct {
		ID    int    `json:"id"`
		Text  string `json:"text"`
		Order int    `json:"order"`
	}

	// Public is a Question as shown to exam takers.
	Public struct {
		ID           int            `json:"id"`
		ExamID       int            `json:"exam_id"`
		Text         string         `json:"text"`
		QuestionType string         `json:"question_type"`
		Points       float64        `json:"points"`
		Options      []PublicOption `json:"options"`
	}
)

func (d Detail) Public() Public {
	opts := make([]PublicOption, 0, len(d.Options))
	for _, opt := range d.Options {
		opts = append(opts, PublicOption{ID: opt.ID, Text: opt.Text, Order: opt.Order})
	}
	return Public{
		ID:           d.ID,
		ExamID:       d.ExamID,
		Text:         d.Text,
		QuestionType: d.QuestionType,
		Points:       d.Points,
		Options:      opts,
	}
}

// OptionInput is one option of a question payload.
type OptionInput struct {
	Text      string `json:"text" validate:"required,notblank"`
	IsCorrect bool   `json:"is_correct"`
}

// Options builds the options of questionID in input order, 1-based.
func Options(questionID int, inputs []OptionInput) []Option {
	now := core.NowFunc()
	opts := make([]Option, 0, len(inputs))
	for i, in := range inputs {
		opts = append(opts, Option{
			QuestionID: questionID,
			Text:       core.CleanString(in.Text),
			IsCorrect:  in.IsCorrect,
			Order:      i + 1,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return opts
}

// NewQuestion contains information needed to create a new Question.
// Options are ignored for text questions.
type NewQuestion struct {
	ExamID       int           `json:"exam_id" validate:"required,min=1"`
	Text         string        `json:"text" validate:"required,notblank"`
	QuestionType string        `json:"question_type" validate:"required,qtype"`
	Points       *float64      `json:"points" validate:"omitempty,min=0"`
	Explanation  string        `json:"explanation"`
	Options      []OptionInput `json:"options" validate:"omitempty,dive"`
}

func (nq *NewQuestion) Clean() {
	nq.Text = core.CleanString(nq.Text)
	nq.QuestionType = core.CleanString(nq.QuestionType, true /* lower */)
	nq.Explanation = core.CleanString(nq.Explanation)
	if !HasOptions(nq.QuestionType) {
		nq.Options = nil
	}
}

func (nq NewQuestion) Question() Question {
	now := core.NowFunc()
	q := Question{
		ExamID:       nq.ExamID,
		Text:         nq.Text,
		QuestionType: nq.QuestionType,
		Points:       DefaultPoints,
		Explanation:  nq.Explanation,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if nq.Points != nil {
		q.Points = *nq.Points
	}
	return q
}

// UpdateQuestion defines what information may be provided to modify an existing Question.
// A non-nil Options (even empty) replaces the whole option set.
type UpdateQuestion struct {
	ExamID       *int          `json:"exam_id" validate:"omitempty,min=1"`
	Text         *string       `json:"text" validate:"omitempty,notblank"`
	QuestionType *string       `json:"question_type" validate:"omitempty,qtype"`
	Points       *float64      `json:"points" validate:"omitempty,min=0"`
	Explanation  *string       `json:"explanation"`
	Options      []OptionInput `json:"options" validate:"omitempty,dive"`
}

func (uq *UpdateQuestion) Clean() {
	if uq.Text != nil {
		text := core.CleanString(*uq.Text)
		uq.Text = &text
	}
	if uq.QuestionType != nil {
		qType := core.CleanString(*uq.QuestionType, true /* lower */)
		uq.QuestionType = &qType
	}
	if uq.Explanation != nil {
		expl := core.CleanString(*uq.Explanation)
		uq.Explanation = &expl
	}
}

// Patch returns the stored fields to merge onto the Question.
func (uq UpdateQuestion) Patch() map[string]interface{} {
	patch := map[string]interface{}{"updated_at": core.NowFunc()}
	if uq.ExamID != nil {
		patch["exam_id"] = *uq.ExamID
	}
	if uq.Text != nil {
		patch["text"] = *uq.Text
	}
	if uq.QuestionType != nil {
		patch["question_type"] = *uq.QuestionType
	}
	if uq.Points != nil {
		patch["points"] = *uq.Points
	}
	if uq.Explanation != nil {
		patch["explanation"] = *uq.Explanation
	}
	return patch
}

// Filter narrows question listings. Zero values match everything.
type Filter struct {
	ExamID       int
	QuestionType string
	Search       string
}
