package exam

import (
	"time"

	"github.com/trezcool/examiner/core"
)

const (
	DefaultDurationMinutes = 60
	DefaultPassingScore    = 60
)

type Exam struct {
	ID              int       `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	PassingScore    float64   `json:"passing_score"`
	IsActive        bool      `json:"is_active"`
	IsRandomized    bool      `json:"is_randomized"`
	CreatedBy       int       `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// NewExam contains information needed to create a new Exam.
// RandomizeQuestions is the legacy name of IsRandomized.
type NewExam struct {
	Title              string   `json:"title" validate:"required,notblank,max=255"`
	Description        string   `json:"description"`
	DurationMinutes    *int     `json:"duration_minutes" validate:"omitempty,min=1"`
	PassingScore       *float64 `json:"passing_score" validate:"omitempty,min=0,max=100"`
	IsActive           *bool    `json:"is_active"`
	IsRandomized       *bool    `json:"is_randomized"`
	RandomizeQuestions *bool    `json:"randomize_questions"`
}

func (ne *NewExam) Clean() {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	if ne.IsRandomized == nil {
		ne.IsRandomized = ne.RandomizeQuestions
	}
	ne.RandomizeQuestions = nil
}

// Exam builds the Exam owned by userID, filling defaults for absent fields.
func (ne NewExam) Exam(userID int) Exam {
	now := core.NowFunc()
	ex := Exam{
		Title:           ne.Title,
		Description:     ne.Description,
		DurationMinutes: DefaultDurationMinutes,
		PassingScore:    DefaultPassingScore,
		IsActive:        true,
		CreatedBy:       userID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if ne.DurationMinutes != nil {
		ex.DurationMinutes = *ne.DurationMinutes
	}
	if ne.PassingScore != nil {
		ex.PassingScore = *ne.PassingScore
	}
	if ne.IsActive != nil {
		ex.IsActive = *ne.IsActive
	}
	if ne.IsRandomized != nil {
		ex.IsRandomized = *ne.IsRandomized
	}
	return ex
}

// UpdateExam defines what information may be provided to modify an existing Exam.
// Absent (nil) fields are left untouched.
type UpdateExam struct {
	Title              *string  `json:"title" validate:"omitempty,notblank,max=255"`
	Description        *string  `json:"description"`
	DurationMinutes    *int     `json:"duration_minutes" validate:"omitempty,min=1"`
	PassingScore       *float64 `json:"passing_score" validate:"omitempty,min=0,max=100"`
	IsActive           *bool    `json:"is_active"`
	IsRandomized       *bool    `json:"is_randomized"`
	RandomizeQuestions *bool    `json:"randomize_questions"`
}

func (ue *UpdateExam) Clean() {
	if ue.Title != nil {
		title := core.CleanString(*ue.Title)
		ue.Title = &title
	}
	if ue.Description != nil {
		desc := core.CleanString(*ue.Description)
		ue.Description = &desc
	}
	if ue.IsRandomized == nil {
		ue.IsRandomized = ue.RandomizeQuestions
	}
	ue.RandomizeQuestions = nil
}

// Patch returns the stored fields to merge onto the Exam.
func (ue UpdateExam) Patch() map[string]interface{} {
	patch := map[string]interface{}{"updated_at": core.NowFunc()}
	if ue.Title != nil {
		patch["title"] = *ue.Title
	}
	if ue.Description != nil {
		patch["description"] = *ue.Description
	}
	if ue.DurationMinutes != nil {
		patch["duration_minutes"] = *ue.DurationMinutes
	}
	if ue.PassingScore != nil {
		patch["passing_score"] = *ue.PassingScore
	}
	if ue.IsActive != nil {
		patch["is_active"] = *ue.IsActive
	}
	if ue.IsRandomized != nil {
		patch["is_randomized"] = *ue.IsRandomized
	}
	return patch
}

// CanManage reports whether a user may read, update or delete the exam.
func (e Exam) CanManage(userID int, isAdmin bool) bool {
	return isAdmin || e.CreatedBy == userID
}
