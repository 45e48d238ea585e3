package candidate

import (
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/examiner/core"
)

const (
	LinkPrefix       = "/exam/"
	UnknownExamTitle = "Unknown Exam"
)

type Candidate struct {
	ID              int        `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	ExamID          int        `json:"exam_id"`
	ExamTitle       string     `json:"exam_title"` // snapshot taken when the exam is assigned
	UniqueLink      string     `json:"unique_link"`
	InvitationSent  bool       `json:"invitation_sent"`
	LastInvitedAt   *time.Time `json:"last_invited_at"` // UTC
	IsTestCompleted bool       `json:"is_test_completed"`
	TestStartTime   *time.Time `json:"test_start_time"` // UTC
	TestEndTime     *time.Time `json:"test_end_time"`   // UTC
	CreatedAt       time.Time  `json:"created_at"`      // UTC
	UpdatedAt       time.Time  `json:"updated_at"`      // UTC
}

// New returns an unsaved Candidate assigned to an exam, with a fresh unique link.
func New(name, email string, examID int, examTitle string, invite bool) Candidate {
	now := core.NowFunc()
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)
	if name == "" {
		name = core.EmailLocalPart(email)
	}
	cand := Candidate{
		Name:       name,
		Email:      email,
		ExamID:     examID,
		ExamTitle:  examTitle,
		UniqueLink: uuid.New().String(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if invite {
		cand.InvitationSent = true
		cand.LastInvitedAt = &now
	}
	return cand
}

// Link is the relative url granting access to the exam.
func (c Candidate) Link() string {
	return LinkPrefix + c.UniqueLink
}

// Status is the stage of the candidate in the exam taking lifecycle.
func (c Candidate) Status() string {
	switch {
	case c.IsTestCompleted:
		return "completed"
	case c.TestStartTime != nil:
		return "started"
	case c.InvitationSent:
		return "invited"
	}
	return "created"
}

// InvitedPatch marks the candidate as (re)invited at now.
func InvitedPatch(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"invitation_sent": true,
		"last_invited_at": now,
		"updated_at":      now,
	}
}

// NewCandidate contains information needed to create a single Candidate.
type NewCandidate struct {
	Name           string `json:"name"`
	Email          string `json:"email" validate:"required,email"`
	ExamID         int    `json:"exam_id" validate:"required,min=1"`
	SendInvitation bool   `json:"send_invitation"`
}

func (nc *NewCandidate) Clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.Email = core.CleanString(nc.Email, true /* lower */)
}

// BulkCandidates creates one Candidate per email, all assigned to the same exam.
// Emails are validated one by one so that a bad address only fails its own item.
type BulkCandidates struct {
	Emails         []string `json:"emails" validate:"required,min=1"`
	ExamID         int      `json:"exam_id" validate:"required,min=1"`
	SendInvitation bool     `json:"send_invitation"`
}

func (bc *BulkCandidates) Clean() {
	for i, email := range bc.Emails {
		bc.Emails[i] = core.CleanString(email, true /* lower */)
	}
}

// FailedEmail is one failed item of a bulk creation.
type FailedEmail struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// UpdateCandidate defines what information may be provided to modify an existing Candidate.
type UpdateCandidate struct {
	Name           *string `json:"name" validate:"omitempty,notblank"`
	Email          *string `json:"email" validate:"omitempty,email"`
	ExamID         *int    `json:"exam_id" validate:"omitempty,min=1"`
	SendInvitation bool    `json:"send_invitation"`
}

func (uc *UpdateCandidate) Clean() {
	if uc.Name != nil {
		name := core.CleanString(*uc.Name)
		uc.Name = &name
	}
	if uc.Email != nil {
		email := core.CleanString(*uc.Email, true /* lower */)
		uc.Email = &email
	}
}
