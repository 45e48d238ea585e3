package local

import (
	"net/mail"

	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/candidate"
	"github.com/trezcool/examiner/core/exam"
)

type invitationData struct {
	Name            string
	ExamTitle       string
	Link            string
	DurationMinutes int
}

// mailInvitations emails each candidate the link to their exam. ex may be the zero Exam when the
// candidate's exam no longer exists.
func (r *Router) mailInvitations(ex exam.Exam, cands ...candidate.Candidate) {
	if r.opts.Mailer == nil || len(cands) == 0 {
		return
	}
	msgs := make([]*core.EmailMessage, 0, len(cands))
	for _, cand := range cands {
		title := ex.Title
		if title == "" {
			title = cand.ExamTitle
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: cand.Name, Address: cand.Email}},
			Subject:      "Invitation: " + title,
			TemplateName: "invitation",
			TemplateData: invitationData{
				Name:            cand.Name,
				ExamTitle:       title,
				Link:            cand.Link(),
				DurationMinutes: ex.DurationMinutes,
			},
		})
	}
	r.opts.Mailer.SendMessages(msgs...)
}
