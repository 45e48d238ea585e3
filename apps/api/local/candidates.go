package local

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/api"
	"github.com/trezcool/examiner/core/candidate"
	"github.com/trezcool/examiner/core/exam"
	"github.com/trezcool/examiner/core/question"
	"github.com/trezcool/examiner/core/result"
	"github.com/trezcool/examiner/storage/database"
)

type (
	candidateResponse struct {
		Message    string              `json:"message"`
		Candidate  candidate.Candidate `json:"candidate"`
		UniqueLink string              `json:"unique_link,omitempty"`
	}

	bulkResponse struct {
		Message      string                  `json:"message"`
		Candidates   []candidate.Candidate   `json:"candidates"`
		FailedEmails []candidate.FailedEmail `json:"failed_emails"`
	}

	examAccess struct {
		Exam      exam.Exam           `json:"exam"`
		Candidate candidate.Candidate `json:"candidate"`
		Questions []question.Public   `json:"questions"`
	}

	submitResponse struct {
		Message string        `json:"message"`
		Result  result.Result `json:"result"`
	}
)

func (r *Router) getCandidate(ctx context.Context, id int) (candidate.Candidate, error) {
	var cand candidate.Candidate
	found, err := r.opts.Store.GetByID(ctx, database.Candidates, id, &cand)
	if err != nil {
		return candidate.Candidate{}, errors.Wrap(err, "getting candidate")
	}
	if !found {
		return candidate.Candidate{}, errCandNotFound
	}
	return cand, nil
}

// withLiveTitle sets the candidate's exam title to the current title of its exam.
// titles caches the titles already looked up.
func (r *Router) withLiveTitle(ctx context.Context, cand candidate.Candidate, titles map[int]string) (candidate.Candidate, error) {
	title, seen := titles[cand.ExamID]
	if !seen {
		var ex exam.Exam
		found, err := r.opts.Store.GetByID(ctx, database.Exams, cand.ExamID, &ex)
		if err != nil {
			return candidate.Candidate{}, errors.Wrap(err, "getting candidate exam")
		}
		title = candidate.UnknownExamTitle
		if found {
			title = ex.Title
		}
		titles[cand.ExamID] = title
	}
	cand.ExamTitle = title
	return cand, nil
}

func (r *Router) listCandidates(ctx context.Context, _ *call) (api.Response, error) {
	var cands []candidate.Candidate
	if err := r.opts.Store.GetAll(ctx, database.Candidates, &cands); err != nil {
		return api.Response{}, errors.Wrap(err, "listing candidates")
	}
	titles := make(map[int]string)
	for i, cand := range cands {
		var err error
		if cands[i], err = r.withLiveTitle(ctx, cand, titles); err != nil {
			return api.Response{}, err
		}
	}
	return api.OK(cands), nil
}

func (r *Router) createCandidates(ctx context.Context, c *call) (api.Response, error) {
	data := c.payload.(*candidate.CreateRequest)
	if data.Bulk != nil {
		return r.createBulk(ctx, data.Bulk)
	}
	return r.createCandidate(ctx, data.Single)
}

func (r *Router) createCandidate(ctx context.Context, data *candidate.NewCandidate) (api.Response, error) {
	if found, err := r.opts.Store.GetByIndex(ctx, database.Candidates, "email", data.Email, nil); err != nil {
		return api.Response{}, errors.Wrap(err, "getting candidate by email")
	} else if found {
		return api.Response{}, errCandEmailTaken
	}
	ex, err := r.getExam(ctx, data.ExamID)
	if err != nil {
		return api.Response{}, err
	}

	cand := candidate.New(data.Name, data.Email, ex.ID, ex.Title, data.SendInvitation)
	if cand.ID, err = r.opts.Store.Add(ctx, database.Candidates, cand); err != nil {
		if database.IsConstraintViolation(err) {
			return api.Response{}, errCandEmailTaken
		}
		return api.Response{}, errors.Wrap(err, "adding candidate")
	}
	if data.SendInvitation {
		r.mailInvitations(ex, cand)
	}

	return api.Created(candidateResponse{
		Message:    "Candidate created successfully",
		Candidate:  cand,
		UniqueLink: cand.Link(),
	}), nil
}

// createBulk creates one candidate per email. Items fail independently and nothing is rolled back.
func (r *Router) createBulk(ctx context.Context, data *candidate.BulkCandidates) (api.Response, error) {
	var ex exam.Exam
	examFound, err := r.opts.Store.GetByID(ctx, database.Exams, data.ExamID, &ex)
	if err != nil {
		return api.Response{}, errors.Wrap(err, "getting exam")
	}

	resp := bulkResponse{
		Candidates:   make([]candidate.Candidate, 0, len(data.Emails)),
		FailedEmails: make([]candidate.FailedEmail, 0),
	}
	fail := func(email, reason string) {
		resp.FailedEmails = append(resp.FailedEmails, candidate.FailedEmail{Email: email, Reason: reason})
	}

	for _, email := range data.Emails {
		if err := r.opts.Validate.Var(email, "required,email"); err != nil {
			fail(email, "Invalid email address")
			continue
		}
		found, err := r.opts.Store.GetByIndex(ctx, database.Candidates, "email", email, nil)
		if err != nil {
			return api.Response{}, errors.Wrap(err, "getting candidate by email")
		}
		if found {
			fail(email, "Email already exists")
			continue
		}
		if !examFound {
			fail(email, "Exam not found")
			continue
		}

		cand := candidate.New("", email, ex.ID, ex.Title, data.SendInvitation)
		if cand.ID, err = r.opts.Store.Add(ctx, database.Candidates, cand); err != nil {
			if database.IsConstraintViolation(err) {
				fail(email, "Email already exists")
				continue
			}
			return api.Response{}, errors.Wrap(err, "adding candidate")
		}
		resp.Candidates = append(resp.Candidates, cand)
	}

	if data.SendInvitation {
		r.mailInvitations(ex, resp.Candidates...)
	}
	resp.Message = fmt.Sprintf("Created %d candidates (%d failed)", len(resp.Candidates), len(resp.FailedEmails))
	return api.Created(resp), nil
}

func (r *Router) retrieveCandidate(ctx context.Context, c *call) (api.Response, error) {
	cand, err := r.getCandidate(ctx, c.id("id"))
	if err != nil {
		return api.Response{}, err
	}
	if cand, err = r.withLiveTitle(ctx, cand, make(map[int]string)); err != nil {
		return api.Response{}, err
	}
	return api.OK(cand), nil
}

func (r *Router) updateCandidate(ctx context.Context, c *call) (api.Response, error) {
	data := c.payload.(*candidate.UpdateCandidate)

	cand, err := r.getCandidate(ctx, c.id("id"))
	if err != nil {
		return api.Response{}, err
	}

	now := core.NowFunc()
	patch := map[string]interface{}{"updated_at": now}
	if data.Name != nil {
		patch["name"] = *data.Name
	}
	if data.Email != nil && *data.Email != cand.Email {
		patch["email"] = *data.Email
	}
	ex, err := r.getExam(ctx, cand.ExamID)
	if err != nil && err != errExamNotFound {
		return api.Response{}, err
	}
	if data.ExamID != nil && *data.ExamID != cand.ExamID {
		if ex, err = r.getExam(ctx, *data.ExamID); err != nil {
			return api.Response{}, err
		}
		patch["exam_id"] = ex.ID
		patch["exam_title"] = ex.Title
	}
	if data.SendInvitation {
		for k, v := range candidate.InvitedPatch(now) {
			patch[k] = v
		}
	}

	if err = r.opts.Store.Update(ctx, database.Candidates, cand.ID, patch, &cand); err != nil {
		if database.IsConstraintViolation(err) {
			return api.Response{}, errCandEmailTaken
		}
		return api.Response{}, errors.Wrap(err, "updating candidate")
	}
	if data.SendInvitation {
		r.mailInvitations(ex, cand)
	}
	return api.OK(candidateResponse{Message: "Candidate updated successfully", Candidate: cand}), nil
}

func (r *Router) destroyCandidate(ctx context.Context, c *call) (api.Response, error) {
	cand, err := r.getCandidate(ctx, c.id("id"))
	if err != nil {
		return api.Response{}, err
	}
	if err = r.opts.Store.Remove(ctx, database.Candidates, cand.ID); err != nil {
		return api.Response{}, errors.Wrap(err, "removing candidate")
	}
	return api.OK(message{Message: "Candidate deleted successfully"}), nil
}

func (r *Router) sendInvitation(ctx context.Context, c *call) (api.Response, error) {
	cand, err := r.getCandidate(ctx, c.id("id"))
	if err != nil {
		return api.Response{}, err
	}
	ex, err := r.getExam(ctx, cand.ExamID)
	if err != nil && err != errExamNotFound {
		return api.Response{}, err
	}
	if err = r.opts.Store.Update(ctx, database.Candidates, cand.ID, candidate.InvitedPatch(core.NowFunc()), &cand); err != nil {
		return api.Response{}, errors.Wrap(err, "marking candidate invited")
	}
	r.mailInvitations(ex, cand)

	return api.OK(candidateResponse{
		Message:    "Invitation sent successfully",
		Candidate:  cand,
		UniqueLink: cand.Link(),
	}), nil
}

// linkedExam resolves a candidate link to the candidate and an exam they may still take.
func (r *Router) linkedExam(ctx context.Context, link string) (candidate.Candidate, exam.Exam, error) {
	var cand candidate.Candidate
	found, err := r.opts.Store.GetByIndex(ctx, database.Candidates, "unique_link", link, &cand)
	if err != nil {
		return cand, exam.Exam{}, errors.Wrap(err, "getting candidate by link")
	}
	if !found {
		return cand, exam.Exam{}, errInvalidLink
	}
	ex, err := r.getExam(ctx, cand.ExamID)
	if err != nil {
		return cand, ex, err
	}
	if !ex.IsActive {
		return cand, ex, errExamInactive
	}
	if cand.IsTestCompleted {
		return cand, ex, errExamCompleted
	}
	return cand, ex, nil
}

// accessExam opens the exam for the candidate of the link. The first access starts the test.
func (r *Router) accessExam(ctx context.Context, c *call) (api.Response, error) {
	cand, ex, err := r.linkedExam(ctx, c.param("link"))
	if err != nil {
		return api.Response{}, err
	}
	if cand.TestStartTime == nil {
		now := core.NowFunc()
		patch := map[string]interface{}{"test_start_time": now, "updated_at": now}
		if err = r.opts.Store.Update(ctx, database.Candidates, cand.ID, patch, &cand); err != nil {
			return api.Response{}, errors.Wrap(err, "starting test")
		}
	}

	questions, err := r.publicQuestions(ctx, ex)
	if err != nil {
		return api.Response{}, err
	}
	return api.OK(examAccess{Exam: ex, Candidate: cand, Questions: questions}), nil
}

// submitExam grades the candidate's answers, stores the result and completes the test.
func (r *Router) submitExam(ctx context.Context, c *call) (api.Response, error) {
	data := c.payload.(*result.Submission)

	cand, ex, err := r.linkedExam(ctx, c.param("link"))
	if err != nil {
		return api.Response{}, err
	}
	details, err := r.examQuestionDetails(ctx, ex.ID)
	if err != nil {
		return api.Response{}, err
	}

	res := result.Grade(details, data.Answers, ex.PassingScore)
	res.CandidateID = cand.ID
	res.ExamID = ex.ID
	if res.ID, err = r.opts.Store.Add(ctx, database.Results, res); err != nil {
		if database.IsConstraintViolation(err) {
			return api.Response{}, errExamCompleted
		}
		return api.Response{}, errors.Wrap(err, "adding result")
	}

	now := core.NowFunc()
	patch := map[string]interface{}{"is_test_completed": true, "test_end_time": now, "updated_at": now}
	if cand.TestStartTime == nil {
		patch["test_start_time"] = now
	}
	if err = r.opts.Store.Update(ctx, database.Candidates, cand.ID, patch, nil); err != nil {
		return api.Response{}, errors.Wrap(err, "completing test")
	}
	return api.OK(submitResponse{Message: "Exam submitted successfully", Result: res}), nil
}
