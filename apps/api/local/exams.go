package local

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/examiner/core/api"
	"github.com/trezcool/examiner/core/candidate"
	"github.com/trezcool/examiner/core/exam"
	"github.com/trezcool/examiner/core/question"
	"github.com/trezcool/examiner/storage/database"
)

func (r *Router) getExam(ctx context.Context, id int) (exam.Exam, error) {
	var ex exam.Exam
	found, err := r.opts.Store.GetByID(ctx, database.Exams, id, &ex)
	if err != nil {
		return exam.Exam{}, errors.Wrap(err, "getting exam")
	}
	if !found {
		return exam.Exam{}, errExamNotFound
	}
	return ex, nil
}

// getManagedExam returns the exam of the call's id param, if the user may manage it.
func (r *Router) getManagedExam(ctx context.Context, c *call) (exam.Exam, error) {
	ex, err := r.getExam(ctx, c.id("id"))
	if err != nil {
		return exam.Exam{}, err
	}
	if !ex.CanManage(c.user.ID, c.user.IsAdmin) {
		return exam.Exam{}, errExamForbidden
	}
	return ex, nil
}

func (r *Router) listExams(ctx context.Context, c *call) (api.Response, error) {
	var exams []exam.Exam
	var err error
	if c.isAdmin() {
		err = r.opts.Store.GetAll(ctx, database.Exams, &exams)
	} else {
		err = r.opts.Store.GetAllByIndex(ctx, database.Exams, "created_by", c.user.ID, &exams)
	}
	if err != nil {
		return api.Response{}, errors.Wrap(err, "listing exams")
	}
	return api.OK(exams), nil
}

func (r *Router) createExam(ctx context.Context, c *call) (api.Response, error) {
	data := c.payload.(*exam.NewExam)

	ex := data.Exam(c.user.ID)
	id, err := r.opts.Store.Add(ctx, database.Exams, ex)
	if err != nil {
		return api.Response{}, errors.Wrap(err, "adding exam")
	}
	ex.ID = id
	return api.Created(ex), nil
}

func (r *Router) retrieveExam(ctx context.Context, c *call) (api.Response, error) {
	ex, err := r.getManagedExam(ctx, c)
	if err != nil {
		return api.Response{}, err
	}
	return api.OK(ex), nil
}

func (r *Router) updateExam(ctx context.Context, c *call) (api.Response, error) {
	data := c.payload.(*exam.UpdateExam)

	ex, err := r.getManagedExam(ctx, c)
	if err != nil {
		return api.Response{}, err
	}
	if err = r.opts.Store.Update(ctx, database.Exams, ex.ID, data.Patch(), &ex); err != nil {
		return api.Response{}, errors.Wrap(err, "updating exam")
	}
	return api.OK(ex), nil
}

// destroyExam removes the exam after its questions and their options.
// Candidates assigned to the exam are kept; their exam reads as unknown from then on.
func (r *Router) destroyExam(ctx context.Context, c *call) (api.Response, error) {
	ex, err := r.getManagedExam(ctx, c)
	if err != nil {
		return api.Response{}, err
	}

	var questions []question.Question
	if err = r.opts.Store.GetAllByIndex(ctx, database.Questions, "exam_id", ex.ID, &questions); err != nil {
		return api.Response{}, errors.Wrap(err, "listing exam questions")
	}
	for _, q := range questions {
		if err = r.removeQuestion(ctx, q.ID); err != nil {
			return api.Response{}, err
		}
	}
	if err = r.opts.Store.Remove(ctx, database.Exams, ex.ID); err != nil {
		return api.Response{}, errors.Wrap(err, "removing exam")
	}
	return api.OK(message{Message: "Exam deleted successfully"}), nil
}

// examQuestions serves the questions to their managers with the answer key, and to the candidates
// assigned to the exam without it.
func (r *Router) examQuestions(ctx context.Context, c *call) (api.Response, error) {
	ex, err := r.getExam(ctx, c.id("id"))
	if err != nil {
		return api.Response{}, err
	}

	if ex.CanManage(c.user.ID, c.user.IsAdmin) {
		details, err := r.examQuestionDetails(ctx, ex.ID)
		if err != nil {
			return api.Response{}, err
		}
		return api.OK(details), nil
	}

	var cand candidate.Candidate
	found, err := r.opts.Store.GetByIndex(ctx, database.Candidates, "email", c.user.Email, &cand)
	if err != nil {
		return api.Response{}, errors.Wrap(err, "getting candidate by email")
	}
	if !found || cand.ExamID != ex.ID {
		return api.Response{}, forbidden("Unauthorized access to exam questions")
	}
	questions, err := r.publicQuestions(ctx, ex)
	if err != nil {
		return api.Response{}, err
	}
	return api.OK(questions), nil
}

func (r *Router) examCandidates(ctx context.Context, c *call) (api.Response, error) {
	var cands []candidate.Candidate
	if err := r.opts.Store.GetAllByIndex(ctx, database.Candidates, "exam_id", c.id("id"), &cands); err != nil {
		return api.Response{}, errors.Wrap(err, "listing exam candidates")
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
