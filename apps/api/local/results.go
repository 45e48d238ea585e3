package local

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/examiner/core/api"
	"github.com/trezcool/examiner/core/result"
	"github.com/trezcool/examiner/storage/database"
)

const msgViewResults = "Only admins can view results"

var errResultNotFound = notFound("Result not found")

type resultResponse struct {
	Message string        `json:"message"`
	Result  result.Result `json:"result"`
}

func (r *Router) getResult(ctx context.Context, id int) (result.Result, error) {
	var res result.Result
	found, err := r.opts.Store.GetByID(ctx, database.Results, id, &res)
	if err != nil {
		return result.Result{}, errors.Wrap(err, "getting result")
	}
	if !found {
		return result.Result{}, errResultNotFound
	}
	return res, nil
}

func (r *Router) listResults(ctx context.Context, c *call) (api.Response, error) {
	var results []result.Result
	var err error
	if raw := strings.TrimSpace(c.query.Get("exam_id")); raw != "" {
		examID, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return api.OK([]result.Result{}), nil
		}
		err = r.opts.Store.GetAllByIndex(ctx, database.Results, "exam_id", examID, &results)
	} else {
		err = r.opts.Store.GetAll(ctx, database.Results, &results)
	}
	if err != nil {
		return api.Response{}, errors.Wrap(err, "listing results")
	}
	return api.OK(results), nil
}

func (r *Router) retrieveResult(ctx context.Context, c *call) (api.Response, error) {
	res, err := r.getResult(ctx, c.id("id"))
	if err != nil {
		return api.Response{}, err
	}
	return api.OK(res), nil
}

func (r *Router) examResults(ctx context.Context, c *call) (api.Response, error) {
	ex, err := r.getExam(ctx, c.id("id"))
	if err != nil {
		return api.Response{}, err
	}
	results := []result.Result{}
	if err = r.opts.Store.GetAllByIndex(ctx, database.Results, "exam_id", ex.ID, &results); err != nil {
		return api.Response{}, errors.Wrap(err, "listing exam results")
	}
	return api.OK(results), nil
}

func (r *Router) candidateResults(ctx context.Context, c *call) (api.Response, error) {
	cand, err := r.getCandidate(ctx, c.id("id"))
	if err != nil {
		return api.Response{}, err
	}
	results := []result.Result{}
	if err = r.opts.Store.GetAllByIndex(ctx, database.Results, "candidate_id", cand.ID, &results); err != nil {
		return api.Response{}, errors.Wrap(err, "listing candidate results")
	}
	return api.OK(results), nil
}

// reviewResult records manual scores for text answers and feedback, then rescores the result.
func (r *Router) reviewResult(ctx context.Context, c *call) (api.Response, error) {
	data := c.payload.(*result.Review)

	res, err := r.getResult(ctx, c.id("id"))
	if err != nil {
		return api.Response{}, err
	}
	ex, err := r.getExam(ctx, res.ExamID)
	if err != nil {
		return api.Response{}, err
	}
	details, err := r.examQuestionDetails(ctx, ex.ID)
	if err != nil {
		return api.Response{}, err
	}

	if err = res.ApplyReview(*data, details, ex.PassingScore); err != nil {
		var msErr *result.ManualScoreError
		if errors.As(err, &msErr) {
			return api.Response{}, badRequest(fmt.Sprintf("Invalid manual score for question %d", msErr.QuestionID))
		}
		return api.Response{}, err
	}
	if err = r.opts.Store.Update(ctx, database.Results, res.ID, res, &res); err != nil {
		return api.Response{}, errors.Wrap(err, "reviewing result")
	}
	return api.OK(resultResponse{Message: "Result updated successfully", Result: res}), nil
}
