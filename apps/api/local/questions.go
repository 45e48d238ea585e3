package local

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/examiner/core/api"
	"github.com/trezcool/examiner/core/exam"
	"github.com/trezcool/examiner/core/question"
	"github.com/trezcool/examiner/storage/database"
)

const msgManageQuestions = "Only admins can manage questions"

type questionResponse struct {
	Message  string          `json:"message"`
	Question question.Detail `json:"question"`
}

func (r *Router) getQuestion(ctx context.Context, id int) (question.Question, error) {
	var q question.Question
	found, err := r.opts.Store.GetByID(ctx, database.Questions, id, &q)
	if err != nil {
		return question.Question{}, errors.Wrap(err, "getting question")
	}
	if !found {
		return question.Question{}, errQuestionNotFound
	}
	return q, nil
}

// detail joins q with its options, in order.
func (r *Router) detail(ctx context.Context, q question.Question) (question.Detail, error) {
	d := question.Detail{Question: q}
	if err := r.opts.Store.GetAllByIndex(ctx, database.Options, "question_id", q.ID, &d.Options); err != nil {
		return question.Detail{}, errors.Wrap(err, "listing question options")
	}
	return d, nil
}

func (r *Router) examQuestionDetails(ctx context.Context, examID int) ([]question.Detail, error) {
	var questions []question.Question
	if err := r.opts.Store.GetAllByIndex(ctx, database.Questions, "exam_id", examID, &questions); err != nil {
		return nil, errors.Wrap(err, "listing exam questions")
	}
	details := make([]question.Detail, 0, len(questions))
	for _, q := range questions {
		d, err := r.detail(ctx, q)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, nil
}

// publicQuestions returns the exam's questions as shown to candidates, shuffled for randomized exams.
func (r *Router) publicQuestions(ctx context.Context, ex exam.Exam) ([]question.Public, error) {
	details, err := r.examQuestionDetails(ctx, ex.ID)
	if err != nil {
		return nil, err
	}
	questions := make([]question.Public, 0, len(details))
	for _, d := range details {
		questions = append(questions, d.Public())
	}
	if ex.IsRandomized {
		questions = r.shuffled(questions)
	}
	return questions, nil
}

func (r *Router) addOptions(ctx context.Context, questionID int, inputs []question.OptionInput) error {
	for _, opt := range question.Options(questionID, inputs) {
		if _, err := r.opts.Store.Add(ctx, database.Options, opt); err != nil {
			return errors.Wrap(err, "adding option")
		}
	}
	return nil
}

func (r *Router) removeOptions(ctx context.Context, questionID int) error {
	var opts []question.Option
	if err := r.opts.Store.GetAllByIndex(ctx, database.Options, "question_id", questionID, &opts); err != nil {
		return errors.Wrap(err, "listing question options")
	}
	for _, opt := range opts {
		if err := r.opts.Store.Remove(ctx, database.Options, opt.ID); err != nil {
			return errors.Wrap(err, "removing option")
		}
	}
	return nil
}

// removeQuestion removes the question after its options.
func (r *Router) removeQuestion(ctx context.Context, id int) error {
	if err := r.removeOptions(ctx, id); err != nil {
		return err
	}
	return errors.Wrap(r.opts.Store.Remove(ctx, database.Questions, id), "removing question")
}

func parseFilter(c *call) (question.Filter, bool) {
	filter := question.Filter{
		QuestionType: strings.ToLower(strings.TrimSpace(c.query.Get("question_type"))),
		Search:       strings.ToLower(strings.TrimSpace(c.query.Get("search"))),
	}
	if raw := strings.TrimSpace(c.query.Get("exam_id")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return filter, false
		}
		filter.ExamID = id
	}
	return filter, true
}

func (r *Router) listQuestions(ctx context.Context, c *call) (api.Response, error) {
	filter, valid := parseFilter(c)
	if !valid { // matches nothing
		return api.OK([]question.Detail{}), nil
	}

	var questions []question.Question
	var err error
	if filter.ExamID > 0 {
		err = r.opts.Store.GetAllByIndex(ctx, database.Questions, "exam_id", filter.ExamID, &questions)
	} else {
		err = r.opts.Store.GetAll(ctx, database.Questions, &questions)
	}
	if err != nil {
		return api.Response{}, errors.Wrap(err, "listing questions")
	}

	titles := make(map[int]string)
	details := make([]question.Detail, 0, len(questions))
	for _, q := range questions {
		if filter.QuestionType != "" && q.QuestionType != filter.QuestionType {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(q.Text), filter.Search) {
			continue
		}

		d, err := r.detail(ctx, q)
		if err != nil {
			return api.Response{}, err
		}
		title, seen := titles[q.ExamID]
		if !seen {
			var ex exam.Exam
			if _, err = r.opts.Store.GetByID(ctx, database.Exams, q.ExamID, &ex); err != nil {
				return api.Response{}, errors.Wrap(err, "getting question exam")
			}
			title = ex.Title
			titles[q.ExamID] = title
		}
		d.ExamTitle = title
		details = append(details, d)
	}
	return api.OK(details), nil
}

func (r *Router) createQuestion(ctx context.Context, c *call) (api.Response, error) {
	data := c.payload.(*question.NewQuestion)

	if _, err := r.getExam(ctx, data.ExamID); err != nil {
		return api.Response{}, err
	}
	q := data.Question()
	id, err := r.opts.Store.Add(ctx, database.Questions, q)
	if err != nil {
		return api.Response{}, errors.Wrap(err, "adding question")
	}
	q.ID = id
	if err = r.addOptions(ctx, q.ID, data.Options); err != nil {
		return api.Response{}, err
	}

	d, err := r.detail(ctx, q)
	if err != nil {
		return api.Response{}, err
	}
	return api.Created(questionResponse{Message: "Question created successfully", Question: d}), nil
}

func (r *Router) retrieveQuestion(ctx context.Context, c *call) (api.Response, error) {
	q, err := r.getQuestion(ctx, c.id("id"))
	if err != nil {
		return api.Response{}, err
	}
	d, err := r.detail(ctx, q)
	if err != nil {
		return api.Response{}, err
	}
	return api.OK(d), nil
}

// updateQuestion applies the present fields. Present options replace the existing ones, and
// questions that become text questions lose theirs.
func (r *Router) updateQuestion(ctx context.Context, c *call) (api.Response, error) {
	data := c.payload.(*question.UpdateQuestion)

	q, err := r.getQuestion(ctx, c.id("id"))
	if err != nil {
		return api.Response{}, err
	}
	if data.ExamID != nil && *data.ExamID != q.ExamID {
		if _, err = r.getExam(ctx, *data.ExamID); err != nil {
			return api.Response{}, err
		}
	}
	if err = r.opts.Store.Update(ctx, database.Questions, q.ID, data.Patch(), &q); err != nil {
		return api.Response{}, errors.Wrap(err, "updating question")
	}

	switch {
	case !question.HasOptions(q.QuestionType):
		err = r.removeOptions(ctx, q.ID)
	case data.Options != nil:
		if err = r.removeOptions(ctx, q.ID); err == nil {
			err = r.addOptions(ctx, q.ID, data.Options)
		}
	}
	if err != nil {
		return api.Response{}, err
	}

	d, err := r.detail(ctx, q)
	if err != nil {
		return api.Response{}, err
	}
	return api.OK(questionResponse{Message: "Question updated successfully", Question: d}), nil
}

func (r *Router) destroyQuestion(ctx context.Context, c *call) (api.Response, error) {
	q, err := r.getQuestion(ctx, c.id("id"))
	if err != nil {
		return api.Response{}, err
	}
	if err = r.removeQuestion(ctx, q.ID); err != nil {
		return api.Response{}, err
	}
	return api.OK(message{Message: "Question deleted successfully"}), nil
}
