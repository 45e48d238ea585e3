package local

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/trezcool/examiner/core/api"
	"github.com/trezcool/examiner/core/candidate"
	"github.com/trezcool/examiner/core/exam"
	"github.com/trezcool/examiner/core/question"
	"github.com/trezcool/examiner/core/result"
	"github.com/trezcool/examiner/core/session"
	"github.com/trezcool/examiner/core/user"
)

type access int

const (
	public access = iota
	authed
	adminOnly
)

type (
	handlerFunc func(ctx context.Context, c *call) (api.Response, error)

	route struct {
		method   string
		pattern  string
		segments []segment
		access   access
		denied   string             // message of the 403 returned to non admins of adminOnly routes
		payload  func() interface{} // typed payload the request body is decoded into, nil for none
		handle   handlerFunc
	}

	segment struct {
		literal string
		param   string
		isInt   bool
	}

	// call is one matched request: who makes it, and its decoded parameters.
	call struct {
		user    *user.User
		sess    session.Resolver
		params  map[string]string
		ids     map[string]int
		query   url.Values
		payload interface{}
	}
)

func (c *call) id(name string) int { return c.ids[name] }

func (c *call) param(name string) string { return c.params[name] }

func (c *call) isAdmin() bool { return c.user != nil && c.user.IsAdmin }

// parsePattern splits a pattern such as /exams/{id:int}/questions into segments.
func parsePattern(pattern string) []segment {
	parts := strings.Split(strings.Trim(pattern, "/"), "/")
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			name := strings.TrimSuffix(strings.TrimPrefix(p, "{"), "}")
			isInt := strings.HasSuffix(name, ":int")
			segs = append(segs, segment{param: strings.TrimSuffix(name, ":int"), isInt: isInt})
			continue
		}
		segs = append(segs, segment{literal: p})
	}
	return segs
}

// match extracts the route's params from the path segments, reporting whether the route applies.
// Int params must be positive integers.
func (rt route) match(parts []string) (params map[string]string, ids map[string]int, ok bool) {
	if len(parts) != len(rt.segments) {
		return nil, nil, false
	}
	params = make(map[string]string)
	ids = make(map[string]int)
	for i, seg := range rt.segments {
		part := parts[i]
		switch {
		case seg.param == "":
			if part != seg.literal {
				return nil, nil, false
			}
		case seg.isInt:
			id, err := strconv.Atoi(part)
			if err != nil || id <= 0 {
				return nil, nil, false
			}
			ids[seg.param] = id
			params[seg.param] = part
		default:
			if part == "" {
				return nil, nil, false
			}
			params[seg.param] = part
		}
	}
	return params, ids, true
}

// splitPath separates the query string and normalizes the path: an /api prefix and trailing
// slashes are ignored.
func splitPath(rawPath string) (parts []string, query url.Values, err error) {
	path, rawQuery := rawPath, ""
	if i := strings.Index(rawPath, "?"); i >= 0 {
		path, rawQuery = rawPath[:i], rawPath[i+1:]
	}
	if query, err = url.ParseQuery(rawQuery); err != nil {
		return nil, nil, err
	}
	path = strings.Trim(path, "/")
	if path == "api" {
		path = ""
	}
	path = strings.TrimPrefix(path, "api/")
	return strings.Split(path, "/"), query, nil
}

func (r *Router) routeTable() []route {
	rts := []route{
		// auth
		{method: http.MethodPost, pattern: "/auth/login", payload: func() interface{} { return new(user.Login) }, handle: r.login},
		{method: http.MethodPost, pattern: "/auth/register", payload: func() interface{} { return new(user.NewUser) }, handle: r.register},
		{method: http.MethodPost, pattern: "/auth/logout", handle: r.logout},
		{method: http.MethodGet, pattern: "/auth/validate-token", handle: r.validateToken},
		{method: http.MethodGet, pattern: "/auth/me", access: authed, handle: r.me},

		// exams
		{method: http.MethodGet, pattern: "/exams", access: authed, handle: r.listExams},
		{method: http.MethodPost, pattern: "/exams", access: authed, payload: func() interface{} { return new(exam.NewExam) }, handle: r.createExam},
		{method: http.MethodGet, pattern: "/exams/{id:int}", access: authed, handle: r.retrieveExam},
		{method: http.MethodPut, pattern: "/exams/{id:int}", access: authed, payload: func() interface{} { return new(exam.UpdateExam) }, handle: r.updateExam},
		{method: http.MethodDelete, pattern: "/exams/{id:int}", access: authed, handle: r.destroyExam},
		{method: http.MethodGet, pattern: "/exams/{id:int}/questions", access: authed, handle: r.examQuestions},
		{method: http.MethodGet, pattern: "/exams/{id:int}/candidates", access: adminOnly, denied: "Only admins can view exam candidates", handle: r.examCandidates},

		// questions
		{method: http.MethodGet, pattern: "/questions", access: adminOnly, denied: msgManageQuestions, handle: r.listQuestions},
		{method: http.MethodPost, pattern: "/questions", access: adminOnly, denied: msgManageQuestions, payload: func() interface{} { return new(question.NewQuestion) }, handle: r.createQuestion},
		{method: http.MethodGet, pattern: "/questions/{id:int}", access: adminOnly, denied: msgManageQuestions, handle: r.retrieveQuestion},
		{method: http.MethodPut, pattern: "/questions/{id:int}", access: adminOnly, denied: msgManageQuestions, payload: func() interface{} { return new(question.UpdateQuestion) }, handle: r.updateQuestion},
		{method: http.MethodDelete, pattern: "/questions/{id:int}", access: adminOnly, denied: msgManageQuestions, handle: r.destroyQuestion},

		// candidates
		{method: http.MethodGet, pattern: "/candidates", access: adminOnly, denied: "Only admins can view all candidates", handle: r.listCandidates},
		{method: http.MethodPost, pattern: "/candidates", access: adminOnly, denied: "Only admins can create candidates", payload: func() interface{} { return new(candidate.CreateRequest) }, handle: r.createCandidates},
		{method: http.MethodGet, pattern: "/candidates/{id:int}", access: adminOnly, denied: "Only admins can view candidate details", handle: r.retrieveCandidate},
		{method: http.MethodPut, pattern: "/candidates/{id:int}", access: adminOnly, denied: "Only admins can update candidates", payload: func() interface{} { return new(candidate.UpdateCandidate) }, handle: r.updateCandidate},
		{method: http.MethodDelete, pattern: "/candidates/{id:int}", access: adminOnly, denied: "Only admins can delete candidates", handle: r.destroyCandidate},
		{method: http.MethodPost, pattern: "/candidates/{id:int}/send-invitation", access: adminOnly, denied: "Only admins can send invitations", handle: r.sendInvitation},
		{method: http.MethodGet, pattern: "/candidates/exam/{link}", handle: r.accessExam},
		{method: http.MethodPost, pattern: "/candidates/exam/{link}/submit", payload: func() interface{} { return new(result.Submission) }, handle: r.submitExam},
		{method: http.MethodGet, pattern: "/candidates/exams/{id:int}/candidates", access: adminOnly, denied: "Only admins can view exam candidates", handle: r.examCandidates},

		// results
		{method: http.MethodGet, pattern: "/results", access: adminOnly, denied: msgViewResults, handle: r.listResults},
		{method: http.MethodGet, pattern: "/results/{id:int}", access: adminOnly, denied: msgViewResults, handle: r.retrieveResult},
		{method: http.MethodGet, pattern: "/results/exams/{id:int}", access: adminOnly, denied: msgViewResults, handle: r.examResults},
		{method: http.MethodGet, pattern: "/results/candidates/{id:int}", access: adminOnly, denied: msgViewResults, handle: r.candidateResults},
		{method: http.MethodPut, pattern: "/results/{id:int}/review", access: adminOnly, denied: "Only admins can review results", payload: func() interface{} { return new(result.Review) }, handle: r.reviewResult},
	}
	for i := range rts {
		rts[i].segments = parsePattern(rts[i].pattern)
	}
	return rts
}
