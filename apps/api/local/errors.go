package local

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/api"
	"github.com/trezcool/examiner/core/user"
	"github.com/trezcool/examiner/storage/database"
)

// Error is a request failure with the status and message returned to the caller.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%d: %s", e.Code, e.Message) }

func newError(code int, msg string) *Error { return &Error{Code: code, Message: msg} }

func badRequest(msg string) *Error { return newError(http.StatusBadRequest, msg) }
func forbidden(msg string) *Error  { return newError(http.StatusForbidden, msg) }
func notFound(msg string) *Error   { return newError(http.StatusNotFound, msg) }

var (
	errNotAuthenticated = newError(http.StatusUnauthorized, "Not authenticated")
	errInvalidPayload   = badRequest("Invalid request payload")
	errExamNotFound     = notFound("Exam not found")
	errExamForbidden    = forbidden("Unauthorized access to exam")
	errQuestionNotFound = notFound("Question not found")
	errCandNotFound     = notFound("Candidate not found")
	errCandEmailTaken   = badRequest("A candidate with this email already exists")
	errInvalidLink      = notFound("Invalid exam link")
	errExamInactive     = forbidden("This exam is not active")
	errExamCompleted    = forbidden("You have already completed this exam")
)

const internalErrorMsg = "Internal Server Error"

// errorResponse turns any handler error into a response. Unexpected errors are logged with req.
func (r *Router) errorResponse(err error, usr *user.User, req api.Request) api.Response {
	switch origErr := errors.Cause(err).(type) {
	case *Error:
		return api.Fail(origErr.Code, origErr.Message)
	case validator.ValidationErrors:
		keys, flds := core.TranslateValidationErrors(origErr, r.opts.Translator)
		return api.Response{
			Status: http.StatusBadRequest,
			Data:   api.ErrorBody{Error: core.JoinFieldErrors(keys, flds), Fields: flds},
		}
	case *core.ValidationError:
		msg := origErr.Error()
		if msg == "" {
			keys := make([]string, 0, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				keys = append(keys, fErr.Field)
			}
			msg = core.JoinFieldErrors(keys, origErr.FieldMap())
		}
		return api.Response{
			Status: http.StatusBadRequest,
			Data:   api.ErrorBody{Error: msg, Fields: origErr.FieldMap()},
		}
	}

	switch errors.Cause(err) {
	case database.ErrNotFound:
		return api.Fail(http.StatusNotFound, "Record not found")
	case database.ErrConstraintViolation:
		var cErr *database.ConstraintError
		if errors.As(err, &cErr) {
			return api.Fail(http.StatusBadRequest, fmt.Sprintf("%s already exists", cErr.Index))
		}
		return api.Fail(http.StatusBadRequest, "Record already exists")
	case database.ErrStorageUnavailable:
		r.opts.Logger.Error("storage unavailable", err, req)
		return api.Fail(http.StatusServiceUnavailable, "Storage unavailable")
	}

	// any other error is a server error
	args := []interface{}{errors.Wrap(err, internalErrorMsg), req}
	if usr != nil {
		args = append(args, *usr)
	}
	r.opts.Logger.Error(internalErrorMsg, args...)
	return api.Fail(http.StatusInternalServerError, internalErrorMsg)
}
