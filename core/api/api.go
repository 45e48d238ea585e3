// Package api defines the request contract shared by the local (embedded store) and remote executors.
// Callers cannot tell which executor served a request.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/examiner/core/session"
)

type (
	// Request is one "method + path + payload" call. Path may carry a query string.
	Request struct {
		Method  string      `json:"method"`
		Path    string      `json:"path"`
		Payload interface{} `json:"payload,omitempty"`
	}

	// Response carries the requested resource(s) under Data, or an ErrorBody on failure.
	Response struct {
		Status int         `json:"status"`
		Data   interface{} `json:"data"`
	}

	ErrorBody struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields,omitempty"`
	}

	// Requester executes requests on behalf of the session's user.
	Requester interface {
		Do(ctx context.Context, sess session.Resolver, req Request) Response
	}
)

func NewRequest(method, path string, payload ...interface{}) Request {
	req := Request{Method: strings.ToUpper(method), Path: path}
	if len(payload) > 0 {
		req.Payload = payload[0]
	}
	return req
}

func OK(data interface{}) Response { return Response{Status: http.StatusOK, Data: data} }

func Created(data interface{}) Response { return Response{Status: http.StatusCreated, Data: data} }

func Fail(status int, msg string) Response {
	return Response{Status: status, Data: ErrorBody{Error: msg}}
}

func (r Response) IsSuccess() bool { return r.Status >= 200 && r.Status < 300 }

// Decode converts Data into dest through its JSON representation.
func (r Response) Decode(dest interface{}) error {
	if raw, ok := r.Data.(json.RawMessage); ok {
		return errors.Wrap(json.Unmarshal(raw, dest), "decoding response data")
	}
	raw, err := json.Marshal(r.Data)
	if err != nil {
		return errors.Wrap(err, "encoding response data")
	}
	return errors.Wrap(json.Unmarshal(raw, dest), "decoding response data")
}

// ErrorMessage returns data.error of a failed response, "" otherwise.
func (r Response) ErrorMessage() string {
	if r.IsSuccess() {
		return ""
	}
	var body ErrorBody
	if err := r.Decode(&body); err != nil {
		return ""
	}
	return body.Error
}
