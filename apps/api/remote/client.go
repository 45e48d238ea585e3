// Package remote executes requests against a running backend over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/api"
	"github.com/trezcool/examiner/core/session"
	"github.com/trezcool/examiner/core/user"
)

const msgUnavailable = "Backend unavailable"

type authResponse struct {
	AccessToken string    `json:"access_token"`
	User        user.User `json:"user"`
}

// Client forwards requests to the backend at BaseURL, authenticated with the session's token.
type Client struct {
	baseURL string
	http    *rest.Client
	logger  core.Logger
}

var _ api.Requester = (*Client)(nil) // interface compliance check

func NewClient(conf *core.Config, logger core.Logger) *Client {
	return &Client{
		baseURL: conf.API.BaseURL,
		http:    &rest.Client{HTTPClient: &http.Client{Timeout: conf.API.Timeout}},
		logger:  logger,
	}
}

func (c *Client) Do(ctx context.Context, sess session.Resolver, req api.Request) api.Response {
	if sess == nil {
		sess = session.NewMemory()
	}

	token, err := sess.Token(ctx)
	if err != nil {
		c.logger.Error("reading session token", err)
		return api.Fail(http.StatusInternalServerError, "Internal Server Error")
	}
	restReq, err := c.buildRequest(req, token)
	if err != nil {
		return api.Fail(http.StatusBadRequest, "Invalid request")
	}

	res, err := c.send(ctx, restReq)
	if err != nil {
		c.logger.Warn("remote request failed", err, req)
		return api.Fail(http.StatusServiceUnavailable, msgUnavailable)
	}
	resp := toResponse(res)

	if err = c.syncSession(ctx, sess, req, resp, token != ""); err != nil {
		c.logger.Error("syncing session", err, req)
	}
	return resp
}

// send performs restReq, aborting it when ctx is done.
func (c *Client) send(ctx context.Context, restReq rest.Request) (*rest.Response, error) {
	httpReq, err := rest.BuildRequestObject(restReq)
	if err != nil {
		return nil, errors.Wrap(err, "building http request")
	}
	httpRes, err := c.http.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return rest.BuildResponse(httpRes)
}

func (c *Client) buildRequest(req api.Request, token string) (rest.Request, error) {
	path, rawQuery := req.Path, ""
	if i := strings.Index(path, "?"); i >= 0 {
		path, rawQuery = path[:i], path[i+1:]
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rest.Request{}, errors.New("invalid query string")
	}
	path = "/" + strings.TrimPrefix(strings.TrimLeft(path, "/"), "api/")

	restReq := rest.Request{
		Method:  rest.Method(strings.ToUpper(req.Method)),
		BaseURL: c.baseURL + path,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if len(query) > 0 {
		restReq.QueryParams = make(map[string]string, len(query))
		for k := range query {
			restReq.QueryParams[k] = query.Get(k)
		}
	}

	if token != "" {
		restReq.Headers["Authorization"] = "Bearer " + token
	}

	if req.Payload != nil {
		if restReq.Body, err = encodePayload(req.Payload); err != nil {
			return rest.Request{}, errors.New("invalid request payload")
		}
		restReq.Headers["Content-Type"] = "application/json"
	}
	return restReq, nil
}

func encodePayload(payload interface{}) ([]byte, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	}
	return json.Marshal(payload)
}

// toResponse keeps a JSON body as raw data; any other failed body becomes the error message.
func toResponse(res *rest.Response) api.Response {
	resp := api.Response{Status: res.StatusCode}
	body := bytes.TrimSpace([]byte(res.Body))
	if len(body) > 0 && json.Valid(body) {
		resp.Data = json.RawMessage(body)
		return resp
	}
	if resp.IsSuccess() {
		return resp
	}
	msg := string(body)
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}
	resp.Data = api.ErrorBody{Error: msg}
	return resp
}

// syncSession mirrors the backend's session changes into the local session.
// A rejected token clears the local session.
func (c *Client) syncSession(ctx context.Context, sess session.Resolver, req api.Request, resp api.Response, sentToken bool) error {
	path := strings.Trim(strings.TrimPrefix(strings.TrimLeft(req.Path, "/"), "api/"), "/")
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}

	if strings.EqualFold(req.Method, http.MethodPost) {
		switch path {
		case "auth/login", "auth/register":
			if !resp.IsSuccess() {
				return nil
			}
			var data authResponse
			if err := resp.Decode(&data); err != nil {
				return err
			}
			cred := session.Credential{Token: data.AccessToken, ExpiresAt: tokenExpiry(data.AccessToken)}
			return sess.Establish(ctx, data.User, cred)
		case "auth/logout":
			return sess.Clear(ctx)
		}
	}
	if sentToken && resp.Status == http.StatusUnauthorized {
		return sess.Clear(ctx)
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the backend remains the judge.
func tokenExpiry(token string) time.Time {
	claims := new(session.Claims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil || claims.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(claims.ExpiresAt, 0).UTC()
}
