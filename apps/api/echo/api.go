package echoapi

import (
	"bytes"
	"encoding/json"
	"io/ioutil"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/examiner/core/api"
)

// serveAPI hands the request over to the router, with the session of the request's token.
func (s *Server) serveAPI(ctx echo.Context) error {
	sess, err := requestSession(ctx, s.opts.Store)
	if err != nil {
		return err
	}

	httpReq := ctx.Request()
	body, err := ioutil.ReadAll(httpReq.Body)
	if err != nil {
		return errors.Wrap(err, "reading request body")
	}
	req := api.Request{Method: httpReq.Method, Path: httpReq.URL.RequestURI()}
	if len(bytes.TrimSpace(body)) > 0 {
		req.Payload = json.RawMessage(body)
	}

	resp := s.opts.Router.Do(httpReq.Context(), sess, req)
	return ctx.JSON(resp.Status, resp.Data)
}
