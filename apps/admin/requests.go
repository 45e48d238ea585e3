package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/examiner/core/api"
	"github.com/trezcool/examiner/core/user"
)

// do sends req with the persisted session and fails on error responses.
func (cli *commandLine) do(req api.Request) (api.Response, error) {
	requester, err := cli.requester()
	if err != nil {
		return api.Response{}, err
	}
	sess, err := cli.session()
	if err != nil {
		return api.Response{}, err
	}

	resp := requester.Do(context.Background(), sess, req)
	if !resp.IsSuccess() {
		return resp, errors.Errorf("%d: %s", resp.Status, resp.ErrorMessage())
	}
	return resp, nil
}

func (cli *commandLine) login(email, pwd string) error {
	resp, err := cli.do(api.NewRequest(http.MethodPost, "/auth/login", user.Login{Email: email, Password: pwd}))
	if err != nil {
		return err
	}
	var data struct {
		User user.User `json:"user"`
	}
	if err = resp.Decode(&data); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "logged in as %q\n", data.User.Username)
	return nil
}

func (cli *commandLine) logout() error {
	if _, err := cli.do(api.NewRequest(http.MethodPost, "/auth/logout")); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "logged out")
	return nil
}

// call prints the indented data of the response to method + path.
func (cli *commandLine) call(method, path, data string) error {
	req := api.NewRequest(method, path)
	if data != "" {
		if !json.Valid([]byte(data)) {
			return errors.New("-data is not valid JSON")
		}
		req.Payload = json.RawMessage(data)
	}

	resp, err := cli.do(req)
	if err != nil {
		return err
	}
	var out interface{}
	if err = resp.Decode(&out); err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d\n%s\n", resp.Status, pretty)
	return nil
}
