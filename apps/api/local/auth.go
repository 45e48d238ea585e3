package local

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/api"
	"github.com/trezcool/examiner/core/user"
	"github.com/trezcool/examiner/storage/database"
)

type (
	authResponse struct {
		AccessToken string    `json:"access_token"`
		User        user.User `json:"user"`
	}

	tokenStatus struct {
		Valid bool       `json:"valid"`
		User  *user.User `json:"user,omitempty"`
		Error string     `json:"error,omitempty"`
	}
)

var (
	errUserNotFound    = newError(http.StatusUnauthorized, "User not found")
	errInvalidPassword = newError(http.StatusUnauthorized, "Invalid password")
	errEmailExists     = badRequest("Email already exists")
	errUsernameExists  = badRequest("Username already exists")
	msgInvalidToken    = "Token is invalid or expired"
)

// startSession issues a token for usr and establishes it as the session of the call.
func (r *Router) startSession(ctx context.Context, c *call, usr user.User) (authResponse, error) {
	cred, err := r.opts.Tokens.Issue(usr, core.NowFunc())
	if err != nil {
		return authResponse{}, errors.Wrap(err, "issuing token")
	}
	if err = c.sess.Establish(ctx, usr, cred); err != nil {
		return authResponse{}, errors.Wrap(err, "establishing session")
	}
	return authResponse{AccessToken: cred.Token, User: usr.Public()}, nil
}

func (r *Router) login(ctx context.Context, c *call) (api.Response, error) {
	data := c.payload.(*user.Login)

	var usr user.User
	found, err := r.opts.Store.GetByIndex(ctx, database.Users, "email", data.Email, &usr)
	if err != nil {
		return api.Response{}, errors.Wrap(err, "getting user by email")
	}
	if !found {
		return api.Response{}, errUserNotFound
	}
	if err = usr.CheckPassword(data.Password); err != nil {
		return api.Response{}, errInvalidPassword
	}

	resp, err := r.startSession(ctx, c, usr)
	if err != nil {
		return api.Response{}, err
	}
	return api.OK(resp), nil
}

func (r *Router) register(ctx context.Context, c *call) (api.Response, error) {
	data := c.payload.(*user.NewUser)

	if found, err := r.opts.Store.GetByIndex(ctx, database.Users, "email", data.Email, nil); err != nil {
		return api.Response{}, errors.Wrap(err, "getting user by email")
	} else if found {
		return api.Response{}, errEmailExists
	}
	if found, err := r.opts.Store.GetByIndex(ctx, database.Users, "username", data.Username, nil); err != nil {
		return api.Response{}, errors.Wrap(err, "getting user by username")
	} else if found {
		return api.Response{}, errUsernameExists
	}

	usr, err := user.New(data.Email, data.Username, data.Password, false)
	if err != nil {
		return api.Response{}, errors.Wrap(err, "building user")
	}
	if usr.ID, err = r.opts.Store.Add(ctx, database.Users, usr); err != nil {
		var cErr *database.ConstraintError
		if errors.As(err, &cErr) && cErr.Index == "username" {
			return api.Response{}, errUsernameExists
		} else if cErr != nil {
			return api.Response{}, errEmailExists
		}
		return api.Response{}, errors.Wrap(err, "adding user")
	}

	resp, err := r.startSession(ctx, c, usr)
	if err != nil {
		return api.Response{}, err
	}
	return api.Created(resp), nil
}

func (r *Router) logout(ctx context.Context, c *call) (api.Response, error) {
	if err := c.sess.Clear(ctx); err != nil {
		return api.Response{}, errors.Wrap(err, "clearing session")
	}
	return api.OK(message{Message: "Logged out successfully"}), nil
}

func (r *Router) validateToken(_ context.Context, c *call) (api.Response, error) {
	if c.user == nil {
		return api.Response{Status: http.StatusUnauthorized, Data: tokenStatus{Error: msgInvalidToken}}, nil
	}
	usr := c.user.Public()
	return api.OK(tokenStatus{Valid: true, User: &usr}), nil
}

func (r *Router) me(_ context.Context, c *call) (api.Response, error) {
	return api.OK(c.user.Public()), nil
}
