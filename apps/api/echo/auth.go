package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/examiner/core/session"
	"github.com/trezcool/examiner/core/user"
	"github.com/trezcool/examiner/storage/database"
)

const tokenContextKey = "userToken"

// newJWTConfig verifies bearer tokens when one is sent. Requests without one go through
// anonymously and the router decides what they may access.
func newJWTConfig(tokens session.TokenIssuer) middleware.JWTConfig {
	return middleware.JWTConfig{
		Skipper: func(ctx echo.Context) bool {
			return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
		},
		SigningKey:    tokens.Secret,
		SigningMethod: session.SigningMethod.Alg(),
		ContextKey:    tokenContextKey,
		Claims:        new(session.Claims),
		ErrorHandler:  func(error) error { return errInvalidToken },
	}
}

func getContextClaims(ctx echo.Context) (*jwt.Token, *session.Claims, bool) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*session.Claims); ok {
			return token, claims, true
		}
	}
	return nil, nil, false
}

// requestSession returns a session established for the user of the request's token, if any.
func requestSession(ctx echo.Context, store database.Store) (*session.Memory, error) {
	sess := session.NewMemory()
	token, claims, ok := getContextClaims(ctx)
	if !ok {
		return sess, nil
	}

	id, err := claims.UserID()
	if err != nil {
		return nil, errInvalidToken
	}
	var usr user.User
	found, err := store.GetByID(ctx.Request().Context(), database.Users, id, &usr)
	if err != nil {
		return nil, errors.Wrap(err, "getting token user")
	}
	if !found {
		return nil, errInvalidToken
	}

	cred := session.Credential{Token: token.Raw, ExpiresAt: time.Unix(claims.ExpiresAt, 0).UTC()}
	if err = sess.Establish(ctx.Request().Context(), usr, cred); err != nil {
		return nil, errors.Wrap(err, "establishing session")
	}
	return sess, nil
}

var errInvalidToken = echo.NewHTTPError(http.StatusUnauthorized, "Token is invalid or expired")
