package local

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/api"
	"github.com/trezcool/examiner/core/session"
	"github.com/trezcool/examiner/core/user"
	"github.com/trezcool/examiner/services/email"
	"github.com/trezcool/examiner/services/logger"
	"github.com/trezcool/examiner/storage/database"
	"github.com/trezcool/examiner/tests"
)

var testNow = time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	router *Router
	store  database.Store
	mailer *emailsvc.ConsoleServiceMock
	tokens session.TokenIssuer

	admin, owner, other user.User
}

// reverse is a deterministic stand-in for a random shuffle.
func reverse(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func freezeTime(t *testing.T) {
	nowFunc := core.NowFunc
	core.NowFunc = func() time.Time { return testNow }
	t.Cleanup(func() { core.NowFunc = nowFunc })
}

func setup(t *testing.T) *fixture {
	freezeTime(t)
	conf := &core.Config{AppName: "Examiner", FrontendBaseURL: "http://front.test", Debug: true}
	store := testutil.PrepareStore(t)

	f := &fixture{
		store:  store,
		mailer: emailsvc.NewConsoleServiceMock(conf),
		tokens: session.NewTokenIssuer("examiner", "secret", 24*time.Hour),
		admin:  testutil.CreateUser(t, store, "admin@test.cd", "admin", "adminpassword", true),
		owner:  testutil.CreateUser(t, store, "owner@test.cd", "owner", "ownerpassword", false),
		other:  testutil.CreateUser(t, store, "other@test.cd", "other", "otherpassword", false),
	}
	f.router = New(Options{
		Store:   store,
		Logger:  logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf),
		Mailer:  f.mailer,
		Tokens:  f.tokens,
		Shuffle: reverse,
	})
	return f
}

func as(usr user.User) session.Resolver { return session.NewMemoryFor(usr) }

func (f *fixture) do(sess session.Resolver, method, path string, payload ...interface{}) api.Response {
	return f.router.Do(context.Background(), sess, api.NewRequest(method, path, payload...))
}

func decode(t *testing.T, resp api.Response, dest interface{}) {
	t.Helper()
	require.True(t, resp.IsSuccess(), "status %d: %s", resp.Status, resp.ErrorMessage())
	require.NoError(t, resp.Decode(dest))
}

type routeTest struct {
	name       string
	sess       session.Resolver
	method     string
	path       string
	payload    interface{}
	wantStatus int
	wantErr    string
}

func (f *fixture) run(t *testing.T, tests []routeTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload []interface{}
			if tt.payload != nil {
				payload = append(payload, tt.payload)
			}
			resp := f.do(tt.sess, tt.method, tt.path, payload...)
			assert.Equal(t, tt.wantStatus, resp.Status, resp.ErrorMessage())
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, resp.ErrorMessage())
			}
		})
	}
}

func TestRouter_routing(t *testing.T) {
	f := setup(t)
	testutil.CreateExam(t, f.store, "Go 101", f.owner.ID)

	f.run(t, []routeTest{
		{name: "unknown path", sess: as(f.admin), method: http.MethodGet, path: "/lol", wantStatus: http.StatusNotFound, wantErr: "Route not found: GET /lol"},
		{name: "unknown method", sess: as(f.admin), method: http.MethodPatch, path: "/exams/1", wantStatus: http.StatusNotFound, wantErr: "Route not found: PATCH /exams/1"},
		{name: "non int id", sess: as(f.admin), method: http.MethodGet, path: "/exams/abc", wantStatus: http.StatusNotFound, wantErr: "Route not found: GET /exams/abc"},
		{name: "zero id", sess: as(f.admin), method: http.MethodGet, path: "/exams/0", wantStatus: http.StatusNotFound},
		{name: "api prefix and trailing slash", sess: as(f.admin), method: http.MethodGet, path: "/api/exams/1/", wantStatus: http.StatusOK},
		{name: "lower case method", sess: as(f.admin), method: "get", path: "/exams", wantStatus: http.StatusOK},
		{name: "query string", sess: as(f.admin), method: http.MethodGet, path: "/questions?exam_id=1", wantStatus: http.StatusOK},
		{name: "no session", sess: nil, method: http.MethodGet, path: "/exams", wantStatus: http.StatusUnauthorized, wantErr: "Not authenticated"},
		{name: "empty session", sess: session.NewMemory(), method: http.MethodGet, path: "/candidates", wantStatus: http.StatusUnauthorized, wantErr: "Not authenticated"},
		{name: "admin only", sess: as(f.owner), method: http.MethodGet, path: "/candidates", wantStatus: http.StatusForbidden, wantErr: "Only admins can view all candidates"},
		{name: "admin only questions", sess: as(f.owner), method: http.MethodPost, path: "/questions", wantStatus: http.StatusForbidden, wantErr: "Only admins can manage questions"},
		{name: "malformed payload", sess: as(f.owner), method: http.MethodPost, path: "/exams", payload: []byte("{lol"), wantStatus: http.StatusBadRequest, wantErr: "Invalid request payload"},
		{name: "invalid payload", sess: as(f.owner), method: http.MethodPost, path: "/exams", payload: map[string]interface{}{"title": "  "}, wantStatus: http.StatusBadRequest, wantErr: "title: this field is required"},
	})
}

type panickyStore struct {
	database.Store
}

func (panickyStore) GetAll(context.Context, string, interface{}) error { panic("boom") }

func TestRouter_recovers(t *testing.T) {
	f := setup(t)
	f.router.opts.Store = panickyStore{Store: f.store}
	var logs bytes.Buffer
	f.router.opts.Logger = logsvc.NewRollbarLogger(log.New(&logs, "", 0), &core.Config{Debug: true})

	resp := f.do(as(f.admin), http.MethodGet, "/exams?page=1")
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "Internal Server Error", resp.ErrorMessage())
	assert.Contains(t, logs.String(), "request: GET /exams?page=1")
	assert.Contains(t, logs.String(), "user: "+itoa(f.admin.ID)+" admin")
}

func TestRouter_auth(t *testing.T) {
	f := setup(t)

	t.Run("login", func(t *testing.T) {
		f.run(t, []routeTest{
			{name: "missing fields", method: http.MethodPost, path: "/auth/login", payload: map[string]string{}, wantStatus: http.StatusBadRequest, wantErr: "email: this field is required; password: this field is required"},
			{name: "unknown email", method: http.MethodPost, path: "/auth/login", payload: user.Login{Email: "lol@test.cd", Password: "x"}, wantStatus: http.StatusUnauthorized, wantErr: "User not found"},
			{name: "wrong password", method: http.MethodPost, path: "/auth/login", payload: user.Login{Email: "owner@test.cd", Password: "x"}, wantStatus: http.StatusUnauthorized, wantErr: "Invalid password"},
		})

		sess := session.NewMemory()
		resp := f.do(sess, http.MethodPost, "/auth/login", user.Login{Email: " Owner@test.cd ", Password: "ownerpassword"})
		var data authResponse
		decode(t, resp, &data)
		assert.NotEmpty(t, data.AccessToken)
		assert.Equal(t, f.owner.ID, data.User.ID)
		assert.Empty(t, data.User.PasswordHash)

		claims, err := f.tokens.Parse(data.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "owner", claims.Username)

		usr, err := sess.CurrentUser(context.Background())
		require.NoError(t, err)
		require.NotNil(t, usr)
		assert.Equal(t, f.owner.ID, usr.ID)
		token, err := sess.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, data.AccessToken, token)
	})

	t.Run("register", func(t *testing.T) {
		f.run(t, []routeTest{
			{name: "email exists", method: http.MethodPost, path: "/auth/register", payload: user.NewUser{Email: "owner@test.cd", Username: "newbie", Password: "S3cure-pass"}, wantStatus: http.StatusBadRequest, wantErr: "Email already exists"},
			{name: "username exists", method: http.MethodPost, path: "/auth/register", payload: user.NewUser{Email: "newbie@test.cd", Username: "Owner", Password: "S3cure-pass"}, wantStatus: http.StatusBadRequest, wantErr: "Username already exists"},
			{name: "weak password", method: http.MethodPost, path: "/auth/register", payload: user.NewUser{Email: "newbie@test.cd", Username: "newbie", Password: "1234"}, wantStatus: http.StatusBadRequest},
		})

		sess := session.NewMemory()
		resp := f.do(sess, http.MethodPost, "/auth/register", user.NewUser{Email: "newbie@test.cd", Username: "newbie", Password: "S3cure-pass"})
		assert.Equal(t, http.StatusCreated, resp.Status)
		var data authResponse
		decode(t, resp, &data)
		assert.False(t, data.User.IsAdmin)
		assert.Equal(t, "newbie@test.cd", data.User.Email)

		var stored user.User
		found, err := f.store.GetByID(context.Background(), database.Users, data.User.ID, &stored)
		require.NoError(t, err)
		require.True(t, found)
		assert.NoError(t, stored.CheckPassword("S3cure-pass"))

		me := f.do(sess, http.MethodGet, "/auth/me")
		var usr user.User
		decode(t, me, &usr)
		assert.Equal(t, data.User.ID, usr.ID)
	})

	t.Run("validate token and logout", func(t *testing.T) {
		sess := as(f.owner)
		var status tokenStatus
		decode(t, f.do(sess, http.MethodGet, "/auth/validate-token"), &status)
		assert.True(t, status.Valid)
		require.NotNil(t, status.User)
		assert.Equal(t, f.owner.ID, status.User.ID)

		decode(t, f.do(sess, http.MethodPost, "/api/auth/logout"), &message{})

		resp := f.do(sess, http.MethodGet, "/auth/validate-token")
		assert.Equal(t, http.StatusUnauthorized, resp.Status)
		require.NoError(t, resp.Decode(&status))
		assert.False(t, status.Valid)
		assert.Equal(t, "Token is invalid or expired", status.Error)

		assert.Equal(t, http.StatusUnauthorized, f.do(sess, http.MethodGet, "/auth/me").Status)
	})
}

func itoa(i int) string { return strconv.Itoa(i) }
