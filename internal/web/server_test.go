package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/example/studylog/internal/auth"
	"github.com/example/studylog/internal/internaltypes"
	"github.com/example/studylog/internal/logger"
	"github.com/example/studylog/internal/mock"
	"github.com/example/studylog/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	srv     *Server
	h       http.Handler
	users   *mock.MockCredentialStore
	records *mock.MockRecordStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	users := mock.NewMockCredentialStore(ctrl)
	recs := mock.NewMockRecordStore(ctrl)

	srv, err := New(users, recs, auth.NewSessions([]byte(strings.Repeat("k", 32)), nil), logger.Nop())
	require.NoError(t, err)
	srv.Now = func() time.Time { return testNow }

	return &fixture{srv: srv, h: srv.Routes(), users: users, records: recs}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

// loggedIn returns a request carrying a valid session for userID.
func (f *fixture) loggedIn(t *testing.T, req *http.Request, userID int64) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, f.srv.Sessions.Set(rec, req, userID))
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func postForm(path string, vals url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "studylog_session" {
			return c
		}
	}
	return nil
}

func TestLoginPage(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/", "/login"} {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), `name="password"`)
	}
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		f.users.EXPECT().Authenticate(gomock.Any(), "ann", "pw").Return(int64(7), nil)

		rec := f.do(t, postForm("/", url.Values{"username": {" ann "}, "password": {"pw"}}))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
		c := sessionCookie(rec)
		require.NotNil(t, c)
		assert.True(t, c.HttpOnly)

		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(c)
		uid, ok := f.srv.Sessions.UserID(req)
		require.True(t, ok)
		assert.Equal(t, int64(7), uid)
	})

	t.Run("bad credentials", func(t *testing.T) {
		f := newFixture(t)
		f.users.EXPECT().Authenticate(gomock.Any(), "ann", "nope").Return(int64(0), internaltypes.ErrInvalidCredentials)

		rec := f.do(t, postForm("/login", url.Values{"username": {"ann"}, "password": {"nope"}}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), msgInvalidLogin)
		assert.Contains(t, rec.Body.String(), `value="ann"`)
		assert.Nil(t, sessionCookie(rec))
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t)
		f.users.EXPECT().Authenticate(gomock.Any(), "ann", "pw").Return(int64(0), errors.New("db down"))

		rec := f.do(t, postForm("/", url.Values{"username": {"ann"}, "password": {"pw"}}))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "db down")
	})
}

func TestRegister(t *testing.T) {
	t.Run("page", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/register", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `action="/register"`)
	})

	t.Run("success logs in", func(t *testing.T) {
		f := newFixture(t)
		f.users.EXPECT().Register(gomock.Any(), "ann", "pw").Return(int64(3), nil)

		rec := f.do(t, postForm("/register", url.Values{"username": {"ann"}, "password": {"pw"}}))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
		assert.NotNil(t, sessionCookie(rec))
	})

	t.Run("duplicate username", func(t *testing.T) {
		f := newFixture(t)
		f.users.EXPECT().Register(gomock.Any(), "ann", "pw").Return(int64(0), internaltypes.ErrDuplicateUsername)

		rec := f.do(t, postForm("/register", url.Values{"username": {"ann"}, "password": {"pw"}}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), msgUsernameTaken)
		assert.Nil(t, sessionCookie(rec))
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t)
		f.users.EXPECT().Register(gomock.Any(), "", "pw").
			Return(int64(0), fmt.Errorf("%w: username required", internaltypes.ErrInvalidInput))

		rec := f.do(t, postForm("/register", url.Values{"username": {""}, "password": {"pw"}}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Username required")
		assert.Nil(t, sessionCookie(rec))
	})
}

func TestDashboard_Anonymous(t *testing.T) {
	f := newFixture(t)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := f.do(t, httptest.NewRequest(method, "/dashboard", nil))
		assert.Equal(t, http.StatusFound, rec.Code, method)
		assert.Equal(t, "/", rec.Header().Get("Location"), method)
	}
}

func TestDashboard_Get(t *testing.T) {
	f := newFixture(t)
	f.users.EXPECT().Username(gomock.Any(), int64(7)).Return("ann", nil)
	f.records.EXPECT().ListByUser(gomock.Any(), int64(7)).Return([]records.Record{
		{ID: 3, UserID: 7, Date: "2024-03-14", Minutes: 30},
		{ID: 2, UserID: 7, Date: "2024-03-13", Minutes: 60},
		{ID: 1, UserID: 7, Date: "2024-03-12", Minutes: 600},
	}, nil)

	rec := f.do(t, f.loggedIn(t, httptest.NewRequest(http.MethodGet, "/dashboard", nil), 7))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<strong id="total-points">19</strong>`)
	assert.Contains(t, body, `name="date" type="date" value="2024-03-14"`)
	assert.Contains(t, body, "ann")
	assert.Contains(t, body, "0h 30m")
	assert.Contains(t, body, "10h 00m")
	assert.NotContains(t, body, "Nothing logged yet.")
}

func TestDashboard_Empty(t *testing.T) {
	f := newFixture(t)
	f.users.EXPECT().Username(gomock.Any(), int64(7)).Return("ann", nil)
	f.records.EXPECT().ListByUser(gomock.Any(), int64(7)).Return(nil, nil)

	rec := f.do(t, f.loggedIn(t, httptest.NewRequest(http.MethodGet, "/dashboard", nil), 7))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<strong id="total-points">0</strong>`)
	assert.Contains(t, rec.Body.String(), "Nothing logged yet.")
}

func TestDashboard_Save(t *testing.T) {
	t.Run("hours and minutes", func(t *testing.T) {
		f := newFixture(t)
		gomock.InOrder(
			f.records.EXPECT().Upsert(gomock.Any(), int64(7), "2024-03-10", 90).Return(nil),
			f.users.EXPECT().Username(gomock.Any(), int64(7)).Return("ann", nil),
			f.records.EXPECT().ListByUser(gomock.Any(), int64(7)).Return([]records.Record{
				{UserID: 7, Date: "2024-03-10", Minutes: 90},
			}, nil),
		)

		req := postForm("/dashboard", url.Values{"date": {"2024-03-10"}, "hours": {"1"}, "minutes": {"30"}})
		rec := f.do(t, f.loggedIn(t, req, 7))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `<strong id="total-points">9</strong>`)
		assert.Contains(t, rec.Body.String(), `value="2024-03-10"`)
	})

	t.Run("blank fields count as zero", func(t *testing.T) {
		f := newFixture(t)
		f.records.EXPECT().Upsert(gomock.Any(), int64(7), "2024-03-10", 0).Return(nil)
		f.users.EXPECT().Username(gomock.Any(), int64(7)).Return("ann", nil)
		f.records.EXPECT().ListByUser(gomock.Any(), int64(7)).Return(nil, nil)

		req := postForm("/dashboard", url.Values{"date": {"2024-03-10"}, "hours": {""}, "minutes": {""}})
		rec := f.do(t, f.loggedIn(t, req, 7))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing date defaults to yesterday", func(t *testing.T) {
		f := newFixture(t)
		f.records.EXPECT().Upsert(gomock.Any(), int64(7), "2024-03-14", 45).Return(nil)
		f.users.EXPECT().Username(gomock.Any(), int64(7)).Return("ann", nil)
		f.records.EXPECT().ListByUser(gomock.Any(), int64(7)).Return(nil, nil)

		req := postForm("/dashboard", url.Values{"minutes": {"45"}})
		rec := f.do(t, f.loggedIn(t, req, 7))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("malformed hours", func(t *testing.T) {
		f := newFixture(t)
		// no Upsert expected
		f.users.EXPECT().Username(gomock.Any(), int64(7)).Return("ann", nil)
		f.records.EXPECT().ListByUser(gomock.Any(), int64(7)).Return(nil, nil)

		req := postForm("/dashboard", url.Values{"date": {"2024-03-10"}, "hours": {"abc"}, "minutes": {"5"}})
		rec := f.do(t, f.loggedIn(t, req, 7))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Hours must be a whole number")
		assert.Contains(t, rec.Body.String(), `value="abc"`)
	})

	t.Run("bad date from store", func(t *testing.T) {
		f := newFixture(t)
		f.records.EXPECT().Upsert(gomock.Any(), int64(7), "yesterday", 5).
			Return(fmt.Errorf("%w: date must be YYYY-MM-DD", internaltypes.ErrInvalidInput))
		f.users.EXPECT().Username(gomock.Any(), int64(7)).Return("ann", nil)
		f.records.EXPECT().ListByUser(gomock.Any(), int64(7)).Return(nil, nil)

		req := postForm("/dashboard", url.Values{"date": {"yesterday"}, "minutes": {"5"}})
		rec := f.do(t, f.loggedIn(t, req, 7))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Date must be YYYY-MM-DD")
	})
}

func TestDashboard_StaleSession(t *testing.T) {
	f := newFixture(t)
	f.users.EXPECT().Username(gomock.Any(), int64(99)).Return("", internaltypes.ErrNotFound)

	rec := f.do(t, f.loggedIn(t, httptest.NewRequest(http.MethodGet, "/dashboard", nil), 99))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.Negative(t, c.MaxAge)
}

func TestDashboard_StoreError(t *testing.T) {
	f := newFixture(t)
	f.users.EXPECT().Username(gomock.Any(), int64(7)).Return("ann", nil)
	f.records.EXPECT().ListByUser(gomock.Any(), int64(7)).Return(nil, errors.New("disk full"))

	rec := f.do(t, f.loggedIn(t, httptest.NewRequest(http.MethodGet, "/dashboard", nil), 7))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, f.loggedIn(t, httptest.NewRequest(http.MethodGet, "/logout", nil), 7))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Negative(t, c.MaxAge)
}

func TestFaviconAndHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaticAssets(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/", "/register", "/logout"} {
		rec := f.do(t, httptest.NewRequest(http.MethodDelete, path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

func TestInputMessage(t *testing.T) {
	_, err := records.ParseDuration("-1", "")
	require.Error(t, err)
	assert.Equal(t, "Hours must not be negative", inputMessage(err))
	assert.Equal(t, "Invalid input", inputMessage(internaltypes.ErrInvalidInput))
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "0h 00m", formatMinutes(0))
	assert.Equal(t, "1h 05m", formatMinutes(65))
	assert.Equal(t, "10h 00m", formatMinutes(600))
}
