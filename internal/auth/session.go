package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	cookieName = "studylog_session"
	sessionTTL = 14 * 24 * time.Hour
)

type ctxKey string

const userIDKey ctxKey = "userID"

// Sessions keeps the logged-in user id in a signed (and, with a block key,
// encrypted) cookie. Nothing is stored server side.
type Sessions struct {
	sc *securecookie.SecureCookie

	// LoginPath is where anonymous requests are sent by RequireAuth.
	LoginPath string
}

type sessionValue struct {
	UserID int64
	V      int
}

// NewSessions accepts a nil or empty blockKey, in which case cookies are
// signed but not encrypted.
func NewSessions(hashKey, blockKey []byte) *Sessions {
	if len(blockKey) == 0 {
		blockKey = nil
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionTTL.Seconds()))
	return &Sessions{sc: sc, LoginPath: "/"}
}

func (s *Sessions) Set(w http.ResponseWriter, r *http.Request, userID int64) error {
	encoded, err := s.sc.Encode(cookieName, sessionValue{UserID: userID, V: 1})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	return nil
}

func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// UserID reads the session cookie. Missing, expired and tampered cookies
// all report false.
func (s *Sessions) UserID(r *http.Request) (int64, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return 0, false
	}
	var val sessionValue
	if err := s.sc.Decode(cookieName, c.Value, &val); err != nil {
		return 0, false
	}
	if val.UserID <= 0 {
		return 0, false
	}
	return val.UserID, true
}

func (s *Sessions) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := s.UserID(r)
		if !ok {
			http.Redirect(w, r, s.LoginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
	})
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(userIDKey).(int64)
	return uid, ok
}
