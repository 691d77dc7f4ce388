package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/example/studylog/internal/auth"
	"github.com/example/studylog/internal/internaltypes"
	"github.com/example/studylog/internal/logger"
	"github.com/example/studylog/internal/points"
	"github.com/example/studylog/internal/records"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates/*.html static/*
var fs embed.FS

var pageNames = []string{"login.html", "register.html", "dashboard.html"}

const (
	msgInvalidLogin  = "Invalid username or password"
	msgUsernameTaken = "Username already taken"
)

type Server struct {
	Users    CredentialStore
	Records  RecordStore
	Sessions *auth.Sessions
	Log      *logger.Logger

	// Now is the clock used for the dashboard's default date.
	Now func() time.Time

	pages map[string]*template.Template
}

func New(users CredentialStore, recs RecordStore, sessions *auth.Sessions, log *logger.Logger) (*Server, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(fs, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		Users:    users,
		Records:  recs,
		Sessions: sessions,
		Log:      log,
		Now:      time.Now,
		pages:    pages,
	}, nil
}

type formData struct {
	Username string
	Date     string
	Hours    string
	Minutes  string
}

type recordRow struct {
	Date     string
	Minutes  int
	Duration string
	Points   int
}

type tmplData struct {
	Title    string
	Username string
	Flash    string
	Form     formData

	Rows  []recordRow
	Total int
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.withTraceID)
	r.Use(s.withLogging)

	r.Handle("/static/*", http.FileServer(http.FS(fs)))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, path := range []string{"/", "/login"} {
		r.Get(path, s.handleLoginForm)
		r.Post(path, s.handleLogin)
	}
	r.Get("/register", s.handleRegisterForm)
	r.Post("/register", s.handleRegister)
	r.Get("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.Sessions.RequireAuth)
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/dashboard", s.handleDashboardSave)
	})

	return r
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", tmplData{Title: "Login"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	id, err := s.Users.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, internaltypes.ErrInvalidCredentials) {
			s.render(w, r, "login.html", tmplData{Title: "Login", Flash: msgInvalidLogin, Form: formData{Username: username}})
			return
		}
		s.serverError(w, r, "authenticate", err)
		return
	}
	s.startSession(w, r, id)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", tmplData{Title: "Register"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	id, err := s.Users.Register(r.Context(), username, password)
	if err != nil {
		var flash string
		switch {
		case errors.Is(err, internaltypes.ErrDuplicateUsername):
			flash = msgUsernameTaken
		case errors.Is(err, internaltypes.ErrInvalidInput):
			flash = inputMessage(err)
		default:
			s.serverError(w, r, "register", err)
			return
		}
		s.render(w, r, "register.html", tmplData{Title: "Register", Flash: flash, Form: formData{Username: username}})
		return
	}
	logger.FromRequest(r).Info().Int64("user_id", id).Msg("user registered")
	s.startSession(w, r, id)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, userID int64) {
	if err := s.Sessions.Set(w, r, userID); err != nil {
		s.serverError(w, r, "set session", err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, "", formData{Date: s.yesterday()})
}

func (s *Server) handleDashboardSave(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	form := formData{
		Date:    strings.TrimSpace(r.FormValue("date")),
		Hours:   strings.TrimSpace(r.FormValue("hours")),
		Minutes: strings.TrimSpace(r.FormValue("minutes")),
	}
	if form.Date == "" {
		form.Date = s.yesterday()
	}

	total, err := records.ParseDuration(form.Hours, form.Minutes)
	if err == nil {
		err = s.Records.Upsert(r.Context(), uid, form.Date, total)
	}
	if err != nil {
		if errors.Is(err, internaltypes.ErrInvalidInput) {
			s.renderDashboard(w, r, inputMessage(err), form)
			return
		}
		s.serverError(w, r, "upsert record", err)
		return
	}
	logger.FromRequest(r).Debug().Int64("user_id", uid).Str("date", form.Date).Int("minutes", total).Msg("record saved")

	s.renderDashboard(w, r, "", formData{Date: form.Date})
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, flash string, form formData) {
	uid, _ := auth.UserIDFromContext(r.Context())

	username, err := s.Users.Username(r.Context(), uid)
	if err != nil {
		if errors.Is(err, internaltypes.ErrNotFound) {
			// signed cookie for a user that no longer exists
			s.Sessions.Clear(w)
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		s.serverError(w, r, "load user", err)
		return
	}

	recs, err := s.Records.ListByUser(r.Context(), uid)
	if err != nil {
		s.serverError(w, r, "list records", err)
		return
	}

	rows := make([]recordRow, 0, len(recs))
	total := 0
	for _, rec := range recs {
		p := points.Calc(rec.Minutes)
		total += p
		rows = append(rows, recordRow{
			Date:     rec.Date,
			Minutes:  rec.Minutes,
			Duration: formatMinutes(rec.Minutes),
			Points:   p,
		})
	}

	s.render(w, r, "dashboard.html", tmplData{
		Title:    "Dashboard",
		Username: username,
		Flash:    flash,
		Form:     form,
		Rows:     rows,
		Total:    total,
	})
}

func (s *Server) yesterday() string {
	return s.Now().AddDate(0, 0, -1).Format(records.DateLayout)
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%dh %02dm", m/60, m%60)
}

// inputMessage strips the sentinel prefix from a wrapped ErrInvalidInput.
func inputMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), internaltypes.ErrInvalidInput.Error()+": ")
	if msg == "" {
		return "Invalid input"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data tmplData) {
	t, ok := s.pages[name]
	if !ok {
		s.serverError(w, r, "render", fmt.Errorf("unknown page %q", name))
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		s.serverError(w, r, "render "+name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.FromRequest(r).Error().Err(err).Str("op", op).Msg("request failed")
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// Start serves h on addr until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler, shutdownTimeout time.Duration, log *logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()
	log.Info().Str("addr", addr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
