package httpapi

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"time-tracker/internal/auth"
	"time-tracker/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionCookie = "session"

// Server exposes the time tracker over HTTP as HTML pages and JSON.
type Server struct {
	entries      *service.TimeEntryService
	tasks        *service.TaskService
	categories   *service.CategoryService
	users        *service.UserService
	issuer       *auth.Issuer
	templates    *template.Template
	loc          *time.Location
	cookieSecure bool
	now          func() time.Time
}

// Options carries the dependencies of a Server.
type Options struct {
	Entries      *service.TimeEntryService
	Tasks        *service.TaskService
	Categories   *service.CategoryService
	Users        *service.UserService
	Issuer       *auth.Issuer
	Location     *time.Location
	CookieSecure bool
}

func New(opts Options) (*Server, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"duration": service.FormatDuration,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		entries:      opts.Entries,
		tasks:        opts.Tasks,
		categories:   opts.Categories,
		users:        opts.Users,
		issuer:       opts.Issuer,
		templates:    tmpl,
		loc:          loc,
		cookieSecure: opts.CookieSecure,
		now:          time.Now,
	}, nil
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/time-entries", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.Handle("GET /time-entries", s.requireUser(s.handleIndex))
	mux.Handle("POST /time-entries", s.requireUser(s.handleStore))
	mux.Handle("PUT /time-entries/{id}", s.requireUser(s.handleUpdate))
	mux.Handle("DELETE /time-entries/{id}", s.requireUser(s.handleDestroy))
	mux.Handle("POST /time-entries/{id}", s.requireUser(s.handleMethodOverride))

	mux.Handle("GET /categories", s.requireUser(s.handleCategories))
	mux.Handle("POST /account/telegram", s.requireUser(s.handleTelegramLink))

	return withRequestLog(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
