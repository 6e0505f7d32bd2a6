package web

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"presenceanalyzer/internal/config"
	"presenceanalyzer/internal/directory"
	appLog "presenceanalyzer/internal/log"
	"presenceanalyzer/internal/stats"
)

// PresenceService is the aggregation core the handlers read from.
type PresenceService interface {
	ListUsers(ctx context.Context) ([]int, error)
	MeanByWeekday(ctx context.Context, userID int) ([7]float64, error)
	TotalByWeekday(ctx context.Context, userID int) ([7]int, error)
	UsualWindow(ctx context.Context, userID int) ([7]stats.Window, error)
	MonthlyHours(ctx context.Context, userID int) ([]stats.YearHours, error)
}

// UserDirectory optionally supplies display names and avatars. Load may
// return nil when no directory is available.
type UserDirectory interface {
	Load(ctx context.Context) *directory.Directory
}

// Server provides the dashboard pages and the JSON API.
type Server struct {
	presence PresenceService
	users    UserDirectory
	locale   language.Tag
	location *time.Location
	now      func() time.Time
	mux      *http.ServeMux
	pages    map[string]*template.Template
}

// assets holds the dashboard templates and static files.
//
//go:embed templates static
var assets embed.FS

// NewServer constructs a new Server. users may be nil, in which case every
// user is listed under a generic name.
func NewServer(cfg *config.Config, presence PresenceService, users UserDirectory) *Server {
	locale, err := directory.ParseLocale(cfg.Locale)
	if err != nil {
		appLog.Error("invalid locale; falling back to Polish collation", err, "locale", cfg.Locale)
	}

	s := &Server{
		presence: presence,
		users:    users,
		locale:   locale,
		location: resolveLocationOrLocal(cfg.Timezone),
		now:      time.Now,
		mux:      http.NewServeMux(),
		pages:    loadPages(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return requestLogger(s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /render/{template}", s.handleRender)
	s.mux.Handle("GET /static/", s.staticFileServer())

	s.mux.HandleFunc("GET /api/v1/users", s.handleUsers)
	s.mux.HandleFunc("GET /api/v1/mean_time_weekday/{id}", s.handleMeanTimeWeekday)
	s.mux.HandleFunc("GET /api/v1/presence_weekday/{id}", s.handlePresenceWeekday)
	s.mux.HandleFunc("GET /api/v1/presence_from_to/{id}", s.handlePresenceFromTo)
	s.mux.HandleFunc("GET /api/v1/monthly_hours/{id}", s.handleMonthlyHours)
	s.mux.HandleFunc("GET /api/v1/presence_calendar/{id}", s.handlePresenceCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLogger tags each request with an X-Request-ID (reusing the
// caller's if present) and logs it at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		appLog.Debug("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
