// Package web exposes the task collection, calendar views, tags, backups,
// ICS exchange and schedule optimization as a JSON HTTP API.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"taskflow/internal/backup"
	"taskflow/internal/calendar"
	"taskflow/internal/config"
	"taskflow/internal/ics"
	appLog "taskflow/internal/log"
	"taskflow/internal/model"
	"taskflow/internal/suggest"
	"taskflow/internal/task"
)

// maxBodyBytes bounds JSON and calendar uploads.
const maxBodyBytes = 10 << 20

// Services are the components the handlers drive. Optimizer, Importer and
// Backups may be nil; their endpoints then answer 503.
type Services struct {
	Tasks     *task.Manager
	Optimizer *suggest.Optimizer
	Importer  *ics.Importer
	Backups   *backup.Scheduler
}

// Server provides the HTTP API.
type Server struct {
	cfg     *config.Config
	svc     Services
	mux     *http.ServeMux
	grid    calendar.Builder
	loc     *time.Location
	nowFunc func() time.Time
}

// NewServer constructs a Server. cfg must already be normalized.
func NewServer(cfg *config.Config, svc Services) *Server {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
	}
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		mux:     http.NewServeMux(),
		grid:    calendar.Builder{WeekStart: cfg.WeekStartDay()},
		loc:     loc,
		nowFunc: time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, wrapped with Basic Auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether both credentials are configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards every path except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="TaskFlow", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	s.mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	s.mux.HandleFunc("GET /api/tasks/{id}", s.handleGetTask)
	s.mux.HandleFunc("PATCH /api/tasks/{id}", s.handleUpdateTask)
	s.mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)
	s.mux.HandleFunc("POST /api/tasks/{id}/toggle", s.handleToggleTask)
	s.mux.HandleFunc("GET /api/digest", s.handleDigest)

	s.mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /api/agenda", s.handleAgenda)

	s.mux.HandleFunc("GET /api/tags", s.handleListTags)
	s.mux.HandleFunc("POST /api/tags", s.handleAddTag)
	s.mux.HandleFunc("PATCH /api/tags/{id}", s.handleUpdateTag)
	s.mux.HandleFunc("DELETE /api/tags/{id}", s.handleRemoveTag)

	s.mux.HandleFunc("GET /api/backup", s.handleExportBackup)
	s.mux.HandleFunc("POST /api/backup", s.handleImportBackup)
	s.mux.HandleFunc("GET /api/backups", s.handleListBackups)
	s.mux.HandleFunc("POST /api/backups", s.handleRunBackup)

	s.mux.HandleFunc("POST /api/suggest", s.handleSuggest)

	s.mux.HandleFunc("GET /calendar.ics", s.handleExportICS)
	s.mux.HandleFunc("POST /api/import/ics", s.handleImportICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// today is the current date in the configured zone.
func (s *Server) today() model.Date {
	return model.DateOf(s.nowFunc().In(s.loc))
}

// dateParam reads a YYYY-MM-DD query parameter; absent means def.
func dateParam(r *http.Request, name string, def model.Date) (model.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	d, err := model.ParseDate(v)
	if err != nil {
		return model.Date{}, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
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

// writeServiceError maps component errors onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, task.ErrNotFound), errors.Is(err, task.ErrTagNotFound):
		status = http.StatusNotFound
	case errors.Is(err, task.ErrScopeRequired), errors.Is(err, task.ErrTagExists), errors.Is(err, suggest.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, task.ErrEmptyTagName), errors.Is(err, task.ErrInvalidBackup), errors.Is(err, task.ErrEmptyBackup):
		status = http.StatusBadRequest
	case errors.Is(err, suggest.ErrDisabled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, suggest.ErrNoSuggestions):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		appLog.Error("api request failed", err)
	}
	writeError(w, status, err.Error())
}
