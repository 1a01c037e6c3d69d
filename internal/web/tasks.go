package web

import (
	"errors"
	"net/http"
	"strings"

	"taskflow/internal/model"
	"taskflow/internal/task"
)

type tasksResponse struct {
	Tasks []model.Task `json:"tasks"`
}

// handleListTasks lists tasks.
//
// GET /api/tasks?from=&to=&priority=&pending=1&series=&limit=
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f task.Filter
	var err error
	if f.From, err = dateParam(r, "from", model.Date{}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.To, err = dateParam(r, "to", model.Date{}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p := model.Priority(q.Get("priority")); p != "" {
		if !p.Valid() {
			writeError(w, http.StatusBadRequest, "unknown priority")
			return
		}
		f.Priority = p
	}
	f.Pending = q.Get("pending") == "1" || q.Get("pending") == "true"
	f.SeriesID = q.Get("series")
	f.Limit = max(parseIntDefault(q.Get("limit"), 0), 0)

	writeJSON(w, http.StatusOK, tasksResponse{Tasks: s.svc.Tasks.Tasks(f)})
}

// handleDigest returns the incomplete high-priority tasks shown in the
// sidebar.
func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	f := task.HighPriorityDigest
	f.Limit = parseIntDefault(r.URL.Query().Get("limit"), f.Limit)
	writeJSON(w, http.StatusOK, tasksResponse{Tasks: s.svc.Tasks.Tasks(f)})
}

// handleCreateTask creates a task; recurring tasks return the root first
// followed by the generated occurrences. Title and date are required here,
// the manager itself only applies defaults.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in task.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if in.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	if in.Priority != "" && !in.Priority.Valid() {
		writeError(w, http.StatusBadRequest, "unknown priority")
		return
	}
	if in.Repeat != "" && !in.Repeat.Valid() {
		writeError(w, http.StatusBadRequest, "unknown repeat")
		return
	}
	if rc := in.RepeatConfig; rc != nil && !rc.Unit.Valid() {
		writeError(w, http.StatusBadRequest, "unknown repeat unit")
		return
	}
	if in.StartTime != "" {
		if _, _, err := model.ParseClock(in.StartTime); err != nil {
			writeError(w, http.StatusBadRequest, "startTime must be HH:mm")
			return
		}
	}

	created, err := s.svc.Tasks.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tasksResponse{Tasks: created})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Tasks.Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var p task.Patch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if rc := p.RepeatConfig; rc != nil && !rc.Unit.Valid() {
		writeError(w, http.StatusBadRequest, "unknown repeat unit")
		return
	}

	t, err := s.svc.Tasks.Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type deleteResponse struct {
	Removed []string `json:"removed"`
}

type scopeRequiredResponse struct {
	Error    string   `json:"error"`
	InSeries bool     `json:"in_series"`
	Scopes   []string `json:"scopes"`
}

// handleDeleteTask deletes a task.
//
// DELETE /api/tasks/{id}?scope=single|series
//
// Series members without a scope get 409 so the client can ask which one
// is meant.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	scope, err := task.ParseDeleteScope(r.URL.Query().Get("scope"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	removed, err := s.svc.Tasks.Delete(r.Context(), r.PathValue("id"), scope)
	if errors.Is(err, task.ErrScopeRequired) {
		writeJSON(w, http.StatusConflict, scopeRequiredResponse{
			Error:    err.Error(),
			InSeries: true,
			Scopes:   []string{task.ScopeSingle.String(), task.ScopeSeries.String()},
		})
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Removed: removed})
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Tasks.ToggleCompletion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
