package web

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"taskflow/internal/ics"
	appLog "taskflow/internal/log"
	"taskflow/internal/model"
	"taskflow/internal/suggest"
)

// handleExportBackup offers the {tasks, tags} document as a download.
func (s *Server) handleExportBackup(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := s.svc.Tasks.Export(&buf); err != nil {
		writeServiceError(w, err)
		return
	}
	name := "taskflow-backup-" + s.today().String() + ".json"
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	_, _ = w.Write(buf.Bytes())
}

// handleImportBackup replaces the collections present in the uploaded
// document. A rejected document changes nothing.
func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Tasks.Import(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type backupsResponse struct {
	Files []string `json:"files"`
}

func (s *Server) handleListBackups(w http.ResponseWriter, _ *http.Request) {
	if s.svc.Backups == nil {
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}
	names, err := s.svc.Backups.List()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, backupsResponse{Files: names})
}

// handleRunBackup writes a backup file now.
func (s *Server) handleRunBackup(w http.ResponseWriter, _ *http.Request) {
	if s.svc.Backups == nil {
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}
	path, err := s.svc.Backups.RunOnce()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"file": filepath.Base(path)})
}

type suggestRequest struct {
	Date model.Date `json:"date"`
}

// handleSuggest asks the scheduling service for new start times and
// applies them.
//
// POST /api/suggest {"date": "2024-03-13"} (body optional, date defaults to
// today)
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if s.svc.Optimizer == nil {
		writeServiceError(w, suggest.ErrDisabled)
		return
	}

	var req suggestRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Date.IsZero() {
		req.Date = s.today()
	}

	res, err := s.svc.Optimizer.Run(r.Context(), req.Date)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, suggest.ErrBusy), errors.Is(err, suggest.ErrDisabled), errors.Is(err, suggest.ErrNoSuggestions):
		writeServiceError(w, err)
	default:
		// service failures surface as a single notice; nothing was changed
		writeError(w, http.StatusBadGateway, "schedule optimization failed: "+err.Error())
	}
}

// handleExportICS serves the whole collection as an iCalendar feed.
func (s *Server) handleExportICS(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := ics.Export(&buf, s.svc.Tasks.All(), s.nowFunc()); err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="taskflow.ics"`)
	_, _ = w.Write(buf.Bytes())
}

type icsURLRequest struct {
	URL string `json:"url"`
}

// handleImportICS creates tasks from a calendar. The body is either raw
// text/calendar data or JSON {"url": "..."} naming a feed to fetch.
func (s *Server) handleImportICS(w http.ResponseWriter, r *http.Request) {
	if s.svc.Importer == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar import is not configured")
		return
	}

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		sum ics.ImportSummary
		err error
	)
	if ct == "application/json" {
		var req icsURLRequest
		if derr := decodeJSON(w, r, &req); derr != nil {
			writeError(w, http.StatusBadRequest, derr.Error())
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			writeError(w, http.StatusBadRequest, "url is required")
			return
		}
		sum, err = s.svc.Importer.ImportURL(r.Context(), req.URL)
	} else {
		body, rerr := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if rerr != nil {
			writeError(w, http.StatusBadRequest, rerr.Error())
			return
		}
		sum, err = s.svc.Importer.ImportBody(r.Context(), body)
	}
	if err != nil {
		appLog.Error("ics import failed", err, "created", sum.Created)
		if sum.Created > 0 {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "summary": sum})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
