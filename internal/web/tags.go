package web

import (
	"net/http"

	"taskflow/internal/model"
)

type tagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type tagsResponse struct {
	Tags []model.TagDef `json:"tags"`
}

func (s *Server) handleListTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, tagsResponse{Tags: s.svc.Tasks.Tags()})
}

func (s *Server) handleAddTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tag, err := s.svc.Tasks.AddTag(r.Context(), req.Name, req.Color)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

func (s *Server) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tag, err := s.svc.Tasks.UpdateTag(r.Context(), r.PathValue("id"), req.Name, req.Color)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (s *Server) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Tasks.RemoveTag(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
