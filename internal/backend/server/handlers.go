package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/colonyops/grader/internal/backend"
	"github.com/colonyops/grader/internal/core/feedback"
	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/core/snapshot"
	"github.com/colonyops/grader/internal/data/stores"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFirstSubmission(w http.ResponseWriter, r *http.Request) {
	classroomID, err := pathID(r, "classroom")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	assignmentID, err := pathID(r, "assignment")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ref, err := s.backend.FirstSubmission(r.Context(), classroomID, assignmentID)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, backend.NewSubmissionResponse(ref))
}

func (s *Server) handleSubmission(w http.ResponseWriter, r *http.Request) {
	key, ok := s.workKey(w, r)
	if !ok {
		return
	}

	ref, err := s.backend.Submission(r.Context(), key)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, backend.NewSubmissionResponse(ref))
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	key, ok := s.workKey(w, r)
	if !ok {
		return
	}

	entries, err := s.backend.Tree(r.Context(), key)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, backend.NewTreeResponse(entries))
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	key, ok := s.workKey(w, r)
	if !ok {
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, r, http.StatusBadRequest, "path query parameter is required")
		return
	}

	content, err := s.backend.FileContent(r.Context(), key, path)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, backend.NewFileResponse(content))
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	key, ok := s.workKey(w, r)
	if !ok {
		return
	}

	records, err := s.backend.ListFeedback(r.Context(), key)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, backend.NewFeedbackResponse(records))
}

func (s *Server) handleSaveFeedback(w http.ResponseWriter, r *http.Request) {
	key, ok := s.workKey(w, r)
	if !ok {
		return
	}

	var req backend.FeedbackAction
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	switch req.Action {
	case feedback.ActionCreate, feedback.ActionEdit, feedback.ActionDelete:
	default:
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Action))
		return
	}

	record, err := s.backend.SaveFeedback(r.Context(), key, req.Action, req.Snapshot())
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}

	status := http.StatusOK
	if req.Action == feedback.ActionCreate {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, backend.NewFeedbackComment(record))
}

// workKey parses the submission key from the route, writing a 400 on failure.
func (s *Server) workKey(w http.ResponseWriter, r *http.Request) (snapshot.Key, bool) {
	var key snapshot.Key
	for name, dst := range map[string]*int64{
		"classroom":  &key.ClassroomID,
		"assignment": &key.AssignmentID,
		"work":       &key.SubmissionID,
	} {
		id, err := pathID(r, name)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return snapshot.Key{}, false
		}
		*dst = id
	}
	return key, true
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", name, raw)
	}
	return id, nil
}

// writeBackendError maps backend errors onto status codes.
func (s *Server) writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, grading.ErrNotFound), errors.Is(err, feedback.ErrCommentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, stores.ErrInvalidFeedback):
		status = http.StatusBadRequest
	case errors.Is(err, feedback.ErrCommentDeleted), errors.Is(err, stores.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Ctx(r.Context()).Err(err).Str("path", r.URL.Path).Msg("backend error")
		writeError(w, r, status, "internal error")
		return
	}
	writeError(w, r, status, err.Error())
}
