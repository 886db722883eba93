package api

import (
	"errors"
	"net/http"

	apierrors "divorce-wizard/internal/common/errors"
	"divorce-wizard/internal/models"
	"divorce-wizard/internal/sessions"

	"github.com/go-chi/chi/v5"
)

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessions.CreateRequest
	if err := decodeJSON(r, s.config.MaxBodyBytes, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.deps.Sessions.Create(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"sessionId": session.ID,
		"expiresAt": session.ExpiresAt,
	})
}

// getSession answers 410 for an expired session but still includes it.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.deps.Sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionExpired) && session != nil {
			s.errors.Write(w, r, apierrors.NewSessionExpiredError(id, session))
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "session": session})
}

func (s *Server) patchSession(w http.ResponseWriter, r *http.Request) {
	var patch models.SessionPatch
	if err := decodeJSON(r, s.config.MaxBodyBytes, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.deps.Sessions.Patch(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "session": session})
}

func (s *Server) sendReminders(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Reminders.Run(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// Batch document output shares the reminder schedule for cleanup.
	swept := 0
	if s.deps.Documents != nil {
		if swept, err = s.deps.Documents.SweepOutput(r.Context()); err != nil {
			s.logger.Warn("document output sweep failed", map[string]interface{}{"error": err.Error()})
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"checked":      report.Checked,
		"sent":         report.Sent,
		"skipped":      report.Skipped,
		"failed":       report.Failed,
		"results":      report.Results,
		"sweptOutputs": swept,
	})
}
