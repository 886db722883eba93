package api

import (
	"net/http"
	"strings"

	apierrors "divorce-wizard/internal/common/errors"
	"divorce-wizard/internal/models"
)

type generateRequest struct {
	ClaimType      string                 `json:"claimType"`
	GenerateAll    bool                   `json:"generateAll"`
	Form           string                 `json:"form,omitempty"`
	BasicInfo      models.BasicInfo       `json:"basicInfo"`
	FormData       map[string]interface{} `json:"formData"`
	SelectedClaims []models.ClaimType     `json:"selectedClaims"`
	Children       []models.Child         `json:"children,omitempty"`
	Locale         string                 `json:"locale,omitempty"`
}

func (req generateRequest) data() models.DocumentData {
	return models.DocumentData{
		BasicInfo:      req.BasicInfo,
		FormData:       req.FormData,
		SelectedClaims: req.SelectedClaims,
		Children:       req.Children,
	}
}

// generateDocument streams one DOCX, streams a filled PDF form, or writes
// every document to disk and returns their paths.
func (s *Server) generateDocument(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, s.config.MaxBodyBytes, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	locale := s.locale(req.Locale)

	switch {
	case req.Form != "":
		doc, err := s.deps.Documents.RenderForm(r.Context(), req.Form, req.data())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeDocument(w, doc)

	case req.GenerateAll:
		if err := s.deps.Validator.Claims(req.SelectedClaims, locale).Err(models.StepClaims); err != nil {
			s.fail(w, r, err)
			return
		}
		paths, err := s.deps.Documents.WriteAll(r.Context(), req.data())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "files": paths})

	default:
		name := strings.TrimSpace(req.ClaimType)
		if name == "" {
			s.errors.Write(w, r, apierrors.NewValidationError(map[string]string{
				"claimType": s.deps.Validator.Message(locale, "validation.required"),
			}))
			return
		}
		doc, err := s.deps.Documents.Generate(r.Context(), name, req.data())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeDocument(w, doc)
	}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmissionRequest
	if err := decodeJSON(r, s.config.MaxBodyBytes, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Locale == "" {
		req.Locale = s.config.Locale
	}
	result, err := s.deps.Submission.Submit(r.Context(), &req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// forwardSubmit is the legacy entry point; it is handled as /api/submission.
func (s *Server) forwardSubmit(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("forwarding submit", map[string]interface{}{"requestId": requestID(r.Context())})
	s.submit(w, r)
}

func (s *Server) locale(requested string) string {
	if requested != "" {
		return requested
	}
	return s.config.Locale
}
