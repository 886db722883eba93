package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	apierrors "divorce-wizard/internal/common/errors"
	"divorce-wizard/internal/models"
	"divorce-wizard/internal/sessions"
	"divorce-wizard/internal/wizard/state"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type stepRequest struct {
	SessionID string             `json:"sessionId,omitempty"`
	State     models.WizardState `json:"state"`
	Action    state.Action       `json:"action"`
	Locale    string             `json:"locale,omitempty"`
}

// wizardStep applies one action to the posted state and mirrors the result
// into the recovery session once a contact email is known.
func (s *Server) wizardStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := decodeJSON(r, s.config.MaxBodyBytes, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	opts := []state.Option{
		state.WithLogger(s.logger),
		state.WithPricePerClaim(s.config.PricePerClaim),
		state.WithLocale(s.locale(req.Locale)),
	}
	var mirror *sessions.Mirror
	if s.deps.Sessions != nil {
		mirror = sessions.NewMirror(s.deps.Sessions, req.SessionID)
		opts = append(opts, state.WithMirror(mirror))
	}

	trusted := s.restoreProgress(r, &req)
	store := state.New(&req.State, s.deps.Validator, opts...)
	if !trusted {
		store.Revalidate()
	}
	requested := requestedStep(req.Action, &req.State)
	if err := store.Apply(r.Context(), req.Action); err != nil {
		if errors.Is(err, state.ErrStepLocked) {
			s.errors.Write(w, r, apierrors.NewStepLockedError(int(requested), int(req.State.MaxReachedStep)))
			return
		}
		s.fail(w, r, err)
		return
	}

	sessionID := req.SessionID
	if mirror != nil {
		sessionID = mirror.SessionID()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"state":     store.State(),
		"price":     store.Price(),
		"sessionId": sessionID,
	})
}

// restoreProgress replaces the posted step counters with the ones stored in
// the recovery session, which only the server writes. It reports false when
// there is no session to trust, in which case the caller revalidates.
func (s *Server) restoreProgress(r *http.Request, req *stepRequest) bool {
	if req.SessionID == "" || s.deps.Sessions == nil {
		return false
	}
	// An expired session is still returned and its counters still apply.
	session, err := s.deps.Sessions.Get(r.Context(), req.SessionID)
	if session == nil {
		s.logger.Warn("wizard session not loaded, revalidating posted progress", map[string]interface{}{
			"sessionId": req.SessionID,
			"error":     fmt.Sprint(err),
		})
		return false
	}
	req.State.CurrentStep = session.WizardData.CurrentStep
	req.State.MaxReachedStep = session.WizardData.MaxReachedStep
	return true
}

func requestedStep(a state.Action, st *models.WizardState) models.Step {
	switch a.Type {
	case state.ActionGoToStep:
		if a.Step != nil {
			return *a.Step
		}
	case state.ActionNextStep:
		return st.CurrentStep + 1
	}
	return st.CurrentStep
}

func (s *Server) getQuestions(w http.ResponseWriter, r *http.Request) {
	registry := s.deps.Validator.Registry()
	claim := models.ClaimType(chi.URLParam(r, "claim"))
	compiled, err := registry.Get(claim)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	schema, err := registry.JSONSchema(claim)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claim":  compiled.Claim,
		"title":  compiled.Title,
		"label":  claim.Label(),
		"fields": compiled.Fields,
		"schema": schema,
	})
}

type paymentRequest struct {
	SessionID      string             `json:"sessionId,omitempty"`
	SelectedClaims []models.ClaimType `json:"selectedClaims"`
	Locale         string             `json:"locale,omitempty"`
}

// payment simulates a successful charge of the per-claim price.
func (s *Server) payment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, s.config.MaxBodyBytes, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.deps.Validator.Claims(req.SelectedClaims, s.locale(req.Locale)).Err(models.StepPayment); err != nil {
		s.fail(w, r, err)
		return
	}

	record := models.PaymentRecord{
		Paid:          true,
		PaidAt:        s.now().Format(time.RFC3339),
		Amount:        s.config.PricePerClaim * len(uniqueClaims(req.SelectedClaims)),
		Currency:      s.config.Currency,
		TransactionID: uuid.NewString(),
	}

	sessionUpdated := false
	if req.SessionID != "" && s.deps.Sessions != nil {
		if _, err := s.deps.Sessions.UpdatePaymentStatus(r.Context(), req.SessionID, models.PaymentPaid); err != nil {
			s.logger.Warn("failed to mark session paid", map[string]interface{}{
				"sessionId": req.SessionID,
				"error":     err.Error(),
			})
		} else {
			sessionUpdated = true
		}
	}

	s.logger.Info("payment simulated", map[string]interface{}{
		"transactionId": record.TransactionID,
		"amount":        record.Amount,
		"claims":        len(req.SelectedClaims),
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"payment":        record,
		"sessionUpdated": sessionUpdated,
	})
}

func uniqueClaims(claims []models.ClaimType) []models.ClaimType {
	seen := make(map[models.ClaimType]bool, len(claims))
	out := make([]models.ClaimType, 0, len(claims))
	for _, c := range claims {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
