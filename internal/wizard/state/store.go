// Package state holds the wizard's in-progress submission as an explicit,
// serializable value and enforces step navigation rules on it.
package state

import (
	"context"
	"errors"
	"fmt"

	"divorce-wizard/internal/common/logger"
	"divorce-wizard/internal/models"
	"divorce-wizard/internal/wizard/validation"
)

var (
	ErrStepLocked       = errors.New("STEP_LOCKED")
	ErrStepOutOfRange   = errors.New("STEP_OUT_OF_RANGE")
	ErrUnknownClaim     = errors.New("UNKNOWN_CLAIM")
	ErrClaimNotSelected = errors.New("CLAIM_NOT_SELECTED")
	ErrUnknownAction    = errors.New("UNKNOWN_ACTION")
)

// StepValidator is satisfied by *validation.Validator.
type StepValidator interface {
	Step(step models.Step, state *models.WizardState, locale string) validation.Result
}

// Mirror records the state into a recovery session.
type Mirror interface {
	Mirror(ctx context.Context, state *models.WizardState) error
}

type Store struct {
	state         *models.WizardState
	validator     StepValidator
	mirror        Mirror
	logger        logger.Logger
	pricePerClaim int
	locale        string
}

type Option func(*Store)

func WithMirror(m Mirror) Option {
	return func(s *Store) { s.mirror = m }
}

func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithPricePerClaim(price int) Option {
	return func(s *Store) { s.pricePerClaim = price }
}

func WithLocale(locale string) Option {
	return func(s *Store) { s.locale = locale }
}

// New wraps st; mutations are applied to st in place. Step counters outside
// the wizard's range are clamped into it.
func New(st *models.WizardState, validator StepValidator, opts ...Option) *Store {
	if st == nil {
		st = &models.WizardState{}
	}
	st.CurrentStep = clampStep(st.CurrentStep)
	st.MaxReachedStep = clampStep(st.MaxReachedStep)
	if st.CurrentStep > st.MaxReachedStep {
		st.MaxReachedStep = st.CurrentStep
	}
	s := &Store{
		state:     st,
		validator: validator,
		logger:    logger.NewNoOpLogger(),
		locale:    "he",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func clampStep(n models.Step) models.Step {
	if n < 0 {
		return 0
	}
	if int(n) >= models.StepCount {
		return models.Step(models.StepCount - 1)
	}
	return n
}

// Revalidate lowers MaxReachedStep to the first step below it that does not
// validate and pulls CurrentStep back with it. Counters posted by a client
// are only as good as the data behind them.
func (s *Store) Revalidate() {
	st := s.state
	for step := models.Step(0); step < st.MaxReachedStep; step++ {
		if s.validator.Step(step, st, s.locale).Err(step) != nil {
			st.MaxReachedStep = step
			break
		}
	}
	if st.CurrentStep > st.MaxReachedStep {
		st.CurrentStep = st.MaxReachedStep
	}
}

func (s *Store) State() *models.WizardState {
	return s.state
}

// Price is the fixed per-claim amount times the number of selected claims.
func (s *Store) Price() int {
	return s.pricePerClaim * len(s.state.SelectedClaims)
}

func (s *Store) SetBasicInfo(ctx context.Context, info models.BasicInfo) {
	s.state.BasicInfo = info
	if s.state.Email == "" {
		s.state.Email = info.Email
	}
	if s.state.Phone == "" {
		s.state.Phone = info.Phone
	}
	s.mirrorState(ctx)
}

// ToggleClaim selects or deselects claim; deselecting drops its answers.
func (s *Store) ToggleClaim(ctx context.Context, claim models.ClaimType) error {
	if !claim.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownClaim, claim)
	}

	selected := make([]models.ClaimType, 0, len(s.state.SelectedClaims)+1)
	removed := false
	for _, c := range s.state.SelectedClaims {
		if c == claim {
			removed = true
			continue
		}
		selected = append(selected, c)
	}
	if removed {
		delete(s.state.ClaimAnswers, claim)
	} else {
		selected = append(selected, claim)
	}
	s.state.SelectedClaims = selected

	s.mirrorState(ctx)
	return nil
}

func (s *Store) SetClaimAnswers(ctx context.Context, claim models.ClaimType, answers map[string]interface{}) error {
	if !s.state.HasClaim(claim) {
		return fmt.Errorf("%w: %q", ErrClaimNotSelected, claim)
	}
	if s.state.ClaimAnswers == nil {
		s.state.ClaimAnswers = models.ClaimAnswers{}
	}
	s.state.ClaimAnswers[claim] = answers
	s.mirrorState(ctx)
	return nil
}

func (s *Store) SetSignature(ctx context.Context, sig models.Signature) {
	s.state.Signature = sig
	s.mirrorState(ctx)
}

func (s *Store) SetPaymentData(ctx context.Context, payment models.PaymentRecord) {
	s.state.Payment = payment
	s.mirrorState(ctx)
}

// NextStep advances only when the current step validates.
func (s *Store) NextStep(ctx context.Context) error {
	return s.GoToStep(ctx, s.state.CurrentStep+1)
}

func (s *Store) PrevStep(ctx context.Context) error {
	if s.state.CurrentStep <= 0 {
		return ErrStepOutOfRange
	}
	s.state.CurrentStep--
	s.mirrorState(ctx)
	return nil
}

// GoToStep moves to step n. Jumping past maxReachedStep+1 is rejected, and
// moving forward requires every step being passed to validate. The state is
// left unchanged on any error.
func (s *Store) GoToStep(ctx context.Context, n models.Step) error {
	if n < 0 || int(n) >= models.StepCount {
		return fmt.Errorf("%w: %d", ErrStepOutOfRange, n)
	}
	if n > s.state.MaxReachedStep+1 {
		return fmt.Errorf("%w: requested %d, reached %d", ErrStepLocked, n, s.state.MaxReachedStep)
	}

	for step := s.state.CurrentStep; step < n; step++ {
		if err := s.validator.Step(step, s.state, s.locale).Err(step); err != nil {
			return err
		}
	}

	s.state.CurrentStep = n
	if n > s.state.MaxReachedStep {
		s.state.MaxReachedStep = n
	}
	s.mirrorState(ctx)
	return nil
}

// mirrorState never fails the mutation.
func (s *Store) mirrorState(ctx context.Context) {
	if s.mirror == nil || s.state.ContactEmail() == "" {
		return
	}
	if err := s.mirror.Mirror(ctx, s.state); err != nil {
		s.logger.Warn("failed to mirror wizard state", map[string]interface{}{
			"error": err.Error(),
			"step":  s.state.CurrentStep.String(),
		})
	}
}
