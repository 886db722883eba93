package state

import (
	"context"
	"fmt"

	"divorce-wizard/internal/models"
)

type ActionType string

const (
	ActionSetBasicInfo    ActionType = "setBasicInfo"
	ActionToggleClaim     ActionType = "toggleClaim"
	ActionSetClaimAnswers ActionType = "setClaimAnswers"
	ActionSetSignature    ActionType = "setSignature"
	ActionSetPaymentData  ActionType = "setPaymentData"
	ActionNextStep        ActionType = "nextStep"
	ActionPrevStep        ActionType = "prevStep"
	ActionGoToStep        ActionType = "goToStep"
)

// Action is one mutation posted by the client.
type Action struct {
	Type      ActionType             `json:"type"`
	BasicInfo *models.BasicInfo      `json:"basicInfo,omitempty"`
	Claim     models.ClaimType       `json:"claim,omitempty"`
	Answers   map[string]interface{} `json:"answers,omitempty"`
	Signature models.Signature       `json:"signature,omitempty"`
	Payment   *models.PaymentRecord  `json:"payment,omitempty"`
	Step      *models.Step           `json:"step,omitempty"`
}

// Apply dispatches a to the matching Store operation.
func (s *Store) Apply(ctx context.Context, a Action) error {
	switch a.Type {
	case ActionSetBasicInfo:
		if a.BasicInfo == nil {
			return fmt.Errorf("%w: %s requires basicInfo", ErrUnknownAction, a.Type)
		}
		s.SetBasicInfo(ctx, *a.BasicInfo)
		return nil
	case ActionToggleClaim:
		return s.ToggleClaim(ctx, a.Claim)
	case ActionSetClaimAnswers:
		return s.SetClaimAnswers(ctx, a.Claim, a.Answers)
	case ActionSetSignature:
		s.SetSignature(ctx, a.Signature)
		return nil
	case ActionSetPaymentData:
		if a.Payment == nil {
			return fmt.Errorf("%w: %s requires payment", ErrUnknownAction, a.Type)
		}
		s.SetPaymentData(ctx, *a.Payment)
		return nil
	case ActionNextStep:
		return s.NextStep(ctx)
	case ActionPrevStep:
		return s.PrevStep(ctx)
	case ActionGoToStep:
		if a.Step == nil {
			return fmt.Errorf("%w: %s requires step", ErrUnknownAction, a.Type)
		}
		return s.GoToStep(ctx, *a.Step)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
}
