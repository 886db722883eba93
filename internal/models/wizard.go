// internal/models/wizard.go
package models

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
)

// ClaimType identifies one of the legal case types a user can file.
type ClaimType string

const (
	ClaimProperty         ClaimType = "property"
	ClaimCustody          ClaimType = "custody"
	ClaimAlimony          ClaimType = "alimony"
	ClaimDivorce          ClaimType = "divorce"
	ClaimDivorceAgreement ClaimType = "divorceAgreement"
)

// AllClaims is the display order of claim types.
var AllClaims = []ClaimType{
	ClaimProperty,
	ClaimCustody,
	ClaimAlimony,
	ClaimDivorce,
	ClaimDivorceAgreement,
}

var claimLabels = map[ClaimType]string{
	ClaimProperty:         "תביעה רכושית",
	ClaimCustody:          "תביעת משמורת",
	ClaimAlimony:          "תביעת מזונות",
	ClaimDivorce:          "תביעת גירושין",
	ClaimDivorceAgreement: "הסכם גירושין",
}

func (c ClaimType) Valid() bool {
	_, ok := claimLabels[c]
	return ok
}

// Label returns the Hebrew display label, or the raw value for unknown claims.
func (c ClaimType) Label() string {
	if label, ok := claimLabels[c]; ok {
		return label
	}
	return string(c)
}

type RelationshipType string

const (
	RelationshipMarried    RelationshipType = "married"
	RelationshipCommonLaw  RelationshipType = "commonLaw"
	RelationshipNotMarried RelationshipType = "notMarried"
)

// BasicInfo holds the applicant and the respondent (fields suffixed 2).
type BasicInfo struct {
	FullName         string           `json:"fullName"`
	IDNumber         string           `json:"idNumber"`
	Address          string           `json:"address"`
	City             string           `json:"city,omitempty"`
	Phone            string           `json:"phone"`
	Email            string           `json:"email"`
	BirthDate        string           `json:"birthDate"`
	RelationshipType RelationshipType `json:"relationshipType"`
	WeddingDay       string           `json:"weddingDay,omitempty"`

	FullName2  string `json:"fullName2"`
	IDNumber2  string `json:"idNumber2"`
	Address2   string `json:"address2"`
	City2      string `json:"city2,omitempty"`
	Phone2     string `json:"phone2"`
	Email2     string `json:"email2,omitempty"`
	BirthDate2 string `json:"birthDate2"`
}

// AsMap flattens BasicInfo for template lookups and validation.
func (b BasicInfo) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"fullName":         b.FullName,
		"idNumber":         b.IDNumber,
		"address":          b.Address,
		"city":             b.City,
		"phone":            b.Phone,
		"email":            b.Email,
		"birthDate":        b.BirthDate,
		"relationshipType": string(b.RelationshipType),
		"weddingDay":       b.WeddingDay,
		"fullName2":        b.FullName2,
		"idNumber2":        b.IDNumber2,
		"address2":         b.Address2,
		"city2":            b.City2,
		"phone2":           b.Phone2,
		"email2":           b.Email2,
		"birthDate2":       b.BirthDate2,
	}
}

type Child struct {
	Name        string `json:"name"`
	BirthDate   string `json:"birthDate"`
	IDNumber    string `json:"idNumber"`
	Address     string `json:"address,omitempty"`
	ResidesWith string `json:"residesWith,omitempty"`
}

// ClaimAnswers maps a claim to its answer record. The shape of each record is
// defined by that claim's question schema.
type ClaimAnswers map[ClaimType]map[string]interface{}

// Signature is a base64 PNG, optionally prefixed with a data URL header.
type Signature string

const signaturePrefix = "data:image/png;base64,"

var (
	ErrSignatureEmpty  = errors.New("SIGNATURE_EMPTY")
	ErrSignatureNotPNG = errors.New("SIGNATURE_NOT_PNG")
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// PNG decodes the signature and checks the PNG header.
func (s Signature) PNG() ([]byte, error) {
	raw := strings.TrimSpace(string(s))
	if raw == "" {
		return nil, ErrSignatureEmpty
	}
	raw = strings.TrimPrefix(raw, signaturePrefix)

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, ErrSignatureNotPNG
	}
	if !bytes.HasPrefix(data, pngMagic) {
		return nil, ErrSignatureNotPNG
	}
	return data, nil
}

// PaymentRecord is simulated: no payment processor is integrated.
type PaymentRecord struct {
	Paid          bool   `json:"paid"`
	PaidAt        string `json:"paidAt,omitempty"`
	Amount        int    `json:"amount,omitempty"`
	Currency      string `json:"currency,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

type Step int

const (
	StepBasicInfo Step = iota
	StepClaims
	StepClaimForms
	StepSignature
	StepPayment
	StepReview
)

// StepCount is the number of wizard steps.
const StepCount = int(StepReview) + 1

var stepNames = [...]string{"basic-info", "claims", "claim-forms", "signature", "payment", "review"}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}

// WizardState is the single source of truth for an in-progress submission.
type WizardState struct {
	CurrentStep    Step          `json:"currentStep"`
	MaxReachedStep Step          `json:"maxReachedStep"`
	BasicInfo      BasicInfo     `json:"basicInfo"`
	SelectedClaims []ClaimType   `json:"selectedClaims"`
	ClaimAnswers   ClaimAnswers  `json:"claimAnswers,omitempty"`
	Signature      Signature     `json:"signature,omitempty"`
	Payment        PaymentRecord `json:"payment"`
	Email          string        `json:"email,omitempty"`
	Phone          string        `json:"phone,omitempty"`
}

// HasClaim reports whether c is selected.
func (w *WizardState) HasClaim(c ClaimType) bool {
	for _, selected := range w.SelectedClaims {
		if selected == c {
			return true
		}
	}
	return false
}

// ContactEmail prefers the explicitly captured email over the applicant's.
func (w *WizardState) ContactEmail() string {
	if w.Email != "" {
		return w.Email
	}
	return w.BasicInfo.Email
}
