// Package validation checks each wizard step and reports field-keyed,
// localized messages instead of failing hard; callers decide whether to block.
package validation

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"divorce-wizard/internal/common/i18n"
	"divorce-wizard/internal/models"
	"divorce-wizard/internal/wizard/questions"

	"github.com/xeipuuv/gojsonschema"
)

var ErrValidationFailed = errors.New("VALIDATION_FAILED")

const maxContactMessage = 5000

// Result maps a field path (e.g. "children.0.idNumber") to its message.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

func newResult() Result {
	return Result{Valid: true, Errors: map[string]string{}}
}

func (r *Result) add(field, msg string) {
	if _, exists := r.Errors[field]; exists {
		return
	}
	r.Errors[field] = msg
	r.Valid = false
}

func (r *Result) merge(prefix string, other Result) {
	for field, msg := range other.Errors {
		if prefix != "" {
			field = prefix + "." + field
		}
		r.add(field, msg)
	}
}

// Combine merges several results into one.
func Combine(results ...Result) Result {
	r := newResult()
	for _, other := range results {
		r.merge("", other)
	}
	return r
}

// Err returns nil for a valid result.
func (r Result) Err(step models.Step) error {
	if r.Valid {
		return nil
	}
	return &Error{Step: step, Fields: r.Errors}
}

// Error is returned when a step fails validation.
type Error struct {
	Step   models.Step
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	return fmt.Sprintf("step %s failed validation: %s", e.Step, strings.Join(keys, ", "))
}

func (e *Error) Is(target error) bool {
	return target == ErrValidationFailed
}

// Validator holds the compiled claim schemas.
type Validator struct {
	registry *questions.Registry
	bundle   *i18n.Bundle
	schemas  map[models.ClaimType]*gojsonschema.Schema
}

func New(registry *questions.Registry, bundle *i18n.Bundle) (*Validator, error) {
	v := &Validator{
		registry: registry,
		bundle:   bundle,
		schemas:  map[models.ClaimType]*gojsonschema.Schema{},
	}
	for _, claim := range registry.Claims() {
		doc, err := registry.JSONSchema(claim)
		if err != nil {
			return nil, err
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", claim, err)
		}
		v.schemas[claim] = schema
	}
	return v, nil
}

func (v *Validator) Registry() *questions.Registry {
	return v.registry
}

// Message localizes key for callers reporting their own field errors.
func (v *Validator) Message(locale, key string, args ...interface{}) string {
	return v.t(locale, key, args...)
}

func (v *Validator) t(locale, key string, args ...interface{}) string {
	return v.bundle.Message(locale, key, args...)
}

// BasicInfo validates both parties.
func (v *Validator) BasicInfo(info models.BasicInfo, locale string) Result {
	r := newResult()

	v.requireMinLength(&r, "fullName", info.FullName, 2, locale)
	v.requireID(&r, "idNumber", info.IDNumber, locale)
	v.requireMinLength(&r, "address", info.Address, 2, locale)
	v.requirePhone(&r, "phone", info.Phone, true, locale)
	v.requireEmail(&r, "email", info.Email, true, locale)
	v.requireDate(&r, "birthDate", info.BirthDate, true, locale)

	switch info.RelationshipType {
	case models.RelationshipMarried, models.RelationshipCommonLaw:
		if strings.TrimSpace(info.WeddingDay) == "" {
			r.add("weddingDay", v.t(locale, "validation.wedding_day_required"))
		} else {
			v.requireDate(&r, "weddingDay", info.WeddingDay, false, locale)
		}
	case models.RelationshipNotMarried:
	case "":
		r.add("relationshipType", v.t(locale, "validation.required"))
	default:
		r.add("relationshipType", v.t(locale, "validation.invalid_option"))
	}

	v.requireMinLength(&r, "fullName2", info.FullName2, 2, locale)
	v.requireID(&r, "idNumber2", info.IDNumber2, locale)
	v.requireMinLength(&r, "address2", info.Address2, 2, locale)
	v.requirePhone(&r, "phone2", info.Phone2, false, locale)
	v.requireEmail(&r, "email2", info.Email2, false, locale)
	v.requireDate(&r, "birthDate2", info.BirthDate2, false, locale)

	return r
}

// Claims checks that at least one known claim is selected.
func (v *Validator) Claims(claims []models.ClaimType, locale string) Result {
	r := newResult()
	if len(claims) == 0 {
		r.add("selectedClaims", v.t(locale, "validation.claims_required"))
		return r
	}
	for i, c := range claims {
		if _, ok := v.schemas[c]; !ok {
			r.add(fmt.Sprintf("selectedClaims.%d", i), v.t(locale, "validation.unknown_claim"))
		}
	}
	return r
}

// ClaimAnswers validates one claim's answers against its compiled schema.
func (v *Validator) ClaimAnswers(claim models.ClaimType, answers map[string]interface{}, locale string) Result {
	r := newResult()
	schema, ok := v.schemas[claim]
	if !ok {
		r.add("claimType", v.t(locale, "validation.unknown_claim"))
		return r
	}
	if answers == nil {
		answers = map[string]interface{}{}
	}

	res, err := schema.Validate(gojsonschema.NewGoLoader(answers))
	if err != nil {
		r.add("", v.t(locale, "validation.invalid_type"))
		return r
	}
	for _, re := range res.Errors() {
		field, key, args, skip := translate(re)
		if skip {
			continue
		}
		r.add(field, v.t(locale, key, args...))
	}
	return r
}

// AllClaimAnswers validates every selected claim; fields are prefixed with the claim.
func (v *Validator) AllClaimAnswers(claims []models.ClaimType, answers models.ClaimAnswers, locale string) Result {
	r := newResult()
	for _, c := range claims {
		a, ok := answers[c]
		if !ok {
			r.add(string(c), v.t(locale, "validation.claim_answers_required"))
			continue
		}
		r.merge(string(c), v.ClaimAnswers(c, a, locale))
	}
	return r
}

func (v *Validator) Signature(sig models.Signature, locale string) Result {
	r := newResult()
	if _, err := sig.PNG(); err != nil {
		if errors.Is(err, models.ErrSignatureEmpty) {
			r.add("signature", v.t(locale, "validation.signature_required"))
		} else {
			r.add("signature", v.t(locale, "validation.signature_invalid"))
		}
	}
	return r
}

// Attachments checks each user file has a name and base64 content.
func (v *Validator) Attachments(atts []models.Attachment, locale string) Result {
	r := newResult()
	for i, a := range atts {
		if strings.TrimSpace(a.Name) == "" {
			r.add(fmt.Sprintf("attachments.%d.name", i), v.t(locale, "validation.required"))
		}
		if _, err := base64.StdEncoding.DecodeString(a.Data); err != nil || a.Data == "" {
			r.add(fmt.Sprintf("attachments.%d.data", i), v.t(locale, "validation.invalid_format"))
		}
		if a.ClaimType != "" && !a.ClaimType.Valid() {
			r.add(fmt.Sprintf("attachments.%d.claimType", i), v.t(locale, "validation.unknown_claim"))
		}
	}
	return r
}

// Contact validates the public contact form.
func (v *Validator) Contact(req models.ContactRequest, locale string) Result {
	r := newResult()
	v.requireMinLength(&r, "name", req.Name, 2, locale)
	v.requirePhone(&r, "phone", req.Phone, true, locale)
	v.requireEmail(&r, "email", req.Email, true, locale)
	v.requireMinLength(&r, "message", req.Message, 2, locale)
	if len([]rune(req.Message)) > maxContactMessage {
		r.add("message", v.t(locale, "validation.max_length", maxContactMessage))
	}
	return r
}

func (v *Validator) Payment(p models.PaymentRecord, locale string) Result {
	r := newResult()
	if !p.Paid {
		r.add("payment", v.t(locale, "validation.payment_required"))
	}
	return r
}

// Step validates what step requires before the wizard may move past it.
func (v *Validator) Step(step models.Step, state *models.WizardState, locale string) Result {
	switch step {
	case models.StepBasicInfo:
		return v.BasicInfo(state.BasicInfo, locale)
	case models.StepClaims:
		return v.Claims(state.SelectedClaims, locale)
	case models.StepClaimForms:
		return v.AllClaimAnswers(state.SelectedClaims, state.ClaimAnswers, locale)
	case models.StepSignature:
		return v.Signature(state.Signature, locale)
	case models.StepPayment:
		return v.Payment(state.Payment, locale)
	default:
		return newResult()
	}
}

func (v *Validator) requireMinLength(r *Result, field, value string, minLen int, locale string) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		r.add(field, v.t(locale, "validation.required"))
	case len([]rune(value)) < minLen:
		r.add(field, v.t(locale, "validation.min_length", minLen))
	}
}

func (v *Validator) requireID(r *Result, field, value, locale string) {
	value = strings.TrimSpace(value)
	if value == "" {
		r.add(field, v.t(locale, "validation.required"))
		return
	}
	if !IsValidIsraeliID(value) {
		r.add(field, v.t(locale, "validation.invalid_id"))
	}
}

func (v *Validator) requirePhone(r *Result, field, value string, required bool, locale string) {
	if strings.TrimSpace(value) == "" {
		if required {
			r.add(field, v.t(locale, "validation.required"))
		}
		return
	}
	if !IsValidPhone(value) {
		r.add(field, v.t(locale, "validation.invalid_phone"))
	}
}

func (v *Validator) requireEmail(r *Result, field, value string, required bool, locale string) {
	if strings.TrimSpace(value) == "" {
		if required {
			r.add(field, v.t(locale, "validation.required"))
		}
		return
	}
	if !IsValidEmail(value) {
		r.add(field, v.t(locale, "validation.invalid_email"))
	}
}

func (v *Validator) requireDate(r *Result, field, value string, required bool, locale string) {
	if strings.TrimSpace(value) == "" {
		if required {
			r.add(field, v.t(locale, "validation.required"))
		}
		return
	}
	if !IsValidDate(value) {
		r.add(field, v.t(locale, "validation.invalid_date"))
	}
}

// translate maps a schema error onto a field path and message key.
func translate(re gojsonschema.ResultError) (field, key string, args []interface{}, skip bool) {
	field = re.Field()
	if field == gojsonschema.STRING_CONTEXT_ROOT {
		field = ""
	}
	details := re.Details()

	switch re.Type() {
	case "condition_then", "condition_else", "number_all_of", "number_any_of", "number_one_of":
		return "", "", nil, true
	case "required":
		prop := fmt.Sprint(details["property"])
		if field == "" {
			field = prop
		} else {
			field = field + "." + prop
		}
		return field, "validation.required", nil, false
	case "invalid_type":
		return field, "validation.invalid_type", nil, false
	case "enum":
		if s, ok := re.Value().(string); ok && s == "" {
			return field, "validation.required", nil, false
		}
		return field, "validation.invalid_option", nil, false
	case "string_gte":
		if min, ok := details["min"].(int); ok && min <= 1 {
			return field, "validation.required", nil, false
		}
		return field, "validation.min_length", []interface{}{details["min"]}, false
	case "string_lte":
		return field, "validation.max_length", []interface{}{details["max"]}, false
	case "array_min_items":
		return field, "validation.required", nil, false
	case "number_gte", "number_gt":
		return field, "validation.min_value", []interface{}{fmt.Sprint(details["min"])}, false
	case "number_lte", "number_lt":
		return field, "validation.max_value", []interface{}{fmt.Sprint(details["max"])}, false
	case "format":
		switch details["format"] {
		case questions.FormatIsraeliID:
			return field, "validation.invalid_id", nil, false
		case questions.FormatPhone:
			return field, "validation.invalid_phone", nil, false
		case questions.FormatEmail:
			return field, "validation.invalid_email", nil, false
		case questions.FormatDate:
			return field, "validation.invalid_date", nil, false
		}
	}
	return field, "validation.invalid_format", nil, false
}
