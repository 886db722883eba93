package validation

import (
	"regexp"
	"strings"
	"time"

	"divorce-wizard/internal/wizard/questions"

	"github.com/xeipuuv/gojsonschema"
)

var (
	mobilePattern   = regexp.MustCompile(`^05\d{8}$`)
	landlinePattern = regexp.MustCompile(`^0[2-489]\d{7,8}$`)
	phoneSeparators = strings.NewReplacer(" ", "", "-", "")
)

const dateLayout = "2006-01-02"

// IsValidIsraeliID checks a 9-digit national ID: digits are weighted
// 1,2,1,2,..., products above 9 are reduced by their digit sum and the
// total must be divisible by 10.
func IsValidIsraeliID(id string) bool {
	if len(id) != 9 {
		return false
	}
	sum := 0
	for i, r := range id {
		if r < '0' || r > '9' {
			return false
		}
		d := int(r-'0') * (i%2 + 1)
		if d > 9 {
			d -= 9
		}
		sum += d
	}
	return sum%10 == 0
}

// NormalizePhone strips spaces and dashes.
func NormalizePhone(phone string) string {
	return phoneSeparators.Replace(strings.TrimSpace(phone))
}

// IsValidPhone accepts 05XXXXXXXX mobiles and 0[2-4,8-9] landlines of 9 or 10 digits.
func IsValidPhone(phone string) bool {
	p := NormalizePhone(phone)
	return mobilePattern.MatchString(p) || landlinePattern.MatchString(p)
}

func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || strings.ContainsAny(email, " <>") {
		return false
	}
	return gojsonschema.FormatCheckers.IsFormat("email", email)
}

func IsValidDate(value string) bool {
	_, err := time.Parse(dateLayout, value)
	return err == nil
}

// Format checkers for the custom formats emitted by the question compiler.
// The empty string passes; requiredness is expressed with minLength.

type idFormatChecker struct{}

func (idFormatChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	return ok && (s == "" || IsValidIsraeliID(s))
}

type phoneFormatChecker struct{}

func (phoneFormatChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	return ok && (s == "" || IsValidPhone(s))
}

type emailFormatChecker struct{}

func (emailFormatChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	return ok && (s == "" || IsValidEmail(s))
}

type dateFormatChecker struct{}

func (dateFormatChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	return ok && (s == "" || IsValidDate(s))
}

func init() {
	gojsonschema.FormatCheckers.
		Add(questions.FormatIsraeliID, idFormatChecker{}).
		Add(questions.FormatPhone, phoneFormatChecker{}).
		Add(questions.FormatEmail, emailFormatChecker{}).
		Add(questions.FormatDate, dateFormatChecker{})
}
