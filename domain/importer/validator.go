package importer

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/microcosm-cc/bluemonday"
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	birthdayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

const (
	slackWebhookPrefix = "https://hooks.slack.com/"
	minPasswordLength  = 8
	bcryptMaxPassword  = 72
	birthdayLayout     = "2006-01-02"
)

var allowedSex = map[string]bool{"male": true, "female": true, "other": true}

// freeTextFields are stripped of markup before validation.
var freeTextFields = []string{FieldFirstName, FieldLastName, FieldAddress, FieldLocale}

// Validator applies row rules. The base rules are shared by preview and
// commit; commit adds the rules that need the whole file or the database.
type Validator struct {
	policy      *bluemonday.Policy
	maxPassword int
}

// NewValidator builds a validator accepting passwords of at most maxPassword
// bytes. Zero or less means bcrypt's own limit.
func NewValidator(maxPassword int) *Validator {
	if maxPassword <= 0 {
		maxPassword = bcryptMaxPassword
	}
	return &Validator{policy: bluemonday.StrictPolicy(), maxPassword: maxPassword}
}

// Sanitize strips markup from free-text fields in place and returns a
// warning per field that changed.
func (v *Validator) Sanitize(rec Record, row int) []Issue {
	var warnings []Issue
	for _, f := range freeTextFields {
		raw, ok := rec[f]
		if !ok || raw == "" {
			continue
		}
		clean := strings.TrimSpace(html.UnescapeString(v.policy.Sanitize(raw)))
		if clean != raw {
			rec[f] = clean
			warnings = append(warnings, Issue{
				Row:     row,
				Field:   f,
				Message: "Markup was removed from this value",
				Value:   raw,
			})
		}
	}
	return warnings
}

// ValidateBase checks required fields, email shape, birthday and the Slack
// webhook. Birthday and webhook problems are warnings only.
func (v *Validator) ValidateBase(rec Record, row int) (errs, warnings []Issue) {
	email := strings.TrimSpace(rec[FieldEmail])
	switch {
	case email == "":
		errs = append(errs, required(row, FieldEmail))
	case !emailPattern.MatchString(email):
		errs = append(errs, Issue{
			Row:     row,
			Field:   FieldEmail,
			Message: "Invalid email format",
			Code:    apperrors.ErrCodeInvalidEmailFormat,
			Value:   email,
		})
	}

	for _, f := range []string{FieldFirstName, FieldLastName} {
		if strings.TrimSpace(rec[f]) == "" {
			errs = append(errs, required(row, f))
		}
	}

	if b := strings.TrimSpace(rec[FieldBirthday]); b != "" {
		if _, ok := ParseBirthday(b); !ok {
			warnings = append(warnings, Issue{
				Row:     row,
				Field:   FieldBirthday,
				Message: "Birthday should use the YYYY-MM-DD format",
				Value:   b,
			})
		}
	}

	if u := strings.TrimSpace(rec[FieldSlackWebhookURL]); u != "" && !strings.HasPrefix(u, slackWebhookPrefix) {
		warnings = append(warnings, Issue{
			Row:     row,
			Field:   FieldSlackWebhookURL,
			Message: fmt.Sprintf("Slack webhook URL should start with %s", slackWebhookPrefix),
			Value:   u,
		})
	}
	return errs, warnings
}

// ValidateValues checks the commit-only value rules: password length bounds, the
// is_active flag and sex.
func (v *Validator) ValidateValues(rec Record, row int) (errs, warnings []Issue) {
	switch p := rec[FieldPassword]; {
	case p == "":
	case len(p) < minPasswordLength:
		errs = append(errs, Issue{
			Row:     row,
			Field:   FieldPassword,
			Message: fmt.Sprintf("Password must be at least %d characters", minPasswordLength),
			Code:    apperrors.ErrCodeInvalidPassword,
		})
	case len(p) > v.maxPassword:
		errs = append(errs, Issue{
			Row:     row,
			Field:   FieldPassword,
			Message: fmt.Sprintf("Password must be at most %d bytes", v.maxPassword),
			Code:    apperrors.ErrCodeInvalidPassword,
		})
	}

	if a := strings.TrimSpace(rec[FieldIsActive]); a != "" {
		if _, ok := ParseActive(a); !ok {
			errs = append(errs, Issue{
				Row:     row,
				Field:   FieldIsActive,
				Message: "is_active must be true/false, yes/no, 1/0 or active/inactive",
				Code:    apperrors.ErrCodeInvalidFieldValue,
				Value:   a,
			})
		}
	}

	if s := strings.TrimSpace(rec[FieldSex]); s != "" && !allowedSex[strings.ToLower(s)] {
		warnings = append(warnings, Issue{
			Row:     row,
			Field:   FieldSex,
			Message: "sex should be one of male, female, other; the value will be ignored",
			Code:    apperrors.ErrCodeInvalidFieldValue,
			Value:   s,
		})
	}
	return errs, warnings
}

func required(row int, field string) Issue {
	return Issue{
		Row:     row,
		Field:   field,
		Message: fmt.Sprintf("%s is required", field),
		Code:    apperrors.ErrCodeRequiredFieldMissing,
	}
}

// ParseActive accepts the usual boolean spellings plus active/inactive.
func ParseActive(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "active":
		return true, true
	case "false", "0", "no", "n", "inactive":
		return false, true
	}
	return false, false
}

// ParseBirthday parses a YYYY-MM-DD date.
func ParseBirthday(s string) (time.Time, bool) {
	if !birthdayPattern.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(birthdayLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeEmail lowercases and trims an address for comparisons.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
