package importer

import (
	"net/http"
	"time"
)

// Target fields a column can be mapped onto, in matching priority order.
const (
	FieldEmail           = "email"
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldPassword        = "password"
	FieldRole            = "role"
	FieldIsActive        = "is_active"
	FieldBirthday        = "birthday"
	FieldAddress         = "address"
	FieldLocale          = "locale"
	FieldSex             = "sex"
	FieldSlackWebhookURL = "slack_webhook_url"
)

// TargetFields is the fixed matching order used by SuggestMapping.
var TargetFields = []string{
	FieldEmail, FieldFirstName, FieldLastName, FieldPassword, FieldRole, FieldIsActive,
	FieldBirthday, FieldAddress, FieldLocale, FieldSex, FieldSlackWebhookURL,
}

// RequiredFields must be mapped and non-empty on every row.
var RequiredFields = []string{FieldEmail, FieldFirstName, FieldLastName}

// FieldMapping maps a source column header to a target field.
type FieldMapping map[string]string

// Record holds one row keyed by target field.
type Record map[string]string

// Row is one parsed data row keyed by source header. Number is the
// 1-based spreadsheet row, so the first data row is 2.
type Row struct {
	Number int
	Cells  map[string]string
}

// Issue is a row-level validation error or warning.
type Issue struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Value   string `json:"value,omitempty"`
}

// Options control how Commit classifies rows.
type Options struct {
	SkipDuplicates       bool   `json:"skipDuplicates"`
	UpdateExisting       bool   `json:"updateExisting"`
	SkipInvalidRows      bool   `json:"skipInvalidRows"`
	DefaultRole          string `json:"defaultRole,omitempty"`
	DefaultStatus        string `json:"defaultStatus,omitempty"`
	SendWelcomeEmail     bool   `json:"sendWelcomeEmail"`
	RequirePasswordReset bool   `json:"requirePasswordReset"`
	ValidateOnly         bool   `json:"validateOnly"`
}

// Preview is the bounded sample returned by the preview endpoint.
type Preview struct {
	Headers     []string                 `json:"headers"`
	Rows        []map[string]interface{} `json:"rows"`
	TotalRows   int                      `json:"totalRows"`
	PreviewRows int                      `json:"previewRows"`
}

// PreviewValidation reports sample validation. Counts for rows outside the
// sample are assumed valid and Estimated is set when that happened.
type PreviewValidation struct {
	ValidRows     int      `json:"validRows"`
	InvalidRows   int      `json:"invalidRows"`
	Estimated     bool     `json:"estimated"`
	MissingFields []string `json:"missingFields,omitempty"`
	Errors        []Issue  `json:"errors"`
	Warnings      []Issue  `json:"warnings"`
}

type PreviewResponse struct {
	Success          bool              `json:"success"`
	Preview          Preview           `json:"preview"`
	Validation       PreviewValidation `json:"validation"`
	SuggestedMapping FieldMapping      `json:"suggestedMapping"`
	Mapping          FieldMapping      `json:"mapping"`
}

// Summary counts one import. Created+Updated+Skipped+InvalidRows equals
// TotalRows once every row has been processed.
type Summary struct {
	TotalRows   int `json:"totalRows"`
	Created     int `json:"created"`
	Updated     int `json:"updated"`
	Skipped     int `json:"skipped"`
	InvalidRows int `json:"invalidRows"`
}

type Response struct {
	Success      bool    `json:"success"`
	JobID        string  `json:"jobId,omitempty"`
	ValidateOnly bool    `json:"validateOnly"`
	Message      string  `json:"message"`
	Summary      Summary `json:"summary"`
	Errors       []Issue `json:"errors"`
	Warnings     []Issue `json:"warnings"`
}

// HTTPStatus is 207 when some rows were written and others were rejected.
func (r *Response) HTTPStatus() int {
	if r.Summary.InvalidRows > 0 && r.Summary.Created+r.Summary.Updated > 0 {
		return http.StatusMultiStatus
	}
	return http.StatusOK
}

// Role is the subset of a role record the importer needs.
type Role struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// ExistingUser identifies a user that already owns an email.
type ExistingUser struct {
	ID    string `db:"id"`
	Email string `db:"email"`
}

// NewUser is a fully prepared insert.
type NewUser struct {
	ID                   string     `db:"id"`
	Email                string     `db:"email"`
	FirstName            string     `db:"first_name"`
	LastName             string     `db:"last_name"`
	Password             string     `db:"password"`
	RoleID               string     `db:"role_id"`
	IsActive             bool       `db:"is_active"`
	Birthday             *time.Time `db:"birthday"`
	Address              *string    `db:"address"`
	Locale               *string    `db:"locale"`
	Sex                  *string    `db:"sex"`
	SlackWebhookURL      *string    `db:"slack_webhook_url"`
	RequirePasswordReset bool       `db:"require_password_reset"`
}

// UserUpdate carries only the columns present in the imported row.
type UserUpdate struct {
	FirstName            *string
	LastName             *string
	Password             *string
	RoleID               *string
	IsActive             *bool
	Birthday             *time.Time
	Address              *string
	Locale               *string
	Sex                  *string
	SlackWebhookURL      *string
	RequirePasswordReset *bool
}

// Job is the audit record written for every committed import.
type Job struct {
	ID          string  `db:"id"`
	ActorID     string  `db:"actor_id"`
	FileName    string  `db:"file_name"`
	ArchiveKey  *string `db:"archive_key"`
	TotalRows   int     `db:"total_rows"`
	Created     int     `db:"created"`
	Updated     int     `db:"updated"`
	Skipped     int     `db:"skipped"`
	InvalidRows int     `db:"invalid_rows"`
}
