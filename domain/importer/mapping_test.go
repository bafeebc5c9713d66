package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestMapping(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    FieldMapping
	}{
		{
			name:    "spaced headers",
			headers: []string{"Email Address", "First Name"},
			want:    FieldMapping{"Email Address": "email", "First Name": "first_name"},
		},
		{
			name:    "synonyms and casing",
			headers: []string{" E-Mail ", "Given Name", "SURNAME", "DOB", "Gender", "Status", "Slack Webhook"},
			want: FieldMapping{
				" E-Mail ":      "email",
				"Given Name":    "first_name",
				"SURNAME":       "last_name",
				"DOB":           "birthday",
				"Gender":        "sex",
				"Status":        "is_active",
				"Slack Webhook": "slack_webhook_url",
			},
		},
		{
			name:    "unknown headers stay unmapped",
			headers: []string{"email", "Favourite Colour", ""},
			want:    FieldMapping{"email": "email"},
		},
		{
			name:    "first header wins a target",
			headers: []string{"mail", "Email", "first-name", "firstname"},
			want:    FieldMapping{"mail": "email", "first-name": "first_name"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestMapping(tt.headers))
		})
	}
}

func TestValidateMapping(t *testing.T) {
	headers := []string{"Mail", "Given", "Family"}

	assert.NoError(t, ValidateMapping(FieldMapping{"Mail": "email", "Given": "first_name", "Family": ""}, headers))
	assert.Error(t, ValidateMapping(FieldMapping{"Nope": "email"}, headers))
	assert.Error(t, ValidateMapping(FieldMapping{"Mail": "nickname"}, headers))
	assert.Error(t, ValidateMapping(FieldMapping{"Mail": "email", "Given": "email"}, headers))
}

func TestMissingRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"last_name"}, MissingRequiredFields(FieldMapping{"a": "email", "b": "first_name"}))
	assert.Empty(t, MissingRequiredFields(FieldMapping{"a": "email", "b": "first_name", "c": "last_name"}))
	assert.Equal(t, RequiredFields, MissingRequiredFields(nil))
}

func TestApplyMapping(t *testing.T) {
	row := Row{Number: 2, Cells: map[string]string{"Mail": "a@b.co", "Given": "Ann", "Ignored": "x"}}
	rec := ApplyMapping(row, FieldMapping{"Mail": "email", "Given": "first_name", "Ignored": ""})
	assert.Equal(t, Record{"email": "a@b.co", "first_name": "Ann"}, rec)
}
