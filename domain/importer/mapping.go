package importer

import (
	"fmt"
	"strings"
)

// synonyms lists the normalized header spellings recognised per target field.
var synonyms = map[string][]string{
	FieldEmail:           {"email", "e-mail", "email_address", "emailaddress", "mail"},
	FieldFirstName:       {"first_name", "firstname", "first", "given_name", "givenname", "forename"},
	FieldLastName:        {"last_name", "lastname", "last", "surname", "family_name", "familyname"},
	FieldPassword:        {"password", "pass", "pwd"},
	FieldRole:            {"role", "role_name", "rolename", "user_role"},
	FieldIsActive:        {"is_active", "isactive", "active", "status", "enabled"},
	FieldBirthday:        {"birthday", "birthdate", "birth_date", "date_of_birth", "dob"},
	FieldAddress:         {"address", "street_address", "street"},
	FieldLocale:          {"locale", "language", "lang"},
	FieldSex:             {"sex", "gender"},
	FieldSlackWebhookURL: {"slack_webhook_url", "slack_webhook", "slackwebhookurl", "webhook_url", "slack"},
}

// headerVariants returns the spellings a header is tested under:
// as written, with whitespace/hyphens as underscores, and with separators removed.
func headerVariants(header string) []string {
	n := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(header))), " ")
	underscored := strings.NewReplacer(" ", "_", "-", "_").Replace(n)
	compact := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(n)
	return []string{n, underscored, compact}
}

func matchTarget(header string) string {
	variants := headerVariants(header)
	for _, target := range TargetFields {
		for _, syn := range synonyms[target] {
			for _, v := range variants {
				if v == syn {
					return target
				}
			}
		}
	}
	return ""
}

// SuggestMapping proposes a target field for each header. The first target
// in TargetFields that matches wins; a target already claimed by an earlier
// header leaves later headers unmapped.
func SuggestMapping(headers []string) FieldMapping {
	mapping := FieldMapping{}
	taken := map[string]bool{}
	for _, h := range headers {
		if h == "" {
			continue
		}
		target := matchTarget(h)
		if target == "" || taken[target] {
			continue
		}
		taken[target] = true
		mapping[h] = target
	}
	return mapping
}

// ValidateMapping rejects explicit mappings that name unknown headers or
// fields, or that map two headers onto one field.
func ValidateMapping(mapping FieldMapping, headers []string) error {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	targets := make(map[string]bool, len(TargetFields))
	for _, f := range TargetFields {
		targets[f] = true
	}

	used := map[string]string{}
	for header, field := range mapping {
		if field == "" {
			continue
		}
		if !known[header] {
			return fmt.Errorf("mapping references unknown column %q", header)
		}
		if !targets[field] {
			return fmt.Errorf("mapping references unknown field %q", field)
		}
		if prev, ok := used[field]; ok {
			return fmt.Errorf("columns %q and %q are both mapped to %q", prev, header, field)
		}
		used[field] = header
	}
	return nil
}

// MissingRequiredFields lists required targets no header is mapped to.
func MissingRequiredFields(mapping FieldMapping) []string {
	mapped := map[string]bool{}
	for _, field := range mapping {
		mapped[field] = true
	}
	var missing []string
	for _, f := range RequiredFields {
		if !mapped[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

// ApplyMapping converts a row keyed by header into a Record keyed by field.
func ApplyMapping(row Row, mapping FieldMapping) Record {
	rec := make(Record, len(mapping))
	for header, field := range mapping {
		if field == "" {
			continue
		}
		if v, ok := row.Cells[header]; ok {
			rec[field] = v
		}
	}
	return rec
}
