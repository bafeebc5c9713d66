// Package mailer delivers the welcome email sent to imported users.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

// WelcomeEmail is sent to a newly created account. TemporaryPassword is only
// set when the password was generated during import.
type WelcomeEmail struct {
	To                string
	FirstName         string
	TemporaryPassword string
}

// Mailer sends welcome emails.
type Mailer interface {
	SendWelcome(ctx context.Context, msg WelcomeEmail) error
}

const welcomeSubject = "Welcome to the admin console"

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<p>Hi {{.FirstName}},</p>
<p>An account has been created for you ({{.To}}).</p>
{{if .TemporaryPassword}}<p>Your temporary password is <strong>{{.TemporaryPassword}}</strong>. You will be asked to change it when you first sign in.</p>
{{end}}<p>See you soon.</p>`))

func renderWelcome(msg WelcomeEmail) (string, error) {
	var buf bytes.Buffer
	if err := welcomeTemplate.Execute(&buf, msg); err != nil {
		return "", fmt.Errorf("render welcome email: %w", err)
	}
	return buf.String(), nil
}

// Nop discards every message.
type Nop struct{}

func (Nop) SendWelcome(context.Context, WelcomeEmail) error { return nil }
