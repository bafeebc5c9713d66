package mailer

import (
	"context"
	"fmt"

	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/resend/resend-go/v2"
)

// resendSender is the part of the Resend client used here.
type resendSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendMailer struct {
	emails resendSender
	from   string
	log    logger.Logger
}

func NewResendMailer(apiKey, from string, log logger.Logger) *ResendMailer {
	client := resend.NewClient(apiKey)
	return newResendMailer(client.Emails, from, log)
}

func newResendMailer(emails resendSender, from string, log logger.Logger) *ResendMailer {
	return &ResendMailer{emails: emails, from: from, log: log.WithFields(logger.Provider("resend"))}
}

func (m *ResendMailer) SendWelcome(_ context.Context, msg WelcomeEmail) error {
	body, err := renderWelcome(msg)
	if err != nil {
		return err
	}

	sent, err := m.emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: welcomeSubject,
		Html:    body,
	})
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}

	m.log.Debug("Welcome email sent", logger.Email(msg.To), logger.String("message_id", sent.Id))
	return nil
}
