package mailer

import (
	"context"
	"fmt"

	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESMailer struct {
	client sesAPI
	from   string
	log    logger.Logger
}

func NewSESMailer(cfg aws.Config, from string, log logger.Logger) *SESMailer {
	return newSESMailer(ses.NewFromConfig(cfg), from, log)
}

func newSESMailer(client sesAPI, from string, log logger.Logger) *SESMailer {
	return &SESMailer{client: client, from: from, log: log.WithFields(logger.Provider("ses"))}
}

func (m *SESMailer) SendWelcome(ctx context.Context, msg WelcomeEmail) error {
	body, err := renderWelcome(msg)
	if err != nil {
		return err
	}

	out, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(welcomeSubject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}

	m.log.Debug("Welcome email sent", logger.Email(msg.To), logger.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
