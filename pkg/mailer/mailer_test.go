package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWelcome(t *testing.T) {
	body, err := renderWelcome(WelcomeEmail{To: "ada@example.com", FirstName: "<Ada>", TemporaryPassword: "Tmp-12345"})
	require.NoError(t, err)
	assert.Contains(t, body, "Hi &lt;Ada&gt;")
	assert.Contains(t, body, "Tmp-12345")

	body, err = renderWelcome(WelcomeEmail{To: "ada@example.com", FirstName: "Ada"})
	require.NoError(t, err)
	assert.NotContains(t, body, "temporary password")
}

type fakeResend struct {
	got *resend.SendEmailRequest
	err error
}

func (f *fakeResend) Send(p *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.got = p
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "msg-1"}, nil
}

func TestResendMailer(t *testing.T) {
	fake := &fakeResend{}
	m := newResendMailer(fake, "console@example.com", logger.Nop())

	require.NoError(t, m.SendWelcome(context.Background(), WelcomeEmail{To: "ada@example.com", FirstName: "Ada"}))
	assert.Equal(t, "console@example.com", fake.got.From)
	assert.Equal(t, []string{"ada@example.com"}, fake.got.To)
	assert.Equal(t, welcomeSubject, fake.got.Subject)

	fake.err = errors.New("quota exceeded")
	assert.ErrorContains(t, m.SendWelcome(context.Background(), WelcomeEmail{To: "b@example.com"}), "quota exceeded")
}

type fakeSES struct {
	got *ses.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.got = in
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESMailer(t *testing.T) {
	fake := &fakeSES{}
	m := newSESMailer(fake, "console@example.com", logger.Nop())

	require.NoError(t, m.SendWelcome(context.Background(), WelcomeEmail{To: "ada@example.com", FirstName: "Ada"}))
	assert.Equal(t, "console@example.com", aws.ToString(fake.got.Source))
	assert.Equal(t, []string{"ada@example.com"}, fake.got.Destination.ToAddresses)
	assert.Equal(t, welcomeSubject, aws.ToString(fake.got.Message.Subject.Data))
}
