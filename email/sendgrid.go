package email

import (
	"context"

	"github.com/apex/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender sends through the SendGrid v3 mail API.
type SendGridSender struct {
	client *sendgrid.Client
}

func NewSendGridSender(apiKey string) *SendGridSender {
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey)}
}

// WithBaseURL points the sender at a different mail/send endpoint.
func (s *SendGridSender) WithBaseURL(url string) *SendGridSender {
	s.client.BaseURL = url
	return s
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(msg.FromName, msg.FromAddress))
	message.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.To, msg.To))
	message.AddPersonalizations(p)

	message.AddContent(mail.NewContent("text/plain", msg.Text))
	message.AddContent(mail.NewContent("text/html", msg.HTML))

	for _, a := range msg.Attachments {
		att := mail.NewAttachment()
		att.SetContent(a.Content)
		att.SetType(a.Type)
		att.SetFilename(a.FileName)
		att.SetDisposition("attachment")
		message.AddAttachment(att)
	}

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if !accepted(response.StatusCode) {
		return &DeliveryError{StatusCode: response.StatusCode, Body: response.Body}
	}

	log.Infof("Email sent to %s! Status: %d", msg.To, response.StatusCode)
	return nil
}
