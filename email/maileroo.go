package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/apex/log"
)

const DefaultMailerooURL = "https://smtp.maileroo.com/api/v2/emails"

// MailerooSender sends through the Maileroo v2 JSON API.
type MailerooSender struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewMailerooSender(apiKey, endpoint string, timeout time.Duration) *MailerooSender {
	if endpoint == "" {
		endpoint = DefaultMailerooURL
	}
	return &MailerooSender{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type mailerooAddress struct {
	Address     string `json:"address"`
	DisplayName string `json:"display_name,omitempty"`
}

type mailerooRequest struct {
	From        mailerooAddress   `json:"from"`
	To          []mailerooAddress `json:"to"`
	Subject     string            `json:"subject"`
	Text        string            `json:"text"`
	HTML        string            `json:"html"`
	Attachments []Attachment      `json:"attachments,omitempty"`
}

func (s *MailerooSender) Send(ctx context.Context, msg Message) error {
	payload := mailerooRequest{
		From:        mailerooAddress{Address: msg.FromAddress, DisplayName: msg.FromName},
		To:          []mailerooAddress{{Address: msg.To}},
		Subject:     msg.Subject,
		Text:        msg.Text,
		HTML:        msg.HTML,
		Attachments: msg.Attachments,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if !accepted(resp.StatusCode) {
		return &DeliveryError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	log.Infof("Email sent to %s! Status: %d", msg.To, resp.StatusCode)
	return nil
}
