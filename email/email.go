package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"strings"
)

// Attachment defaults for complaint photos.
const (
	AttachmentFileName = "complaint.jpg"
	DefaultImageType   = "image/jpeg"
)

// Sender delivers a single message. Implementations return *DeliveryError when the
// provider answers with a non-accepted status.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a provider-neutral outgoing email.
type Message struct {
	FromAddress string
	FromName    string
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Attachment is a base64-encoded file.
type Attachment struct {
	FileName string `json:"file_name"`
	Content  string `json:"content"`
	Type     string `json:"type"`
}

// NewAttachment encodes a complaint photo. An empty mimeType becomes image/jpeg.
func NewAttachment(data []byte, mimeType string) Attachment {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = DefaultImageType
	}
	return Attachment{
		FileName: AttachmentFileName,
		Content:  base64.StdEncoding.EncodeToString(data),
		Type:     mimeType,
	}
}

// BuildHTML escapes the plain-text body and turns newlines into <br>.
func BuildHTML(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}

// DeliveryError is a rejected send. Body is the provider's response.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("email delivery failed with status %d: %s", e.StatusCode, e.Body)
}

func accepted(status int) bool {
	switch status {
	case 200, 201, 202:
		return true
	}
	return false
}
