package mail

import "context"

// Attachment is a file included with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a single outbound email.
type Message struct {
	From        string
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers messages. Delivery is best-effort; callers run inside the
// background worker and rely on its retry loop rather than their own.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
