package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, msg *MailMessage) error
}

// MailMessage is a single outbound email.
type MailMessage struct {
	To      string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// ContactMessage is a submission of the public contact form.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ContactService defines the contract for delivering contact form submissions.
type ContactService interface {
	SendContactMessage(ctx context.Context, msg *ContactMessage) error
}
