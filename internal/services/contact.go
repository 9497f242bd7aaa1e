package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"liondance/internal/domain"
	"liondance/internal/metrics"
)

const (
	maxContactNameLen    = 100
	maxContactSubjectLen = 150
	maxContactMessageLen = 1000
)

type contactService struct {
	mailer         domain.Mailer
	inbox          string
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewContactService returns a ContactService that delivers submissions to inbox through mailer.
func NewContactService(mailer domain.Mailer, inbox string, logger *slog.Logger, timeout time.Duration) domain.ContactService {
	return &contactService{
		mailer:         mailer,
		inbox:          inbox,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *contactService) SendContactMessage(ctx context.Context, msg *domain.ContactMessage) error {
	if msg == nil {
		return fmt.Errorf("contact message is nil")
	}
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Message = strings.TrimSpace(msg.Message)

	v := domain.NewValidationError()
	checkText(v, "name", msg.Name, true, maxContactNameLen)
	checkEmail(v, "email", msg.Email)
	if strings.ContainsAny(msg.Email, "<>") {
		v.Add("email", msgAngleBrackets)
	}
	checkText(v, "subject", msg.Subject, true, maxContactSubjectLen)
	checkText(v, "message", msg.Message, true, maxContactMessageLen)
	if err := v.OrNil(); err != nil {
		metrics.RecordContactMessage("invalid")
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	mail := &domain.MailMessage{
		To:      s.inbox,
		ReplyTo: msg.Email,
		Subject: "[Contact] " + msg.Subject,
		Text:    fmt.Sprintf("From: %s <%s>\n\n%s\n", msg.Name, msg.Email, msg.Message),
		HTML: fmt.Sprintf("<p><strong>From:</strong> %s &lt;%s&gt;</p><p>%s</p>",
			html.EscapeString(msg.Name),
			html.EscapeString(msg.Email),
			strings.ReplaceAll(html.EscapeString(msg.Message), "\n", "<br>")),
	}
	if err := s.mailer.Send(ctx, mail); err != nil {
		metrics.RecordContactMessage("failed")
		return domain.NewDependencyError("send contact email", err)
	}
	metrics.RecordContactMessage("sent")
	s.logger.InfoContext(ctx, "contact message delivered", "reply_to", msg.Email)
	return nil
}
