package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"acceptapi/internal/mailer"
)

// MailSender is satisfied by *mailer.Mailer.
type MailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Email mails operators when a document is accepted.
type Email struct {
	sender MailSender
	to     []string
	loc    *time.Location
}

func NewEmail(sender MailSender, to []string, loc *time.Location) *Email {
	return &Email{sender: sender, to: to, loc: loc}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Notify(ctx context.Context, ev Event) error {
	var b strings.Builder
	b.WriteString("Document Acceptance Notification:\n")
	fmt.Fprintf(&b, "- Document ID: %s\n", ev.DocumentID)
	if ev.ClientName != "" {
		fmt.Fprintf(&b, "- Client: %s\n", ev.ClientName)
	}
	fmt.Fprintf(&b, "- Method: %s\n", ev.Method)
	if ev.ClientIP != "" {
		fmt.Fprintf(&b, "- Client IP: %s\n", ev.ClientIP)
	}
	fmt.Fprintf(&b, "- Timestamp: %s\n", formatTime(ev.AcceptedAt, e.loc))
	if ev.ClientTimestamp != "" {
		fmt.Fprintf(&b, "- Client time: %s %s\n", ev.ClientTimestamp, ev.Timezone)
	}

	return e.sender.Send(ctx, mailer.Message{
		To:      e.to,
		Subject: fmt.Sprintf("Document %s Accepted", ev.DocumentID),
		Text:    b.String(),
	})
}
