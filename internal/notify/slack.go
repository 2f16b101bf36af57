package notify

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

// Slack posts to an incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
	loc        *time.Location
}

func NewSlack(webhookURL string, client *http.Client, loc *time.Location) *Slack {
	if client == nil {
		client = http.DefaultClient
	}
	return &Slack{webhookURL: webhookURL, client: client, loc: loc}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Notify(ctx context.Context, ev Event) error {
	msg := &slack.WebhookMessage{
		Text: "Document accepted: " + ev.ShortCode,
		Attachments: []slack.Attachment{{
			Color:    "good",
			Fallback: "Document " + ev.DocumentID + " accepted",
			Fields: []slack.AttachmentField{
				{Title: "Status", Value: "Client Accepted", Short: true},
				{Title: "Timestamp", Value: formatTime(ev.AcceptedAt, s.loc), Short: true},
				{Title: "Client IP", Value: ev.ClientIP, Short: true},
				{Title: "Method", Value: ev.Method, Short: true},
			},
		}},
	}
	if ev.ClientName != "" {
		msg.Attachments[0].Title = ev.ClientName
	}
	err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, msg)
	if err != nil && isClientError(err) {
		return Permanent(err)
	}
	return err
}

// isClientError spots 4xx answers from the webhook endpoint, which retrying won't fix.
func isClientError(err error) bool {
	var status slack.StatusCodeError
	if errors.As(err, &status) {
		return status.Code >= 400 && status.Code < 500 && status.Code != http.StatusTooManyRequests
	}
	return false
}
