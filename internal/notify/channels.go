package notify

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"acceptapi/internal/config"
)

// Deps are the shared clients channels are built on.
type Deps struct {
	Mailer     MailSender
	HTTPClient *http.Client
	Location   *time.Location
	// Timeout bounds SDK clients that take no context.
	Timeout time.Duration
}

// FromConfig builds the dispatch list from the enabled channels, in a fixed
// order: email, slack, sms, pusher, webhook. An enabled channel with missing
// settings is an error.
func FromConfig(cfg config.NotifyConfig, deps Deps) ([]Notifier, error) {
	var (
		out  []Notifier
		errs []error
	)
	if cfg.Email.Enabled {
		to := splitList(cfg.Email.To)
		switch {
		case deps.Mailer == nil:
			errs = append(errs, errors.New("email channel: smtp is not configured"))
		case len(to) == 0:
			errs = append(errs, errors.New("email channel: NOTIFY_EMAIL_TO is empty"))
		default:
			out = append(out, NewEmail(deps.Mailer, to, deps.Location))
		}
	}
	if cfg.Slack.Enabled {
		if cfg.Slack.WebhookURL == "" {
			errs = append(errs, errors.New("slack channel: webhook url is empty"))
		} else {
			out = append(out, NewSlack(cfg.Slack.WebhookURL, deps.HTTPClient, deps.Location))
		}
	}
	if cfg.SMS.Enabled {
		if cfg.SMS.AccountSID == "" || cfg.SMS.AuthToken == "" || cfg.SMS.From == "" || cfg.SMS.To == "" {
			errs = append(errs, errors.New("sms channel: account sid, auth token, from and to are required"))
		} else {
			out = append(out, NewTwilioSMS(cfg.SMS, deps.HTTPClient, deps.Timeout, deps.Location))
		}
	}
	if cfg.Pusher.Enabled {
		if cfg.Pusher.AppID == "" || cfg.Pusher.Key == "" || cfg.Pusher.Secret == "" {
			errs = append(errs, errors.New("pusher channel: app id, key and secret are required"))
		} else {
			out = append(out, NewPusherChannels(cfg.Pusher, deps.HTTPClient, deps.Timeout))
		}
	}
	if cfg.Webhook.Enabled {
		if cfg.Webhook.URL == "" {
			errs = append(errs, errors.New("webhook channel: url is empty"))
		} else {
			out = append(out, NewWebhook(cfg.Webhook.URL, deps.HTTPClient))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("notify config: %w", errors.Join(errs...))
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
