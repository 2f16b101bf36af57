package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	twapi "github.com/twilio/twilio-go/rest/api/v2010"

	"acceptapi/internal/config"
)

// MessageCreator is the Twilio Messages resource.
type MessageCreator interface {
	CreateMessage(params *twapi.CreateMessageParams) (*twapi.ApiV2010Message, error)
}

// SMS texts an operator phone through Twilio.
type SMS struct {
	api  MessageCreator
	from string
	to   string
	loc  *time.Location
}

func NewSMS(api MessageCreator, from, to string, loc *time.Location) *SMS {
	return &SMS{api: api, from: from, to: to, loc: loc}
}

// NewTwilioSMS builds the channel on a Twilio REST client sending through hc. The SDK
// takes no context, so timeout is set as the client's request timeout.
func NewTwilioSMS(cfg config.SMSChannel, hc *http.Client, timeout time.Duration, loc *time.Location) *SMS {
	httpClient := boundedClient(hc, timeout)
	// Twilio reports errors on the redirect response itself
	httpClient.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	tc := &twclient.Client{
		Credentials: twclient.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  httpClient,
	}
	tc.SetAccountSid(cfg.AccountSID)
	rc := twilio.NewRestClientWithParams(twilio.ClientParams{Client: tc})
	return NewSMS(rc.Api, cfg.From, cfg.To, loc)
}

func (s *SMS) Name() string { return "sms" }

// Notify sends one message. The Twilio client has no context support: Notify returns
// when ctx ends, but the request runs on until the client timeout.
func (s *SMS) Notify(ctx context.Context, ev Event) error {
	params := &twapi.CreateMessageParams{}
	params.SetTo(s.to)
	params.SetFrom(s.from)
	params.SetBody(fmt.Sprintf("Document %s accepted at %s", ev.DocumentID, formatTime(ev.AcceptedAt, s.loc)))

	err := withContext(ctx, func() error {
		_, err := s.api.CreateMessage(params)
		return err
	})
	if err == nil {
		return nil
	}
	var rest *twclient.TwilioRestError
	if errors.As(err, &rest) && rest.Status >= 400 && rest.Status < 500 && rest.Status != http.StatusTooManyRequests {
		return Permanent(err)
	}
	return err
}
