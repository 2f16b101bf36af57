// Package notify fans an acceptance out to the configured channels.
package notify

import (
	"context"
	"errors"
	"net/http"
	"time"

	"acceptapi/internal/model"
)

// Notifier delivers one acceptance event to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}

// Event is the acceptance record sent to every channel.
type Event struct {
	Status          string    `json:"status"`
	DocumentID      string    `json:"doc_id"`
	ShortCode       string    `json:"short_code"`
	ClientName      string    `json:"client_name,omitempty"`
	RecipientEmail  string    `json:"recipient_email,omitempty"`
	EnvelopeID      string    `json:"envelope_id,omitempty"`
	Method          string    `json:"method"`
	AcceptedAt      time.Time `json:"accepted_at"`
	ClientTimestamp string    `json:"timestamp,omitempty"`
	Timezone        string    `json:"timezone,omitempty"`
	ClientIP        string    `json:"client_ip,omitempty"`
	UserAgent       string    `json:"user_agent,omitempty"`
}

// EventFromDocument builds the event for an accepted document.
func EventFromDocument(doc *model.AcceptanceDocument, clientTimestamp string) Event {
	ev := Event{
		Status:          model.StatusAccepted,
		DocumentID:      doc.ID,
		ShortCode:       doc.ShortCode,
		ClientName:      doc.ClientName,
		RecipientEmail:  doc.RecipientEmail,
		EnvelopeID:      doc.EnvelopeID,
		Method:          doc.AcceptMethod,
		ClientTimestamp: clientTimestamp,
		Timezone:        doc.Timezone,
		ClientIP:        doc.ClientIP,
		UserAgent:       doc.UserAgent,
	}
	if doc.AcceptedAt != nil {
		ev.AcceptedAt = *doc.AcceptedAt
	}
	return ev
}

// Result is the outcome of one channel for one event.
type Result struct {
	Channel   string `json:"channel"`
	Delivered bool   `json:"delivered"`
	Attempts  int    `json:"attempts"`
	Err       error  `json:"-"`
}

// Error returns the failure text, empty when delivered.
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Delivery converts r into the row recorded for documentID.
func (r Result) Delivery(documentID string, at time.Time) model.Delivery {
	d := model.Delivery{
		DocumentID:  documentID,
		Channel:     r.Channel,
		Status:      model.DeliveryDelivered,
		Attempts:    r.Attempts,
		DeliveredAt: at,
	}
	if !r.Delivered {
		d.Status = model.DeliveryFailed
		d.Error = r.Error()
	}
	return d
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying (bad credentials, rejected payload).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

func formatTime(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(time.RFC3339)
}

// withContext runs a client call that cannot take a context and returns as soon as ctx
// ends. The call itself keeps going until the client's own request timeout stops it.
func withContext(ctx context.Context, call func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- call() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// boundedClient copies hc with a request timeout, for SDKs that only honour
// http.Client.Timeout.
func boundedClient(hc *http.Client, timeout time.Duration) *http.Client {
	c := &http.Client{}
	if hc != nil {
		*c = *hc
	}
	if timeout > 0 {
		c.Timeout = timeout
	}
	return c
}
