package docusign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

// SignatureHeader carries the first Connect HMAC signature.
const SignatureHeader = "X-DocuSign-Signature-1"

var (
	ErrBadSignature = errors.New("docusign: signature mismatch")
	ErrNoHMACKey    = errors.New("docusign: connect hmac key not configured")
	ErrBadEvent     = errors.New("docusign: malformed event")
)

// Event is the part of a Connect notification the acceptance flow needs.
type Event struct {
	Name           string
	EnvelopeID     string
	RecipientID    string
	RecipientEmail string
}

// Completed reports whether the event means the signer pressed the approve button.
func (e Event) Completed() bool {
	return e.Name == EventRecipientCompleted || e.Name == EventEnvelopeCompleted
}

type connectPayload struct {
	Event string `json:"event"`

	// flat payload
	EnvelopeIDFlat string `json:"envelope_id"`
	RecipientEmail string `json:"recipient_email"`

	Data *struct {
		EnvelopeID      string `json:"envelopeId"`
		RecipientID     string `json:"recipientId"`
		EnvelopeSummary *struct {
			Recipients *struct {
				Signers []struct {
					Email       string `json:"email"`
					RecipientID string `json:"recipientId"`
				} `json:"signers"`
			} `json:"recipients"`
		} `json:"envelopeSummary"`
	} `json:"data"`
}

// ParseEvent accepts the flat {event, envelope_id, recipient_email} body and the
// Connect JSON (SIM) body.
func ParseEvent(body []byte) (Event, error) {
	var p connectPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, errors.Join(ErrBadEvent, err)
	}
	ev := Event{
		Name:           strings.TrimSpace(p.Event),
		EnvelopeID:     p.EnvelopeIDFlat,
		RecipientEmail: p.RecipientEmail,
	}
	if d := p.Data; d != nil {
		if ev.EnvelopeID == "" {
			ev.EnvelopeID = d.EnvelopeID
		}
		ev.RecipientID = d.RecipientID
		if d.EnvelopeSummary != nil && d.EnvelopeSummary.Recipients != nil && ev.RecipientEmail == "" {
			for _, s := range d.EnvelopeSummary.Recipients.Signers {
				if ev.RecipientID == "" || s.RecipientID == ev.RecipientID {
					ev.RecipientEmail = s.Email
					break
				}
			}
		}
	}
	if ev.Name == "" || ev.EnvelopeID == "" {
		return Event{}, ErrBadEvent
	}
	return ev, nil
}

// Sign returns the base64 HMAC-SHA256 of body, as Connect computes it.
func Sign(body []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the Connect HMAC header. Without a key no event is trusted.
func VerifySignature(body []byte, key, header string) error {
	if key == "" {
		return ErrNoHMACKey
	}
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header))
	if err != nil || len(got) == 0 {
		return ErrBadSignature
	}
	want, _ := base64.StdEncoding.DecodeString(Sign(body, key))
	if !hmac.Equal(got, want) {
		return ErrBadSignature
	}
	return nil
}
