package model

import "time"

// Provider names how a document is delivered to its recipient.
const (
	ProviderLink     = "link"
	ProviderDocuSign = "docusign"
	// ProviderPDFForm issues a fillable PDF that submits back to /pdf-webhook.
	ProviderPDFForm = "pdf_form"
)

// Acceptance methods recorded with an accepted document.
const (
	MethodLink     = "link"
	MethodPage     = "page"
	MethodPDFForm  = "pdf_form"
	MethodDocuSign = "docusign"
)

// Document statuses derived from the acceptance fields.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusExpired  = "expired"
	StatusRevoked  = "revoked"
)

// AcceptanceDocument is an issued document together with the credential that authorizes its acceptance.
// Only the SHA-256 of the token is kept; the token itself is handed out once at issuance.
// This is a pure domain model with no database-specific dependencies or tags.
type AcceptanceDocument struct {
	ID             string     `json:"id"`
	ShortCode      string     `json:"short_code"`
	ClientName     string     `json:"client_name"`
	RecipientEmail string     `json:"recipient_email,omitempty"`
	RecipientPhone string     `json:"recipient_phone,omitempty"`
	TokenHash      string     `json:"-"`
	Provider       string     `json:"provider"`
	EnvelopeID     string     `json:"envelope_id,omitempty"`
	StoragePath    string     `json:"storage_path"`
	Size           int64      `json:"size"`
	IssuedAt       time.Time  `json:"issued_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	ClientIP       string     `json:"client_ip,omitempty"`
	UserAgent      string     `json:"user_agent,omitempty"`
	Timezone       string     `json:"timezone,omitempty"`
	AcceptMethod   string     `json:"accept_method,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
}

// Status reports the lifecycle state of the document at now.
func (d *AcceptanceDocument) Status(now time.Time) string {
	switch {
	case d.RevokedAt != nil:
		return StatusRevoked
	case d.AcceptedAt != nil:
		return StatusAccepted
	case !now.Before(d.ExpiresAt):
		return StatusExpired
	default:
		return StatusPending
	}
}

// Acceptance carries the caller metadata captured when a token is consumed.
type Acceptance struct {
	AcceptedAt time.Time
	ClientIP   string
	UserAgent  string
	Timezone   string
	Method     string
}
