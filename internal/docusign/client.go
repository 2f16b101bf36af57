// Package docusign sends agreements as DocuSign envelopes with an approve
// button and interprets the Connect notifications that come back.
package docusign

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"acceptapi/internal/config"
)

var (
	ErrNotConfigured = errors.New("docusign: account not configured")
	ErrNoEnvelopeID  = errors.New("docusign: response carried no envelope id")
)

// Events the envelope subscribes to.
const (
	EventRecipientCompleted = "recipient-completed"
	EventEnvelopeCompleted  = "envelope-completed"
)

// EnvelopeRequest describes one agreement sent to one signer.
type EnvelopeRequest struct {
	Subject      string
	DocumentName string
	PDF          []byte
	SignerEmail  string
	SignerName   string
}

// APIError is a non-2xx answer from the REST API.
type APIError struct {
	StatusCode int
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("docusign: %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("docusign: unexpected status %d", e.StatusCode)
}

// Client talks to the eSignature REST API v2.1.
type Client struct {
	baseURL     string
	accountID   string
	accessToken string
	hmacKey     string
	callbackURL string
	http        *http.Client
}

// NewClient builds a client; callbackURL is where Connect posts envelope events.
// A nil hc gets a traced client with a 30s timeout.
func NewClient(cfg config.DocuSignConfig, callbackURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accountID:   cfg.AccountID,
		accessToken: cfg.AccessToken,
		hmacKey:     cfg.ConnectHMACKey,
		callbackURL: callbackURL,
		http:        hc,
	}
}

// Enabled reports whether envelopes can be created. Completions arrive only through
// signed Connect events, so a client without an HMAC key stays disabled.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != "" && c.accountID != "" && c.accessToken != "" && c.hmacKey != ""
}

type envelopeDefinition struct {
	EmailSubject      string            `json:"emailSubject"`
	Documents         []document        `json:"documents"`
	Recipients        recipients        `json:"recipients"`
	Status            string            `json:"status"`
	EventNotification eventNotification `json:"eventNotification"`
}

type document struct {
	DocumentBase64 string `json:"documentBase64"`
	Name           string `json:"name"`
	FileExtension  string `json:"fileExtension"`
	DocumentID     string `json:"documentId"`
}

type recipients struct {
	Signers []signer `json:"signers"`
}

type signer struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RecipientID  string `json:"recipientId"`
	RoutingOrder string `json:"routingOrder"`
	Tabs         tabs   `json:"tabs"`
}

type tabs struct {
	ApproveTabs []approveTab `json:"approveTabs"`
}

// ApproveAnchor is the text the rendered agreement carries where the approve tab goes.
// DocuSign places the tab on whichever page the text lands, so long content is fine.
const ApproveAnchor = `\acceptapi-approve\`

type approveTab struct {
	AnchorString             string `json:"anchorString"`
	AnchorUnits              string `json:"anchorUnits"`
	AnchorXOffset            string `json:"anchorXOffset"`
	AnchorYOffset            string `json:"anchorYOffset"`
	AnchorIgnoreIfNotPresent string `json:"anchorIgnoreIfNotPresent"`
	ButtonText               string `json:"buttonText"`
}

type eventNotification struct {
	URL                   string    `json:"url"`
	RequireAcknowledgment string    `json:"requireAcknowledgment"`
	IncludeHMAC           string    `json:"includeHMAC,omitempty"`
	EventData             eventData `json:"eventData"`
	Events                []string  `json:"events"`
}

type eventData struct {
	Version string   `json:"version"`
	Format  string   `json:"format"`
	Include []string `json:"includeData"`
}

type envelopeSummary struct {
	EnvelopeID string `json:"envelopeId"`
	Status     string `json:"status"`
}

func (c *Client) definition(req EnvelopeRequest) envelopeDefinition {
	name := req.DocumentName
	if name == "" {
		name = "Agreement"
	}
	subject := req.Subject
	if subject == "" {
		subject = "Please review and accept"
	}
	signerName := req.SignerName
	if signerName == "" {
		signerName = "Client"
	}
	return envelopeDefinition{
		EmailSubject: subject,
		Documents: []document{{
			DocumentBase64: base64.StdEncoding.EncodeToString(req.PDF),
			Name:           name,
			FileExtension:  "pdf",
			DocumentID:     "1",
		}},
		Recipients: recipients{Signers: []signer{{
			Email:        req.SignerEmail,
			Name:         signerName,
			RecipientID:  "1",
			RoutingOrder: "1",
			Tabs: tabs{ApproveTabs: []approveTab{{
				AnchorString:             ApproveAnchor,
				AnchorUnits:              "pixels",
				AnchorXOffset:            "0",
				AnchorYOffset:            "-10",
				AnchorIgnoreIfNotPresent: "false",
				ButtonText:               "I Accept",
			}}},
		}}},
		Status: "sent",
		EventNotification: eventNotification{
			URL:                   c.callbackURL,
			RequireAcknowledgment: "true",
			IncludeHMAC:           "true",
			EventData:             eventData{Version: "restv2.1", Format: "json", Include: []string{"recipients"}},
			Events:                []string{EventRecipientCompleted, EventEnvelopeCompleted},
		},
	}
}

// CreateEnvelope sends the PDF to the signer and returns the envelope id.
func (c *Client) CreateEnvelope(ctx context.Context, req EnvelopeRequest) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}
	if req.SignerEmail == "" {
		return "", errors.New("docusign: signer email is required")
	}
	body, err := json.Marshal(c.definition(req))
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}

	url := fmt.Sprintf("%s/v2.1/accounts/%s/envelopes", c.baseURL, c.accountID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("create envelope: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read envelope response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return "", apiErr
	}

	var summary envelopeSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return "", fmt.Errorf("decode envelope response: %w", err)
	}
	if summary.EnvelopeID == "" {
		return "", ErrNoEnvelopeID
	}
	return summary.EnvelopeID, nil
}
