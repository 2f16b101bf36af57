package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"acceptapi/internal/docusign"
	"acceptapi/internal/mailer"
	"acceptapi/internal/model"
	"acceptapi/internal/notify"
	"acceptapi/internal/pdf"
	"acceptapi/internal/repository"
	"acceptapi/internal/storage"
	"acceptapi/internal/token"
)

var (
	ErrIDRequired       = errors.New("id is required")
	ErrNotFound         = errors.New("document not found")
	ErrContentRequired  = errors.New("content is required")
	ErrRecipientMissing = errors.New("recipient email is required")
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrProviderDisabled = errors.New("provider is not configured")
	ErrMailDisabled     = errors.New("smtp is not configured")

	ErrInvalidToken    = errors.New("invalid or expired link")
	ErrExpired         = errors.New("acceptance link expired")
	ErrRevoked         = errors.New("document revoked")
	ErrAlreadyAccepted = errors.New("document already accepted")
)

// Acceptance URL shapes.
const (
	LinkModeConfirm = "confirm"
	LinkModeDirect  = "direct"
)

// IssueRequest describes a document to send out for acceptance.
type IssueRequest struct {
	Title          string `json:"title"`
	ClientName     string `json:"client_name"`
	Content        string `json:"content"`
	RecipientEmail string `json:"recipient_email"`
	RecipientPhone string `json:"recipient_phone"`
	Provider       string `json:"provider"`
	SendEmail      bool   `json:"send_email"`
}

// IssueResult is returned once to the operator; the token is not retrievable later.
type IssueResult struct {
	DocumentID    string    `json:"document_id"`
	Token         string    `json:"token"`
	AcceptanceURL string    `json:"acceptance_url"`
	ShortCode     string    `json:"short_code"`
	Provider      string    `json:"provider"`
	EnvelopeID    string    `json:"envelope_id,omitempty"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	EmailSent     bool      `json:"email_sent"`
}

// AcceptRequest carries a presented credential and who presented it.
type AcceptRequest struct {
	DocumentID      string
	Token           string
	ClientIP        string
	UserAgent       string
	ClientTimestamp string
	Timezone        string
	Method          string
}

// AcceptResult is the consumed document and the per-channel notification outcome.
// Replayed is set when a provider redelivers an acceptance already recorded.
type AcceptResult struct {
	Document   *model.AcceptanceDocument
	Deliveries []notify.Result
	Replayed   bool
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.AcceptanceDocument `json:"data"`
	Total int                        `json:"total"`
}

// AcceptanceService defines the issuance and acceptance use cases.
type AcceptanceService interface {
	// Issue mints a document id and token, renders and stores the PDF, optionally sends a
	// DocuSign envelope and an invitation e-mail, and persists the document.
	Issue(ctx context.Context, req IssueRequest) (*IssueResult, error)

	// Verify checks a credential without consuming it.
	Verify(ctx context.Context, documentID, tok string) (*model.AcceptanceDocument, error)

	// Accept consumes a credential and notifies every configured channel.
	Accept(ctx context.Context, req AcceptRequest) (*AcceptResult, error)

	// AcceptEnvelope consumes the document behind a completed DocuSign envelope.
	// Events that do not mean completion return a nil result and no error.
	AcceptEnvelope(ctx context.Context, ev docusign.Event) (*AcceptResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.AcceptanceDocument, error)

	// List returns documents using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// Revoke invalidates a pending document.
	Revoke(ctx context.Context, id string) error

	// Deliveries returns the notification rows recorded for a document.
	Deliveries(ctx context.Context, id string) ([]model.Delivery, error)

	// PresignPDF returns a short-lived download URL for the rendered PDF.
	PresignPDF(ctx context.Context, id string) (string, error)
}

// Renderer produces the agreement PDF.
type Renderer interface {
	Render(p pdf.Page) ([]byte, error)
}

// EnvelopeSender creates DocuSign envelopes.
type EnvelopeSender interface {
	CreateEnvelope(ctx context.Context, req docusign.EnvelopeRequest) (string, error)
}

// MailSender submits e-mail.
type MailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Dispatcher fans an acceptance out to the notification channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev notify.Event) []notify.Result
}

// Deps are the collaborators of the acceptance service. Envelopes and Mailer may be nil.
type Deps struct {
	Store      storage.Storage
	Documents  repository.DocumentRepository
	Deliveries repository.DeliveryRepository
	Issuer     *token.Issuer
	Renderer   Renderer
	Envelopes  EnvelopeSender
	Mailer     MailSender
	Notifier   Dispatcher
	Logger     *zap.Logger
	Metrics    *Metrics
}

// Options tune URL building and downloads.
type Options struct {
	PublicBaseURL string
	LinkMode      string
	PresignTTL    time.Duration
	Now           func() time.Time
}

type acceptanceService struct {
	store      storage.Storage
	docs       repository.DocumentRepository
	deliveries repository.DeliveryRepository
	issuer     *token.Issuer
	renderer   Renderer
	envelopes  EnvelopeSender
	mailer     MailSender
	notifier   Dispatcher
	logger     *zap.Logger
	metrics    *Metrics

	baseURL    string
	linkMode   string
	presignTTL time.Duration
	now        func() time.Time
}

// NewAcceptanceService constructs a new AcceptanceService.
func NewAcceptanceService(deps Deps, opts Options) AcceptanceService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = 15 * time.Minute
	}
	mode := opts.LinkMode
	if mode != LinkModeDirect {
		mode = LinkModeConfirm
	}
	return &acceptanceService{
		store:      deps.Store,
		docs:       deps.Documents,
		deliveries: deps.Deliveries,
		issuer:     deps.Issuer,
		renderer:   deps.Renderer,
		envelopes:  deps.Envelopes,
		mailer:     deps.Mailer,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		baseURL:    strings.TrimRight(opts.PublicBaseURL, "/"),
		linkMode:   mode,
		presignTTL: opts.PresignTTL,
		now:        opts.Now,
	}
}

// acceptanceURL builds the link embedded in PDFs and e-mails.
func (s *acceptanceService) acceptanceURL(documentID, tok string) string {
	if s.linkMode == LinkModeDirect {
		q := url.Values{"doc": {documentID}, "token": {tok}}
		return s.baseURL + "/accept?" + q.Encode()
	}
	return s.baseURL + "/a/" + url.PathEscape(documentID) + "?" + url.Values{"token": {tok}}.Encode()
}

func (s *acceptanceService) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrContentRequired
	}
	provider := req.Provider
	if provider == "" {
		provider = model.ProviderLink
	}
	switch provider {
	case model.ProviderLink, model.ProviderPDFForm:
	case model.ProviderDocuSign:
		if s.envelopes == nil {
			return nil, fmt.Errorf("%w: docusign", ErrProviderDisabled)
		}
		if req.RecipientEmail == "" {
			return nil, ErrRecipientMissing
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if req.SendEmail {
		if s.mailer == nil {
			return nil, ErrMailDisabled
		}
		if req.RecipientEmail == "" {
			return nil, ErrRecipientMissing
		}
	}

	id := token.NewDocumentID()
	cred := s.issuer.Issue(id)
	short := token.ShortCode(id)
	acceptURL := s.acceptanceURL(id, cred.Token)

	page := pdf.Page{
		Title:      req.Title,
		ClientName: req.ClientName,
		Content:    req.Content,
		AcceptURL:  acceptURL,
		ShortCode:  short,
		TTL:        s.issuer.TTL(),
		IssuedAt:   cred.IssuedAt,
	}
	switch provider {
	case model.ProviderPDFForm:
		page.Form = &pdf.Form{SubmitURL: s.baseURL + "/pdf-webhook", DocumentID: id, Token: cred.Token}
	case model.ProviderDocuSign:
		page.ApproveAnchor = docusign.ApproveAnchor
	}
	rendered, err := s.renderer.Render(page)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	objInfo, err := storage.PutPDF(ctx, s.store, id, rendered, map[string]string{"short-code": short})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	var envelopeID string
	if provider == model.ProviderDocuSign {
		envelopeID, err = s.envelopes.CreateEnvelope(ctx, docusign.EnvelopeRequest{
			DocumentName: documentName(req.Title),
			PDF:          rendered,
			SignerEmail:  req.RecipientEmail,
			SignerName:   req.ClientName,
		})
		if err != nil {
			return nil, s.rollback(ctx, objInfo.Key, fmt.Errorf("create envelope: %w", err))
		}
	}

	doc := &model.AcceptanceDocument{
		ID:             id,
		ShortCode:      short,
		ClientName:     req.ClientName,
		RecipientEmail: req.RecipientEmail,
		RecipientPhone: req.RecipientPhone,
		TokenHash:      token.Hash(cred.Token),
		Provider:       provider,
		EnvelopeID:     envelopeID,
		StoragePath:    objInfo.Key,
		Size:           int64(len(rendered)),
		IssuedAt:       cred.IssuedAt,
		ExpiresAt:      cred.ExpiresAt,
	}
	if _, err := s.docs.Create(ctx, doc); err != nil {
		return nil, s.rollback(ctx, objInfo.Key, fmt.Errorf("db save failed: %w", err))
	}

	res := &IssueResult{
		DocumentID:    id,
		Token:         cred.Token,
		AcceptanceURL: acceptURL,
		ShortCode:     short,
		Provider:      provider,
		EnvelopeID:    envelopeID,
		IssuedAt:      cred.IssuedAt,
		ExpiresAt:     cred.ExpiresAt,
	}
	if req.SendEmail {
		res.EmailSent = s.sendInvitation(ctx, req, res, rendered)
	}

	s.metrics.issue(provider)
	s.logger.Info("document_issued",
		zap.String("doc_id", id),
		zap.String("provider", provider),
		zap.String("envelope_id", envelopeID),
		zap.Time("expires_at", cred.ExpiresAt),
		zap.Bool("email_sent", res.EmailSent),
	)
	return res, nil
}

// rollback deletes the stored PDF after a later step failed.
func (s *acceptanceService) rollback(ctx context.Context, key string, cause error) error {
	if delErr := s.store.Delete(ctx, key); delErr != nil {
		return fmt.Errorf("%v; rollback delete failed: %v", cause, delErr)
	}
	return cause
}

// sendInvitation mails the recipient; the document stays issued when mail fails.
func (s *acceptanceService) sendInvitation(ctx context.Context, req IssueRequest, res *IssueResult, rendered []byte) bool {
	msg, err := mailer.InvitationMessage(req.RecipientEmail, mailer.Invitation{
		ClientName: req.ClientName,
		AcceptURL:  res.AcceptanceURL,
		ShortCode:  res.ShortCode,
		ExpiresIn:  expiresIn(s.issuer.TTL()),
		PDFName:    "agreement-" + res.ShortCode + ".pdf",
		PDF:        rendered,
	})
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.logger.Warn("invitation_email_failed", zap.String("doc_id", res.DocumentID), zap.Error(err))
		return false
	}
	return true
}

func (s *acceptanceService) Verify(ctx context.Context, documentID, tok string) (*model.AcceptanceDocument, error) {
	return s.check(ctx, documentID, tok, s.now())
}

// check resolves a credential to its pending document. A wrong token is reported
// as ErrInvalidToken before any state of the document is revealed.
func (s *acceptanceService) check(ctx context.Context, documentID, tok string, now time.Time) (*model.AcceptanceDocument, error) {
	if documentID == "" || tok == "" {
		return nil, ErrInvalidToken
	}
	doc, err := s.docs.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	verr := token.Verify(doc.TokenHash, tok, doc.ExpiresAt, now)
	if errors.Is(verr, token.ErrMismatch) {
		return nil, ErrInvalidToken
	}
	if err := stateError(doc, now); err != nil {
		return doc, err
	}
	if verr != nil {
		return doc, ErrExpired
	}
	return doc, nil
}

// stateError maps a non-pending document to its error.
func stateError(doc *model.AcceptanceDocument, now time.Time) error {
	switch doc.Status(now) {
	case model.StatusRevoked:
		return ErrRevoked
	case model.StatusAccepted:
		return ErrAlreadyAccepted
	case model.StatusExpired:
		return ErrExpired
	}
	return nil
}

func (s *acceptanceService) Accept(ctx context.Context, req AcceptRequest) (*AcceptResult, error) {
	method := req.Method
	if method == "" {
		method = model.MethodLink
	}
	now := s.now().UTC()

	if _, err := s.check(ctx, req.DocumentID, req.Token, now); err != nil {
		s.metrics.attempt(method, outcome(err))
		s.logger.Info("acceptance_rejected",
			zap.String("doc_id", req.DocumentID),
			zap.String("method", method),
			zap.String("client_ip", req.ClientIP),
			zap.Error(err),
		)
		return nil, err
	}

	updated, err := s.consume(ctx, req.DocumentID, model.Acceptance{
		AcceptedAt: now,
		ClientIP:   req.ClientIP,
		UserAgent:  req.UserAgent,
		Timezone:   req.Timezone,
		Method:     method,
	})
	if err != nil {
		s.metrics.attempt(method, outcome(err))
		return nil, err
	}
	return s.finish(ctx, updated, req.ClientTimestamp), nil
}

func (s *acceptanceService) AcceptEnvelope(ctx context.Context, ev docusign.Event) (*AcceptResult, error) {
	if !ev.Completed() {
		return nil, nil
	}
	doc, err := s.docs.FindByEnvelopeID(ctx, ev.EnvelopeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if doc.AcceptedAt != nil {
		s.metrics.attempt(model.MethodDocuSign, "replay")
		return &AcceptResult{Document: doc, Replayed: true}, nil
	}

	now := s.now().UTC()
	updated, err := s.consume(ctx, doc.ID, model.Acceptance{
		AcceptedAt: now,
		UserAgent:  "docusign-connect",
		Method:     model.MethodDocuSign,
	})
	if errors.Is(err, ErrAlreadyAccepted) {
		// a concurrent redelivery won the update
		s.metrics.attempt(model.MethodDocuSign, "replay")
		current, ferr := s.docs.FindByID(ctx, doc.ID)
		if ferr != nil {
			return nil, ferr
		}
		return &AcceptResult{Document: current, Replayed: true}, nil
	}
	if err != nil {
		s.metrics.attempt(model.MethodDocuSign, outcome(err))
		return nil, err
	}
	return s.finish(ctx, updated, ""), nil
}

// consume performs the single conditional update and, when it matches nothing,
// re-reads the row to say why.
func (s *acceptanceService) consume(ctx context.Context, id string, a model.Acceptance) (*model.AcceptanceDocument, error) {
	updated, err := s.docs.MarkAccepted(ctx, id, a)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, repository.ErrNotUpdated) {
		return nil, fmt.Errorf("mark accepted: %w", err)
	}
	current, ferr := s.docs.FindByID(ctx, id)
	if ferr != nil {
		return nil, ferr
	}
	if serr := stateError(current, a.AcceptedAt); serr != nil {
		return nil, serr
	}
	return nil, ErrAlreadyAccepted
}

// finish notifies every channel and records the outcome. Delivery runs detached
// from the caller's cancellation so a dropped connection does not cut it short.
func (s *acceptanceService) finish(ctx context.Context, doc *model.AcceptanceDocument, clientTimestamp string) *AcceptResult {
	s.metrics.attempt(doc.AcceptMethod, "accepted")
	s.logger.Info("document_accepted",
		zap.String("doc_id", doc.ID),
		zap.String("method", doc.AcceptMethod),
		zap.String("client_ip", doc.ClientIP),
		zap.String("timezone", doc.Timezone),
	)

	res := &AcceptResult{Document: doc}
	if s.notifier == nil {
		return res
	}
	dctx := context.WithoutCancel(ctx)
	res.Deliveries = s.notifier.Dispatch(dctx, notify.EventFromDocument(doc, clientTimestamp))

	if s.deliveries != nil && len(res.Deliveries) > 0 {
		at := s.now().UTC()
		rows := make([]model.Delivery, len(res.Deliveries))
		for i, r := range res.Deliveries {
			rows[i] = r.Delivery(doc.ID, at)
		}
		if err := s.deliveries.Record(dctx, rows); err != nil {
			s.logger.Error("delivery_record_failed", zap.String("doc_id", doc.ID), zap.Error(err))
		}
	}
	return res
}

// Get returns a document by ID.
func (s *acceptanceService) Get(ctx context.Context, id string) (*model.AcceptanceDocument, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// List returns paginated documents without exposing repository types.
func (s *acceptanceService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.docs.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// Revoke is idempotent for revoked documents; accepted ones cannot be revoked.
func (s *acceptanceService) Revoke(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.RevokedAt != nil {
		return nil
	}
	if doc.AcceptedAt != nil {
		return ErrAlreadyAccepted
	}
	err = s.docs.Revoke(ctx, id, s.now().UTC())
	if errors.Is(err, repository.ErrNotUpdated) {
		// lost a race with an acceptance or another revoke
		current, ferr := s.docs.FindByID(ctx, id)
		if ferr != nil {
			return ferr
		}
		if current.AcceptedAt != nil {
			return ErrAlreadyAccepted
		}
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Info("document_revoked", zap.String("doc_id", id))
	return nil
}

func (s *acceptanceService) Deliveries(ctx context.Context, id string) ([]model.Delivery, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.deliveries.ListByDocument(ctx, id)
}

func (s *acceptanceService) PresignPDF(ctx context.Context, id string) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	u, err := s.store.PresignGet(ctx, doc.StoragePath, s.presignTTL, "agreement-"+doc.ShortCode+".pdf")
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	return u, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrInvalidToken):
		return "invalid"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrRevoked):
		return "revoked"
	case errors.Is(err, ErrAlreadyAccepted):
		return "replay"
	}
	return "error"
}

func documentName(title string) string {
	if title == "" {
		return "Agreement"
	}
	return title
}

func expiresIn(ttl time.Duration) string {
	day := 24 * time.Hour
	if ttl%day == 0 {
		if ttl == day {
			return "1 day"
		}
		return fmt.Sprintf("%d days", ttl/day)
	}
	return ttl.String()
}
