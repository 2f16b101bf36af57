package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"acceptapi/internal/docusign"
	"acceptapi/internal/model"
	"acceptapi/internal/notify"
	"acceptapi/internal/pdf"
	"acceptapi/internal/repository"
	repoMocks "acceptapi/internal/repository/mocks"
	"acceptapi/internal/storage"
	storeMocks "acceptapi/internal/storage/mocks"
	"acceptapi/internal/token"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newIssuer(t *testing.T, now func() time.Time) *token.Issuer {
	t.Helper()
	iss, err := token.NewIssuer("test-secret", token.DefaultTTL, now)
	require.NoError(t, err)
	return iss
}

func fixedNow() time.Time { return t0 }

func pendingDoc(id, tok string) *model.AcceptanceDocument {
	return &model.AcceptanceDocument{
		ID:          id,
		ShortCode:   token.ShortCode(id),
		TokenHash:   token.Hash(tok),
		Provider:    model.ProviderLink,
		StoragePath: storage.KeyForDocument(id),
		IssuedAt:    t0,
		ExpiresAt:   t0.Add(token.DefaultTTL),
	}
}

func TestAcceptanceService_Issue(t *testing.T) {
	ctx := context.Background()
	pdfOpts := mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
		return opt.ContentType == storage.PDFContentType && opt.Size > 0
	})
	pdfKey := mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "documents/") && strings.HasSuffix(key, ".pdf")
	})

	tests := []struct {
		name       string
		req        IssueRequest
		envelopes  *fakeEnvelopes
		mailer     *fakeMailer
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
		wantErrMsg string
		check      func(t *testing.T, res *IssueResult, mRepo *repoMocks.MockDocumentRepository)
	}{
		{
			name: "happy path",
			req:  IssueRequest{ClientName: "John Smith", Content: "Terms"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, pdfKey, mock.Anything, pdfOpts).
					Return(storage.ObjectInfo{Key: "documents/x.pdf"}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(&model.AcceptanceDocument{}, nil)
			},
			check: func(t *testing.T, res *IssueResult, mRepo *repoMocks.MockDocumentRepository) {
				doc := mRepo.Calls[0].Arguments.Get(1).(*model.AcceptanceDocument)
				assert.Equal(t, res.DocumentID, doc.ID)
				assert.Equal(t, token.Hash(res.Token), doc.TokenHash)
				assert.NotEqual(t, res.Token, doc.TokenHash)
				assert.Equal(t, model.ProviderLink, doc.Provider)
				assert.Equal(t, "documents/x.pdf", doc.StoragePath)
				assert.Equal(t, t0, res.IssuedAt)
				assert.Equal(t, t0.Add(7*24*time.Hour), res.ExpiresAt)
				assert.Equal(t, res.DocumentID[:8], res.ShortCode)
				assert.Equal(t, "https://accept.example.com/a/"+res.DocumentID+"?token="+res.Token, res.AcceptanceURL)
				assert.False(t, res.EmailSent)
			},
		},
		{
			name:       "validation - empty content",
			req:        IssueRequest{ClientName: "x"},
			setupMocks: func(*storeMocks.MockStorage, *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrContentRequired,
		},
		{
			name:       "validation - unknown provider",
			req:        IssueRequest{Content: "x", Provider: "fax"},
			setupMocks: func(*storeMocks.MockStorage, *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrUnknownProvider,
		},
		{
			name:       "validation - docusign not configured",
			req:        IssueRequest{Content: "x", Provider: model.ProviderDocuSign, RecipientEmail: "c@example.com"},
			setupMocks: func(*storeMocks.MockStorage, *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrProviderDisabled,
		},
		{
			name:       "validation - docusign needs recipient",
			req:        IssueRequest{Content: "x", Provider: model.ProviderDocuSign},
			envelopes:  &fakeEnvelopes{id: "env-1"},
			setupMocks: func(*storeMocks.MockStorage, *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrRecipientMissing,
		},
		{
			name:       "validation - email without smtp",
			req:        IssueRequest{Content: "x", RecipientEmail: "c@example.com", SendEmail: true},
			setupMocks: func(*storeMocks.MockStorage, *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrMailDisabled,
		},
		{
			name: "storage error",
			req:  IssueRequest{Content: "x"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name: "repository error with successful rollback",
			req:  IssueRequest{Content: "x"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "documents/k.pdf"}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, "documents/k.pdf").Return(nil)
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name: "repository error with failed rollback",
			req:  IssueRequest{Content: "x"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "documents/k.pdf"}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, "documents/k.pdf").Return(errors.New("delete fail"))
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
		{
			name:      "docusign envelope",
			req:       IssueRequest{Content: "x", ClientName: "John", Provider: model.ProviderDocuSign, RecipientEmail: "c@example.com"},
			envelopes: &fakeEnvelopes{id: "env-1"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, pdfKey, mock.Anything, pdfOpts).
					Return(storage.ObjectInfo{Key: "documents/k.pdf"}, nil)
				mRepo.On("Create", ctx, mock.MatchedBy(func(d *model.AcceptanceDocument) bool {
					return d.EnvelopeID == "env-1" && d.Provider == model.ProviderDocuSign
				})).Return(&model.AcceptanceDocument{}, nil)
			},
			check: func(t *testing.T, res *IssueResult, _ *repoMocks.MockDocumentRepository) {
				assert.Equal(t, "env-1", res.EnvelopeID)
				assert.Equal(t, model.ProviderDocuSign, res.Provider)
			},
		},
		{
			name:      "docusign error rolls back the object",
			req:       IssueRequest{Content: "x", Provider: model.ProviderDocuSign, RecipientEmail: "c@example.com"},
			envelopes: &fakeEnvelopes{err: errors.New("401 unauthorized")},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "documents/k.pdf"}, nil)
				mStore.On("Delete", ctx, "documents/k.pdf").Return(nil)
			},
			wantErrMsg: "create envelope: 401 unauthorized",
		},
		{
			name:   "invitation email",
			req:    IssueRequest{Content: "x", ClientName: "John", RecipientEmail: "c@example.com", SendEmail: true},
			mailer: &fakeMailer{},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "documents/k.pdf"}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(&model.AcceptanceDocument{}, nil)
			},
			check: func(t *testing.T, res *IssueResult, _ *repoMocks.MockDocumentRepository) {
				assert.True(t, res.EmailSent)
			},
		},
		{
			name:   "invitation email failure keeps the document",
			req:    IssueRequest{Content: "x", RecipientEmail: "c@example.com", SendEmail: true},
			mailer: &fakeMailer{err: errors.New("535 auth")},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "documents/k.pdf"}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(&model.AcceptanceDocument{}, nil)
			},
			check: func(t *testing.T, res *IssueResult, _ *repoMocks.MockDocumentRepository) {
				assert.False(t, res.EmailSent)
				assert.NotEmpty(t, res.Token)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			deps := Deps{
				Store:     mStore,
				Documents: mRepo,
				Issuer:    newIssuer(t, fixedNow),
				Renderer:  &fakeRenderer{},
			}
			if tt.envelopes != nil {
				deps.Envelopes = tt.envelopes
			}
			if tt.mailer != nil {
				deps.Mailer = tt.mailer
			}
			svc := NewAcceptanceService(deps, Options{PublicBaseURL: "https://accept.example.com/", Now: fixedNow})

			tt.setupMocks(mStore, mRepo)

			res, err := svc.Issue(ctx, tt.req)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
			} else if tt.wantErrMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, res)
				if tt.check != nil {
					tt.check(t, res, mRepo)
				}
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestAcceptanceService_IssueRendersAcceptURL(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockDocumentRepository)
	r := &fakeRenderer{}
	m := &fakeMailer{}
	svc := NewAcceptanceService(Deps{
		Store: mStore, Documents: mRepo, Issuer: newIssuer(t, fixedNow), Renderer: r, Mailer: m,
	}, Options{PublicBaseURL: "https://accept.example.com", LinkMode: LinkModeDirect, Now: fixedNow})

	mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{Key: "k"}, nil)
	mRepo.On("Create", ctx, mock.Anything).Return(&model.AcceptanceDocument{}, nil)

	res, err := svc.Issue(ctx, IssueRequest{Content: "Terms", ClientName: "John", RecipientEmail: "c@example.com", SendEmail: true})
	require.NoError(t, err)

	assert.Equal(t, "https://accept.example.com/accept?doc="+res.DocumentID+"&token="+res.Token, res.AcceptanceURL)
	require.Len(t, r.pages, 1)
	assert.Equal(t, res.AcceptanceURL, r.pages[0].AcceptURL)
	assert.Equal(t, res.ShortCode, r.pages[0].ShortCode)
	assert.Equal(t, token.DefaultTTL, r.pages[0].TTL)

	require.Len(t, m.sent, 1)
	assert.Equal(t, []string{"c@example.com"}, m.sent[0].To)
	assert.Contains(t, m.sent[0].HTML, "This link expires in 7 days. Document ID: "+res.ShortCode)
	require.Len(t, m.sent[0].Attachments, 1)
	assert.Equal(t, "agreement-"+res.ShortCode+".pdf", m.sent[0].Attachments[0].Name)
}

func TestAcceptanceService_IssuePageByProvider(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockDocumentRepository)
	r := &fakeRenderer{}
	envs := &fakeEnvelopes{id: "env-1"}
	svc := NewAcceptanceService(Deps{
		Store: mStore, Documents: mRepo, Issuer: newIssuer(t, fixedNow), Renderer: r, Envelopes: envs,
	}, Options{PublicBaseURL: "https://accept.example.com/", Now: fixedNow})

	mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{Key: "k"}, nil)
	mRepo.On("Create", ctx, mock.Anything).Return(&model.AcceptanceDocument{}, nil)

	res, err := svc.Issue(ctx, IssueRequest{Content: "Terms", Provider: model.ProviderPDFForm})
	require.NoError(t, err)
	require.Len(t, r.pages, 1)
	require.NotNil(t, r.pages[0].Form)
	assert.Equal(t, pdf.Form{
		SubmitURL:  "https://accept.example.com/pdf-webhook",
		DocumentID: res.DocumentID,
		Token:      res.Token,
	}, *r.pages[0].Form)
	assert.Empty(t, r.pages[0].ApproveAnchor)

	_, err = svc.Issue(ctx, IssueRequest{Content: "Terms", Provider: model.ProviderDocuSign, RecipientEmail: "c@example.com"})
	require.NoError(t, err)
	require.Len(t, r.pages, 2)
	assert.Nil(t, r.pages[1].Form)
	assert.Equal(t, docusign.ApproveAnchor, r.pages[1].ApproveAnchor)

	_, err = svc.Issue(ctx, IssueRequest{Content: "Terms"})
	require.NoError(t, err)
	assert.Nil(t, r.pages[2].Form)
	assert.Empty(t, r.pages[2].ApproveAnchor)
}

func TestAcceptanceService_Accept(t *testing.T) {
	ctx := context.Background()
	const (
		id  = "0b7d0c3e-1111-4222-8333-444455556666"
		tok = "9f86d081884c7d659a2feaa0c55ad015"
	)
	later := t0.Add(time.Hour)

	tests := []struct {
		name       string
		req        AcceptRequest
		now        time.Time
		setupMocks func(mRepo *repoMocks.MockDocumentRepository, mDel *repoMocks.MockDeliveryRepository)
		wantErr    error
		check      func(t *testing.T, res *AcceptResult, d *fakeDispatcher)
	}{
		{
			name: "happy path",
			req:  AcceptRequest{DocumentID: id, Token: tok, ClientIP: "203.0.113.9", UserAgent: "ua", Timezone: "Europe/Paris", ClientTimestamp: "2024-03-01T14:00:00+01:00", Method: model.MethodPage},
			now:  later,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository, mDel *repoMocks.MockDeliveryRepository) {
				mRepo.On("FindByID", ctx, id).Return(pendingDoc(id, tok), nil)
				accepted := pendingDoc(id, tok)
				accepted.AcceptedAt = &later
				accepted.ClientIP = "203.0.113.9"
				accepted.AcceptMethod = model.MethodPage
				mRepo.On("MarkAccepted", ctx, id, model.Acceptance{
					AcceptedAt: later, ClientIP: "203.0.113.9", UserAgent: "ua", Timezone: "Europe/Paris", Method: model.MethodPage,
				}).Return(accepted, nil)
				mDel.On("Record", mock.Anything, mock.MatchedBy(func(rows []model.Delivery) bool {
					return len(rows) == 2 && rows[0].Status == model.DeliveryDelivered && rows[1].Status == model.DeliveryFailed
				})).Return(nil)
			},
			check: func(t *testing.T, res *AcceptResult, d *fakeDispatcher) {
				assert.False(t, res.Replayed)
				assert.Len(t, res.Deliveries, 2)
				require.Equal(t, 1, d.calls())
				assert.Equal(t, id, d.events[0].DocumentID)
				assert.Equal(t, "2024-03-01T14:00:00+01:00", d.events[0].ClientTimestamp)
				assert.Equal(t, model.MethodPage, d.events[0].Method)
			},
		},
		{
			name:       "missing token",
			req:        AcceptRequest{DocumentID: id},
			now:        later,
			setupMocks: func(*repoMocks.MockDocumentRepository, *repoMocks.MockDeliveryRepository) {},
			wantErr:    ErrInvalidToken,
		},
		{
			name: "unknown document",
			req:  AcceptRequest{DocumentID: id, Token: tok},
			now:  later,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository, _ *repoMocks.MockDeliveryRepository) {
				mRepo.On("FindByID", ctx, id).Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong token",
			req:  AcceptRequest{DocumentID: id, Token: "0000"},
			now:  later,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository, _ *repoMocks.MockDeliveryRepository) {
				mRepo.On("FindByID", ctx, id).Return(pendingDoc(id, tok), nil)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong token on an accepted document reveals nothing",
			req:  AcceptRequest{DocumentID: id, Token: "0000"},
			now:  later,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository, _ *repoMocks.MockDeliveryRepository) {
				d := pendingDoc(id, tok)
				d.AcceptedAt = &t0
				mRepo.On("FindByID", ctx, id).Return(d, nil)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "expired",
			req:  AcceptRequest{DocumentID: id, Token: tok},
			now:  t0.Add(8 * 24 * time.Hour),
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository, _ *repoMocks.MockDeliveryRepository) {
				mRepo.On("FindByID", ctx, id).Return(pendingDoc(id, tok), nil)
			},
			wantErr: ErrExpired,
		},
		{
			name: "revoked",
			req:  AcceptRequest{DocumentID: id, Token: tok},
			now:  later,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository, _ *repoMocks.MockDeliveryRepository) {
				d := pendingDoc(id, tok)
				d.RevokedAt = &t0
				mRepo.On("FindByID", ctx, id).Return(d, nil)
			},
			wantErr: ErrRevoked,
		},
		{
			name: "already accepted",
			req:  AcceptRequest{DocumentID: id, Token: tok},
			now:  later,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository, _ *repoMocks.MockDeliveryRepository) {
				d := pendingDoc(id, tok)
				d.AcceptedAt = &t0
				mRepo.On("FindByID", ctx, id).Return(d, nil)
			},
			wantErr: ErrAlreadyAccepted,
		},
		{
			name: "lost race to a concurrent accept",
			req:  AcceptRequest{DocumentID: id, Token: tok},
			now:  later,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository, _ *repoMocks.MockDeliveryRepository) {
				mRepo.On("FindByID", ctx, id).Return(pendingDoc(id, tok), nil).Once()
				mRepo.On("MarkAccepted", ctx, id, mock.Anything).Return(nil, repository.ErrNotUpdated)
				d := pendingDoc(id, tok)
				d.AcceptedAt = &later
				mRepo.On("FindByID", ctx, id).Return(d, nil).Once()
			},
			wantErr: ErrAlreadyAccepted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			mDel := new(repoMocks.MockDeliveryRepository)
			d := &fakeDispatcher{results: []notify.Result{
				{Channel: "email", Delivered: true, Attempts: 1},
				{Channel: "slack", Attempts: 3, Err: errors.New("timeout")},
			}}
			now := func() time.Time { return tt.now }
			svc := NewAcceptanceService(Deps{
				Documents:  mRepo,
				Deliveries: mDel,
				Issuer:     newIssuer(t, now),
				Notifier:   d,
			}, Options{Now: now})

			tt.setupMocks(mRepo, mDel)

			res, err := svc.Accept(ctx, tt.req)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
				assert.Zero(t, d.calls())
			} else {
				require.NoError(t, err)
				if tt.check != nil {
					tt.check(t, res, d)
				}
			}
			mRepo.AssertExpectations(t)
			mDel.AssertExpectations(t)
		})
	}
}

func TestAcceptanceService_AcceptEnvelope(t *testing.T) {
	ctx := context.Background()
	const id = "0b7d0c3e-1111-4222-8333-444455556666"
	completed := docusign.Event{Name: docusign.EventRecipientCompleted, EnvelopeID: "env-1"}

	t.Run("non completion events are ignored", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewAcceptanceService(Deps{Documents: mRepo}, Options{Now: fixedNow})
		res, err := svc.AcceptEnvelope(ctx, docusign.Event{Name: "envelope-sent", EnvelopeID: "env-1"})
		assert.NoError(t, err)
		assert.Nil(t, res)
		mRepo.AssertExpectations(t)
	})

	t.Run("unknown envelope", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByEnvelopeID", ctx, "env-1").Return(nil, repository.ErrNotFound)
		svc := NewAcceptanceService(Deps{Documents: mRepo}, Options{Now: fixedNow})
		_, err := svc.AcceptEnvelope(ctx, completed)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("accepts and notifies", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		d := &fakeDispatcher{}
		doc := pendingDoc(id, "x")
		doc.Provider = model.ProviderDocuSign
		doc.EnvelopeID = "env-1"
		accepted := *doc
		accepted.AcceptedAt = &t0
		accepted.AcceptMethod = model.MethodDocuSign

		mRepo.On("FindByEnvelopeID", ctx, "env-1").Return(doc, nil)
		mRepo.On("MarkAccepted", ctx, id, mock.MatchedBy(func(a model.Acceptance) bool {
			return a.Method == model.MethodDocuSign && a.AcceptedAt.Equal(t0)
		})).Return(&accepted, nil)

		svc := NewAcceptanceService(Deps{Documents: mRepo, Notifier: d}, Options{Now: fixedNow})
		res, err := svc.AcceptEnvelope(ctx, completed)
		require.NoError(t, err)
		assert.False(t, res.Replayed)
		assert.Equal(t, 1, d.calls())
		assert.Equal(t, "env-1", d.events[0].EnvelopeID)
	})

	t.Run("redelivery is acknowledged without notifying", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		d := &fakeDispatcher{}
		doc := pendingDoc(id, "x")
		doc.AcceptedAt = &t0
		mRepo.On("FindByEnvelopeID", ctx, "env-1").Return(doc, nil)

		svc := NewAcceptanceService(Deps{Documents: mRepo, Notifier: d}, Options{Now: fixedNow})
		res, err := svc.AcceptEnvelope(ctx, completed)
		require.NoError(t, err)
		assert.True(t, res.Replayed)
		assert.Zero(t, d.calls())
	})
}

func TestAcceptanceService_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		limit      int
		offset     int
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    bool
		checkRes   func(t *testing.T, res *DocumentListResult)
	}{
		{
			name:  "happy path",
			limit: 10,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
					Return(&repository.PageResult[model.AcceptanceDocument]{
						Items: []model.AcceptanceDocument{{ID: "1"}, {ID: "2"}},
						Total: 2,
					}, nil)
			},
			checkRes: func(t *testing.T, res *DocumentListResult) {
				assert.Equal(t, 2, len(res.Items))
				assert.Equal(t, 2, res.Total)
			},
		},
		{
			name:   "pagination boundary - zero limit uses default",
			limit:  0,
			offset: -1,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
					Return(&repository.PageResult[model.AcceptanceDocument]{Items: []model.AcceptanceDocument{}}, nil)
			},
		},
		{
			name:  "repository error",
			limit: 10,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewAcceptanceService(Deps{Documents: mRepo}, Options{})

			tt.setupMocks(mRepo)

			res, err := svc.List(ctx, tt.limit, tt.offset)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				if tt.checkRes != nil {
					tt.checkRes(t, res)
				}
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestAcceptanceService_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   "valid-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "valid-id").Return(&model.AcceptanceDocument{ID: "valid-id"}, nil)
			},
		},
		{
			name:       "validation - empty id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found",
			id:   "missing-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "missing-id").Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewAcceptanceService(Deps{Documents: mRepo}, Options{})

			tt.setupMocks(mRepo)

			doc, err := svc.Get(ctx, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.id, doc.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestAcceptanceService_Revoke(t *testing.T) {
	ctx := context.Background()
	const id = "doc-1"

	tests := []struct {
		name       string
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name: "pending document",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, id).Return(&model.AcceptanceDocument{ID: id}, nil)
				mRepo.On("Revoke", ctx, id, t0).Return(nil)
			},
		},
		{
			name: "already revoked is a no-op",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, id).Return(&model.AcceptanceDocument{ID: id, RevokedAt: &t0}, nil)
			},
		},
		{
			name: "accepted cannot be revoked",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, id).Return(&model.AcceptanceDocument{ID: id, AcceptedAt: &t0}, nil)
			},
			wantErr: ErrAlreadyAccepted,
		},
		{
			name: "accepted between read and update",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, id).Return(&model.AcceptanceDocument{ID: id}, nil).Once()
				mRepo.On("Revoke", ctx, id, t0).Return(repository.ErrNotUpdated)
				mRepo.On("FindByID", ctx, id).Return(&model.AcceptanceDocument{ID: id, AcceptedAt: &t0}, nil).Once()
			},
			wantErr: ErrAlreadyAccepted,
		},
		{
			name: "not found",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, id).Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewAcceptanceService(Deps{Documents: mRepo}, Options{Now: fixedNow})

			tt.setupMocks(mRepo)

			err := svc.Revoke(ctx, id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestAcceptanceService_PresignPDF(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := NewAcceptanceService(Deps{Store: mStore, Documents: mRepo}, Options{PresignTTL: 5 * time.Minute})

	mRepo.On("FindByID", ctx, "doc-1").Return(&model.AcceptanceDocument{ID: "doc-1", ShortCode: "doc-1", StoragePath: "documents/doc-1.pdf"}, nil)
	mStore.On("PresignGet", ctx, "documents/doc-1.pdf", 5*time.Minute, "agreement-doc-1.pdf").Return("https://objects.test/x", nil)

	u, err := svc.PresignPDF(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "https://objects.test/x", u)

	mRepo.On("FindByID", ctx, "missing").Return(nil, repository.ErrNotFound)
	_, err = svc.PresignPDF(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mStore.AssertExpectations(t)
}

func TestAcceptanceService_Deliveries(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDocumentRepository)
	mDel := new(repoMocks.MockDeliveryRepository)
	svc := NewAcceptanceService(Deps{Documents: mRepo, Deliveries: mDel}, Options{})

	rows := []model.Delivery{{DocumentID: "doc-1", Channel: "email", Status: model.DeliveryDelivered, Attempts: 1}}
	mRepo.On("FindByID", ctx, "doc-1").Return(&model.AcceptanceDocument{ID: "doc-1"}, nil)
	mDel.On("ListByDocument", ctx, "doc-1").Return(rows, nil)

	got, err := svc.Deliveries(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}
