package mocks

import (
	"context"

	"acceptapi/internal/docusign"
	"acceptapi/internal/model"
	"acceptapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockAcceptanceService struct {
	mock.Mock
}

func (m *MockAcceptanceService) Issue(ctx context.Context, req service.IssueRequest) (*service.IssueResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IssueResult), args.Error(1)
}

func (m *MockAcceptanceService) Verify(ctx context.Context, documentID, tok string) (*model.AcceptanceDocument, error) {
	args := m.Called(ctx, documentID, tok)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AcceptanceDocument), args.Error(1)
}

func (m *MockAcceptanceService) Accept(ctx context.Context, req service.AcceptRequest) (*service.AcceptResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AcceptResult), args.Error(1)
}

func (m *MockAcceptanceService) AcceptEnvelope(ctx context.Context, ev docusign.Event) (*service.AcceptResult, error) {
	args := m.Called(ctx, ev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AcceptResult), args.Error(1)
}

func (m *MockAcceptanceService) Get(ctx context.Context, id string) (*model.AcceptanceDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AcceptanceDocument), args.Error(1)
}

func (m *MockAcceptanceService) List(ctx context.Context, limit, offset int) (*service.DocumentListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}

func (m *MockAcceptanceService) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAcceptanceService) Deliveries(ctx context.Context, id string) ([]model.Delivery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Delivery), args.Error(1)
}

func (m *MockAcceptanceService) PresignPDF(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}
