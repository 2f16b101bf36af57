package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"acceptapi/internal/docusign"
	"acceptapi/internal/mailer"
	"acceptapi/internal/notify"
	"acceptapi/internal/pdf"
	"acceptapi/internal/storage"
)

type fakeRenderer struct {
	err   error
	pages []pdf.Page
}

func (f *fakeRenderer) Render(p pdf.Page) ([]byte, error) {
	f.pages = append(f.pages, p)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.3 " + p.AcceptURL), nil
}

type fakeEnvelopes struct {
	id   string
	err  error
	reqs []docusign.EnvelopeRequest
}

func (f *fakeEnvelopes) CreateEnvelope(_ context.Context, req docusign.EnvelopeRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	return f.id, f.err
}

type fakeMailer struct {
	err  error
	sent []mailer.Message
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

type fakeDispatcher struct {
	mu      sync.Mutex
	results []notify.Result
	events  []notify.Event
}

func (f *fakeDispatcher) Dispatch(_ context.Context, ev notify.Event) []notify.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.results
}

func (f *fakeDispatcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// memStore keeps objects in memory.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Put(_ context.Context, key string, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return storage.ObjectInfo{Key: key, Size: int64(len(b)), ContentType: opt.ContentType}, nil
}

func (m *memStore) Get(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(b)), storage.ObjectInfo{Key: key, Size: int64(len(b))}, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) PresignGet(_ context.Context, key string, _ time.Duration, _ string) (string, error) {
	return "https://objects.test/" + key + "?X-Amz-Signature=x", nil
}
