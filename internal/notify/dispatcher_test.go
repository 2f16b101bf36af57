package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeNotifier struct {
	name  string
	calls atomic.Int32
	// fn decides the outcome of attempt n (1-based)
	fn func(ctx context.Context, n int) error
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(ctx context.Context, _ Event) error {
	n := int(f.calls.Add(1))
	if f.fn == nil {
		return nil
	}
	return f.fn(ctx, n)
}

var testEvent = Event{Status: "accepted", DocumentID: "doc-1", ShortCode: "doc-1", Method: "link", AcceptedAt: time.Unix(1700000000, 0)}

func fastOptions() Options {
	return Options{Timeout: 200 * time.Millisecond, MaxAttempts: 3, Concurrency: 4, Backoff: time.Millisecond}
}

func TestDispatch_ResultsInListOrder(t *testing.T) {
	ok := &fakeNotifier{name: "email"}
	down := &fakeNotifier{name: "slack", fn: func(context.Context, int) error { return errors.New("connection refused") }}
	flaky := &fakeNotifier{name: "sms", fn: func(_ context.Context, n int) error {
		if n < 2 {
			return errors.New("503")
		}
		return nil
	}}

	d := NewDispatcher([]Notifier{ok, down, flaky}, fastOptions(), zap.NewNop(), nil)
	assert.Equal(t, []string{"email", "slack", "sms"}, d.Channels())

	res := d.Dispatch(context.Background(), testEvent)
	require.Len(t, res, 3)

	assert.Equal(t, Result{Channel: "email", Delivered: true, Attempts: 1}, res[0])

	assert.Equal(t, "slack", res[1].Channel)
	assert.False(t, res[1].Delivered)
	assert.Equal(t, 3, res[1].Attempts)
	assert.EqualError(t, res[1].Err, "connection refused")

	assert.Equal(t, "sms", res[2].Channel)
	assert.True(t, res[2].Delivered)
	assert.Equal(t, 2, res[2].Attempts)
}

func TestDispatch_PermanentErrorNotRetried(t *testing.T) {
	n := &fakeNotifier{name: "webhook", fn: func(context.Context, int) error {
		return Permanent(errors.New("400 Bad Request"))
	}}
	res := NewDispatcher([]Notifier{n}, fastOptions(), zap.NewNop(), nil).Dispatch(context.Background(), testEvent)

	require.Len(t, res, 1)
	assert.False(t, res[0].Delivered)
	assert.Equal(t, 1, res[0].Attempts)
	assert.True(t, IsPermanent(res[0].Err))
	assert.Equal(t, "400 Bad Request", res[0].Error())
}

func TestDispatch_PerAttemptTimeout(t *testing.T) {
	slow := &fakeNotifier{name: "pusher", fn: func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	fast := &fakeNotifier{name: "email"}

	opts := fastOptions()
	opts.Timeout = 20 * time.Millisecond
	opts.MaxAttempts = 2

	start := time.Now()
	res := NewDispatcher([]Notifier{slow, fast}, opts, zap.NewNop(), nil).Dispatch(context.Background(), testEvent)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, res[0].Delivered)
	assert.ErrorIs(t, res[0].Err, context.DeadlineExceeded)
	assert.Equal(t, 2, res[0].Attempts)
	assert.True(t, res[1].Delivered)
}

func TestDispatch_ConcurrencyLimit(t *testing.T) {
	var (
		mu      sync.Mutex
		running int
		peak    int
	)
	fn := func(context.Context, int) error {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		return nil
	}
	var ns []Notifier
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		ns = append(ns, &fakeNotifier{name: name, fn: fn})
	}
	opts := fastOptions()
	opts.Concurrency = 2

	res := NewDispatcher(ns, opts, zap.NewNop(), nil).Dispatch(context.Background(), testEvent)
	for _, r := range res {
		assert.True(t, r.Delivered)
	}
	assert.LessOrEqual(t, peak, 2)
}

func TestDispatch_Empty(t *testing.T) {
	assert.Empty(t, NewDispatcher(nil, Options{}, nil, nil).Dispatch(context.Background(), testEvent))
}

func TestDispatch_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	ok := &fakeNotifier{name: "email"}
	bad := &fakeNotifier{name: "slack", fn: func(context.Context, int) error { return Permanent(errors.New("no")) }}
	d := NewDispatcher([]Notifier{ok, bad}, fastOptions(), zap.NewNop(), m)
	d.Dispatch(context.Background(), testEvent)
	d.Dispatch(context.Background(), testEvent)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveries.WithLabelValues("email", "delivered")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveries.WithLabelValues("slack", "failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.attempts))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "second registration on the same registry must fail")
}

func TestResultDelivery(t *testing.T) {
	at := time.Unix(1700000000, 0)
	d := Result{Channel: "sms", Attempts: 3, Err: errors.New("unauthorized")}.Delivery("doc-1", at)
	assert.Equal(t, "failed", d.Status)
	assert.Equal(t, "unauthorized", d.Error)
	assert.Equal(t, 3, d.Attempts)

	d = Result{Channel: "email", Delivered: true, Attempts: 1}.Delivery("doc-1", at)
	assert.Equal(t, "delivered", d.Status)
	assert.Empty(t, d.Error)
	assert.Equal(t, at, d.DeliveredAt)
}
