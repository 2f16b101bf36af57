package notify

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options bound each channel's delivery.
type Options struct {
	// Timeout applies to every attempt.
	Timeout time.Duration
	// MaxAttempts includes the first try.
	MaxAttempts int
	// Concurrency caps channels running at once.
	Concurrency int
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.Backoff <= 0 {
		o.Backoff = 200 * time.Millisecond
	}
	return o
}

// Dispatcher sends events to an explicit list of notifiers.
type Dispatcher struct {
	notifiers []Notifier
	opts      Options
	logger    *zap.Logger
	metrics   *Metrics
}

// NewDispatcher keeps notifiers in the given order; results come back in that order.
func NewDispatcher(notifiers []Notifier, opts Options, logger *zap.Logger, metrics *Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		notifiers: append([]Notifier(nil), notifiers...),
		opts:      opts.withDefaults(),
		logger:    logger,
		metrics:   metrics,
	}
}

// Channels lists the configured channel names.
func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.notifiers))
	for i, n := range d.notifiers {
		names[i] = n.Name()
	}
	return names
}

// Dispatch delivers ev to every channel and waits for all of them.
// A failing channel never stops the others.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) []Result {
	results := make([]Result, len(d.notifiers))
	if len(d.notifiers) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for i, n := range d.notifiers {
		i, n := i, n
		g.Go(func() error {
			results[i] = d.deliver(ctx, n, ev)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (d *Dispatcher) deliver(ctx context.Context, n Notifier, ev Event) Result {
	res := Result{Channel: n.Name()}
	b := retry.WithMaxRetries(uint64(d.opts.MaxAttempts-1), retry.NewExponential(d.opts.Backoff))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		res.Attempts++
		actx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()

		err := n.Notify(actx, ev)
		if err == nil {
			return nil
		}
		d.logger.Warn("notification_attempt_failed",
			zap.String("channel", res.Channel),
			zap.String("doc_id", ev.DocumentID),
			zap.Int("attempt", res.Attempts),
			zap.Error(err),
		)
		if IsPermanent(err) {
			return err
		}
		return retry.RetryableError(err)
	})

	if err != nil {
		res.Err = err
		d.logger.Error("notification_failed",
			zap.String("channel", res.Channel),
			zap.String("doc_id", ev.DocumentID),
			zap.Int("attempts", res.Attempts),
			zap.Error(err),
		)
	} else {
		res.Delivered = true
		d.logger.Info("notification_delivered",
			zap.String("channel", res.Channel),
			zap.String("doc_id", ev.DocumentID),
			zap.Int("attempts", res.Attempts),
		)
	}
	d.metrics.observe(res)
	return res
}
