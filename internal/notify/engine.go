package notify

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/lobby/internal/lobby"
)

const (
	defaultDeliveryTimeout = 2 * time.Second
	defaultConcurrency     = 16
)

// Report counts the outcomes of one Dispatch.
type Report struct {
	Delivered int
	Failed    int
	// Skipped counts audience members without a subscription.
	Skipped int
}

// Engine fans events out to the registry. It is safe for concurrent use.
type Engine struct {
	registry    *Registry
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDeliveryTimeout bounds every individual push.
func WithDeliveryTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithConcurrency limits how many pushes of one event run at once.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithEngineLogger sets the logger for delivery failures.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an Engine delivering through registry.
func NewEngine(registry *Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		registry:    registry,
		timeout:     defaultDeliveryTimeout,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dispatch delivers events in order. All recipients of one event receive the
// same encoded frame, and an event is fully attempted before the next one
// starts, so each recipient observes the events of a dispatch in order.
// Failed recipients are evicted; delivery continues for everyone else.
//
// Cancellation of ctx does not abort delivery: pushes are bounded by the
// engine's own timeout instead, so a caller that disconnects mid-request does
// not cause other subscribers to be evicted.
func (e *Engine) Dispatch(ctx context.Context, events ...lobby.Event) Report {
	ctx = context.WithoutCancel(ctx)

	var report Report
	for _, ev := range events {
		r := e.dispatchOne(ctx, ev)
		report.Delivered += r.Delivered
		report.Failed += r.Failed
		report.Skipped += r.Skipped
	}
	return report
}

func (e *Engine) dispatchOne(ctx context.Context, ev lobby.Event) Report {
	frame, err := Encode(ev)
	if err != nil {
		e.logger.Error("dropping unencodable event", "error", err)
		return Report{}
	}

	audience := ev.Audience()
	if audience == nil {
		audience = e.registry.Usernames()
	}

	var delivered, failed, skipped atomic.Int64
	var g errgroup.Group
	g.SetLimit(e.concurrency)

	seen := make(map[string]struct{}, len(audience))
	for _, username := range audience {
		if _, dup := seen[username]; dup {
			continue
		}
		seen[username] = struct{}{}

		sender, ok := e.registry.Lookup(username)
		if !ok {
			skipped.Add(1)
			continue
		}
		username := username
		g.Go(func() error {
			if e.deliver(ctx, username, sender, frame) {
				delivered.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return Report{
		Delivered: int(delivered.Load()),
		Failed:    int(failed.Load()),
		Skipped:   int(skipped.Load()),
	}
}

func (e *Engine) deliver(ctx context.Context, username string, sender Sender, frame []byte) bool {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result := sender.Send(ctx, frame)
	if result == Delivered {
		return true
	}

	evicted := e.registry.Evict(username, sender)
	e.logger.Warn("push delivery failed",
		"username", username,
		"result", result.String(),
		"evicted", evicted)
	return false
}
