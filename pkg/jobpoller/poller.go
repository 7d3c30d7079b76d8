package jobpoller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/metrics"
)

// DefaultMaxAttempts bounds a polling loop when the caller does not set one.
const DefaultMaxAttempts = 30

// GenericFailureReason stands in when a failed job carries no error message,
// so downstream rows never store an empty reason.
const GenericFailureReason = "generation failed"

// ErrUnauthorized is returned by a FetchFunc when the provider rejects our
// credentials. The loop aborts immediately instead of burning attempts.
var ErrUnauthorized = errors.New("provider rejected credentials")

// ErrAttemptsExhausted is returned when the attempt budget runs out before
// the job reaches a terminal state.
var ErrAttemptsExhausted = errors.New("polling attempts exhausted")

// Snapshot is one observation of a provider job.
type Snapshot struct {
	Status       enums.GenerationStatus
	ResultURL    string
	ErrorMessage string
}

// FetchFunc retrieves the current state of the job being polled.
type FetchFunc func(ctx context.Context) (Snapshot, error)

// Config wires one polling loop. Exactly one of OnCompleted or OnFailed is
// invoked, at most once, when the job resolves.
type Config struct {
	// Kind labels the loop in logs and metrics, e.g. "music" or "image".
	Kind string
	// Interval is the fixed delay between status fetches.
	Interval time.Duration
	// MaxAttempts caps how many fetches the loop will issue.
	// Zero means DefaultMaxAttempts.
	MaxAttempts int

	FetchStatus FetchFunc
	OnCompleted func(ctx context.Context, resultURL string)
	OnFailed    func(ctx context.Context, reason string)

	Logger  *logger.Logger
	Metrics *metrics.PollerMetrics
}

// Poller drives a provider job to a terminal state at a fixed cadence.
type Poller struct {
	cfg Config
}

// New validates the config and returns a ready poller.
func New(cfg Config) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if cfg.FetchStatus == nil {
		return nil, fmt.Errorf("fetch function required")
	}
	if cfg.OnCompleted == nil {
		return nil, fmt.Errorf("completion callback required")
	}
	if cfg.OnFailed == nil {
		return nil, fmt.Errorf("failure callback required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Kind == "" {
		cfg.Kind = "unknown"
	}
	return &Poller{cfg: cfg}, nil
}

// Run polls until the job resolves, the attempt budget runs out, or the
// context is canceled. Transient fetch errors consume an attempt and the
// loop keeps going; ErrUnauthorized aborts on the spot.
func (p *Poller) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	// The first fetch goes out immediately; the interval only paces retries.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			p.log(ctx, "polling canceled", nil)
			return ctx.Err()
		case <-timer.C:
		}

		snapshot, err := p.cfg.FetchStatus(ctx)
		switch {
		case err == nil:
			if done := p.resolve(ctx, snapshot, start, attempt); done {
				return nil
			}
		case errors.Is(err, ErrUnauthorized):
			p.log(ctx, "polling aborted on auth failure", err)
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			p.log(ctx, "status fetch failed, will retry", err)
		}

		timer.Reset(p.cfg.Interval)
	}

	p.cfg.Metrics.IncTimedOut(p.cfg.Kind)
	p.cfg.Metrics.ObservePoll(p.cfg.Kind, time.Since(start), p.cfg.MaxAttempts)
	return fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, p.cfg.MaxAttempts)
}

func (p *Poller) resolve(ctx context.Context, snapshot Snapshot, start time.Time, attempts int) bool {
	switch snapshot.Status {
	case enums.GenerationStatusCompleted:
		p.cfg.Metrics.IncCompleted(p.cfg.Kind)
		p.cfg.Metrics.ObservePoll(p.cfg.Kind, time.Since(start), attempts)
		p.cfg.OnCompleted(ctx, snapshot.ResultURL)
		return true
	case enums.GenerationStatusFailed:
		p.cfg.Metrics.IncFailed(p.cfg.Kind)
		p.cfg.Metrics.ObservePoll(p.cfg.Kind, time.Since(start), attempts)
		reason := snapshot.ErrorMessage
		if reason == "" {
			reason = GenericFailureReason
		}
		p.cfg.OnFailed(ctx, reason)
		return true
	default:
		return false
	}
}

func (p *Poller) log(ctx context.Context, msg string, err error) {
	if p.cfg.Logger == nil {
		return
	}
	ctx = p.cfg.Logger.WithField(ctx, "kind", p.cfg.Kind)
	if err != nil {
		p.cfg.Logger.Error(ctx, msg, err)
		return
	}
	p.cfg.Logger.Info(ctx, msg)
}
