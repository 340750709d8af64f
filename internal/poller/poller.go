// Package poller waits for a project to reach a terminal status by fetching
// it at a constant interval.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maauso/magichour-go/internal/job"
)

// DefaultInterval is the sleep between two fetches.
const DefaultInterval = 500 * time.Millisecond

// ErrInvalidInterval is returned when the interval is not positive.
var ErrInvalidInterval = errors.New("poller: interval must be positive")

// FetchFunc returns a fresh snapshot of the project id.
type FetchFunc func(ctx context.Context, id string) (job.Job, error)

// Poller fetches a project until it is terminal. It never times out on its
// own and never backs off; callers bound it through ctx.
type Poller struct {
	fetch    FetchFunc
	interval time.Duration
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option is a function that configures a Poller.
type Option func(*Poller)

// WithInterval sets the sleep between fetches.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		p.interval = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = l
	}
}

// New creates a Poller around fetch.
func New(fetch FetchFunc, opts ...Option) (*Poller, error) {
	p := &Poller{
		fetch:    fetch,
		interval: DefaultInterval,
		logger:   slog.Default(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.interval <= 0 {
		return nil, ErrInvalidInterval
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// Interval returns the sleep between fetches.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Poll fetches project id once when wait is false. Otherwise it keeps
// fetching, sleeping the interval between fetches, until the status is
// terminal, and returns the final snapshot.
func (p *Poller) Poll(ctx context.Context, id string, wait bool) (job.Job, error) {
	j, err := p.fetch(ctx, id)
	if err != nil {
		return job.Job{}, fmt.Errorf("poller: fetch %s: %w", id, err)
	}
	if !wait {
		return j, nil
	}

	for !j.IsTerminal() {
		p.logger.Debug("waiting for job",
			slog.String("id", id),
			slog.String("status", string(j.Status)),
		)
		if err := p.sleep(ctx, p.interval); err != nil {
			return job.Job{}, fmt.Errorf("poller: wait for %s: %w", id, err)
		}
		if j, err = p.fetch(ctx, id); err != nil {
			return job.Job{}, fmt.Errorf("poller: fetch %s: %w", id, err)
		}
	}

	p.logger.Info("job finished",
		slog.String("id", id),
		slog.String("status", string(j.Status)),
	)
	return j, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
