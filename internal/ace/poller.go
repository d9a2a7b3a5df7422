package ace

import (
	"context"
	"time"
)

// DefaultPollInterval is how often the poller re-queries the device.
const DefaultPollInterval = 5 * time.Second

// Refresher issues the re-query commands. Dispatcher implements it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Poller periodically re-queries slots, loaded index and endless spool mode
// so optimistic values that the device did not adopt are corrected.
type Poller struct {
	refresher Refresher
	interval  time.Duration
	logger    Logger
}

// NewPoller creates a poller. A non-positive interval uses
// DefaultPollInterval.
func NewPoller(r Refresher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		refresher: r,
		interval:  interval,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the poller.
func (p *Poller) SetLogger(logger Logger) {
	p.logger = logger
}

// Interval returns the poll interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run polls once immediately and then on every tick until ctx is
// cancelled. Send failures are logged and polling continues.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	if err := p.refresher.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("device poll failed", "error", err)
	}
}
