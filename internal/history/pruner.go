package history

import (
	"context"
	"time"
)

// Pruner deletes history older than the retention period on a fixed
// interval.
type Pruner struct {
	repo      *Repository
	retention time.Duration
	interval  time.Duration
	logger    Logger
}

// NewPruner creates a pruner. Both durations must be positive.
func NewPruner(repo *Repository, retention, interval time.Duration) *Pruner {
	return &Pruner{
		repo:      repo,
		retention: retention,
		interval:  interval,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the pruner.
func (p *Pruner) SetLogger(logger Logger) {
	p.logger = logger
}

// Run prunes once straight away, then every interval until ctx is
// cancelled.
func (p *Pruner) Run(ctx context.Context) error {
	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	n, err := p.repo.Prune(ctx, p.retention)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("pruning state history failed", "error", err)
		}
		return
	}
	if n > 0 {
		p.logger.Info("state history pruned", "rows", n, "retention", p.retention)
	}
}
