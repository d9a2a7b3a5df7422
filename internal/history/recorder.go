package history

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nerrad567/ace-core/internal/ace"
)

// DefaultBufferSize is the recorder queue length.
const DefaultBufferSize = 256

const writeTimeout = 5 * time.Second

// Logger defines the logging interface used by this package.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

type record struct {
	state  ace.DeviceState
	source ace.Source
}

// Recorder writes cache changes to the repository off the cache's lock.
// Observe is an ace.Observer and never blocks: when the queue is full the
// snapshot is dropped and counted.
type Recorder struct {
	repo    *Repository
	queue   chan record
	dropped atomic.Uint64
	logger  Logger
}

// NewRecorder creates a recorder with a queue of size snapshots. A
// non-positive size uses DefaultBufferSize.
func NewRecorder(repo *Repository, size int) *Recorder {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Recorder{
		repo:   repo,
		queue:  make(chan record, size),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Observe queues a snapshot for writing.
func (r *Recorder) Observe(state ace.DeviceState, source ace.Source) {
	select {
	case r.queue <- record{state: state, source: source}:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns how many snapshots were discarded because the queue was
// full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Run writes queued snapshots until ctx is cancelled, then drains what is
// already queued.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case rec := <-r.queue:
			r.write(rec)
		case <-ctx.Done():
			for {
				select {
				case rec := <-r.queue:
					r.write(rec)
				default:
					return nil
				}
			}
		}
	}
}

func (r *Recorder) write(rec record) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.repo.Record(ctx, rec.state, rec.source); err != nil {
		r.logger.Warn("recording state history failed", "version", rec.state.Version, "error", err)
	}
}
