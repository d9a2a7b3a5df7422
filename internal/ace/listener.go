package ace

// Listener classifies response lines from the command channel and merges
// them into the cache.
type Listener struct {
	cache  *Cache
	logger Logger
}

// NewListener creates a listener feeding cache.
func NewListener(cache *Cache) *Listener {
	return &Listener{cache: cache, logger: noopLogger{}}
}

// SetLogger sets the logger for the listener.
func (l *Listener) SetLogger(logger Logger) {
	l.logger = logger
}

// HandleLine is a gcode.LineHandler. Unrecognized lines are logged and
// dropped; nothing a line contains can fail the caller.
func (l *Listener) HandleLine(line string) {
	r := Classify(line)

	switch r.Kind {
	case KindUnrecognized:
		if r.Err != "" {
			l.logger.Warn("malformed device response dropped", "line", r.Text, "error", r.Err)
		} else if r.Text != "" {
			l.logger.Debug("unrecognized device response", "line", r.Text)
		}
		return
	case KindAcknowledgement:
		l.logger.Debug("device acknowledgement", "line", r.Text)
		return
	}

	if l.cache.Apply(r, SourceDevice) {
		l.logger.Debug("device response applied", "kind", r.Kind.String(), "fallback", r.Fallback)
	}
}
