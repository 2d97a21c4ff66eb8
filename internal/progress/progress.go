package progress

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Reporter is a visible progress indicator for long running passes
type Reporter interface {
	// Describe replaces the current description.
	Describe(description string)
	// Advance moves the indicator forward by n items.
	Advance(n int)
}

// LogReporter reports progress through logrus. Entries are emitted at most
// once per interval so per-second updates during long waits stay readable.
type LogReporter struct {
	logger   *logrus.Logger
	task     string
	total    int
	interval time.Duration
	now      func() time.Time

	mu          sync.Mutex
	done        int
	description string
	lastEmit    time.Time
}

// NewLogReporter creates a reporter for task; total may be 0 when unknown.
func NewLogReporter(logger *logrus.Logger, task string, total int, interval time.Duration) *LogReporter {
	return &LogReporter{
		logger:   logger,
		task:     task,
		total:    total,
		interval: interval,
		now:      time.Now,
	}
}

func (r *LogReporter) Describe(description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.description = description
	r.emit(false)
}

func (r *LogReporter) Advance(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done += n
	r.emit(r.total > 0 && r.done >= r.total)
}

// Done returns the number of items advanced so far
func (r *LogReporter) Done() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func (r *LogReporter) emit(force bool) {
	now := r.now()
	if !force && !r.lastEmit.IsZero() && now.Sub(r.lastEmit) < r.interval {
		return
	}
	r.lastEmit = now

	fields := logrus.Fields{
		"task":  r.task,
		"done":  r.done,
		"state": r.description,
	}
	if r.total > 0 {
		fields["total"] = r.total
	}
	r.logger.WithFields(fields).Info("progress")
}

// Discard is a Reporter that drops all updates
var Discard Reporter = discard{}

type discard struct{}

func (discard) Describe(string) {}
func (discard) Advance(int)     {}
