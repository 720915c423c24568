// Package timing records named intervals for a role and renders them as a
// human-readable report.
//
// A Recorder is owned by one role instance; nothing is shared between
// instances.
package timing

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pion/logging"
)

// ErrUnknownTiming is returned when stopping an interval that was never started.
var ErrUnknownTiming = errors.New("timing: not a timing name")

// Entry is one completed interval.
type Entry struct {
	Name     string
	Duration time.Duration
}

// Config configures a Recorder.
type Config struct {
	// Now returns the current time. If nil, time.Now is used.
	Now func() time.Time

	// Limit caps the kept intervals; the oldest are dropped first.
	// Zero keeps everything.
	Limit int

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Recorder is a named-interval stopwatch. Completed intervals are kept in
// completion order; an interval may be recorded more than once.
// Long-lived listeners set Config.Limit so the history stays bounded.
type Recorder struct {
	now   func() time.Time
	limit int
	log   logging.LeveledLogger

	mu      sync.Mutex
	starts  map[string]time.Time
	entries []Entry
}

// NewRecorder creates an empty Recorder.
func NewRecorder(config Config) *Recorder {
	r := &Recorder{
		now:    config.Now,
		limit:  config.Limit,
		starts: make(map[string]time.Time),
	}
	if r.now == nil {
		r.now = time.Now
	}
	if config.LoggerFactory != nil {
		r.log = config.LoggerFactory.NewLogger("timing")
	}
	return r
}

// Start marks the beginning of name. Restarting a name moves its start.
func (r *Recorder) Start(name string) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts[name] = now
}

// Stop records the interval since name was started.
func (r *Recorder) Stop(name string) error {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked(name, now)
}

// StopAndStart stops nameStop and starts nameStart at the same instant.
// nameStart is started even if nameStop is unknown.
func (r *Recorder) StopAndStart(nameStop, nameStart string) error {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.stopLocked(nameStop, now)
	r.starts[nameStart] = now
	return err
}

func (r *Recorder) stopLocked(name string, now time.Time) error {
	start, ok := r.starts[name]
	if !ok {
		if r.log != nil {
			r.log.Warnf("not a timing name: %s", name)
		}
		return ErrUnknownTiming
	}
	if r.limit > 0 && len(r.entries) >= r.limit {
		n := copy(r.entries, r.entries[len(r.entries)-r.limit+1:])
		r.entries = r.entries[:n]
	}
	r.entries = append(r.entries, Entry{Name: name, Duration: now.Sub(start)})
	return nil
}

// Reset discards all starts and recorded intervals.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = make(map[string]time.Time)
	r.entries = nil
}

// Entries returns a copy of the recorded intervals in completion order.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Report renders the recorded intervals:
//
//	Timings :
//	 - register: 1.5 ms
//	 - login: 12.25 ms
func (r *Recorder) Report() string {
	var b strings.Builder
	b.WriteString("Timings :\n")
	for _, e := range r.Entries() {
		ms := float64(e.Duration) / float64(time.Millisecond)
		b.WriteString(" - ")
		b.WriteString(e.Name)
		b.WriteString(": ")
		b.WriteString(strconv.FormatFloat(ms, 'g', 6, 64))
		b.WriteString(" ms\n")
	}
	return b.String()
}
