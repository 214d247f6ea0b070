// Package events carries progress notifications out of the scrape pipeline.
package events

import (
	"sync"

	"ttscraper/pkg/logger"
)

// Kind names a pipeline event
type Kind string

const (
	AttemptStarted   Kind = "attempt_started"
	AttemptFailed    Kind = "attempt_failed"
	AttemptSucceeded Kind = "attempt_succeeded"
	ItemExtracted    Kind = "item_extracted"
	ItemSkipped      Kind = "item_skipped"
	ScrapeStarted    Kind = "scrape_started"
	ScrapeCompleted  Kind = "scrape_completed"
)

// Event is a single notification with free-form fields
type Event struct {
	Kind   Kind
	Fields map[string]interface{}
}

// Observer receives events. Implementations must be safe for concurrent use.
type Observer interface {
	Observe(Event)
}

type nop struct{}

func (nop) Observe(Event) {}

// OrNop returns o, or an observer that drops every event when o is nil
func OrNop(o Observer) Observer {
	if o == nil {
		return nop{}
	}
	return o
}

// LogObserver writes events to a logger. Attempt failures go out at warn,
// everything else at debug.
type LogObserver struct {
	Logger logger.Logger
}

// NewLogObserver creates a LogObserver on l
func NewLogObserver(l logger.Logger) *LogObserver {
	return &LogObserver{Logger: l}
}

func (o *LogObserver) Observe(e Event) {
	fields := make(map[string]interface{}, len(e.Fields)+1)
	for k, v := range e.Fields {
		fields[k] = v
	}
	fields["event"] = string(e.Kind)

	switch e.Kind {
	case AttemptFailed:
		o.Logger.WarnWithFields("fetch attempt failed", fields)
	case ItemSkipped:
		o.Logger.DebugWithFields("item skipped", fields)
	case ScrapeCompleted:
		o.Logger.InfoWithFields("scrape completed", fields)
	default:
		o.Logger.DebugWithFields(string(e.Kind), fields)
	}
}

// Recorder keeps every event it sees
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Observe(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of kind k were recorded
func (r *Recorder) Count(k Kind) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == k {
			n++
		}
	}
	return n
}
