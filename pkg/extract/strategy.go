// Package extract turns a fetched page body into post records.
//
// Three strategies exist, one per page shape: Pattern runs regular
// expressions over the raw markup, Markup walks the parsed DOM, and
// EmbeddedJSON reads the state payload the page ships in a script tag.
// None of them fails on a page without posts; they return an empty slice.
// Running a strategy twice on the same body yields the same records in the
// same order.
package extract

import (
	"fmt"

	"ttscraper/pkg/events"
	"ttscraper/pkg/models"
)

// Kind names an extraction strategy
type Kind string

const (
	KindPattern      Kind = "pattern"
	KindMarkup       Kind = "markup"
	KindEmbeddedJSON Kind = "embedded_json"
)

// Strategy parses a page body into records
type Strategy interface {
	Kind() Kind
	Extract(body string) ([]models.PostRecord, error)
}

// New returns the strategy of the given kind with default settings
func New(kind Kind, obs events.Observer) (Strategy, error) {
	switch kind {
	case KindPattern:
		return NewPattern(obs), nil
	case KindMarkup:
		return NewMarkup(obs), nil
	case KindEmbeddedJSON:
		return NewEmbeddedJSON(obs), nil
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", kind)
	}
}

// emitter wraps the observer calls every strategy makes
type emitter struct {
	kind Kind
	obs  events.Observer
}

func (e emitter) extracted(rec *models.PostRecord) {
	e.obs.Observe(events.Event{
		Kind:   events.ItemExtracted,
		Fields: map[string]interface{}{"strategy": string(e.kind), "id": rec.ID},
	})
}

func (e emitter) skipped(index int, reason string) {
	e.obs.Observe(events.Event{
		Kind: events.ItemSkipped,
		Fields: map[string]interface{}{
			"strategy": string(e.kind),
			"index":    index,
			"reason":   reason,
		},
	})
}

// accept normalizes rec and appends it when it carries an id and a title
func (e emitter) accept(out []models.PostRecord, rec models.PostRecord, index int) []models.PostRecord {
	if !rec.Valid() {
		reason := "missing title"
		if rec.ID == "" {
			reason = "missing id"
		}
		e.skipped(index, reason)
		return out
	}
	rec.Normalize()
	e.extracted(&rec)
	return append(out, rec)
}
