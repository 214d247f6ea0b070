// Package dispatch maps a scrape request to the feed URL to fetch and the
// strategy that parses it. Resolution is pure string work; it never touches
// the network.
package dispatch

import (
	"net/url"
	"strings"

	errs "ttscraper/pkg/errors"
	"ttscraper/pkg/events"
	"ttscraper/pkg/extract"
	"ttscraper/pkg/models"
)

// DefaultBaseURL is the site every feed URL is built on
const DefaultBaseURL = "https://www.tiktok.com"

// DefaultKinds is the strategy each scrape type is parsed with unless
// WithStrategy replaces it
var DefaultKinds = map[models.ScrapeType]extract.Kind{
	models.ScrapeTypeUser:    extract.KindEmbeddedJSON,
	models.ScrapeTypeHashtag: extract.KindMarkup,
	models.ScrapeTypeTrend:   extract.KindPattern,
}

// Target is a resolved feed: where to fetch it and how to parse it
type Target struct {
	URL      string
	Strategy extract.Strategy
}

// Dispatcher resolves requests to targets. It holds one strategy instance
// per kind and no per-request state.
type Dispatcher struct {
	baseURL  string
	user     extract.Strategy
	hashtag  extract.Strategy
	trending extract.Strategy
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithStrategy replaces the strategy used for one scrape type
func WithStrategy(t models.ScrapeType, s extract.Strategy) Option {
	return func(d *Dispatcher) {
		switch t {
		case models.ScrapeTypeUser:
			d.user = s
		case models.ScrapeTypeHashtag:
			d.hashtag = s
		case models.ScrapeTypeTrend:
			d.trending = s
		}
	}
}

// New creates a Dispatcher. An empty baseURL means DefaultBaseURL.
func New(baseURL string, obs events.Observer, opts ...Option) *Dispatcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	d := &Dispatcher{baseURL: strings.TrimRight(baseURL, "/")}
	for t, kind := range DefaultKinds {
		s, err := extract.New(kind, obs)
		if err != nil {
			panic(err)
		}
		WithStrategy(t, s)(d)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// BaseURL returns the site root feed URLs are built on
func (d *Dispatcher) BaseURL() string {
	return d.baseURL
}

// Resolve returns the target for req.
//
//	user    -> <base>/@<input>     embedded JSON
//	hashtag -> <base>/tag/<input>  markup
//	trend   -> <base>/trending     pattern, input ignored
func (d *Dispatcher) Resolve(req models.ScrapeRequest) (Target, error) {
	switch models.ParseScrapeType(string(req.Type)) {
	case models.ScrapeTypeUser:
		name := SanitizeInput(req.Input, "@")
		if name == "" {
			return Target{}, errs.NewInvalidInput("user scrape needs a username")
		}
		return Target{URL: d.baseURL + "/@" + url.PathEscape(name), Strategy: d.user}, nil

	case models.ScrapeTypeHashtag:
		tag := SanitizeInput(req.Input, "#")
		if tag == "" {
			return Target{}, errs.NewInvalidInput("hashtag scrape needs a tag")
		}
		return Target{URL: d.baseURL + "/tag/" + url.PathEscape(tag), Strategy: d.hashtag}, nil

	case models.ScrapeTypeTrend:
		return Target{URL: d.baseURL + "/trending", Strategy: d.trending}, nil

	default:
		return Target{}, errs.NewUnsupportedType(string(req.Type))
	}
}

// SanitizeInput trims spaces, trailing slashes and the given leading marker
func SanitizeInput(input, marker string) string {
	s := strings.TrimSpace(input)
	s = strings.TrimRight(s, "/")
	s = strings.TrimPrefix(s, marker)
	return strings.TrimSpace(s)
}
