package scraper

import (
	"context"
	"time"

	errs "ttscraper/pkg/errors"
	"ttscraper/pkg/events"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/models"
)

// Scraper orchestrates dispatch, fetch and extraction. Its fields are set
// once by New, so one Scraper can serve concurrent calls.
type Scraper struct {
	fetcher  Fetcher
	resolver Resolver
	defaults models.ScrapeRequest
	logger   logger.Logger
	observer events.Observer
}

// Option configures a Scraper
type Option func(*Scraper)

// WithDefaults sets the values merged under every incoming request
func WithDefaults(defaults models.ScrapeRequest) Option {
	return func(s *Scraper) { s.defaults = defaults }
}

// WithLogger sets the scraper's logger
func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// WithObserver sets the observer for scrape events
func WithObserver(obs events.Observer) Option {
	return func(s *Scraper) { s.observer = obs }
}

// New creates a Scraper
func New(fetcher Fetcher, resolver Resolver, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher:  fetcher,
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.GetLogger()
	}
	s.observer = events.OrNop(s.observer)
	return s
}

// Defaults returns the request values merged under every call
func (s *Scraper) Defaults() models.ScrapeRequest {
	return s.defaults
}

// Scrape runs one request and returns at most req.Count records
func (s *Scraper) Scrape(ctx context.Context, req models.ScrapeRequest) (*models.ScrapeResult, error) {
	req = req.Merge(s.defaults)
	req.Type = models.ParseScrapeType(string(req.Type))
	log := s.logger.WithFields(map[string]interface{}{
		"type":  string(req.Type),
		"input": req.Input,
	})

	target, err := s.resolver.Resolve(req)
	if err != nil {
		log.WithError(err).Warn("Request rejected")
		return nil, err
	}

	start := time.Now()
	s.observer.Observe(events.Event{
		Kind: events.ScrapeStarted,
		Fields: map[string]interface{}{
			"type":     string(req.Type),
			"input":    req.Input,
			"url":      target.URL,
			"strategy": string(target.Strategy.Kind()),
			"count":    req.Count,
		},
	})
	log.DebugWithFields("Fetching feed", map[string]interface{}{
		"url":      target.URL,
		"strategy": string(target.Strategy.Kind()),
	})

	resp, err := s.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		return nil, err
	}

	records, err := target.Strategy.Extract(resp.Body)
	if err != nil {
		if !errs.IsExtraction(err) {
			err = errs.NewExtraction("extraction failed", err)
		}
		log.WithError(err).Error("Extraction failed")
		return nil, err
	}

	extracted := len(records)
	records = dedupe(records)
	if len(records) > req.Count {
		records = records[:req.Count]
	}

	s.observer.Observe(events.Event{
		Kind: events.ScrapeCompleted,
		Fields: map[string]interface{}{
			"type":      string(req.Type),
			"input":     req.Input,
			"extracted": extracted,
			"returned":  len(records),
			"duration":  time.Since(start),
		},
	})
	logger.LogScrapeSummary(log, string(req.Type), req.Input, req.Count, len(records))

	return models.NewScrapeResult(records), nil
}

// dedupe drops records whose id was already seen, keeping the first
func dedupe(records []models.PostRecord) []models.PostRecord {
	seen := make(map[string]struct{}, len(records))
	out := records[:0]
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
