// Package scraper runs one scrape end to end.
//
// A call resolves the request to a feed target, fetches the page under the
// request policy and hands the body to the target's extraction strategy.
// The result holds at most Count records with unique ids, in the order the
// strategy produced them. An empty result is a success.
//
//	s := scraper.New(
//	    fetch.New(cfg.Fetch),
//	    dispatch.New(cfg.Scrape.BaseURL, obs),
//	    scraper.WithDefaults(models.ScrapeRequest{Count: cfg.Scrape.DefaultCount}),
//	)
//	result, err := s.Scrape(ctx, models.ScrapeRequest{Type: models.ScrapeTypeTrend, Count: 5})
//
// Errors come back typed: unsupported type and invalid input before any
// network call, network after the retry budget is spent, extraction when
// an embedded payload cannot be decoded.
package scraper
