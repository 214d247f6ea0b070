package scraper

import (
	"context"

	"ttscraper/pkg/dispatch"
	"ttscraper/pkg/fetch"
	"ttscraper/pkg/models"
)

// Fetcher retrieves a feed page under the request policy
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.RawResponse, error)
}

// Resolver maps a request to the page to fetch and the strategy to parse it
type Resolver interface {
	Resolve(req models.ScrapeRequest) (dispatch.Target, error)
}
