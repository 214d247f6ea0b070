package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ttscraper/pkg/config"
	"ttscraper/pkg/dispatch"
	errs "ttscraper/pkg/errors"
	"ttscraper/pkg/events"
	"ttscraper/pkg/fetch"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/models"
)

// countingFetcher records how many times the pipeline reached the network
type countingFetcher struct {
	calls int32
	body  string
}

func (c *countingFetcher) Fetch(ctx context.Context, url string) (*fetch.RawResponse, error) {
	atomic.AddInt32(&c.calls, 1)
	return &fetch.RawResponse{StatusCode: http.StatusOK, Body: c.body, URL: url}, nil
}

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func trendingPage(ids ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, id := range ids {
		fmt.Fprintf(&b, `<div data-e2e="user-post-item"><a href="/@dj/video/%s" data-video-id="%s">`+
			`<span data-e2e="video-title">clip %s</span></a></div>`, id, id, id)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func profilePage(ids ...string) string {
	items := make([]string, 0, len(ids))
	for _, id := range ids {
		items = append(items, fmt.Sprintf(`{"id":%q,"desc":"post %s","author":{"uniqueId":"alice"}}`, id, id))
	}
	return `<html><head><script id="__UNIVERSAL_DATA_FOR_REHYDRATION__" type="application/json">` +
		`{"__DEFAULT_SCOPE__":{"webapp.user-detail":{"itemList":[` + strings.Join(items, ",") + `]}}}` +
		`</script></head><body></body></html>`
}

func fetchConfig(attempts int, base time.Duration) config.FetchConfig {
	return config.FetchConfig{
		MaxAttempts: attempts,
		BaseDelay:   base,
		Timeout:     5 * time.Second,
		UserAgent:   "ttscraper-test/1.0",
	}
}

func newTestScraper(baseURL string, f Fetcher, opts ...Option) *Scraper {
	opts = append([]Option{WithLogger(logger.NewNopLogger())}, opts...)
	return New(f, dispatch.New(baseURL, nil), opts...)
}

func TestUnsupportedTypeMakesNoFetch(t *testing.T) {
	f := &countingFetcher{}
	s := newTestScraper("http://feed.test", f)

	result, err := s.Scrape(context.Background(), models.ScrapeRequest{Type: "music", Input: "x"})
	assert.Nil(t, result)
	assert.True(t, errs.IsUnsupportedType(err))
	assert.Zero(t, atomic.LoadInt32(&f.calls))
}

func TestInvalidInputMakesNoFetch(t *testing.T) {
	f := &countingFetcher{}
	s := newTestScraper("http://feed.test", f)

	_, err := s.Scrape(context.Background(), models.ScrapeRequest{Type: models.ScrapeTypeUser})
	assert.True(t, errs.IsInvalidInput(err))
	assert.Zero(t, atomic.LoadInt32(&f.calls))
}

func TestTrendCountKeepsDocumentOrder(t *testing.T) {
	paths := make(chan string, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		fmt.Fprint(w, trendingPage("11", "12", "13", "14", "15", "16", "17"))
	}))
	defer server.Close()

	client := fetch.New(fetchConfig(3, time.Millisecond), fetch.WithLogger(logger.NewNopLogger()))
	rec := &events.Recorder{}
	s := newTestScraper(server.URL, client, WithObserver(rec))

	result, err := s.Scrape(context.Background(), models.ScrapeRequest{Type: models.ScrapeTypeTrend, Count: 5})
	require.NoError(t, err)

	ids := make([]string, 0, len(result.Collector))
	for _, r := range result.Collector {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"11", "12", "13", "14", "15"}, ids)
	require.Len(t, paths, 1)
	assert.Equal(t, "/trending", <-paths)
	assert.Equal(t, 1, rec.Count(events.ScrapeStarted))
	assert.Equal(t, 1, rec.Count(events.ScrapeCompleted))
}

func TestUserRecoversAfterTransportFailures(t *testing.T) {
	var calls int32
	rt := &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			return nil, errors.New("dial tcp: connection refused")
		}
		assert.Equal(t, "/@alice", req.URL.Path)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString(profilePage("1", "2", "3"))),
			Header:     make(http.Header),
		}, nil
	}}

	base := 20 * time.Millisecond
	client := fetch.New(fetchConfig(3, base), fetch.WithLogger(logger.NewNopLogger()), fetch.WithTransport(rt))
	s := newTestScraper("http://feed.test", client)

	start := time.Now()
	result, err := s.Scrape(context.Background(), models.ScrapeRequest{Type: models.ScrapeTypeUser, Input: "alice"})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Len(t, result.Collector, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, elapsed, base*1+base*2)
}

func TestNetworkErrorPropagates(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := fetch.New(fetchConfig(2, time.Millisecond), fetch.WithLogger(logger.NewNopLogger()))
	s := newTestScraper(server.URL, client)

	result, err := s.Scrape(context.Background(), models.ScrapeRequest{Type: models.ScrapeTypeHashtag, Input: "cats"})
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errs.IsNetwork(err))

	var statusErr *errs.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEmptyFeedIsSuccess(t *testing.T) {
	f := &countingFetcher{body: "<html><body>nothing here</body></html>"}
	s := newTestScraper("http://feed.test", f)

	result, err := s.Scrape(context.Background(), models.ScrapeRequest{Type: "trending"})
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"collector":[]}`, string(data))
}

func TestExtractionErrorSurfaces(t *testing.T) {
	f := &countingFetcher{body: `<script id="SIGI_STATE">{"ItemModule": [</script>`}
	s := newTestScraper("http://feed.test", f)

	_, err := s.Scrape(context.Background(), models.ScrapeRequest{Type: models.ScrapeTypeUser, Input: "alice"})
	assert.True(t, errs.IsExtraction(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
}

func TestDuplicateIDsDropped(t *testing.T) {
	f := &countingFetcher{body: trendingPage("1", "2", "1", "3", "2")}
	s := newTestScraper("http://feed.test", f)

	result, err := s.Scrape(context.Background(), models.ScrapeRequest{Type: models.ScrapeTypeTrend, Count: 10})
	require.NoError(t, err)
	require.Len(t, result.Collector, 3)
	assert.Equal(t, "3", result.Collector[2].ID)
}

func TestDefaultsMerge(t *testing.T) {
	f := &countingFetcher{body: trendingPage("1", "2", "3", "4")}
	s := newTestScraper("http://feed.test", f,
		WithDefaults(models.ScrapeRequest{Type: models.ScrapeTypeTrend, Count: 2}))

	result, err := s.Scrape(context.Background(), models.ScrapeRequest{})
	require.NoError(t, err)
	assert.Len(t, result.Collector, 2)

	result, err = s.Scrape(context.Background(), models.ScrapeRequest{Count: 3})
	require.NoError(t, err)
	assert.Len(t, result.Collector, 3)

	assert.Equal(t, 2, s.Defaults().Count)
}

func TestConcurrentScrapes(t *testing.T) {
	f := &countingFetcher{body: trendingPage("1", "2", "3")}
	s := newTestScraper("http://feed.test", f)

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(n int) {
			result, err := s.Scrape(context.Background(), models.ScrapeRequest{Type: models.ScrapeTypeTrend, Count: n%3 + 1})
			if err == nil && len(result.Collector) != n%3+1 {
				err = fmt.Errorf("request %d got %d records", n, len(result.Collector))
			}
			done <- err
		}(i)
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-done)
	}
}
