package main

import (
	"context"
	"fmt"

	"ttscraper/internal/downloader"
	"ttscraper/pkg/config"
	"ttscraper/pkg/dispatch"
	"ttscraper/pkg/events"
	"ttscraper/pkg/fetch"
	"ttscraper/pkg/history"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/models"
	"ttscraper/pkg/retry"
	"ttscraper/pkg/scraper"
	"ttscraper/pkg/storage"
)

// app wires the scrape engine and its post-steps from one Config
type app struct {
	cfg     *config.Config
	log     logger.Logger
	scraper *scraper.Scraper
	client  *fetch.Client
	media   *fetch.Client
	obs     events.Observer
}

func newApp(cfg *config.Config, log logger.Logger, opts ...fetch.Option) *app {
	obs := events.NewLogObserver(log)
	base := append([]fetch.Option{fetch.WithLogger(log), fetch.WithObserver(obs)}, opts...)

	client := fetch.New(cfg.Fetch, base...)

	// the download pool owns retries for media, so its client makes one attempt per call
	mediaCfg := cfg.Fetch
	mediaCfg.MaxAttempts = 1
	mediaCfg.Timeout = cfg.Download.Timeout
	mediaCfg.UserAgent = client.UserAgent()
	media := fetch.New(mediaCfg, base...)

	a := &app{cfg: cfg, log: log, client: client, media: media, obs: obs}
	a.scraper = a.engine(models.ScrapeRequest{Type: models.ScrapeTypeTrend, Count: cfg.Scrape.DefaultCount})
	return a
}

// engine builds a scraper over the app's fetch client that merges defaults under every call
func (a *app) engine(defaults models.ScrapeRequest) *scraper.Scraper {
	return scraper.New(a.client, dispatch.New(a.cfg.Scrape.BaseURL, a.obs),
		scraper.WithDefaults(defaults),
		scraper.WithLogger(a.log),
		scraper.WithObserver(a.obs),
	)
}

// outcome is what one CLI scrape produced
type outcome struct {
	Result   *models.ScrapeResult `json:"result"`
	Files    []string             `json:"files,omitempty"`
	Download *downloader.Summary  `json:"download,omitempty"`
}

// run scrapes req and then applies the download, export and history post-steps
func (a *app) run(ctx context.Context, req models.ScrapeRequest) (*outcome, error) {
	result, err := a.scraper.Scrape(ctx, req)
	if err != nil {
		return nil, err
	}
	out := &outcome{Result: result}

	merged := req.Merge(a.scraper.Defaults())
	merged.Type = models.ParseScrapeType(string(merged.Type))
	input := merged.Input
	if input == "" {
		input = string(merged.Type)
	}

	if merged.Download && len(result.Collector) > 0 {
		summary, err := a.download(ctx, result, input)
		if err != nil {
			return nil, err
		}
		out.Download = &summary
	}

	ft := storage.ParseFileType(a.cfg.Output.FileType)
	if ft != storage.FileTypeNone {
		files, err := storage.NewExporter(a.cfg.Output.Directory).Export(result, input, ft)
		if err != nil {
			return nil, fmt.Errorf("export failed: %w", err)
		}
		out.Files = files
	}

	if a.cfg.History.Enabled {
		store, err := history.NewStore(a.cfg.History.Directory, a.log)
		if err != nil {
			return nil, err
		}
		location := a.cfg.Output.Directory
		if len(out.Files) > 0 {
			location = out.Files[0]
		}
		if _, err := store.Record(string(merged.Type), merged.Input, len(result.Collector), location); err != nil {
			// history failures are logged, not returned
			a.log.WithError(err).Warn("Failed to update history")
		}
	}

	return out, nil
}

func (a *app) download(ctx context.Context, result *models.ScrapeResult, input string) (downloader.Summary, error) {
	store, err := storage.NewManager(a.cfg.Output.Directory)
	if err != nil {
		return downloader.Summary{}, err
	}

	summary := downloader.DownloadRecords(ctx, result.Collector, input, func(ctx context.Context) *downloader.WorkerPool {
		return downloader.NewWorkerPool(ctx, a.cfg.Download.Concurrent, a.media, store, nil, a.log,
			downloader.WithRetry(a.cfg.Fetch.MaxAttempts, retry.DefaultExponentialBackoff()))
	})

	a.log.InfoWithFields("Downloads finished", map[string]interface{}{
		"input":   input,
		"saved":   summary.Saved,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	})
	if summary.NoVideoURL > 0 {
		a.log.WarnWithFields("Posts carry no video URL, only user feeds expose one", map[string]interface{}{
			"input": input,
			"posts": summary.NoVideoURL,
		})
	}
	return summary, nil
}
