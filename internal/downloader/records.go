package downloader

import (
	"context"

	"ttscraper/pkg/models"
)

// Summary counts the outcome of a DownloadRecords run. NoVideoURL counts
// the skipped records that had nothing to download.
type Summary struct {
	Saved      int
	Skipped    int
	Failed     int
	NoVideoURL int
}

// DownloadRecords runs one job per record through a fresh pool and sets
// Downloaded on every record whose video is on disk afterwards.
// Individual failures are counted, not returned.
func DownloadRecords(ctx context.Context, records []models.PostRecord, input string, newPool func(ctx context.Context) *WorkerPool) Summary {
	var summary Summary
	index := make(map[string]int, len(records))
	jobs := make([]DownloadJob, 0, len(records))
	for i, r := range records {
		index[r.ID] = i
		jobs = append(jobs, DownloadJob{URL: r.VideoURL, PostID: r.ID, Input: input})
		if r.VideoURL == "" {
			summary.NoVideoURL++
		}
	}

	pool := newPool(ctx)
	pool.Start()

	go func() {
		for _, job := range jobs {
			if err := pool.Submit(job); err != nil {
				break
			}
		}
		pool.Stop()
	}()

	for res := range pool.Results() {
		switch {
		case res.Error != nil:
			summary.Failed++
		case res.Success && res.Skipped:
			summary.Skipped++
			records[index[res.Job.PostID]].Downloaded = true
		case res.Success:
			summary.Saved++
			records[index[res.Job.PostID]].Downloaded = true
		default:
			summary.Skipped++
		}
	}
	return summary
}
