package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"ttscraper/pkg/logger"
	"ttscraper/pkg/ratelimit"
	"ttscraper/pkg/retry"
)

// DownloadJob represents a single video download
type DownloadJob struct {
	URL    string
	PostID string
	Input  string
}

// DownloadResult represents the result of a download job
type DownloadResult struct {
	Job      DownloadJob
	Success  bool
	Skipped  bool
	Path     string
	Error    error
	Duration time.Duration
	Size     int
}

// VideoDownloader fetches media bytes
type VideoDownloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// VideoStorage persists downloaded media
type VideoStorage interface {
	IsDownloaded(input, postID string) bool
	SaveVideo(r io.Reader, input, postID string) (string, error)
}

// Option configures a WorkerPool
type Option func(*WorkerPool)

// WithRetry retries a failed job up to attempts times on the given schedule
func WithRetry(attempts int, backoff retry.BackoffStrategy) Option {
	return func(wp *WorkerPool) {
		wp.attempts = attempts
		wp.backoff = backoff
	}
}

// WorkerPool manages concurrent download workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan DownloadJob
	resultQueue chan DownloadResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	client      VideoDownloader
	storage     VideoStorage
	rateLimiter ratelimit.Limiter
	attempts    int
	backoff     retry.BackoffStrategy
	logger      logger.Logger
}

// NewWorkerPool creates a new download worker pool bound to ctx
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	client VideoDownloader,
	storage VideoStorage,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
	opts ...Option,
) *WorkerPool {
	ctx, cancel := context.WithCancel(ctx)

	if log == nil {
		log = logger.GetLogger()
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}

	wp := &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan DownloadJob, numWorkers*2),
		resultQueue: make(chan DownloadResult, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		client:      client,
		storage:     storage,
		rateLimiter: rateLimiter,
		attempts:    1,
		backoff:     retry.DefaultExponentialBackoff(),
		logger:      log,
	}
	for _, opt := range opts {
		opt(wp)
	}
	return wp
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("Starting download pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for in-flight jobs and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Debug("Download pool stopped")
}

// Submit adds a new download job to the queue
func (wp *WorkerPool) Submit(job DownloadJob) error {
	if err := wp.ctx.Err(); err != nil {
		return fmt.Errorf("download pool is shutting down: %w", err)
	}
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("download pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel for consuming download results
func (wp *WorkerPool) Results() <-chan DownloadResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		var result DownloadResult
		if err := wp.ctx.Err(); err != nil {
			result = DownloadResult{Job: job, Error: err}
		} else {
			result = wp.processJob(job, id)
		}

		// results are always delivered so Stop never strands a reader
		wp.resultQueue <- result
	}
}

func (wp *WorkerPool) processJob(job DownloadJob, workerID int) DownloadResult {
	start := time.Now()
	result := DownloadResult{Job: job}

	if job.URL == "" {
		result.Skipped = true
		result.Duration = time.Since(start)
		logger.LogDownload(wp.logger, job.Input, job.PostID, false, nil)
		return result
	}

	if wp.storage.IsDownloaded(job.Input, job.PostID) {
		result.Success = true
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}

	if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	err := retry.Do(func() error {
		data, err := wp.client.Download(wp.ctx, job.URL)
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
		result.Size = len(data)

		path, err := wp.storage.SaveVideo(bytes.NewReader(data), job.Input, job.PostID)
		if err != nil {
			return fmt.Errorf("save failed: %w", err)
		}
		result.Path = path
		return nil
	}, &retry.Config{
		MaxAttempts: wp.attempts,
		Backoff:     wp.backoff,
		RetryIf:     func(err error) bool { return err != nil && wp.ctx.Err() == nil },
		Context:     wp.ctx,
		Logger:      wp.logger,
	})

	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
	} else {
		result.Success = true
	}

	wp.logger.DebugWithFields("Worker finished job", map[string]interface{}{
		"worker_id": workerID,
		"post_id":   job.PostID,
		"size":      result.Size,
		"duration":  result.Duration,
	})
	logger.LogDownload(wp.logger, job.Input, job.PostID, result.Success, result.Error)

	return result
}
