package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/reels/internal/formatter"
	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/shared"
)

const (
	defaultBulkWorkers = 2
	maxBulkWorkers     = 5
)

// BulkOpts contains configuration for publishing many files.
type BulkOpts struct {
	Template          PublishOpts // Metadata applied to every file; Path is ignored
	TitleFromFileName bool        // Create a reel per file titled after its file name
	NumWorkers        int         // Concurrent publishes (default: 2, max: 5)
	RateLimit         float64     // Upload initiations per second (default: 1)
	ManifestPath      string      // Optional manifest destination
}

type bulkJob struct {
	index int
	path  string
}

// BulkPublish publishes multiple files concurrently with a worker pool.
//
// Chunk concurrency stays bounded by the manager's semaphore, which every worker shares.
// Failed files are collected rather than aborting the run; the error is non-nil only when
// the run could not start or the manifest could not be written.
func (e *PublishEngine) BulkPublish(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	paths []string,
	opts BulkOpts,
) (*models.BulkResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files to publish", shared.ErrMissingArgument)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultBulkWorkers
	}
	if opts.NumWorkers > maxBulkWorkers {
		opts.NumWorkers = maxBulkWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1.0
	}

	result := &models.BulkResult{
		StartedAt:  time.Now(),
		TotalFiles: len(paths),
		Results:    make([]models.BulkItemResult, len(paths)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan bulkJob, len(paths))
	results := make(chan indexedResult, len(paths))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.publishWorker(ctx, &wg, jobs, results, opts)
	}

	e.sendProgress(prog, bulkQueuedUpdate(len(paths)))

	go func() {
		defer close(jobs)
		for i, path := range paths {
			if err := limiter.Wait(ctx); err != nil {
				for j := i; j < len(paths); j++ {
					results <- indexedResult{index: j, res: failedItem(paths[j], err)}
				}
				return
			}
			jobs <- bulkJob{index: i, path: path}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for r := range results {
		completed++
		result.Results[r.index] = r.res
		result.TotalBytes += r.res.Size
		if r.res.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
		e.sendProgress(prog, bulkItemUpdate(completed, len(paths), r.res))
	}
	result.FinishedAt = time.Now()

	if opts.ManifestPath != "" {
		if err := formatter.WriteBulkManifest(result, opts.ManifestPath); err != nil {
			return result, fmt.Errorf("bulk publish completed but failed to write manifest: %w", err)
		}
		result.ManifestPath = opts.ManifestPath
	}
	return result, nil
}

type indexedResult struct {
	index int
	res   models.BulkItemResult
}

// publishWorker publishes files from the jobs channel until it is drained.
func (e *PublishEngine) publishWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan bulkJob,
	results chan<- indexedResult,
	opts BulkOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if err := ctx.Err(); err != nil {
			results <- indexedResult{index: job.index, res: failedItem(job.path, context.Cause(ctx))}
			continue
		}
		results <- indexedResult{index: job.index, res: e.publishOne(ctx, job.path, opts)}
	}
}

// publishOne runs the single-file pipeline and flattens the outcome into a manifest entry.
func (e *PublishEngine) publishOne(ctx context.Context, path string, opts BulkOpts) models.BulkItemResult {
	po := opts.Template
	po.Path = path
	if opts.TitleFromFileName && po.Title == "" {
		po.Title = TitleFromFileName(path)
	}

	res, err := e.Publish(ctx, nil, po)

	item := models.BulkItemResult{Path: path, FileName: filepath.Base(path), Status: models.UploadError}
	if res != nil {
		item.Size = res.File.Size
		item.Warnings = res.Validation.Warnings
		item.ElapsedMS = res.Elapsed.Milliseconds()
		if res.Upload != nil {
			item.UploadID = res.Upload.ID
			item.ReelID = res.Upload.ReelID
			item.JobID = res.Upload.ProcessingJobID
			item.Status = res.Upload.Status
		}
	}
	if err != nil {
		item.Error = err.Error()
		item.Status = models.UploadError
		return item
	}
	item.Success = true
	return item
}

// TitleFromFileName turns "spindle_setup-part-2.mp4" into "spindle setup part 2".
func TitleFromFileName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}

func failedItem(path string, err error) models.BulkItemResult {
	return models.BulkItemResult{
		Path:     path,
		FileName: filepath.Base(path),
		Status:   models.UploadError,
		Error:    err.Error(),
	}
}
