package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/services"
	"github.com/desertthunder/reels/internal/shared"
)

// maxPollErrors is the number of consecutive failed polls tolerated before giving up.
const maxPollErrors = 3

// WaitUpload polls the upload status until it is complete or failed.
func (e *PublishEngine) WaitUpload(ctx context.Context, progress chan<- ProgressUpdate, uploadID string) (*models.UploadStatusResponse, error) {
	if e.uploads == nil {
		return nil, fmt.Errorf("%w: upload client not initialized", shared.ErrServiceUnavailable)
	}

	status, err := poll(ctx, e.polling.UploadInterval(), func(ctx context.Context) (*models.UploadStatusResponse, bool, error) {
		status, err := e.uploads.Status(ctx, uploadID)
		if err != nil {
			if services.IsNotFound(err) {
				return nil, true, fmt.Errorf("%w: %s", shared.ErrUploadNotFound, uploadID)
			}
			e.logger.Warn("upload status poll failed", "upload_id", uploadID, "err", err)
			return nil, false, err
		}
		e.sendProgress(progress, uploadStatusUpdate(uploadID, status))
		return status, status.Status.IsTerminal(), nil
	})
	if err != nil {
		return status, err
	}
	if status.Status == models.UploadError {
		return status, fmt.Errorf("%w: %s", shared.ErrUploadFailed, status.Error)
	}
	return status, nil
}

// WaitJob polls a processing job until it is complete or failed.
func (e *PublishEngine) WaitJob(ctx context.Context, progress chan<- ProgressUpdate, jobID string) (*models.ProcessingJob, error) {
	if e.jobs == nil {
		return nil, fmt.Errorf("%w: job client not initialized", shared.ErrServiceUnavailable)
	}

	job, err := poll(ctx, e.polling.JobInterval(), func(ctx context.Context) (*models.ProcessingJob, bool, error) {
		job, err := e.jobs.Job(ctx, jobID)
		if err != nil {
			if services.IsNotFound(err) {
				return nil, true, fmt.Errorf("%w: %s", shared.ErrJobNotFound, jobID)
			}
			e.logger.Warn("job status poll failed", "job_id", jobID, "err", err)
			return nil, false, err
		}
		e.sendProgress(progress, jobStatusUpdate(job))
		return job, job.Status.IsTerminal(), nil
	})
	if err != nil {
		return job, err
	}
	if job.Status == models.JobError {
		return job, fmt.Errorf("%w: %s", shared.ErrProcessingFailed, job.Error)
	}
	return job, nil
}

// poll calls check at most once per interval until it reports done, returns a fatal error
// (done with a non-nil error) or fails maxPollErrors times in a row.
func poll[T any](ctx context.Context, interval time.Duration, check func(context.Context) (*T, bool, error)) (*T, error) {
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	var last *T
	failures := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return last, context.Cause(ctx)
			}
			return last, fmt.Errorf("%w: %v", shared.ErrTimeout, err)
		}

		v, done, err := check(ctx)
		if err != nil {
			if done {
				return last, err
			}
			failures++
			if failures >= maxPollErrors {
				return last, err
			}
			continue
		}

		failures = 0
		last = v
		if done {
			return v, nil
		}
	}
}
