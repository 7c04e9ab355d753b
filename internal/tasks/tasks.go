// package tasks implements the publish pipeline that takes a local training video to a processed reel.
//
// The core abstraction is PublishEngine, which orchestrates validation, chunked upload, finalization,
// reel creation and job polling. Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/services"
	"github.com/desertthunder/reels/internal/shared"
	"github.com/desertthunder/reels/internal/upload"
	"github.com/desertthunder/reels/internal/validation"
)

// FileValidator runs pre-flight checks on a local file.
type FileValidator interface {
	ValidateFile(ctx context.Context, path string) (validation.Result, validation.FileInfo, error)
}

// UploadClient is the subset of the upload endpoints the engine drives.
type UploadClient interface {
	Initiate(ctx context.Context, req models.InitiateUploadRequest) (*models.InitiateUploadResponse, error)
	Complete(ctx context.Context, uploadID string, chunks []models.CompletedChunk) (*models.CompleteUploadResponse, error)
	Status(ctx context.Context, uploadID string) (*models.UploadStatusResponse, error)
	Cancel(ctx context.Context, uploadID string) error
}

// ReelClient creates reels from finalized uploads.
type ReelClient interface {
	Create(ctx context.Context, req models.CreateReelRequest) (*models.CreateReelResponse, error)
}

// JobClient reads processing job state.
type JobClient interface {
	Job(ctx context.Context, jobID string) (*models.ProcessingJob, error)
}

// APIClient defines the raw request interface used for the backend overview.
type APIClient interface {
	Get(ctx context.Context, path string) (*services.APIResponse, error)
}

// UploadRecorder persists the local ledger of uploads. Recording failures are logged and never
// interrupt a publish.
type UploadRecorder interface {
	// Begin records a freshly initiated upload and returns the local session id.
	Begin(path, mimeType, title string, chunkSize int64, upload models.VideoUpload) (string, error)
	// Record stores the latest state of the upload, including its chunk entity tags.
	Record(sessionID string, upload models.VideoUpload) error
}

// PublishOpts describes one file to publish.
type PublishOpts struct {
	Path string

	// Reel metadata. A reel is created only when Title is set.
	Title               string
	Description         string
	Tags                []string
	MachineModel        string
	ProcessStep         string
	Tooling             []string
	Privacy             models.Privacy
	CustomerAllocations []string

	// Wait polls the processing job until it reaches a terminal state.
	Wait bool
}

// PublishResult collects everything learned while publishing one file.
type PublishResult struct {
	SessionID  string
	File       validation.FileInfo
	Validation validation.Result
	Upload     *models.VideoUpload
	Completion *models.CompleteUploadResponse
	Reel       *models.Reel
	Job        *models.ProcessingJob
	Elapsed    time.Duration
}

// EngineDeps wires a [PublishEngine]. Reels, Jobs, API and Recorder are optional.
type EngineDeps struct {
	Validator FileValidator
	Manager   *upload.Manager
	Uploads   UploadClient
	Reels     ReelClient
	Jobs      JobClient
	API       APIClient
	Recorder  UploadRecorder
	Polling   shared.PollingConfig
	Logger    *log.Logger
}

// PublishEngine orchestrates the publish pipeline.
type PublishEngine struct {
	validator FileValidator
	manager   *upload.Manager
	uploads   UploadClient
	reels     ReelClient
	jobs      JobClient
	api       APIClient
	recorder  UploadRecorder
	polling   shared.PollingConfig
	logger    *log.Logger
}

// NewPublishEngine creates an engine from deps, filling polling defaults.
func NewPublishEngine(deps EngineDeps) *PublishEngine {
	polling := deps.Polling
	if polling.UploadIntervalMS <= 0 {
		polling.UploadIntervalMS = 2000
	}
	if polling.JobIntervalMS <= 0 {
		polling.JobIntervalMS = 3000
	}
	logger := deps.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &PublishEngine{
		validator: deps.Validator,
		manager:   deps.Manager,
		uploads:   deps.Uploads,
		reels:     deps.Reels,
		jobs:      deps.Jobs,
		api:       deps.API,
		recorder:  deps.Recorder,
		polling:   polling,
		logger:    logger,
	}
}

// Manager returns the upload manager driving chunk transfers.
func (e *PublishEngine) Manager() *upload.Manager { return e.manager }

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PublishEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// AbortActive aborts every upload the manager is still running and returns how many were aborted.
func (e *PublishEngine) AbortActive() int {
	if e.manager == nil {
		return 0
	}
	n := 0
	for _, u := range e.manager.Uploads() {
		if !u.Status.IsTerminal() && e.manager.AbortUpload(u.ID) {
			n++
		}
	}
	return n
}

// Publish validates, uploads and finalizes one file, then optionally creates a reel and waits
// for its processing job.
//
// Blocking validation errors abort before any network call. On failure the partial result is
// returned alongside the error.
func (e *PublishEngine) Publish(ctx context.Context, progress chan<- ProgressUpdate, opts PublishOpts) (*PublishResult, error) {
	if e.validator == nil || e.manager == nil || e.uploads == nil {
		return nil, fmt.Errorf("%w: publish engine not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: file path", shared.ErrMissingArgument)
	}

	started := time.Now()
	result := &PublishResult{}
	defer func() { result.Elapsed = time.Since(started) }()

	e.sendProgress(progress, validatingUpdate(opts.Path))
	res, info, err := e.validator.ValidateFile(ctx, opts.Path)
	result.File = info
	result.Validation = res
	if err != nil {
		return result, err
	}
	if err := res.Err(); err != nil {
		return result, err
	}
	e.sendProgress(progress, validatedUpdate(res))
	for _, w := range res.Warnings {
		e.sendProgress(progress, warningUpdate(w))
	}

	file, err := os.Open(opts.Path)
	if err != nil {
		return result, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	defer file.Close()

	chunkSize := e.manager.Config().ChunkSize
	chunkCount := upload.ChunkCount(info.Size, chunkSize)

	e.sendProgress(progress, initiateUpdate(info.Name, chunkCount))
	initiated, err := e.uploads.Initiate(ctx, models.InitiateUploadRequest{
		FileName:   info.Name,
		FileSize:   info.Size,
		FileType:   info.MimeType,
		ChunkCount: chunkCount,
	})
	if err != nil {
		return result, fmt.Errorf("failed to initiate upload: %w", err)
	}

	uploadID := initiated.UploadID
	logger := shared.WithLogger(e.logger, "upload_id", uploadID)
	defer e.manager.CleanupUpload(uploadID)

	pending := models.VideoUpload{
		ID:       uploadID,
		FileName: info.Name,
		Size:     info.Size,
		Status:   models.UploadUploading,
		Chunks:   upload.Partition(info.Size, chunkSize),
	}
	result.SessionID = e.begin(logger, opts, info, chunkSize, pending)

	snapshots := make(chan models.VideoUpload)
	var fwd sync.WaitGroup
	fwd.Add(1)
	go func() {
		defer fwd.Done()
		for s := range snapshots {
			e.sendProgress(progress, uploadUpdate(s))
		}
	}()

	final, err := e.manager.StartUpload(ctx, upload.Request{
		ID:        uploadID,
		FileName:  info.Name,
		File:      file,
		Size:      info.Size,
		ChunkURLs: initiated.ChunkURLs,
		Progress:  snapshots,
	})
	close(snapshots)
	fwd.Wait()

	if final != nil {
		result.Upload = final
		e.record(logger, result.SessionID, *final)
	}
	if err != nil {
		if errors.Is(err, upload.ErrUploadAborted) {
			e.cancelRemote(ctx, logger, uploadID)
		}
		return result, fmt.Errorf("%w: %w", shared.ErrUploadFailed, err)
	}

	e.sendProgress(progress, completingUpdate(uploadID))
	completion, err := e.uploads.Complete(ctx, uploadID, final.CompletedChunks())
	if err != nil {
		e.markError(logger, result, err)
		return result, fmt.Errorf("failed to complete upload: %w", err)
	}
	if !completion.Success {
		err := fmt.Errorf("%w: server rejected multipart completion", shared.ErrUploadFailed)
		e.markError(logger, result, err)
		return result, err
	}
	result.Completion = completion
	result.Upload.Status = models.UploadProcessing
	result.Upload.ProcessingJobID = completion.ProcessingJobID
	result.Upload.ReelID = completion.ReelID
	e.record(logger, result.SessionID, *result.Upload)
	e.sendProgress(progress, completedUpdate(completion))

	jobID := completion.ProcessingJobID
	if opts.Title != "" && e.reels != nil {
		e.sendProgress(progress, createReelUpdate(0, opts.Title, nil))
		created, err := e.reels.Create(ctx, models.CreateReelRequest{
			UploadID:            uploadID,
			Title:               opts.Title,
			Description:         opts.Description,
			Tags:                opts.Tags,
			MachineModel:        opts.MachineModel,
			ProcessStep:         opts.ProcessStep,
			Tooling:             opts.Tooling,
			Privacy:             opts.Privacy,
			CustomerAllocations: opts.CustomerAllocations,
		})
		if err != nil {
			return result, fmt.Errorf("failed to create reel: %w", err)
		}
		result.Reel = &created.Reel
		result.Upload.ReelID = created.Reel.ID
		if created.ProcessingJob != nil {
			result.Job = created.ProcessingJob
			jobID = created.ProcessingJob.ID
			result.Upload.ProcessingJobID = jobID
		}
		e.record(logger, result.SessionID, *result.Upload)
		e.sendProgress(progress, createReelUpdate(1, opts.Title, result.Reel))
	}

	if opts.Wait && jobID != "" && e.jobs != nil {
		job, err := e.WaitJob(ctx, progress, jobID)
		if job != nil {
			result.Job = job
		}
		if err != nil {
			e.markError(logger, result, err)
			return result, err
		}
		result.Upload.Status = models.UploadComplete
		e.record(logger, result.SessionID, *result.Upload)
	}

	e.sendProgress(progress, doneUpdate(fmt.Sprintf("Published %s", info.Name), result))
	logger.Info("publish finished", "file", info.Name, "reel_id", result.Upload.ReelID, "job_id", jobID)
	return result, nil
}

func (e *PublishEngine) begin(logger *log.Logger, opts PublishOpts, info validation.FileInfo, chunkSize int64, u models.VideoUpload) string {
	if e.recorder == nil {
		return ""
	}
	id, err := e.recorder.Begin(opts.Path, info.MimeType, opts.Title, chunkSize, u)
	if err != nil {
		logger.Warn("failed to record upload session", "err", err)
		return ""
	}
	return id
}

func (e *PublishEngine) record(logger *log.Logger, sessionID string, u models.VideoUpload) {
	if e.recorder == nil || sessionID == "" {
		return
	}
	if err := e.recorder.Record(sessionID, u); err != nil {
		logger.Warn("failed to update upload session", "session", sessionID, "err", err)
	}
}

func (e *PublishEngine) markError(logger *log.Logger, result *PublishResult, err error) {
	if result.Upload == nil {
		return
	}
	result.Upload.Status = models.UploadError
	result.Upload.Error = err.Error()
	e.record(logger, result.SessionID, *result.Upload)
}

// cancelRemote tells the backend to discard an aborted upload. The request runs detached from ctx.
func (e *PublishEngine) cancelRemote(ctx context.Context, logger *log.Logger, uploadID string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := e.uploads.Cancel(cctx, uploadID); err != nil {
		logger.Warn("failed to cancel upload on server", "err", err)
	}
}
