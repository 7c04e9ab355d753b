package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/shared"
)

var (
	ErrUploadAborted      = errors.New("upload aborted")
	ErrChunkStatus        = errors.New("chunk upload rejected")
	ErrMissingETag        = errors.New("no ETag received from server")
	ErrChunkCountMismatch = errors.New("chunk count does not match destination URLs")
	ErrUploadActive       = errors.New("upload already in progress")
)

// AbortedByUserMessage is stored on a record cancelled through [Manager.AbortUpload].
const AbortedByUserMessage = "upload aborted by user"

// Config tunes chunking and retries.
type Config struct {
	ChunkSize           int64
	MaxConcurrentChunks int
	RetryAttempts       int
	RetryDelay          time.Duration
}

// DefaultConfig returns 5 MiB chunks, 3 concurrent transfers and 3 attempts one second apart.
func DefaultConfig() Config {
	return Config{
		ChunkSize:           5 * 1024 * 1024,
		MaxConcurrentChunks: 3,
		RetryAttempts:       3,
		RetryDelay:          time.Second,
	}
}

// ConfigFrom converts the [upload] section of the config file.
func ConfigFrom(c shared.UploadConfig) Config {
	return Config{
		ChunkSize:           c.ChunkSize,
		MaxConcurrentChunks: c.MaxConcurrentChunks,
		RetryAttempts:       c.RetryAttempts,
		RetryDelay:          c.RetryDelay(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.MaxConcurrentChunks <= 0 {
		c.MaxConcurrentChunks = d.MaxConcurrentChunks
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = d.RetryAttempts
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	return c
}

// Request describes one upload.
//
// Progress receives a snapshot after every successful chunk and one terminal snapshot;
// ChunkProgress receives one event per uploaded chunk. Both are optional and are sent to
// with a blocking send that gives up when the caller's context ends.
type Request struct {
	ID            string
	FileName      string
	File          io.ReaderAt
	Size          int64
	ChunkURLs     []string
	Progress      chan<- models.VideoUpload
	ChunkProgress chan<- models.ChunkProgress
}

// Partition splits size bytes into chunkSize ranges numbered from 1.
// A non-positive chunkSize falls back to the default chunk size.
func Partition(size, chunkSize int64) []models.UploadChunk {
	chunkSize = effectiveChunkSize(chunkSize)
	chunks := make([]models.UploadChunk, 0, ChunkCount(size, chunkSize))
	for offset, n := int64(0), 1; offset < size; n++ {
		length := min(chunkSize, size-offset)
		chunks = append(chunks, models.UploadChunk{ChunkNumber: n, Size: length})
		offset += length
	}
	return chunks
}

// ChunkCount returns ceil(size/chunkSize), using the default chunk size when chunkSize is not positive.
func ChunkCount(size, chunkSize int64) int {
	return int(shared.CeilDiv(size, effectiveChunkSize(chunkSize)))
}

func effectiveChunkSize(chunkSize int64) int64 {
	if chunkSize <= 0 {
		return DefaultConfig().ChunkSize
	}
	return chunkSize
}

// Manager owns the upload records and cancellation handles for every upload it starts.
type Manager struct {
	cfg       Config
	transport ChunkTransport
	logger    *log.Logger

	mu      sync.Mutex
	uploads map[string]*models.VideoUpload
	cancels map[string]context.CancelCauseFunc
	sems    map[string]*Semaphore // one per running upload
}

// NewManager creates a manager. A nil transport uses [HTTPTransport] with a default client.
func NewManager(cfg Config, transport ChunkTransport, logger *log.Logger) *Manager {
	cfg = cfg.withDefaults()
	if transport == nil {
		transport = NewHTTPTransport(nil)
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Manager{
		cfg:       cfg,
		transport: transport,
		logger:    logger,
		uploads:   make(map[string]*models.VideoUpload),
		cancels:   make(map[string]context.CancelCauseFunc),
		sems:      make(map[string]*Semaphore),
	}
}

// Config returns the effective configuration.
func (m *Manager) Config() Config { return m.cfg }

// Capacity sums free chunk slots and queued chunks over the running uploads.
// Each upload has its own MaxConcurrentChunks slots.
func (m *Manager) Capacity() (available, waiting int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sem := range m.sems {
		available += sem.Available()
		waiting += sem.Waiting()
	}
	return available, waiting
}

// StartUpload uploads every chunk of req.File and blocks until the upload completes, fails or is aborted.
//
// The returned record is a copy of the final state. On failure the record is still returned
// alongside the error so callers can inspect which chunks made it.
func (m *Manager) StartUpload(ctx context.Context, req Request) (*models.VideoUpload, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("%w: upload id is required", shared.ErrInvalidInput)
	}
	if req.Size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", shared.ErrInvalidInput, req.Size)
	}
	if req.Size > 0 && req.File == nil {
		return nil, fmt.Errorf("%w: file is required", shared.ErrInvalidInput)
	}

	chunks := Partition(req.Size, m.cfg.ChunkSize)
	if len(chunks) != len(req.ChunkURLs) {
		return nil, fmt.Errorf("%w: %d chunks, %d urls", ErrChunkCountMismatch, len(chunks), len(req.ChunkURLs))
	}

	uctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	record := &models.VideoUpload{
		ID:       req.ID,
		FileName: req.FileName,
		Size:     req.Size,
		Status:   models.UploadUploading,
		Chunks:   chunks,
	}

	m.mu.Lock()
	if existing, ok := m.uploads[req.ID]; ok && !existing.Status.IsTerminal() {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUploadActive, req.ID)
	}
	sem := NewSemaphore(m.cfg.MaxConcurrentChunks)
	m.uploads[req.ID] = record
	m.cancels[req.ID] = cancel
	m.sems[req.ID] = sem
	m.mu.Unlock()
	defer m.releaseSemaphore(req.ID, sem)

	logger := shared.WithLogger(m.logger, "upload_id", req.ID)
	logger.Info("starting upload", "file", req.FileName, "size", req.Size, "chunks", len(chunks))

	run := &uploadRun{m: m, req: req, ctx: ctx, logger: logger, sem: sem}

	if len(chunks) == 0 {
		final := run.finish(nil)
		return &final, nil
	}

	err := run.dispatch(uctx, chunks)
	if err != nil && errors.Is(context.Cause(uctx), ErrUploadAborted) {
		err = ErrUploadAborted
	}

	final := run.finish(err)
	if err != nil {
		logger.Error("upload failed", "err", err)
		return &final, err
	}
	logger.Info("upload complete")
	return &final, nil
}

// AbortUpload cancels an active upload. It returns false when the id is unknown or the
// upload already reached a terminal state, so a second call is a no-op.
func (m *Manager) AbortUpload(id string) bool {
	m.mu.Lock()
	record, ok := m.uploads[id]
	if !ok || record.Status.IsTerminal() {
		m.mu.Unlock()
		return false
	}
	record.Status = models.UploadError
	record.Error = AbortedByUserMessage
	cancel := m.cancels[id]
	m.mu.Unlock()

	if cancel != nil {
		cancel(ErrUploadAborted)
	}
	m.logger.Warn("upload aborted", "upload_id", id)
	return true
}

// GetUploadStatus returns a copy of the current record.
func (m *Manager) GetUploadStatus(id string) (models.VideoUpload, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.uploads[id]
	if !ok {
		return models.VideoUpload{}, false
	}
	return record.Clone(), true
}

// Uploads returns a copy of every tracked record ordered by id.
func (m *Manager) Uploads() []models.VideoUpload {
	m.mu.Lock()
	out := make([]models.VideoUpload, 0, len(m.uploads))
	for _, record := range m.uploads {
		out = append(out, record.Clone())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// releaseSemaphore drops the upload's semaphore unless a newer run with the same id replaced it.
func (m *Manager) releaseSemaphore(id string, sem *Semaphore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sems[id] == sem {
		delete(m.sems, id)
	}
}

// CleanupUpload forgets the record and releases its cancellation handle.
// Cleaning up an upload that is still running cancels it.
func (m *Manager) CleanupUpload(id string) {
	m.mu.Lock()
	cancel := m.cancels[id]
	delete(m.uploads, id)
	delete(m.cancels, id)
	m.mu.Unlock()

	if cancel != nil {
		cancel(ErrUploadAborted)
	}
}

// uploadRun carries the per-upload state shared by the chunk goroutines.
type uploadRun struct {
	m      *Manager
	req    Request
	ctx    context.Context // caller context, bounds progress delivery
	logger *log.Logger
	sem    *Semaphore

	emitMu sync.Mutex
}

// dispatch starts chunks in ascending order as semaphore permits free up.
// The first chunk that exhausts its retries cancels the rest.
func (r *uploadRun) dispatch(ctx context.Context, chunks []models.UploadChunk) error {
	g, gctx := errgroup.WithContext(ctx)

	var offset int64
	var acquireErr error
	for i, chunk := range chunks {
		if gctx.Err() != nil {
			acquireErr = gctx.Err()
			break
		}
		release, err := r.sem.Acquire(gctx)
		if err != nil {
			acquireErr = err
			break
		}

		start, url := offset, r.req.ChunkURLs[i]
		offset += chunk.Size

		g.Go(func() error {
			defer release()
			etag, err := r.uploadChunk(gctx, chunk, start, url)
			if err != nil {
				r.markFailed(err)
				return fmt.Errorf("chunk %d: %w", chunk.ChunkNumber, err)
			}
			r.markUploaded(chunk.ChunkNumber, etag)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if acquireErr != nil {
		if cause := context.Cause(ctx); cause != nil {
			return cause
		}
		return acquireErr
	}
	return nil
}

// uploadChunk runs the attempt loop for one chunk.
func (r *uploadRun) uploadChunk(ctx context.Context, chunk models.UploadChunk, offset int64, url string) (string, error) {
	cfg := r.m.cfg
	var lastErr error

	for attempt := 1; attempt <= cfg.RetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", cancellationError(ctx)
		}

		body := io.NewSectionReader(r.req.File, offset, chunk.Size)
		etag, err := r.m.transport.PutChunk(ctx, url, body, chunk.Size)
		if err == nil && etag == "" {
			err = ErrMissingETag
		}
		if err == nil {
			return etag, nil
		}
		if ctx.Err() != nil {
			return "", cancellationError(ctx)
		}
		lastErr = err

		if attempt == cfg.RetryAttempts {
			break
		}

		delay := cfg.RetryDelay * time.Duration(attempt)
		r.logger.Warn("chunk attempt failed", "chunk", chunk.ChunkNumber, "attempt", attempt, "retry_in", delay, "err", err)
		if err := sleep(ctx, delay); err != nil {
			return "", cancellationError(ctx)
		}
	}
	return "", lastErr
}

// markUploaded records the entity tag and publishes the new progress.
// The chunk that completes the upload publishes the terminal snapshot.
func (r *uploadRun) markUploaded(chunkNumber int, etag string) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.m.mu.Lock()
	record, ok := r.m.uploads[r.req.ID]
	if !ok || record.Status.IsTerminal() {
		r.m.mu.Unlock()
		return
	}
	chunk := &record.Chunks[chunkNumber-1]
	chunk.ETag = etag
	chunk.Uploaded = true

	uploaded, total := record.UploadedChunks(), len(record.Chunks)
	record.Progress = progressPercent(uploaded, total)
	if uploaded == total {
		record.Status = models.UploadComplete
		record.Progress = 100
	}
	snapshot := record.Clone()
	r.m.mu.Unlock()

	r.logger.Debug("chunk uploaded", "chunk", chunkNumber, "progress", snapshot.Progress)
	send(r.ctx, r.req.ChunkProgress, models.ChunkProgress{ChunkNumber: chunkNumber, Progress: 100})
	send(r.ctx, r.req.Progress, snapshot)
}

// markFailed moves the record to error unless it already reached a terminal state.
func (r *uploadRun) markFailed(err error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	record, ok := r.m.uploads[r.req.ID]
	if !ok || record.Status.IsTerminal() {
		return
	}
	record.Status = models.UploadError
	record.Error = err.Error()
}

// finish settles the record and publishes the terminal snapshot when no chunk did.
func (r *uploadRun) finish(err error) models.VideoUpload {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.m.mu.Lock()
	record, ok := r.m.uploads[r.req.ID]
	if !ok {
		r.m.mu.Unlock()
		status := models.UploadComplete
		if err != nil {
			status = models.UploadError
		}
		return models.VideoUpload{ID: r.req.ID, FileName: r.req.FileName, Size: r.req.Size, Status: status}
	}

	publish := false
	switch {
	case err != nil && record.Status != models.UploadError:
		record.Status = models.UploadError
		record.Error = err.Error()
		publish = true
	case err != nil:
		publish = true
	case record.Status != models.UploadComplete:
		record.Status = models.UploadComplete
		record.Progress = 100
		publish = true
	}
	snapshot := record.Clone()
	r.m.mu.Unlock()

	if publish {
		send(r.ctx, r.req.Progress, snapshot)
	}
	return snapshot
}

func progressPercent(uploaded, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(100 * float64(uploaded) / float64(total)))
}

// cancellationError maps an upload abort to [ErrUploadAborted] and anything else to its cause.
func cancellationError(ctx context.Context) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, ErrUploadAborted) {
		return ErrUploadAborted
	}
	if cause == nil {
		return ctx.Err()
	}
	return cause
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func send[T any](ctx context.Context, ch chan<- T, v T) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	case <-ctx.Done():
	}
}
