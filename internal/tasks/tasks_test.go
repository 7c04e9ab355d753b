package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/services"
	"github.com/desertthunder/reels/internal/shared"
	tu "github.com/desertthunder/reels/internal/testing"
	"github.com/desertthunder/reels/internal/upload"
	"github.com/desertthunder/reels/internal/validation"
)

const chunkSize = 1024

type mockValidator struct {
	result   validation.Result
	err      error
	mimeType string
}

func (m *mockValidator) ValidateFile(ctx context.Context, path string) (validation.Result, validation.FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return validation.Result{}, validation.FileInfo{}, err
	}
	info := validation.FileInfo{Path: path, Name: stat.Name(), Size: stat.Size(), MimeType: m.mimeType}
	if m.err != nil {
		return validation.Result{}, info, m.err
	}
	res := m.result
	if res.Errors == nil {
		res.Valid = true
	}
	res.FileSize = info.Size
	res.MimeType = info.MimeType
	return res, info, nil
}

type mockUploads struct {
	mu           sync.Mutex
	initiated    []models.InitiateUploadRequest
	completed    map[string][]models.CompletedChunk
	cancelled    []string
	initiateErr  error
	completeResp *models.CompleteUploadResponse
	statuses     []models.UploadStatusResponse
	statusCalls  int
	statusErr    error
}

func newMockUploads() *mockUploads {
	return &mockUploads{completed: map[string][]models.CompletedChunk{}}
}

func (m *mockUploads) Initiate(ctx context.Context, req models.InitiateUploadRequest) (*models.InitiateUploadResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initiateErr != nil {
		return nil, m.initiateErr
	}
	m.initiated = append(m.initiated, req)
	id := fmt.Sprintf("upload-%d", len(m.initiated))
	urls := make([]string, req.ChunkCount)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://storage.test/%s/%d", id, i+1)
	}
	return &models.InitiateUploadResponse{UploadID: id, ChunkURLs: urls}, nil
}

func (m *mockUploads) Complete(ctx context.Context, uploadID string, chunks []models.CompletedChunk) (*models.CompleteUploadResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[uploadID] = chunks
	if m.completeResp != nil {
		return m.completeResp, nil
	}
	return &models.CompleteUploadResponse{Success: true, ProcessingJobID: "job-" + uploadID}, nil
}

func (m *mockUploads) Status(ctx context.Context, uploadID string) (*models.UploadStatusResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	i := min(m.statusCalls-1, len(m.statuses)-1)
	s := m.statuses[i]
	return &s, nil
}

func (m *mockUploads) Cancel(ctx context.Context, uploadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, uploadID)
	return nil
}

type mockReels struct {
	mu       sync.Mutex
	requests []models.CreateReelRequest
	err      error
}

func (m *mockReels) Create(ctx context.Context, req models.CreateReelRequest) (*models.CreateReelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.requests = append(m.requests, req)
	return &models.CreateReelResponse{
		Reel:          models.Reel{ID: "reel-1", Title: req.Title},
		ProcessingJob: &models.ProcessingJob{ID: "reel-job-1", Status: models.JobQueued},
	}, nil
}

type mockJobs struct {
	sequence []models.JobStatus
	calls    int
	err      error
}

func (m *mockJobs) Job(ctx context.Context, jobID string) (*models.ProcessingJob, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	status := m.sequence[min(m.calls-1, len(m.sequence)-1)]
	job := &models.ProcessingJob{ID: jobID, Status: status, Progress: 50}
	if status == models.JobComplete {
		job.Progress = 100
	}
	if status == models.JobError {
		job.Error = "transcoder crashed"
	}
	return job, nil
}

type mockRecorder struct {
	mu      sync.Mutex
	begun   []string
	records map[string][]models.VideoUpload
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{records: map[string][]models.VideoUpload{}}
}

func (m *mockRecorder) Begin(path, mimeType, title string, chunkSize int64, u models.VideoUpload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("session-%d", len(m.begun)+1)
	m.begun = append(m.begun, path)
	m.records[id] = append(m.records[id], u)
	return id, nil
}

func (m *mockRecorder) Record(sessionID string, u models.VideoUpload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[sessionID] = append(m.records[sessionID], u.Clone())
	return nil
}

func (m *mockRecorder) last(sessionID string) models.VideoUpload {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[sessionID]
	return r[len(r)-1]
}

type mockAPIClient struct {
	responses map[string]*services.APIResponse
}

func (m *mockAPIClient) Get(ctx context.Context, path string) (*services.APIResponse, error) {
	if resp, ok := m.responses[path]; ok {
		return resp, nil
	}
	return nil, fmt.Errorf("connection refused")
}

func writeVideo(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

type fixture struct {
	engine    *PublishEngine
	transport *tu.FakeChunkTransport
	uploads   *mockUploads
	reels     *mockReels
	jobs      *mockJobs
	recorder  *mockRecorder
	validator *mockValidator
}

func newFixture() *fixture {
	f := &fixture{
		transport: tu.NewFakeChunkTransport(),
		uploads:   newMockUploads(),
		reels:     &mockReels{},
		jobs:      &mockJobs{sequence: []models.JobStatus{models.JobProcessing, models.JobComplete}},
		recorder:  newMockRecorder(),
		validator: &mockValidator{mimeType: "video/mp4"},
	}
	manager := upload.NewManager(upload.Config{
		ChunkSize:           chunkSize,
		MaxConcurrentChunks: 2,
		RetryAttempts:       2,
		RetryDelay:          time.Millisecond,
	}, f.transport, nil)
	f.engine = NewPublishEngine(EngineDeps{
		Validator: f.validator,
		Manager:   manager,
		Uploads:   f.uploads,
		Reels:     f.reels,
		Jobs:      f.jobs,
		Recorder:  f.recorder,
		Polling:   shared.PollingConfig{UploadIntervalMS: 1, JobIntervalMS: 1},
	})
	return f
}

func drain(ch chan ProgressUpdate) []ProgressUpdate {
	var out []ProgressUpdate
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func TestPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("Uploads Completes And Creates Reel", func(t *testing.T) {
		f := newFixture()
		path := writeVideo(t, t.TempDir(), "spindle.mp4", 3*chunkSize)
		progress := make(chan ProgressUpdate, 100)

		result, err := f.engine.Publish(ctx, progress, PublishOpts{
			Path:  path,
			Title: "Spindle setup",
			Tags:  []string{"spindle"},
			Wait:  true,
		})
		if err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		if len(f.uploads.initiated) != 1 {
			t.Fatalf("expected 1 initiate call, got %d", len(f.uploads.initiated))
		}
		req := f.uploads.initiated[0]
		if req.ChunkCount != 3 || req.FileSize != 3*chunkSize || req.FileType != "video/mp4" || req.FileName != "spindle.mp4" {
			t.Errorf("unexpected initiate request %+v", req)
		}
		if f.transport.Calls() != 3 {
			t.Errorf("expected 3 chunk PUTs, got %d", f.transport.Calls())
		}

		chunks := f.uploads.completed["upload-1"]
		if len(chunks) != 3 {
			t.Fatalf("expected 3 completed chunks, got %d", len(chunks))
		}
		for i, c := range chunks {
			want := fmt.Sprintf("etag-https://storage.test/upload-1/%d", i+1)
			if c.ChunkNumber != i+1 || c.ETag != want {
				t.Errorf("chunk %d: got %+v", i, c)
			}
		}

		if result.Reel == nil || result.Reel.ID != "reel-1" {
			t.Errorf("expected reel-1, got %+v", result.Reel)
		}
		if result.Job == nil || result.Job.Status != models.JobComplete {
			t.Errorf("expected completed job, got %+v", result.Job)
		}
		if result.Upload.Status != models.UploadComplete || result.Upload.ReelID != "reel-1" || result.Upload.ProcessingJobID != "reel-job-1" {
			t.Errorf("unexpected final upload %+v", result.Upload)
		}

		if got := f.recorder.last(result.SessionID); got.Status != models.UploadComplete || got.ReelID != "reel-1" {
			t.Errorf("recorder not updated with final state: %+v", got)
		}

		if _, ok := f.engine.Manager().GetUploadStatus("upload-1"); ok {
			t.Error("manager entry should be cleaned up after publish")
		}

		var phases []Phase
		for _, u := range drain(progress) {
			if len(phases) == 0 || phases[len(phases)-1] != u.Phase {
				phases = append(phases, u.Phase)
			}
		}
		want := []Phase{Validate, Initiate, Upload, Complete, CreateReel, WaitJobStatus, Done}
		if fmt.Sprint(phases) != fmt.Sprint(want) {
			t.Errorf("phases = %v, want %v", phases, want)
		}
	})

	t.Run("Upload Progress Is Forwarded In Order", func(t *testing.T) {
		f := newFixture()
		path := writeVideo(t, t.TempDir(), "clip.mp4", 3*chunkSize)
		progress := make(chan ProgressUpdate, 100)

		if _, err := f.engine.Publish(ctx, progress, PublishOpts{Path: path}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		var percents []int
		for _, u := range drain(progress) {
			if snap, ok := u.Data.(models.VideoUpload); ok && u.Phase == Upload {
				percents = append(percents, snap.Progress)
			}
		}
		if fmt.Sprint(percents) != "[33 67 100]" {
			t.Errorf("progress = %v, want [33 67 100]", percents)
		}
	})

	t.Run("Validation Errors Abort Before Network", func(t *testing.T) {
		f := newFixture()
		f.validator.result = validation.Result{Errors: []string{"File too large. Maximum size: 100 MB"}}
		path := writeVideo(t, t.TempDir(), "huge.mp4", chunkSize)

		result, err := f.engine.Publish(ctx, nil, PublishOpts{Path: path})
		if !errors.Is(err, shared.ErrValidationFailed) {
			t.Fatalf("expected ErrValidationFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "File too large") {
			t.Errorf("error should list validation messages: %v", err)
		}
		if len(f.uploads.initiated) != 0 || f.transport.Calls() != 0 {
			t.Error("no network calls expected after validation failure")
		}
		if result.Validation.Valid {
			t.Error("result should carry the failed validation")
		}
	})

	t.Run("Warnings Are Reported", func(t *testing.T) {
		f := newFixture()
		f.validator.result = validation.Result{Errors: []string{}, Valid: true, Warnings: []string{"Unsupported codec: av1. Recommended: h264"}}
		path := writeVideo(t, t.TempDir(), "av1.mp4", chunkSize)
		progress := make(chan ProgressUpdate, 100)

		if _, err := f.engine.Publish(ctx, progress, PublishOpts{Path: path}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
		found := false
		for _, u := range drain(progress) {
			if strings.HasPrefix(u.Message, "Warning: Unsupported codec") {
				found = true
			}
		}
		if !found {
			t.Error("expected a warning progress update")
		}
	})

	t.Run("Chunk Failure Marks Session Failed", func(t *testing.T) {
		f := newFixture()
		f.transport.Handler = func(ctx context.Context, url string, attempt int) (string, error) {
			if strings.HasSuffix(url, "/2") {
				return "", fmt.Errorf("%w: HTTP 500", upload.ErrChunkStatus)
			}
			return "etag", nil
		}
		path := writeVideo(t, t.TempDir(), "broken.mp4", 3*chunkSize)

		result, err := f.engine.Publish(ctx, nil, PublishOpts{Path: path, Title: "Never created"})
		if !errors.Is(err, shared.ErrUploadFailed) || !errors.Is(err, upload.ErrChunkStatus) {
			t.Fatalf("expected ErrUploadFailed wrapping ErrChunkStatus, got %v", err)
		}
		if len(f.uploads.completed) != 0 {
			t.Error("complete must not be called after a failed upload")
		}
		if len(f.reels.requests) != 0 {
			t.Error("reel must not be created after a failed upload")
		}
		if result.Upload == nil || result.Upload.Status != models.UploadError {
			t.Errorf("expected error record, got %+v", result.Upload)
		}
		if got := f.recorder.last(result.SessionID); got.Status != models.UploadError {
			t.Errorf("recorder should see the failure, got %s", got.Status)
		}
	})

	t.Run("Abort Cancels Remote Upload", func(t *testing.T) {
		f := newFixture()
		f.transport.Delay = 50 * time.Millisecond
		path := writeVideo(t, t.TempDir(), "slow.mp4", 4*chunkSize)
		progress := make(chan ProgressUpdate, 100)

		go func() {
			for {
				if f.engine.AbortActive() > 0 {
					return
				}
				time.Sleep(time.Millisecond)
			}
		}()

		_, err := f.engine.Publish(ctx, progress, PublishOpts{Path: path})
		if !errors.Is(err, upload.ErrUploadAborted) {
			t.Fatalf("expected ErrUploadAborted, got %v", err)
		}
		f.uploads.mu.Lock()
		defer f.uploads.mu.Unlock()
		if len(f.uploads.cancelled) != 1 || f.uploads.cancelled[0] != "upload-1" {
			t.Errorf("expected remote cancel of upload-1, got %v", f.uploads.cancelled)
		}
	})

	t.Run("Rejected Completion", func(t *testing.T) {
		f := newFixture()
		f.uploads.completeResp = &models.CompleteUploadResponse{Success: false}
		path := writeVideo(t, t.TempDir(), "clip.mp4", chunkSize)

		_, err := f.engine.Publish(ctx, nil, PublishOpts{Path: path})
		if !errors.Is(err, shared.ErrUploadFailed) {
			t.Errorf("expected ErrUploadFailed, got %v", err)
		}
	})

	t.Run("Missing Path", func(t *testing.T) {
		f := newFixture()
		if _, err := f.engine.Publish(ctx, nil, PublishOpts{}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Uninitialized Engine", func(t *testing.T) {
		engine := NewPublishEngine(EngineDeps{})
		if _, err := engine.Publish(ctx, nil, PublishOpts{Path: "x.mp4"}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestWait(t *testing.T) {
	ctx := context.Background()

	t.Run("Upload Reaches Complete", func(t *testing.T) {
		f := newFixture()
		f.uploads.statuses = []models.UploadStatusResponse{
			{Status: models.UploadProcessing, Progress: 100},
			{Status: models.UploadTranscoding, Progress: 100},
			{Status: models.UploadComplete, Progress: 100, ReelID: "reel-9"},
		}

		status, err := f.engine.WaitUpload(ctx, nil, "upload-9")
		if err != nil {
			t.Fatalf("wait failed: %v", err)
		}
		if status.ReelID != "reel-9" || f.uploads.statusCalls != 3 {
			t.Errorf("unexpected status %+v after %d polls", status, f.uploads.statusCalls)
		}
	})

	t.Run("Upload Error", func(t *testing.T) {
		f := newFixture()
		f.uploads.statuses = []models.UploadStatusResponse{{Status: models.UploadError, Error: "corrupt file"}}

		_, err := f.engine.WaitUpload(ctx, nil, "upload-9")
		if !errors.Is(err, shared.ErrUploadFailed) || !strings.Contains(err.Error(), "corrupt file") {
			t.Errorf("expected ErrUploadFailed with server message, got %v", err)
		}
	})

	t.Run("Upload Not Found Stops Immediately", func(t *testing.T) {
		f := newFixture()
		f.uploads.statusErr = &services.APIError{StatusCode: 404, Method: "GET", Path: "/uploads/x/status"}

		_, err := f.engine.WaitUpload(ctx, nil, "x")
		if !errors.Is(err, shared.ErrUploadNotFound) {
			t.Errorf("expected ErrUploadNotFound, got %v", err)
		}
		if f.uploads.statusCalls != 1 {
			t.Errorf("expected 1 poll, got %d", f.uploads.statusCalls)
		}
	})

	t.Run("Transient Errors Give Up After Limit", func(t *testing.T) {
		f := newFixture()
		f.uploads.statusErr = &services.APIError{StatusCode: 503, Method: "GET", Path: "/uploads/x/status"}

		_, err := f.engine.WaitUpload(ctx, nil, "x")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if f.uploads.statusCalls != maxPollErrors {
			t.Errorf("expected %d polls, got %d", maxPollErrors, f.uploads.statusCalls)
		}
	})

	t.Run("Job Error", func(t *testing.T) {
		f := newFixture()
		f.jobs.sequence = []models.JobStatus{models.JobQueued, models.JobTranscoding, models.JobError}

		job, err := f.engine.WaitJob(ctx, nil, "job-1")
		if !errors.Is(err, shared.ErrProcessingFailed) {
			t.Fatalf("expected ErrProcessingFailed, got %v", err)
		}
		if job.Status != models.JobError || f.jobs.calls != 3 {
			t.Errorf("unexpected job %+v after %d polls", job, f.jobs.calls)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		f := newFixture()
		f.jobs.sequence = []models.JobStatus{models.JobProcessing}
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := f.engine.WaitJob(cctx, nil, "job-1")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Deadline Is A Timeout", func(t *testing.T) {
		f := newFixture()
		f.jobs.sequence = []models.JobStatus{models.JobProcessing}
		f.engine.polling.JobIntervalMS = 50
		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err := f.engine.WaitJob(cctx, nil, "job-1")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})
}

func TestOverview(t *testing.T) {
	t.Run("Collects Endpoint Failures", func(t *testing.T) {
		engine := NewPublishEngine(EngineDeps{API: &mockAPIClient{responses: map[string]*services.APIResponse{
			"/transcoding/queue/status": {StatusCode: 200, JSONData: map[string]any{"queueLength": 2.0}},
			"/transcoding/formats":      {StatusCode: 200, JSONData: map[string]any{"codecs": []any{"h264"}}},
			"/transcoding/stats":        {StatusCode: 500},
			"/uploads/active":           {StatusCode: 200, JSONData: []any{}},
		}}})
		progress := make(chan ProgressUpdate, 10)

		result, err := engine.Overview(context.Background(), progress)
		if err != nil {
			t.Fatalf("overview failed: %v", err)
		}
		if result.QueueStatus == nil || result.Formats == nil || result.ActiveUploads == nil {
			t.Errorf("expected successful endpoints to be populated: %+v", result)
		}
		if len(result.Errors) != 2 {
			t.Fatalf("expected 2 endpoint errors, got %d", len(result.Errors))
		}

		data := result.Data()
		if data.Errors["/transcoding/stats"] != "status 500" {
			t.Errorf("unexpected error map %v", data.Errors)
		}
		if len(drain(progress)) != 5 {
			t.Error("expected one progress update per endpoint")
		}
	})

	t.Run("Requires API Client", func(t *testing.T) {
		engine := NewPublishEngine(EngineDeps{})
		if _, err := engine.Overview(context.Background(), nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestPhaseString(t *testing.T) {
	tests := map[Phase]string{
		Validate:      "validate",
		Upload:        "upload",
		CreateReel:    "create_reel",
		WaitJobStatus: "wait_job",
		Done:          "done",
		Phase(99):     "",
	}
	for phase, want := range tests {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
