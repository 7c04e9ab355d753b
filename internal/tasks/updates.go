package tasks

import (
	"fmt"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/validation"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Percent returns Step as a percentage of Total, or 0 when Total is unknown.
func (u ProgressUpdate) Percent() float64 {
	if u.Total <= 0 {
		return 0
	}
	return float64(u.Step) / float64(u.Total)
}

// Operation phase enumeration
type Phase int

const (
	Validate Phase = iota
	Initiate
	Upload
	Complete
	CreateReel
	WaitUploadStatus
	WaitJobStatus
	Bulk
	FetchOverview
	Done
)

func (p Phase) String() string {
	switch p {
	case Validate:
		return "validate"
	case Initiate:
		return "initiate"
	case Upload:
		return "upload"
	case Complete:
		return "complete"
	case CreateReel:
		return "create_reel"
	case WaitUploadStatus:
		return "wait_upload"
	case WaitJobStatus:
		return "wait_job"
	case Bulk:
		return "bulk"
	case FetchOverview:
		return "fetch_overview"
	case Done:
		return "done"
	default:
		return ""
	}
}

func validatingUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Validate,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Validating %s...", path),
	}
}

func validatedUpdate(res validation.Result) ProgressUpdate {
	msg := fmt.Sprintf("Validated (%s, %s)", validation.FormatFileSize(res.FileSize), res.MimeType)
	if res.Duration > 0 {
		msg = fmt.Sprintf("Validated (%s, %s, %s)", validation.FormatFileSize(res.FileSize), res.MimeType, validation.FormatDuration(res.Duration))
	}
	return ProgressUpdate{
		Phase:   Validate,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    res,
	}
}

func warningUpdate(warning string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Validate,
		Step:    1,
		Total:   1,
		Message: "Warning: " + warning,
	}
}

func initiateUpdate(name string, chunks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Initiate,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Initiating upload of %s (%d chunks)...", name, chunks),
	}
}

func uploadUpdate(snapshot models.VideoUpload) ProgressUpdate {
	msg := fmt.Sprintf("Uploading %s: %d%%", snapshot.FileName, snapshot.Progress)
	switch snapshot.Status {
	case models.UploadComplete:
		msg = fmt.Sprintf("Uploaded %s", snapshot.FileName)
	case models.UploadError:
		msg = fmt.Sprintf("Upload of %s failed: %s", snapshot.FileName, snapshot.Error)
	}
	return ProgressUpdate{
		Phase:   Upload,
		Step:    snapshot.UploadedChunks(),
		Total:   len(snapshot.Chunks),
		Message: msg,
		Data:    snapshot,
	}
}

func completingUpdate(uploadID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Finalizing upload %s...", uploadID),
	}
}

func completedUpdate(resp *models.CompleteUploadResponse) ProgressUpdate {
	msg := "Upload finalized"
	if resp.ProcessingJobID != "" {
		msg = fmt.Sprintf("Upload finalized (job %s)", resp.ProcessingJobID)
	}
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    resp,
	}
}

func createReelUpdate(step int, title string, reel *models.Reel) ProgressUpdate {
	if reel == nil {
		return ProgressUpdate{
			Phase:   CreateReel,
			Step:    step,
			Total:   1,
			Message: fmt.Sprintf("Creating reel %q...", title),
		}
	}
	return ProgressUpdate{
		Phase:   CreateReel,
		Step:    step,
		Total:   1,
		Message: fmt.Sprintf("Reel created: %s (ID: %s)", reel.Title, reel.ID),
		Data:    reel,
	}
}

func uploadStatusUpdate(uploadID string, status *models.UploadStatusResponse) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WaitUploadStatus,
		Step:    status.Progress,
		Total:   100,
		Message: fmt.Sprintf("Upload %s: %s (%d%%)", uploadID, status.Status, status.Progress),
		Data:    status,
	}
}

func jobStatusUpdate(job *models.ProcessingJob) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WaitJobStatus,
		Step:    job.Progress,
		Total:   100,
		Message: fmt.Sprintf("Job %s: %s (%d%%)", job.ID, job.Status, job.Progress),
		Data:    job,
	}
}

func bulkQueuedUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Bulk,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Publishing %d files...", total),
	}
}

func bulkItemUpdate(step, total int, res models.BulkItemResult) ProgressUpdate {
	if res.Success {
		return ProgressUpdate{
			Phase:   Bulk,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, res.FileName, res.UploadID),
			Data:    res,
		}
	}
	return ProgressUpdate{
		Phase:   Bulk,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, res.FileName, res.Error),
		Data:    res,
	}
}

func overviewUpdate(endpoint endpointOperation, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchOverview,
		Step:    step,
		Total:   total,
		Message: endpoint.message,
	}
}

func doneUpdate(message string, data any) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: message,
		Data:    data,
	}
}
