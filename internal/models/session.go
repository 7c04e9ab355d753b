package models

import (
	"fmt"
	"path/filepath"
	"time"
)

// UploadSession is the local ledger entry for one upload started from this machine.
//
// It outlives the in-memory [VideoUpload] so `reels upload history` can report past uploads
// and the chunk entity tags needed to complete an interrupted upload.
type UploadSession struct {
	id              string
	sequence        int
	uploadID        string
	filePath        string
	fileName        string
	fileSize        int64
	mimeType        string
	chunkSize       int64
	chunkCount      int
	status          UploadStatus
	progress        int
	errorMessage    string
	reelID          string
	processingJobID string
	title           string
	createdAt       time.Time
	updatedAt       time.Time
	deletedAt       *time.Time
}

// NewUploadSession creates a session for a local file.
func NewUploadSession(sequence int, filePath string, fileSize, chunkSize int64) *UploadSession {
	now := time.Now()
	return &UploadSession{
		sequence:  sequence,
		filePath:  filePath,
		fileName:  filepath.Base(filePath),
		fileSize:  fileSize,
		chunkSize: chunkSize,
		status:    UploadUploading,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *UploadSession) ID() string { return s.id }
func (s *UploadSession) Sequence() int { return s.sequence }
func (s *UploadSession) UploadID() string { return s.uploadID }
func (s *UploadSession) FilePath() string { return s.filePath }
func (s *UploadSession) FileName() string { return s.fileName }
func (s *UploadSession) FileSize() int64 { return s.fileSize }
func (s *UploadSession) MimeType() string { return s.mimeType }
func (s *UploadSession) ChunkSize() int64 { return s.chunkSize }
func (s *UploadSession) ChunkCount() int { return s.chunkCount }
func (s *UploadSession) Status() UploadStatus { return s.status }
func (s *UploadSession) Progress() int { return s.progress }
func (s *UploadSession) ErrorMessage() string { return s.errorMessage }
func (s *UploadSession) ReelID() string { return s.reelID }
func (s *UploadSession) ProcessingJobID() string { return s.processingJobID }
func (s *UploadSession) Title() string { return s.title }
func (s *UploadSession) CreatedAt() time.Time { return s.createdAt }
func (s *UploadSession) UpdatedAt() time.Time { return s.updatedAt }
func (s *UploadSession) DeletedAt() *time.Time { return s.deletedAt }

func (s *UploadSession) SetID(id string) { s.id = id }
func (s *UploadSession) SetSequence(seq int) { s.sequence = seq }
func (s *UploadSession) SetUploadID(id string) { s.uploadID = id }
func (s *UploadSession) SetFileName(name string) { s.fileName = name }
func (s *UploadSession) SetMimeType(mime string) { s.mimeType = mime }
func (s *UploadSession) SetChunkCount(n int) { s.chunkCount = n }
func (s *UploadSession) SetStatus(status UploadStatus) { s.status = status }
func (s *UploadSession) SetProgress(p int) { s.progress = p }
func (s *UploadSession) SetErrorMessage(msg string) { s.errorMessage = msg }
func (s *UploadSession) SetReelID(id string) { s.reelID = id }
func (s *UploadSession) SetProcessingJobID(id string) { s.processingJobID = id }
func (s *UploadSession) SetTitle(title string) { s.title = title }
func (s *UploadSession) SetCreatedAt(t time.Time) { s.createdAt = t }
func (s *UploadSession) SetUpdatedAt(t time.Time) { s.updatedAt = t }
func (s *UploadSession) SetDeletedAt(t *time.Time) { s.deletedAt = t }

// Apply copies the mutable fields of an upload record onto the session.
func (s *UploadSession) Apply(u VideoUpload) {
	if u.ID != "" {
		s.uploadID = u.ID
	}
	s.status = u.Status
	s.progress = u.Progress
	s.errorMessage = u.Error
	if len(u.Chunks) > 0 {
		s.chunkCount = len(u.Chunks)
	}
	if u.ReelID != "" {
		s.reelID = u.ReelID
	}
	if u.ProcessingJobID != "" {
		s.processingJobID = u.ProcessingJobID
	}
}

// Validate checks required fields and ranges.
func (s *UploadSession) Validate() error {
	if s.filePath == "" {
		return fmt.Errorf("file path is required")
	}
	if s.fileSize < 0 {
		return fmt.Errorf("file size cannot be negative")
	}
	if s.progress < 0 || s.progress > 100 {
		return fmt.Errorf("progress must be between 0 and 100, got %d", s.progress)
	}
	switch s.status {
	case UploadUploading, UploadProcessing, UploadTranscoding, UploadComplete, UploadError:
	default:
		return fmt.Errorf("invalid status: %q", s.status)
	}
	return nil
}
