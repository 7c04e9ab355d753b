package repositories

import (
	"fmt"

	"github.com/desertthunder/reels/internal/models"
)

// UploadRecorderAdapter implements tasks.UploadRecorder using UploadRepository.
type UploadRecorderAdapter struct {
	repo *UploadRepository
}

// NewUploadRecorderAdapter creates a new UploadRecorderAdapter with the given repository
func NewUploadRecorderAdapter(repo *UploadRepository) *UploadRecorderAdapter {
	return &UploadRecorderAdapter{repo: repo}
}

// Begin creates a session for a freshly initiated upload and stores its chunk layout.
func (a *UploadRecorderAdapter) Begin(path, mimeType, title string, chunkSize int64, u models.VideoUpload) (string, error) {
	session := models.NewUploadSession(0, path, u.Size, chunkSize)
	session.SetMimeType(mimeType)
	session.SetTitle(title)
	session.Apply(u)
	if u.FileName != "" {
		session.SetFileName(u.FileName)
	}

	if err := a.repo.Create(session); err != nil {
		return "", fmt.Errorf("failed to record upload: %w", err)
	}
	if err := a.repo.SaveChunks(session.ID(), u.Chunks); err != nil {
		return session.ID(), err
	}
	return session.ID(), nil
}

// Record applies the latest upload state to the session and upserts its chunks.
func (a *UploadRecorderAdapter) Record(sessionID string, u models.VideoUpload) error {
	session, err := a.repo.Get(sessionID)
	if err != nil {
		return err
	}
	session.Apply(u)
	if err := a.repo.Update(session); err != nil {
		return err
	}
	if len(u.Chunks) == 0 {
		return nil
	}
	return a.repo.SaveChunks(sessionID, u.Chunks)
}
