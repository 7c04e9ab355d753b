package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/desertthunder/reels/internal/models"
)

// UploadAPI wraps the /uploads endpoints.
type UploadAPI struct {
	api *APIService
}

func NewUploadAPI(api *APIService) *UploadAPI { return &UploadAPI{api: api} }

// Initiate requests one pre-signed URL per chunk.
func (u *UploadAPI) Initiate(ctx context.Context, req models.InitiateUploadRequest) (*models.InitiateUploadResponse, error) {
	var out models.InitiateUploadResponse
	if err := u.api.DoJSON(ctx, http.MethodPost, "/uploads/initiate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Complete finalizes the multipart upload with every chunk's entity tag.
func (u *UploadAPI) Complete(ctx context.Context, uploadID string, chunks []models.CompletedChunk) (*models.CompleteUploadResponse, error) {
	req := models.CompleteUploadRequest{UploadID: uploadID, Chunks: chunks}
	var out models.CompleteUploadResponse
	if err := u.api.DoJSON(ctx, http.MethodPost, "/uploads/"+url.PathEscape(uploadID)+"/complete", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *UploadAPI) Status(ctx context.Context, uploadID string) (*models.UploadStatusResponse, error) {
	var out models.UploadStatusResponse
	if err := u.api.DoJSON(ctx, http.MethodGet, "/uploads/"+url.PathEscape(uploadID)+"/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *UploadAPI) Cancel(ctx context.Context, uploadID string) error {
	return u.api.DoJSON(ctx, http.MethodDelete, "/uploads/"+url.PathEscape(uploadID), nil, nil)
}

// Active lists the caller's uploads that have not reached a terminal state.
func (u *UploadAPI) Active(ctx context.Context) ([]models.UploadStatusResponse, error) {
	var out []models.UploadStatusResponse
	if err := u.api.DoJSON(ctx, http.MethodGet, "/uploads/active", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Resume issues fresh chunk URLs for a failed upload.
func (u *UploadAPI) Resume(ctx context.Context, uploadID string) (*models.InitiateUploadResponse, error) {
	var out models.InitiateUploadResponse
	if err := u.api.DoJSON(ctx, http.MethodPost, "/uploads/"+url.PathEscape(uploadID)+"/resume", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessingJob reads a job through the upload service.
func (u *UploadAPI) ProcessingJob(ctx context.Context, jobID string) (*models.ProcessingJob, error) {
	var out models.ProcessingJob
	if err := u.api.DoJSON(ctx, http.MethodGet, "/processing/"+url.PathEscape(jobID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
