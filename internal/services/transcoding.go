package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/desertthunder/reels/internal/models"
)

// TranscodingAPI wraps the /transcoding endpoints.
type TranscodingAPI struct {
	api *APIService
}

func NewTranscodingAPI(api *APIService) *TranscodingAPI { return &TranscodingAPI{api: api} }

func jobPath(id string) string { return "/transcoding/jobs/" + url.PathEscape(id) }

func (t *TranscodingAPI) Job(ctx context.Context, jobID string) (*models.ProcessingJob, error) {
	var out models.ProcessingJob
	if err := t.api.DoJSON(ctx, http.MethodGet, jobPath(jobID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Jobs lists the caller's processing jobs.
func (t *TranscodingAPI) Jobs(ctx context.Context) ([]models.ProcessingJob, error) {
	var out []models.ProcessingJob
	if err := t.api.DoJSON(ctx, http.MethodGet, "/transcoding/jobs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *TranscodingAPI) Cancel(ctx context.Context, jobID string) error {
	return t.api.DoJSON(ctx, http.MethodDelete, jobPath(jobID), nil, nil)
}

func (t *TranscodingAPI) Retry(ctx context.Context, jobID string) (*models.ProcessingJob, error) {
	var out models.ProcessingJob
	if err := t.api.DoJSON(ctx, http.MethodPost, jobPath(jobID)+"/retry", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Result returns the renditions of a completed job.
func (t *TranscodingAPI) Result(ctx context.Context, jobID string) (*models.TranscodingResult, error) {
	var out models.TranscodingResult
	if err := t.api.DoJSON(ctx, http.MethodGet, jobPath(jobID)+"/result", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *TranscodingAPI) Queue(ctx context.Context) (*models.QueueStatus, error) {
	var out models.QueueStatus
	if err := t.api.DoJSON(ctx, http.MethodGet, "/transcoding/queue/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *TranscodingAPI) Formats(ctx context.Context) (*models.SupportedFormats, error) {
	var out models.SupportedFormats
	if err := t.api.DoJSON(ctx, http.MethodGet, "/transcoding/formats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *TranscodingAPI) Stats(ctx context.Context) (*models.TranscodingStats, error) {
	var out models.TranscodingStats
	if err := t.api.DoJSON(ctx, http.MethodGet, "/transcoding/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
