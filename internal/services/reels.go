package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/shared"
)

// ReelsAPI wraps the /reels endpoints.
type ReelsAPI struct {
	api *APIService
}

func NewReelsAPI(api *APIService) *ReelsAPI { return &ReelsAPI{api: api} }

func reelPath(id string) string { return "/reels/" + url.PathEscape(id) }

// Create publishes an uploaded video. Tags are normalized and privacy defaults to internal.
func (r *ReelsAPI) Create(ctx context.Context, req models.CreateReelRequest) (*models.CreateReelResponse, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", shared.ErrInvalidInput)
	}
	if req.UploadID == "" {
		return nil, fmt.Errorf("%w: upload id is required", shared.ErrInvalidInput)
	}
	privacy, ok := models.ParsePrivacy(string(req.Privacy))
	if !ok {
		return nil, fmt.Errorf("%w: privacy %q", shared.ErrInvalidInput, req.Privacy)
	}
	req.Privacy = privacy
	req.Tags = shared.NormalizeTags(req.Tags)
	if req.Tooling == nil {
		req.Tooling = []string{}
	}

	var out models.CreateReelResponse
	if err := r.api.DoJSON(ctx, http.MethodPost, "/reels", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ReelsAPI) Get(ctx context.Context, id string) (*models.GetReelResponse, error) {
	var out models.GetReelResponse
	if err := r.api.DoJSON(ctx, http.MethodGet, reelPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ReelsAPI) Delete(ctx context.Context, id string) error {
	return r.api.DoJSON(ctx, http.MethodDelete, reelPath(id), nil, nil)
}

func (r *ReelsAPI) Search(ctx context.Context, filters models.SearchFilters) (*models.SearchResult, error) {
	var out models.SearchResult
	if err := r.api.DoJSON(ctx, http.MethodPost, "/reels/search", filters, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
