package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/reels/internal/shared"
)

// EndpointResult represents the result of fetching data from a single API endpoint.
type EndpointResult struct {
	Endpoint string
	Data     any
	Error    error
}

// OverviewResult contains the backend state visible to the current user.
type OverviewResult struct {
	QueueStatus   any              // Transcoding queue length and wait time
	Formats       any              // Supported input/output formats and codecs
	Stats         any              // Transcoding statistics
	ActiveUploads any              // Uploads that have not reached a terminal state
	Jobs          any              // Processing jobs for the current user
	Errors        []EndpointResult // Failed endpoint fetches
}

type endpointOperation struct {
	name    string
	path    string
	target  *any
	message string
}

// Overview fetches queue, format, statistics, upload and job data in one pass.
// Individual endpoint failures are collected instead of aborting the run.
func (e *PublishEngine) Overview(ctx context.Context, progress chan<- ProgressUpdate) (*OverviewResult, error) {
	if e.api == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}

	result := &OverviewResult{Errors: []EndpointResult{}}

	endpoints := []endpointOperation{
		{name: "queue", path: "/transcoding/queue/status", target: &result.QueueStatus, message: "Fetching queue status..."},
		{name: "formats", path: "/transcoding/formats", target: &result.Formats, message: "Fetching supported formats..."},
		{name: "stats", path: "/transcoding/stats", target: &result.Stats, message: "Fetching transcoding stats..."},
		{name: "active_uploads", path: "/uploads/active", target: &result.ActiveUploads, message: "Fetching active uploads..."},
		{name: "jobs", path: "/transcoding/jobs", target: &result.Jobs, message: "Fetching processing jobs..."},
	}

	for i, endpoint := range endpoints {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.sendProgress(progress, overviewUpdate(endpoint, i+1, len(endpoints)))

		resp, err := e.api.Get(ctx, endpoint.path)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, EndpointResult{Endpoint: endpoint.path, Error: err})
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			result.Errors = append(result.Errors, EndpointResult{Endpoint: endpoint.path, Error: fmt.Errorf("status %d", resp.StatusCode)})
		default:
			*endpoint.target = resp.JSONData
		}
	}

	return result, nil
}

// OverviewData is the serializable form of [OverviewResult].
type OverviewData struct {
	QueueStatus   any               `json:"queue_status,omitempty"`
	Formats       any               `json:"formats,omitempty"`
	Stats         any               `json:"stats,omitempty"`
	ActiveUploads any               `json:"active_uploads,omitempty"`
	Jobs          any               `json:"jobs,omitempty"`
	Errors        map[string]string `json:"errors,omitempty"`
}

// Data converts the result for JSON output.
func (r *OverviewResult) Data() OverviewData {
	data := OverviewData{
		QueueStatus:   r.QueueStatus,
		Formats:       r.Formats,
		Stats:         r.Stats,
		ActiveUploads: r.ActiveUploads,
		Jobs:          r.Jobs,
	}
	if len(r.Errors) > 0 {
		data.Errors = make(map[string]string, len(r.Errors))
		for _, e := range r.Errors {
			data.Errors[e.Endpoint] = e.Error.Error()
		}
	}
	return data
}
