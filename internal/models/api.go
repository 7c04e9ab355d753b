package models

import "time"

// InitiateUploadRequest asks the backend for one pre-signed URL per chunk.
type InitiateUploadRequest struct {
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	FileType   string `json:"fileType"`
	ChunkCount int    `json:"chunkCount"`
}

// InitiateUploadResponse carries the upload id and chunk destinations.
type InitiateUploadResponse struct {
	UploadID  string    `json:"uploadId"`
	ChunkURLs []string  `json:"chunkUrls"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CompletedChunk pairs a chunk number with the entity tag returned by storage.
type CompletedChunk struct {
	ChunkNumber int    `json:"chunkNumber"`
	ETag        string `json:"etag"`
}

// CompleteUploadRequest finalizes a multipart upload.
type CompleteUploadRequest struct {
	UploadID string           `json:"uploadId"`
	Chunks   []CompletedChunk `json:"chunks"`
}

// CompleteUploadResponse is returned once the backend assembled the parts.
type CompleteUploadResponse struct {
	Success         bool   `json:"success"`
	ReelID          string `json:"reelId,omitempty"`
	ProcessingJobID string `json:"processingJobId,omitempty"`
}

// CompletedChunks lists the entity tags of every uploaded chunk in chunk order.
func (v VideoUpload) CompletedChunks() []CompletedChunk {
	out := make([]CompletedChunk, 0, len(v.Chunks))
	for _, c := range v.Chunks {
		if c.Uploaded {
			out = append(out, CompletedChunk{ChunkNumber: c.ChunkNumber, ETag: c.ETag})
		}
	}
	return out
}

// UploadStatusResponse is the backend view of an upload.
type UploadStatusResponse struct {
	Status        UploadStatus   `json:"status"`
	Progress      int            `json:"progress"`
	ReelID        string         `json:"reelId,omitempty"`
	Error         string         `json:"error,omitempty"`
	ProcessingJob *ProcessingJob `json:"processingJob,omitempty"`
}

// JobStatus is the state of a processing job.
type JobStatus string

const (
	JobQueued       JobStatus = "queued"
	JobProcessing   JobStatus = "processing"
	JobTranscoding  JobStatus = "transcoding"
	JobTranscribing JobStatus = "transcribing"
	JobTagging      JobStatus = "tagging"
	JobComplete     JobStatus = "complete"
	JobError        JobStatus = "error"
)

// IsTerminal reports whether the job finished either way.
func (s JobStatus) IsTerminal() bool {
	return s == JobComplete || s == JobError
}

// ProcessingJob is a transcoding pipeline run for an uploaded reel.
type ProcessingJob struct {
	ID                  string     `json:"id"`
	ReelID              string     `json:"reelId,omitempty"`
	Status              JobStatus  `json:"status"`
	Progress            int        `json:"progress"`
	Error               string     `json:"error,omitempty"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion,omitempty"`
	CreatedAt           time.Time  `json:"createdAt,omitzero"`
	UpdatedAt           time.Time  `json:"updatedAt,omitzero"`
}

// TranscodingResult describes the renditions produced by a finished job.
type TranscodingResult struct {
	HLSURL       string  `json:"hlsUrl"`
	ThumbnailURL string  `json:"thumbnailUrl"`
	Duration     float64 `json:"duration"`
	Resolution   string  `json:"resolution"`
	Codec        string  `json:"codec"`
	FileSize     int64   `json:"fileSize"`
}

// QueueStatus summarizes the transcoding queue.
type QueueStatus struct {
	QueueLength       int `json:"queueLength"`
	EstimatedWaitTime int `json:"estimatedWaitTime"`
	ActiveJobs        int `json:"activeJobs"`
}

// SupportedFormats lists what the transcoder accepts and produces.
type SupportedFormats struct {
	InputFormats  []string `json:"inputFormats"`
	OutputFormats []string `json:"outputFormats"`
	Codecs        []string `json:"codecs"`
	MaxResolution string   `json:"maxResolution"`
	MaxDuration   float64  `json:"maxDuration"`
}

// TranscodingStats aggregates job counts and processing time.
type TranscodingStats struct {
	TotalJobs             int     `json:"totalJobs"`
	CompletedJobs         int     `json:"completedJobs"`
	FailedJobs            int     `json:"failedJobs"`
	AverageProcessingTime float64 `json:"averageProcessingTime"`
	TotalProcessingTime   float64 `json:"totalProcessingTime"`
}

// Privacy controls who may view a reel.
type Privacy string

const (
	PrivacyInternal Privacy = "internal"
	PrivacyCustomer Privacy = "customer"
	PrivacyPublic   Privacy = "public"
)

// ParsePrivacy validates a privacy level, defaulting empty input to internal.
func ParsePrivacy(s string) (Privacy, bool) {
	switch Privacy(s) {
	case "":
		return PrivacyInternal, true
	case PrivacyInternal, PrivacyCustomer, PrivacyPublic:
		return Privacy(s), true
	}
	return "", false
}

// CreateReelRequest publishes an uploaded video as a reel.
type CreateReelRequest struct {
	UploadID            string   `json:"uploadId"`
	Title               string   `json:"title"`
	Description         string   `json:"description,omitempty"`
	Tags                []string `json:"tags"`
	MachineModel        string   `json:"machineModel,omitempty"`
	ProcessStep         string   `json:"processStep,omitempty"`
	Tooling             []string `json:"tooling"`
	Privacy             Privacy  `json:"privacy"`
	CustomerAllocations []string `json:"customerAllocations,omitempty"`
}

// Reel is a published training video.
type Reel struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	Duration            float64    `json:"duration"`
	ThumbnailURL        string     `json:"thumbnailUrl,omitempty"`
	VideoURL            string     `json:"videoUrl,omitempty"`
	HLSURL              string     `json:"hlsUrl,omitempty"`
	Tags                []string   `json:"tags"`
	MachineModel        string     `json:"machineModel,omitempty"`
	ProcessStep         string     `json:"processStep,omitempty"`
	Tooling             []string   `json:"tooling"`
	Privacy             Privacy    `json:"privacy"`
	CustomerAllocations []string   `json:"customerAllocations,omitempty"`
	Status              string     `json:"status"`
	Transcript          string     `json:"transcript,omitempty"`
	CreatedBy           string     `json:"createdBy,omitempty"`
	CreatedAt           time.Time  `json:"createdAt,omitzero"`
	UpdatedAt           time.Time  `json:"updatedAt,omitzero"`
	PublishedAt         *time.Time `json:"publishedAt,omitempty"`
}

// CreateReelResponse returns the reel and the job processing it.
type CreateReelResponse struct {
	Reel          Reel           `json:"reel"`
	ProcessingJob *ProcessingJob `json:"processingJob,omitempty"`
}

// GetReelResponse wraps a reel with its playback URL and the caller's permissions.
type GetReelResponse struct {
	Reel        Reel   `json:"reel"`
	PlaybackURL string `json:"playbackUrl"`
	CanEdit     bool   `json:"canEdit"`
	CanDelete   bool   `json:"canDelete"`
	CanDownload bool   `json:"canDownload"`
	CanShare    bool   `json:"canShare"`
}

// SearchFilters narrows a reel search.
type SearchFilters struct {
	Query         string   `json:"query,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	MachineModels []string `json:"machineModels,omitempty"`
	ProcessSteps  []string `json:"processSteps,omitempty"`
	DurationMin   float64  `json:"durationMin,omitempty"`
	DurationMax   float64  `json:"durationMax,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	DateFrom      string   `json:"dateFrom,omitempty"`
	DateTo        string   `json:"dateTo,omitempty"`
	Status        []string `json:"status,omitempty"`
	Privacy       []string `json:"privacy,omitempty"`
}

// FacetItem is one bucket of a search facet.
type FacetItem struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SearchFacets groups facet buckets by dimension.
type SearchFacets struct {
	Tags          []FacetItem `json:"tags"`
	MachineModels []FacetItem `json:"machineModels"`
	ProcessSteps  []FacetItem `json:"processSteps"`
	Authors       []FacetItem `json:"authors"`
	Durations     []FacetItem `json:"durations"`
}

// SearchResult is a page of reels.
type SearchResult struct {
	Reels  []Reel       `json:"reels"`
	Total  int          `json:"total"`
	Page   int          `json:"page"`
	Limit  int          `json:"limit"`
	Facets SearchFacets `json:"facets"`
}

// User is the authenticated account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}

// LoginRequest exchanges credentials for a bearer token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the session token.
type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
