package models

import "time"

// BulkItemResult is the outcome of publishing one file in a bulk run.
type BulkItemResult struct {
	Path      string       `json:"path"`
	FileName  string       `json:"fileName"`
	UploadID  string       `json:"uploadId,omitempty"`
	ReelID    string       `json:"reelId,omitempty"`
	JobID     string       `json:"processingJobId,omitempty"`
	Status    UploadStatus `json:"status"`
	Success   bool         `json:"success"`
	Error     string       `json:"error,omitempty"`
	Warnings  []string     `json:"warnings,omitempty"`
	Size      int64        `json:"size"`
	ElapsedMS int64        `json:"elapsedMs"`
}

// BulkResult summarizes a bulk publish run.
type BulkResult struct {
	StartedAt    time.Time        `json:"startedAt"`
	FinishedAt   time.Time        `json:"finishedAt"`
	TotalFiles   int              `json:"totalFiles"`
	Succeeded    int              `json:"succeeded"`
	Failed       int              `json:"failed"`
	TotalBytes   int64            `json:"totalBytes"`
	Results      []BulkItemResult `json:"results"`
	ManifestPath string           `json:"manifestPath,omitempty"`
}
