package models

// UploadStatus is the lifecycle state of an upload record.
type UploadStatus string

const (
	UploadUploading   UploadStatus = "uploading"
	UploadProcessing  UploadStatus = "processing"
	UploadTranscoding UploadStatus = "transcoding"
	UploadComplete    UploadStatus = "complete"
	UploadError       UploadStatus = "error"
)

// IsTerminal reports whether no further transitions are expected.
func (s UploadStatus) IsTerminal() bool {
	return s == UploadComplete || s == UploadError
}

// UploadChunk is one contiguous byte range of an upload.
type UploadChunk struct {
	ChunkNumber int    `json:"chunkNumber"`
	ETag        string `json:"etag,omitempty"`
	Size        int64  `json:"size"`
	Uploaded    bool   `json:"uploaded"`
}

// VideoUpload is the record of a single upload session.
type VideoUpload struct {
	ID              string        `json:"id"`
	FileName        string        `json:"fileName"`
	Size            int64         `json:"size"`
	Progress        int           `json:"progress"`
	Status          UploadStatus  `json:"status"`
	Chunks          []UploadChunk `json:"chunks"`
	Error           string        `json:"error,omitempty"`
	ReelID          string        `json:"reelId,omitempty"`
	ProcessingJobID string        `json:"processingJobId,omitempty"`
}

// Clone returns a deep copy so callers never share the chunk slice with the manager.
func (v VideoUpload) Clone() VideoUpload {
	out := v
	out.Chunks = append([]UploadChunk(nil), v.Chunks...)
	return out
}

// UploadedChunks counts chunks marked uploaded.
func (v VideoUpload) UploadedChunks() int {
	n := 0
	for _, c := range v.Chunks {
		if c.Uploaded {
			n++
		}
	}
	return n
}

// ChunkProgress reports progress of an individual chunk.
type ChunkProgress struct {
	ChunkNumber int `json:"chunkNumber"`
	Progress    int `json:"progress"`
}
