// Package tasks orchestrates publishing training videos with real-time progress reporting.
//
// # Core Operations
//
// [PublishEngine] drives four operations:
//
//  1. [PublishEngine.Publish] : single file pipeline
//     - Validates the file; blocking errors stop before any network call
//     - Initiates a multipart upload sized to the manager's chunk size
//     - Uploads chunks through [upload.Manager]
//     - Completes the upload with every chunk's entity tag
//     - Optionally creates a reel and waits for its processing job
//
//  2. [PublishEngine.BulkPublish] : worker pool over many files
//     - Rate limited initiation, partial failures collected, optional manifest
//
//  3. [PublishEngine.WaitUpload] / [PublishEngine.WaitJob] : pollers paced by rate limiters
//
//  4. [PublishEngine.Overview] : queue, formats, stats, active uploads and jobs in one pass
//
// # Progress Reporting
//
// All operations report through non-blocking channels.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
//
// # Upload Ledger
//
// The optional [UploadRecorder] interface persists each session and its chunk entity tags
// (repositories.UploadRecorderAdapter). Recording errors are logged and never fail a publish.
package tasks
