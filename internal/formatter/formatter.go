// package formatter renders the upload ledger and bulk publish manifests in various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/shared"
	"github.com/desertthunder/reels/internal/validation"
)

// Supported output formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatText     = "txt"
	FormatMarkdown = "markdown"
)

// HistoryEntry is the serializable form of a recorded upload session.
type HistoryEntry struct {
	ID              string              `json:"id"`
	Sequence        int                 `json:"sequence"`
	UploadID        string              `json:"uploadId,omitempty"`
	FileName        string              `json:"fileName"`
	FilePath        string              `json:"filePath"`
	FileSize        int64               `json:"fileSize"`
	MimeType        string              `json:"mimeType,omitempty"`
	ChunkCount      int                 `json:"chunkCount"`
	Status          models.UploadStatus `json:"status"`
	Progress        int                 `json:"progress"`
	Error           string              `json:"error,omitempty"`
	Title           string              `json:"title,omitempty"`
	ReelID          string              `json:"reelId,omitempty"`
	ProcessingJobID string              `json:"processingJobId,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// NewHistoryEntry flattens a session for output.
func NewHistoryEntry(s *models.UploadSession) HistoryEntry {
	return HistoryEntry{
		ID:              s.ID(),
		Sequence:        s.Sequence(),
		UploadID:        s.UploadID(),
		FileName:        s.FileName(),
		FilePath:        s.FilePath(),
		FileSize:        s.FileSize(),
		MimeType:        s.MimeType(),
		ChunkCount:      s.ChunkCount(),
		Status:          s.Status(),
		Progress:        s.Progress(),
		Error:           s.ErrorMessage(),
		Title:           s.Title(),
		ReelID:          s.ReelID(),
		ProcessingJobID: s.ProcessingJobID(),
		CreatedAt:       s.CreatedAt(),
		UpdatedAt:       s.UpdatedAt(),
	}
}

// ParseFormat normalizes a format name, accepting "md" and "text" as aliases.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatText, "text":
		return FormatText, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (json, csv, txt, markdown)", shared.ErrInvalidFlag, s)
}

// WriteHistory renders sessions to w in the given format.
func WriteHistory(w io.Writer, sessions []*models.UploadSession, format string) error {
	format, err := ParseFormat(format)
	if err != nil {
		return err
	}

	entries := make([]HistoryEntry, 0, len(sessions))
	for _, s := range sessions {
		entries = append(entries, NewHistoryEntry(s))
	}

	var data []byte
	switch format {
	case FormatCSV:
		data, err = HistoryToCSV(entries)
	case FormatMarkdown:
		data, err = HistoryToMarkdown(entries)
	case FormatText:
		data, err = HistoryToText(entries)
	default:
		data, err = shared.MarshalJSON(entries, true)
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// HistoryToCSV converts entries to CSV with columns: ID, Upload ID, File, Size, Status, Progress, Reel ID, Job ID, Created
func HistoryToCSV(entries []HistoryEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Upload ID", "File", "Size", "Status", "Progress", "Reel ID", "Job ID", "Created", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range entries {
		record := []string{
			e.ID,
			e.UploadID,
			e.FileName,
			strconv.FormatInt(e.FileSize, 10),
			string(e.Status),
			strconv.Itoa(e.Progress),
			e.ReelID,
			e.ProcessingJobID,
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToMarkdown converts entries to a Markdown table
func HistoryToMarkdown(entries []HistoryEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Upload History\n\n")
	buf.WriteString(fmt.Sprintf("**Uploads**: %d\n\n", len(entries)))

	if len(entries) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | File | Size | Status | Progress | Reel | Created |\n")
	buf.WriteString("|---|------|------|--------|----------|------|---------|\n")
	for _, e := range entries {
		reel := e.ReelID
		if reel == "" {
			reel = "-"
		}
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %d%% | %s | %s |\n",
			e.Sequence,
			escapeMarkdown(e.FileName),
			validation.FormatFileSize(e.FileSize),
			e.Status,
			e.Progress,
			reel,
			e.CreatedAt.Format("2006-01-02 15:04"),
		))
	}

	return buf.Bytes(), nil
}

// HistoryToText converts entries to one line per upload
func HistoryToText(entries []HistoryEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Uploads: %d\n\n", len(entries)))
	for _, e := range entries {
		buf.WriteString(fmt.Sprintf("#%d %s (%s) %s %d%%", e.Sequence, e.FileName, validation.FormatFileSize(e.FileSize), e.Status, e.Progress))
		if e.UploadID != "" {
			buf.WriteString(" upload=" + e.UploadID)
		}
		if e.ReelID != "" {
			buf.WriteString(" reel=" + e.ReelID)
		}
		if e.Error != "" {
			buf.WriteString(" error=" + strconv.Quote(e.Error))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ManifestToCSV converts a bulk result to CSV with one row per file
func ManifestToCSV(result *models.BulkResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Path", "Success", "Status", "Upload ID", "Reel ID", "Job ID", "Size", "Elapsed (ms)", "Error"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range result.Results {
		record := []string{
			r.Path,
			strconv.FormatBool(r.Success),
			string(r.Status),
			r.UploadID,
			r.ReelID,
			r.JobID,
			strconv.FormatInt(r.Size, 10),
			strconv.FormatInt(r.ElapsedMS, 10),
			r.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ManifestToMarkdown converts a bulk result to a Markdown summary
func ManifestToMarkdown(result *models.BulkResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Bulk Publish\n\n")
	buf.WriteString(fmt.Sprintf("**Files**: %d\n", result.TotalFiles))
	buf.WriteString(fmt.Sprintf("**Succeeded**: %d\n", result.Succeeded))
	buf.WriteString(fmt.Sprintf("**Failed**: %d\n", result.Failed))
	buf.WriteString(fmt.Sprintf("**Total Size**: %s\n", validation.FormatFileSize(result.TotalBytes)))
	if !result.StartedAt.IsZero() && !result.FinishedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Duration**: %s\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Second)))
	}
	buf.WriteString("\n## Files\n\n")

	for i, r := range result.Results {
		if r.Success {
			buf.WriteString(fmt.Sprintf("%d. ✓ %s (upload %s", i+1, escapeMarkdown(r.FileName), r.UploadID))
			if r.ReelID != "" {
				buf.WriteString(", reel " + r.ReelID)
			}
			buf.WriteString(")\n")
			continue
		}
		buf.WriteString(fmt.Sprintf("%d. ✗ %s: %s\n", i+1, escapeMarkdown(r.FileName), r.Error))
	}

	return buf.Bytes(), nil
}

// WriteBulkManifest writes a bulk result to path, choosing the format from the extension
// (.csv, .md or .txt for Markdown, anything else JSON). Parent directories are created.
func WriteBulkManifest(result *models.BulkResult, path string) error {
	if result == nil {
		return fmt.Errorf("%w: nil bulk result", shared.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		data, err = ManifestToCSV(result)
	case ".md", ".txt":
		data, err = ManifestToMarkdown(result)
	default:
		data, err = shared.MarshalJSON(result, true)
	}
	if err != nil {
		return fmt.Errorf("failed to render manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`).Replace(s)
}
