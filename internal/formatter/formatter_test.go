package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/shared"
	th "github.com/desertthunder/reels/internal/testing"
)

func sessions() []*models.UploadSession {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	done := models.NewUploadSession(2, "/videos/spindle_setup.mp4", 15*1024*1024, 5*1024*1024)
	done.SetID("s2")
	done.SetUploadID("upload-2")
	done.SetStatus(models.UploadComplete)
	done.SetProgress(100)
	done.SetReelID("reel-2")
	done.SetCreatedAt(created)

	failed := models.NewUploadSession(1, "/videos/lathe|intro.mov", 2048, 1024)
	failed.SetID("s1")
	failed.SetStatus(models.UploadError)
	failed.SetProgress(50)
	failed.SetErrorMessage(`HTTP 500: "internal"`)
	failed.SetCreatedAt(created.Add(-time.Hour))

	return []*models.UploadSession{done, failed}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]string{
		"":         FormatJSON,
		"JSON":     FormatJSON,
		"csv":      FormatCSV,
		"text":     FormatText,
		"txt":      FormatText,
		"md":       FormatMarkdown,
		"markdown": FormatMarkdown,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
}

func TestWriteHistory(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteHistory(&buf, sessions(), "json"); err != nil {
			t.Fatalf("WriteHistory failed: %v", err)
		}

		var entries []HistoryEntry
		if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].FileName != "spindle_setup.mp4" || entries[0].ReelID != "reel-2" || entries[0].Status != models.UploadComplete {
			t.Errorf("unexpected entry %+v", entries[0])
		}
		if entries[1].Error == "" {
			t.Error("error message should be included")
		}
	})

	t.Run("CSV", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteHistory(&buf, sessions(), "csv"); err != nil {
			t.Fatalf("WriteHistory failed: %v", err)
		}

		records, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header + 2 rows, got %d", len(records))
		}
		if records[0][0] != "ID" || records[1][0] != "s2" || records[1][4] != "complete" {
			t.Errorf("unexpected rows %v", records[:2])
		}
		if records[1][8] != "2026-03-14T09:30:00Z" {
			t.Errorf("unexpected created column %q", records[1][8])
		}
		if records[2][9] != `HTTP 500: "internal"` {
			t.Errorf("error column not preserved: %q", records[2][9])
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteHistory(&buf, sessions(), "md"); err != nil {
			t.Fatalf("WriteHistory failed: %v", err)
		}
		output := buf.String()

		if !strings.Contains(output, "# Upload History") || !strings.Contains(output, "**Uploads**: 2") {
			t.Errorf("markdown missing header: %s", output)
		}
		if !strings.Contains(output, `spindle\_setup.mp4`) || !strings.Contains(output, `lathe\|intro.mov`) {
			t.Errorf("markdown should escape file names: %s", output)
		}
		if !strings.Contains(output, "| 2 | spindle\\_setup.mp4 | 15 MB | complete | 100% | reel-2 |") {
			t.Errorf("unexpected table row: %s", output)
		}
	})

	t.Run("Markdown Empty", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteHistory(&buf, nil, "markdown"); err != nil {
			t.Fatalf("WriteHistory failed: %v", err)
		}
		if strings.Contains(buf.String(), "|") {
			t.Error("empty history should not render a table")
		}
	})

	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteHistory(&buf, sessions(), "txt"); err != nil {
			t.Fatalf("WriteHistory failed: %v", err)
		}
		output := buf.String()

		if !strings.Contains(output, "Uploads: 2") {
			t.Errorf("text missing count: %s", output)
		}
		if !strings.Contains(output, "#2 spindle_setup.mp4 (15 MB) complete 100% upload=upload-2 reel=reel-2") {
			t.Errorf("unexpected line: %s", output)
		}
		if !strings.Contains(output, `error="HTTP 500: \"internal\""`) {
			t.Errorf("error should be quoted: %s", output)
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteHistory(&buf, sessions(), "yaml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("Write Failure", func(t *testing.T) {
		if err := WriteHistory(&th.FWriter{}, sessions(), "json"); err == nil {
			t.Error("expected write error")
		}
	})
}

func bulkResult() *models.BulkResult {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &models.BulkResult{
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		TotalFiles: 2,
		Succeeded:  1,
		Failed:     1,
		TotalBytes: 3 * 1024 * 1024,
		Results: []models.BulkItemResult{
			{Path: "/videos/a.mp4", FileName: "a.mp4", UploadID: "u1", ReelID: "r1", Status: models.UploadProcessing, Success: true, Size: 3 * 1024 * 1024},
			{Path: "/videos/b.mp4", FileName: "b.mp4", Status: models.UploadError, Error: "validation failed: File too large"},
		},
	}
}

func TestWriteBulkManifest(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "manifest.json")
		if err := WriteBulkManifest(bulkResult(), path); err != nil {
			t.Fatalf("WriteBulkManifest failed: %v", err)
		}
		th.AssertFileExists(t, path)

		content := th.MustReadFile(t, path)
		for _, want := range []string{`"totalFiles": 2`, `"succeeded": 1`, `"uploadId": "u1"`, `File too large`} {
			if !strings.Contains(content, want) {
				t.Errorf("manifest missing %s", want)
			}
		}
	})

	t.Run("CSV", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "manifest.csv")
		if err := WriteBulkManifest(bulkResult(), path); err != nil {
			t.Fatalf("WriteBulkManifest failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(th.MustReadFile(t, path))).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if len(records) != 3 || records[1][1] != "true" || records[2][1] != "false" {
			t.Errorf("unexpected records %v", records)
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "manifest.md")
		if err := WriteBulkManifest(bulkResult(), path); err != nil {
			t.Fatalf("WriteBulkManifest failed: %v", err)
		}

		content := th.MustReadFile(t, path)
		for _, want := range []string{"**Succeeded**: 1", "**Duration**: 1m30s", "1. ✓ a.mp4 (upload u1, reel r1)", "2. ✗ b.mp4: validation failed"} {
			if !strings.Contains(content, want) {
				t.Errorf("markdown missing %q:\n%s", want, content)
			}
		}
	})

	t.Run("Nil Result", func(t *testing.T) {
		if err := WriteBulkManifest(nil, filepath.Join(t.TempDir(), "m.json")); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
