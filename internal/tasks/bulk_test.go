package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/shared"
)

func TestBulkPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("Publishes Every File", func(t *testing.T) {
		f := newFixture()
		dir := t.TempDir()
		paths := []string{
			writeVideo(t, dir, "lathe_intro.mp4", 2*chunkSize),
			writeVideo(t, dir, "mill-setup.mp4", chunkSize),
			writeVideo(t, dir, "drill.mp4", 3*chunkSize),
		}
		manifest := filepath.Join(dir, "manifest.json")
		progress := make(chan ProgressUpdate, 100)

		result, err := f.engine.BulkPublish(ctx, progress, paths, BulkOpts{
			TitleFromFileName: true,
			NumWorkers:        2,
			RateLimit:         1000,
			ManifestPath:      manifest,
		})
		if err != nil {
			t.Fatalf("bulk publish failed: %v", err)
		}

		if result.Succeeded != 3 || result.Failed != 0 || result.TotalFiles != 3 {
			t.Errorf("unexpected counts %+v", result)
		}
		if result.TotalBytes != 6*chunkSize {
			t.Errorf("expected %d bytes, got %d", 6*chunkSize, result.TotalBytes)
		}
		for i, res := range result.Results {
			if res.Path != paths[i] {
				t.Errorf("result %d out of input order: %s", i, res.Path)
			}
			if !res.Success || res.UploadID == "" || res.ReelID != "reel-1" {
				t.Errorf("unexpected item %+v", res)
			}
		}
		if f.transport.Calls() != 6 {
			t.Errorf("expected 6 chunk PUTs, got %d", f.transport.Calls())
		}

		var titles []string
		for _, req := range f.reels.requests {
			titles = append(titles, req.Title)
		}
		sort.Strings(titles)
		if strings.Join(titles, ",") != "drill,lathe intro,mill setup" {
			t.Errorf("unexpected titles %v", titles)
		}

		data, err := os.ReadFile(manifest)
		if err != nil {
			t.Fatalf("manifest not written: %v", err)
		}
		var written models.BulkResult
		if err := json.Unmarshal(data, &written); err != nil {
			t.Fatalf("invalid manifest: %v", err)
		}
		if written.Succeeded != 3 || len(written.Results) != 3 {
			t.Errorf("unexpected manifest %+v", written)
		}
		if result.ManifestPath != manifest {
			t.Errorf("expected manifest path %s, got %s", manifest, result.ManifestPath)
		}

		updates := drain(progress)
		if len(updates) != 4 || updates[0].Phase != Bulk || updates[3].Step != 3 {
			t.Errorf("unexpected bulk updates %+v", updates)
		}
	})

	t.Run("Collects Partial Failures", func(t *testing.T) {
		f := newFixture()
		dir := t.TempDir()
		paths := []string{
			writeVideo(t, dir, "ok.mp4", chunkSize),
			filepath.Join(dir, "missing.mp4"),
		}

		result, err := f.engine.BulkPublish(ctx, nil, paths, BulkOpts{RateLimit: 1000})
		if err != nil {
			t.Fatalf("bulk publish failed: %v", err)
		}
		if result.Succeeded != 1 || result.Failed != 1 {
			t.Errorf("expected 1 success and 1 failure, got %+v", result)
		}
		if result.Results[1].Success || result.Results[1].Error == "" || result.Results[1].Status != models.UploadError {
			t.Errorf("expected failure for missing file, got %+v", result.Results[1])
		}
	})

	t.Run("Cancelled Context Fails Remaining Files", func(t *testing.T) {
		f := newFixture()
		dir := t.TempDir()
		var paths []string
		for i := range 4 {
			paths = append(paths, writeVideo(t, dir, fmt.Sprintf("clip%d.mp4", i), chunkSize))
		}
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		result, err := f.engine.BulkPublish(cctx, nil, paths, BulkOpts{})
		if err != nil {
			t.Fatalf("bulk publish failed: %v", err)
		}
		if result.Failed != 4 || result.Succeeded != 0 {
			t.Errorf("expected every file to fail, got %+v", result)
		}
		if f.transport.Calls() != 0 {
			t.Error("no chunks should be sent after cancellation")
		}
	})

	t.Run("No Files", func(t *testing.T) {
		f := newFixture()
		if _, err := f.engine.BulkPublish(ctx, nil, nil, BulkOpts{}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestTitleFromFileName(t *testing.T) {
	tests := map[string]string{
		"spindle_setup-part-2.mp4": "spindle setup part 2",
		"/videos/Lathe Intro.MOV":  "Lathe Intro",
		"plain":                    "plain",
		"__weird__.webm":           "weird",
	}
	for in, want := range tests {
		if got := TitleFromFileName(in); got != want {
			t.Errorf("TitleFromFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
