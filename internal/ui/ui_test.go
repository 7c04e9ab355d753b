package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/tasks"
)

// pump runs cmd and feeds its message back into the model until the run completes.
func pump(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil && i < 100; i++ {
		msg := cmd()
		_, cmd = m.Update(msg)
	}
	if m.view != ResultView {
		t.Fatalf("expected result view, got %d", m.view)
	}
}

func keyMsg(s string) tea.KeyMsg {
	if s == "ctrl+c" {
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel(t *testing.T) {
	t.Run("Publish", func(t *testing.T) {
		run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (any, error) {
			for i := 1; i <= 3; i++ {
				progress <- tasks.ProgressUpdate{Phase: tasks.Upload, Step: i, Total: 3, Message: "chunk"}
			}
			progress <- tasks.ProgressUpdate{Phase: tasks.Done, Message: "Published drill.mp4"}
			return &tasks.PublishResult{
				Upload:  &models.VideoUpload{ID: "upload-1", FileName: "drill.mp4", Size: 42, Status: models.UploadComplete},
				Reel:    &models.Reel{ID: "reel-1", Title: "Drill"},
				Job:     &models.ProcessingJob{ID: "job-1", Status: models.JobComplete},
				Elapsed: 1500 * time.Millisecond,
			}, nil
		}

		m := NewModel(context.Background(), "Uploading drill.mp4", run, nil)
		pump(t, m, m.Init())

		if m.percent != 1 {
			t.Errorf("expected full bar, got %v", m.percent)
		}
		res, err := m.Result()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.(*tasks.PublishResult).Upload.ID != "upload-1" {
			t.Errorf("unexpected result %+v", res)
		}

		view := m.View()
		for _, want := range []string{"upload-1", "reel-1", "job-1", "1.5s"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected view to contain %q, got:\n%s", want, view)
			}
		}
	})

	t.Run("Progress View", func(t *testing.T) {
		m := NewModel(context.Background(), "Uploading", nil, nil)
		m.Update(progressUpdateMsg(tasks.ProgressUpdate{Phase: tasks.Upload, Step: 1, Total: 3, Message: "Uploaded chunk 1/3"}))

		if m.percent < 0.33 || m.percent > 0.34 {
			t.Errorf("expected one third, got %v", m.percent)
		}
		view := m.View()
		if !strings.Contains(view, "upload") || !strings.Contains(view, "Uploaded chunk 1/3") {
			t.Errorf("unexpected progress view:\n%s", view)
		}
	})

	t.Run("Event History Is Bounded", func(t *testing.T) {
		m := NewModel(context.Background(), "Uploading", nil, nil)
		for i := 0; i < maxEvents+4; i++ {
			m.apply(tasks.ProgressUpdate{Phase: tasks.Validate, Message: "event"})
		}
		if len(m.events) != maxEvents {
			t.Errorf("expected %d events, got %d", maxEvents, len(m.events))
		}
	})

	t.Run("Abort", func(t *testing.T) {
		release := make(chan struct{})
		aborts := 0
		abort := func() int {
			aborts++
			close(release)
			return 1
		}
		run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (any, error) {
			progress <- tasks.ProgressUpdate{Phase: tasks.Upload, Step: 0, Total: 2, Message: "started"}
			<-release
			return nil, errors.New("upload aborted")
		}

		m := NewModel(context.Background(), "Uploading", run, abort)
		cmd := m.Init()
		_, cmd = m.Update(cmd())

		m.Update(keyMsg("a"))
		m.Update(keyMsg("ctrl+c"))
		if aborts != 1 {
			t.Errorf("expected abort to be called once, got %d", aborts)
		}

		pump(t, m, cmd)

		if _, err := m.Result(); err == nil {
			t.Fatal("expected run error")
		}
		if !strings.Contains(m.View(), "upload aborted") {
			t.Errorf("expected error in view:\n%s", m.View())
		}

		_, quit := m.Update(keyMsg("q"))
		if quit == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := quit().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})

	t.Run("Quit Ignored While Running", func(t *testing.T) {
		m := NewModel(context.Background(), "Uploading", nil, nil)
		if _, cmd := m.Update(keyMsg("q")); cmd != nil {
			t.Error("expected no command while running")
		}
	})

	t.Run("Bulk Result", func(t *testing.T) {
		m := NewModel(context.Background(), "Bulk upload", nil, nil)
		m.Update(runCompleteMsg(&models.BulkResult{
			TotalFiles: 2,
			Succeeded:  1,
			Failed:     1,
			Results: []models.BulkItemResult{
				{FileName: "a.mp4", UploadID: "u1", Success: true},
				{FileName: "b.mp4", Error: "File too large"},
			},
			ManifestPath: "out/manifest.json",
		}, nil))

		view := m.View()
		for _, want := range []string{"Succeeded: 1", "a.mp4", "File too large", "out/manifest.json"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected view to contain %q, got:\n%s", want, view)
			}
		}
	})

	t.Run("Window Size", func(t *testing.T) {
		m := NewModel(context.Background(), "Uploading", nil, nil)
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
		if m.bar.Width != 92 {
			t.Errorf("expected bar width 92, got %d", m.bar.Width)
		}
	})
}
