package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ProgressView ViewState = iota
	ResultView
)

// maxEvents bounds the message history shown under the progress bar.
const maxEvents = 6

// RunFunc is the long-running operation the model displays. It must not close progress.
type RunFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (any, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	title        string
	view         ViewState
	run          RunFunc
	abort        func() int
	width        int
	progressChan chan tasks.ProgressUpdate
	done         chan runOutcome
	progress     tasks.ProgressUpdate
	percent      float64
	events       []string
	aborted      bool
	result       any
	err          error
	bar          progress.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a model that runs run on Init. abort is called when the user aborts.
func NewModel(ctx context.Context, title string, run RunFunc, abort func() int) *Model {
	return &Model{
		ctx:   ctx,
		title: title,
		view:  ProgressView,
		run:   run,
		abort: abort,
		bar:   progress.New(progress.WithDefaultGradient()),
		help:  help.New(),
		keys:  newKeyMap(),
	}
}

// Init starts the run and waits for its first update.
func (m *Model) Init() tea.Cmd {
	return m.start()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-8, 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.apply(msg.data.(tasks.ProgressUpdate))
			return m, m.waitForProgress()
		case MsgRunComplete:
			outcome := msg.data.(runOutcome)
			m.result = outcome.result
			m.err = outcome.err
			m.view = ResultView
			if m.err == nil {
				m.percent = 1
			}
			return m, nil
		}
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ProgressView:
		return m.renderProgress()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Result returns what the run returned once it has finished.
func (m *Model) Result() (any, error) { return m.result, m.err }

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case m.view == ResultView && (key.Matches(msg, m.keys.quit) || key.Matches(msg, m.keys.abort)):
		return m, tea.Quit
	case key.Matches(msg, m.keys.abort):
		if !m.aborted && m.abort != nil {
			n := m.abort()
			m.aborted = true
			m.pushEvent(styles.warn.Render(fmt.Sprintf("Aborting %d upload(s)...", n)))
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) apply(update tasks.ProgressUpdate) {
	m.progress = update
	switch update.Phase {
	case tasks.Upload:
		m.percent = update.Percent()
	case tasks.Bulk:
		m.percent = update.Percent()
	case tasks.Done:
		m.percent = 1
	}
	if update.Message != "" {
		m.pushEvent(update.Message)
	}
}

func (m *Model) pushEvent(s string) {
	m.events = append(m.events, s)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}

// start launches the run. The outcome is buffered before progress is closed so
// waitForProgress always finds it after the channel drains.
func (m *Model) start() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan runOutcome, 1)

	go func(ch chan tasks.ProgressUpdate, done chan<- runOutcome) {
		result, err := m.run(m.ctx, ch)
		done <- runOutcome{result, err}
		close(ch)
	}(m.progressChan, m.done)

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	ch, done := m.progressChan, m.done
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			outcome := <-done
			return runCompleteMsg(outcome.result, outcome.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderProgress() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(m.title))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Phase: %s\n\n", m.progress.Phase))
	b.WriteString(m.bar.ViewAs(m.percent))
	b.WriteString("\n\n")
	for _, e := range m.events {
		b.WriteString("  " + e + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderResult() string {
	var b strings.Builder

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("✗ Failed: %v", m.err)))
	} else {
		b.WriteString(styles.ok.Render("✓ " + m.title + " complete"))
	}
	b.WriteString("\n\n")

	switch res := m.result.(type) {
	case *tasks.PublishResult:
		b.WriteString(renderPublish(res))
	case *models.BulkResult:
		b.WriteString(renderBulk(res))
	}

	b.WriteString("\n" + m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func renderPublish(res *tasks.PublishResult) string {
	if res == nil {
		return ""
	}

	var b strings.Builder
	if res.Upload != nil {
		fmt.Fprintf(&b, "Upload:  %s (%s)\n", res.Upload.ID, styles.Status(res.Upload.Status))
		fmt.Fprintf(&b, "File:    %s, %d bytes\n", res.Upload.FileName, res.Upload.Size)
	}
	if res.Reel != nil {
		fmt.Fprintf(&b, "Reel:    %s %q\n", res.Reel.ID, res.Reel.Title)
	}
	if res.Job != nil {
		fmt.Fprintf(&b, "Job:     %s (%s)\n", res.Job.ID, res.Job.Status)
	}
	for _, w := range res.Validation.Warnings {
		b.WriteString(styles.warn.Render("Warning: "+w) + "\n")
	}
	fmt.Fprintf(&b, "Elapsed: %s\n", res.Elapsed.Round(time.Millisecond))
	return b.String()
}

func renderBulk(res *models.BulkResult) string {
	if res == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Files: %d  Succeeded: %d  Failed: %d\n\n", res.TotalFiles, res.Succeeded, res.Failed)
	for _, item := range res.Results {
		if item.Success {
			fmt.Fprintf(&b, "  %s %s %s\n", styles.ok.Render("✓"), item.FileName, styles.help.Render(item.UploadID))
		} else {
			fmt.Fprintf(&b, "  %s %s %s\n", styles.err.Render("✗"), item.FileName, item.Error)
		}
	}
	if res.ManifestPath != "" {
		fmt.Fprintf(&b, "\nManifest: %s\n", res.ManifestPath)
	}
	return b.String()
}
