// submodule cmd contains command definitions
package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/reels/internal/server"
	"github.com/desertthunder/reels/internal/shared"
	"github.com/desertthunder/reels/internal/tasks"
	"github.com/desertthunder/reels/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogPath = "./tmp/reels-tui.log"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

func prettyFlag() cli.Flag {
	return &cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output", Value: true}
}

func tuiFlag() cli.Flag {
	return &cli.BoolFlag{Name: "tui", Usage: "Show an interactive progress view"}
}

func statusAddrFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "status-addr",
		Usage: "Serve live upload status on this address (e.g. 127.0.0.1:4680) while running",
	}
}

// requireArg returns the named string argument or a missing argument error.
func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.StringArg(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}

// printProgress renders updates as plain lines until progress is closed.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate) {
	lastPercent := -1
	for update := range progress {
		switch update.Phase {
		case tasks.Validate:
			r.writePlain("🔎 %s\n", update.Message)
		case tasks.Initiate:
			r.writePlain("📤 %s\n", update.Message)
		case tasks.Upload:
			// Chunk snapshots can repeat a percentage; print each step once.
			pct := int(update.Percent() * 100)
			if pct != lastPercent {
				lastPercent = pct
				r.writePlain("   %s\n", update.Message)
			}
		case tasks.Complete, tasks.CreateReel:
			r.writePlain("📝 %s\n", update.Message)
		case tasks.WaitUploadStatus, tasks.WaitJobStatus:
			r.writePlain("⏳ %s\n", update.Message)
		case tasks.Bulk:
			r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
		case tasks.FetchOverview:
			r.writePlain("📊 %s\n", update.Message)
		case tasks.Done:
			r.writePlain("✓ %s\n", update.Message)
		}
	}
}

// runWithProgress runs fn, printing its updates, and waits for the printer to drain.
func (r *Runner) runWithProgress(ctx context.Context, fn ui.RunFunc) (any, error) {
	progress := make(chan tasks.ProgressUpdate, 50)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.printProgress(progress)
	}()

	result, err := fn(ctx, progress)
	close(progress)
	wg.Wait()

	return result, err
}

// runWithTUI runs fn under the bubbletea progress view.
func (r *Runner) runWithTUI(ctx context.Context, title string, fn ui.RunFunc) (any, error) {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	previous := r.logger
	r.SetLogger(fileLogger)
	defer r.SetLogger(previous)

	model := ui.NewModel(ctx, title, fn, r.engine.AbortActive)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}

	return model.Result()
}

// run dispatches to the TUI or the plain progress printer based on --tui.
func (r *Runner) run(ctx context.Context, cmd *cli.Command, title string, fn ui.RunFunc) (any, error) {
	stop, err := r.startStatusServer(cmd.String("status-addr"))
	if err != nil {
		return nil, err
	}
	defer stop()

	if cmd.Bool("tui") {
		return r.runWithTUI(ctx, title, fn)
	}
	return r.runWithProgress(ctx, fn)
}

// startStatusServer serves manager snapshots on addr until the returned stop func is called.
func (r *Runner) startStatusServer(addr string) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}

	router := server.NewStatusRouter(
		r.manager,
		server.RecoverMiddleware(r.logger),
		server.LoggingMiddleware(r.logger),
	)
	srv, err := server.Start(addr, router, r.logger)
	if err != nil {
		return nil, err
	}
	r.writePlain("Status server: http://%s/uploads\n", srv.Addr())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		for err := range srv.Errors() {
			r.logger.Warn("status server error", "error", err)
		}
	}, nil
}
