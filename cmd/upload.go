package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/reels/internal/formatter"
	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/shared"
	"github.com/desertthunder/reels/internal/tasks"
	"github.com/desertthunder/reels/internal/validation"
	"github.com/urfave/cli/v3"
)

// UploadValidate runs the pre-flight checks on a local file without uploading it.
func (r *Runner) UploadValidate(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "path")
	if err != nil {
		return err
	}

	res, info, err := r.validator.ValidateFile(ctx, path)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if err := r.writeJSON(res, true); err != nil {
			return err
		}
		return res.Err()
	}

	r.writePlainHeader(info.Name)
	r.writePlain("Type: %s\n", info.MimeType)
	r.writePlain("Size: %s\n", validation.FormatFileSize(info.Size))
	if res.Duration > 0 {
		r.writePlain("Duration: %s\n", validation.FormatDuration(res.Duration))
	}
	if res.Resolution != "" {
		r.writePlain("Resolution: %s\n", res.Resolution)
	}
	if res.Codec != "" {
		r.writePlain("Codec: %s\n", res.Codec)
	}

	chunk := validation.OptimalChunkSize(info.Size)
	r.writePlain("Suggested chunk size: %s\n", validation.FormatFileSize(chunk))
	r.writePlain("Estimated upload time: %s\n", validation.EstimateUploadTime(info.Size, 0))

	for _, w := range res.Warnings {
		r.writePlain("⚠ %s\n", w)
	}
	for _, e := range res.Errors {
		r.writePlain("✗ %s\n", e)
	}
	if res.Valid {
		r.writePlain("✓ Ready to upload\n")
	}

	return res.Err()
}

// publishOpts builds reel metadata from the shared upload flags.
func publishOpts(cmd *cli.Command) (tasks.PublishOpts, error) {
	privacy, ok := models.ParsePrivacy(cmd.String("privacy"))
	if !ok {
		return tasks.PublishOpts{}, fmt.Errorf("%w: privacy must be internal, customer or public", shared.ErrInvalidFlag)
	}

	return tasks.PublishOpts{
		Title:               cmd.String("title"),
		Description:         cmd.String("description"),
		Tags:                cmd.StringSlice("tag"),
		MachineModel:        cmd.String("machine"),
		ProcessStep:         cmd.String("step"),
		Tooling:             cmd.StringSlice("tooling"),
		Privacy:             privacy,
		CustomerAllocations: cmd.StringSlice("customer"),
		Wait:                cmd.Bool("wait"),
	}, nil
}

// UploadStart validates, uploads and finalizes one file, optionally creating a reel.
func (r *Runner) UploadStart(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "path")
	if err != nil {
		return err
	}
	opts, err := publishOpts(cmd)
	if err != nil {
		return err
	}
	opts.Path = path

	r.logger.Info("starting upload", "path", path, "title", opts.Title)

	out, err := r.run(ctx, cmd, "Uploading "+filepath.Base(path), func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (any, error) {
		return r.engine.Publish(ctx, progress, opts)
	})

	result, _ := out.(*tasks.PublishResult)
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("%w: no result", shared.ErrUploadFailed)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("\n")
	r.writePlainHeader("Upload Complete!")
	r.writePlain("File: %s (%s)\n", result.File.Name, validation.FormatFileSize(result.File.Size))
	r.writePlain("Upload ID: %s\n", result.Upload.ID)
	if result.Reel != nil {
		r.writePlain("Reel: %s %q\n", result.Reel.ID, result.Reel.Title)
	}
	if result.Job != nil {
		r.writePlain("Processing job: %s (%s)\n", result.Job.ID, result.Job.Status)
	}
	if secs := result.Elapsed.Seconds(); secs > 0 {
		r.writePlain("Elapsed: %s at %s\n", validation.FormatDuration(secs), validation.FormatUploadSpeed(float64(result.File.Size)/secs))
	}
	return nil
}

// UploadStatus prints the backend view of an upload.
func (r *Runner) UploadStatus(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	status, err := r.client.Uploads.Status(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}
	r.printUploadStatus(id, status)
	return nil
}

func (r *Runner) printUploadStatus(id string, status *models.UploadStatusResponse) {
	r.writePlain("Upload %s: %s (%d%%)\n", id, status.Status, status.Progress)
	if status.ReelID != "" {
		r.writePlain("Reel: %s\n", status.ReelID)
	}
	if status.ProcessingJob != nil {
		r.writePlain("Processing job: %s (%s, %d%%)\n", status.ProcessingJob.ID, status.ProcessingJob.Status, status.ProcessingJob.Progress)
	}
	if status.Error != "" {
		r.writePlain("Error: %s\n", status.Error)
	}
}

// UploadWait polls an upload until it completes or fails.
func (r *Runner) UploadWait(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if timeout := cmd.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := r.runWithProgress(ctx, func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (any, error) {
		return r.engine.WaitUpload(ctx, progress, id)
	})
	if err != nil {
		return err
	}

	status := out.(*models.UploadStatusResponse)
	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}
	r.printUploadStatus(id, status)
	return nil
}

// UploadCancel cancels an upload on the backend and marks the local ledger entry.
func (r *Runner) UploadCancel(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	if err := r.client.Uploads.Cancel(ctx, id); err != nil {
		return err
	}
	r.logger.Info("upload cancelled", "upload_id", id)

	if repo, err := r.ledger(); err == nil {
		if session, err := repo.GetByUploadID(id); err == nil && !session.Status().IsTerminal() {
			session.SetStatus(models.UploadError)
			session.SetErrorMessage("cancelled")
			if err := repo.Update(session); err != nil {
				r.logger.Warn("failed to update ledger", "upload_id", id, "error", err)
			}
		}
	}

	return r.writePlain("✓ Upload %s cancelled\n", id)
}

// UploadActive lists uploads the backend still considers in progress.
func (r *Runner) UploadActive(ctx context.Context, cmd *cli.Command) error {
	active, err := r.client.Uploads.Active(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(active, true)
	}
	if len(active) == 0 {
		return r.writePlain("No active uploads\n")
	}

	r.writePlainHeader(fmt.Sprintf("Active uploads (%d)", len(active)))
	for _, u := range active {
		line := fmt.Sprintf("%-12s %3d%%", u.Status, u.Progress)
		if u.ReelID != "" {
			line += " reel=" + u.ReelID
		}
		r.writePlain("%s\n", line)
	}
	return nil
}

// UploadHistory prints the local upload ledger.
func (r *Runner) UploadHistory(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.ledger()
	if err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if status := cmd.String("status"); status != "" {
		criteria["status"] = status
	}

	sessions, err := repo.List(criteria)
	if err != nil {
		return err
	}

	dest := cmd.String("output")
	if dest == "" {
		return formatter.WriteHistory(r.output, sessions, format)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := formatter.WriteHistory(f, sessions, format); err != nil {
		return err
	}
	r.logger.Info("history written", "path", dest, "entries", len(sessions))
	return r.writePlain("✓ Wrote %d entries to %s\n", len(sessions), dest)
}

// UploadBulk publishes many files with a worker pool.
func (r *Runner) UploadBulk(ctx context.Context, cmd *cli.Command) error {
	paths, err := expandPaths(cmd.Args().Slice())
	if err != nil {
		return err
	}
	template, err := publishOpts(cmd)
	if err != nil {
		return err
	}

	opts := tasks.BulkOpts{
		Template:          template,
		TitleFromFileName: cmd.Bool("title-from-filename"),
		NumWorkers:        int(cmd.Int("workers")),
		RateLimit:         cmd.Float("rate"),
		ManifestPath:      cmd.String("manifest"),
	}

	r.logger.Info("starting bulk upload", "files", len(paths), "workers", opts.NumWorkers)

	out, err := r.run(ctx, cmd, fmt.Sprintf("Uploading %d files", len(paths)), func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (any, error) {
		return r.engine.BulkPublish(ctx, progress, paths, opts)
	})
	if err != nil {
		return err
	}

	result := out.(*models.BulkResult)
	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("\n")
	r.writePlainHeader("Bulk Upload Complete!")
	r.writePlain("Files: %d, succeeded: %d, failed: %d\n", result.TotalFiles, result.Succeeded, result.Failed)
	r.writePlain("Total: %s in %s\n", validation.FormatFileSize(result.TotalBytes), result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	if result.Failed > 0 {
		r.writePlainln("Failed files:")
		for _, item := range result.Results {
			if !item.Success {
				r.writePlain("  - %s: %s\n", item.FileName, item.Error)
			}
		}
	}
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	return nil
}

// expandPaths resolves glob patterns and drops directories.
func expandPaths(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: at least one file", shared.ErrMissingArgument)
	}

	var paths []string
	for _, arg := range args {
		matches := []string{arg}
		if strings.ContainsAny(arg, "*?[") {
			var err error
			if matches, err = filepath.Glob(arg); err != nil {
				return nil, fmt.Errorf("%w: bad pattern %q", shared.ErrInvalidArgument, arg)
			}
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				continue
			}
			paths = append(paths, m)
		}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files matched", shared.ErrMissingArgument)
	}
	return paths, nil
}

func reelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Create a reel with this title"},
		&cli.StringFlag{Name: "description", Usage: "Reel description"},
		&cli.StringSliceFlag{Name: "tag", Usage: "Reel tag (repeatable)"},
		&cli.StringFlag{Name: "machine", Usage: "Machine model shown in the video"},
		&cli.StringFlag{Name: "step", Usage: "Process step shown in the video"},
		&cli.StringSliceFlag{Name: "tooling", Usage: "Tooling used (repeatable)"},
		&cli.StringFlag{Name: "privacy", Usage: "internal, customer or public", Value: string(models.PrivacyInternal)},
		&cli.StringSliceFlag{Name: "customer", Usage: "Customer allocation for customer privacy (repeatable)"},
		&cli.BoolFlag{Name: "wait", Usage: "Wait for the processing job to finish"},
	}
}

// uploadCommand handles chunked uploads and the local ledger
func uploadCommand(r *Runner) *cli.Command {
	idArg := []cli.Argument{&cli.StringArg{Name: "id"}}

	return &cli.Command{
		Name:    "upload",
		Aliases: []string{"up"},
		Usage:   "Validate and upload training videos",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Run pre-flight checks on a video file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.UploadValidate,
			},
			{
				Name:      "start",
				Usage:     "Upload a video in chunks and optionally publish it as a reel",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags:     append(reelFlags(), tuiFlag(), statusAddrFlag(), jsonFlag()),
				Action:    r.UploadStart,
			},
			{
				Name:      "status",
				Usage:     "Show the backend status of an upload",
				Arguments: idArg,
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.UploadStatus,
			},
			{
				Name:      "wait",
				Usage:     "Poll an upload until it completes or fails",
				Arguments: idArg,
				Flags: []cli.Flag{
					jsonFlag(),
					&cli.DurationFlag{Name: "timeout", Usage: "Give up after this long (0 waits forever)"},
				},
				Action: r.UploadWait,
			},
			{
				Name:      "cancel",
				Usage:     "Cancel an upload on the backend",
				Arguments: idArg,
				Action:    r.UploadCancel,
			},
			{
				Name:   "active",
				Usage:  "List uploads still in progress on the backend",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.UploadActive,
			},
			{
				Name:  "history",
				Usage: "Show the local upload ledger",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json, csv, txt or markdown", Value: formatter.FormatText},
					&cli.IntFlag{Name: "limit", Usage: "Maximum entries", Value: 20},
					&cli.StringFlag{Name: "status", Usage: "Only uploads with this status"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to a file instead of stdout"},
				},
				Action: r.UploadHistory,
			},
			{
				Name:      "bulk",
				Usage:     "Upload many files with a worker pool",
				ArgsUsage: "<file|glob>...",
				Flags: append(reelFlags(),
					&cli.BoolFlag{Name: "title-from-filename", Usage: "Create a reel per file titled after its file name"},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent uploads (max 5)", Value: 2},
					&cli.FloatFlag{Name: "rate", Usage: "Upload initiations per second", Value: 1},
					&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, Usage: "Write a manifest (.json, .csv or .md)"},
					tuiFlag(), statusAddrFlag(), jsonFlag(),
				),
				Action: r.UploadBulk,
			},
		},
	}
}
