package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/shared"
	"github.com/urfave/cli/v3"
)

// ReelsCreate publishes an already finalized upload as a reel.
func (r *Runner) ReelsCreate(ctx context.Context, cmd *cli.Command) error {
	uploadID, err := requireArg(cmd, "upload-id")
	if err != nil {
		return err
	}
	opts, err := publishOpts(cmd)
	if err != nil {
		return err
	}
	if opts.Title == "" {
		return fmt.Errorf("%w: --title", shared.ErrMissingArgument)
	}

	resp, err := r.client.Reels.Create(ctx, models.CreateReelRequest{
		UploadID:            uploadID,
		Title:               opts.Title,
		Description:         opts.Description,
		Tags:                opts.Tags,
		MachineModel:        opts.MachineModel,
		ProcessStep:         opts.ProcessStep,
		Tooling:             opts.Tooling,
		Privacy:             opts.Privacy,
		CustomerAllocations: opts.CustomerAllocations,
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp, true)
	}
	r.writePlain("✓ Reel %s created: %q\n", resp.Reel.ID, resp.Reel.Title)
	if resp.ProcessingJob != nil {
		r.writePlain("Processing job: %s (%s)\n", resp.ProcessingJob.ID, resp.ProcessingJob.Status)
	}
	return nil
}

// ReelsGet prints a reel and the caller's permissions.
func (r *Runner) ReelsGet(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	resp, err := r.client.Reels.Get(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp, true)
	}

	reel := resp.Reel
	r.writePlainHeader(reel.Title)
	r.writePlain("ID: %s\n", reel.ID)
	r.writePlain("Status: %s\n", reel.Status)
	r.writePlain("Privacy: %s\n", reel.Privacy)
	if reel.Duration > 0 {
		r.writePlain("Duration: %.0fs\n", reel.Duration)
	}
	if len(reel.Tags) > 0 {
		r.writePlain("Tags: %s\n", strings.Join(reel.Tags, ", "))
	}
	if reel.MachineModel != "" {
		r.writePlain("Machine: %s\n", reel.MachineModel)
	}
	if reel.ProcessStep != "" {
		r.writePlain("Step: %s\n", reel.ProcessStep)
	}
	if resp.PlaybackURL != "" {
		r.writePlain("Playback: %s\n", resp.PlaybackURL)
	}
	return nil
}

// ReelsDelete removes a reel.
func (r *Runner) ReelsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.client.Reels.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Reel %s deleted\n", id)
}

// ReelsSearch queries reels with filters.
func (r *Runner) ReelsSearch(ctx context.Context, cmd *cli.Command) error {
	filters := models.SearchFilters{
		Query:         cmd.StringArg("query"),
		Tags:          cmd.StringSlice("tag"),
		MachineModels: cmd.StringSlice("machine"),
		ProcessSteps:  cmd.StringSlice("step"),
		Privacy:       cmd.StringSlice("privacy"),
		DurationMin:   cmd.Float("min-duration"),
		DurationMax:   cmd.Float("max-duration"),
	}

	result, err := r.client.Reels.Search(ctx, filters)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("%d reels (page %d)\n", result.Total, result.Page)
	for _, reel := range result.Reels {
		r.writePlain("  %s  %-40s %4.0fs  %s\n", reel.ID, reel.Title, reel.Duration, strings.Join(reel.Tags, ","))
	}
	return nil
}

// reelsCommand handles reel records
func reelsCommand(r *Runner) *cli.Command {
	idArg := []cli.Argument{&cli.StringArg{Name: "id"}}

	return &cli.Command{
		Name:  "reels",
		Usage: "Create, inspect and search reels",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a reel from a finalized upload",
				Arguments: []cli.Argument{&cli.StringArg{Name: "upload-id"}},
				Flags:     append(reelFlags(), jsonFlag()),
				Action:    r.ReelsCreate,
			},
			{
				Name:      "get",
				Usage:     "Show a reel",
				Arguments: idArg,
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.ReelsGet,
			},
			{
				Name:      "delete",
				Usage:     "Delete a reel",
				Arguments: idArg,
				Action:    r.ReelsDelete,
			},
			{
				Name:      "search",
				Usage:     "Search reels",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "tag", Usage: "Filter by tag (repeatable)"},
					&cli.StringSliceFlag{Name: "machine", Usage: "Filter by machine model (repeatable)"},
					&cli.StringSliceFlag{Name: "step", Usage: "Filter by process step (repeatable)"},
					&cli.StringSliceFlag{Name: "privacy", Usage: "Filter by privacy (repeatable)"},
					&cli.FloatFlag{Name: "min-duration", Usage: "Minimum duration in seconds"},
					&cli.FloatFlag{Name: "max-duration", Usage: "Maximum duration in seconds"},
					jsonFlag(),
				},
				Action: r.ReelsSearch,
			},
		},
	}
}
