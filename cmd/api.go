package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/desertthunder/reels/internal/services"
	"github.com/desertthunder/reels/internal/shared"
	"github.com/desertthunder/reels/internal/tasks"
	"github.com/urfave/cli/v3"
)

const overviewFile = "reels_overview.json"

// APIGet makes a direct authenticated GET request to the backend
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "path")
	if err != nil {
		return err
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.client.API.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	return r.writeResponse(resp, !cmd.Bool("json"))
}

// APIPost makes a direct authenticated POST request to the backend
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "path")
	if err != nil {
		return err
	}
	data := cmd.String("data")

	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	var jsonTest any
	if err := json.Unmarshal([]byte(data), &jsonTest); err != nil {
		return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}

	r.logger.Info("POST request", "path", path)

	resp, err := r.client.API.Post(ctx, path, []byte(data))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	return r.writeResponse(resp, true)
}

func (r *Runner) writeResponse(resp *services.APIResponse, pretty bool) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// APIOverview fetches queue, formats, stats, active uploads and jobs in one pass.
func (r *Runner) APIOverview(ctx context.Context, cmd *cli.Command) error {
	pretty := cmd.Bool("pretty")
	save := cmd.Bool("save")

	r.logger.Info("fetching backend overview")
	r.writePlain("Fetching backend state...\n\n")

	out, err := r.runWithProgress(ctx, func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (any, error) {
		return r.engine.Overview(ctx, progress)
	})
	if err != nil {
		return err
	}

	result := out.(*tasks.OverviewResult)
	for _, e := range result.Errors {
		r.logger.Warn("endpoint failed", "endpoint", e.Endpoint, "error", e.Error)
	}
	data := result.Data()

	r.writePlain("\n✓ Overview complete (%d errors)\n\n", len(result.Errors))

	if save {
		bytes, err := shared.MarshalJSON(data, true)
		if err != nil {
			return fmt.Errorf("failed to marshal overview: %w", err)
		}
		if err := os.WriteFile(overviewFile, bytes, 0644); err != nil {
			r.logger.Warn("failed to save overview", "error", err)
		} else {
			r.logger.Info("overview saved", "file", overviewFile)
			r.writePlain("✓ Overview saved to %s\n\n", overviewFile)
		}
	}

	return r.writeJSON(data, pretty)
}

// apiCommand handles direct backend calls and the overview
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct authenticated calls to the backend",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET, prints the JSON response",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Direct POST with JSON body",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:  "overview",
				Usage: "Queue, formats, stats, active uploads and jobs in one pass",
				Flags: []cli.Flag{
					prettyFlag(),
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save overview to " + overviewFile,
					},
				},
				Action: r.APIOverview,
			},
		},
	}
}
