package main

import (
	"context"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/tasks"
	"github.com/urfave/cli/v3"
)

func (r *Runner) printJob(job *models.ProcessingJob) {
	r.writePlain("Job %s: %s (%d%%)\n", job.ID, job.Status, job.Progress)
	if job.ReelID != "" {
		r.writePlain("Reel: %s\n", job.ReelID)
	}
	if job.EstimatedCompletion != nil {
		r.writePlain("Estimated completion: %s\n", job.EstimatedCompletion.Local().Format("15:04:05"))
	}
	if job.Error != "" {
		r.writePlain("Error: %s\n", job.Error)
	}
}

// JobStatus prints a processing job, or every job for the user when no id is given.
func (r *Runner) JobStatus(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		jobs, err := r.client.Jobs.Jobs(ctx)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(jobs, true)
		}
		if len(jobs) == 0 {
			return r.writePlain("No processing jobs\n")
		}
		for i := range jobs {
			r.printJob(&jobs[i])
		}
		return nil
	}

	job, err := r.client.Jobs.Job(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(job, true)
	}
	r.printJob(job)
	return nil
}

// JobWait polls a processing job until it completes or fails.
func (r *Runner) JobWait(ctx context.Context, cmd *cli.Command) error {
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
		return r.engine.WaitJob(ctx, progress, id)
	})
	if err != nil {
		return err
	}

	job := out.(*models.ProcessingJob)
	if cmd.Bool("json") {
		return r.writeJSON(job, true)
	}
	r.printJob(job)
	return nil
}

// JobCancel cancels a processing job.
func (r *Runner) JobCancel(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.client.Jobs.Cancel(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Job %s cancelled\n", id)
}

// JobRetry resubmits a failed job.
func (r *Runner) JobRetry(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	job, err := r.client.Jobs.Retry(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(job, true)
	}
	r.writePlain("✓ Job resubmitted\n")
	r.printJob(job)
	return nil
}

// JobResult prints the renditions of a finished job.
func (r *Runner) JobResult(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	result, err := r.client.Jobs.Result(ctx, id)
	if err != nil {
		return err
	}
	return r.writeJSON(result, cmd.Bool("pretty"))
}

// JobQueue prints the transcoding queue status.
func (r *Runner) JobQueue(ctx context.Context, cmd *cli.Command) error {
	queue, err := r.client.Jobs.Queue(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(queue, true)
	}
	return r.writePlain("Queue length: %d\nActive jobs: %d\nEstimated wait: %ds\n", queue.QueueLength, queue.ActiveJobs, queue.EstimatedWaitTime)
}

// jobsCommand handles transcoding job operations
func jobsCommand(r *Runner) *cli.Command {
	idArg := []cli.Argument{&cli.StringArg{Name: "id"}}

	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect and manage transcoding jobs",
		Commands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "Show a job, or all jobs when no id is given",
				Arguments: idArg,
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.JobStatus,
			},
			{
				Name:      "wait",
				Usage:     "Poll a job until it completes or fails",
				Arguments: idArg,
				Flags: []cli.Flag{
					jsonFlag(),
					&cli.DurationFlag{Name: "timeout", Usage: "Give up after this long (0 waits forever)"},
				},
				Action: r.JobWait,
			},
			{
				Name:      "cancel",
				Usage:     "Cancel a job",
				Arguments: idArg,
				Action:    r.JobCancel,
			},
			{
				Name:      "retry",
				Usage:     "Retry a failed job",
				Arguments: idArg,
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.JobRetry,
			},
			{
				Name:      "result",
				Usage:     "Show the renditions produced by a finished job",
				Arguments: idArg,
				Flags:     []cli.Flag{prettyFlag()},
				Action:    r.JobResult,
			},
			{
				Name:   "queue",
				Usage:  "Show the transcoding queue",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.JobQueue,
			},
		},
	}
}

