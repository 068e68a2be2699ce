package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"atlas/internal/jobs"
	"atlas/internal/panelclient"
	"atlas/internal/services"
	"atlas/internal/workflow"
)

const defaultWaitInterval = time.Second

type jobOptions struct {
	wait     bool
	interval time.Duration
}

func (o *jobOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&o.wait, "wait", "w", false, "Follow progress until the job finishes")
	cmd.Flags().DurationVar(&o.interval, "interval", defaultWaitInterval, "Progress refresh interval with --wait")
}

type startFunc func(context.Context, *panelclient.Client) (workflow.Snapshot, error)

func newStudioCommand(ctx *commandContext) *cobra.Command {
	studioCmd := &cobra.Command{
		Use:   "studio",
		Short: "Generate and publish Studio content",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				snap, err := client.State(cmd.Context())
				if err != nil {
					return err
				}
				return printModeState(cmd, ctx, snap, workflow.ModeStudio)
			})
		},
	}

	studioCmd.AddCommand(newJobCommand(ctx, "single", "Generate a single news image with caption", jobs.KindSingleImage,
		func(c context.Context, client *panelclient.Client) (workflow.Snapshot, error) {
			return client.StartSingle(c)
		}))
	studioCmd.AddCommand(newJobCommand(ctx, "carousel", "Generate a multi-slide carousel", jobs.KindCarousel,
		func(c context.Context, client *panelclient.Client) (workflow.Snapshot, error) {
			return client.StartCarousel(c)
		}))

	var live bool
	agentCmd := newJobCommand(ctx, "agent", "Run the autonomous content agent", jobs.KindAgent,
		func(c context.Context, client *panelclient.Client) (workflow.Snapshot, error) {
			return client.StartAgent(c, live)
		})
	agentCmd.Flags().BoolVar(&live, "live", false, "Let the agent publish what it produces")
	studioCmd.AddCommand(agentCmd)

	studioCmd.AddCommand(&cobra.Command{
		Use:   "cancel",
		Short: "Ask the running agent to stop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				snap, err := client.CancelAgent(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, snap)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cancel requested; the agent stops after its current stage.")
				return nil
			})
		},
	})

	studioCmd.AddCommand(&cobra.Command{
		Use:   "publish",
		Short: "Publish the content under review to Instagram",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				snap, err := client.Publish(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, snap)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Published (step %s)\n", snap.Step(workflow.ModeStudio))
				return nil
			})
		},
	})

	studioCmd.AddCommand(newResetCommand(ctx, "Discard Studio content and return to the start screen",
		func(c context.Context, client *panelclient.Client) (workflow.Snapshot, error) {
			return client.ResetStudio(c)
		}))

	return studioCmd
}

func newVideoCommand(ctx *commandContext) *cobra.Command {
	videoCmd := &cobra.Command{
		Use:   "video",
		Short: "Generate news videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				snap, err := client.State(cmd.Context())
				if err != nil {
					return err
				}
				return printModeState(cmd, ctx, snap, workflow.ModeVideo)
			})
		},
	}
	videoCmd.AddCommand(newJobCommand(ctx, "start", "Start a video generation", jobs.KindVideo,
		func(c context.Context, client *panelclient.Client) (workflow.Snapshot, error) {
			return client.StartVideo(c)
		}))
	videoCmd.AddCommand(newResetCommand(ctx, "Discard the generated video",
		func(c context.Context, client *panelclient.Client) (workflow.Snapshot, error) {
			return client.ResetVideo(c)
		}))
	return videoCmd
}

func newJobCommand(ctx *commandContext, use, short string, kind jobs.Kind, start startFunc) *cobra.Command {
	opts := &jobOptions{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				before, err := client.State(cmd.Context())
				if err != nil {
					return err
				}
				snap, err := start(cmd.Context(), client)
				if err != nil {
					return err
				}
				if !opts.wait {
					if ctx.jsonOutput() {
						return writeJSON(cmd, snap)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s started; follow it with `atlas status` or rerun with --wait\n", kind)
					return nil
				}
				final, err := waitForJob(cmd.Context(), client, kind, before.Job(kind).JobID, progressWriter(cmd, ctx), opts.interval)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, final)
				}
				printJobResult(cmd.OutOrStdout(), final, kind)
				return nil
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func newResetCommand(ctx *commandContext, short string, reset startFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				snap, err := reset(cmd.Context(), client)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, snap)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Reset")
				return nil
			})
		},
	}
}

func progressWriter(cmd *cobra.Command, ctx *commandContext) io.Writer {
	if ctx.jsonOutput() {
		return io.Discard
	}
	return cmd.ErrOrStderr()
}

// waitForJob polls the panel until the job of kind that replaced prevID
// reaches a terminal phase. Progress changes are written to out.
func waitForJob(ctx context.Context, client *panelclient.Client, kind jobs.Kind, prevID string, out io.Writer, interval time.Duration) (workflow.Snapshot, error) {
	if interval <= 0 {
		interval = defaultWaitInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	for {
		snap, err := client.State(ctx)
		if err != nil {
			return workflow.Snapshot{}, err
		}
		job := snap.Job(kind)
		if job.JobID != "" && job.JobID != prevID {
			if line := progressLine(job); line != last {
				fmt.Fprintln(out, line)
				last = line
			}
			switch job.Phase {
			case jobs.PhaseDone:
				return snap, nil
			case jobs.PhaseError:
				return snap, services.Wrap(services.ErrJobFailed, "cli", string(kind), job.ErrorMessage, nil)
			}
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}

func progressLine(job jobs.Status) string {
	line := fmt.Sprintf("[%3d%%] %s", job.Percent, job.Phase)
	if job.Stage != "" {
		line += " " + job.Stage
	}
	if job.TaskLabel != "" {
		line += ": " + job.TaskLabel
	}
	if job.CancelRequested {
		line += " (cancelling)"
	}
	return line
}

func printJobResult(out io.Writer, snap workflow.Snapshot, kind jobs.Kind) {
	switch kind {
	case jobs.KindSingleImage:
		single := snap.Content.Single
		if single == nil {
			return
		}
		fmt.Fprintf(out, "Image:   %s\n", single.ImageURL)
		fmt.Fprintf(out, "Path:    %s\n", single.ImagePath)
		fmt.Fprintf(out, "Prompt:  %s\n", single.Prompt)
		fmt.Fprintf(out, "Caption: %s\n", single.Caption)
		fmt.Fprintf(out, "Took %.1fs; publish with `atlas studio publish`\n", single.Duration)
	case jobs.KindCarousel:
		carousel := snap.Content.Carousel
		if carousel == nil {
			return
		}
		rows := make([][]string, 0, len(carousel.Images))
		for i, img := range carousel.Images {
			rows = append(rows, []string{strconv.Itoa(i + 1), img.Title, img.Path})
		}
		fmt.Fprintln(out, renderTable([]string{"#", "Title", "Path"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft}))
		fmt.Fprintf(out, "Caption: %s\n", carousel.Caption)
	case jobs.KindAgent:
		if result, ok := snap.Job(kind).Result.(jobs.AgentResult); ok {
			fmt.Fprintf(out, "Agent finished: %s\n", result.Summary)
		}
	case jobs.KindVideo:
		if video := snap.Content.Video; video != nil {
			fmt.Fprintf(out, "Video: %s\n", video.VideoURL)
		}
	}
}

func printModeState(cmd *cobra.Command, ctx *commandContext, snap workflow.Snapshot, mode workflow.Mode) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, snap)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Step: %s\n", snap.Step(mode))
	kinds := []jobs.Kind{jobs.KindSingleImage, jobs.KindCarousel, jobs.KindAgent}
	if mode == workflow.ModeVideo {
		kinds = []jobs.Kind{jobs.KindVideo}
	}
	for _, kind := range kinds {
		job := snap.Job(kind)
		if job.Phase == jobs.PhaseIdle {
			continue
		}
		fmt.Fprintf(out, "%s %s\n", kind, progressLine(job))
		if job.Phase == jobs.PhaseDone {
			printJobResult(out, snap, kind)
		}
	}
	return nil
}
