package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"atlas/internal/panelclient"
	"atlas/internal/services"
	"atlas/internal/workflow"
)

func newModeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "mode [chat|studio|video]",
		Short:     "Show or switch the active mode",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(workflow.ModeChat), string(workflow.ModeStudio), string(workflow.ModeVideo)},
		RunE: func(cmd *cobra.Command, args []string) error {
			var target workflow.Mode
			if len(args) == 1 {
				mode, ok := workflow.ParseMode(args[0])
				if !ok {
					return services.Wrap(services.ErrValidation, "cli", "mode", fmt.Sprintf("unknown mode %q", args[0]), nil)
				}
				target = mode
			}
			return ctx.withClient(func(client *panelclient.Client) error {
				var (
					snap workflow.Snapshot
					err  error
				)
				if target == "" {
					snap, err = client.State(cmd.Context())
				} else {
					snap, err = client.SwitchMode(cmd.Context(), target)
				}
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, snap)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Mode: %s\n", snap.Mode)
				if snap.Mode != workflow.ModeChat {
					fmt.Fprintf(out, "Step: %s\n", snap.Step(snap.Mode))
				}
				return nil
			})
		},
	}
}
