package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"atlas/internal/notifications"
	"atlas/internal/services"
)

func newNotifyTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := notifications.NewService(ctx.configValue())
			if !notifications.Enabled(svc) {
				return services.WithHint(
					services.Wrap(services.ErrConfiguration, "cli", "notify-test", "notifications are disabled", nil),
					"set notifications.ntfy_topic in the config or ATLAS_NTFY_TOPIC",
				)
			}
			if err := svc.Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
