package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var panelFlag string
	var configFlag string
	var jsonFlag bool

	ctx := newCommandContext(&panelFlag, &configFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:           "atlas",
		Short:         "Atlas content studio panel",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&panelFlag, "panel", "", "Panel URL or address (defaults to panel.bind)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print raw JSON instead of formatted output")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newModeCommand(ctx))
	for _, cmd := range newChatCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newStudioCommand(ctx))
	rootCmd.AddCommand(newVideoCommand(ctx))
	rootCmd.AddCommand(newGalleryCommand(ctx))
	rootCmd.AddCommand(newAlertsCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newThemeCommand(ctx))
	rootCmd.AddCommand(newInstagramCommand(ctx))
	rootCmd.AddCommand(newNotifyTestCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
