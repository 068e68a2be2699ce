package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"atlas/internal/daemon"
	"atlas/internal/panelclient"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the panel in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			stdout := cmd.OutOrStdout()
			return daemon.Run(cmd.Context(), cfg, daemon.RunOptions{
				LogLevel:    logLevel,
				Development: development,
				Ready: func(addr string) {
					fmt.Fprintf(stdout, "Panel listening on %s\n", panelclient.BaseURL(addr))
				},
			})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level for this run")
	cmd.Flags().BoolVar(&development, "dev", false, "Include source locations in log output")
	return cmd
}
