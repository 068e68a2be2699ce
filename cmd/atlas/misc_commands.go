package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"atlas/internal/logging"
	"atlas/internal/panelclient"
)

func newGalleryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "gallery",
		Short: "List generated images, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				entries, err := client.Gallery(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Gallery is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{entry.URL, entry.Prompt})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Image", "Prompt"}, rows, nil))
				return nil
			})
		},
	}
}

func newAlertsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Show and clear pending alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				alerts, err := client.Alerts(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, alerts)
				}
				if len(alerts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No pending alerts")
					return nil
				}
				rows := make([][]string, 0, len(alerts))
				for _, alert := range alerts {
					rows = append(rows, []string{
						alert.At.Local().Format("15:04:05"),
						string(alert.Level),
						alert.Kind,
						alert.Message,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Time", "Level", "Kind", "Message"}, rows, nil))
				return nil
			})
		},
	}
}

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var limit int
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent panel log events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				out := cmd.OutOrStdout()
				var since uint64
				for {
					events, next, err := client.Logs(cmd.Context(), since, limit)
					if err != nil {
						if cmd.Context().Err() != nil {
							return nil
						}
						return err
					}
					for _, evt := range events {
						if ctx.jsonOutput() {
							if err := writeJSON(cmd, evt); err != nil {
								return err
							}
							continue
						}
						fmt.Fprintln(out, formatLogEvent(evt))
					}
					if next > since {
						since = next
					}
					if !follow {
						return nil
					}
					select {
					case <-cmd.Context().Done():
						return nil
					case <-time.After(interval):
					}
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new events")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum events per request")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Refresh interval with --follow")
	return cmd
}

func formatLogEvent(evt logging.LogEvent) string {
	var b strings.Builder
	b.WriteString(evt.Timestamp.Local().Format("15:04:05"))
	b.WriteString(" ")
	b.WriteString(strings.ToUpper(evt.Level))
	subject := evt.Component
	if evt.JobKind != "" {
		subject = strings.TrimSpace(subject + "/" + evt.JobKind)
	}
	if subject != "" {
		b.WriteString(" [" + subject + "]")
	}
	b.WriteString(" " + evt.Message)
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint} {
		if value := evt.Fields[key]; value != "" {
			fmt.Fprintf(&b, " %s=%s", key, value)
		}
	}
	return b.String()
}

func newThemeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [dark|light|toggle]",
		Short:     "Show or change the panel theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"dark", "light", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				var (
					theme string
					err   error
				)
				switch {
				case len(args) == 0:
					theme, err = client.Theme(cmd.Context())
				case strings.EqualFold(args[0], "toggle"):
					theme, err = client.SetTheme(cmd.Context(), "")
				default:
					theme, err = client.SetTheme(cmd.Context(), args[0])
				}
				if err != nil {
					return err
				}
				return printLine(cmd.OutOrStdout(), "Theme: "+theme)
			})
		},
	}
}

func printLine(out io.Writer, line string) error {
	_, err := fmt.Fprintln(out, line)
	return err
}
