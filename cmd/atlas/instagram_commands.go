package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"atlas/internal/gateway"
	"atlas/internal/panelclient"
	"atlas/internal/services"
	"atlas/internal/workflow"
)

func newInstagramCommand(ctx *commandContext) *cobra.Command {
	igCmd := &cobra.Command{
		Use:     "instagram",
		Aliases: []string{"ig"},
		Short:   "Manage the Instagram publishing connection",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show Graph API, token and image-host status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				view, err := client.InstagramStatus(cmd.Context())
				if err != nil {
					return err
				}
				_, imgbbConfigured, err := client.ImgBB(cmd.Context())
				if err != nil {
					return err
				}
				view.ImgBBConfigured = imgbbConfigured
				if ctx.jsonOutput() {
					return writeJSON(cmd, view)
				}
				renderInstagramView(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}

	igCmd.AddCommand(statusCmd)
	igCmd.AddCommand(newGraphCommand(ctx))
	igCmd.AddCommand(newCredentialsCommand(ctx))
	igCmd.AddCommand(&cobra.Command{
		Use:   "reset-session",
		Short: "Discard the backend's cached username/password login",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				if err := client.ResetSession(cmd.Context()); err != nil {
					return err
				}
				return printLine(cmd.OutOrStdout(), "Instagram session reset")
			})
		},
	})
	igCmd.AddCommand(&cobra.Command{
		Use:   "imgbb [api-key]",
		Short: "Show or set the ImgBB fallback key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				if len(args) == 1 {
					if err := client.SaveImgBB(cmd.Context(), args[0]); err != nil {
						return err
					}
					return printLine(cmd.OutOrStdout(), "ImgBB key saved")
				}
				key, configured, err := client.ImgBB(cmd.Context())
				if err != nil {
					return err
				}
				if !configured {
					return printLine(cmd.OutOrStdout(), "ImgBB key not configured")
				}
				return printLine(cmd.OutOrStdout(), "ImgBB key: "+maskSecret(key))
			})
		},
	})
	return igCmd
}

func newGraphCommand(ctx *commandContext) *cobra.Command {
	var graph gateway.GraphConfig
	var printTemplate bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Save Graph API publishing settings",
		Long: "Saves the Graph API fields on the backend. App secret and access token default to " +
			"FB_APP_SECRET and FB_ACCESS_TOKEN from the environment; the other fields default to the [instagram] config section.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if printTemplate {
				return printLine(cmd.OutOrStdout(), workflow.GraphEnvTemplate)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			fill := func(name string, target *string, fallback string) {
				if !flags.Changed(name) {
					*target = fallback
				}
			}
			fill("app-id", &graph.FBAppID, cfg.Instagram.AppID)
			fill("page-id", &graph.FBPageID, cfg.Instagram.PageID)
			fill("user-id", &graph.IGUserID, cfg.Instagram.UserID)
			fill("public-url", &graph.PublicBaseURL, cfg.Instagram.PublicBaseURL)
			fill("version", &graph.IGGraphVersion, cfg.Instagram.GraphVersion)
			fill("app-secret", &graph.FBAppSecret, os.Getenv("FB_APP_SECRET"))
			fill("access-token", &graph.FBAccessToken, os.Getenv("FB_ACCESS_TOKEN"))

			return ctx.withClient(func(client *panelclient.Client) error {
				view, err := client.SaveGraphConfig(cmd.Context(), graph)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, view)
				}
				renderInstagramView(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&graph.FBAppID, "app-id", "", "Facebook app id")
	flags.StringVar(&graph.FBAppSecret, "app-secret", "", "Facebook app secret")
	flags.StringVar(&graph.FBPageID, "page-id", "", "Facebook page id")
	flags.StringVar(&graph.IGUserID, "user-id", "", "Instagram business user id")
	flags.StringVar(&graph.FBAccessToken, "access-token", "", "Long-lived page access token")
	flags.StringVar(&graph.PublicBaseURL, "public-url", "", "Public URL the backend serves images from")
	flags.StringVar(&graph.IGGraphVersion, "version", "", "Graph API version")
	flags.BoolVar(&printTemplate, "template", false, "Print a .env template instead of saving")
	return cmd
}

func newCredentialsCommand(ctx *commandContext) *cobra.Command {
	var username string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Save a username/password login",
		Long:  "Saves a username/password login. The password is read from INSTAGRAM_PASSWORD or, with --password-stdin, from the first line of stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("INSTAGRAM_PASSWORD")
			if passwordStdin {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = line
			}
			if strings.TrimSpace(username) == "" || password == "" {
				return services.WithHint(
					services.Wrap(services.ErrValidation, "cli", "credentials", "username and password are required", nil),
					"pass --username and set INSTAGRAM_PASSWORD or use --password-stdin",
				)
			}
			return ctx.withClient(func(client *panelclient.Client) error {
				view, err := client.SaveCredentials(cmd.Context(), username, password)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, view)
				}
				return printLine(cmd.OutOrStdout(), "Credentials saved for "+view.Username)
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Instagram username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func renderInstagramView(out io.Writer, view workflow.InstagramView) {
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Instagram", colorize) {
		fmt.Fprintln(out, line)
	}

	graphKind := statusWarn
	if view.GraphStatus.GraphReady {
		graphKind = statusOK
	}
	fmt.Fprintln(out, renderStatusLine("Graph API", graphKind,
		fmt.Sprintf("%d/%d fields", view.GraphStatus.FilledCount, view.GraphStatus.RequiredCount), colorize))

	tokenKind := statusError
	switch {
	case view.Token.IsValid && view.Token.NeedsRefresh:
		tokenKind = statusWarn
	case view.Token.IsValid:
		tokenKind = statusOK
	case !view.Token.Configured:
		tokenKind = statusInfo
	}
	tokenText := view.TokenText
	if tokenText == "" {
		tokenText = view.Token.Message
	}
	fmt.Fprintln(out, renderStatusLine("Access token", tokenKind, tokenText, colorize))

	imgbb := "not configured"
	imgbbKind := statusInfo
	if view.ImgBBConfigured {
		imgbb, imgbbKind = "configured", statusOK
	}
	fmt.Fprintln(out, renderStatusLine("ImgBB fallback", imgbbKind, imgbb, colorize))
	if view.Username != "" {
		fmt.Fprintln(out, renderStatusLine("Legacy login", statusInfo, view.Username, colorize))
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func maskSecret(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
