package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"atlas/internal/device"
	"atlas/internal/logging"
	"atlas/internal/panelclient"
	"atlas/internal/workflow"
)

func newChatCommands(ctx *commandContext) []*cobra.Command {
	chatCmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a chat message (image requests are drawn)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				snap, err := client.Chat(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				return printReply(cmd, ctx, snap)
			})
		},
	}

	drawCmd := &cobra.Command{
		Use:   "draw <prompt>",
		Short: "Generate an image from a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *panelclient.Client) error {
				snap, err := client.Draw(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				return printReply(cmd, ctx, snap)
			})
		},
	}

	var maxDuration time.Duration
	voiceCmd := &cobra.Command{
		Use:   "voice",
		Short: "Record a voice message and send it",
		Long:  "Records from the configured capture command until Enter is pressed or --max elapses, then sends the clip for transcription.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			audio, err := recordClip(cmd.Context(), device.NewExecRecorder(cfg, logging.NewNop()), cmd.InOrStdin(), cmd.ErrOrStderr(), maxDuration)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *panelclient.Client) error {
				text, snap, err := client.Voice(cmd.Context(), audio)
				if err != nil {
					return err
				}
				if text == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing was recognized; try again closer to the microphone.")
					return nil
				}
				if !ctx.jsonOutput() {
					fmt.Fprintf(cmd.OutOrStdout(), "You: %s\n", text)
				}
				return printReply(cmd, ctx, snap)
			})
		},
	}
	voiceCmd.Flags().DurationVar(&maxDuration, "max", 30*time.Second, "Stop recording after this long")

	var outPath string
	speakCmd := &cobra.Command{
		Use:   "speak <index>",
		Short: "Synthesize speech for a transcript entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil || index < 0 {
				return fmt.Errorf("invalid transcript index %q", args[0])
			}
			return ctx.withClient(func(client *panelclient.Client) error {
				audio, contentType, err := client.Speak(cmd.Context(), index)
				if err != nil {
					return err
				}
				target := outPath
				if target == "" {
					target = filepath.Join(os.TempDir(), "atlas-speech-"+args[0]+audioExtension(contentType))
				}
				if err := os.WriteFile(target, audio, 0o644); err != nil {
					return fmt.Errorf("write audio: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes of %s to %s\n", len(audio), contentType, target)
				return nil
			})
		},
	}
	speakCmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination file for the audio")

	return []*cobra.Command{chatCmd, drawCmd, voiceCmd, speakCmd}
}

// printReply shows the newest transcript entry, which is the answer to the
// request that produced snap.
func printReply(cmd *cobra.Command, ctx *commandContext, snap workflow.Snapshot) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, snap)
	}
	out := cmd.OutOrStdout()
	if len(snap.Transcript) == 0 {
		return nil
	}
	index := len(snap.Transcript) - 1
	entry := snap.Transcript[index]
	if entry.Content != "" {
		fmt.Fprintf(out, "Atlas: %s\n", entry.Content)
	}
	if entry.Image != "" {
		fmt.Fprintf(out, "Image: %s\n", entry.Image)
	}
	if entry.Duration != nil {
		fmt.Fprintf(out, "Took %.1fs\n", *entry.Duration)
	}
	fmt.Fprintf(out, "(atlas speak %d reads this aloud)\n", index)
	return nil
}

// recordClip records until a line arrives on stdin or the limit elapses.
func recordClip(ctx context.Context, recorder device.Recorder, stdin io.Reader, stderr io.Writer, limit time.Duration) ([]byte, error) {
	if _, err := recorder.Start(ctx); err != nil {
		return nil, err
	}
	fmt.Fprintln(stderr, "Recording... press Enter to stop.")

	pressed := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(stdin).ReadString('\n')
		close(pressed)
	}()

	var timeout <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-pressed:
	case <-timeout:
	case <-ctx.Done():
	}
	return recorder.Stop()
}

func audioExtension(contentType string) string {
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".mp3"
}
