package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON encodes v to the command's stdout. A terminal gets indented
// output; anything else gets one compact document per line, so following
// the log stream with --json yields newline-delimited JSON.
func writeJSON(cmd *cobra.Command, v any) error {
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	if shouldColorize(out) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
