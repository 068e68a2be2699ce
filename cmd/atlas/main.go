package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"atlas/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			if hint := services.Hint(err); hint != "" {
				fmt.Fprintln(os.Stderr, "hint:", hint)
			}
		}
		os.Exit(1)
	}
}
