package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

// formatCmd parses a desired-state document, normalizes and validates it,
// and re-serializes it, the "format" operation spec.md §6 names.
var formatCmd = &cobra.Command{
	Use:   "format FILE",
	Short: "Parse, normalize and re-serialize a network-state document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		state, err := nmstate.Parse(doc)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		out, err := nmstate.Serialize(state)
		if err != nil {
			return fmt.Errorf("serializing: %w", err)
		}

		_, err = os.Stdout.Write(out)
		return err
	},
}
