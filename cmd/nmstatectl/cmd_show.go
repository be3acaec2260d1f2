package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nmstate-go/nmstate/pkg/cli"
)

// showCmd displays the current network state.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current network state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		state, err := app.querier.CurrentState(ctx)
		if err != nil {
			return fmt.Errorf("querying current state: %w", err)
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(state)
		}

		cli.RenderInterfaces(state)
		return nil
	},
}
