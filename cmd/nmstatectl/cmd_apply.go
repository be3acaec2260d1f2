package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nmstate-go/nmstate/pkg/audit"
	"github.com/nmstate-go/nmstate/pkg/merge"
	"github.com/nmstate-go/nmstate/pkg/policy"
)

// applyCmd applies a desired document against the live system under a
// checkpoint, rolling back automatically if verification fails.
var applyCmd = &cobra.Command{
	Use:   "apply FILE",
	Short: "Apply a desired network state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		ctx := context.Background()
		event := audit.NewEvent(string(audit.EventTypeApply))
		start := time.Now()

		current, err := app.querier.CurrentState(ctx)
		if err != nil {
			return fmt.Errorf("querying current state: %w", err)
		}

		desired, err := policy.Resolve(doc, current)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", args[0], err)
		}

		if merged, mergeErr := merge.Merge(desired, current); mergeErr == nil {
			added, changed, removed := countChanges(merged)
			event.WithCounts(added, changed, removed)
		}

		cp, err := app.driver.Apply(ctx, desired)
		event.WithDuration(time.Since(start))
		if cp != nil {
			event.WithCheckpoint(cp.ID)
		}
		if err != nil {
			event.WithError(err)
			audit.Log(event)
			return fmt.Errorf("applying %s: %w", args[0], err)
		}

		event.WithSuccess()
		audit.Log(event)
		fmt.Printf("%s checkpoint: %s\n", green("applied"), bold(cp.ID))
		return nil
	},
}

func countChanges(merged *merge.MergedNetworkState) (added, changed, removed int) {
	for _, c := range merged.Interfaces {
		switch c.Kind {
		case merge.Added:
			added++
		case merge.Changed:
			changed++
		case merge.Removed:
			removed++
		}
	}
	return added, changed, removed
}
