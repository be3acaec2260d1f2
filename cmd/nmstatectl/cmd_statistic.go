package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nmstate-go/nmstate/pkg/cli"
	"github.com/nmstate-go/nmstate/pkg/merge"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
	"github.com/nmstate-go/nmstate/pkg/policy"
)

// statisticCmd reports what applying a desired document would change,
// without touching the system.
var statisticCmd = &cobra.Command{
	Use:   "statistic FILE",
	Short: "Show what applying a desired document would change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		merged, err := loadMerged(args[0])
		if err != nil {
			return err
		}
		cli.RenderStatistic(merged)
		return nil
	},
}

// loadDesiredAndCurrent parses the desired document at path and queries the
// current state, the shared first step of statistic/gen_revert/gen_conf. A
// present "capture" key is resolved against current state (spec.md §4.5)
// before the document is treated as concrete desired state.
func loadDesiredAndCurrent(path string) (desired, current *nmstate.NetworkState, err error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	current, err = app.querier.CurrentState(context.Background())
	if err != nil {
		return nil, nil, fmt.Errorf("querying current state: %w", err)
	}

	desired, err = policy.Resolve(doc, current)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	return desired, current, nil
}

// loadMerged parses the desired document at path, queries the current
// state, and merges the two. Shared by statistic and gen_conf.
func loadMerged(path string) (*merge.MergedNetworkState, error) {
	desired, current, err := loadDesiredAndCurrent(path)
	if err != nil {
		return nil, err
	}
	return merge.Merge(desired, current)
}
