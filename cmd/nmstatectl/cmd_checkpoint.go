package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nmstate-go/nmstate/pkg/audit"
)

// checkpointCommitCmd makes a still-open checkpoint's applied changes
// permanent, cancelling the auto-revert deadline.
var checkpointCommitCmd = &cobra.Command{
	Use:   "checkpoint_commit ID",
	Short: "Commit an open checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		err := app.driver.CheckpointCommit(id)
		event := audit.NewEvent(string(audit.EventTypeCheckpointCommit)).WithCheckpoint(id)
		if err != nil {
			event.WithError(err)
			audit.Log(event)
			return fmt.Errorf("committing checkpoint %s: %w", id, err)
		}
		event.WithSuccess()
		audit.Log(event)
		fmt.Printf("checkpoint %s %s\n", bold(id), green("committed"))
		return nil
	},
}

// checkpointRollbackCmd reverts a still-open checkpoint, independent of any
// just-completed apply.
var checkpointRollbackCmd = &cobra.Command{
	Use:   "checkpoint_rollback ID",
	Short: "Roll back an open checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		err := app.driver.CheckpointRollback(context.Background(), id)
		event := audit.NewEvent(string(audit.EventTypeCheckpointRollback)).WithCheckpoint(id)
		if err != nil {
			event.WithError(err)
			audit.Log(event)
			return fmt.Errorf("rolling back checkpoint %s: %w", id, err)
		}
		event.WithSuccess()
		audit.Log(event)
		fmt.Printf("checkpoint %s %s\n", bold(id), yellow("rolled back"))
		return nil
	},
}
