package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nmstate-go/nmstate/pkg/merge"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
	"github.com/nmstate-go/nmstate/pkg/revert"
)

// genRevertCmd renders the document that would undo applying a desired
// document against the current state, without applying anything.
var genRevertCmd = &cobra.Command{
	Use:   "gen_revert FILE",
	Short: "Generate the document that reverts a desired state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desired, current, err := loadDesiredAndCurrent(args[0])
		if err != nil {
			return err
		}

		merged, err := merge.Merge(desired, current)
		if err != nil {
			return err
		}

		revertDoc := revert.Generate(merged, current)
		return writeDoc(os.Stdout, revertDoc)
	},
}

func writeDoc(w io.Writer, state *nmstate.NetworkState) error {
	out, err := nmstate.Serialize(state)
	if err != nil {
		return fmt.Errorf("serializing revert document: %w", err)
	}
	_, err = w.Write(out)
	return err
}
