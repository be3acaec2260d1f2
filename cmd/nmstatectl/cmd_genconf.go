package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nmstate-go/nmstate/pkg/backend"
)

// genConfCmd renders a desired document's interfaces to backend-native
// key-file text, one file per interface, without touching a live system.
var genConfCmd = &cobra.Command{
	Use:   "gen_conf FILE",
	Short: "Render backend configuration files without applying them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		merged, err := loadMerged(args[0])
		if err != nil {
			return err
		}

		files, err := backend.GenConf(merged)
		if err != nil {
			return fmt.Errorf("generating config: %w", err)
		}

		dir := app.cfg.GetGenConfDir()
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}

		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			path := filepath.Join(dir, name+".nmconnection")
			if err := os.WriteFile(path, []byte(files[name]), 0600); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Printf("%s\n", path)
		}
		return nil
	},
}
