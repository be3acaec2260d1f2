// nmstatectl - declarative network-state configuration tool
//
// A CLI front end over the engine's seven components: parse/normalize a
// desired NetworkState document, query the current state from the kernel
// and the configuration backend, merge the two into a plan, and either
// preview it, apply it under a checkpoint, or generate its revert/gen_conf
// artifacts.
//
// Examples:
//
//	nmstatectl show
//	nmstatectl format desired.yml
//	nmstatectl statistic desired.yml
//	nmstatectl gen_revert desired.yml
//	nmstatectl gen_conf desired.yml
//	nmstatectl apply desired.yml
//	nmstatectl checkpoint_commit <id>
//	nmstatectl checkpoint_rollback <id>
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
	ovsdbclient "github.com/ovn-org/libovsdb/client"
	"github.com/spf13/cobra"

	"github.com/nmstate-go/nmstate/pkg/audit"
	"github.com/nmstate-go/nmstate/pkg/backend"
	"github.com/nmstate-go/nmstate/pkg/cli"
	"github.com/nmstate-go/nmstate/pkg/config"
	"github.com/nmstate-go/nmstate/pkg/query"
	"github.com/nmstate-go/nmstate/pkg/transaction"
	"github.com/nmstate-go/nmstate/pkg/util"
)

// App holds CLI state shared across all commands.
type App struct {
	verbose    bool
	jsonOutput bool

	cfg     *config.Config
	querier *query.Querier
	driver  *transaction.Driver
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "nmstatectl",
	Short:             "Declarative network-state configuration tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `nmstatectl applies a declarative network-state document to a host.

  nmstatectl show                  # current state
  nmstatectl format desired.yml     # parse, normalize, re-serialize
  nmstatectl statistic desired.yml  # what would change
  nmstatectl gen_revert desired.yml # the document that undoes desired
  nmstatectl gen_conf desired.yml   # render backend profiles without applying
  nmstatectl apply desired.yml      # checkpoint, apply, verify, commit/rollback
  nmstatectl checkpoint_commit <id>
  nmstatectl checkpoint_rollback <id>`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isVersionOrHelp(cmd) {
			return nil
		}

		if app.verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}

		var err error
		app.cfg, err = config.Load()
		if err != nil {
			util.Logger.Warnf("could not load config: %v", err)
			app.cfg = &config.Config{}
		}

		auditLogger, err := audit.NewFileLogger(app.cfg.GetAuditLogPath(), audit.RotationConfig{
			MaxSize:    int64(app.cfg.GetAuditMaxSizeMB()) * 1024 * 1024,
			MaxBackups: app.cfg.GetAuditMaxBackups(),
		})
		if err != nil {
			util.Logger.Warnf("could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}

		kernel := query.NewNetlinkKernelQuerier()
		backendQuerier, applier := connectBackend()
		app.querier = query.New(kernel, backendQuerier)
		app.driver = transaction.NewDriver(applier, app.querier)
		app.driver.Opts = app.cfg.TransactionOptions()

		return nil
	},
}

// connectBackend best-effort connects to NetworkManager over D-Bus and to
// the Open vSwitch database, logging a warning and proceeding with whatever
// half connected rather than failing the whole command: a host that only
// runs OVS (or only runs NetworkManager) is a normal deployment, not an
// error.
func connectBackend() (query.BackendQuerier, transaction.Applier) {
	var nm *backend.NMApplier
	if conn, err := dbus.SystemBus(); err != nil {
		util.Logger.Warnf("NetworkManager D-Bus connection unavailable: %v", err)
	} else {
		nm = backend.NewNMApplier(conn)
	}

	var ovs *backend.OvsDBApplier
	if dbModel, err := backend.DBModel(); err != nil {
		util.Logger.Warnf("building ovsdb model: %v", err)
	} else if client, err := ovsdbclient.NewOVSDBClient(dbModel); err != nil {
		util.Logger.Warnf("ovsdb client unavailable: %v", err)
	} else if err := client.Connect(context.Background()); err != nil {
		util.Logger.Warnf("connecting to ovsdb: %v", err)
	} else {
		ovs = backend.NewOvsDBApplier(client)
	}

	if nm == nil && ovs == nil {
		return nil, backend.NewCombinedApplier(nil, nil)
	}
	return backend.NewCombinedQuerier(nm, ovs), backend.NewCombinedApplier(nm, ovs)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&app.jsonOutput, "json", false, "JSON output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "state", Title: "State Commands:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{
		showCmd, formatCmd, statisticCmd, genRevertCmd, genConfCmd, applyCmd,
		checkpointCommitCmd, checkpointRollbackCmd,
	} {
		cmd.GroupID = "state"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

func isVersionOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version":
			return true
		}
	}
	return false
}

// Color helpers — delegate to pkg/cli
func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
func bold(s string) string   { return cli.Bold(s) }
