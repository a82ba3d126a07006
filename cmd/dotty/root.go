package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dotty-sh/dotty/internal/version"
	"github.com/dotty-sh/dotty/pkg/logging"
)

var (
	verbosity  int
	dryRun     bool
	configFile string
	stateFile  string
	timeout    time.Duration

	rootCmd = &cobra.Command{
		Use:   "dotty",
		Short: "A declarative package and dotfile manager",
		Long: `dotty reconciles your system against a declarative TOML config:
packages per package manager, dotfiles to place, and hooks to run.
Each run diffs the config against what dotty itself applied before
and executes only the difference.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command under ctx. Called once from main.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default is $XDG_CONFIG_HOME/dotty/dotty.toml)")
	rootCmd.PersistentFlags().StringVar(&stateFile, "state", "", "State file (default is $XDG_STATE_HOME/dotty/dotty.state.toml)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Preview changes without executing them")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Per-command timeout, overriding the config (e.g. 5m)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newStateCmd())
	rootCmd.AddCommand(newConfigCmd())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dotty version %s\n", version.Version)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", version.Commit)
		fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", version.Date)
	},
}
