package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/dotty-sh/dotty/pkg/config"
	"github.com/dotty-sh/dotty/pkg/errors"
	"github.com/dotty-sh/dotty/pkg/output"
	"github.com/dotty-sh/dotty/pkg/paths"
	"github.com/dotty-sh/dotty/pkg/reconciler"
	"github.com/dotty-sh/dotty/pkg/state"
)

// setup resolves paths and loads the config for the run commands
func setup() (reconciler.Options, error) {
	p, err := paths.New(configFile, stateFile)
	if err != nil {
		return reconciler.Options{}, err
	}

	cfg, err := config.Load(p.ConfigFile())
	if err != nil {
		return reconciler.Options{}, err
	}
	if timeout > 0 {
		cfg.Dotty.Timeout = timeout
	}

	return reconciler.Options{
		Config: cfg,
		Paths:  p,
		DryRun: dryRun,
	}, nil
}

// run executes a reconciliation and renders the report. A partially
// succeeded run returns an error so the process exits non-zero.
func run(cmd *cobra.Command, mode reconciler.Mode) error {
	opts, err := setup()
	if err != nil {
		return err
	}

	result, err := reconciler.Run(cmd.Context(), opts, mode)
	if err != nil {
		return err
	}

	printer := output.NewPrinter(cmd.OutOrStdout())
	if result.Status == reconciler.StatusPlanEmpty {
		printer.Plan(result.Plan)
		return nil
	}

	printer.Report(result.Report)
	switch result.Status {
	case reconciler.StatusPartiallySucceeded:
		return errors.New(errors.ErrActionFailed, "some actions failed")
	case reconciler.StatusCancelled:
		return errors.New(errors.ErrActionFailed, "run cancelled; completed work was recorded")
	}
	return nil
}

func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Reconcile the system against the configuration",
		Long: `Apply diffs the configuration against dotty's applied state and
executes the difference: installs and removals per manager, dotfile
placement, and hooks. Independent managers run concurrently.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, reconciler.ModeApply)
		},
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Run manager update commands and update hooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, reconciler.ModeUpdate)
		},
	}
}

func newPlanCmd() *cobra.Command {
	var update bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what apply would do without executing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := setup()
			if err != nil {
				return err
			}
			mode := reconciler.ModeApply
			if update {
				mode = reconciler.ModeUpdate
			}
			plan, err := reconciler.Plan(opts, mode)
			if err != nil {
				return err
			}
			output.NewPrinter(cmd.OutOrStdout()).Plan(plan)
			return nil
		},
	}
	cmd.Flags().BoolVar(&update, "update", false, "Plan an update run instead of an apply")
	return cmd
}

func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the applied-state ledger",
		Long: `State prints what dotty has recorded as applied: packages it
installed per manager, dotfiles it placed, and once-hooks it ran.
This is dotty's own ledger, not a system inventory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := paths.New(configFile, stateFile)
			if err != nil {
				return err
			}
			applied, err := state.NewStore(p.StateFile()).Load()
			if err != nil {
				return err
			}
			output.NewPrinter(cmd.OutOrStdout()).State(applied)
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the fully resolved configuration",
		Long: `Config loads the configuration, resolves module imports, applies
shorthand expansion and validation, and prints the merged result as
TOML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := setup()
			if err != nil {
				return err
			}
			data, err := toml.Marshal(opts.Config)
			if err != nil {
				return errors.Wrap(err, errors.ErrInternal, "encoding resolved config")
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := configFile
			if len(args) == 1 {
				target = args[0]
			}
			p, err := paths.New(target, stateFile)
			if err != nil {
				return err
			}
			target = p.ConfigFile()

			if _, err := os.Stat(target); err == nil {
				return errors.Newf(errors.ErrFileExists, "config already exists at %s", target)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return errors.Wrapf(err, errors.ErrDirCreate, "creating %s", filepath.Dir(target))
			}
			if err := os.WriteFile(target, []byte(config.StarterTOML), 0644); err != nil {
				return errors.Wrapf(err, errors.ErrFileWrite, "writing %s", target)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote starter config to %s\n", target)
			return nil
		},
	}
}
