package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/example/dbup/internal/script"
	"github.com/example/dbup/internal/upgrade"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "dbup",
		Short:         "Apply versioned SQL scripts to a database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")

	withApp := func(run func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd, a)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "upgrade",
			Short: "Execute every pending script",
			Args:  cobra.NoArgs,
			RunE: withApp(func(cmd *cobra.Command, a *app) error {
				return reportResult(cmd.OutOrStdout(), "executed", a.engine.PerformUpgrade(cmd.Context()))
			}),
		},
		&cobra.Command{
			Use:   "plan",
			Short: "List the scripts an upgrade would execute",
			Args:  cobra.NoArgs,
			RunE: withApp(func(cmd *cobra.Command, a *app) error {
				pending, err := a.engine.PlanPendingScripts(cmd.Context())
				if err != nil {
					return err
				}
				printScripts(cmd.OutOrStdout(), "pending", script.Names(pending))
				return nil
			}),
		},
		newMarkExecutedCmd(withApp),
		&cobra.Command{
			Use:   "executed",
			Short: "List the scripts recorded in the journal",
			Args:  cobra.NoArgs,
			RunE: withApp(func(cmd *cobra.Command, a *app) error {
				names, err := a.engine.ExecutedScripts(cmd.Context())
				if err != nil {
					return err
				}
				printScripts(cmd.OutOrStdout(), "executed", names)

				orphans, err := a.engine.ExecutedButNotDiscovered(cmd.Context())
				if err != nil {
					return err
				}
				if len(orphans) > 0 {
					printScripts(cmd.OutOrStdout(), "no longer discovered", orphans)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "check",
			Short: "Check connectivity and exit non-zero when scripts are pending",
			Args:  cobra.NoArgs,
			RunE: withApp(func(cmd *cobra.Command, a *app) error {
				out := cmd.OutOrStdout()
				if ok, msg := a.engine.TryConnect(cmd.Context()); !ok {
					fmt.Fprintf(out, "cannot connect: %s\n", msg)
					return &SilentExitError{Code: 2}
				}
				needs, err := a.engine.NeedsUpgrade(cmd.Context())
				if err != nil {
					return err
				}
				if needs {
					fmt.Fprintln(out, "upgrade required")
					return &SilentExitError{Code: 1}
				}
				fmt.Fprintln(out, "database is up to date")
				return nil
			}),
		},
	)
	return root
}

func newMarkExecutedCmd(withApp func(func(*cobra.Command, *app) error) func(*cobra.Command, []string) error) *cobra.Command {
	var upTo string

	cmd := &cobra.Command{
		Use:   "mark-executed",
		Short: "Record pending scripts in the journal without running them",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			var result upgrade.Result
			if upTo != "" {
				result = a.engine.MarkAsExecutedUpTo(cmd.Context(), upTo)
			} else {
				result = a.engine.MarkAsExecuted(cmd.Context())
			}
			return reportResult(cmd.OutOrStdout(), "marked", result)
		}),
	}
	cmd.Flags().StringVar(&upTo, "up-to", "", "stop after recording the named script")
	return cmd
}

func reportResult(w io.Writer, verb string, result upgrade.Result) error {
	printScripts(w, verb, result.Names())
	if result.Successful {
		return nil
	}
	return fmt.Errorf("run %s failed: %w", result.RunID, result.Error)
}

func printScripts(w io.Writer, label string, names []string) {
	fmt.Fprintf(w, "%d %s\n", len(names), label)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", name)
	}
}
