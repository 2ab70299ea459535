package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/flowscript/internal/store"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		filter store.RunFilter
		since  time.Duration
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored transpile runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}
			runs, err := s.ListRuns(ctx, filter)
			if err != nil {
				return err
			}
			if asJSON {
				for _, r := range runs {
					r.Output = ""
				}
				if runs == nil {
					runs = []*store.Run{}
				}
				return printJSON(cmd.OutOrStdout(), runs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFLOW\tTRIGGER\tELEMENTS\tDIAGNOSTICS\tCREATED")
			for _, r := range runs {
				diags, _ := r.DiagnosticList()
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					r.ID, r.FlowLabel, r.Trigger, r.ElementCount, len(diags),
					r.CreatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&filter.FlowLabel, "flow", "", "only runs of this flow label")
	cmd.Flags().StringVar(&filter.SourcePath, "source", "", "only runs of this source file")
	cmd.Flags().StringVar(&filter.Trigger, "trigger", "", "only runs started by cli, scheduler, mcp or watch")
	cmd.Flags().DurationVar(&since, "since", 0, "only runs newer than this (e.g. 24h)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")

	cmd.AddCommand(newHistoryShowCmd(a), newHistoryDeleteCmd(a))
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a stored run's pseudocode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), run)
			}
			diags, err := run.DiagnosticList()
			if err != nil {
				return err
			}
			printDiagnostics(cmd.ErrOrStderr(), diags)
			_, err = fmt.Fprint(cmd.OutOrStdout(), run.Output)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the whole run as JSON")
	return cmd
}

func newHistoryDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteRun(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
