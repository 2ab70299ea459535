package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rendis/flowscript/internal/logging"
	"github.com/rendis/flowscript/internal/metrics"
	"github.com/rendis/flowscript/internal/source"
	"github.com/rendis/flowscript/internal/store"
	"github.com/rendis/flowscript/internal/transpile"
)

func newTranspileCmd(a *app) *cobra.Command {
	var (
		out    string
		format string
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "transpile <file>",
		Short: "Render a flow as pseudocode",
		Long: `Render a flow as Apex-like pseudocode. Files ending in .json are read as
flowscript JSON; everything else as flow-meta XML. Recoverable problems are
printed to stderr and embedded as // ERROR: comments; structural errors such
as a missing start element exit non-zero.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat("format", format, "text", "json"); err != nil {
				return err
			}
			ctx := cmd.Context()

			doc, res, err := a.transpileFile(ctx, args[0])
			if err != nil {
				return err
			}

			if save || a.cfg.SaveRuns {
				if err := a.saveRun(ctx, doc, res, store.TriggerCLI); err != nil {
					return err
				}
			}

			if format == "json" {
				if out == "" {
					return printJSON(cmd.OutOrStdout(), res)
				}
				data, err := jsonBytes(res)
				if err != nil {
					return err
				}
				return writeOutput(cmd, out, data)
			}
			printDiagnostics(cmd.ErrOrStderr(), res.Diagnostics)
			return writeOutput(cmd, out, []byte(res.Code))
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write output to a file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	cmd.Flags().BoolVar(&save, "save", false, "store the run in history")
	return cmd
}

// transpileFile loads and transpiles path, recording metrics.
func (a *app) transpileFile(ctx context.Context, path string) (*source.Document, *transpile.Result, error) {
	doc, err := source.Load(path)
	if err != nil {
		return nil, nil, err
	}
	ctx = logging.WithFlow(ctx, doc.Flow.Label)
	res, err := a.transpiler().Transpile(ctx, doc.Flow)
	metrics.ObserveTranspile(res, err)
	if err != nil {
		return doc, nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, res, nil
}

func (a *app) saveRun(ctx context.Context, doc *source.Document, res *transpile.Result, trigger string) error {
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := store.NewRun(doc, res, trigger)
	if err != nil {
		return err
	}
	if err := s.SaveRun(ctx, run); err != nil {
		return err
	}
	a.logger.Info("run saved", "run_id", run.ID, "flow", run.FlowLabel)
	return nil
}

func printDiagnostics(w io.Writer, diags []transpile.Diagnostic) {
	for _, d := range diags {
		where := string(d.Kind)
		if d.Element != "" {
			where += "[" + d.Element + "]"
		}
		fmt.Fprintf(w, "%s %s %s: %s\n", d.Severity, d.Code, where, d.Message)
	}
}
