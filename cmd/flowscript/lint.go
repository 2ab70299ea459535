package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rendis/flowscript/internal/lint"
	"github.com/rendis/flowscript/internal/logging"
	"github.com/rendis/flowscript/internal/source"
)

func newLintCmd(a *app) *cobra.Command {
	var (
		rulesPath string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "lint <file>",
		Short: "Check a flow against lint rules",
		Long: `Check a flow against CEL lint rules read from a YAML file (--rules, or
rules_path in settings). Without a rules file the built-in rules apply.
Exits non-zero when any finding has error severity.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rulesPath == "" {
				rulesPath = a.cfg.RulesPath
			}
			loader, err := lint.NewRuleLoader(rulesPath, a.logger)
			if err != nil {
				return err
			}
			doc, err := source.Load(args[0])
			if err != nil {
				return err
			}

			ctx := logging.WithFlow(cmd.Context(), doc.Flow.Label)
			findings, err := loader.Linter().Lint(ctx, doc.Flow)
			if err != nil {
				return err
			}

			if asJSON {
				if findings == nil {
					findings = []lint.Finding{}
				}
				if err := printJSON(cmd.OutOrStdout(), findings); err != nil {
					return err
				}
			} else {
				for _, f := range findings {
					fmt.Fprintln(cmd.OutOrStdout(), f.String())
				}
			}

			errs := 0
			for _, f := range findings {
				if f.Severity == lint.SeverityError {
					errs++
				}
			}
			if errs > 0 {
				return fmt.Errorf("%s: %d lint errors", doc.Path, errs)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "YAML rules file (default: settings rules_path, then built-in rules)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print findings as JSON")
	return cmd
}
