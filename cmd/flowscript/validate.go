package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rendis/flowscript/internal/source"
	"github.com/rendis/flowscript/internal/validation"
)

func newValidateCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a flow's structure without rendering it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := source.Load(args[0])
			if err != nil {
				return err
			}
			result := validation.NewFlowValidator().Validate(doc.Flow)
			a.logger.Debug("validated", "path", doc.Path, "errors", len(result.Errors), "warnings", len(result.Warnings))

			if asJSON {
				if err := printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				for _, issue := range result.Issues() {
					fmt.Fprintln(cmd.OutOrStdout(), issue)
				}
				if result.Valid() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d warnings)\n", doc.Path, len(result.Warnings))
				}
			}
			return result.ToError()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
