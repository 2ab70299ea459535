package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rendis/flowscript/internal/expressions"
	"github.com/rendis/flowscript/internal/flowjson"
	"github.com/rendis/flowscript/internal/source"
)

func newQueryCmd(a *app) *cobra.Command {
	var args []string
	cmd := &cobra.Command{
		Use:   "query <jq> <file>",
		Short: "Run a jq program over a flow",
		Long: `Run a jq program over the JSON form of a flow and print each result.
--arg name=value binds $name to a string.

  flowscript query '.elements[] | select(.kind == "loops") | .name' Order.flow-meta.xml
  flowscript query --arg el=GetX '.elements[] | select(.name == $el)' Order.flow-meta.xml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, pos []string) error {
			vars, err := parseArgs(args)
			if err != nil {
				return err
			}
			doc, err := source.Load(pos[1])
			if err != nil {
				return err
			}
			data, err := flowjson.ToMap(doc.Flow)
			if err != nil {
				return err
			}
			results, err := expressions.NewGoJQEngine().Query(cmd.Context(), pos[0], data, vars)
			if err != nil {
				return err
			}
			a.logger.Debug("query evaluated", "path", doc.Path, "results", len(results))
			for _, r := range results {
				if err := printJSON(cmd.OutOrStdout(), r); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&args, "arg", nil, "bind $name to a string value (name=value, repeatable)")
	return cmd
}

func parseArgs(pairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--arg: want name=value, got %q", p)
		}
		vars[name] = value
	}
	return vars, nil
}
