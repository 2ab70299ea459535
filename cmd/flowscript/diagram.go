package main

import (
	"github.com/spf13/cobra"

	"github.com/rendis/flowscript/internal/diagram"
	"github.com/rendis/flowscript/internal/source"
)

func newDiagramCmd(a *app) *cobra.Command {
	var (
		out    string
		format string
		marks  bool
	)
	cmd := &cobra.Command{
		Use:   "diagram <file>",
		Short: "Draw a flow's control graph",
		Long: `Draw a flow's control graph as a Mermaid flowchart, an ASCII sketch, or a PNG
image. With --marks the flow is transpiled first and elements that produced
diagnostics are highlighted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat("format", format, "mermaid", "ascii", "png"); err != nil {
				return err
			}
			ctx := cmd.Context()

			var flowMarks map[string]diagram.Mark
			doc, err := source.Load(args[0])
			if err != nil {
				return err
			}
			if marks {
				res, err := a.transpiler().Transpile(ctx, doc.Flow)
				if err != nil {
					return err
				}
				flowMarks = diagram.MarksFromDiagnostics(res.Diagnostics)
			}

			model, err := diagram.Build(doc.Flow, flowMarks)
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case "ascii":
				data = []byte(diagram.RenderASCII(model))
			case "png":
				if out == "" {
					out = doc.Flow.Label + ".png"
				}
				if data, err = diagram.RenderImage(ctx, model); err != nil {
					return err
				}
			default:
				data = []byte(diagram.RenderMermaid(model))
			}
			return writeOutput(cmd, out, data)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write output to a file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "mermaid", "diagram format: mermaid, ascii or png")
	cmd.Flags().BoolVar(&marks, "marks", false, "highlight elements with transpile diagnostics")
	return cmd
}
