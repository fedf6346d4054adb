package cli

import (
	"github.com/spf13/cobra"

	"github.com/wiredraw/wiredraw/internal/engine"
)

type renderOpts struct {
	assetDir string
	selected []string
	zoom     float64
	panX     float64
	panY     float64
}

func newRenderCmd() *cobra.Command {
	opts := renderOpts{zoom: 1}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Print the draw commands for a board as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			e, err := openEditor(cmd.Context(), doc, opts.assetDir)
			if err != nil {
				return err
			}
			if opts.zoom != 1 {
				e.Zoom(opts.zoom, engine.Point{})
			}
			if opts.panX != 0 || opts.panY != 0 {
				e.Pan(opts.panX, opts.panY)
			}
			if len(opts.selected) > 0 {
				if err := e.Select(opts.selected); err != nil {
					return err
				}
			}
			return writeLine(cmd.OutOrStdout(), e.RenderJSON())
		},
	}
	cmd.Flags().StringVar(&opts.assetDir, "assets", "", "directory holding uploaded assets")
	cmd.Flags().StringSliceVar(&opts.selected, "select", nil, "node ids to select before rendering")
	cmd.Flags().Float64Var(&opts.zoom, "zoom", 1, "zoom factor around the surface origin")
	cmd.Flags().Float64Var(&opts.panX, "pan-x", 0, "horizontal pan in surface pixels")
	cmd.Flags().Float64Var(&opts.panY, "pan-y", 0, "vertical pan in surface pixels")
	return cmd
}
