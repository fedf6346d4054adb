package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wiredraw/wiredraw/internal/engine"
)

// snapResult reports where a dragged node landed and which guides were shown
// at the end of the drag.
type snapResult struct {
	ID     string         `json:"id"`
	From   engine.Point   `json:"from"`
	To     engine.Point   `json:"to"`
	Guides []engine.Guide `json:"guides"`
}

func newSnapCmd() *cobra.Command {
	var (
		nodeID string
		dx, dy float64
	)

	cmd := &cobra.Command{
		Use:   "snap [file]",
		Short: "Drag a node by an offset and report where snapping puts it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			e, err := openEditor(cmd.Context(), doc, "")
			if err != nil {
				return err
			}
			res, err := drag(e, nodeID, dx, dy)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			return writeLine(cmd.OutOrStdout(), string(out))
		},
	}
	cmd.Flags().StringVar(&nodeID, "node", "", "id of the node to drag")
	cmd.Flags().Float64Var(&dx, "dx", 0, "horizontal offset in board units")
	cmd.Flags().Float64Var(&dy, "dy", 0, "vertical offset in board units")
	cmd.MarkFlagRequired("node")
	return cmd
}

// drag replays a pointer drag from the node's center through the editor.
func drag(e *engine.Editor, id string, dx, dy float64) (*snapResult, error) {
	n, ok := e.Node(id)
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, engine.ErrNodeNotFound)
	}
	if err := e.Select([]string{id}); err != nil {
		return nil, err
	}
	from := n.Position()
	coords := e.Coords()
	start := coords.PointToSurface(n.ClientRect().Center())
	end := start.Add(engine.Point{X: coords.ToSurface(dx), Y: coords.ToSurface(dy)})

	e.PointerDown(&engine.PointerEvent{X: start.X, Y: start.Y})
	if e.Session().State() != engine.StateMoving {
		e.CancelSession()
		return nil, fmt.Errorf("node %s: drag did not start a move", id)
	}
	e.PointerMove(&engine.PointerEvent{X: end.X, Y: end.Y})
	guides := e.Guides()
	e.PointerUp(&engine.PointerEvent{X: end.X, Y: end.Y})

	if guides == nil {
		guides = []engine.Guide{}
	}
	return &snapResult{ID: id, From: from, To: n.Position(), Guides: guides}, nil
}
