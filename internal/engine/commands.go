package engine

import (
	"encoding/json"

	"github.com/wiredraw/wiredraw/internal/document"
)

// PathCommand is one SVG-style path segment: {"M", x, y}, {"L", x, y}, {"Z"}.
type PathCommand []interface{}

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "view", "symbol", "image", "frame", "handle", "guide"
	ObjectID    string        `json:"objectId,omitempty"`    // For hit correlation
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // Outline for overlay ops
	Width       float64       `json:"width,omitempty"`       // Local size of the drawn box
	Height      float64       `json:"height,omitempty"`      //
	Opacity     float64       `json:"opacity,omitempty"`     // Global alpha
	Markup      string        `json:"markup,omitempty"`      // Inline vector markup for symbols
	Source      string        `json:"source,omitempty"`      // Asset reference for images
	Missing     bool          `json:"missing,omitempty"`     // Image content could not be loaded
	Anchor      Anchor        `json:"anchor,omitempty"`      // Handle name for "handle" ops
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width in board units
}

const (
	overlayStroke = "#1e88e5"
	guideStroke   = "#e53935"
)

// Overlay is the transient state drawn on top of the nodes.
type Overlay struct {
	Frame      *Box
	Handles    []Handle
	Guides     []Guide
	PixelSize  float64 // one surface pixel in board units
	HandleSize float64 // board units
}

// CompileDrawCommands generates a draw command buffer from a scene graph.
// Commands are in painter's order (back to front). Node transforms are in
// board units; the leading "view" command maps board to surface.
func CompileDrawCommands(sg *SceneGraph, view Matrix2D, overlay Overlay) []DrawCommand {
	if sg == nil || sg.root == nil {
		return nil
	}

	commands := []DrawCommand{{Op: "view", Transform: view.ToSlice()}}
	compileNode(sg.root, Identity(), 1, &commands)
	compileOverlay(overlay, &commands)
	return commands
}

// compileNode recursively generates draw commands for a node and its children.
func compileNode(node *SceneNode, parentAbs Matrix2D, parentOpacity float64, commands *[]DrawCommand) {
	abs := parentAbs.Multiply(node.LocalTransform())
	opacity := parentOpacity * node.Opacity
	if opacity <= 0 {
		return
	}

	switch node.Type {
	case document.NodeTypeSymbol:
		*commands = append(*commands, DrawCommand{
			Op:        "symbol",
			ObjectID:  node.ID,
			Transform: abs.ToSlice(),
			Width:     node.Width,
			Height:    node.Height,
			Opacity:   opacity,
			Markup:    node.Attrs[document.AttrMarkup],
		})
	case document.NodeTypeImage:
		*commands = append(*commands, DrawCommand{
			Op:        "image",
			ObjectID:  node.ID,
			Transform: abs.ToSlice(),
			Width:     node.Width,
			Height:    node.Height,
			Opacity:   opacity,
			Source:    node.Attrs[document.AttrSource],
			Missing:   node.Content == nil,
		})
	}

	for _, child := range node.children {
		compileNode(child, abs, opacity, commands)
	}
}

func compileOverlay(o Overlay, commands *[]DrawCommand) {
	px := o.PixelSize
	if px <= 0 {
		px = 1
	}

	if o.Frame != nil {
		*commands = append(*commands, DrawCommand{
			Op:          "frame",
			Transform:   o.Frame.Matrix().ToSlice(),
			Path:        rectPath(o.Frame.Width, o.Frame.Height),
			Stroke:      overlayStroke,
			StrokeWidth: px,
		})
	}

	half := o.HandleSize / 2
	for _, h := range o.Handles {
		*commands = append(*commands, DrawCommand{
			Op:          "handle",
			Anchor:      h.Anchor,
			Transform:   Translate(h.Position.X-half, h.Position.Y-half).ToSlice(),
			Width:       o.HandleSize,
			Height:      o.HandleSize,
			Stroke:      overlayStroke,
			StrokeWidth: px,
		})
	}

	for _, g := range o.Guides {
		var path []PathCommand
		if g.Orientation == Vertical {
			path = []PathCommand{{"M", g.Position, -1e6}, {"L", g.Position, 1e6}}
		} else {
			path = []PathCommand{{"M", -1e6, g.Position}, {"L", 1e6, g.Position}}
		}
		*commands = append(*commands, DrawCommand{
			Op:          "guide",
			ObjectID:    g.Source,
			Path:        path,
			Stroke:      guideStroke,
			StrokeWidth: px,
		})
	}
}

// rectPath generates path commands for a w x h rectangle at the origin.
func rectPath(w, h float64) []PathCommand {
	return []PathCommand{
		{"M", 0.0, 0.0},
		{"L", w, 0.0},
		{"L", w, h},
		{"L", 0.0, h},
		{"Z"},
	}
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
