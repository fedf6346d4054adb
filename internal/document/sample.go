package document

import (
	"github.com/wiredraw/wiredraw/internal/typeid"
)

const (
	resistorMarkup  = `<svg viewBox="0 0 80 20"><path d="M0 10h15l5-8 10 16 10-16 10 16 10-16 5 8h15" fill="none" stroke="#000"/></svg>`
	capacitorMarkup = `<svg viewBox="0 0 40 40"><path d="M0 20h17M17 5v30M23 5v30M23 20h17" fill="none" stroke="#000"/></svg>`
	groundMarkup    = `<svg viewBox="0 0 40 40"><path d="M20 0v20M5 20h30M10 27h20M15 34h10" fill="none" stroke="#000"/></svg>`
	lampMarkup      = `<svg viewBox="0 0 40 40"><circle cx="20" cy="20" r="15" fill="none" stroke="#000"/><path d="M9 9l22 22M31 9L9 31" stroke="#000"/></svg>`
)

func symbol(x, y, w, h float64, z int, label, markup string) NodeRecord {
	return NodeRecord{
		ID:        typeid.NewNodeID(),
		Type:      NodeTypeSymbol,
		X:         x,
		Y:         y,
		Width:     w,
		Height:    h,
		ScaleX:    1,
		ScaleY:    1,
		ZIndex:    z,
		Opacity:   1,
		Listening: true,
		Attrs: map[string]string{
			AttrLabel:  label,
			AttrMarkup: markup,
		},
	}
}

// NewSampleDocument returns a small lamp circuit used by the playground and
// the CLI.
func NewSampleDocument() *Document {
	doc := NewEmptyDocument(typeid.NewLayerID(), 1280, 720, 20)

	lampGroup := NodeRecord{
		ID:        typeid.NewGroupID(),
		Type:      NodeTypeGroup,
		X:         400,
		Y:         200,
		ScaleX:    1,
		ScaleY:    1,
		ZIndex:    3,
		Opacity:   1,
		Listening: true,
		Attrs:     map[string]string{AttrLabel: "lamp + ground"},
		Children: []NodeRecord{
			symbol(0, 0, 40, 40, 0, "L1", lampMarkup),
			symbol(0, 60, 40, 40, 1, "GND", groundMarkup),
		},
	}

	doc.Root.Children = []NodeRecord{
		symbol(100, 100, 80, 20, 0, "R1", resistorMarkup),
		symbol(240, 80, 40, 40, 1, "C1", capacitorMarkup),
		symbol(100, 200, 80, 20, 2, "R2", resistorMarkup),
		lampGroup,
	}
	return doc
}
