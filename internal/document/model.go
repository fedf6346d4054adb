package document

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CurrentVersion is the document format version written by Encode.
const CurrentVersion = 1

var ErrInvalidDocument = errors.New("invalid document")

type Document struct {
	Version int        `json:"version"`
	Board   Board      `json:"board"`
	Root    NodeRecord `json:"root"`
}

type Board struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	GridSize   float64 `json:"gridSize"`
	Background string  `json:"background"`
}

type NodeType string

const (
	NodeTypeLayer  NodeType = "layer"
	NodeTypeGroup  NodeType = "group"
	NodeTypeSymbol NodeType = "symbol"
	NodeTypeImage  NodeType = "image"
)

// Well-known attrs keys.
const (
	AttrSource = "src"    // asset id or data URL for image nodes
	AttrMarkup = "markup" // inline vector markup for symbol nodes
	AttrLabel  = "label"
)

// NodeRecord is the persisted form of a scene node. It carries no selection
// or session state.
type NodeRecord struct {
	ID        string            `json:"id"`
	Type      NodeType          `json:"type"`
	X         float64           `json:"x"`
	Y         float64           `json:"y"`
	Width     float64           `json:"width"`
	Height    float64           `json:"height"`
	Rotation  float64           `json:"rotation"`
	ScaleX    float64           `json:"scaleX"`
	ScaleY    float64           `json:"scaleY"`
	ZIndex    int               `json:"zIndex"`
	Opacity   float64           `json:"opacity"`
	Listening bool              `json:"listening"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	Children  []NodeRecord      `json:"children,omitempty"`
}

// Encode serializes a document to JSON.
func Encode(doc *Document) ([]byte, error) {
	if doc.Version == 0 {
		doc.Version = CurrentVersion
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// Decode parses and validates a JSON document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks structural rules: a layer root, unique ids, known types and
// non-negative sizes.
func Validate(doc *Document) error {
	if doc.Root.ID == "" {
		return fmt.Errorf("%w: missing root", ErrInvalidDocument)
	}
	if doc.Root.Type != NodeTypeLayer {
		return fmt.Errorf("%w: root must be a layer, got %q", ErrInvalidDocument, doc.Root.Type)
	}
	seen := make(map[string]bool)
	return validateNode(&doc.Root, seen, nil)
}

// ValidateSubtree checks a detached node and its descendants with the same
// rules as Validate. taken reports ids already in use by the document the
// subtree is about to join; it may be nil.
func ValidateSubtree(rec *NodeRecord, taken func(id string) bool) error {
	return validateNode(rec, make(map[string]bool), taken)
}

func validateNode(rec *NodeRecord, seen map[string]bool, taken func(string) bool) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: node without id", ErrInvalidDocument)
	}
	if seen[rec.ID] || (taken != nil && taken(rec.ID)) {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidDocument, rec.ID)
	}
	seen[rec.ID] = true

	switch rec.Type {
	case NodeTypeLayer, NodeTypeGroup, NodeTypeSymbol, NodeTypeImage:
	default:
		return fmt.Errorf("%w: node %s has unknown type %q", ErrInvalidDocument, rec.ID, rec.Type)
	}
	if rec.Width < 0 || rec.Height < 0 {
		return fmt.Errorf("%w: node %s has negative size", ErrInvalidDocument, rec.ID)
	}
	for i := range rec.Children {
		if err := validateNode(&rec.Children[i], seen, taken); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of nodes below the root.
func (d *Document) Count() int {
	n := 0
	var walk func(r *NodeRecord)
	walk = func(r *NodeRecord) {
		for i := range r.Children {
			n++
			walk(&r.Children[i])
		}
	}
	walk(&d.Root)
	return n
}

// NewEmptyDocument creates an empty board for a new project.
func NewEmptyDocument(rootID string, width, height, gridSize float64) *Document {
	return &Document{
		Version: CurrentVersion,
		Board: Board{
			Width:      width,
			Height:     height,
			GridSize:   gridSize,
			Background: "#ffffff",
		},
		Root: NodeRecord{
			ID:        rootID,
			Type:      NodeTypeLayer,
			ScaleX:    1,
			ScaleY:    1,
			Opacity:   1,
			Listening: true,
		},
	}
}
