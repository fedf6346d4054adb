package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser     = "user"
	PrefixProject  = "proj"
	PrefixSnapshot = "snap"
	PrefixNode     = "node"
	PrefixGroup    = "grp"
	PrefixLayer    = "layer"
	PrefixAsset    = "asset"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewUserID() string     { return New(PrefixUser) }
func NewProjectID() string  { return New(PrefixProject) }
func NewSnapshotID() string { return New(PrefixSnapshot) }
func NewNodeID() string     { return New(PrefixNode) }
func NewGroupID() string    { return New(PrefixGroup) }
func NewLayerID() string    { return New(PrefixLayer) }
func NewAssetID() string    { return New(PrefixAsset) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}

// HasPrefix reports whether id parses as a typeid with one of the given prefixes.
func HasPrefix(id string, prefixes ...string) bool {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return false
	}
	for _, p := range prefixes {
		if parsed.Prefix() == p {
			return true
		}
	}
	return false
}
