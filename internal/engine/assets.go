package engine

import "context"

// AssetResolver loads the bytes behind an image node's src attribute. It is
// the one asynchronous boundary of the engine: callers await it before the
// node is attached.
type AssetResolver interface {
	Resolve(ctx context.Context, src string) ([]byte, error)
}

// AssetResolverFunc adapts a function to AssetResolver.
type AssetResolverFunc func(ctx context.Context, src string) ([]byte, error)

func (f AssetResolverFunc) Resolve(ctx context.Context, src string) ([]byte, error) {
	return f(ctx, src)
}
