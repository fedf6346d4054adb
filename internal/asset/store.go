package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/wiredraw/wiredraw/internal/typeid"
)

const maxUploadSize = 10 << 20 // 10MB

var (
	ErrNotFound    = errors.New("asset not found")
	ErrUnsupported = errors.New("unsupported asset type")
	ErrInvalidSrc  = errors.New("invalid asset reference")
)

// Info describes a stored asset.
type Info struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

// Store keeps symbol artwork on disk, one immutable file per asset id. It
// also resolves the src attribute of image nodes for the engine.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory files are stored in.
func (s *Store) Dir() string { return s.dir }

// Save stores an upload. Raster images are normalized to PNG; SVG markup is
// kept as sent.
func (s *Store) Save(name, contentType string, r io.Reader) (Info, error) {
	id := typeid.NewAssetID()
	info := Info{ID: id, Name: name}

	switch {
	case strings.HasPrefix(contentType, "image/png"), strings.HasPrefix(contentType, "image/jpeg"):
		img, _, err := image.Decode(r)
		if err != nil {
			return Info{}, fmt.Errorf("%w: decode image: %v", ErrUnsupported, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return Info{}, fmt.Errorf("encode png: %w", err)
		}
		info.Type = "png"
		info.Width, info.Height = img.Bounds().Dx(), img.Bounds().Dy()
		if err := s.write(id+".png", buf.Bytes()); err != nil {
			return Info{}, err
		}

	case strings.HasPrefix(contentType, "image/svg+xml"):
		data, err := io.ReadAll(io.LimitReader(r, maxUploadSize))
		if err != nil {
			return Info{}, fmt.Errorf("read svg: %w", err)
		}
		if !bytes.Contains(bytes.ToLower(data), []byte("<svg")) {
			return Info{}, fmt.Errorf("%w: no svg element", ErrUnsupported)
		}
		info.Type = "svg"
		if err := s.write(id+".svg", data); err != nil {
			return Info{}, err
		}

	default:
		return Info{}, fmt.Errorf("%w: %q", ErrUnsupported, contentType)
	}

	info.URL = "/assets/" + id + "." + info.Type
	return info, nil
}

func (s *Store) write(filename string, data []byte) error {
	p := filepath.Join(s.dir, filename)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write asset: %w", err)
	}
	return nil
}

// Read returns the bytes of a stored asset.
func (s *Store) Read(id string) ([]byte, error) {
	if err := typeid.Validate(id, typeid.PrefixAsset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSrc, err)
	}
	for _, ext := range []string{".png", ".svg"} {
		data, err := os.ReadFile(filepath.Join(s.dir, id+ext))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read asset %s: %w", id, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes a stored asset.
func (s *Store) Delete(id string) error {
	if err := typeid.Validate(id, typeid.PrefixAsset); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSrc, err)
	}
	for _, ext := range []string{".png", ".svg"} {
		if err := os.Remove(filepath.Join(s.dir, id+ext)); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Resolve loads the bytes behind an image node's src: a data URL, an asset
// id, or an /assets/ URL as returned by Save.
func (s *Store) Resolve(ctx context.Context, src string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.HasPrefix(src, "data:") {
		return decodeDataURL(src)
	}
	id := src
	if strings.HasPrefix(src, "/assets/") {
		base := path.Base(src)
		id = strings.TrimSuffix(base, path.Ext(base))
	}
	return s.Read(id)
}

// decodeDataURL handles data:[<mediatype>][;base64],<data>.
func decodeDataURL(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: data url without payload", ErrInvalidSrc)
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSrc, err)
		}
		return data, nil
	}
	return []byte(payload), nil
}
