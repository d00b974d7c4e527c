// Package imaging decodes uploaded photographs and encodes diagnostic masks.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels bounds the decoded size of a photograph (40 megapixels)
const DefaultMaxPixels = 40_000_000

// ErrDecode is returned for empty, unparseable or oversized image bytes
var ErrDecode = errors.New("image could not be decoded")

// Decode parses data as any registered raster format and returns the format name.
// Images above DefaultMaxPixels are rejected.
func Decode(data []byte) (image.Image, string, error) {
	return DecodeLimited(data, DefaultMaxPixels)
}

// DecodeLimited is Decode with a caller-chosen pixel ceiling. The header is read
// first so oversized images are rejected before any pixel buffer is allocated.
// A maxPixels <= 0 selects DefaultMaxPixels.
func DecodeLimited(data []byte, maxPixels int64) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", ErrDecode)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("%w: zero-sized %s image", ErrDecode, format)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d %s image exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, format, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, "", fmt.Errorf("%w: zero-sized %s image", ErrDecode, format)
	}
	return img, format, nil
}

// EncodeMaskPNG encodes mask as PNG and returns it base64 encoded
func EncodeMaskPNG(mask *image.Gray) (string, error) {
	if mask == nil {
		return "", fmt.Errorf("nil mask")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, mask); err != nil {
		return "", fmt.Errorf("encode mask: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
