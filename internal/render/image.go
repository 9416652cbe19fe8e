package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"tomgalvin.uk/zplconv/internal/bitmap"
)

// Image decodes a single raster image, applying any EXIF orientation. The
// page has no resolution of its own, so each pixel becomes one printer dot
// unless the label size says otherwise.
type Image struct{}

func (Image) Render(ctx context.Context, data []byte, dpi float64) ([]bitmap.RasterImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't decode image: %v", ErrUnreadable, err)
	}
	return []bitmap.RasterImage{{Image: img}}, nil
}
