// This package defines an interface for a simple bitmap structure that has a
// width, height, and can get bits from the bitmap by (x,y) coordinate.
// MonoBitmap is the 1-bit result of tone reduction, PixelBitmap stores a byte
// per pixel and is mostly used in tests, and PackedBitmap is the row-major,
// byte-aligned layout a ZPL graphic field consumes.
package bitmap

import (
	"fmt"
	"image"
)

// A bit value of 1 is a black (printed) dot.
type Bitmap interface {
	Width() int
	Height() int
	GetBit(x int, y int) byte
}

// RasterImage is a rendered page handed over by a rasterizer. DPI is the
// resolution it was rendered at, or 0 if unknown.
type RasterImage struct {
	Image image.Image
	DPI   float64
}

func (r RasterImage) Width() int {
	return r.Image.Bounds().Dx()
}

func (r RasterImage) Height() int {
	return r.Image.Bounds().Dy()
}

type PixelBitmap struct {
	pixels        [][]byte
	width, height int
}

func NewPixelBitmap(pixels [][]byte) (*PixelBitmap, error) {
	height := len(pixels)
	if height == 0 {
		return &PixelBitmap{}, nil
	}
	width := len(pixels[0])
	for y, row := range pixels {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d pixels, expected %d", y, len(row), width)
		}
	}
	return &PixelBitmap{pixels, width, height}, nil
}

func (b *PixelBitmap) Width() int {
	return b.width
}

func (b *PixelBitmap) Height() int {
	return b.height
}

func (b *PixelBitmap) GetBit(x int, y int) byte {
	return b.pixels[y][x]
}

func (b *PixelBitmap) String() string {
	return fmt.Sprintf("PixelBitmap(%d,%d)", b.width, b.height)
}
