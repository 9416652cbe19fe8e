package bitmap

import (
	"fmt"
	"image"
	"image/color"

	"github.com/bits-and-blooms/bitset"
)

// MonoBitmap is a 1-bit image, one bit per dot in row-major order.
type MonoBitmap struct {
	bits          *bitset.BitSet
	width, height int
}

func NewMonoBitmap(width, height int) *MonoBitmap {
	return &MonoBitmap{
		bits:   bitset.New(uint(width * height)),
		width:  width,
		height: height,
	}
}

// FromPaletted maps a two colour image onto a MonoBitmap; pixels using the
// palette entry closest to black become black dots.
func FromPaletted(i *image.Paletted) (*MonoBitmap, error) {
	if len(i.Palette) != 2 {
		return nil, fmt.Errorf("image passed to FromPaletted must have exactly 2 colours in palette, got %d", len(i.Palette))
	}

	black := uint8(i.Palette.Index(color.Black))
	b := i.Bounds()
	m := NewMonoBitmap(b.Dx(), b.Dy())
	for y := range m.height {
		for x := range m.width {
			if i.ColorIndexAt(b.Min.X+x, b.Min.Y+y) == black {
				m.Set(x, y, true)
			}
		}
	}
	return m, nil
}

func (b *MonoBitmap) Width() int {
	return b.width
}

func (b *MonoBitmap) Height() int {
	return b.height
}

func (b *MonoBitmap) GetBit(x int, y int) byte {
	if b.bits.Test(b.index(x, y)) {
		return 1
	}
	return 0
}

func (b *MonoBitmap) Set(x, y int, black bool) {
	b.bits.SetTo(b.index(x, y), black)
}

// Invert swaps black and white for every dot.
func (b *MonoBitmap) Invert() {
	b.bits.FlipRange(0, uint(b.width*b.height))
}

// BlackCount returns the number of black dots.
func (b *MonoBitmap) BlackCount() int {
	return int(b.bits.Count())
}

func (b *MonoBitmap) String() string {
	return fmt.Sprintf("MonoBitmap(%d,%d)", b.width, b.height)
}

func (b *MonoBitmap) index(x, y int) uint {
	return uint(y*b.width + x)
}
