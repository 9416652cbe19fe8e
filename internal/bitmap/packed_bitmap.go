// This file implements methods to pack bitmap pixel data into the bit
// structure accepted by a ZPL graphic field.

package bitmap

import "fmt"

// a bitmap packed in memory
type PackedBitmap struct {
	data                  []byte
	width, height, stride int
}

const bitsPerWord = 8

// BytesPerRow returns the number of bytes a row of the given width packs into.
func BytesPerRow(width int) int {
	return (width + bitsPerWord - 1) / bitsPerWord
}

// NewPackedBitmap wraps already packed data, checking it is consistent with the
// dimensions given.
func NewPackedBitmap(data []byte, width, height int) (*PackedBitmap, error) {
	stride := BytesPerRow(width)
	if len(data) != stride*height {
		return nil, fmt.Errorf("packed data is %d bytes, expected %d*%d=%d", len(data), stride, height, stride*height)
	}
	return &PackedBitmap{data, width, height, stride}, nil
}

func (b *PackedBitmap) Width() int {
	return b.width
}

func (b *PackedBitmap) Height() int {
	return b.height
}

func (b *PackedBitmap) Stride() int {
	return b.stride
}

func (b *PackedBitmap) Data() []byte {
	return b.data
}

// Row returns the packed bytes of row y.
func (b *PackedBitmap) Row(y int) []byte {
	return b.data[y*b.stride : (y+1)*b.stride]
}

// Gets a single bit from the bitmap at the (x, y) coordinate, returns either 0 or 1.
// Pixels are left-aligned in each byte, so the leftmost pixel is the most
// significant bit and a partial final byte has its unused low bits zeroed.
func (b *PackedBitmap) GetBit(x int, y int) byte {
	index := (y * b.stride) + (x / bitsPerWord)
	return (b.data[index] >> (bitsPerWord - 1 - x%bitsPerWord)) & 1
}

func (b *PackedBitmap) String() string {
	return fmt.Sprintf("PackedBitmap(%d,%d)", b.width, b.height)
}

// Takes a horizontal slice of the packed bitmap, starting at row start and
// spanning height rows
func (b *PackedBitmap) VerticalSlice(start int, height int) *PackedBitmap {
	return &PackedBitmap{
		data:   b.data[b.stride*start : b.stride*(start+height)],
		width:  b.width,
		height: height,
		stride: b.stride,
	}
}

// Take data from any Bitmap implementation and pack it into rows of bytes,
// MSB first
func PackBitmap(b Bitmap) *PackedBitmap {
	width, height, stride := b.Width(), b.Height(), BytesPerRow(b.Width())
	data := make([]byte, stride*height)

	for y := range height {
		row := data[y*stride : (y+1)*stride]
		for x := range width {
			if b.GetBit(x, y)&1 == 1 {
				row[x/bitsPerWord] |= 0x80 >> (x % bitsPerWord)
			}
		}
	}

	return &PackedBitmap{data, width, height, stride}
}
