package zpl

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	"strings"

	"github.com/klauspost/compress/zlib"

	"tomgalvin.uk/zplconv/internal/bitmap"
)

// Encoder writes packed bitmaps as ZPL. The zero value produces ASCII hex
// fields at the label origin.
type Encoder struct {
	Format Format
	// Compression applies to Z64 only.
	Compression Compression
	// CompactHex compresses ASCII data with the same scheme as Compress. The
	// byte counts in the field header stay those of the uncompressed data.
	CompactHex bool
	// Checksum defaults to CRC16.
	Checksum Checksum
	// Origin is the ^FO position of the graphic field, in dots.
	Origin image.Point
}

// GraphicField returns the ^GFA command for data, which must be width x height
// dots packed by rows.
func (e *Encoder) GraphicField(data []byte, width, height int) (string, error) {
	stride := bitmap.BytesPerRow(width)
	if width <= 0 || height <= 0 || len(data) != stride*height {
		return "", fmt.Errorf("%w: %d bytes for %dx%d dots", ErrCompressionInputMisaligned, len(data), width, height)
	}

	count := len(data)
	var payload string
	switch e.Format {
	case ASCII:
		if e.CompactHex {
			compressed, err := Compress(data, stride)
			if err != nil {
				return "", err
			}
			payload = string(compressed)
		} else {
			payload = strings.ToUpper(hex.EncodeToString(data))
		}
	case B64:
		payload = e.frame("B64", data)
	case Z64:
		compressed, err := e.compress(data, stride)
		if err != nil {
			return "", err
		}
		count = len(compressed)
		payload = e.frame("Z64", compressed)
	default:
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, e.Format)
	}

	return fmt.Sprintf("^GFA,%d,%d,%d,%s", count, count, stride, payload), nil
}

// Label wraps the graphic field for b in a complete ^XA ... ^XZ label.
func (e *Encoder) Label(b *bitmap.PackedBitmap) (string, error) {
	field, err := e.GraphicField(b.Data(), b.Width(), b.Height())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("^XA\n^FO%d,%d%s^FS\n^XZ\n", e.Origin.X, e.Origin.Y, field), nil
}

func (e *Encoder) compress(data []byte, stride int) ([]byte, error) {
	switch e.Compression {
	case RLE:
		return Compress(data, stride)
	case Zlib:
		return deflate(data)
	default:
		return nil, fmt.Errorf("unknown compression %v", e.Compression)
	}
}

func (e *Encoder) frame(tag string, data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	sum := e.Checksum
	if sum == nil {
		sum = CRC16
	}
	return fmt.Sprintf(":%s:%s:%04x", tag, encoded, sum([]byte(encoded)))
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("deflating graphic data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflating graphic data: %w", err)
	}
	return buf.Bytes(), nil
}
