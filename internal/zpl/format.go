// Package zpl turns packed 1-bit rasters into ZPL graphic fields and labels.
package zpl

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported format")

// Format is the textual encoding used for the data of a ^GFA graphic field.
type Format int

const (
	// ASCII renders every byte as two uppercase hex digits.
	ASCII Format = iota
	// B64 is :B64:<base64>:<crc>.
	B64
	// Z64 is :Z64:<base64 of compressed data>:<crc>.
	Z64
)

func (f Format) String() string {
	switch f {
	case ASCII:
		return "ASCII"
	case B64:
		return "B64"
	case Z64:
		return "Z64"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ASCII", "HEX":
		return ASCII, nil
	case "B64":
		return B64, nil
	case "Z64":
		return Z64, nil
	default:
		return ASCII, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

func (f Format) MarshalText() ([]byte, error) {
	if f < ASCII || f > Z64 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(f))
	}
	return []byte(f.String()), nil
}

func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Compression selects how Z64 data is compressed before Base64 framing.
type Compression int

const (
	// RLE is the run-length scheme implemented by Compress.
	RLE Compression = iota
	// Zlib deflates the packed bytes, which is what Zebra firmware expects.
	Zlib
)

func (c Compression) String() string {
	switch c {
	case RLE:
		return "rle"
	case Zlib:
		return "zlib"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rle":
		return RLE, nil
	case "zlib", "deflate":
		return Zlib, nil
	default:
		return RLE, fmt.Errorf("unknown compression %q", s)
	}
}

func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Compression) UnmarshalText(text []byte) error {
	parsed, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
