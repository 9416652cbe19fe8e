package convert

import (
	"errors"
	"fmt"
	"image"
	"math"
	"slices"

	"tomgalvin.uk/zplconv/internal/bitmap"
	"tomgalvin.uk/zplconv/internal/geometry"
	"tomgalvin.uk/zplconv/internal/zpl"
)

// Printer resolutions in dots per inch.
var SupportedDPI = []int{152, 203, 300, 600}

const (
	DefaultDPI       = 203
	DefaultThreshold = 128
)

// Options control how pages are turned into labels. Width and Height are in
// inches and optional; leave them at 0 to print at the page's own size.
type Options struct {
	Format      zpl.Format           `json:"format" toml:"format"`
	Width       float64              `json:"width" toml:"width"`
	Height      float64              `json:"height" toml:"height"`
	DPI         int                  `json:"dpi" toml:"dpi"`
	Scaling     geometry.ScalingMode `json:"scaling" toml:"scaling"`
	Invert      bool                 `json:"invert" toml:"invert"`
	Dither      bool                 `json:"dither" toml:"dither"`
	Threshold   int                  `json:"threshold" toml:"threshold"`
	SplitPages  bool                 `json:"split_pages" toml:"split_pages"`
	Resampler   bitmap.Resampler     `json:"resampler" toml:"resampler"`
	Compression zpl.Compression      `json:"compression" toml:"compression"`
	CompactHex  bool                 `json:"compact_hex" toml:"compact_hex"`
	// Checksum is "crc16" (the default) or "zero".
	Checksum string `json:"checksum" toml:"checksum"`
	OriginX  int    `json:"origin_x" toml:"origin_x"`
	OriginY  int    `json:"origin_y" toml:"origin_y"`
}

func DefaultOptions() Options {
	return Options{
		Format:    zpl.ASCII,
		DPI:       DefaultDPI,
		Scaling:   geometry.Fit,
		Dither:    true,
		Threshold: DefaultThreshold,
	}
}

// Validate checks every field and returns all the problems found, joined.
func (o Options) Validate() error {
	var errs []error
	invalid := func(field string, cause error, format string, args ...any) {
		errs = append(errs, &OptionError{Field: field, Reason: fmt.Sprintf(format, args...), Err: cause})
	}

	if o.Format < zpl.ASCII || o.Format > zpl.Z64 {
		invalid("format", zpl.ErrUnsupportedFormat, "%v is not one of ASCII, B64, Z64", o.Format)
	}
	if !slices.Contains(SupportedDPI, o.DPI) {
		invalid("dpi", geometry.ErrInvalidGeometry, "%d is not one of %v", o.DPI, SupportedDPI)
	}
	if math.IsNaN(o.Width) || math.IsInf(o.Width, 0) || o.Width < 0 {
		invalid("width", geometry.ErrInvalidGeometry, "%v must be a positive length or 0", o.Width)
	}
	if math.IsNaN(o.Height) || math.IsInf(o.Height, 0) || o.Height < 0 {
		invalid("height", geometry.ErrInvalidGeometry, "%v must be a positive length or 0", o.Height)
	}
	if o.Scaling != geometry.Fit && o.Scaling != geometry.Stretch {
		invalid("scaling", nil, "%v is not fit or stretch", o.Scaling)
	}
	if o.Threshold < 0 || o.Threshold > 255 {
		invalid("threshold", nil, "%d is outside 0..255", o.Threshold)
	}
	if o.Resampler < bitmap.BiLinear || o.Resampler > bitmap.Lanczos {
		invalid("resampler", nil, "%v is not supported", o.Resampler)
	}
	if o.Compression != zpl.RLE && o.Compression != zpl.Zlib {
		invalid("compression", nil, "%v is not rle or zlib", o.Compression)
	}
	if o.Checksum != "" && o.Checksum != "crc16" && o.Checksum != "zero" {
		invalid("checksum", nil, "%q is not crc16 or zero", o.Checksum)
	}
	if o.OriginX < 0 || o.OriginY < 0 {
		invalid("origin", nil, "%d,%d must not be negative", o.OriginX, o.OriginY)
	}

	return errors.Join(errs...)
}

func (o Options) target() geometry.Target {
	return geometry.Target{
		Width:  o.Width,
		Height: o.Height,
		DPI:    float64(o.DPI),
		Mode:   o.Scaling,
	}
}

func (o Options) tone() bitmap.ToneOptions {
	return bitmap.ToneOptions{
		Threshold: uint8(o.Threshold),
		Dither:    o.Dither,
		Invert:    o.Invert,
		Resampler: o.Resampler,
	}
}

// Encoder returns the ZPL encoder configured by o.
func (o Options) Encoder() *zpl.Encoder {
	e := &zpl.Encoder{
		Format:      o.Format,
		Compression: o.Compression,
		CompactHex:  o.CompactHex,
		Checksum:    zpl.CRC16,
		Origin:      image.Pt(o.OriginX, o.OriginY),
	}
	if o.Checksum == "zero" {
		e.Checksum = zpl.ZeroChecksum
	}
	return e
}
