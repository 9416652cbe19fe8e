// Package geometry works out how many printer dots a page should occupy once it
// has been scaled to a physical label size at a given printer resolution.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidGeometry = errors.New("invalid geometry")

type ScalingMode int

const (
	// Fit preserves the aspect ratio of the source, producing the largest size
	// that fits inside the requested box.
	Fit ScalingMode = iota
	// Stretch fills the requested box exactly, distorting the image if needed.
	Stretch
)

func (m ScalingMode) String() string {
	switch m {
	case Fit:
		return "fit"
	case Stretch:
		return "stretch"
	default:
		return fmt.Sprintf("ScalingMode(%d)", int(m))
	}
}

func ParseScalingMode(s string) (ScalingMode, error) {
	switch s {
	case "", "fit":
		return Fit, nil
	case "stretch":
		return Stretch, nil
	default:
		return Fit, fmt.Errorf("unknown scaling mode %q", s)
	}
}

// Source describes a rasterized page. DPI may be 0 if the resolution the page
// was rendered at is not known.
type Source struct {
	Width, Height int
	DPI           float64
}

// Target describes the label the page is printed onto. Width and Height are in
// inches; a zero value means the dimension was not requested.
type Target struct {
	Width, Height float64
	DPI           float64
	Mode          ScalingMode
}

// Resolve returns the size in dots of the bitmap to print.
func Resolve(src Source, t Target) (int, int, error) {
	if err := validate(src, t); err != nil {
		return 0, 0, err
	}

	sw, sh := float64(src.Width), float64(src.Height)
	srcDPI := src.DPI
	if srcDPI == 0 {
		srcDPI = t.DPI
	}

	switch {
	case t.Width == 0 && t.Height == 0:
		scale := t.DPI / srcDPI
		return clamp(sw * scale), clamp(sh * scale), nil

	case t.Width == 0:
		boxH := t.Height * t.DPI
		return clamp(sw * boxH / sh), clamp(boxH), nil

	case t.Height == 0:
		boxW := t.Width * t.DPI
		return clamp(boxW), clamp(sh * boxW / sw), nil

	case t.Mode == Stretch:
		return clamp(t.Width * t.DPI), clamp(t.Height * t.DPI), nil

	default:
		boxW, boxH := t.Width*t.DPI, t.Height*t.DPI
		scale := math.Min(boxW/sw, boxH/sh)
		w, h := clamp(sw*scale), clamp(sh*scale)
		// rounding the scaled side must not push it past the box
		return min(w, clamp(boxW)), min(h, clamp(boxH)), nil
	}
}

func validate(src Source, t Target) error {
	if src.Width <= 0 || src.Height <= 0 {
		return fmt.Errorf("%w: source size %dx%d", ErrInvalidGeometry, src.Width, src.Height)
	}
	if !finite(src.DPI) || src.DPI < 0 {
		return fmt.Errorf("%w: source dpi %v", ErrInvalidGeometry, src.DPI)
	}
	if !finite(t.DPI) || t.DPI <= 0 {
		return fmt.Errorf("%w: target dpi %v", ErrInvalidGeometry, t.DPI)
	}
	if !finite(t.Width) || t.Width < 0 || !finite(t.Height) || t.Height < 0 {
		return fmt.Errorf("%w: target size %vx%v", ErrInvalidGeometry, t.Width, t.Height)
	}
	if t.Mode != Fit && t.Mode != Stretch {
		return fmt.Errorf("%w: scaling mode %v", ErrInvalidGeometry, t.Mode)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(f float64) int {
	n := int(math.Round(f))
	if n < 1 {
		return 1
	}
	return n
}

func (m ScalingMode) MarshalText() ([]byte, error) {
	if m != Fit && m != Stretch {
		return nil, fmt.Errorf("unknown scaling mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *ScalingMode) UnmarshalText(text []byte) error {
	parsed, err := ParseScalingMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
