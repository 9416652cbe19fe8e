package bitmap

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/makeworld-the-better-one/dither/v2"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// Resampler selects the interpolation used when a page is scaled to the
// printer's dot grid.
type Resampler int

const (
	BiLinear Resampler = iota
	CatmullRom
	Lanczos
)

func (r Resampler) String() string {
	switch r {
	case BiLinear:
		return "bilinear"
	case CatmullRom:
		return "catmullrom"
	case Lanczos:
		return "lanczos"
	default:
		return fmt.Sprintf("Resampler(%d)", int(r))
	}
}

func ParseResampler(s string) (Resampler, error) {
	switch s {
	case "", "bilinear":
		return BiLinear, nil
	case "catmullrom":
		return CatmullRom, nil
	case "lanczos":
		return Lanczos, nil
	default:
		return BiLinear, fmt.Errorf("unknown resampler %q", s)
	}
}

func (r Resampler) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Resampler) UnmarshalText(text []byte) error {
	parsed, err := ParseResampler(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

type ToneOptions struct {
	// Dots darker than Threshold print black. Ignored when dithering.
	Threshold uint8
	Dither    bool
	// Invert swaps black and white after quantisation.
	Invert    bool
	Resampler Resampler
}

var blackAndWhite = []color.Color{color.Black, color.White}

// Reduce scales img to width x height dots and quantises it to one bit per dot.
func Reduce(img image.Image, width, height int, opts ToneOptions) (*MonoBitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("can't reduce to %dx%d", width, height)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("source image is empty")
	}

	gray := luminance(resample(img, width, height, opts.Resampler))

	var m *MonoBitmap
	if opts.Dither {
		var err error
		if m, err = ditherFloydSteinberg(gray); err != nil {
			return nil, err
		}
	} else {
		m = threshold(gray, opts.Threshold)
	}

	if opts.Invert {
		m.Invert()
	}
	return m, nil
}

// resample draws img onto an opaque white canvas of the requested size, so
// transparent areas come out as unprinted paper.
func resample(img image.Image, width, height int, r Resampler) *image.RGBA {
	src := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	if src.Dx() == width && src.Dy() == height {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Over)
		return dst
	}

	switch r {
	case Lanczos:
		scaled := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
		draw.Draw(dst, dst.Bounds(), scaled, scaled.Bounds().Min, draw.Over)
	case CatmullRom:
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	default:
		draw.BiLinear.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	}
	return dst
}

// luminance uses the ITU-R 601 weights of color.GrayModel.
func luminance(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	g := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g.SetGray(x, y, color.GrayModel.Convert(src.RGBAAt(x, y)).(color.Gray))
		}
	}
	return g
}

func threshold(g *image.Gray, t uint8) *MonoBitmap {
	b := g.Bounds()
	m := NewMonoBitmap(b.Dx(), b.Dy())
	for y := range m.height {
		for x := range m.width {
			if g.GrayAt(b.Min.X+x, b.Min.Y+y).Y < t {
				m.Set(x, y, true)
			}
		}
	}
	return m
}

// Floyd-Steinberg error diffusion, scanning every row left to right so the
// result only depends on the input.
func ditherFloydSteinberg(g *image.Gray) (*MonoBitmap, error) {
	d := dither.NewDitherer(blackAndWhite)
	d.Matrix = dither.FloydSteinberg
	d.Serpentine = false
	return FromPaletted(d.DitherPaletted(preLinearize(g)))
}

// preLinearize sRGB-encodes each luminance sample. The ditherer linearizes
// its input before diffusing, so error is then spread over the luminance
// values themselves, the same grid the threshold path compares.
func preLinearize(g *image.Gray) *image.Gray16 {
	b := g.Bounds()
	out := image.NewGray16(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := srgbEncode(float64(g.GrayAt(x, y).Y) / 255)
			out.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(v * 0xFFFF))})
		}
	}
	return out
}

// srgbEncode is the inverse of the sRGB transfer function, for v in [0, 1].
func srgbEncode(v float64) float64 {
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}
