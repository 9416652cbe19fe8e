package bitmap

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"
)

func aUniformGray(width, height int, y uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.Gray{Y: y}}, image.Point{}, draw.Src)
	return img
}

func TestReduceThreshold(t *testing.T) {
	const threshold = 128
	tests := []struct {
		name      string
		gray      uint8
		invert    bool
		wantBlack bool
	}{
		{"just below threshold", threshold - 1, false, true},
		{"just above threshold", threshold + 1, false, false},
		{"at threshold", threshold, false, false},
		{"below threshold inverted", threshold - 1, true, false},
		{"above threshold inverted", threshold + 1, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Reduce(aUniformGray(17, 9, tt.gray), 17, 9, ToneOptions{
				Threshold: threshold,
				Invert:    tt.invert,
			})
			if err != nil {
				t.Fatal(err)
			}
			expected := 0
			if tt.wantBlack {
				expected = 17 * 9
			}
			if m.BlackCount() != expected {
				t.Errorf("%d black dots, expected %d", m.BlackCount(), expected)
			}
		})
	}
}

func TestReduceColourUsesLuminance(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255}) // luminance ~76
	img.Set(1, 0, color.RGBA{0, 255, 0, 255}) // luminance ~150
	m, err := Reduce(img, 2, 1, ToneOptions{Threshold: 128})
	if err != nil {
		t.Fatal(err)
	}
	if m.GetBit(0, 0) != 1 || m.GetBit(1, 0) != 0 {
		t.Errorf("got bits %d%d, expected 10", m.GetBit(0, 0), m.GetBit(1, 0))
	}
}

func TestReduceTransparentIsWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	m, err := Reduce(img, 4, 4, ToneOptions{Threshold: 128})
	if err != nil {
		t.Fatal(err)
	}
	if m.BlackCount() != 0 {
		t.Errorf("transparent image printed %d dots", m.BlackCount())
	}
}

func TestReduceResamples(t *testing.T) {
	for _, r := range []Resampler{BiLinear, CatmullRom, Lanczos} {
		t.Run(r.String(), func(t *testing.T) {
			m, err := Reduce(aUniformGray(40, 20, 0), 13, 7, ToneOptions{Threshold: 128, Resampler: r})
			if err != nil {
				t.Fatal(err)
			}
			if m.Width() != 13 || m.Height() != 7 {
				t.Fatalf("got %s, expected 13x7", m)
			}
			if m.BlackCount() != 13*7 {
				t.Errorf("black image scaled to %d black dots of %d", m.BlackCount(), 13*7)
			}
		})
	}
}

func TestReduceDitherExtremes(t *testing.T) {
	for _, invert := range []bool{false, true} {
		black, err := Reduce(aUniformGray(20, 20, 0), 20, 20, ToneOptions{Dither: true, Invert: invert})
		if err != nil {
			t.Fatal(err)
		}
		white, err := Reduce(aUniformGray(20, 20, 255), 20, 20, ToneOptions{Dither: true, Invert: invert})
		if err != nil {
			t.Fatal(err)
		}
		wantBlack, wantWhite := 400, 0
		if invert {
			wantBlack, wantWhite = 0, 400
		}
		if black.BlackCount() != wantBlack || white.BlackCount() != wantWhite {
			t.Errorf("invert=%v: black image %d dots, white image %d dots", invert, black.BlackCount(), white.BlackCount())
		}
	}
}

func TestReduceDitherMidGray(t *testing.T) {
	m, err := Reduce(aUniformGray(64, 64, 128), 64, 64, ToneOptions{Dither: true})
	if err != nil {
		t.Fatal(err)
	}
	n := m.BlackCount()
	if n == 0 || n == 64*64 {
		t.Errorf("mid gray dithered to a solid image (%d black dots)", n)
	}
}

func TestReduceDitherKeepsTone(t *testing.T) {
	const size = 100
	for _, g := range []uint8{64, 128, 192} {
		t.Run(fmt.Sprintf("gray %d", g), func(t *testing.T) {
			m, err := Reduce(aUniformGray(size, size, g), size, size, ToneOptions{Dither: true})
			if err != nil {
				t.Fatal(err)
			}
			got := float64(m.BlackCount()) / (size * size)
			want := 1 - float64(g)/255
			if math.Abs(got-want) > 0.03 {
				t.Errorf("%.1f%% black, want %.1f%%", got*100, want*100)
			}
		})
	}
}

func TestReduceDitherDeterministic(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 50, 30))
	for y := range 30 {
		for x := range 50 {
			img.SetGray(x, y, color.Gray{Y: uint8((x*5 + y*3) % 256)})
		}
	}
	opts := ToneOptions{Dither: true}
	first, err := Reduce(img, 50, 30, opts)
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		again, err := Reduce(img, 50, 30, opts)
		if err != nil {
			t.Fatal(err)
		}
		assertBitmapsIdentical(t, first, again)
	}
}

func TestReduceRejectsBadSize(t *testing.T) {
	if _, err := Reduce(aUniformGray(2, 2, 0), 0, 2, ToneOptions{}); err == nil {
		t.Errorf("expected error for zero width")
	}
	if _, err := Reduce(image.NewGray(image.Rect(0, 0, 0, 0)), 2, 2, ToneOptions{}); err == nil {
		t.Errorf("expected error for empty source")
	}
}

func TestFromPaletted(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 2, 1), color.Palette{color.White, color.Black})
	img.SetColorIndex(1, 0, 1)
	m, err := FromPaletted(img)
	if err != nil {
		t.Fatal(err)
	}
	if m.GetBit(0, 0) != 0 || m.GetBit(1, 0) != 1 {
		t.Errorf("palette mapped to %d%d, expected 01", m.GetBit(0, 0), m.GetBit(1, 0))
	}

	if _, err := FromPaletted(image.NewPaletted(image.Rect(0, 0, 1, 1), color.Palette{color.White})); err == nil {
		t.Errorf("expected error for single colour palette")
	}
}

func TestParseResampler(t *testing.T) {
	for _, r := range []Resampler{BiLinear, CatmullRom, Lanczos} {
		parsed, err := ParseResampler(r.String())
		if err != nil || parsed != r {
			t.Errorf("%v parsed as %v, %v", r, parsed, err)
		}
	}
	if _, err := ParseResampler("nearest"); err == nil {
		t.Errorf("expected error")
	}
}
