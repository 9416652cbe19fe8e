package template

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

type Measure struct {
	X, Y          int
	Width, Height int
	OutOfBounds   bool
}

func wrapText(text string, maxWidth int, face font.Face) []string {
	var lines []string
	words := strings.Fields(text)
	if len(words) == 0 {
		return lines
	}

	var line string
	for _, word := range words {
		testLine := line
		if len(line) > 0 {
			testLine += " "
		}
		testLine += word

		width := font.MeasureString(face, testLine).Ceil()
		if width > maxWidth && len(line) > 0 && maxWidth > 0 {
			lines = append(lines, line)
			line = word
		} else {
			line = testLine
		}
	}

	if len(line) > 0 {
		lines = append(lines, line)
	}
	return lines
}

// measureAndDrawChildText lays out text in its box and draws it onto i unless
// i is nil. The text is out of bounds when its lines overflow the box height.
func measureAndDrawChildText(text *Text, i *image.RGBA, dpi float64) Measure {
	m := Measure{X: dots(text.X, dpi), Y: dots(text.Y, dpi)}
	boxWidth, boxHeight := dots(text.Width, dpi), dots(text.Height, dpi)

	lines := wrapText(text.FilledText, boxWidth, text.FontFace)
	lineHeight := text.FontFace.Metrics().Height
	for _, line := range lines {
		m.Width = max(m.Width, font.MeasureString(text.FontFace, line).Ceil())
		m.Height += lineHeight.Ceil()
	}
	if m.Height > boxHeight && boxHeight > 0 {
		m.OutOfBounds = true
		return m
	}

	if i != nil {
		d := &font.Drawer{
			Dst:  i,
			Src:  image.NewUniform(color.Black),
			Face: text.FontFace,
		}
		baseline := fixed.I(m.Y) + text.FontFace.Metrics().Ascent
		for _, line := range lines {
			d.Dot = fixed.Point26_6{X: fixed.I(m.X), Y: baseline}
			d.DrawString(line)
			baseline += lineHeight
		}
	}
	return m
}

func measureAndDrawChildImage(img *Image, i *image.RGBA, dpi float64) Measure {
	m := Measure{
		X:      dots(img.X, dpi),
		Y:      dots(img.Y, dpi),
		Width:  dots(img.Width, dpi),
		Height: dots(img.Height, dpi),
	}
	if i != nil {
		bounds := image.Rect(m.X, m.Y, m.X+m.Width, m.Y+m.Height)
		draw.CatmullRom.Scale(i, bounds, img.LoadedImage, img.LoadedImage.Bounds(), draw.Over, nil)
	}
	return m
}

// checkBounds measures every element of t and fails if any falls outside a
// width x height canvas.
func checkBounds(t *Template, width, height int, dpi float64) error {
	inside := func(m Measure) bool {
		return m.X >= 0 && m.Y >= 0 && m.X+m.Width <= width && m.Y+m.Height <= height
	}
	for n := range t.Images {
		if m := measureAndDrawChildImage(&t.Images[n], nil, dpi); !inside(m) {
			return fmt.Errorf("%w: image %v at %v,%v size %vx%v on a %vx%v label",
				ErrOutOfBounds, n, m.X, m.Y, m.Width, m.Height, width, height)
		}
	}
	for n := range t.Texts {
		m := measureAndDrawChildText(&t.Texts[n], nil, dpi)
		if m.OutOfBounds {
			return fmt.Errorf("%w: text %v overflows its box", ErrOutOfBounds, n)
		}
		if !inside(m) {
			return fmt.Errorf("%w: text %v at %v,%v size %vx%v on a %vx%v label",
				ErrOutOfBounds, n, m.X, m.Y, m.Width, m.Height, width, height)
		}
	}
	return nil
}
