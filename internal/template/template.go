// Package template renders parameterised label layouts of text and images and
// stores them in sqlite.
//
// Positions, box sizes and font sizes are in points (1/72 inch) so a layout
// renders the same at any printer resolution. The label itself is sized in
// inches.
package template

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/image/font"

	"tomgalvin.uk/zplconv/internal/bitmap"
)

var (
	ErrMissingParameter = errors.New("missing template parameter")
	ErrOutOfBounds      = errors.New("template element out of bounds")
	ErrInvalidTemplate  = errors.New("invalid template")
)

type Template struct {
	Id        int
	Uuid      uuid.UUID
	Name      string
	CreatedAt time.Time
	// Landscape layouts are drawn with Width and Height swapped and turned
	// onto the label.
	Landscape     bool
	Width, Height float64
	Parameters    []Parameter
	Images        []Image
	Texts         []Text
}

type Parameter struct {
	Id        int
	Name      string
	MaxLength int
}

type Image struct {
	Id            int
	Image         []byte
	LoadedImage   image.Image
	X, Y          float64
	Width, Height float64
}

type Text struct {
	Id            int
	Text          string
	FilledText    string
	X, Y          float64
	Width, Height float64
	Font          Font
	FontSize      float64
	FontFace      font.Face
}

type Font struct {
	Id          int
	Uuid        uuid.UUID
	Name        string
	BuiltinName string
	FontData    []byte
}

// dots converts points to printer dots at dpi.
func dots(points, dpi float64) int {
	return int(math.Round(points * dpi / 72))
}

func (t *Template) validate() error {
	if !(t.Width > 0) || !(t.Height > 0) || math.IsInf(t.Width, 0) || math.IsInf(t.Height, 0) {
		return fmt.Errorf("%w: label size %vx%v inches", ErrInvalidTemplate, t.Width, t.Height)
	}
	for i, txt := range t.Texts {
		if !(txt.FontSize > 0) {
			return fmt.Errorf("%w: text %v has font size %v", ErrInvalidTemplate, i, txt.FontSize)
		}
	}
	for i, img := range t.Images {
		if !(img.Width > 0) || !(img.Height > 0) {
			return fmt.Errorf("%w: image %v is %vx%v", ErrInvalidTemplate, i, img.Width, img.Height)
		}
	}
	return nil
}

// Render fills in params and draws t at dpi. The result is exactly the label
// size in dots and carries dpi, so it converts without further scaling.
func Render(t *Template, params map[string]string, dpi float64) (bitmap.RasterImage, error) {
	if err := t.validate(); err != nil {
		return bitmap.RasterImage{}, err
	}
	if err := loadFontsForTemplate(t, dpi); err != nil {
		return bitmap.RasterImage{}, fmt.Errorf("Couldn't load fonts for template:\n%w", err)
	}
	if err := loadImagesForTemplate(t); err != nil {
		return bitmap.RasterImage{}, fmt.Errorf("Couldn't load images for template:\n%w", err)
	}
	if err := insertParamsIntoTemplateChildText(t, params); err != nil {
		return bitmap.RasterImage{}, fmt.Errorf("Couldn't insert params into template:\n%w", err)
	}

	width, height := int(math.Round(t.Width*dpi)), int(math.Round(t.Height*dpi))
	if t.Landscape {
		width, height = height, width
	}
	if err := checkBounds(t, width, height, dpi); err != nil {
		return bitmap.RasterImage{}, fmt.Errorf("Template children failed boundary check:\n%w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	for i := range t.Images {
		measureAndDrawChildImage(&t.Images[i], img, dpi)
	}
	for i := range t.Texts {
		measureAndDrawChildText(&t.Texts[i], img, dpi)
	}

	var out image.Image = img
	if t.Landscape {
		out = rotate90(img)
	}
	return bitmap.RasterImage{Image: out, DPI: dpi}, nil
}

func rotate90(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	width, height := bounds.Dy(), bounds.Dx()
	newImg := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			newImg.Set(bounds.Max.Y-1-y, x, img.At(x, y))
		}
	}
	return newImg
}

func insertParamsIntoTemplateChildText(t *Template, params map[string]string) error {
	for _, tp := range t.Parameters {
		v, exists := params[tp.Name]
		if !exists {
			return fmt.Errorf("%w: no value for %v", ErrMissingParameter, tp.Name)
		}
		if tp.MaxLength > 0 && utf8.RuneCountInString(v) > tp.MaxLength {
			return fmt.Errorf("%w: %v is longer than %v characters", ErrInvalidTemplate, tp.Name, tp.MaxLength)
		}
	}

	for i := range t.Texts {
		t.Texts[i].FilledText = insertParamsIntoString(t.Texts[i].Text, t, params)
	}
	return nil
}

func insertParamsIntoString(s string, t *Template, params map[string]string) string {
	for _, tp := range t.Parameters {
		s = strings.ReplaceAll(s, "{"+tp.Name+"}", params[tp.Name])
	}
	return s
}
