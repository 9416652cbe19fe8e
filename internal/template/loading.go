package template

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

func loadImagesForTemplate(t *Template) error {
	for i := range t.Images {
		loadedImage, err := imaging.Decode(bytes.NewReader(t.Images[i].Image), imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("Couldn't load image for template image at index %v:\n%w", i, err)
		}
		t.Images[i].LoadedImage = loadedImage
	}
	return nil
}

func loadFontsForTemplate(t *Template, dpi float64) error {
	for i := range t.Texts {
		loadedFontFace, err := loadFont(&t.Texts[i].Font, t.Texts[i].FontSize, dpi)
		if err != nil {
			return fmt.Errorf("Couldn't load font for template text at index %v:\n%w", i, err)
		}
		t.Texts[i].FontFace = loadedFontFace
	}
	return nil
}

func getFontData(f *Font) ([]byte, error) {
	if len(f.BuiltinName) > 0 {
		switch f.BuiltinName {
		case "gomono":
			return gomono.TTF, nil
		case "goregular":
			return goregular.TTF, nil
		default:
			return nil, fmt.Errorf(`Unrecognised default font "%s"`, f.BuiltinName)
		}
	}
	return f.FontData, nil
}

// loadFont sizes the face in points at the printer's resolution, so glyphs
// come out in dots.
func loadFont(f *Font, size, dpi float64) (font.Face, error) {
	fontData, err := getFontData(f)
	if err != nil {
		return nil, fmt.Errorf("Couldn't get font data:\n%w", err)
	}
	parsedFont, err := opentype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("Couldn't parse font %s (%s):\n%w", f.Name, f.Uuid.String(), err)
	}

	fontFace, err := opentype.NewFace(parsedFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("Couldn't create font face:\n%w", err)
	}
	return fontFace, nil
}

// CheckFont reports whether data is a font file Render can use.
func CheckFont(data []byte) error {
	if _, err := opentype.Parse(data); err != nil {
		return fmt.Errorf("%w: not a TrueType or OpenType font: %v", ErrInvalidTemplate, err)
	}
	return nil
}
