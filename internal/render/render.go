// Package render turns input documents into raster pages ready for conversion.
package render

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"tomgalvin.uk/zplconv/internal/bitmap"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrNoPages             = errors.New("document has no pages")
	ErrUnreadable          = errors.New("unreadable document")
)

// A Rasterizer renders a document into one image per page. dpi is the
// resolution to render vector documents at; raster inputs ignore it.
type Rasterizer interface {
	Render(ctx context.Context, data []byte, dpi float64) ([]bitmap.RasterImage, error)
}

// Tools says where the external renderers live and where they may write
// scratch files.
type Tools struct {
	Pdftoppm    string
	Wkhtmltopdf string
	TempDir     string
}

func DefaultTools() Tools {
	return Tools{
		Pdftoppm:    "pdftoppm",
		Wkhtmltopdf: "wkhtmltopdf",
	}
}

// FileTypes lists every type ForType accepts.
var FileTypes = []string{"pdf", "png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff", "webp", "html", "htm"}

// TypeOf returns the file type of name going by its extension.
func TypeOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// ForType picks the rasterizer for fileType. HTML is rendered onto a
// DefaultHTMLWidth x DefaultHTMLHeight page; use HTML directly for other sizes.
func (t Tools) ForType(fileType string) (Rasterizer, error) {
	switch strings.ToLower(strings.TrimPrefix(fileType, ".")) {
	case "pdf":
		return t.PDF(), nil
	case "png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff", "webp":
		return Image{}, nil
	case "html", "htm":
		return t.HTML(DefaultHTMLWidth, DefaultHTMLHeight), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, fileType)
}

func (t Tools) PDF() *PDF {
	return &PDF{Command: t.Pdftoppm, TempDir: t.TempDir}
}

func (t Tools) HTML(width, height float64) *HTML {
	return &HTML{Command: t.Wkhtmltopdf, Width: width, Height: height, PDF: t.PDF()}
}
