package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"tomgalvin.uk/zplconv/internal/bitmap"
)

func init() {
	// keep pdfcpu from writing a config directory under the user's home
	model.ConfigPath = "disable"
}

// PDF rasterizes every page of a PDF with pdftoppm.
type PDF struct {
	// Command is the pdftoppm binary.
	Command string
	// TempDir holds the rendered pages while they are decoded. Empty means
	// os.TempDir.
	TempDir string
}

// PageCount reads the number of pages in a PDF without rendering it.
func PageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("%w: couldn't read PDF: %v", ErrUnreadable, err)
	}
	return n, nil
}

func (p *PDF) Render(ctx context.Context, data []byte, dpi float64) ([]bitmap.RasterImage, error) {
	pages, err := PageCount(data)
	if err != nil {
		return nil, err
	}
	if pages == 0 {
		return nil, ErrNoPages
	}

	dir, err := os.MkdirTemp(p.TempDir, "pdf-*")
	if err != nil {
		return nil, fmt.Errorf("Couldn't create scratch directory:\n%w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("Couldn't write PDF:\n%w", err)
	}

	command := p.Command
	if command == "" {
		command = "pdftoppm"
	}
	prefix := filepath.Join(dir, "page")
	resolution := strconv.FormatFloat(dpi, 'f', -1, 64)
	cmd := exec.CommandContext(ctx, command, "-png", "-r", resolution, input, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("Couldn't run %s: %s:\n%w", command, bytes.TrimSpace(stderr.Bytes()), err)
	}

	images := make([]bitmap.RasterImage, pages)
	for i := range images {
		img, err := readPage(pageFile(prefix, i+1, pages))
		if err != nil {
			return nil, fmt.Errorf("Couldn't read page %d:\n%w", i+1, err)
		}
		images[i] = bitmap.RasterImage{Image: img, DPI: dpi}
	}
	slog.Debug("Rendered PDF", "pages", pages, "dpi", dpi)
	return images, nil
}

// pageFile names the image pdftoppm writes for page; page numbers are zero
// padded to the width of the last page number.
func pageFile(prefix string, page, pages int) string {
	return fmt.Sprintf("%s-%0*d.png", prefix, len(strconv.Itoa(pages)), page)
}

func readPage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
