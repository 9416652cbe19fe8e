package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"tomgalvin.uk/zplconv/internal/bitmap"
)

// Default HTML page size in inches, a 4x6 shipping label.
const (
	DefaultHTMLWidth  = 4.0
	DefaultHTMLHeight = 6.0
)

// HTML prints a page of HTML to PDF with wkhtmltopdf and rasterizes the
// result. Width and Height are the page size in inches.
type HTML struct {
	Command string
	Width   float64
	Height  float64
	// Scale multiplies the page size given to wkhtmltopdf. 0 means 1.
	Scale float64
	PDF   *PDF
}

func (h *HTML) Render(ctx context.Context, data []byte, dpi float64) ([]bitmap.RasterImage, error) {
	if h.Width <= 0 || h.Height <= 0 || h.Scale < 0 {
		return nil, fmt.Errorf("HTML page size %vx%v at scale %v must be positive", h.Width, h.Height, h.Scale)
	}
	command := h.Command
	if command == "" {
		command = "wkhtmltopdf"
	}

	cmd := exec.CommandContext(ctx, command, h.args()...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("Couldn't run %s: %s:\n%w", command, bytes.TrimSpace(stderr.Bytes()), err)
	}

	pdf := h.PDF
	if pdf == nil {
		pdf = &PDF{}
	}
	return pdf.Render(ctx, stdout.Bytes(), dpi)
}

func (h *HTML) args() []string {
	return []string{
		"--quiet",
		"--page-width", fmt.Sprintf("%.2fmm", h.Width*h.scale()*25.4),
		"--page-height", fmt.Sprintf("%.2fmm", h.Height*h.scale()*25.4),
		"--margin-top", "0",
		"--margin-right", "0",
		"--margin-bottom", "0",
		"--margin-left", "0",
		"--disable-smart-shrinking",
		"--zoom", "1.0",
		"-", "-",
	}
}

func (h *HTML) scale() float64 {
	if h.Scale == 0 {
		return 1
	}
	return h.Scale
}
