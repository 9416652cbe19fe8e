package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tomgalvin.uk/zplconv/internal/bitmap"
	"tomgalvin.uk/zplconv/internal/convert"
	"tomgalvin.uk/zplconv/internal/render"
	"tomgalvin.uk/zplconv/internal/zpl"
)

type conversionResponse struct {
	Status     string    `json:"status"`
	ZplContent string    `json:"zpl_content"`
	Pages      []string  `json:"pages,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type base64Request struct {
	FileContent string          `json:"file_content" binding:"required"`
	FileType    string          `json:"file_type" binding:"required"`
	Options     json.RawMessage `json:"options"`
}

type htmlRequest struct {
	HtmlContent string          `json:"html_content" binding:"required"`
	Options     json.RawMessage `json:"options"`
}

// htmlOptions are the options only the HTML endpoint reads, next to the
// conversion options in the same object.
type htmlOptions struct {
	// Scale multiplies the HTML page size; the page is then fitted back
	// onto the label.
	Scale float64 `json:"scale"`
}

// options overlays raw on the server's defaults.
func (s *Server) options(raw []byte) (convert.Options, error) {
	opts := s.Defaults
	if len(raw) == 0 || string(raw) == "null" {
		return opts, nil
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return opts, fmt.Errorf("%w: Invalid options format: %w", convert.ErrInvalidOption, err)
	}
	return opts, nil
}

func (s *Server) convertFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		status := http.StatusBadRequest
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		fail(c, status, fmt.Errorf("No file uploaded: %w", err))
		return
	}
	if limit := s.Config.MaxUploadSize; limit > 0 && header.Size > limit {
		fail(c, http.StatusRequestEntityTooLarge, errTooLarge)
		return
	}
	s.logger().Info("Received file for conversion", "filename", header.Filename)

	opts, err := s.options([]byte(c.PostForm("options")))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	rasterizer, err := s.Tools.ForType(render.TypeOf(header.Filename))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	f, err := header.Open()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	s.respond(c, rasterizer, data, opts)
}

func (s *Server) convertBase64(c *gin.Context) {
	var req base64Request
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}
	s.logger().Info("Received base64 content for conversion", "fileType", req.FileType)

	rasterizer, err := s.Tools.ForType(req.FileType)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.FileContent)
	if err != nil {
		fail(c, http.StatusBadRequest, errors.New("Invalid base64 content"))
		return
	}
	opts, err := s.options(req.Options)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	s.respond(c, rasterizer, data, opts)
}

// convertHTML renders the HTML onto a page the size of the label, 4x6 inches
// unless the options give a width and height, multiplied by the scale option.
func (s *Server) convertHTML(c *gin.Context) {
	var req htmlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}
	opts, err := s.options(req.Options)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if opts.Width == 0 {
		opts.Width = render.DefaultHTMLWidth
	}
	if opts.Height == 0 {
		opts.Height = render.DefaultHTMLHeight
	}
	htmlOpts := htmlOptions{Scale: 1}
	if len(req.Options) > 0 && string(req.Options) != "null" {
		if err := json.Unmarshal(req.Options, &htmlOpts); err != nil {
			fail(c, http.StatusBadRequest, fmt.Errorf("%w: Invalid options format: %w", convert.ErrInvalidOption, err))
			return
		}
	}
	if !(htmlOpts.Scale > 0) {
		fail(c, http.StatusBadRequest, &convert.OptionError{Field: "scale", Reason: fmt.Sprintf("%v must be positive", htmlOpts.Scale)})
		return
	}
	html := s.Tools.HTML(opts.Width, opts.Height)
	html.Scale = htmlOpts.Scale
	s.respond(c, html, []byte(req.HtmlContent), opts)
}

// failBinding reports a request body that couldn't be bound.
func failBinding(c *gin.Context, err error) {
	if statusFor(err) == http.StatusRequestEntityTooLarge {
		fail(c, http.StatusRequestEntityTooLarge, errTooLarge)
		return
	}
	fail(c, http.StatusBadRequest, fmt.Errorf("Invalid request: %v", err))
}

func (s *Server) respond(c *gin.Context, rasterizer render.Rasterizer, data []byte, opts convert.Options) {
	if err := opts.Validate(); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	pages, err := rasterizer.Render(c.Request.Context(), data, float64(opts.DPI))
	if err != nil {
		s.logger().Error("Conversion failed", "error", err)
		fail(c, statusFor(err), err)
		return
	}
	s.respondPages(c, pages, opts)
}

func (s *Server) respondPages(c *gin.Context, pages []bitmap.RasterImage, opts convert.Options) {
	docs, err := convert.Convert(c.Request.Context(), pages, opts)
	if err != nil {
		s.logger().Error("Conversion failed", "error", err)
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, newConversionResponse(docs, opts.SplitPages))
}

func newConversionResponse(docs []zpl.Document, split bool) conversionResponse {
	var all strings.Builder
	var pages []string
	for _, d := range docs {
		text := d.String()
		all.WriteString(text)
		if split {
			pages = append(pages, text)
		}
	}
	return conversionResponse{
		Status:     "success",
		ZplContent: all.String(),
		Pages:      pages,
		Timestamp:  time.Now(),
	}
}
