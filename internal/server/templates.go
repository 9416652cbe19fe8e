package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tomgalvin.uk/zplconv/internal/bitmap"
	"tomgalvin.uk/zplconv/internal/template"
)

type renderRequest struct {
	Params  map[string]string `json:"params"`
	Options json.RawMessage   `json:"options"`
}

func templateUuid(c *gin.Context) (uuid.UUID, bool) {
	u, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		fail(c, http.StatusNotFound, fmt.Errorf("No template %q", c.Param("uuid")))
		return uuid.Nil, false
	}
	return u, true
}

func (s *Server) listTemplates(c *gin.Context) {
	templates, err := s.TemplateRepository.List()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]*templateJson, len(templates))
	for i := range templates {
		out[i] = mapTemplateToJson(&templates[i])
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getTemplate(c *gin.Context) {
	u, ok := templateUuid(c)
	if !ok {
		return
	}
	t, err := s.TemplateRepository.Get(u)
	if err != nil {
		fail(c, http.StatusInternalServerError, fmt.Errorf("Couldn't fetch template:\n%w", err))
		return
	}
	if t == nil {
		fail(c, http.StatusNotFound, fmt.Errorf("No template %s", u))
		return
	}
	c.JSON(http.StatusOK, mapTemplateToJson(t))
}

func (s *Server) createTemplate(c *gin.Context) {
	var j templateJson
	if err := c.ShouldBindJSON(&j); err != nil {
		failBinding(c, err)
		return
	}
	r := s.TemplateRepository
	t, err := s.mapTemplateFromJson(&j)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	if err := r.Transact(func(tx *sql.Tx) error { return r.Create(tx, t) }); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, mapTemplateToJson(t))
}

func (s *Server) updateTemplate(c *gin.Context) {
	u, ok := templateUuid(c)
	if !ok {
		return
	}
	var j templateJson
	if err := c.ShouldBindJSON(&j); err != nil {
		failBinding(c, err)
		return
	}
	r := s.TemplateRepository
	t, err := s.mapTemplateFromJson(&j)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	if err := r.Transact(func(tx *sql.Tx) error { return r.Update(tx, u, t) }); err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, mapTemplateToJson(t))
}

// renderTemplate fills in a template and converts it at the requested DPI.
// The label is already the template's size, so width and height options are
// ignored.
func (s *Server) renderTemplate(c *gin.Context) {
	u, ok := templateUuid(c)
	if !ok {
		return
	}
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		failBinding(c, err)
		return
	}
	opts, err := s.options(req.Options)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	opts.Width, opts.Height = 0, 0
	if err := opts.Validate(); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	t, err := s.TemplateRepository.Get(u)
	if err != nil {
		fail(c, http.StatusInternalServerError, fmt.Errorf("Couldn't fetch template:\n%w", err))
		return
	}
	if t == nil {
		fail(c, http.StatusNotFound, fmt.Errorf("No template %s", u))
		return
	}
	page, err := template.Render(t, req.Params, float64(opts.DPI))
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	s.respondPages(c, []bitmap.RasterImage{page}, opts)
}

func (s *Server) listFonts(c *gin.Context) {
	fonts, err := s.TemplateRepository.ListFonts()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]fontJson, len(fonts))
	for i, f := range fonts {
		out[i] = fontJson{Uuid: f.Uuid, Name: f.Name, Builtin: f.BuiltinName != ""}
	}
	c.JSON(http.StatusOK, out)
}

// createFont stores an uploaded TrueType or OpenType file.
func (s *Server) createFont(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		fail(c, statusFor(err), fmt.Errorf("No font uploaded: %w", err))
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
	if err := template.CheckFont(data); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = header.Filename
	}
	font := template.Font{Name: name, FontData: data}
	if err := s.TemplateRepository.CreateFont(&font); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, fontJson{Uuid: font.Uuid, Name: font.Name})
}
