package server

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tomgalvin.uk/zplconv/internal/template"
)

type positionJson struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type templateParameterJson struct {
	Name      string `json:"name"`
	MaxLength *int   `json:"max_length,omitempty"`
}

type templateTextJson struct {
	Text     string       `json:"text"`
	Position positionJson `json:"position"`
	Width    *float64     `json:"width,omitempty"`
	Height   *float64     `json:"height,omitempty"`
	FontSize float64      `json:"font_size"`
	FontUuid string       `json:"font_uuid"`
}

type templateImageJson struct {
	Image    string       `json:"image"`
	Position positionJson `json:"position"`
	Width    float64      `json:"width"`
	Height   float64      `json:"height"`
}

type templateJson struct {
	Uuid       *uuid.UUID              `json:"uuid,omitempty"`
	Name       string                  `json:"name" binding:"required"`
	CreatedAt  *time.Time              `json:"created_at,omitempty"`
	Landscape  bool                    `json:"landscape"`
	Width      float64                 `json:"width"`
	Height     float64                 `json:"height"`
	Parameters []templateParameterJson `json:"parameters"`
	Texts      []templateTextJson      `json:"texts"`
	Images     []templateImageJson     `json:"images"`
}

type fontJson struct {
	Uuid    uuid.UUID `json:"uuid"`
	Name    string    `json:"name"`
	Builtin bool      `json:"builtin"`
}

func mapTemplateToJson(t *template.Template) *templateJson {
	j := templateJson{
		Uuid:      &t.Uuid,
		Name:      t.Name,
		CreatedAt: &t.CreatedAt,
		Landscape: t.Landscape,
		Width:     t.Width,
		Height:    t.Height,
	}

	j.Parameters = make([]templateParameterJson, len(t.Parameters))
	j.Texts = make([]templateTextJson, len(t.Texts))
	j.Images = make([]templateImageJson, len(t.Images))

	for i := range j.Parameters {
		mapParameterToJson(&t.Parameters[i], &j.Parameters[i])
	}
	for i := range j.Texts {
		mapTextToJson(&t.Texts[i], &j.Texts[i])
	}
	for i := range j.Images {
		mapImageToJson(&t.Images[i], &j.Images[i])
	}
	return &j
}

func (s *Server) mapTemplateFromJson(j *templateJson) (*template.Template, error) {
	t := template.Template{
		Name:      j.Name,
		CreatedAt: time.Now(),
		Landscape: j.Landscape,
		Width:     j.Width,
		Height:    j.Height,
	}

	t.Parameters = make([]template.Parameter, len(j.Parameters))
	for i := range t.Parameters {
		mapParameterFromJson(&j.Parameters[i], &t.Parameters[i])
	}
	t.Texts = make([]template.Text, len(j.Texts))
	for i := range t.Texts {
		if err := s.mapTextFromJson(&j.Texts[i], &t.Texts[i]); err != nil {
			return nil, fmt.Errorf("Text %v: %w", i, err)
		}
	}
	t.Images = make([]template.Image, len(j.Images))
	for i := range t.Images {
		if err := mapImageFromJson(&j.Images[i], &t.Images[i]); err != nil {
			return nil, fmt.Errorf("Image %v: %w", i, err)
		}
	}
	return &t, nil
}

func mapParameterToJson(src *template.Parameter, dest *templateParameterJson) {
	dest.Name = src.Name
	dest.MaxLength = &src.MaxLength
}

func mapParameterFromJson(src *templateParameterJson, dest *template.Parameter) {
	dest.Name = src.Name
	if src.MaxLength != nil {
		dest.MaxLength = *src.MaxLength
	}
}

func mapTextToJson(src *template.Text, dest *templateTextJson) {
	dest.Text = src.Text
	dest.Position.X = src.X
	dest.Position.Y = src.Y
	dest.FontSize = src.FontSize
	if src.Width > 0 {
		dest.Width = &src.Width
	}
	if src.Height > 0 {
		dest.Height = &src.Height
	}
	dest.FontUuid = src.Font.Uuid.String()
}

func (s *Server) mapTextFromJson(src *templateTextJson, dest *template.Text) error {
	dest.Text = src.Text
	dest.X = src.Position.X
	dest.Y = src.Position.Y
	dest.FontSize = src.FontSize
	if src.Width != nil {
		dest.Width = *src.Width
	}
	if src.Height != nil {
		dest.Height = *src.Height
	}

	fontUuid, err := uuid.Parse(src.FontUuid)
	if err != nil {
		return fmt.Errorf("%w: font UUID is not valid: %v", template.ErrInvalidTemplate, err)
	}
	f, err := s.TemplateRepository.GetFont(fontUuid)
	if err != nil {
		return fmt.Errorf("Couldn't load font:\n%w", err)
	}
	if f == nil {
		return fmt.Errorf("%w: font %s does not exist", template.ErrInvalidTemplate, fontUuid)
	}
	dest.Font = *f
	return nil
}

func mapImageToJson(src *template.Image, dest *templateImageJson) {
	dest.Image = base64.StdEncoding.EncodeToString(src.Image)
	dest.Position.X = src.X
	dest.Position.Y = src.Y
	dest.Width = src.Width
	dest.Height = src.Height
}

func mapImageFromJson(src *templateImageJson, dest *template.Image) error {
	data, err := base64.StdEncoding.DecodeString(src.Image)
	if err != nil {
		return fmt.Errorf("%w: image is not valid base64: %v", template.ErrInvalidTemplate, err)
	}
	dest.Image = data
	dest.X = src.Position.X
	dest.Y = src.Position.Y
	dest.Width = src.Width
	dest.Height = src.Height
	return nil
}
