// Package server exposes conversion, label templates and printing over HTTP.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tomgalvin.uk/zplconv/internal/config"
	"tomgalvin.uk/zplconv/internal/convert"
	"tomgalvin.uk/zplconv/internal/geometry"
	"tomgalvin.uk/zplconv/internal/printer"
	"tomgalvin.uk/zplconv/internal/render"
	"tomgalvin.uk/zplconv/internal/template"
	"tomgalvin.uk/zplconv/internal/zpl"
)

type Server struct {
	Logger             *slog.Logger
	Config             config.ServerConfig
	Tools              render.Tools
	Defaults           convert.Options
	TemplateRepository *template.TemplateRepository
	// Printer is nil when no printer is configured.
	Printer printer.Connection

	printLock sync.Mutex
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default().With("src", "server")
	}
	return s.Logger
}

// Handler builds the gin engine serving every route.
func (s *Server) Handler() *gin.Engine {
	if s.Config.GinMode != "" {
		gin.SetMode(s.Config.GinMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests(), s.corsMiddleware(), s.limitBody())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/convert/file", s.convertFile)
	router.POST("/convert/base64", s.convertBase64)
	router.POST("/convert/html", s.convertHTML)

	router.GET("/templates", s.listTemplates)
	router.POST("/templates", s.createTemplate)
	router.GET("/templates/:uuid", s.getTemplate)
	router.PUT("/templates/:uuid", s.updateTemplate)
	router.POST("/templates/:uuid/render", s.renderTemplate)
	router.GET("/fonts", s.listFonts)
	router.POST("/fonts", s.createFont)

	router.POST("/print", s.print)
	return router
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(s.Config.CorsOrigins) == 0 || slices.Contains(s.Config.CorsOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.Config.CorsOrigins
	}
	return cors.New(cfg)
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger().Info("Handled request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// limitBody rejects requests whose body is larger than the configured upload
// size, up front when the length is declared and while reading otherwise.
func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := s.Config.MaxUploadSize
		if limit <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			fail(c, http.StatusRequestEntityTooLarge, errTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

var errTooLarge = errors.New("File too large")

func fail(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"detail": err.Error()})
}

// statusFor maps err onto an HTTP status: the caller's mistakes are 400s,
// anything else is a conversion failure.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, convert.ErrInvalidOption),
		errors.Is(err, convert.ErrNoPages),
		errors.Is(err, render.ErrUnsupportedFileType),
		errors.Is(err, render.ErrNoPages),
		errors.Is(err, render.ErrUnreadable),
		errors.Is(err, geometry.ErrInvalidGeometry),
		errors.Is(err, zpl.ErrUnsupportedFormat),
		errors.Is(err, template.ErrMissingParameter),
		errors.Is(err, template.ErrInvalidTemplate),
		errors.Is(err, template.ErrOutOfBounds):
		return http.StatusBadRequest
	case errors.Is(err, template.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
