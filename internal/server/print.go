package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tomgalvin.uk/zplconv/internal/printer"
)

type printRequest struct {
	ZplContent string `json:"zpl_content" binding:"required"`
}

func (s *Server) print(c *gin.Context) {
	if s.Printer == nil {
		fail(c, http.StatusServiceUnavailable, printer.ErrNoPrinter)
		return
	}
	var req printRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}

	// one job at a time; connections are not shared
	s.printLock.Lock()
	defer s.printLock.Unlock()
	if err := printer.Send(s.Printer, []byte(req.ZplContent)); err != nil {
		s.logger().Error("Couldn't print", "error", err)
		fail(c, http.StatusBadGateway, errors.New("Printer unavailable: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "bytes": len(req.ZplContent)})
}
