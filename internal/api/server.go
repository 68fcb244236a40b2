// Package api exposes the loss core over HTTP: a single evaluation endpoint
// that accepts a micro-batch plus variant configuration and returns the
// reduced loss scalars.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/grpo/internal/version"
)

type Server struct {
	service *LossService
	clock   func() time.Time
}

func NewServer(service *LossService) *Server {
	if service == nil {
		service = NewLossService()
	}
	return &Server{
		service: service,
		clock:   time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/loss", s.handleComputeLoss)
	e.GET("/healthz", s.handleHealthz)
}

func (s *Server) handleComputeLoss(c *echo.Context) error {
	req, err := decodeJSON[LossRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	resp, err := s.service.Compute(c.Request().Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			return writeBadRequest(c, err.Error())
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}

	resp.ID = newLossID()
	resp.Created = s.clock().Unix()
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealthz(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.String(),
	})
}
