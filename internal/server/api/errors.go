package api

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrPortalUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, common.ErrConnection):
		return http.StatusBadGateway
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "route", c.FullPath(), "error", err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
