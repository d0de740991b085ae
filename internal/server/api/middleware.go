package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/server/auth"
	"github.com/gin-gonic/gin"
)

const (
	webhookSecretHeader = "X-Webhook-Secret"
	operatorKey         = "operator"
)

func (s *Server) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Info(c.Request.Context(), "request",
		"method", c.Request.Method,
		"route", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", time.Since(start).String())
}

// operatorAuth requires "Authorization: Bearer <jwt>".
func (s *Server) operatorAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	operator, err := auth.GetOperatorFromToken(strings.TrimSpace(token), s.jwtSecret)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.Set(operatorKey, operator)
	c.Next()
}

func (s *Server) webhookAuth(c *gin.Context) {
	if s.webhookSecret == "" {
		c.Next()
		return
	}
	got := c.GetHeader(webhookSecretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.webhookSecret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}
	c.Next()
}
