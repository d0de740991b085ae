package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/codec"
	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/connectors"
	"github.com/dmitrijs2005/wotcsync/internal/health"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
	"github.com/dmitrijs2005/wotcsync/internal/submission"
	"github.com/gin-gonic/gin"
)

const (
	maxWebhookBody = 1 << 20

	defaultPresignTTL = 15 * time.Minute
	maxPresignTTL     = 24 * time.Hour
)

func (s *Server) handleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		s.writeError(c, fmt.Errorf("webhook body: %v: %w", err, common.ErrValidation))
		return
	}

	out, err := s.services.Webhooks.Handle(c.Request.Context(), c.Param("provider"), c.Param("connection"), payload)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if !out.Handled {
		c.JSON(http.StatusAccepted, out)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleTriggerSync(c *gin.Context) {
	res, err := s.services.Sync.ManualTrigger(c.Request.Context(), c.Param("id"), connectors.JobType(c.Param("jobType")))
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.logger.Info(c.Request.Context(), "manual sync", "operator", c.GetString(operatorKey),
		"connection", c.Param("id"), "job", c.Param("jobType"), "success", res.Success)
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleConnectionHealth(c *gin.Context) {
	h, err := s.services.Health.ConnectionHealth(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) handleDashboard(c *gin.Context) {
	var opts health.DashboardOptions
	var err error

	if v := c.Query("days"); v != "" {
		if opts.Days, err = strconv.Atoi(v); err != nil || opts.Days < 0 {
			s.writeError(c, fmt.Errorf("days must be a non-negative integer: %w", common.ErrValidation))
			return
		}
	}
	if v := c.Query("errors"); v != "" {
		if opts.RecentErrors, err = strconv.Atoi(v); err != nil || opts.RecentErrors < 0 {
			s.writeError(c, fmt.Errorf("errors must be a non-negative integer: %w", common.ErrValidation))
			return
		}
	}

	d, err := s.services.Health.Dashboard(c.Request.Context(), opts)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

type submitRequest struct {
	Records []codec.SubmissionRecord `json:"records"`
}

// handleSubmit encodes the posted records, or the pending certified
// screenings when the body is empty.
func (s *Server) handleSubmit(c *gin.Context) {
	ctx := c.Request.Context()
	jurisdiction := c.Param("jurisdiction")

	var req submitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(c, fmt.Errorf("submit body: %v: %w", err, common.ErrValidation))
			return
		}
	}

	var out *submission.Outcome
	var err error
	if len(req.Records) == 0 {
		out, err = s.services.Submissions.SubmitPending(ctx, jurisdiction)
	} else {
		out, err = s.services.Submissions.Submit(ctx, jurisdiction, req.Records)
	}
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "outcome": out})
		return
	}

	s.logger.Info(ctx, "submission requested", "operator", c.GetString(operatorKey), "jurisdiction", jurisdiction)
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleTestPortal(c *gin.Context) {
	res, err := s.services.Submissions.TestPortal(c.Request.Context(), c.Param("jurisdiction"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !res.Success {
		c.JSON(http.StatusBadGateway, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleDeterminations(c *gin.Context) {
	files, err := s.services.Submissions.FetchDeterminations(c.Request.Context(), c.Param("jurisdiction"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files, "count": len(files)})
}

// handleRotateCredentials replaces the stored portal secrets. The body is
// never logged.
func (s *Server) handleRotateCredentials(c *gin.Context) {
	var sec submission.Secrets
	if err := c.ShouldBindJSON(&sec); err != nil {
		s.writeError(c, fmt.Errorf("credentials body: %v: %w", err, common.ErrValidation))
		return
	}

	if err := s.services.Submissions.RotateCredentials(c.Request.Context(), c.Param("jurisdiction"), sec); err != nil {
		s.writeError(c, err)
		return
	}

	s.logger.Info(c.Request.Context(), "portal credentials rotated", "operator", c.GetString(operatorKey),
		"jurisdiction", c.Param("jurisdiction"))
	c.Status(http.StatusNoContent)
}

type statusRequest struct {
	Status models.PortalStatus `json:"status"`
}

func (s *Server) handleSetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("status body: %v: %w", err, common.ErrValidation))
		return
	}

	if err := s.services.Submissions.SetStatus(c.Request.Context(), c.Param("jurisdiction"), req.Status); err != nil {
		s.writeError(c, err)
		return
	}

	s.logger.Info(c.Request.Context(), "portal status set", "operator", c.GetString(operatorKey),
		"jurisdiction", c.Param("jurisdiction"), "status", req.Status)
	c.JSON(http.StatusOK, gin.H{"jurisdiction": c.Param("jurisdiction"), "status": req.Status})
}

// handlePresignArchive returns a download link for an archived file. The
// optional ttl query is a Go duration capped at maxPresignTTL.
func (s *Server) handlePresignArchive(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		s.writeError(c, fmt.Errorf("archive key is required: %w", common.ErrValidation))
		return
	}

	ttl := defaultPresignTTL
	if v := c.Query("ttl"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 || d > maxPresignTTL {
			s.writeError(c, fmt.Errorf("ttl must be a positive duration up to %s: %w", maxPresignTTL, common.ErrValidation))
			return
		}
		ttl = d
	}

	url, err := s.services.Submissions.PresignArchive(c.Request.Context(), key, ttl)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if url == "" {
		s.writeError(c, fmt.Errorf("archive storage is not configured: %w", common.ErrConfiguration))
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expires_in": ttl.String()})
}
