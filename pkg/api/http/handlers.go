package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cloudmesh/orchestrator/internal/application/engine"
	"github.com/cloudmesh/orchestrator/internal/application/subscription"
	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requesterHeader carries the caller's system identity
const requesterHeader = "X-Requester-System"

// originHeader attributes errors and audit logs to the caller
const originHeader = "X-Origin"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Origin  string `json:"origin,omitempty"`
}

// LockCandidateRequest is a single requested lease in an acquire batch.
// Expiring leases without an explicit TTL get the configured default.
type LockCandidateRequest struct {
	ServiceInstanceID string `json:"service_instance_id" binding:"required"`
	JobID             string `json:"job_id,omitempty"`
	Temporary         bool   `json:"temporary"`
	Expiring          bool   `json:"expiring"`
	TTLSeconds        int    `json:"ttl_seconds,omitempty"`
}

// LockAcquireRequest represents a lock acquisition request
type LockAcquireRequest struct {
	Locks []LockCandidateRequest `json:"locks" binding:"required"`
}

// LockReleaseRequest represents a lock release request
type LockReleaseRequest struct {
	ServiceInstanceIDs []string `json:"service_instance_ids" binding:"required"`
}

// TriggerRequest represents a bulk push-trigger request
type TriggerRequest struct {
	TargetSystems   []string `json:"target_systems,omitempty"`
	SubscriptionIDs []string `json:"subscription_ids,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := s.health.GetStatus()

	code := http.StatusOK
	state := "healthy"
	if !status.Healthy {
		code = http.StatusServiceUnavailable
		state = "unhealthy"
	}

	c.JSON(code, gin.H{
		"status":    state,
		"timestamp": status.Timestamp,
		"checks": gin.H{
			"workers_total": status.TotalWorkers,
			"workers_idle":  status.IdleWorkers,
			"workers_busy":  status.BusyWorkers,
			"queue_depth":   status.QueueDepth,
		},
	})
}

// handlePull handles synchronous pull orchestration
func (s *Server) handlePull(c *gin.Context) {
	var req engine.PullRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	result, err := s.engine.Pull(c.Request.Context(), origin(c), requester(c), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleSubscribe handles push subscription registration
func (s *Server) handleSubscribe(c *gin.Context) {
	var req engine.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	triggerNow := c.Query("trigger_now") == "true"
	result, err := s.engine.PushSubscribe(c.Request.Context(), origin(c), requester(c), &req, triggerNow)
	if err != nil {
		s.writeError(c, err)
		return
	}

	code := http.StatusOK
	if result.Created {
		code = http.StatusCreated
	}
	c.JSON(code, result)
}

// handleUnsubscribe handles push subscription removal
func (s *Server) handleUnsubscribe(c *gin.Context) {
	removed, err := s.engine.PushUnsubscribe(c.Request.Context(), origin(c), requester(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription_id": c.Param("id"),
		"removed":         removed,
	})
}

// handleQuerySubscriptions handles subscription queries
func (s *Server) handleQuerySubscriptions(c *gin.Context) {
	filter := domain.SubscriptionFilter{
		IDs:                splitParam(c.Query("ids")),
		OwnerSystems:       splitParam(c.Query("owner")),
		TargetSystems:      splitParam(c.Query("target")),
		ServiceDefinitions: splitParam(c.Query("service_definition")),
	}

	result, err := s.engine.QueryPushSubscriptions(c.Request.Context(), origin(c), filter, pageRequest(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleTrigger handles bulk push triggering
func (s *Server) handleTrigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	jobs, err := s.engine.PushTrigger(c.Request.Context(), origin(c), requester(c), subscription.TriggerSelector{
		TargetSystems:   req.TargetSystems,
		SubscriptionIDs: req.SubscriptionIDs,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// handleAcquireLocks handles batch lock acquisition
func (s *Server) handleAcquireLocks(c *gin.Context) {
	var req LockAcquireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	owner := requester(c)
	candidates := make([]domain.LockCandidate, 0, len(req.Locks))
	for _, l := range req.Locks {
		candidate := domain.LockCandidate{
			ServiceInstanceID: l.ServiceInstanceID,
			Owner:             owner,
			JobID:             l.JobID,
			Temporary:         l.Temporary,
		}
		if l.Expiring {
			ttl := s.lockTTL
			if l.TTLSeconds > 0 {
				ttl = time.Duration(l.TTLSeconds) * time.Second
			}
			expiresAt := time.Now().Add(ttl)
			candidate.ExpiresAt = &expiresAt
		}
		candidates = append(candidates, candidate)
	}

	granted, err := s.locks.Acquire(c.Request.Context(), origin(c), candidates)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"locks": granted,
		"count": len(granted),
	})
}

// handleQueryLocks handles lock queries
func (s *Server) handleQueryLocks(c *gin.Context) {
	filter := domain.LockFilter{
		IDs:                splitParam(c.Query("ids")),
		ServiceInstanceIDs: splitParam(c.Query("service_instance")),
		Owner:              c.Query("owner"),
	}

	result, err := s.locks.Query(c.Request.Context(), origin(c), filter, pageRequest(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleReleaseLocks handles batch lock release
func (s *Server) handleReleaseLocks(c *gin.Context) {
	var req LockReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	if err := s.locks.Release(c.Request.Context(), origin(c), requester(c), req.ServiceInstanceIDs); err != nil {
		s.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// handleQueryJobs handles job history queries
func (s *Server) handleQueryJobs(c *gin.Context) {
	filter := domain.JobFilter{
		IDs:               splitParam(c.Query("ids")),
		RequesterSystem:   c.Query("requester"),
		TargetSystem:      c.Query("target"),
		ServiceDefinition: c.Query("service_definition"),
		SubscriptionIDs:   splitParam(c.Query("subscription_ids")),
	}
	for _, t := range splitParam(c.Query("type")) {
		filter.Types = append(filter.Types, domain.JobType(strings.ToUpper(t)))
	}
	for _, st := range splitParam(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.JobStatus(strings.ToUpper(st)))
	}

	result, err := s.history.Query(c.Request.Context(), origin(c), filter, pageRequest(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleGetJob handles getting a single job record
func (s *Server) handleGetJob(c *gin.Context) {
	jobID := c.Param("id")

	result, err := s.history.Query(c.Request.Context(), origin(c),
		domain.JobFilter{IDs: []string{jobID}}, domain.PageRequest{Size: 1})
	if err != nil {
		s.writeError(c, err)
		return
	}
	if len(result.Items) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Job not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, result.Items[0])
}

// badRequest reports a malformed request body
func (s *Server) badRequest(c *gin.Context, err error) {
	s.logger.Error("invalid request", zap.Error(err))
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
			Origin:  origin(c),
		},
	})
}

// writeError maps a domain error onto the HTTP response
func (s *Server) writeError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	errCode := "INTERNAL_ERROR"

	switch {
	case errors.Is(err, domain.ErrValidation):
		code = http.StatusBadRequest
		errCode = "VALIDATION_ERROR"
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
		errCode = "CONFLICT"
	case errors.Is(err, domain.ErrForbidden):
		code = http.StatusForbidden
		errCode = "FORBIDDEN"
	case errors.Is(err, domain.ErrStorage):
		code = http.StatusInternalServerError
		errCode = "STORAGE_ERROR"
	}

	message := err.Error()
	var derr *domain.Error
	if errors.As(err, &derr) {
		message = derr.Message
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}

	c.JSON(code, ErrorResponse{
		Error: ErrorDetail{
			Code:    errCode,
			Message: message,
			Origin:  domain.OriginOf(err),
		},
	})
}

// requester extracts the caller's system identity
func requester(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(requesterHeader))
}

// origin extracts the caller-supplied origin, defaulting to the client IP
func origin(c *gin.Context) string {
	if o := strings.TrimSpace(c.GetHeader(originHeader)); o != "" {
		return o
	}
	return c.ClientIP()
}

// pageRequest parses pagination query parameters
func pageRequest(c *gin.Context) domain.PageRequest {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "0"))
	return domain.PageRequest{Page: page, Size: size}
}

// splitParam splits a comma-separated query parameter
func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
