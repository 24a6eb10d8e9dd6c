package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/valgraph/valgraph/internal/application/orchestrator"
	"github.com/valgraph/valgraph/pkg/domain"
)

// RunSubmitRequest asks for a workflow to be started.
type RunSubmitRequest struct {
	Workflow string `json:"workflow" binding:"required"`
	Seed     string `json:"seed"`
}

// RunSubmitResponse acknowledges a started run.
type RunSubmitResponse struct {
	RunID       string    `json:"run_id"`
	Workflow    string    `json:"workflow"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ErrorResponse is the error envelope of every failed request.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and the message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleListWorkflows(c *gin.Context) {
	names := s.loader.List()
	c.JSON(http.StatusOK, gin.H{
		"workflows": names,
		"total":     len(names),
	})
}

func (s *Server) handleSubmitRun(c *gin.Context) {
	var req RunSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	runID, err := s.manager.Submit(c.Request.Context(), req.Workflow, req.Seed)
	if err != nil {
		s.logger.Error("run submission failed",
			zap.String("workflow", req.Workflow),
			zap.Error(err))

		status := http.StatusInternalServerError
		code := "SUBMISSION_FAILED"
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			status = http.StatusUnprocessableEntity
			code = "CONFIG_ERROR"
		}
		c.JSON(status, ErrorResponse{
			Error: ErrorDetail{Code: code, Message: err.Error()},
		})
		return
	}

	c.JSON(http.StatusCreated, RunSubmitResponse{
		RunID:       runID,
		Workflow:    req.Workflow,
		SubmittedAt: time.Now().UTC(),
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	ids, err := s.store.ListRecords(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: "STORE_FAILURE", Message: err.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"runs":  ids,
		"total": len(ids),
	})
}

func (s *Server) handleGetRecord(c *gin.Context) {
	state, err := s.manager.Record(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{Code: "NOT_FOUND", Message: "run record not found"},
		})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleGetStatus(c *gin.Context) {
	status, err := s.manager.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{Code: "NOT_FOUND", Message: "run not found"},
		})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleCancelRun(c *gin.Context) {
	runID := c.Param("id")
	if err := s.manager.Cancel(runID); err != nil {
		if errors.Is(err, orchestrator.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: ErrorDetail{Code: "NOT_FOUND", Message: "no run in flight with that id"},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: "CANCEL_FAILED", Message: err.Error()},
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": runID, "status": "cancelling"})
}
