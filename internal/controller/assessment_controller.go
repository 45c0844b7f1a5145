package controller

import (
	"encoding/json"
	"errors"

	"onboard_proctor_backend/internal/model"
	"onboard_proctor_backend/internal/service"
	"onboard_proctor_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	Service *service.ProctorService
}

func NewAssessmentController(svc *service.ProctorService) *AssessmentController {
	return &AssessmentController{Service: svc}
}

// @Summary Start a proctored assessment attempt
// @Tags assessments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.StartAssessmentRequest true "Attempt key and client environment"
// @Success 200 {object} util.Response{data=service.StartAssessmentResponse}
// @Failure 400 {object} util.Response "Unknown task, attempt in progress, or max attempts reached"
// @Router /api/assessments/start [post]
func (c *AssessmentController) StartAssessment(ctx *gin.Context) {
	var req service.StartAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	resp, err := c.Service.Start(ctx.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrConfigNotFound),
			errors.Is(err, util.ErrAttemptInProgress),
			errors.Is(err, util.ErrMaxAttemptsExceeded):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, resp)
}

type SessionEventRequest struct {
	SessionID string          `json:"sessionId" binding:"required"`
	EventType string          `json:"eventType" binding:"required"`
	Data      json.RawMessage `json:"data"`
}

// @Summary Record an advisory session event
// @Tags assessments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body SessionEventRequest true "Event kind: started, completed, terminated, heartbeat"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "Session not found"
// @Router /api/assessments/event [post]
func (c *AssessmentController) RecordEvent(ctx *gin.Context) {
	var req SessionEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	kind, err := model.ParseSessionEventType(req.EventType)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Service.RecordEvent(ctx.Request.Context(), req.SessionID, kind, req.Data); err != nil {
		switch {
		case errors.Is(err, util.ErrSessionNotFound):
			util.NotFound(ctx, err.Error())
		case errors.Is(err, util.ErrUnknownEventType):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{"success": true})
}

type ViolationRequest struct {
	SessionID string                  `json:"sessionId" binding:"required"`
	Violation service.ViolationReport `json:"violation" binding:"required"`
}

// @Summary Record an integrity violation against a session
// @Tags assessments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body ViolationRequest true "Violation report"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "Session not found"
// @Router /api/assessments/violation [post]
func (c *AssessmentController) RecordViolation(ctx *gin.Context) {
	var req ViolationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Service.RecordViolation(ctx.Request.Context(), req.SessionID, req.Violation); err != nil {
		if errors.Is(err, util.ErrSessionNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"success": true})
}

// @Summary Complete an attempt and compute its score
// @Tags assessments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CompleteRequest true "Attempt, session and time spent"
// @Success 200 {object} util.Response{data=service.CompleteResult}
// @Failure 404 {object} util.Response "Attempt or session not found"
// @Router /api/assessments/complete [post]
func (c *AssessmentController) Complete(ctx *gin.Context) {
	var req service.CompleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.Complete(ctx.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptNotFound),
			errors.Is(err, util.ErrSessionNotFound):
			util.NotFound(ctx, err.Error())
		case errors.Is(err, util.ErrConfigNotFound):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{
		"success":  true,
		"score":    result.Score,
		"passed":   result.Passed,
		"status":   result.Status,
		"feedback": result.Feedback,
	})
}

// @Summary Get the task configuration for an attempt
// @Tags assessments
// @Produce json
// @Security ApiKeyAuth
// @Param attemptId path int true "Attempt ID"
// @Success 200 {object} util.Response{data=service.TaskConfigResponse}
// @Failure 404 {object} util.Response "Attempt or task configuration not found"
// @Router /api/assessments/config/{attemptId} [get]
func (c *AssessmentController) TaskConfig(ctx *gin.Context) {
	attemptID := util.MustParseUint(ctx.Param("attemptId"))
	if attemptID == 0 {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	cfg, err := c.Service.TaskConfig(attemptID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptNotFound),
			errors.Is(err, util.ErrConfigNotFound):
			util.NotFound(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, cfg)
}

// @Summary List a user's attempt history
// @Tags assessments
// @Produce json
// @Security ApiKeyAuth
// @Param userId path int true "User ID"
// @Success 200 {object} util.Response{data=[]service.AttemptSummary}
// @Router /api/assessments/results/{userId} [get]
func (c *AssessmentController) UserResults(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("userId"))
	if userID == 0 {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	results, err := c.Service.UserResults(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, results)
}
