package controller

import (
	"errors"
	"strconv"

	"onboard_proctor_backend/internal/service"
	"onboard_proctor_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RecordingController struct {
	Service *service.RecordingService
}

func NewRecordingController(svc *service.RecordingService) *RecordingController {
	return &RecordingController{Service: svc}
}

// @Summary Upload a batched media chunk for a session
// @Tags recordings
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param chunk formData file true "Media chunk"
// @Param sessionId formData string true "Session ID"
// @Param recordingType formData string false "screen or webcam"
// @Param chunkTimestamp formData int false "Client timestamp in milliseconds"
// @Param checksum formData string false "Hex digest of the chunk body"
// @Success 200 {object} util.Response
// @Router /api/assessments/upload-chunk [post]
func (c *RecordingController) UploadChunk(ctx *gin.Context) {
	file, err := ctx.FormFile("chunk")
	if err != nil {
		util.BadRequest(ctx, "Chunk file is required")
		return
	}

	sessionID := ctx.PostForm("sessionId")
	if sessionID == "" {
		util.BadRequest(ctx, "sessionId is required")
		return
	}

	recordingType := ctx.PostForm("recordingType")
	chunkTimestamp, _ := strconv.ParseInt(ctx.PostForm("chunkTimestamp"), 10, 64)

	url, err := c.Service.SaveChunk(ctx.Request.Context(), sessionID, recordingType, chunkTimestamp, file)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"success": true, "fileUrl": url})
}

// @Summary Upload the final assembled recording for a session
// @Tags recordings
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param recording formData file true "Final recording blob"
// @Param sessionId formData string true "Session ID"
// @Param recordingType formData string false "screen or webcam"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "Session not found"
// @Router /api/assessments/upload-recording [post]
func (c *RecordingController) UploadRecording(ctx *gin.Context) {
	file, err := ctx.FormFile("recording")
	if err != nil {
		util.BadRequest(ctx, "Recording file is required")
		return
	}

	sessionID := ctx.PostForm("sessionId")
	if sessionID == "" {
		util.BadRequest(ctx, "sessionId is required")
		return
	}

	recordingType := ctx.PostForm("recordingType")

	url, err := c.Service.SaveRecording(ctx.Request.Context(), sessionID, recordingType, file)
	if err != nil {
		if errors.Is(err, util.ErrSessionNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"success": true, "fileUrl": url})
}
