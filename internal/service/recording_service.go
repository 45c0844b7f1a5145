package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"onboard_proctor_backend/internal/util"
	"onboard_proctor_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecordingService is the server side of the chunked evidence-upload
// protocol: it lands chunk blobs as they stream in and finalizes the
// authoritative per-stream artifact on the final upload.
type RecordingService struct {
	Sessions SessionStore
	Storage  *StorageService
}

func NewRecordingService(sessions SessionStore, storage *StorageService) *RecordingService {
	return &RecordingService{Sessions: sessions, Storage: storage}
}

// SaveChunk stores one batched media chunk. Chunks are opportunistic
// evidence: the session is not looked up, and a chunk for an unknown
// session is stored rather than rejected.
func (s *RecordingService) SaveChunk(ctx context.Context, sessionID, recordingType string, chunkTimestamp int64, file *multipart.FileHeader) (string, error) {
	if recordingType == "" {
		recordingType = util.RecordingScreen
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	key := fmt.Sprintf("sessions/%s/chunks/%s_%d%s",
		sessionID, recordingType, chunkTimestamp, extensionOf(file.Filename))

	url, err := s.Storage.Upload(ctx, key, src, file.Size, contentTypeOf(file))
	if err != nil {
		return "", err
	}

	logger.Log.Debug("recording chunk stored",
		zap.String("sessionId", sessionID),
		zap.String("recordingType", recordingType),
		zap.Int64("size", file.Size))

	return url, nil
}

// SaveRecording stores the final assembled blob for one stream and writes
// the recording metadata back onto the session. The ffmpeg probe is
// best-effort: a recording we cannot parse still gets stored.
func (s *RecordingService) SaveRecording(ctx context.Context, sessionID, recordingType string, file *multipart.FileHeader) (string, error) {
	session, err := s.Sessions.FindByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", util.ErrSessionNotFound
		}
		return "", err
	}

	if recordingType == "" {
		recordingType = util.RecordingScreen
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	// Spool to a temp file so the blob can be probed before upload.
	tmp, err := os.CreateTemp("", "recording-*"+extensionOf(file.Filename))
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", err
	}
	tmp.Close()

	// Content sniffing is advisory: clients assemble blobs from raw
	// stream slices, so an odd MIME type is logged, not rejected.
	if blob, err := os.Open(tmp.Name()); err == nil {
		if mimeType, err := util.ValidateMimeType(blob, []string{util.MimeVideo, util.MimeOctetStream}); err != nil || !util.IsVideo(mimeType) {
			logger.Log.Warn("recording has unexpected content type",
				zap.String("sessionId", sessionID),
				zap.String("mimeType", mimeType))
		}
		blob.Close()
	}

	var duration float64
	if info, err := util.ProbeMedia(tmp.Name()); err != nil {
		logger.Log.Warn("recording probe failed",
			zap.String("sessionId", sessionID), zap.Error(err))
	} else {
		duration = info.DurationSeconds
	}

	key := fmt.Sprintf("sessions/%s/%s_final%s", sessionID, recordingType, extensionOf(file.Filename))
	url, err := s.Storage.UploadFile(ctx, key, tmp.Name(), contentTypeOf(file))
	if err != nil {
		return "", err
	}

	switch recordingType {
	case util.RecordingWebcam:
		session.WebcamRecordingURL = url
		session.WebcamRecordingDuration = duration
	default:
		session.ScreenRecordingURL = url
		session.ScreenRecordingDuration = duration
	}
	if session.EndTime == nil {
		now := time.Now()
		session.EndTime = &now
	}
	if err := s.Sessions.Update(session); err != nil {
		return "", err
	}

	logger.Log.Info("final recording stored",
		zap.String("sessionId", sessionID),
		zap.String("recordingType", recordingType),
		zap.Float64("duration", duration))

	return url, nil
}

func extensionOf(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range util.AllowedRecordingExtensions {
		if ext == allowed {
			return ext
		}
	}
	return ".webm"
}

func contentTypeOf(file *multipart.FileHeader) string {
	if ct := file.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return util.MimeWebm
}
