package proctor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MediaSource produces encoded media slices, one per SliceDuration.
// Implementations wrap the client's screen or webcam capture.
type MediaSource interface {
	ReadSlice(ctx context.Context) ([]byte, error)
}

const (
	SliceDuration = 1 * time.Second
	BatchSlices   = 10
)

// Recorder pulls media slices from a source, batches them, and ships
// each batch to the backend as a chunk. On Stop it flushes whatever is
// buffered as the final recording. Upload failures are logged and
// swallowed: recording is evidence, not a gate on the assessment.
type Recorder struct {
	client        *Client
	sessionID     string
	recordingType string
	source        MediaSource
	log           *zap.Logger

	mu      sync.Mutex
	buf     []byte
	slices  int
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewRecorder(client *Client, sessionID, recordingType string, source MediaSource, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		client:        client,
		sessionID:     sessionID,
		recordingType: recordingType,
		source:        source,
		log:           log,
		done:          make(chan struct{}),
	}
}

// Start begins pulling slices. It returns immediately; capture runs in
// a goroutine until Stop or context cancellation.
func (r *Recorder) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	go r.loop(ctx)
}

func (r *Recorder) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(SliceDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slice, err := r.source.ReadSlice(ctx)
			if err != nil {
				r.log.Warn("media slice read failed",
					zap.String("sessionId", r.sessionID),
					zap.String("recordingType", r.recordingType),
					zap.Error(err))
				continue
			}
			r.append(ctx, slice)
		}
	}
}

func (r *Recorder) append(ctx context.Context, slice []byte) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.buf = append(r.buf, slice...)
	r.slices++
	flush := r.slices >= BatchSlices
	var chunk []byte
	if flush {
		chunk = r.buf
		r.buf = nil
		r.slices = 0
	}
	r.mu.Unlock()

	if flush {
		r.uploadChunk(ctx, chunk)
	}
}

func (r *Recorder) uploadChunk(ctx context.Context, chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	if err := r.client.UploadChunk(ctx, r.sessionID, r.recordingType, time.Now().UnixMilli(), chunk); err != nil {
		r.log.Warn("chunk upload failed",
			zap.String("sessionId", r.sessionID),
			zap.String("recordingType", r.recordingType),
			zap.Int("size", len(chunk)),
			zap.Error(err))
	}
}

// Stop ends capture and uploads whatever is buffered as the final
// recording blob. Safe to call more than once.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	final := r.buf
	r.buf = nil
	r.slices = 0
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-r.done
	}

	ctx, cancelUpload := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelUpload()
	if err := r.client.UploadRecording(ctx, r.sessionID, r.recordingType, final); err != nil {
		r.log.Warn("final recording upload failed",
			zap.String("sessionId", r.sessionID),
			zap.String("recordingType", r.recordingType),
			zap.Error(err))
	}
}
