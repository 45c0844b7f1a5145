package proctor

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
)

// driveSlices feeds slices through the recorder's buffering path
// directly, bypassing the capture ticker.
func driveSlices(r *Recorder, n int, slice []byte) {
	for i := 0; i < n; i++ {
		r.append(context.Background(), slice)
	}
}

func TestRecorderFlushesFullBatches(t *testing.T) {
	cap := &capture{}
	srv := httptest.NewServer(cap.handler())
	defer srv.Close()

	client := NewClient(srv.URL, "test-token")
	rec := NewRecorder(client, "session-r1", "screen", nil, nil)

	slice := bytes.Repeat([]byte{0xab}, 64)
	driveSlices(rec, BatchSlices-1, slice)

	cap.mu.Lock()
	if cap.chunks != 0 {
		t.Fatalf("chunks = %d before full batch, want 0", cap.chunks)
	}
	cap.mu.Unlock()

	driveSlices(rec, 1, slice)

	cap.mu.Lock()
	if cap.chunks != 1 {
		t.Fatalf("chunks = %d after full batch, want 1", cap.chunks)
	}
	cap.mu.Unlock()

	driveSlices(rec, BatchSlices, slice)

	cap.mu.Lock()
	defer cap.mu.Unlock()
	if cap.chunks != 2 {
		t.Fatalf("chunks = %d after second batch, want 2", cap.chunks)
	}
}

func TestRecorderStopUploadsRemainder(t *testing.T) {
	cap := &capture{}
	srv := httptest.NewServer(cap.handler())
	defer srv.Close()

	client := NewClient(srv.URL, "test-token")
	rec := NewRecorder(client, "session-r2", "webcam", nil, nil)

	driveSlices(rec, 3, []byte("slice"))
	rec.Stop()

	cap.mu.Lock()
	defer cap.mu.Unlock()
	if cap.chunks != 0 {
		t.Errorf("chunks = %d, want 0", cap.chunks)
	}
	if cap.recordings != 1 {
		t.Errorf("recordings = %d, want 1", cap.recordings)
	}
}

func TestRecorderStopIsIdempotent(t *testing.T) {
	cap := &capture{}
	srv := httptest.NewServer(cap.handler())
	defer srv.Close()

	client := NewClient(srv.URL, "test-token")
	rec := NewRecorder(client, "session-r3", "screen", nil, nil)

	driveSlices(rec, 2, []byte("slice"))
	rec.Stop()
	rec.Stop()

	cap.mu.Lock()
	defer cap.mu.Unlock()
	if cap.recordings != 1 {
		t.Errorf("recordings = %d, want 1", cap.recordings)
	}
}

func TestRecorderIgnoresSlicesAfterStop(t *testing.T) {
	cap := &capture{}
	srv := httptest.NewServer(cap.handler())
	defer srv.Close()

	client := NewClient(srv.URL, "test-token")
	rec := NewRecorder(client, "session-r4", "screen", nil, nil)

	rec.Stop()
	driveSlices(rec, BatchSlices, []byte("slice"))

	cap.mu.Lock()
	defer cap.mu.Unlock()
	if cap.chunks != 0 {
		t.Errorf("chunks = %d after stop, want 0", cap.chunks)
	}
}

func TestRecorderSwallowsUploadFailures(t *testing.T) {
	cap := &capture{status: 500}
	srv := httptest.NewServer(cap.handler())
	defer srv.Close()

	client := NewClient(srv.URL, "test-token")
	rec := NewRecorder(client, "session-r5", "screen", nil, nil)

	// Neither the failed chunk flush nor the failed final upload may
	// panic or error out of the recorder.
	driveSlices(rec, BatchSlices, []byte("slice"))
	rec.Stop()
}
