package proctor

import (
	"context"
	"time"
)

// FaceObservation is one sample from the webcam analyzer.
type FaceObservation struct {
	Faces       int
	LookingAway bool
}

// FrameAnalyzer inspects the current webcam frame. Implementations wrap
// whatever face-detection backend is available on the client.
type FrameAnalyzer interface {
	Analyze(ctx context.Context) (FaceObservation, error)
}

// Default consecutive-sample thresholds before a streak becomes a
// violation. Samples arrive every DetectorInterval, so the defaults
// tolerate roughly 20s without a face, 10s with extra faces, and 16s of
// looking away.
const (
	DetectorInterval   = 2 * time.Second
	noFaceThreshold    = 10
	multiFaceThreshold = 5
	lookAwayThreshold  = 8
)

// FaceDetector polls a FrameAnalyzer and reports debounced face
// violations to the monitor. Transient detection noise is absorbed by
// requiring a streak of consecutive bad samples; each streak yields at
// most one violation.
type FaceDetector struct {
	analyzer FrameAnalyzer
	monitor  *Monitor
	interval time.Duration

	noFaceStreak    int
	multiFaceStreak int
	lookAwayStreak  int
}

func NewFaceDetector(analyzer FrameAnalyzer, monitor *Monitor) *FaceDetector {
	return &FaceDetector{
		analyzer: analyzer,
		monitor:  monitor,
		interval: DetectorInterval,
	}
}

// Run polls until the context is cancelled or the session terminates.
func (d *FaceDetector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d.monitor.Terminated() {
				return
			}
			d.sample(ctx)
		}
	}
}

func (d *FaceDetector) sample(ctx context.Context) {
	obs, err := d.analyzer.Analyze(ctx)
	if err != nil {
		// Analyzer hiccups are not evidence of anything.
		return
	}
	d.observe(obs)
}

func (d *FaceDetector) observe(obs FaceObservation) {
	switch {
	case obs.Faces == 0:
		d.noFaceStreak++
		d.multiFaceStreak = 0
		d.lookAwayStreak = 0
		if d.noFaceStreak == noFaceThreshold {
			d.monitor.Observe(ViolationNoFaceDetected, "No face visible in the webcam feed")
			d.noFaceStreak = 0
		}
	case obs.Faces > 1:
		d.multiFaceStreak++
		d.noFaceStreak = 0
		d.lookAwayStreak = 0
		if d.multiFaceStreak == multiFaceThreshold {
			d.monitor.Observe(ViolationMultipleFaces, "More than one face visible in the webcam feed")
			d.multiFaceStreak = 0
		}
	case obs.LookingAway:
		d.lookAwayStreak++
		d.noFaceStreak = 0
		d.multiFaceStreak = 0
		if d.lookAwayStreak == lookAwayThreshold {
			d.monitor.Observe(ViolationLookingAway, "Candidate looking away from the screen")
			d.lookAwayStreak = 0
		}
	default:
		d.noFaceStreak = 0
		d.multiFaceStreak = 0
		d.lookAwayStreak = 0
	}
}
