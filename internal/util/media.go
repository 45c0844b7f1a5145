package util

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// MediaInfo holds the probed metadata of an uploaded recording.
type MediaInfo struct {
	DurationSeconds float64 `json:"durationSeconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Format          string  `json:"format"`
	SizeBytes       int64   `json:"sizeBytes"`
}

// ProbeMedia runs ffprobe against a local file and extracts duration,
// dimensions and container format. Used when finalizing session recordings.
func ProbeMedia(path string) (*MediaInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("media file not found: %w", err)
	}

	jsonOutput, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}

	var probed struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
			Size     string `json:"size"`
			Format   string `json:"format_name"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(jsonOutput), &probed); err != nil {
		return nil, fmt.Errorf("parse probe output: %w", err)
	}

	info := &MediaInfo{SizeBytes: fileInfo.Size()}

	for _, stream := range probed.Streams {
		if stream.CodecType == "video" {
			info.Width = stream.Width
			info.Height = stream.Height
			break
		}
	}

	if d, err := strconv.ParseFloat(probed.Format.Duration, 64); err == nil {
		info.DurationSeconds = d
	}
	if size, err := strconv.ParseInt(probed.Format.Size, 10, 64); err == nil {
		info.SizeBytes = size
	}
	if probed.Format.Format != "" {
		info.Format = strings.SplitN(probed.Format.Format, ",", 2)[0]
	}

	return info, nil
}
