package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeVideo       = "video/"
	MimeWebm        = "video/webm"
	MimeOctetStream = "application/octet-stream"
)

const (
	RecordingScreen = "screen"
	RecordingWebcam = "webcam"
)

var (
	AllowedRecordingExtensions = []string{".webm", ".mp4", ".mkv"}
)
