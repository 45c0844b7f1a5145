package proctor

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Client is a thin REST client for the assessment backend. The zero
// value is not usable; construct with NewClient.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s: unexpected response (status %d)", req.URL.Path, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s: %s (status %d)", req.URL.Path, env.Message, resp.StatusCode)
	}

	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// StartAssessment begins a proctored attempt and returns the session
// handles.
func (c *Client) StartAssessment(ctx context.Context, req StartRequest) (*StartResponse, error) {
	var out StartResponse
	if err := c.postJSON(ctx, "/api/assessments/start", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostEvent sends an advisory lifecycle event for the session.
func (c *Client) PostEvent(ctx context.Context, sessionID, eventType string, data json.RawMessage) error {
	return c.postJSON(ctx, "/api/assessments/event", SessionEvent{
		SessionID: sessionID,
		EventType: eventType,
		Data:      data,
	}, nil)
}

// ReportViolation records one integrity violation against the session.
func (c *Client) ReportViolation(ctx context.Context, sessionID string, v Violation) error {
	payload := struct {
		SessionID string    `json:"sessionId"`
		Violation Violation `json:"violation"`
	}{SessionID: sessionID, Violation: v}
	return c.postJSON(ctx, "/api/assessments/violation", payload, nil)
}

// Complete submits the attempt for scoring.
func (c *Client) Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	var out CompleteResponse
	if err := c.postJSON(ctx, "/api/assessments/complete", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadChunk streams one batched media chunk. The checksum lets the
// backend spot truncated uploads without re-reading the blob.
func (c *Client) UploadChunk(ctx context.Context, sessionID, recordingType string, timestamp int64, blob []byte) error {
	return c.uploadMultipart(ctx, "/api/assessments/upload-chunk", "chunk",
		fmt.Sprintf("%s_%d.webm", recordingType, timestamp), blob, map[string]string{
			"sessionId":      sessionID,
			"recordingType":  recordingType,
			"chunkTimestamp": strconv.FormatInt(timestamp, 10),
			"isChunk":        "true",
			"checksum":       checksum(blob),
		})
}

// UploadRecording sends the final assembled blob for one stream.
func (c *Client) UploadRecording(ctx context.Context, sessionID, recordingType string, blob []byte) error {
	return c.uploadMultipart(ctx, "/api/assessments/upload-recording", "recording",
		fmt.Sprintf("%s_final.webm", recordingType), blob, map[string]string{
			"sessionId":     sessionID,
			"recordingType": recordingType,
			"checksum":      checksum(blob),
		})
}

func (c *Client) uploadMultipart(ctx context.Context, path, fieldName, fileName string, blob []byte, fields map[string]string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}

	part, err := w.CreateFormFile(fieldName, fileName)
	if err != nil {
		return err
	}
	if _, err := part.Write(blob); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.Token)

	return c.do(req, nil)
}

func checksum(blob []byte) string {
	sum := blake2b.Sum256(blob)
	return hex.EncodeToString(sum[:])
}
