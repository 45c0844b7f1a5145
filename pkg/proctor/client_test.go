package proctor

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/blake2b"
)

func TestClientStartAssessment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/assessments/start" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		var req StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.TaskTitle != "Fintech 101" {
			t.Errorf("taskTitle = %q", req.TaskTitle)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    200,
			"message": "Success",
			"data": StartResponse{
				AttemptID: 12,
				SessionID: "abc",
				Profile:   TaskProfile{TotalQuestions: 20, PassingScore: 80, MaxAttempts: 3},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok")
	resp, err := client.StartAssessment(context.Background(), StartRequest{
		UserID:    7,
		TaskTitle: "Fintech 101",
	})
	if err != nil {
		t.Fatalf("StartAssessment: %v", err)
	}
	if resp.AttemptID != 12 || resp.SessionID != "abc" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Profile.PassingScore != 80 {
		t.Errorf("PassingScore = %d", resp.Profile.PassingScore)
	}
}

func TestClientErrorsCarryServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    400,
			"message": "maximum attempts exceeded",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok")
	_, err := client.StartAssessment(context.Background(), StartRequest{UserID: 7, TaskTitle: "Fintech 101"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "maximum attempts exceeded") {
		t.Errorf("error = %q, want server message included", err)
	}
}

func TestClientUploadChunkFields(t *testing.T) {
	blob := []byte("chunk-bytes")
	sum := blake2b.Sum256(blob)
	wantChecksum := hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal(err)
		}
		if got := r.FormValue("sessionId"); got != "sess-1" {
			t.Errorf("sessionId = %q", got)
		}
		if got := r.FormValue("recordingType"); got != "screen" {
			t.Errorf("recordingType = %q", got)
		}
		if got := r.FormValue("isChunk"); got != "true" {
			t.Errorf("isChunk = %q", got)
		}
		if got := r.FormValue("checksum"); got != wantChecksum {
			t.Errorf("checksum = %q, want %q", got, wantChecksum)
		}
		if got := r.FormValue("chunkTimestamp"); got != "1700000000000" {
			t.Errorf("chunkTimestamp = %q", got)
		}

		file, _, err := r.FormFile("chunk")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()

		json.NewEncoder(w).Encode(map[string]interface{}{"code": 200, "message": "Success"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok")
	if err := client.UploadChunk(context.Background(), "sess-1", "screen", 1700000000000, blob); err != nil {
		t.Fatalf("UploadChunk: %v", err)
	}
}
