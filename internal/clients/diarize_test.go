package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestDiarizerDisabled(t *testing.T) {
	d := NewDiarizer("")
	if d.Enabled() {
		t.Error("empty URL should disable the diarizer")
	}

	turns, err := d.Diarize(context.Background(), "/ignored.wav")
	if err != nil {
		t.Fatalf("disabled Diarize should be a no-op, got %v", err)
	}
	if turns != nil {
		t.Errorf("turns = %v, want nil", turns)
	}
}

func TestDiarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/diarize" {
			t.Errorf("path = %q, want /diarize", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Fatalf("form file: %v", err)
		}
		json.NewEncoder(w).Encode(diarizeResponse{Turns: []Turn{
			{Start: 0, End: 2.5, Speaker: "SPEAKER_00"},
			{Start: 2.5, End: 4, Speaker: "SPEAKER_01"},
		}})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "capture.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write temp wav: %v", err)
	}

	d := NewDiarizer(srv.URL)
	turns, err := d.Diarize(context.Background(), path)
	if err != nil {
		t.Fatalf("Diarize failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(turns))
	}
	if turns[0].Speaker != "SPEAKER_00" {
		t.Errorf("speaker = %q", turns[0].Speaker)
	}
	if turns[0].Duration() != 2.5 {
		t.Errorf("duration = %g, want 2.5", turns[0].Duration())
	}
}
