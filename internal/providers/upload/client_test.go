package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientUploadsAudioField(t *testing.T) {
	t.Parallel()

	var gotName string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != TranscribePath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName = header.Filename
		gotBody = string(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"transcript":" Hello there ","message":"ok"}`))
	}))
	defer srv.Close()

	text, err := NewClient(srv.URL+"/", nil).Transcribe(context.Background(), []byte("RIFFdata"), "")
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if text != "Hello there" {
		t.Fatalf("unexpected transcript: %q", text)
	}
	if gotName != "recording.wav" || gotBody != "RIFFdata" {
		t.Fatalf("unexpected upload: name=%q body=%q", gotName, gotBody)
	}
}

func TestClientServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"Transcription failed","details":"backend down"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Transcribe(context.Background(), []byte("x"), "a.wav")
	if err == nil || !strings.Contains(err.Error(), "backend down") {
		t.Fatalf("expected status error with details, got %v", err)
	}
}

func TestClientMissingTranscript(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"transcript":""}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Transcribe(context.Background(), []byte("x"), "a.wav")
	if !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
}
