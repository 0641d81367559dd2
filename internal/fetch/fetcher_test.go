package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"emberforge/internal/pkg/errors"
)

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("pngdata"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "image_000.png")
	ref, err := New(nil).Fetch(context.Background(), srv.URL+"/a.png", dest)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if ref.ByteSize != 7 {
		t.Errorf("expected 7 bytes, got %d", ref.ByteSize)
	}
	if ref.ContentType != "image/png" {
		t.Errorf("expected image/png, got %s", ref.ContentType)
	}
	if data, _ := os.ReadFile(dest); string(data) != "pngdata" {
		t.Errorf("unexpected file content: %s", data)
	}
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := New(nil).Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "a"))
	if err != nil {
		t.Fatalf("expected success on third attempt: %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestFetchFailsAfterMaxAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(nil).Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "a"))
	if err == nil {
		t.Fatal("expected fetch failure")
	}
	if errors.GetCode(err) != errors.CodeFetchFailed {
		t.Errorf("expected FETCH_FAILED, got %s", errors.GetCode(err))
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestFetchRejectsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := New(nil).Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "a"))
	if err == nil {
		t.Fatal("expected error for empty body")
	}
	if errors.GetCode(err) != errors.CodeFetchFailed {
		t.Errorf("expected FETCH_FAILED, got %s", errors.GetCode(err))
	}
}

func TestFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "content-of-%s", r.URL.Path)
	}))
	defer srv.Close()

	imageURLs := []string{
		srv.URL + "/one.png",
		srv.URL + "/two.jpg",
		srv.URL + "/three.png",
	}

	dir := t.TempDir()
	images, audio, err := New(nil).FetchAll(context.Background(), imageURLs, srv.URL+"/track.mp3", dir)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(images))
	}
	// Results keep request order regardless of completion order.
	for i, ref := range images {
		if ref.SourceURL != imageURLs[i] {
			t.Errorf("image %d: expected %s, got %s", i, imageURLs[i], ref.SourceURL)
		}
		if _, err := os.Stat(ref.LocalPath); err != nil {
			t.Errorf("image %d not on disk: %v", i, err)
		}
	}
	if filepath.Base(images[0].LocalPath) != "image_000.png" {
		t.Errorf("unexpected image filename: %s", images[0].LocalPath)
	}
	if filepath.Base(audio.LocalPath) != "audio.mp3" {
		t.Errorf("unexpected audio filename: %s", audio.LocalPath)
	}
}

func TestFetchAllFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.png" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, _, err := New(nil).FetchAll(context.Background(),
		[]string{srv.URL + "/good.png", srv.URL + "/bad.png"},
		srv.URL+"/audio.wav", t.TempDir())
	if err == nil {
		t.Fatal("expected failure when one image fetch fails")
	}
	if errors.GetCode(err) != errors.CodeFetchFailed {
		t.Errorf("expected FETCH_FAILED, got %s", errors.GetCode(err))
	}
}
