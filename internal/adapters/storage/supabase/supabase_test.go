package supabase

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"emberforge/internal/ports"
)

func TestPutObject(t *testing.T) {
	var gotPath, gotAuth, gotUpsert, gotType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUpsert = r.Header.Get("x-upsert")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "service-key", "generated-assets")
	out, err := c.PutObject(context.Background(), ports.PutObjectInput{
		ObjectKey:   "renders/proj1/video.mp4",
		ContentType: "video/mp4",
		Reader:      strings.NewReader("videobytes"),
		Size:        10,
	})
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}

	if gotPath != "/storage/v1/object/generated-assets/renders/proj1/video.mp4" {
		t.Errorf("unexpected upload path: %s", gotPath)
	}
	if gotAuth != "Bearer service-key" {
		t.Errorf("unexpected auth header: %s", gotAuth)
	}
	if gotUpsert != "true" {
		t.Errorf("expected x-upsert=true, got %q", gotUpsert)
	}
	if gotType != "video/mp4" {
		t.Errorf("unexpected content type: %s", gotType)
	}
	if string(gotBody) != "videobytes" {
		t.Errorf("unexpected body: %s", gotBody)
	}

	wantURL := srv.URL + "/storage/v1/object/public/generated-assets/renders/proj1/video.mp4"
	if out.URL != wantURL {
		t.Errorf("expected public URL %s, got %s", wantURL, out.URL)
	}
}

func TestPutObjectRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("bad jwt"))
	}))
	defer srv.Close()

	c := New(srv.URL, "wrong-key", "generated-assets")
	_, err := c.PutObject(context.Background(), ports.PutObjectInput{
		ObjectKey: "renders/p/video.mp4",
		Reader:    strings.NewReader("x"),
		Size:      1,
	})
	if err == nil {
		t.Fatal("expected upload rejection")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("expected status in error, got: %v", err)
	}
}

func TestGetObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("mp4"))
	}))
	defer srv.Close()

	rc, contentType, _, err := New(srv.URL, "k", "b").GetObject(context.Background(), "renders/p/video.mp4")
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	defer rc.Close()

	if contentType != "video/mp4" {
		t.Errorf("unexpected content type: %s", contentType)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "mp4" {
		t.Errorf("unexpected content: %s", data)
	}
}
