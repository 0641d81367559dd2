// Package fetch resolves remote assets (images, audio) to local scratch
// storage, verifying byte count and content type. Retrying lives at this
// boundary only; the rest of the pipeline never re-fetches.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"emberforge/internal/pkg/errors"
	"emberforge/internal/pkg/logger"
	"emberforge/internal/timeline"
)

const (
	maxAttempts          = 3
	backoffBase          = 500 * time.Millisecond
	maxConcurrentFetches = 20
)

// Fetcher downloads assets over HTTP with bounded retries.
type Fetcher struct {
	client *http.Client
	log    *logger.Logger
}

func New(log *logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Fetcher{
		client: &http.Client{Timeout: 5 * time.Minute},
		log:    log.WithComponent("fetch"),
	}
}

// Fetch downloads url to destPath. Fails with FETCH_FAILED after
// maxAttempts tries; each non-final failure backs off exponentially.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string) (timeline.AssetRef, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ref, err := f.fetchOnce(ctx, url, destPath)
		if err == nil {
			return ref, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return timeline.AssetRef{}, errors.Cancelled("fetch")
		}
		if attempt < maxAttempts {
			f.log.Warn("fetch attempt failed, retrying",
				"url", url,
				"attempt", attempt,
				"error", err.Error(),
			)
			select {
			case <-time.After(backoffBase << (attempt - 1)):
			case <-ctx.Done():
				return timeline.AssetRef{}, errors.Cancelled("fetch")
			}
		}
	}

	return timeline.AssetRef{}, errors.WrapWithCode(lastErr, errors.CodeFetchFailed, "fetch.get",
		"failed to fetch asset: "+url)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url, destPath string) (timeline.AssetRef, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return timeline.AssetRef{}, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return timeline.AssetRef{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return timeline.AssetRef{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return timeline.AssetRef{}, err
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return timeline.AssetRef{}, err
	}
	if n == 0 {
		return timeline.AssetRef{}, fmt.Errorf("empty response body")
	}

	return timeline.AssetRef{
		SourceURL:   url,
		LocalPath:   destPath,
		ByteSize:    n,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// FetchAll resolves every input of one request: images concurrently
// (independent fetches, bounded), the audio track alongside. It returns
// only when every fetch completed or the first one failed, so the
// planner never runs against a partial asset set.
func (f *Fetcher) FetchAll(ctx context.Context, imageURLs []string, audioURL, destDir string) ([]timeline.AssetRef, timeline.AssetRef, error) {
	images := make([]timeline.AssetRef, len(imageURLs))
	var audio timeline.AssetRef

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for i, url := range imageURLs {
		i, url := i, url
		g.Go(func() error {
			dest := filepath.Join(destDir, fmt.Sprintf("image_%03d%s", i, imageExt(url)))
			ref, err := f.Fetch(gctx, url, dest)
			if err != nil {
				return err
			}
			images[i] = ref
			return nil
		})
	}

	g.Go(func() error {
		dest := filepath.Join(destDir, "audio"+audioExt(audioURL))
		ref, err := f.Fetch(gctx, audioURL, dest)
		if err != nil {
			return err
		}
		audio = ref
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, timeline.AssetRef{}, err
	}
	return images, audio, nil
}

func imageExt(url string) string {
	if strings.Contains(strings.ToLower(url), ".png") {
		return ".png"
	}
	return ".jpg"
}

func audioExt(url string) string {
	switch strings.ToLower(path.Ext(strings.SplitN(url, "?", 2)[0])) {
	case ".mp3":
		return ".mp3"
	case ".m4a":
		return ".m4a"
	default:
		return ".wav"
	}
}
