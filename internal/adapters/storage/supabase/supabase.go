package supabase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"emberforge/internal/ports"
)

// Client implements ports.StorageProvider against the Supabase storage
// HTTP API. Uploads stream the reader directly so large artifacts never
// load into memory. ObjectKey is the path inside the bucket.
type Client struct {
	baseURL string
	apiKey  string
	bucket  string
	httpc   *http.Client
}

func New(baseURL, apiKey, bucket string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		bucket:  bucket,
		httpc:   &http.Client{Timeout: 10 * time.Minute},
	}
}

func (c *Client) Provider() string { return "supabase" }

func (c *Client) objectURL(objectKey string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, objectKey)
}

// PublicURL returns the unauthenticated public URL for an object in a
// public bucket.
func (c *Client) PublicURL(objectKey string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, objectKey)
}

func (c *Client) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if in.ObjectKey == "" {
		return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.objectURL(in.ObjectKey), in.Reader)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("x-upsert", "true")
	if in.ContentType != "" {
		req.Header.Set("Content-Type", in.ContentType)
	}
	if in.Size > 0 {
		req.ContentLength = in.Size
		req.Header.Set("Content-Length", strconv.FormatInt(in.Size, 10))
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return ports.PutObjectOutput{}, fmt.Errorf("supabase upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ports.PutObjectOutput{}, fmt.Errorf("supabase upload failed: status %d: %s", resp.StatusCode, body)
	}

	return ports.PutObjectOutput{
		ObjectKey: in.ObjectKey,
		Size:      in.Size,
		URL:       c.PublicURL(in.ObjectKey),
	}, nil
}

func (c *Client) GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.objectURL(objectKey), nil)
	if err != nil {
		return nil, "", 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, "", 0, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", 0, fmt.Errorf("supabase get failed: status %d", resp.StatusCode)
	}

	return resp.Body, resp.Header.Get("Content-Type"), resp.ContentLength, nil
}

func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(objectKey), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("supabase delete failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (ports.SignedURLOutput, error) {
	// Public buckets don't need signing; return the public URL directly.
	return ports.SignedURLOutput{
		URL:       c.PublicURL(objectKey),
		ExpiresAt: time.Now().UTC().Add(expiresIn),
	}, nil
}
