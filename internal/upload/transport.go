package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ChunkTransport sends one chunk body to its destination and returns the entity tag.
type ChunkTransport interface {
	PutChunk(ctx context.Context, url string, body io.Reader, size int64) (string, error)
}

// HTTPTransport PUTs raw chunk bytes to pre-signed storage URLs.
//
// The client must not carry the API bearer token; pre-signed URLs are authorized by their query string.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport wraps client, using a zero [http.Client] when nil.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{client: client}
}

// PutChunk implements [ChunkTransport].
func (t *HTTPTransport) PutChunk(ctx context.Context, url string, body io.Reader, size int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrChunkStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return "", ErrMissingETag
	}
	return etag, nil
}
