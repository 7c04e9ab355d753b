// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"
)

// FakeChunkTransport is an instrumented chunk transport.
//
// It records every call, tracks the peak number of concurrent calls and delegates the
// outcome to Handler when set. Without a Handler every call succeeds with the entity tag
// "etag-<url>".
type FakeChunkTransport struct {
	// Handler decides the outcome of a call; attempt counts calls per url starting at 1.
	Handler func(ctx context.Context, url string, attempt int) (string, error)
	// Delay holds each call open, returning early with ctx.Err() on cancellation.
	Delay time.Duration

	mu          sync.Mutex
	calls       int
	inFlight    int
	maxInFlight int
	attempts    map[string]int
	bodies      map[string][]byte
	order       []string
}

func NewFakeChunkTransport() *FakeChunkTransport {
	return &FakeChunkTransport{attempts: map[string]int{}, bodies: map[string][]byte{}}
}

func (f *FakeChunkTransport) PutChunk(ctx context.Context, url string, body io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.calls++
	f.attempts[url]++
	attempt := f.attempts[url]
	f.bodies[url] = data
	f.order = append(f.order, url)
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if int64(len(data)) != size {
		return "", fmt.Errorf("short body: read %d of %d bytes", len(data), size)
	}

	if f.Delay > 0 {
		t := time.NewTimer(f.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if f.Handler != nil {
		return f.Handler(ctx, url, attempt)
	}
	return "etag-" + url, nil
}

// Calls returns the total number of PutChunk calls.
func (f *FakeChunkTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// MaxInFlight returns the peak number of concurrent calls.
func (f *FakeChunkTransport) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// Attempts returns how many times url was called.
func (f *FakeChunkTransport) Attempts(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[url]
}

// Body returns the last body sent to url.
func (f *FakeChunkTransport) Body(url string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[url]
}

// Order returns urls in the order calls started.
func (f *FakeChunkTransport) Order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// ChunkURLs returns n distinct fake destination urls.
func ChunkURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://storage.test/part/%d", i+1)
	}
	return urls
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
