// API client for the training-reel platform backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/desertthunder/reels/internal/shared"
)

const defaultBaseURL = "http://localhost:3000/api"

// APIService performs HTTP requests against the platform backend.
//
// Requests go through an [oauth2.Transport] fed by the [TokenStore], so every call carries the
// stored bearer token. A 401 response clears the store.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	anonClient *http.Client
	store      TokenStore
}

// NewAPIService creates an API service. A nil store sends requests without credentials.
func NewAPIService(baseURL string, client *http.Client, store TokenStore) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	authed := client
	if store != nil {
		authed = &http.Client{
			Transport: &oauth2.Transport{Source: NewTokenSource(store), Base: client.Transport},
			Timeout:   client.Timeout,
		}
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: authed,
		anonClient: client,
		store:      store,
	}
}

// BaseURL returns the backend root every path is joined to.
func (a *APIService) BaseURL() string { return a.baseURL }

// Store returns the token store, which may be nil.
func (a *APIService) Store() TokenStore { return a.store }

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       []byte
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API Error: %d", e.StatusCode)
	if detail := e.Message(); detail != "" {
		msg += ": " + detail
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, msg)
}

// Message extracts a server-provided message from a JSON error body.
func (e *APIError) Message() string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// Unwrap exposes [shared.ErrAPIRequest], plus [shared.ErrNotAuthenticated] for 401s.
func (e *APIError) Unwrap() []error {
	errs := []error{shared.ErrAPIRequest}
	if e.StatusCode == http.StatusUnauthorized {
		errs = append(errs, shared.ErrNotAuthenticated)
	}
	return errs
}

// IsNotFound reports whether err is an [APIError] with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.raw(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.raw(ctx, http.MethodPost, path, data)
}

// Put performs a PUT request with the given JSON data and returns the raw response.
func (a *APIService) Put(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.raw(ctx, http.MethodPut, path, data)
}

// Delete performs a DELETE request and returns the raw response.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.raw(ctx, http.MethodDelete, path, nil)
}

func (a *APIService) raw(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	resp, err := a.send(ctx, a.httpClient, method, path, data)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		a.clearToken()
	}

	var jsonData any
	if err := json.Unmarshal(resp.Body, &jsonData); err == nil {
		resp.IsJSON = true
		resp.JSONData = jsonData
	}
	return resp, nil
}

// DoJSON sends in as the JSON body (when non-nil) and decodes the response into out (when non-nil).
// Non-2xx responses return an [*APIError].
func (a *APIService) DoJSON(ctx context.Context, method, path string, in, out any) error {
	return a.doJSON(ctx, a.httpClient, method, path, in, out)
}

// DoAnonymous is DoJSON without credentials, used for login.
func (a *APIService) DoAnonymous(ctx context.Context, method, path string, in, out any) error {
	return a.doJSON(ctx, a.anonClient, method, path, in, out)
}

func (a *APIService) doJSON(ctx context.Context, client *http.Client, method, path string, in, out any) error {
	var data []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		data = b
	}

	resp, err := a.send(ctx, client, method, path, data)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			a.clearToken()
		}
		return &APIError{StatusCode: resp.StatusCode, Method: method, Path: path, Body: resp.Body}
	}

	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

func (a *APIService) send(ctx context.Context, client *http.Client, method, path string, data []byte) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: respBody}, nil
}

func (a *APIService) clearToken() {
	if a.store != nil {
		_ = a.store.Clear()
	}
}
