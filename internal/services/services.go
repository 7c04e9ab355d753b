// package services groups the backend API clients behind one constructor
package services

import (
	"net/http"

	"github.com/desertthunder/reels/internal/shared"
)

// Client bundles every API group over one [APIService].
type Client struct {
	API     *APIService
	Auth    *AuthAPI
	Uploads *UploadAPI
	Jobs    *TranscodingAPI
	Reels   *ReelsAPI
}

// NewClient builds the API groups from cfg, storing credentials in store.
func NewClient(cfg shared.APIConfig, store TokenStore) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout()}
	api := NewAPIService(cfg.BaseURL, httpClient, store)
	return NewClientFrom(api)
}

// NewClientFrom wraps an existing [APIService].
func NewClientFrom(api *APIService) *Client {
	return &Client{
		API:     api,
		Auth:    NewAuthAPI(api),
		Uploads: NewUploadAPI(api),
		Jobs:    NewTranscodingAPI(api),
		Reels:   NewReelsAPI(api),
	}
}
