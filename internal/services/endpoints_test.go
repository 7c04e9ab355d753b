package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/shared"
)

func backend(t *testing.T, routes map[string]http.HandlerFunc) *APIService {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewAPIService(server.URL, nil, loggedIn(t))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestUploadAPI(t *testing.T) {
	ctx := context.Background()

	t.Run("Initiate", func(t *testing.T) {
		api := NewUploadAPI(backend(t, map[string]http.HandlerFunc{
			"POST /uploads/initiate": func(w http.ResponseWriter, r *http.Request) {
				var req models.InitiateUploadRequest
				json.NewDecoder(r.Body).Decode(&req)
				if req.FileName != "clip.mp4" || req.ChunkCount != 3 || req.FileType != "video/mp4" {
					t.Errorf("unexpected request %+v", req)
				}
				writeJSON(w, map[string]any{"uploadId": "u1", "chunkUrls": []string{"a", "b", "c"}, "expiresAt": "2026-01-01T00:00:00Z"})
			},
		}))

		resp, err := api.Initiate(ctx, models.InitiateUploadRequest{FileName: "clip.mp4", FileSize: 15, FileType: "video/mp4", ChunkCount: 3})
		if err != nil {
			t.Fatalf("initiate: %v", err)
		}
		if resp.UploadID != "u1" || len(resp.ChunkURLs) != 3 {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("Complete", func(t *testing.T) {
		api := NewUploadAPI(backend(t, map[string]http.HandlerFunc{
			"POST /uploads/{id}/complete": func(w http.ResponseWriter, r *http.Request) {
				var req models.CompleteUploadRequest
				json.NewDecoder(r.Body).Decode(&req)
				want := []models.CompletedChunk{{ChunkNumber: 1, ETag: "e1"}, {ChunkNumber: 2, ETag: "e2"}}
				if r.PathValue("id") != "u1" || req.UploadID != "u1" || !reflect.DeepEqual(req.Chunks, want) {
					t.Errorf("unexpected request %s %+v", r.PathValue("id"), req)
				}
				writeJSON(w, models.CompleteUploadResponse{Success: true, ProcessingJobID: "job-1"})
			},
		}))

		resp, err := api.Complete(ctx, "u1", []models.CompletedChunk{{ChunkNumber: 1, ETag: "e1"}, {ChunkNumber: 2, ETag: "e2"}})
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if !resp.Success || resp.ProcessingJobID != "job-1" {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("Status Cancel Active Resume", func(t *testing.T) {
		cancelled := false
		api := NewUploadAPI(backend(t, map[string]http.HandlerFunc{
			"GET /uploads/{id}/status": func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, models.UploadStatusResponse{Status: models.UploadProcessing, Progress: 100})
			},
			"DELETE /uploads/{id}": func(w http.ResponseWriter, r *http.Request) {
				cancelled = r.PathValue("id") == "u1"
				w.WriteHeader(http.StatusNoContent)
			},
			"GET /uploads/active": func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, []models.UploadStatusResponse{{Status: models.UploadUploading, Progress: 40}})
			},
			"POST /uploads/{id}/resume": func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, models.InitiateUploadResponse{UploadID: r.PathValue("id"), ChunkURLs: []string{"x"}})
			},
		}))

		status, err := api.Status(ctx, "u1")
		if err != nil || status.Status != models.UploadProcessing {
			t.Errorf("status: %+v %v", status, err)
		}
		if err := api.Cancel(ctx, "u1"); err != nil || !cancelled {
			t.Errorf("cancel: %v (cancelled=%v)", err, cancelled)
		}
		active, err := api.Active(ctx)
		if err != nil || len(active) != 1 || active[0].Progress != 40 {
			t.Errorf("active: %+v %v", active, err)
		}
		resumed, err := api.Resume(ctx, "u1")
		if err != nil || resumed.UploadID != "u1" {
			t.Errorf("resume: %+v %v", resumed, err)
		}
	})

	t.Run("Status Not Found", func(t *testing.T) {
		api := NewUploadAPI(backend(t, nil))
		_, err := api.Status(ctx, "missing")
		if !IsNotFound(err) {
			t.Errorf("expected 404, got %v", err)
		}
	})
}

func TestTranscodingAPI(t *testing.T) {
	ctx := context.Background()
	api := NewTranscodingAPI(backend(t, map[string]http.HandlerFunc{
		"GET /transcoding/jobs/{id}": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, models.ProcessingJob{ID: r.PathValue("id"), Status: models.JobTranscribing, Progress: 60})
		},
		"GET /transcoding/jobs": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, []models.ProcessingJob{{ID: "j1"}, {ID: "j2"}})
		},
		"POST /transcoding/jobs/{id}/retry": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, models.ProcessingJob{ID: r.PathValue("id"), Status: models.JobQueued})
		},
		"GET /transcoding/jobs/{id}/result": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, models.TranscodingResult{HLSURL: "https://cdn/x.m3u8", Resolution: "1280x720"})
		},
		"GET /transcoding/queue/status": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, models.QueueStatus{QueueLength: 4, ActiveJobs: 2})
		},
	}))

	job, err := api.Job(ctx, "j1")
	if err != nil || job.Status != models.JobTranscribing || job.Status.IsTerminal() {
		t.Errorf("job: %+v %v", job, err)
	}
	jobs, err := api.Jobs(ctx)
	if err != nil || len(jobs) != 2 {
		t.Errorf("jobs: %+v %v", jobs, err)
	}
	retried, err := api.Retry(ctx, "j1")
	if err != nil || retried.Status != models.JobQueued {
		t.Errorf("retry: %+v %v", retried, err)
	}
	result, err := api.Result(ctx, "j1")
	if err != nil || result.HLSURL == "" {
		t.Errorf("result: %+v %v", result, err)
	}
	queue, err := api.Queue(ctx)
	if err != nil || queue.QueueLength != 4 {
		t.Errorf("queue: %+v %v", queue, err)
	}
}

func TestReelsAPI(t *testing.T) {
	ctx := context.Background()

	t.Run("Create Normalizes Request", func(t *testing.T) {
		api := NewReelsAPI(backend(t, map[string]http.HandlerFunc{
			"POST /reels": func(w http.ResponseWriter, r *http.Request) {
				var req models.CreateReelRequest
				json.NewDecoder(r.Body).Decode(&req)
				if req.Privacy != models.PrivacyInternal {
					t.Errorf("expected default privacy internal, got %q", req.Privacy)
				}
				if !reflect.DeepEqual(req.Tags, []string{"spindle", "setup"}) {
					t.Errorf("unexpected tags %v", req.Tags)
				}
				writeJSON(w, models.CreateReelResponse{
					Reel:          models.Reel{ID: "r1", Title: req.Title},
					ProcessingJob: &models.ProcessingJob{ID: "j1", Status: models.JobQueued},
				})
			},
		}))

		resp, err := api.Create(ctx, models.CreateReelRequest{UploadID: "u1", Title: "Spindle setup", Tags: []string{"Spindle, setup", "spindle"}})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if resp.Reel.ID != "r1" || resp.ProcessingJob.ID != "j1" {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("Create Rejects Invalid Input", func(t *testing.T) {
		api := NewReelsAPI(NewAPIService("http://example.invalid", nil, nil))

		if _, err := api.Create(ctx, models.CreateReelRequest{UploadID: "u1"}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("missing title: expected ErrInvalidInput, got %v", err)
		}
		if _, err := api.Create(ctx, models.CreateReelRequest{UploadID: "u1", Title: "x", Privacy: "secret"}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("bad privacy: expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Get Delete Search", func(t *testing.T) {
		deleted := false
		api := NewReelsAPI(backend(t, map[string]http.HandlerFunc{
			"GET /reels/{id}": func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, models.GetReelResponse{Reel: models.Reel{ID: r.PathValue("id")}, PlaybackURL: "https://cdn/r1"})
			},
			"DELETE /reels/{id}": func(w http.ResponseWriter, r *http.Request) {
				deleted = true
			},
			"POST /reels/search": func(w http.ResponseWriter, r *http.Request) {
				var f models.SearchFilters
				json.NewDecoder(r.Body).Decode(&f)
				writeJSON(w, models.SearchResult{Reels: []models.Reel{{ID: "r1", Title: f.Query}}, Total: 1})
			},
		}))

		got, err := api.Get(ctx, "r1")
		if err != nil || got.Reel.ID != "r1" || got.PlaybackURL == "" {
			t.Errorf("get: %+v %v", got, err)
		}
		if err := api.Delete(ctx, "r1"); err != nil || !deleted {
			t.Errorf("delete: %v", err)
		}
		res, err := api.Search(ctx, models.SearchFilters{Query: "spindle"})
		if err != nil || res.Total != 1 || res.Reels[0].Title != "spindle" {
			t.Errorf("search: %+v %v", res, err)
		}
	})
}

func TestAuthAPI(t *testing.T) {
	ctx := context.Background()

	newAuth := func(t *testing.T, store TokenStore) *AuthAPI {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				t.Error("login must not send a bearer token")
			}
			var req models.LoginRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Password != "hunter2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, models.LoginResponse{User: models.User{ID: "u1", Email: req.Email}, Token: "opaque"})
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)
		return NewAuthAPI(NewAPIService(server.URL, nil, store))
	}

	t.Run("Login Stores Token", func(t *testing.T) {
		store := &MemoryTokenStore{}
		auth := newAuth(t, store)

		user, err := auth.Login(ctx, "tech@example.com", "hunter2")
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if user.Email != "tech@example.com" {
			t.Errorf("unexpected user %+v", user)
		}

		session, err := auth.Session()
		if err != nil || session.AccessToken != "opaque" || session.User.ID != "u1" {
			t.Errorf("session: %+v %v", session, err)
		}

		if err := auth.Logout(); err != nil {
			t.Fatalf("logout: %v", err)
		}
		if _, err := auth.Session(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated after logout, got %v", err)
		}
	})

	t.Run("Invalid Credentials", func(t *testing.T) {
		_, err := newAuth(t, &MemoryTokenStore{}).Login(ctx, "tech@example.com", "wrong")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Missing Arguments", func(t *testing.T) {
		_, err := newAuth(t, &MemoryTokenStore{}).Login(ctx, "", "")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}
