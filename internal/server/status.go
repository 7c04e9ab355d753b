package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/desertthunder/reels/internal/models"
)

// UploadSource is the read side of the upload manager.
type UploadSource interface {
	Uploads() []models.VideoUpload
	GetUploadStatus(id string) (models.VideoUpload, bool)
	Capacity() (available, waiting int)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Active    int       `json:"activeUploads"`
	Available int       `json:"availableSlots"`
	Waiting   int       `json:"waitingChunks"`
	Time      time.Time `json:"time"`
}

// StatusHandler serves live upload state from an [UploadSource] as JSON.
type StatusHandler struct {
	source UploadSource
	now    func() time.Time
}

// NewStatusHandler creates a [StatusHandler] for source.
func NewStatusHandler(source UploadSource) *StatusHandler {
	return &StatusHandler{source: source, now: time.Now}
}

// Routes implements [Handler].
func (h *StatusHandler) Routes() []string {
	return []string{"GET /uploads", "GET /uploads/{id}", "GET /health"}
}

// ServeHTTP dispatches on the matched pattern.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Pattern {
	case "GET /uploads":
		h.list(w)
	case "GET /uploads/{id}":
		h.get(w, r.PathValue("id"))
	case "GET /health":
		h.health(w)
	default:
		http.NotFound(w, r)
	}
}

func (h *StatusHandler) list(w http.ResponseWriter) {
	uploads := h.source.Uploads()
	sort.Slice(uploads, func(i, j int) bool { return uploads[i].ID < uploads[j].ID })
	writeJSON(w, http.StatusOK, uploads)
}

func (h *StatusHandler) get(w http.ResponseWriter, id string) {
	u, ok := h.source.GetUploadStatus(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "upload not found: " + id})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *StatusHandler) health(w http.ResponseWriter) {
	available, waiting := h.source.Capacity()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Active:    len(h.source.Uploads()),
		Available: available,
		Waiting:   waiting,
		Time:      h.now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NewStatusRouter builds a router serving source with logging and panic recovery.
func NewStatusRouter(source UploadSource, mw ...Middleware) *BasicRouter {
	r := NewBasicRouter()
	r.Use(mw...)
	r.Handler(NewStatusHandler(source))
	return r
}
