package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/AnshRaj112/mooddrop-backend/internal/community"
	"github.com/AnshRaj112/mooddrop-backend/internal/middleware"
	"github.com/AnshRaj112/mooddrop-backend/internal/services"
)

const maxJSONBody = 64 << 10

// API holds what the HTTP handlers need.
type API struct {
	Devices *services.Devices
	Feed    *community.Feed
	Hub     *community.Hub
	Log     *slog.Logger
}

func NewAPI(devices *services.Devices, feed *community.Feed, hub *community.Hub, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{Devices: devices, Feed: feed, Hub: hub, Log: logger}
}

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

// decodeJSON reads a small JSON body into dest. An empty body leaves dest
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// device returns the caller's device. Routes using it sit behind
// middleware.DeviceID.
func (a *API) device(w http.ResponseWriter, r *http.Request) (*services.Device, bool) {
	id, ok := middleware.DeviceIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "A valid X-Device-ID header is required")
		return nil, false
	}
	return a.Devices.Get(id), true
}

// Health answers liveness probes.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}
