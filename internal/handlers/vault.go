package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/internal/codec"
	"github.com/AnshRaj112/mooddrop-backend/internal/layout"
	"github.com/AnshRaj112/mooddrop-backend/internal/models"
	"github.com/AnshRaj112/mooddrop-backend/internal/services"
	"github.com/AnshRaj112/mooddrop-backend/internal/undo"
	"github.com/AnshRaj112/mooddrop-backend/internal/vault"
	"github.com/go-chi/chi/v5"
)

const (
	maxAudioUpload     = 10 << 20
	defaultMinDistance = 12.0
)

var errMissingAudio = errors.New("handlers: missing audio upload")

// CreateEchoRequest is the JSON form of a text release.
type CreateEchoRequest struct {
	Mood    string `json:"mood"`
	Content string `json:"content"`
	Share   bool   `json:"share"`
}

// PatchEchoRequest changes mood and/or content. Absent fields are kept.
type PatchEchoRequest struct {
	Mood    *string `json:"mood"`
	Content *string `json:"content"`
}

type VaultResponse struct {
	Success bool              `json:"success"`
	Pond    []models.EchoItem `json:"pond"`
	Archive []models.EchoItem `json:"archive"`
	Toast   *undo.Toast       `json:"toast,omitempty"`
}

type EchoResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Echo    models.EchoItem `json:"echo"`
}

type ActionResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Toast   *undo.Toast `json:"toast,omitempty"`
}

type LayoutResponse struct {
	Success   bool                       `json:"success"`
	Positions map[string]layout.Position `json:"positions"`
}

// ListEchoes returns the pond, the archive and any pending undo toast.
func (a *API) ListEchoes(w http.ResponseWriter, r *http.Request) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}
	view := dev.Vault.Load(r.Context())
	writeJSON(w, http.StatusOK, VaultResponse{Success: true, Pond: view.Pond, Archive: view.Archive, Toast: view.Toast})
}

// CreateEcho saves a text echo from JSON, or a voice echo from a multipart
// form with an "audio" file.
func (a *API) CreateEcho(w http.ResponseWriter, r *http.Request) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}

	var (
		item models.EchoItem
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		item, err = releaseVoice(w, r, dev.Vault)
	} else {
		var req CreateEchoRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		item, err = dev.Vault.ReleaseText(r.Context(), req.Mood, req.Content, req.Share)
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, EchoResponse{Success: true, Message: "Echo released into the pond", Echo: item})
	case errors.Is(err, errMissingAudio):
		writeError(w, http.StatusBadRequest, "An audio file is required")
	case errors.Is(err, vault.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, "Content is required")
	case errors.Is(err, codec.ErrEncodeFailed):
		writeError(w, http.StatusBadRequest, "Could not read the recording")
	default:
		a.Log.ErrorContext(r.Context(), "handlers: create echo failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save echo")
	}
}

func releaseVoice(w http.ResponseWriter, r *http.Request, s *services.VaultSession) (models.EchoItem, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUpload)
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		return models.EchoItem{}, errMissingAudio
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		return models.EchoItem{}, errMissingAudio
	}
	defer file.Close()

	mime := r.FormValue("mimeType")
	if mime == "" {
		mime = header.Header.Get("Content-Type")
	}
	durationMs, _ := strconv.ParseInt(r.FormValue("durationMs"), 10, 64)
	share, _ := strconv.ParseBool(r.FormValue("share"))

	return s.ReleaseVoice(r.Context(), vault.VoiceInput{
		Mood:     r.FormValue("mood"),
		Content:  r.FormValue("content"),
		Audio:    file,
		MimeType: mime,
		Duration: time.Duration(durationMs) * time.Millisecond,
	}, share)
}

// PatchEcho edits an echo's mood or content.
func (a *API) PatchEcho(w http.ResponseWriter, r *http.Request) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}
	var req PatchEchoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !dev.Vault.Edit(r.Context(), chi.URLParam(r, "id"), req.Mood, req.Content) {
		writeError(w, http.StatusNotFound, "Echo not found")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Echo updated"})
}

func (a *API) vaultAction(w http.ResponseWriter, r *http.Request, act func(*services.VaultSession, string) bool) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}
	if !act(dev.Vault, chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "Echo not found")
		return
	}
	resp := ActionResponse{Success: true}
	if toast, ok := dev.Vault.Toast(); ok {
		resp.Message = toast.Message
		resp.Toast = &toast
	}
	writeJSON(w, http.StatusOK, resp)
}

// TuckEcho moves an echo to the archive.
func (a *API) TuckEcho(w http.ResponseWriter, r *http.Request) {
	a.vaultAction(w, r, func(s *services.VaultSession, id string) bool { return s.Tuck(r.Context(), id) })
}

// UntuckEcho returns an echo to the pond.
func (a *API) UntuckEcho(w http.ResponseWriter, r *http.Request) {
	a.vaultAction(w, r, func(s *services.VaultSession, id string) bool { return s.Untuck(r.Context(), id) })
}

// DeleteEcho releases an echo. It can be undone until the toast expires.
func (a *API) DeleteEcho(w http.ResponseWriter, r *http.Request) {
	a.vaultAction(w, r, func(s *services.VaultSession, id string) bool { return s.Delete(r.Context(), id) })
}

// UndoVault reverses the pending action.
func (a *API) UndoVault(w http.ResponseWriter, r *http.Request) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}
	if !dev.Vault.Undo() {
		writeError(w, http.StatusConflict, "Nothing to undo")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Undone"})
}

// ClearVault removes every echo of the device.
func (a *API) ClearVault(w http.ResponseWriter, r *http.Request) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}
	dev.Vault.ClearAll(r.Context())
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Vault cleared"})
}

// VaultLayout places the pond echoes. ?min_distance overrides the spacing.
func (a *API) VaultLayout(w http.ResponseWriter, r *http.Request) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}
	minDistance := defaultMinDistance
	if raw := r.URL.Query().Get("min_distance"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 100 {
			writeError(w, http.StatusBadRequest, "min_distance must be between 0 and 100")
			return
		}
		minDistance = v
	}
	writeJSON(w, http.StatusOK, LayoutResponse{Success: true, Positions: dev.Vault.Layout(r.Context(), minDistance)})
}
