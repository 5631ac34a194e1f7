package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/AnshRaj112/mooddrop-backend/internal/community"
	"github.com/AnshRaj112/mooddrop-backend/internal/models"
	"github.com/AnshRaj112/mooddrop-backend/internal/moderation"
	"github.com/go-chi/chi/v5"
)

type IdentityResponse struct {
	Success bool   `json:"success"`
	Name    string `json:"name"`
}

type PostDropRequest struct {
	Text string `json:"text"`
	Mood string `json:"mood"`
}

type ReplyRequest struct {
	Text string `json:"text"`
}

type ReactRequest struct {
	Kind models.ReactionKind `json:"kind"`
}

type DropsResponse struct {
	Success bool          `json:"success"`
	Drops   []models.Drop `json:"drops"`
}

type DropResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Drop    models.Drop `json:"drop"`
}

type ReplyResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Reply   models.Reply `json:"reply"`
}

// CooldownResponse tells the client how long to wait before posting again.
type CooldownResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Class        string `json:"class"`
	RetryAfterMs int64  `json:"retry_after_ms"`
}

// ContentResponse rejects flagged text. Self-harm rejections point to
// support instead of scolding.
type ContentResponse struct {
	Success  bool                `json:"success"`
	Message  string              `json:"message"`
	Category moderation.Category `json:"category"`
}

// GetIdentity returns the device pseudonym.
func (a *API) GetIdentity(w http.ResponseWriter, r *http.Request) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, IdentityResponse{Success: true, Name: dev.Member.Identity.Get(r.Context())})
}

// RefreshIdentity picks a new pseudonym.
func (a *API) RefreshIdentity(w http.ResponseWriter, r *http.Request) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, IdentityResponse{Success: true, Name: dev.Member.Identity.Refresh(r.Context())})
}

// ListDrops returns the community feed, newest first.
func (a *API) ListDrops(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DropsResponse{Success: true, Drops: a.Feed.List(r.Context())})
}

// PostDrop shares a drop under the device pseudonym.
func (a *API) PostDrop(w http.ResponseWriter, r *http.Request) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}
	var req PostDropRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	drop, err := a.Feed.Post(r.Context(), dev.Member, req.Text, req.Mood)
	if err != nil {
		a.communityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, DropResponse{Success: true, Message: "Drop shared", Drop: drop})
}

// ReplyToDrop attaches a reply to a drop.
func (a *API) ReplyToDrop(w http.ResponseWriter, r *http.Request) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}
	var req ReplyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reply, err := a.Feed.Reply(r.Context(), dev.Member, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		a.communityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ReplyResponse{Success: true, Message: "Reply sent", Reply: reply})
}

// ReactToDrop adds one reaction to a drop.
func (a *API) ReactToDrop(w http.ResponseWriter, r *http.Request) {
	var req ReactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	drop, err := a.Feed.React(r.Context(), chi.URLParam(r, "id"), req.Kind)
	if err != nil {
		a.communityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DropResponse{Success: true, Drop: drop})
}

func (a *API) communityError(w http.ResponseWriter, r *http.Request, err error) {
	var cooldown *community.CooldownError
	var content *community.ContentError

	switch {
	case errors.As(err, &cooldown):
		ms := cooldown.Remaining.Milliseconds()
		w.Header().Set("Retry-After", strconv.FormatInt((ms+999)/1000, 10))
		writeJSON(w, http.StatusTooManyRequests, CooldownResponse{
			Success:      false,
			Message:      "Take a breath. You can share again in a moment.",
			Class:        string(cooldown.Class),
			RetryAfterMs: ms,
		})
	case errors.As(err, &content):
		msg := "This drop can't be shared. Please keep the pond kind."
		if content.Category == moderation.CategorySelfHarm {
			msg = "It sounds like you're carrying a lot. You don't have to go through it alone; please reach out to someone you trust or a local helpline."
		}
		writeJSON(w, http.StatusUnprocessableEntity, ContentResponse{Success: false, Message: msg, Category: content.Category})
	case errors.Is(err, community.ErrDropNotFound):
		writeError(w, http.StatusNotFound, "Drop not found")
	case errors.Is(err, community.ErrEmptyText):
		writeError(w, http.StatusBadRequest, "Text is required")
	case errors.Is(err, community.ErrTextTooLong):
		writeError(w, http.StatusBadRequest, "Text is too long")
	case errors.Is(err, community.ErrUnknownReaction):
		writeError(w, http.StatusBadRequest, "Unknown reaction")
	default:
		a.Log.ErrorContext(r.Context(), "handlers: community request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
	}
}
