package handlers

import (
	"errors"
	"net/http"

	"github.com/AnshRaj112/mooddrop-backend/internal/models"
	"github.com/AnshRaj112/mooddrop-backend/internal/notes"
	"github.com/go-chi/chi/v5"
)

type CreateNoteRequest struct {
	Text string `json:"text"`
}

type NotesResponse struct {
	Success bool          `json:"success"`
	Notes   []models.Note `json:"notes"`
}

type NoteResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Note    models.Note `json:"note"`
}

func (a *API) ListNotes(w http.ResponseWriter, r *http.Request) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, NotesResponse{Success: true, Notes: dev.Notes.List(r.Context())})
}

func (a *API) CreateNote(w http.ResponseWriter, r *http.Request) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := dev.Notes.Add(r.Context(), req.Text)
	switch {
	case errors.Is(err, notes.ErrEmpty):
		writeError(w, http.StatusBadRequest, "Text is required")
	case errors.Is(err, notes.ErrTooLong):
		writeError(w, http.StatusBadRequest, "Note is too long")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to save note")
	default:
		writeJSON(w, http.StatusCreated, NoteResponse{Success: true, Message: "Note saved", Note: note})
	}
}

func (a *API) DeleteNote(w http.ResponseWriter, r *http.Request) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}
	if !dev.Notes.Delete(r.Context(), chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "Note not found")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Note deleted"})
}
