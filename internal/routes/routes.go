package routes

import (
	"github.com/AnshRaj112/mooddrop-backend/internal/handlers"
	"github.com/AnshRaj112/mooddrop-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(r chi.Router, api *handlers.API) {
	// Health check and public feed reads
	r.Get("/health", handlers.Health)
	r.Get("/api/drops", api.ListDrops)

	// Realtime feed (new drops, replies, reactions)
	r.Get("/ws/drops", api.DropsWebSocket)

	// Everything below is scoped to the caller's device
	r.Group(func(r chi.Router) {
		r.Use(middleware.DeviceID)

		// Echo Vault
		r.Get("/api/vault/echoes", api.ListEchoes)
		r.Post("/api/vault/echoes", api.CreateEcho)
		r.Patch("/api/vault/echoes/{id}", api.PatchEcho)
		r.Delete("/api/vault/echoes/{id}", api.DeleteEcho)
		r.Post("/api/vault/echoes/{id}/tuck", api.TuckEcho)
		r.Post("/api/vault/echoes/{id}/untuck", api.UntuckEcho)
		r.Post("/api/vault/undo", api.UndoVault)
		r.Delete("/api/vault", api.ClearVault)
		r.Get("/api/vault/layout", api.VaultLayout)
		r.Get("/api/vault/insights", api.GetInsights)

		// Anonymous identity
		r.Get("/api/identity", api.GetIdentity)
		r.Post("/api/identity/refresh", api.RefreshIdentity)

		// Community feed writes
		r.Post("/api/drops", api.PostDrop)
		r.Post("/api/drops/{id}/replies", api.ReplyToDrop)
		r.Post("/api/drops/{id}/reactions", api.ReactToDrop)

		// Private notes
		r.Get("/api/notes", api.ListNotes)
		r.Post("/api/notes", api.CreateNote)
		r.Delete("/api/notes/{id}", api.DeleteNote)
	})
}
