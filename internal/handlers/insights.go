package handlers

import (
	"net/http"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/internal/services"
)

type InsightsResponse struct {
	Success  bool                  `json:"success"`
	Insights services.MoodInsights `json:"insights"`
}

// GetInsights returns mood counts for the device (?from=YYYY-MM-DD&to=YYYY-MM-DD, default last 30 days).
func (a *API) GetInsights(w http.ResponseWriter, r *http.Request) {
	dev, ok := a.device(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	to := now
	from := now.AddDate(0, 0, -30)
	if s := r.URL.Query().Get("from"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			from = t
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			to = t
		}
	}

	writeJSON(w, http.StatusOK, InsightsResponse{Success: true, Insights: dev.Vault.Insights(r.Context(), from, to)})
}
