package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/internal/models"
)

const insightsDayLayout = "2006-01-02"

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type MoodCount struct {
	Mood  string `json:"mood"`
	Count int    `json:"count"`
}

// MoodInsights summarises a device's live echoes over a date range.
type MoodInsights struct {
	From       string      `json:"from"`
	To         string      `json:"to"`
	Total      int         `json:"total"`
	Voice      int         `json:"voice"`
	Tucked     int         `json:"tucked"`
	PerDay     []DayCount  `json:"perDay"`
	TopMoods   []MoodCount `json:"topMoods"`
	Unlabelled int         `json:"unlabelled"`
}

// BuildInsights counts echoes created in [from, to] (whole UTC days).
// Moods are grouped case-insensitively under their first spelling.
func BuildInsights(items []models.EchoItem, from, to time.Time) MoodInsights {
	from = from.UTC().Truncate(24 * time.Hour)
	to = to.UTC().Truncate(24 * time.Hour)
	if from.After(to) {
		from, to = to, from
	}
	toEnd := to.AddDate(0, 0, 1)

	out := MoodInsights{
		From:     from.Format(insightsDayLayout),
		To:       to.Format(insightsDayLayout),
		PerDay:   make([]DayCount, 0),
		TopMoods: make([]MoodCount, 0),
	}
	perDay := make(map[string]int)
	moodIdx := make(map[string]int)

	for _, it := range items {
		if it.IsDeleted() || it.CreatedAt.Before(from) || !it.CreatedAt.Before(toEnd) {
			continue
		}
		out.Total++
		if it.Type == models.EchoTypeVoice {
			out.Voice++
		}
		if it.IsTucked() {
			out.Tucked++
		}
		perDay[it.CreatedAt.UTC().Format(insightsDayLayout)]++

		mood := strings.TrimSpace(it.Mood)
		if mood == "" {
			out.Unlabelled++
			continue
		}
		key := strings.ToLower(mood)
		if i, ok := moodIdx[key]; ok {
			out.TopMoods[i].Count++
		} else {
			moodIdx[key] = len(out.TopMoods)
			out.TopMoods = append(out.TopMoods, MoodCount{Mood: mood, Count: 1})
		}
	}

	for d, c := range perDay {
		out.PerDay = append(out.PerDay, DayCount{Date: d, Count: c})
	}
	slices.SortFunc(out.PerDay, func(a, b DayCount) int { return strings.Compare(a.Date, b.Date) })
	slices.SortStableFunc(out.TopMoods, func(a, b MoodCount) int { return b.Count - a.Count })
	return out
}

// Insights summarises the device's echoes between from and to.
func (s *VaultSession) Insights(ctx context.Context, from, to time.Time) MoodInsights {
	return BuildInsights(s.vault.All(ctx), from, to)
}
