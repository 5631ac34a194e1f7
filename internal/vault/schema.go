package vault

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/internal/models"
)

// SchemaVersion is the version written by this package.
const SchemaVersion = 2

// document is the persisted shape of the vault.
type document struct {
	Version int               `json:"version"`
	Items   []models.EchoItem `json:"items"`
}

// legacyEcho is the version 1 record: a flat object with millisecond
// timestamps and inline audio fields.
type legacyEcho struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Mood            string `json:"mood"`
	Content         string `json:"content"`
	AudioBase64     string `json:"audioBase64"`
	AudioMime       string `json:"audioMime"`
	AudioDurationMs int64  `json:"audioDurationMs"`
	AudioURL        string `json:"audioUrl"`
	TuckedAt        *int64 `json:"tuckedAt"`
	DeletedAt       *int64 `json:"deletedAt"`
	CreatedAt       int64  `json:"createdAt"`
}

func fromMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}

func (l legacyEcho) upgrade() models.EchoItem {
	item := models.EchoItem{
		ID:        l.ID,
		Type:      models.EchoType(l.Type),
		Mood:      l.Mood,
		Content:   l.Content,
		TuckedAt:  fromMillis(l.TuckedAt),
		DeletedAt: fromMillis(l.DeletedAt),
		CreatedAt: time.UnixMilli(l.CreatedAt).UTC(),
	}
	if l.AudioBase64 != "" || l.AudioURL != "" {
		item.Audio = &models.AudioPayload{
			Data:       l.AudioBase64,
			MimeType:   l.AudioMime,
			DurationMs: l.AudioDurationMs,
		}
		if l.AudioBase64 == "" {
			item.Audio.LegacyURL = l.AudioURL
		}
	}
	return item
}

// decode parses a stored vault blob of any known version. migrated is true
// when the blob was not already in the current shape and should be rewritten.
func decode(raw []byte) (items []models.EchoItem, migrated bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, nil
	}

	switch trimmed[0] {
	case '[':
		var legacy []legacyEcho
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, false, fmt.Errorf("decode v1 vault: %w", err)
		}
		items = make([]models.EchoItem, 0, len(legacy))
		for _, l := range legacy {
			items = append(items, l.upgrade())
		}
		return items, true, nil
	case '{':
		var doc document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, false, fmt.Errorf("decode vault: %w", err)
		}
		if doc.Version > SchemaVersion {
			return nil, false, fmt.Errorf("decode vault: unsupported version %d", doc.Version)
		}
		return doc.Items, doc.Version != SchemaVersion, nil
	default:
		return nil, false, fmt.Errorf("decode vault: unexpected payload")
	}
}

// sanitize drops records that cannot be shown or addressed: missing id,
// unknown type, or an id already seen earlier in the list.
func sanitize(items []models.EchoItem) (kept []models.EchoItem, dropped int) {
	seen := make(map[string]struct{}, len(items))
	kept = make([]models.EchoItem, 0, len(items))
	for _, it := range items {
		if it.ID == "" || !it.Type.Valid() {
			dropped++
			continue
		}
		if _, dup := seen[it.ID]; dup {
			dropped++
			continue
		}
		seen[it.ID] = struct{}{}
		kept = append(kept, it)
	}
	return kept, dropped
}
