package models

import "time"

// EchoType is the kind of a released echo. It never changes after creation.
type EchoType string

const (
	EchoTypeText  EchoType = "text"
	EchoTypeVoice EchoType = "voice"
)

// Valid reports whether t is a known echo type.
func (t EchoType) Valid() bool {
	return t == EchoTypeText || t == EchoTypeVoice
}

// AudioPayload carries a voice recording. Data is the base64 form of the
// recording. LegacyURL is only set for records written before recordings were
// persisted inline and is not guaranteed to resolve after a reload.
type AudioPayload struct {
	Data       string `json:"data,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
	LegacyURL  string `json:"legacyUrl,omitempty"`
}

// EchoItem is one user-authored release kept in the Echo Vault.
type EchoItem struct {
	ID        string        `json:"id"`
	Type      EchoType      `json:"type"`
	Mood      string        `json:"mood,omitempty"`
	Content   string        `json:"content,omitempty"`
	Audio     *AudioPayload `json:"audio,omitempty"`
	TuckedAt  *time.Time    `json:"tuckedAt,omitempty"`
	DeletedAt *time.Time    `json:"deletedAt,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// IsDeleted reports whether the echo is pending permanent removal.
func (e EchoItem) IsDeleted() bool { return e.DeletedAt != nil }

// IsTucked reports whether the echo sits in the archive. A deleted echo is
// never considered tucked.
func (e EchoItem) IsTucked() bool { return e.TuckedAt != nil && e.DeletedAt == nil }

// IsActive reports whether the echo belongs in the pond.
func (e EchoItem) IsActive() bool { return e.TuckedAt == nil && e.DeletedAt == nil }
