package models

import "time"

// ReactionKind is one of the fixed reactions a drop can receive.
type ReactionKind string

const (
	ReactionHug     ReactionKind = "hug"
	ReactionRelate  ReactionKind = "relate"
	ReactionSupport ReactionKind = "support"
)

// ReactionKinds lists the accepted reactions in display order.
var ReactionKinds = []ReactionKind{ReactionHug, ReactionRelate, ReactionSupport}

// Valid reports whether k is an accepted reaction.
func (k ReactionKind) Valid() bool {
	for _, kind := range ReactionKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Drop is an anonymous post in the community feed.
type Drop struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Text      string               `json:"text"`
	Mood      string               `json:"mood,omitempty"`
	Reactions map[ReactionKind]int `json:"reactions"`
	Replies   []Reply              `json:"replies,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

// Reply is a short answer attached to a drop.
type Reply struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
