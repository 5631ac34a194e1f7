// Package notes keeps short private notes for a device.
package notes

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/internal/kvstore"
	"github.com/AnshRaj112/mooddrop-backend/internal/models"
	"github.com/google/uuid"
)

const (
	StorageKey = "mooddrop:notes"
	MaxLength  = 1000
)

var (
	ErrEmpty   = errors.New("notes: text is empty")
	ErrTooLong = errors.New("notes: text is too long")
)

type Store struct {
	mu    sync.Mutex
	list  *kvstore.List[models.Note]
	now   func() time.Time
	newID func() string
}

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithIDGenerator(gen func() string) Option { return func(s *Store) { s.newID = gen } }

func New(store kvstore.Store, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		list:  kvstore.NewList[models.Note](kvstore.NewAdapter(store, logger), StorageKey),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Add(ctx context.Context, text string) (models.Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Note{}, ErrEmpty
	}
	if len([]rune(text)) > MaxLength {
		return models.Note{}, ErrTooLong
	}
	note := models.Note{ID: s.newID(), Text: text, CreatedAt: s.now().UTC()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.Write(ctx, append([]models.Note{note}, s.list.Read(ctx)...))
	return note, nil
}

// List returns notes newest first.
func (s *Store) List(ctx context.Context) []models.Note {
	s.mu.Lock()
	notes := s.list.Read(ctx)
	s.mu.Unlock()

	slices.SortStableFunc(notes, func(a, b models.Note) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return notes
}

// Delete removes a note and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes := s.list.Read(ctx)
	before := len(notes)
	kept := slices.DeleteFunc(notes, func(n models.Note) bool { return n.ID == id })
	if len(kept) == before {
		return false
	}
	s.list.Write(ctx, kept)
	return true
}
