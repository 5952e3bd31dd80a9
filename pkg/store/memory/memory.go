// Package memory implements [github.com/inkpad/inkpad/pkg/store.Store] on
// in-process maps. It backs handler and engine tests and the -memory run
// flag, trading durability for a dependency-free setup. Semantics track the
// postgres implementation: missing rows read as (nil, nil), deletes are
// owner-scoped, revoked public tokens read as absent.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/inkpad/inkpad/pkg/models"
	"github.com/inkpad/inkpad/pkg/store"
)

// Store is a map-backed store.Store. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	users map[string]*models.User
	notes map[string]*models.Note
}

// New returns an empty in-memory store.
func New() store.Store {
	return &Store{
		users: map[string]*models.User{},
		notes: map[string]*models.Note{},
	}
}

func (s *Store) Migrate(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func copyNote(n *models.Note) *models.Note {
	c := *n
	if n.PublicID != nil {
		pid := *n.PublicID
		c.PublicID = &pid
	}
	return &c
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID.String()] = copyUser(user)
	return nil
}

func (s *Store) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id.String()]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.UpdatedAt = time.Now()
	s.users[user.ID.String()] = copyUser(user)
	return nil
}

func (s *Store) CreateNote(ctx context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if note.ID.IsZero() {
		note.ID = models.NewNoteID()
	}
	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now
	s.notes[note.ID.String()] = copyNote(note)
	return nil
}

func (s *Store) GetNote(ctx context.Context, id models.NoteID) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id.String()]
	if !ok {
		return nil, nil
	}
	return copyNote(n), nil
}

func (s *Store) ListNotes(ctx context.Context, owner models.UserID) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notes := []*models.Note{}
	for _, n := range s.notes {
		if n.UserID == owner {
			notes = append(notes, copyNote(n))
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	return notes, nil
}

func (s *Store) UpdateNoteFields(ctx context.Context, id models.NoteID, change models.PendingChange) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id.String()]
	if !ok {
		return nil, nil
	}
	if change.Title != nil {
		n.Title = *change.Title
	}
	if change.Content != nil {
		n.Content = *change.Content
	}
	n.UpdatedAt = time.Now()
	return copyNote(n), nil
}

func (s *Store) SetNoteSharing(ctx context.Context, id models.NoteID, publicID *string) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id.String()]
	if !ok {
		return nil, nil
	}
	if publicID != nil {
		pid := *publicID
		n.IsPublic = true
		n.PublicID = &pid
	} else {
		n.IsPublic = false
		n.PublicID = nil
	}
	n.UpdatedAt = time.Now()
	return copyNote(n), nil
}

func (s *Store) DeleteNote(ctx context.Context, id models.NoteID, owner models.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id.String()]
	if !ok || n.UserID != owner {
		return nil
	}
	delete(s.notes, id.String())
	return nil
}

func (s *Store) GetPublicNote(ctx context.Context, publicID string) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notes {
		if n.IsPublic && n.PublicID != nil && *n.PublicID == publicID {
			c := copyNote(n)
			if u, ok := s.users[n.UserID.String()]; ok {
				c.AuthorName = u.FullName
			}
			return c, nil
		}
	}
	return nil, nil
}

func (s *Store) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := map[string]int64{}
	for _, n := range s.notes {
		counts[n.UserID.String()]++
	}
	entries := []models.LeaderboardEntry{}
	for _, u := range s.users {
		entries = append(entries, models.LeaderboardEntry{
			ID:        u.ID,
			FullName:  u.FullName,
			AvatarURL: u.AvatarURL,
			NoteCount: counts[u.ID.String()],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].NoteCount != entries[j].NoteCount {
			return entries[i].NoteCount > entries[j].NoteCount
		}
		return entries[i].FullName < entries[j].FullName
	})
	return entries, nil
}
