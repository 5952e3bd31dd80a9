// Package store defines the durable persistence interface for inkpad.
//
// The [Store] interface is the server's single seam to its relational
// database. Two implementations exist:
//
//   - [github.com/inkpad/inkpad/pkg/store/postgres.Store]: GORM-backed
//     PostgreSQL storage, the production configuration.
//   - [github.com/inkpad/inkpad/pkg/store/memory.Store]: a map-backed
//     double for tests and dependency-free local runs.
//
// The local draft store deliberately does NOT implement this interface: it is
// a different kind of storage (browser-local, unauthenticated, ephemeral)
// with its own narrower API in
// [github.com/inkpad/inkpad/pkg/store/draft].
//
// Conventions, shared by all implementations:
//
//   - Get methods return (nil, nil) for missing rows; only infrastructure
//     failures produce errors.
//   - List methods return empty slices, never nil, for no results.
//   - All methods take a context and respect its cancellation.
//   - DeleteNote is scoped to the owner and silently no-ops when the note
//     exists but belongs to someone else.
package store

import (
	"context"

	"github.com/inkpad/inkpad/pkg/models"
)

// Store is the durable persistence interface for users, notes, sharing, and
// the leaderboard.
type Store interface {
	// Migrate creates or updates the backing schema. Safe to run repeatedly.
	Migrate(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error

	// CreateUser persists a new user, generating its ID when zero.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUser returns the user with the given ID, or (nil, nil) if absent.
	GetUser(ctx context.Context, id models.UserID) (*models.User, error)

	// GetUserByEmail returns the user with the given email, or (nil, nil).
	// Email is the stable key OAuth sign-in upserts on.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateUser replaces the stored user record.
	UpdateUser(ctx context.Context, user *models.User) error

	// CreateNote persists a new note, generating its ID when zero.
	CreateNote(ctx context.Context, note *models.Note) error

	// GetNote returns the note with the given ID, or (nil, nil) if absent.
	GetNote(ctx context.Context, id models.NoteID) (*models.Note, error)

	// ListNotes returns all notes owned by the user, newest created first.
	ListNotes(ctx context.Context, owner models.UserID) ([]*models.Note, error)

	// UpdateNoteFields applies a partial update (absent fields untouched) and
	// returns the stored row after the update. Returns (nil, nil) when the
	// note does not exist.
	UpdateNoteFields(ctx context.Context, id models.NoteID, change models.PendingChange) (*models.Note, error)

	// SetNoteSharing sets or clears the note's public visibility. A non-nil
	// publicID marks the note public under that token; nil clears both the
	// token and the flag. Returns the stored row, or (nil, nil) when absent.
	SetNoteSharing(ctx context.Context, id models.NoteID, publicID *string) (*models.Note, error)

	// DeleteNote removes the note only when it is owned by owner. Deleting a
	// missing note or someone else's note is a silent no-op.
	DeleteNote(ctx context.Context, id models.NoteID, owner models.UserID) error

	// GetPublicNote returns the note shared under publicID with its author's
	// display name attached, or (nil, nil) when no currently-public note
	// carries that token. Revoked tokens therefore read as absent.
	GetPublicNote(ctx context.Context, publicID string) (*models.Note, error)

	// Leaderboard returns every user ranked by owned note count descending,
	// ties broken by display name ascending.
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error)
}
