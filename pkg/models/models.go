package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account created through OAuth sign-in. Email is the
// stable key the OAuth callback upserts on; FullName and AvatarURL come from
// the provider's userinfo response.
type User struct {
	ID        UserID    `gorm:"type:uuid;primary_key" json:"id"`
	Email     string    `gorm:"unique;not null" json:"email"`
	FullName  string    `gorm:"not null" json:"full_name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID.IsZero() {
		u.ID = NewUserID()
	}
	return nil
}

// Note is a durable note row. Content is an opaque marked-up blob produced by
// the editor widget; the server never interprets it. PublicID is set only
// while the note is shared and is never reused: unsharing clears it and a
// fresh share mints a new token.
type Note struct {
	ID        NoteID    `gorm:"type:uuid;primary_key" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	UserID    UserID    `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"-"`
	IsPublic  bool      `json:"is_public,omitempty"`
	PublicID  *string   `gorm:"uniqueIndex" json:"public_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// AuthorName is populated only on public reads, where the note is joined
	// with its owner's display name. It is not a column.
	AuthorName string `gorm:"->;-:migration" json:"author_name,omitempty"`
}

// BeforeCreate hook to generate ID if not set
func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID.IsZero() {
		n.ID = NewNoteID()
	}
	return nil
}

// DraftNote is a note that exists only in the local draft store, created
// before the user authenticated. Its ID comes from [NewDraftID] and its
// timestamps are client-assigned; both are discarded when the draft is
// migrated into the durable store.
type DraftNote struct {
	ID        string    `json:"id" cbor:"id"`
	Title     string    `json:"title" cbor:"title"`
	Content   string    `json:"content" cbor:"content"`
	CreatedAt time.Time `json:"created_at" cbor:"created_at"`
	UpdatedAt time.Time `json:"updated_at" cbor:"updated_at"`
}

// Identity describes the authenticated user as the sync engine and UI need
// it. A nil *Identity means no user is present.
type Identity struct {
	ID          UserID
	DisplayName string
	AvatarURL   string
}

// LeaderboardEntry is one row of the public leaderboard: users ranked by how
// many notes they own, ties broken by display name.
type LeaderboardEntry struct {
	ID        UserID `json:"id"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	NoteCount int64  `json:"note_count"`
}

// SharedNote is the result of sharing a note: the updated row plus the
// absolute URL and the bare token the UI offers for copying.
type SharedNote struct {
	Note      *Note  `json:"note"`
	PublicURL string `json:"publicUrl"`
	PublicID  string `json:"publicId"`
}

// NoteOrDraft is the tagged union the note list and the sync engine consume:
// either a durable *Note or a local *DraftNote, never both and never neither.
// Construct values only through [DurableEntry] and [DraftEntry] so the
// invariant holds by construction.
type NoteOrDraft struct {
	note  *Note
	draft *DraftNote
}

// DurableEntry wraps a durable note. Panics on nil: a union arm must exist.
func DurableEntry(n *Note) NoteOrDraft {
	if n == nil {
		panic("models: DurableEntry called with nil note")
	}
	return NoteOrDraft{note: n}
}

// DraftEntry wraps a local draft. Panics on nil: a union arm must exist.
func DraftEntry(d *DraftNote) NoteOrDraft {
	if d == nil {
		panic("models: DraftEntry called with nil draft")
	}
	return NoteOrDraft{draft: d}
}

// IsZero reports whether the union holds neither arm (its zero value).
func (e NoteOrDraft) IsZero() bool { return e.note == nil && e.draft == nil }

// IsDraft reports which arm of the union is populated.
func (e NoteOrDraft) IsDraft() bool { return e.draft != nil }

// Note returns the durable arm, or nil and false for a draft entry.
func (e NoteOrDraft) Note() (*Note, bool) { return e.note, e.note != nil }

// Draft returns the draft arm, or nil and false for a durable entry.
func (e NoteOrDraft) Draft() (*DraftNote, bool) { return e.draft, e.draft != nil }

// ID returns the identifier of whichever arm is populated: the NoteID string
// for durable notes, the draft ID for drafts. Zero unions return "".
func (e NoteOrDraft) ID() string {
	switch {
	case e.note != nil:
		return e.note.ID.String()
	case e.draft != nil:
		return e.draft.ID
	default:
		return ""
	}
}

// Title returns the title of whichever arm is populated.
func (e NoteOrDraft) Title() string {
	if e.note != nil {
		return e.note.Title
	}
	if e.draft != nil {
		return e.draft.Title
	}
	return ""
}

// Content returns the content of whichever arm is populated.
func (e NoteOrDraft) Content() string {
	if e.note != nil {
		return e.note.Content
	}
	if e.draft != nil {
		return e.draft.Content
	}
	return ""
}

// PendingChange is the buffered edit set for the currently selected note: an
// optional title replacement and an optional content replacement. A nil field
// means "leave that field alone".
type PendingChange struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// IsEmpty reports whether no field is pending.
func (p PendingChange) IsEmpty() bool {
	return p.Title == nil && p.Content == nil
}

// Merge folds a later change into p, field-wise, last write wins per field.
func (p *PendingChange) Merge(next PendingChange) {
	if next.Title != nil {
		p.Title = next.Title
	}
	if next.Content != nil {
		p.Content = next.Content
	}
}

// TitleChange returns a PendingChange that replaces only the title.
func TitleChange(title string) PendingChange {
	return PendingChange{Title: &title}
}

// ContentChange returns a PendingChange that replaces only the content.
func ContentChange(content string) PendingChange {
	return PendingChange{Content: &content}
}
