package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkpad/inkpad/pkg/models"
	"github.com/inkpad/inkpad/pkg/store/draft"
)

// DefaultFlushDelay is the debounce window between the last edit and the
// automatic flush, and also the period of the safety-net tick.
const DefaultFlushDelay = 3 * time.Second

// Status is the session-wide save state shown to the user.
type Status int

const (
	// StatusSynced means no edits are waiting and nothing is in flight.
	StatusSynced Status = iota
	// StatusPending means edits are buffered and a flush is scheduled.
	StatusPending
	// StatusSyncing means a store call is in flight.
	StatusSyncing
)

func (s Status) String() string {
	switch s {
	case StatusSynced:
		return "synced"
	case StatusPending:
		return "pending"
	case StatusSyncing:
		return "syncing"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// RemoteStore is the durable side of the engine. *client.Client satisfies it;
// tests substitute counting fakes.
//
// Beacon is best effort: it returns before any response arrives and gives no
// delivery confirmation. The engine never treats a beacon as persisted data.
type RemoteStore interface {
	ListNotes(ctx context.Context) ([]*models.Note, error)
	CreateNote(ctx context.Context, title, content string) (*models.Note, error)
	UpdateNote(ctx context.Context, id models.NoteID, change models.PendingChange) (*models.Note, error)
	DeleteNote(ctx context.Context, id models.NoteID) error
	ShareNote(ctx context.Context, id models.NoteID) (*models.SharedNote, error)
	UnshareNote(ctx context.Context, id models.NoteID) (*models.Note, error)
	Beacon(id models.NoteID, change models.PendingChange)
}

// Engine coordinates edits between the in-memory note list, the remote API,
// and the local draft store. All exported methods are safe for concurrent
// use; one mutex serializes state transitions, and remote calls run outside
// it against a snapshot of the pending set.
type Engine struct {
	remote     RemoteStore
	drafts     *draft.Store
	log        zerolog.Logger
	flushDelay time.Duration

	mu       stdsync.Mutex
	identity *models.Identity
	notes    []models.NoteOrDraft

	selectedID string
	status     Status

	// pending buffers edits per note. pendingID names the set the debounce
	// timer is armed for; sets under other keys exist only when a flush
	// failed or was in flight when the selection moved on, and they are
	// retried by later flushes. A set is never re-keyed to another note.
	pending   map[string]models.PendingChange
	pendingID string

	// timer is the single debounce timer. Each ScheduleEdit restarts it.
	timer *time.Timer

	// inflight marks a remote update in progress. A flush arriving while one
	// is in flight returns immediately; the in-flight flush follows up on
	// whatever is still pending once the response lands.
	inflight bool
}

// New creates an engine. A non-positive flushDelay selects
// [DefaultFlushDelay].
func New(remote RemoteStore, drafts *draft.Store, log zerolog.Logger, flushDelay time.Duration) *Engine {
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}
	return &Engine{
		remote:     remote,
		drafts:     drafts,
		log:        log.With().Str("component", "sync").Logger(),
		flushDelay: flushDelay,
		status:     StatusSynced,
		pending:    make(map[string]models.PendingChange),
	}
}

// Status returns the current save state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Selected returns the selected entry's identifier, or "".
func (e *Engine) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedID
}

// Identity returns the current identity, nil when unauthenticated.
func (e *Engine) Identity() *models.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity
}

// Notes returns a copy of the unified note list in display order.
func (e *Engine) Notes() []models.NoteOrDraft {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.NoteOrDraft, len(e.notes))
	copy(out, e.notes)
	return out
}

// SetIdentity installs the authenticated identity. A transition from no
// identity to an identity triggers the draft migration and a reload; the
// reverse transition (logout) only clears the identity and the durable
// entries.
func (e *Engine) SetIdentity(ctx context.Context, ident *models.Identity) error {
	e.mu.Lock()
	hadIdentity := e.identity != nil
	e.identity = ident
	e.mu.Unlock()

	if ident != nil && !hadIdentity {
		return e.migrateDrafts(ctx)
	}
	if ident == nil && hadIdentity {
		return e.LoadAll(ctx)
	}
	return nil
}

// LoadAll rebuilds the note list: durable notes first (when authenticated),
// drafts after. A remote failure degrades to drafts only; local drafts stay
// reachable no matter what the network does.
func (e *Engine) LoadAll(ctx context.Context) error {
	e.mu.Lock()
	ident := e.identity
	e.mu.Unlock()

	var durable []*models.Note
	if ident != nil {
		notes, err := e.remote.ListNotes(ctx)
		if err != nil {
			e.log.Warn().Err(err).Msg("failed to load notes, falling back to drafts")
		} else {
			durable = notes
		}
	}

	drafts, err := e.drafts.List()
	if err != nil {
		return fmt.Errorf("failed to load drafts: %w", err)
	}

	combined := make([]models.NoteOrDraft, 0, len(durable)+len(drafts))
	for _, n := range durable {
		combined = append(combined, models.DurableEntry(n))
	}
	for _, d := range drafts {
		combined = append(combined, models.DraftEntry(d))
	}

	e.mu.Lock()
	e.notes = combined
	if e.selectedID != "" && e.entryLocked(e.selectedID).IsZero() {
		e.selectedID = ""
	}
	e.mu.Unlock()
	return nil
}

// CreateNote creates a new empty note, prepends it to the list, and selects
// it. Authenticated sessions create through the remote store and never touch
// the draft file; unauthenticated sessions synthesize a draft and never touch
// the remote store. Status is Syncing for the duration and Synced after, win
// or lose.
func (e *Engine) CreateNote(ctx context.Context) (models.NoteOrDraft, error) {
	e.mu.Lock()
	ident := e.identity
	e.status = StatusSyncing
	e.mu.Unlock()

	defer e.setStatusIfIdle(StatusSynced)

	var entry models.NoteOrDraft
	if ident != nil {
		note, err := e.remote.CreateNote(ctx, "", "")
		if err != nil {
			e.log.Warn().Err(err).Msg("failed to create note")
			return models.NoteOrDraft{}, fmt.Errorf("failed to create note: %w", err)
		}
		entry = models.DurableEntry(note)
	} else {
		now := time.Now()
		d := &models.DraftNote{
			ID:        models.NewDraftID(),
			Title:     "Untitled Note",
			Content:   "",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.drafts.Save(d); err != nil {
			return models.NoteOrDraft{}, fmt.Errorf("failed to save draft: %w", err)
		}
		entry = models.DraftEntry(d)
	}

	e.mu.Lock()
	e.notes = append([]models.NoteOrDraft{entry}, e.notes...)
	e.selectedID = entry.ID()
	e.mu.Unlock()
	return entry, nil
}

// Select changes the active selection. Deselecting a note with buffered edits
// flushes them first, so pending changes never silently follow the selection.
func (e *Engine) Select(ctx context.Context, id string) {
	e.mu.Lock()
	if id == e.selectedID {
		e.mu.Unlock()
		return
	}
	mustFlush := e.anyPendingLocked()
	e.mu.Unlock()

	if mustFlush {
		e.FlushNow(ctx)
	}

	e.mu.Lock()
	e.selectedID = id
	e.mu.Unlock()
}

// ScheduleEdit merges a partial update into the note's pending set and
// restarts the debounce timer. Later values win per field. If the timer was
// armed for a different note, that note's set is flushed first; when the
// flush fails or is blocked by an in-flight update, the old set stays parked
// under its own note and is retried later. Edits never move between notes.
func (e *Engine) ScheduleEdit(ctx context.Context, id string, change models.PendingChange) {
	if change.IsEmpty() {
		return
	}

	e.mu.Lock()
	if e.pendingID != "" && e.pendingID != id && !e.pending[e.pendingID].IsEmpty() {
		e.mu.Unlock()
		e.FlushNow(ctx)
		e.mu.Lock()
	}

	e.pendingID = id
	e.mergePendingLocked(id, change)
	e.status = StatusPending

	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.flushDelay, func() {
		e.flush(context.Background())
	})
	e.mu.Unlock()
}

// FlushNow cancels the debounce timer and flushes whatever is pending. With
// an empty pending set it issues no store call at all.
func (e *Engine) FlushNow(ctx context.Context) {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()
	e.flush(ctx)
}

// Run drives the safety-net tick: every flushDelay it re-checks for buffered
// edits and flushes them. The tick catches a debounce timer that was cleared
// without firing and retries sets left behind by a failed flush. Blocks until
// ctx is done.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.flushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			due := e.anyPendingLocked()
			e.mu.Unlock()
			if due {
				e.flush(ctx)
			}
		}
	}
}

// Suspend is the page-hide hook. Pending edits to a durable note go out as a
// fire-and-forget beacon with no confirmation; the pending set is kept so a
// resumed session can still flush properly. Pending edits to a draft are
// flushed locally, which is synchronous and safe.
func (e *Engine) Suspend(ctx context.Context) {
	e.mu.Lock()
	id := e.pendingID
	snap := e.pending[id]
	entry := e.entryLocked(id)
	e.mu.Unlock()

	if snap.IsEmpty() || entry.IsZero() {
		return
	}
	if entry.IsDraft() {
		e.flush(ctx)
		return
	}
	note, _ := entry.Note()
	e.remote.Beacon(note.ID, snap)
}

// DeleteNote removes the entry from its store and from the list. Deleting
// the selected note clears the selection and drops its pending set.
func (e *Engine) DeleteNote(ctx context.Context, id string) error {
	e.mu.Lock()
	entry := e.entryLocked(id)
	e.mu.Unlock()
	if entry.IsZero() {
		return nil
	}

	if d, ok := entry.Draft(); ok {
		if err := e.drafts.Delete(d.ID); err != nil {
			return fmt.Errorf("failed to delete draft: %w", err)
		}
	} else {
		note, _ := entry.Note()
		if err := e.remote.DeleteNote(ctx, note.ID); err != nil {
			e.log.Warn().Err(err).Str("note_id", id).Msg("failed to delete note")
			return fmt.Errorf("failed to delete note: %w", err)
		}
	}

	e.mu.Lock()
	e.removeLocked(id)
	if e.selectedID == id {
		e.selectedID = ""
	}
	e.dropPendingLocked(id)
	if e.status == StatusPending && !e.anyPendingLocked() {
		e.status = StatusSynced
	}
	e.mu.Unlock()
	return nil
}

// Share makes a durable note public. Sharing is an immediate call, never
// debounced, and sharing a draft is an error: drafts have no server row to
// point a public URL at.
func (e *Engine) Share(ctx context.Context, id string) (*models.SharedNote, error) {
	e.mu.Lock()
	entry := e.entryLocked(id)
	e.mu.Unlock()

	note, ok := entry.Note()
	if !ok {
		return nil, fmt.Errorf("cannot share %q: not a saved note", id)
	}
	shared, err := e.remote.ShareNote(ctx, note.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to share note: %w", err)
	}

	e.mu.Lock()
	e.replaceLocked(models.DurableEntry(shared.Note))
	e.mu.Unlock()
	return shared, nil
}

// Unshare revokes a note's public token.
func (e *Engine) Unshare(ctx context.Context, id string) error {
	e.mu.Lock()
	entry := e.entryLocked(id)
	e.mu.Unlock()

	note, ok := entry.Note()
	if !ok {
		return fmt.Errorf("cannot unshare %q: not a saved note", id)
	}
	updated, err := e.remote.UnshareNote(ctx, note.ID)
	if err != nil {
		return fmt.Errorf("failed to unshare note: %w", err)
	}

	e.mu.Lock()
	e.replaceLocked(models.DurableEntry(updated))
	e.mu.Unlock()
	return nil
}

// flush moves one note's pending set to its store, preferring the set the
// debounce timer is armed for and falling back to any parked set. Drafts are
// written locally under the lock; durable notes go through one in-flight
// remote update at a time, and edits arriving meanwhile are delivered by a
// follow-up flush once the response lands. On a remote failure the pending
// set is kept for the next attempt and status returns to Synced, so the UI
// never wedges on "saving".
func (e *Engine) flush(ctx context.Context) {
	e.mu.Lock()
	if e.inflight {
		e.mu.Unlock()
		return
	}

	id := e.pendingID
	if id == "" || e.pending[id].IsEmpty() {
		id = ""
		for parked, set := range e.pending {
			if !set.IsEmpty() {
				id = parked
				break
			}
		}
	}
	if id == "" {
		e.mu.Unlock()
		return
	}

	snap := e.pending[id]
	entry := e.entryLocked(id)
	if entry.IsZero() {
		// The note is gone; its edits have nowhere to go.
		e.dropPendingLocked(id)
		if !e.anyPendingLocked() {
			e.status = StatusSynced
		}
		e.mu.Unlock()
		return
	}

	if d, ok := entry.Draft(); ok {
		merged := *d
		if snap.Title != nil {
			merged.Title = *snap.Title
		}
		if snap.Content != nil {
			merged.Content = *snap.Content
		}
		merged.UpdatedAt = time.Now()
		e.replaceLocked(models.DraftEntry(&merged))
		e.dropPendingLocked(id)
		followUp := e.anyPendingLocked()
		if !followUp {
			e.status = StatusSynced
		}
		e.mu.Unlock()

		if err := e.drafts.Save(&merged); err != nil {
			e.log.Warn().Err(err).Str("draft_id", merged.ID).Msg("failed to persist draft")
		}
		if followUp {
			e.flush(ctx)
		}
		return
	}

	note, _ := entry.Note()
	e.inflight = true
	e.status = StatusSyncing
	e.mu.Unlock()

	updated, err := e.remote.UpdateNote(ctx, note.ID, snap)

	e.mu.Lock()
	e.inflight = false
	if err != nil || updated == nil {
		e.log.Warn().Err(err).Str("note_id", id).Msg("failed to flush note, keeping pending changes")
		e.status = StatusSynced
		e.mu.Unlock()
		return
	}

	e.replaceLocked(models.DurableEntry(updated))
	e.clearFlushedLocked(id, snap)
	followUp := e.anyPendingLocked()
	if followUp {
		e.status = StatusPending
	} else {
		e.status = StatusSynced
	}
	e.mu.Unlock()

	if followUp {
		e.flush(ctx)
	}
}

// clearFlushedLocked clears only the fields whose pending value is exactly
// what the flush sent. A field overwritten by a newer edit while the request
// was in flight stays pending for the next flush.
func (e *Engine) clearFlushedLocked(id string, snap models.PendingChange) {
	set, ok := e.pending[id]
	if !ok {
		return
	}
	if set.Title != nil && snap.Title != nil && *set.Title == *snap.Title {
		set.Title = nil
	}
	if set.Content != nil && snap.Content != nil && *set.Content == *snap.Content {
		set.Content = nil
	}
	if set.IsEmpty() {
		e.dropPendingLocked(id)
		return
	}
	e.pending[id] = set
}

// mergePendingLocked folds change into the note's buffered set, later values
// winning per field.
func (e *Engine) mergePendingLocked(id string, change models.PendingChange) {
	set := e.pending[id]
	set.Merge(change)
	e.pending[id] = set
}

func (e *Engine) dropPendingLocked(id string) {
	delete(e.pending, id)
	if e.pendingID == id {
		e.pendingID = ""
	}
}

func (e *Engine) anyPendingLocked() bool {
	for _, set := range e.pending {
		if !set.IsEmpty() {
			return true
		}
	}
	return false
}

func (e *Engine) entryLocked(id string) models.NoteOrDraft {
	for _, entry := range e.notes {
		if entry.ID() == id {
			return entry
		}
	}
	return models.NoteOrDraft{}
}

func (e *Engine) replaceLocked(entry models.NoteOrDraft) {
	for i := range e.notes {
		if e.notes[i].ID() == entry.ID() {
			e.notes[i] = entry
			return
		}
	}
}

func (e *Engine) removeLocked(id string) {
	for i := range e.notes {
		if e.notes[i].ID() == id {
			e.notes = append(e.notes[:i], e.notes[i+1:]...)
			return
		}
	}
}

// setStatusIfIdle restores status only when nothing is pending or in flight,
// so a CreateNote finishing does not mask edits buffered while it ran.
func (e *Engine) setStatusIfIdle(s Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight {
		return
	}
	if e.anyPendingLocked() {
		e.status = StatusPending
		return
	}
	e.status = s
}
