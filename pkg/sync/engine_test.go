package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpad/inkpad/pkg/models"
	"github.com/inkpad/inkpad/pkg/store/draft"
)

// fakeRemote is an in-memory RemoteStore that counts every call, so tests
// can assert not just outcomes but which store was touched.
type fakeRemote struct {
	mu    stdsync.Mutex
	notes map[models.NoteID]*models.Note
	order []models.NoteID

	listCalls   int
	createCalls int
	updateCalls int
	deleteCalls int

	lastUpdate models.PendingChange
	beacons    []models.PendingChange

	failList    bool
	failUpdate  bool
	failCreates map[string]bool // by title

	// When set, UpdateNote signals updateStarted and then waits on
	// updateGate before touching the store, so a test can hold a flush in
	// flight and inject edits underneath it.
	updateStarted chan struct{}
	updateGate    chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		notes:       make(map[models.NoteID]*models.Note),
		failCreates: make(map[string]bool),
	}
}

func (f *fakeRemote) ListNotes(ctx context.Context) ([]*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failList {
		return nil, fmt.Errorf("remote unavailable")
	}
	out := make([]*models.Note, 0, len(f.order))
	for i := len(f.order) - 1; i >= 0; i-- {
		out = append(out, f.notes[f.order[i]])
	}
	return out, nil
}

func (f *fakeRemote) CreateNote(ctx context.Context, title, content string) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if title == "" {
		title = "Untitled Note"
	}
	if f.failCreates[title] {
		return nil, fmt.Errorf("remote unavailable")
	}
	note := &models.Note{
		ID:        models.NewNoteID(),
		Title:     title,
		Content:   content,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.notes[note.ID] = note
	f.order = append(f.order, note.ID)
	return note, nil
}

func (f *fakeRemote) UpdateNote(ctx context.Context, id models.NoteID, change models.PendingChange) (*models.Note, error) {
	f.mu.Lock()
	f.updateCalls++
	f.lastUpdate = change
	started, gate := f.updateStarted, f.updateGate
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate {
		return nil, fmt.Errorf("remote unavailable")
	}
	note, ok := f.notes[id]
	if !ok {
		return nil, fmt.Errorf("note not found")
	}
	if change.Title != nil {
		note.Title = *change.Title
	}
	if change.Content != nil {
		note.Content = *change.Content
	}
	note.UpdatedAt = time.Now()
	copied := *note
	return &copied, nil
}

func (f *fakeRemote) updates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateCalls
}

func (f *fakeRemote) noteTitle(id models.NoteID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notes[id].Title
}

func (f *fakeRemote) DeleteNote(ctx context.Context, id models.NoteID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	delete(f.notes, id)
	for i, existing := range f.order {
		if existing == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRemote) ShareNote(ctx context.Context, id models.NoteID) (*models.SharedNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	note, ok := f.notes[id]
	if !ok {
		return nil, fmt.Errorf("note not found")
	}
	publicID := models.NewPublicID()
	note.IsPublic = true
	note.PublicID = &publicID
	copied := *note
	return &models.SharedNote{Note: &copied, PublicID: publicID, PublicURL: "http://example.com/public/" + publicID}, nil
}

func (f *fakeRemote) UnshareNote(ctx context.Context, id models.NoteID) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	note, ok := f.notes[id]
	if !ok {
		return nil, fmt.Errorf("note not found")
	}
	note.IsPublic = false
	note.PublicID = nil
	copied := *note
	return &copied, nil
}

func (f *fakeRemote) Beacon(id models.NoteID, change models.PendingChange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beacons = append(f.beacons, change)
}

// newTestEngine returns an engine whose debounce timer will never fire on its
// own, so tests control every flush explicitly.
func newTestEngine(t *testing.T, remote RemoteStore) (*Engine, *draft.Store) {
	t.Helper()
	drafts, err := draft.New(t.TempDir())
	require.NoError(t, err)
	return New(remote, drafts, zerolog.Nop(), time.Hour), drafts
}

func signIn(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.SetIdentity(context.Background(), &models.Identity{
		ID:          models.NewUserID(),
		DisplayName: "Test User",
	}))
}

func TestScheduleEditMergesFieldWise(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)
	signIn(t, e)

	entry, err := e.CreateNote(ctx)
	require.NoError(t, err)
	note, ok := entry.Note()
	require.True(t, ok)

	e.ScheduleEdit(ctx, entry.ID(), models.TitleChange("A"))
	e.ScheduleEdit(ctx, entry.ID(), models.ContentChange("B"))
	e.ScheduleEdit(ctx, entry.ID(), models.TitleChange("C"))
	assert.Equal(t, StatusPending, e.Status())

	e.FlushNow(ctx)

	assert.Equal(t, 1, remote.updateCalls)
	require.NotNil(t, remote.lastUpdate.Title)
	require.NotNil(t, remote.lastUpdate.Content)
	assert.Equal(t, "C", *remote.lastUpdate.Title)
	assert.Equal(t, "B", *remote.lastUpdate.Content)
	assert.Equal(t, StatusSynced, e.Status())

	assert.Equal(t, "C", remote.notes[note.ID].Title)
	assert.Equal(t, "B", remote.notes[note.ID].Content)
}

func TestCreateNoteUnauthenticatedStaysLocal(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	e, drafts := newTestEngine(t, remote)

	entry, err := e.CreateNote(ctx)
	require.NoError(t, err)

	assert.True(t, entry.IsDraft())
	assert.Equal(t, 0, remote.createCalls, "unauthenticated create must not touch the remote store")

	stored, err := drafts.List()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, entry.ID(), stored[0].ID)
	assert.Equal(t, StatusSynced, e.Status())
	assert.Equal(t, entry.ID(), e.Selected())
}

func TestCreateNoteAuthenticatedStaysRemote(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	e, drafts := newTestEngine(t, remote)
	signIn(t, e)

	entry, err := e.CreateNote(ctx)
	require.NoError(t, err)

	assert.False(t, entry.IsDraft())
	assert.Equal(t, 1, remote.createCalls)

	stored, err := drafts.List()
	require.NoError(t, err)
	assert.Empty(t, stored, "authenticated create must not write to the draft store")
}

func TestFlushNowEmptyPendingIsNoop(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)
	signIn(t, e)

	_, err := e.CreateNote(ctx)
	require.NoError(t, err)

	before := remote.updateCalls
	e.FlushNow(ctx)
	assert.Equal(t, before, remote.updateCalls, "flush with nothing pending must not call the store")
}

func TestFlushFailureKeepsPendingForRetry(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)
	signIn(t, e)

	entry, err := e.CreateNote(ctx)
	require.NoError(t, err)

	remote.failUpdate = true
	e.ScheduleEdit(ctx, entry.ID(), models.TitleChange("unsaved"))
	e.FlushNow(ctx)

	assert.Equal(t, 1, remote.updateCalls)
	assert.Equal(t, StatusSynced, e.Status(), "a failed flush must not wedge the status on syncing")

	e.mu.Lock()
	kept := e.pending[entry.ID()]
	e.mu.Unlock()
	require.NotNil(t, kept.Title, "pending set must survive a failed flush")
	assert.Equal(t, "unsaved", *kept.Title)

	remote.failUpdate = false
	e.FlushNow(ctx)
	assert.Equal(t, 2, remote.updateCalls)
	assert.Equal(t, StatusSynced, e.Status())

	note, _ := entry.Note()
	assert.Equal(t, "unsaved", remote.notes[note.ID].Title)
}

func TestEditsStayWithTheirNoteAfterFailedFlush(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)
	signIn(t, e)

	first, err := e.CreateNote(ctx)
	require.NoError(t, err)
	second, err := e.CreateNote(ctx)
	require.NoError(t, err)

	remote.failUpdate = true
	e.ScheduleEdit(ctx, first.ID(), models.TitleChange("kept title"))
	e.FlushNow(ctx)
	assert.Equal(t, 1, remote.updateCalls)

	// Editing another note while the first set is still unflushed retries
	// that set, and on failure parks it under its own note.
	e.ScheduleEdit(ctx, second.ID(), models.ContentChange("second body"))
	assert.Equal(t, 2, remote.updateCalls)

	remote.failUpdate = false
	e.FlushNow(ctx)

	firstNote, _ := first.Note()
	secondNote, _ := second.Note()
	assert.Equal(t, "kept title", remote.notes[firstNote.ID].Title)
	assert.Equal(t, "second body", remote.notes[secondNote.ID].Content)
	assert.Equal(t, "Untitled Note", remote.notes[secondNote.ID].Title,
		"an unflushed title must never land on a different note")
	assert.Equal(t, 4, remote.updateCalls)
	assert.Equal(t, StatusSynced, e.Status())
}

func TestEditDuringInflightFlushIsDeliveredByFollowUp(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.updateStarted = make(chan struct{}, 2)
	remote.updateGate = make(chan struct{})
	e, _ := newTestEngine(t, remote)
	signIn(t, e)

	entry, err := e.CreateNote(ctx)
	require.NoError(t, err)
	note, ok := entry.Note()
	require.True(t, ok)

	e.ScheduleEdit(ctx, entry.ID(), models.TitleChange("first"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.FlushNow(ctx)
	}()
	<-remote.updateStarted

	// The flush holds the "first" snapshot. A newer edit must stay pending,
	// and a flush attempt must not start a second update.
	e.ScheduleEdit(ctx, entry.ID(), models.TitleChange("second"))
	e.FlushNow(ctx)
	assert.Equal(t, 1, remote.updates())

	e.mu.Lock()
	kept := e.pending[entry.ID()]
	e.mu.Unlock()
	require.NotNil(t, kept.Title)
	assert.Equal(t, "second", *kept.Title)

	close(remote.updateGate)
	<-done

	assert.Equal(t, 2, remote.updates(), "the newer edit must go out in a follow-up flush")
	assert.Equal(t, "second", remote.noteTitle(note.ID))
	assert.Equal(t, StatusSynced, e.Status())

	e.mu.Lock()
	drained := !e.anyPendingLocked()
	e.mu.Unlock()
	assert.True(t, drained)
}

func TestRunFlushesPendingLeftByClearedTimer(t *testing.T) {
	remote := newFakeRemote()
	drafts, err := draft.New(t.TempDir())
	require.NoError(t, err)
	e := New(remote, drafts, zerolog.Nop(), 20*time.Millisecond)
	signIn(t, e)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entry, err := e.CreateNote(ctx)
	require.NoError(t, err)
	note, ok := entry.Note()
	require.True(t, ok)

	e.ScheduleEdit(ctx, entry.ID(), models.TitleChange("rescued"))
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()

	go e.Run(ctx)

	require.Eventually(t, func() bool {
		return remote.updates() >= 1 && e.Status() == StatusSynced
	}, 2*time.Second, 10*time.Millisecond, "the tick must flush edits whose timer never fired")
	assert.Equal(t, "rescued", remote.noteTitle(note.ID))
}

func TestSelectFlushesDeselectedNote(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)
	signIn(t, e)

	first, err := e.CreateNote(ctx)
	require.NoError(t, err)
	second, err := e.CreateNote(ctx)
	require.NoError(t, err)
	e.Select(ctx, first.ID())

	e.ScheduleEdit(ctx, first.ID(), models.TitleChange("edited before switch"))
	e.Select(ctx, second.ID())

	assert.Equal(t, 1, remote.updateCalls, "deselect must flush the outgoing note")
	assert.Equal(t, second.ID(), e.Selected())
	assert.Equal(t, StatusSynced, e.Status())

	note, _ := first.Note()
	assert.Equal(t, "edited before switch", remote.notes[note.ID].Title)
}

func TestDraftEditsFlushLocally(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	e, drafts := newTestEngine(t, remote)

	entry, err := e.CreateNote(ctx)
	require.NoError(t, err)

	e.ScheduleEdit(ctx, entry.ID(), models.TitleChange("draft title"))
	e.ScheduleEdit(ctx, entry.ID(), models.ContentChange("draft body"))
	e.FlushNow(ctx)

	assert.Equal(t, 0, remote.updateCalls, "draft flush must never touch the remote store")
	assert.Equal(t, StatusSynced, e.Status())

	stored, err := drafts.List()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "draft title", stored[0].Title)
	assert.Equal(t, "draft body", stored[0].Content)

	listed := e.Notes()
	require.Len(t, listed, 1)
	assert.Equal(t, "draft title", listed[0].Title())
}

func TestLoadAllDegradesToDraftsOnRemoteFailure(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	e, drafts := newTestEngine(t, remote)

	now := time.Now()
	require.NoError(t, drafts.Save(&models.DraftNote{
		ID: models.NewDraftID(), Title: "local only", CreatedAt: now, UpdatedAt: now,
	}))

	e.mu.Lock()
	e.identity = &models.Identity{ID: models.NewUserID()}
	e.mu.Unlock()

	remote.failList = true
	require.NoError(t, e.LoadAll(ctx), "a remote failure must not take local drafts down with it")

	listed := e.Notes()
	require.Len(t, listed, 1)
	assert.True(t, listed[0].IsDraft())
	assert.Equal(t, "local only", listed[0].Title())
}

func TestLoadAllOrdersDurableBeforeDrafts(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	e, drafts := newTestEngine(t, remote)

	_, err := remote.CreateNote(ctx, "server note", "")
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, drafts.Save(&models.DraftNote{
		ID: models.NewDraftID(), Title: "local draft", CreatedAt: now, UpdatedAt: now,
	}))

	e.mu.Lock()
	e.identity = &models.Identity{ID: models.NewUserID()}
	e.mu.Unlock()

	require.NoError(t, e.LoadAll(ctx))

	listed := e.Notes()
	require.Len(t, listed, 2)
	assert.False(t, listed[0].IsDraft())
	assert.True(t, listed[1].IsDraft())
}

func TestDeleteNoteClearsSelectionAndPending(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)
	signIn(t, e)

	entry, err := e.CreateNote(ctx)
	require.NoError(t, err)
	e.ScheduleEdit(ctx, entry.ID(), models.TitleChange("doomed"))

	require.NoError(t, e.DeleteNote(ctx, entry.ID()))

	assert.Equal(t, 1, remote.deleteCalls)
	assert.Empty(t, e.Notes())
	assert.Equal(t, "", e.Selected())
	assert.Equal(t, StatusSynced, e.Status())

	before := remote.updateCalls
	e.FlushNow(ctx)
	assert.Equal(t, before, remote.updateCalls, "pending edits to a deleted note must be dropped")
}

func TestSuspendBeaconsPendingDurableEdits(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)
	signIn(t, e)

	entry, err := e.CreateNote(ctx)
	require.NoError(t, err)
	e.ScheduleEdit(ctx, entry.ID(), models.TitleChange("last second edit"))

	e.Suspend(ctx)

	require.Len(t, remote.beacons, 1)
	require.NotNil(t, remote.beacons[0].Title)
	assert.Equal(t, "last second edit", *remote.beacons[0].Title)

	// Beacons give no confirmation, so the pending set must survive.
	e.mu.Lock()
	kept := e.pending[entry.ID()]
	e.mu.Unlock()
	assert.False(t, kept.IsEmpty())
}

func TestShareAndUnshareUpdateNoteList(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)
	signIn(t, e)

	entry, err := e.CreateNote(ctx)
	require.NoError(t, err)

	shared, err := e.Share(ctx, entry.ID())
	require.NoError(t, err)
	assert.NotEmpty(t, shared.PublicID)

	listed := e.Notes()
	require.Len(t, listed, 1)
	note, ok := listed[0].Note()
	require.True(t, ok)
	assert.True(t, note.IsPublic)
	require.NotNil(t, note.PublicID)
	assert.Equal(t, shared.PublicID, *note.PublicID)

	require.NoError(t, e.Unshare(ctx, entry.ID()))
	listed = e.Notes()
	note, _ = listed[0].Note()
	assert.False(t, note.IsPublic)
	assert.Nil(t, note.PublicID)
}

func TestShareDraftFails(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)

	entry, err := e.CreateNote(ctx)
	require.NoError(t, err)

	_, err = e.Share(ctx, entry.ID())
	assert.Error(t, err, "a draft has no server row to share")
}
