// Package sync implements the note synchronization engine: the single
// authority for where a note's edits go and for the session's save state.
//
// The engine owns an ordered list of [models.NoteOrDraft] entries, at most
// one selection, and a per-note buffer of pending change sets keyed by note
// identifier, so unflushed edits always stay attributed to the note they were
// made on. Edits arrive through [Engine.ScheduleEdit], which merges them
// field-wise and arms a single debounce timer; the timer, an explicit
// [Engine.FlushNow], a periodic safety-net tick, and the page-hide beacon are
// the only paths that move pending data to storage.
//
// Durable notes flush to the remote API, drafts flush to the local draft
// file. Which path a note takes is decided by its union arm, never by the
// caller. When an identity appears where none was present, the engine runs
// the draft migration exactly once for that transition.
package sync
