// Package models defines the domain entities shared by the inkpad server,
// stores, API client, and sync engine.
//
// The model is deliberately flat: a [User] owns a set of [Note] records in the
// durable store, and an unauthenticated session accumulates [DraftNote]
// records in the local draft store. The [NoteOrDraft] union is the single
// shape the note list and the sync engine operate on; it is an explicit
// two-constructor tagged union so that every place where draft and durable
// behavior diverge is an exhaustive two-way branch rather than a structural
// field check.
//
// Typed identifiers ([UserID], [NoteID]) wrap UUIDs and implement JSON and
// SQL marshaling so that raw strings never cross package boundaries. Draft
// identifiers are plain strings minted by [NewDraftID]; they never reach the
// durable store, because migration re-creates each record and the server
// assigns a fresh [NoteID].
//
// [PendingChange] is the buffered-edit unit of the sync engine: an optional
// title and an optional content replacement, merged field-wise with
// last-write-wins semantics.
package models
