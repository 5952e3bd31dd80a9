// Package inkpad is a note-taking web application with autosave, local
// drafts for signed-out users, public sharing, and a leaderboard.
//
// # Features
//
//   - Notes CRUD: flat per-user notes with debounced autosave; edits buffer
//     locally and flush after a quiet period, on explicit save, and
//     best-effort when the page is hidden
//   - Local Drafts: notes created before sign-in persist in a local draft
//     store and keep working with no network at all
//   - Draft Migration: on sign-in, drafts are promoted to durable notes; a
//     draft whose promotion fails is retained locally for a later attempt
//   - Public Sharing: a note can be published under an unguessable token;
//     revoking and re-sharing rotates the token and kills old links
//   - Google Sign-In: OAuth code flow with stateless JWT sessions
//   - Leaderboard: users ranked by note count, briefly cached in Redis
//
// # Architecture Overview
//
//   - [github.com/inkpad/inkpad/pkg/store.Store] abstracts the durable
//     store; PostgreSQL (GORM) in production, an in-memory double for tests
//   - [github.com/inkpad/inkpad/pkg/store/draft.Store] is the ephemeral
//     draft store: one CBOR file standing in for the browser's local storage
//   - [github.com/inkpad/inkpad/pkg/sync.Engine] decides, per note, which
//     store its edits go to, owns the save state machine, and runs the
//     draft-to-durable migration
//   - [github.com/inkpad/inkpad/pkg/client.Client] is the typed API client
//     the engine uses as its remote store
//   - [github.com/inkpad/inkpad/pkg/inkpad.Command] organizes the
//     application operations (run, migrate) with their configuration
//
// # Quick Start
//
//	inkpad migrate          # apply the database schema
//	inkpad run              # serve the API on :8080
//	inkpad -memory run      # serve without a database
//
// Connection strings and OAuth credentials come from the environment; see
// [github.com/inkpad/inkpad/pkg/inkpad.Parse].
package inkpad
