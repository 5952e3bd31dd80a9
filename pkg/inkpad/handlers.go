package inkpad

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/inkpad/inkpad/pkg/models"
)

const (
	defaultNoteTitle = "Untitled Note"

	leaderboardCacheKey = "leaderboard"
	leaderboardCacheTTL = 30 * time.Second
)

// Note handlers. All of these run behind requireAuth, which resolves the
// bearer token to a *models.User before the handler sees the request.

// handleListNotes returns the authenticated user's notes, newest created
// first.
//
// HTTP Method: GET
// Endpoint: /api/notes
//
// Response:
//   - 200 OK: {"notes": [...]}
//   - 401 Unauthorized: missing or invalid bearer token
//   - 500 Internal Server Error: store failure
func (a *App) handleListNotes(w http.ResponseWriter, r *http.Request, user *models.User) {
	notes, err := a.store.ListNotes(r.Context(), user.ID)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to list notes")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

// handleCreateNote creates a note owned by the authenticated user. Both body
// fields are optional: a missing title becomes "Untitled Note" and a missing
// content becomes the empty string.
//
// HTTP Method: POST
// Endpoint: /api/notes
//
// Response:
//   - 201 Created: {"note": {...}}
//   - 401 Unauthorized: missing or invalid bearer token
//   - 500 Internal Server Error: malformed payload or store failure
func (a *App) handleCreateNote(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusInternalServerError, "invalid request payload")
			return
		}
	}
	if req.Title == "" {
		req.Title = defaultNoteTitle
	}

	note := &models.Note{
		Title:   req.Title,
		Content: req.Content,
		UserID:  user.ID,
	}
	if err := a.store.CreateNote(r.Context(), note); err != nil {
		a.log.Error().Err(err).Msg("failed to create note")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"note": note})
}

// handleUpdateNote applies a partial update to one of the user's notes.
// Omitted fields are left untouched.
//
// HTTP Method: PUT
// Endpoint: /api/notes/{id}
//
// Response:
//   - 200 OK: {"note": {...}} with the updated row
//   - 401 Unauthorized: missing or invalid bearer token
//   - 404 Not Found: no such note, or it belongs to someone else
//   - 500 Internal Server Error: malformed payload or store failure
func (a *App) handleUpdateNote(w http.ResponseWriter, r *http.Request, user *models.User) {
	note, ok := a.ownedNote(w, r, user)
	if !ok {
		return
	}

	var change models.PendingChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		respondError(w, http.StatusInternalServerError, "invalid request payload")
		return
	}

	updated, err := a.store.UpdateNoteFields(r.Context(), note.ID, change)
	if err != nil {
		a.log.Error().Err(err).Str("note_id", note.ID.String()).Msg("failed to update note")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if updated == nil {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"note": updated})
}

// handleDeleteNote deletes one of the user's notes. The delete is scoped to
// the owner at the store level: a valid ID owned by someone else silently
// does nothing, and the response is success either way.
//
// HTTP Method: DELETE
// Endpoint: /api/notes/{id}
//
// Response:
//   - 200 OK: {"success": true}
//   - 401 Unauthorized: missing or invalid bearer token
//   - 404 Not Found: the path segment is not a note identifier
//   - 500 Internal Server Error: store failure
func (a *App) handleDeleteNote(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := models.ParseNoteID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}

	if err := a.store.DeleteNote(r.Context(), id, user.ID); err != nil {
		a.log.Error().Err(err).Str("note_id", id.String()).Msg("failed to delete note")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleShareNote makes a note public. A fresh share token is minted on
// every call, even when the note is already public, so re-sharing always
// rotates the URL.
//
// HTTP Method: POST
// Endpoint: /api/notes/{id}/share
//
// Response:
//   - 200 OK: {"note": {...}, "publicUrl": "...", "publicId": "..."}
//   - 401 Unauthorized: missing or invalid bearer token
//   - 404 Not Found: no such note, or it belongs to someone else
//   - 500 Internal Server Error: store failure
func (a *App) handleShareNote(w http.ResponseWriter, r *http.Request, user *models.User) {
	note, ok := a.ownedNote(w, r, user)
	if !ok {
		return
	}

	publicID := models.NewPublicID()
	updated, err := a.store.SetNoteSharing(r.Context(), note.ID, &publicID)
	if err != nil {
		a.log.Error().Err(err).Str("note_id", note.ID.String()).Msg("failed to share note")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if updated == nil {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"note":      updated,
		"publicUrl": fmt.Sprintf("%s/public/%s", a.config.PublicBaseURL, publicID),
		"publicId":  publicID,
	})
}

// handleUnshareNote revokes a note's share token. The token is cleared, not
// archived: a later share mints a new one and the old URL stays dead.
//
// HTTP Method: DELETE
// Endpoint: /api/notes/{id}/share
//
// Response:
//   - 200 OK: {"note": {...}}
//   - 401 Unauthorized: missing or invalid bearer token
//   - 404 Not Found: no such note, or it belongs to someone else
//   - 500 Internal Server Error: store failure
func (a *App) handleUnshareNote(w http.ResponseWriter, r *http.Request, user *models.User) {
	note, ok := a.ownedNote(w, r, user)
	if !ok {
		return
	}

	updated, err := a.store.SetNoteSharing(r.Context(), note.ID, nil)
	if err != nil {
		a.log.Error().Err(err).Str("note_id", note.ID.String()).Msg("failed to unshare note")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if updated == nil {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"note": updated})
}

// handleGetPublicNote serves a shared note to anyone holding its public
// token. The response includes the author's display name.
//
// HTTP Method: GET
// Endpoint: /api/public/{publicId}
//
// Response:
//   - 200 OK: {"note": {...}}
//   - 404 Not Found: unknown token, or the note is no longer public
//   - 500 Internal Server Error: store failure
func (a *App) handleGetPublicNote(w http.ResponseWriter, r *http.Request) {
	publicID := mux.Vars(r)["publicId"]

	note, err := a.store.GetPublicNote(r.Context(), publicID)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to fetch public note")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if note == nil {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"note": note})
}

// handleLeaderboard returns users ranked by note count, most notes first and
// ties broken by name. Responses are cached briefly; a cache failure falls
// through to the database rather than failing the request.
//
// HTTP Method: GET
// Endpoint: /api/leaderboard
//
// Response:
//   - 200 OK: {"leaderboard": [{"id", "full_name", "avatar_url", "note_count"}]}
//   - 500 Internal Server Error: store failure
func (a *App) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cached, err := a.cache.Get(ctx, leaderboardCacheKey); err != nil {
		a.log.Warn().Err(err).Msg("leaderboard cache read failed")
	} else if cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	entries, err := a.store.Leaderboard(ctx)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to build leaderboard")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload, err := json.Marshal(map[string]any{"leaderboard": entries})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := a.cache.Set(ctx, leaderboardCacheKey, payload, leaderboardCacheTTL); err != nil {
		a.log.Warn().Err(err).Msg("leaderboard cache write failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// handleHealth reports service liveness plus the autosave debounce window
// clients should use.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"flush_delay_ms": a.config.FlushDelay.Milliseconds(),
		"time":           time.Now().Unix(),
	})
}

// ownedNote resolves the {id} path variable to a note owned by user. It
// writes the 404 itself and returns ok=false when the ID does not parse, the
// note does not exist, or it belongs to someone else; ownership failures are
// indistinguishable from absence on the wire.
func (a *App) ownedNote(w http.ResponseWriter, r *http.Request, user *models.User) (*models.Note, bool) {
	id, err := models.ParseNoteID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, "Note not found")
		return nil, false
	}

	note, err := a.store.GetNote(r.Context(), id)
	if err != nil {
		a.log.Error().Err(err).Str("note_id", id.String()).Msg("failed to fetch note")
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if note == nil || note.UserID != user.ID {
		respondError(w, http.StatusNotFound, "Note not found")
		return nil, false
	}
	return note, true
}

// respondJSON writes payload as the JSON response body with the given
// status. A payload that fails to marshal turns into a 500 error envelope
// instead, since the status line is not written until the body is known.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// respondError sends the standard error envelope: {"error": message}.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
