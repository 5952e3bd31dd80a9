package inkpad

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Router builds the handler tree. Split out from Run so tests can serve the
// full route table through httptest without binding a port.
//
// # API Endpoints
//
// Health check:
//
//	GET  /api/health                   - Service health status
//
// Authentication:
//
//	GET  /api/auth/google              - Begin the Google OAuth flow
//	GET  /api/auth/google/callback     - OAuth redirect target, issues the session token
//	GET  /api/auth/me                  - Get the current authenticated user
//
// Notes (bearer token required):
//
//	GET    /api/notes                  - List the user's notes
//	POST   /api/notes                  - Create a note
//	PUT    /api/notes/{id}             - Partial update (title and/or content)
//	DELETE /api/notes/{id}             - Delete a note, scoped to its owner
//	POST   /api/notes/{id}/share       - Make a note public, minting a share token
//	DELETE /api/notes/{id}/share       - Revoke a note's share token
//
// Public (no auth):
//
//	GET /api/public/{publicId}         - Read a shared note
//	GET /api/leaderboard               - Users ranked by note count
func (a *App) Router() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", a.handleHealth).Methods("GET")

	api.HandleFunc("/auth/google", a.handleGoogleLogin).Methods("GET")
	api.HandleFunc("/auth/google/callback", a.handleGoogleCallback).Methods("GET")
	api.HandleFunc("/auth/me", a.requireAuth(a.handleGetCurrentUser)).Methods("GET")

	api.HandleFunc("/notes", a.requireAuth(a.handleListNotes)).Methods("GET")
	api.HandleFunc("/notes", a.requireAuth(a.handleCreateNote)).Methods("POST")
	api.HandleFunc("/notes/{id}", a.requireAuth(a.handleUpdateNote)).Methods("PUT")
	api.HandleFunc("/notes/{id}", a.requireAuth(a.handleDeleteNote)).Methods("DELETE")
	api.HandleFunc("/notes/{id}/share", a.requireAuth(a.handleShareNote)).Methods("POST")
	api.HandleFunc("/notes/{id}/share", a.requireAuth(a.handleUnshareNote)).Methods("DELETE")

	api.HandleFunc("/public/{publicId}", a.handleGetPublicNote).Methods("GET")
	api.HandleFunc("/leaderboard", a.handleLeaderboard).Methods("GET")

	// Health check route (outside of /api prefix)
	router.HandleFunc("/health", a.handleHealth).Methods("GET")

	return router
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server
// fails. On shutdown the server drains active requests for up to 5 seconds.
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	addr := fmt.Sprintf(":%s", a.config.ServerPort)
	a.log.Info().Str("addr", addr).Msg("starting inkpad server")

	server := &http.Server{
		Addr:    addr,
		Handler: a.Router(),
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}
