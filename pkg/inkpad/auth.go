package inkpad

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/inkpad/inkpad/pkg/models"
)

const (
	stateCookieName = "inkpad_oauth_state"
	sessionTTL      = 7 * 24 * time.Hour
)

// generateState creates the random value that ties an OAuth callback to the
// browser that started the flow.
func generateState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// mintToken issues the bearer JWT for a signed-in user. Sessions are
// stateless: the token carries the user ID and expiry, and every request
// re-resolves the user row.
func (a *App) mintToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// parseToken validates a bearer JWT and returns the user ID it carries.
func (a *App) parseToken(raw string) (models.UserID, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.config.JWTSecret), nil
	})
	if err != nil {
		return models.UserID{}, err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return models.UserID{}, fmt.Errorf("token has no subject")
	}
	return models.ParseUserID(claims.Subject)
}

// requireAuth resolves the Authorization header to a user before calling
// next. A missing or invalid token is 401; a valid token whose user row no
// longer exists is 404.
func (a *App) requireAuth(next func(http.ResponseWriter, *http.Request, *models.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			respondError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		userID, err := a.parseToken(raw)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		user, err := a.store.GetUser(r.Context(), userID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if user == nil {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}

		next(w, r, user)
	}
}

// handleGoogleLogin begins the OAuth flow: it mints a state value, stores it
// in a short-lived cookie, and returns the provider URL for the client to
// redirect to.
//
// HTTP Method: GET
// Endpoint: /api/auth/google
//
// Response:
//   - 200 OK: {"url": "https://accounts.google.com/..."}
//   - 500 Internal Server Error: OAuth is not configured
func (a *App) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if a.oauth == nil {
		respondError(w, http.StatusInternalServerError, "OAuth is not configured")
		return
	}

	state, err := generateState()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]string{"url": a.oauth.AuthCodeURL(state)})
}

// googleUserInfo is the subset of the userinfo response the app keeps.
type googleUserInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// handleGoogleCallback is the OAuth redirect target. It verifies the state
// cookie, exchanges the code, fetches the user's profile, upserts the user
// row keyed on email, and returns the session token.
//
// HTTP Method: GET
// Endpoint: /api/auth/google/callback?code=...&state=...
//
// Response:
//   - 200 OK: {"token": "...", "user": {...}}
//   - 401 Unauthorized: state mismatch or failed code exchange
//   - 500 Internal Server Error: provider or store failure
func (a *App) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if a.oauth == nil {
		respondError(w, http.StatusInternalServerError, "OAuth is not configured")
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		respondError(w, http.StatusUnauthorized, "OAuth state mismatch")
		return
	}

	ctx := r.Context()
	token, err := a.oauth.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		a.log.Warn().Err(err).Msg("oauth code exchange failed")
		respondError(w, http.StatusUnauthorized, "Failed to complete sign-in")
		return
	}

	resp, err := a.oauth.Client(ctx, token).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		a.log.Error().Err(err).Msg("failed to fetch userinfo")
		respondError(w, http.StatusInternalServerError, "Failed to fetch user profile")
		return
	}
	defer resp.Body.Close()

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.Email == "" {
		respondError(w, http.StatusInternalServerError, "Failed to decode user profile")
		return
	}

	user, err := a.upsertUser(r, info)
	if err != nil {
		a.log.Error().Err(err).Str("email", info.Email).Msg("failed to upsert user")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	session, err := a.mintToken(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The state cookie has done its job.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Path:   "/api/auth",
		MaxAge: -1,
	})
	respondJSON(w, http.StatusOK, map[string]any{"token": session, "user": user})
}

// upsertUser finds the user row for a verified profile, creating it on first
// sign-in and refreshing the display name and avatar on later ones.
func (a *App) upsertUser(r *http.Request, info googleUserInfo) (*models.User, error) {
	ctx := r.Context()

	user, err := a.store.GetUserByEmail(ctx, info.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &models.User{
			Email:     info.Email,
			FullName:  info.Name,
			AvatarURL: info.Picture,
		}
		if err := a.store.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}

	if user.FullName != info.Name || user.AvatarURL != info.Picture {
		user.FullName = info.Name
		user.AvatarURL = info.Picture
		if err := a.store.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// handleGetCurrentUser returns the authenticated user.
//
// HTTP Method: GET
// Endpoint: /api/auth/me
//
// Response:
//   - 200 OK: {"user": {...}}
//   - 401 Unauthorized: missing or invalid bearer token
//   - 404 Not Found: the token's user row no longer exists
func (a *App) handleGetCurrentUser(w http.ResponseWriter, r *http.Request, user *models.User) {
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}
