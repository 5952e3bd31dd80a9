package inkpad

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/inkpad/inkpad/pkg/cache"
	redisCache "github.com/inkpad/inkpad/pkg/cache/redis"
	"github.com/inkpad/inkpad/pkg/store"
	"github.com/inkpad/inkpad/pkg/store/memory"
	"github.com/inkpad/inkpad/pkg/store/postgres"
)

// Config holds application configuration, assembled by [Parse] from flags
// and environment variables.
type Config struct {
	// Database configuration. UseMemory selects the in-memory store instead
	// of PostgreSQL, for local development and tests.
	PostgresDSN string
	UseMemory   bool

	// RedisAddr enables the leaderboard cache when non-empty. Left empty,
	// the app runs with a no-op cache and every leaderboard read hits the
	// database.
	RedisAddr string

	// OAuth and session configuration.
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string
	JWTSecret          string

	// PublicBaseURL is the externally visible origin used to build share
	// URLs, e.g. "https://inkpad.example.com".
	PublicBaseURL string

	// Server configuration.
	ServerPort string

	// FlushDelay is the autosave debounce window advertised to clients.
	FlushDelay time.Duration
}

// App holds the application state shared by all handlers.
type App struct {
	store  store.Store
	cache  cache.Cache
	config *Config
	log    zerolog.Logger
	oauth  *oauth2.Config
}

// New creates an application instance: it connects the configured store,
// attaches the leaderboard cache when Redis is configured, and prepares the
// OAuth client. The store connection is verified here so a misconfigured
// database fails at startup, not on the first request.
func New(ctx context.Context, config *Config) (*App, error) {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("app", "inkpad").Logger()

	var appStore store.Store
	if config.UseMemory {
		appStore = memory.New()
		log.Info().Msg("using in-memory store")
	} else {
		var err error
		appStore, err = postgres.New(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		log.Info().Msg("connected to PostgreSQL")
	}

	var appCache cache.Cache = cache.Noop{}
	if config.RedisAddr != "" {
		c, err := redisCache.New(ctx, config.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		appCache = c
		log.Info().Str("addr", config.RedisAddr).Msg("connected to Redis")
	}

	app := &App{
		store:  appStore,
		cache:  appCache,
		config: config,
		log:    log,
	}
	if config.GoogleClientID != "" {
		app.oauth = &oauth2.Config{
			ClientID:     config.GoogleClientID,
			ClientSecret: config.GoogleClientSecret,
			RedirectURL:  config.OAuthRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: endpoints.Google,
		}
	}

	return app, nil
}

// Close closes the application and its resources.
func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Store returns the underlying store (useful for testing).
func (a *App) Store() store.Store {
	return a.store
}

// getEnv retrieves an environment variable with a fallback default. An empty
// value is treated the same as unset.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
