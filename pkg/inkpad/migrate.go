package inkpad

import (
	"context"
	"fmt"
)

// Migrate applies the database schema for the configured store and exits.
// The in-memory store has no schema, so -memory migrate is a no-op.
func (a *App) Migrate(ctx context.Context, cmd *MigrateCommand) error {
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	a.log.Info().Msg("migrations complete")
	return nil
}
