package sync

import (
	"context"
	"fmt"

	"github.com/inkpad/inkpad/pkg/models"
)

// migrateDrafts promotes local drafts into durable notes after sign-in.
//
// Each draft is created independently, carrying over title and content only;
// the server assigns the identifier and timestamps. One draft's failure does
// not abort the batch. When at least one create succeeded, the draft store is
// rewritten to hold only the drafts that failed, so a failed draft survives
// for a later attempt instead of being dropped with its siblings, and the
// full note list is reloaded. With an empty draft store this is a no-op: no
// store writes, status stays Synced.
func (e *Engine) migrateDrafts(ctx context.Context) error {
	drafts, err := e.drafts.List()
	if err != nil {
		return fmt.Errorf("failed to read drafts for migration: %w", err)
	}
	if len(drafts) == 0 {
		return e.LoadAll(ctx)
	}

	e.mu.Lock()
	e.status = StatusSyncing
	e.mu.Unlock()
	defer e.setStatusIfIdle(StatusSynced)

	var failed []*models.DraftNote
	migrated := 0
	for _, d := range drafts {
		if _, err := e.remote.CreateNote(ctx, d.Title, d.Content); err != nil {
			e.log.Warn().Err(err).Str("draft_id", d.ID).Msg("failed to migrate draft")
			failed = append(failed, d)
			continue
		}
		migrated++
	}

	if migrated > 0 {
		if err := e.drafts.ReplaceAll(failed); err != nil {
			return fmt.Errorf("failed to rewrite draft store after migration: %w", err)
		}
	}

	e.log.Info().Int("migrated", migrated).Int("failed", len(failed)).Msg("draft migration complete")
	return e.LoadAll(ctx)
}
